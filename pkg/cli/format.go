package cli

import (
	"fmt"
	"time"
)

// FormatDuration formats a duration for a status line: "850ms", "12.3s",
// "4m5.0s".
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	secs := float64(ms) / 1000
	if secs < 60 {
		return fmt.Sprintf("%.1fs", secs)
	}
	mins := int(secs / 60)
	secs -= float64(mins * 60)
	return fmt.Sprintf("%dm%.1fs", mins, secs)
}

// FormatBytes formats bytes to human readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatFill formats a buffer fill level as "used / size (pct%)".
func FormatFill(used, size int) string {
	if size <= 0 {
		return "0 B / 0 B"
	}
	return fmt.Sprintf("%s / %s (%d%%)", FormatBytes(int64(used)), FormatBytes(int64(size)), used*100/size)
}
