package cli

import (
	"strings"

	"github.com/haivivi/vsound/pkg/buffer"
)

// LogWriter is an io.Writer that keeps the most recent log lines for the
// status frame. Older lines are overwritten once maxLines is reached.
type LogWriter struct {
	buf *buffer.RingBuffer[string]
	ch  chan string
}

// NewLogWriter creates a new log writer with the given max lines.
func NewLogWriter(maxLines int) *LogWriter {
	return &LogWriter{
		buf: buffer.RingN[string](maxLines),
		ch:  make(chan string, 100),
	}
}

// Write splits p into lines and stores each one. It never blocks.
func (w *LogWriter) Write(p []byte) (n int, err error) {
	text := strings.TrimRight(string(p), "\n")
	if text == "" {
		return len(p), nil
	}
	for _, line := range strings.Split(text, "\n") {
		_ = w.buf.Add(line)
		select {
		case w.ch <- line:
		default:
		}
	}
	return len(p), nil
}

// Lines returns all buffered lines, oldest first.
func (w *LogWriter) Lines() []string {
	return w.buf.Bytes()
}

// Channel returns the notification channel for new lines.
func (w *LogWriter) Channel() <-chan string {
	return w.ch
}
