package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/x/term"

	"github.com/haivivi/vsound/pkg/cli"
	"github.com/haivivi/vsound/pkg/vsound"
)

const statusRefresh = 500 * time.Millisecond

// showStatus redraws the status frame until ctx is done.
func showStatus(ctx context.Context, dev *vsound.Device, cfg *DeviceConfig, logs *cli.LogWriter) {
	styles := cli.NewStyles(cli.DefaultTheme)
	frame := cli.Frame{
		Styles: styles,
		Title:  "vsound " + dev.ID(),
		Help:   " ctrl+c quit",
		Sections: []cli.Section{
			{Label: "Device", Content: func() []string { return deviceLines(styles, dev, cfg) }},
			{Label: "Stats", Content: func() []string { return statsLines(styles, dev.Stats()) }},
			{Label: "Log", Content: logs.Lines},
		},
	}

	ticker := time.NewTicker(statusRefresh)
	defer ticker.Stop()
	for {
		snap := dev.Snapshot()
		frame.Status = snap.State.String()
		width, height, err := term.GetSize(os.Stdout.Fd())
		if err != nil {
			width, height = 80, 24
		}
		fmt.Print("\033[H\033[2J" + frame.Render(width, height))

		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case <-ticker.C:
		}
	}
}

func deviceLines(s cli.Styles, dev *vsound.Device, cfg *DeviceConfig) []string {
	snap := dev.Snapshot()
	vol := fmt.Sprintf("L %d  R %d", snap.Volume.Left, snap.Volume.Right)
	if snap.Volume.Mute {
		vol += "  (muted)"
	}
	return s.Pairs(
		"backend", cfg.Backend,
		"listen", cfg.Listen,
		"format", snap.Format.String(),
		"volume", vol,
		"guest", onOff(snap.GuestConnected),
		"host", onOff(snap.HostConnected),
		"live", fmt.Sprint(snap.Live()),
		"disabled", fmt.Sprint(snap.Disabled),
	)
}

func statsLines(s cli.Styles, st vsound.StatsSnapshot) []string {
	return s.Pairs(
		"ring", cli.FormatFill(st.RingUsed, st.RingSize),
		"in", cli.FormatBytes(st.BytesIn),
		"out", cli.FormatBytes(st.BytesOut),
		"dropped", cli.FormatBytes(st.BytesDropped),
		"discarded", cli.FormatBytes(st.BytesDiscarded),
		"underruns", fmt.Sprint(st.Underruns),
		"stalls", fmt.Sprint(st.Stalls),
		"control", fmt.Sprintf("%d (%d malformed)", st.ControlMessages, st.Malformed),
	)
}

func onOff(b bool) string {
	if b {
		return "connected"
	}
	return "-"
}
