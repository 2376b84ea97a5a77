package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/vsound/pkg/audio/pcm"
	"github.com/haivivi/vsound/pkg/cli"
	"github.com/haivivi/vsound/pkg/vsound"
)

var (
	guestURL      string
	guestRate     int
	guestChannels int
	guestBits     int
	guestVolume   int32
	guestChunk    time.Duration
	guestRealtime bool
)

var guestCmd = &cobra.Command{
	Use:   "guest <file.pcm|->",
	Short: "Play raw PCM into a running card as a guest",
	Long: `Connect to a running vsound card as a guest and play raw
interleaved little-endian PCM from a file or stdin.

The guest performs the full driver handshake: READY, waits for OPEN from the
host, OPEN, SET_FORMAT and optionally SET_VOLUME, then streams the audio and
sends OPEN(0) and CLOSE.

Examples:
  vsound guest music.pcm
  ffmpeg -i song.mp3 -f s16le -ac 2 -ar 48000 - | vsound guest --realtime -
  vsound guest --rate=16000 --channels=1 --volume=-2000 speech.pcm`,
	Args: cobra.ExactArgs(1),
	RunE: runGuest,
}

func init() {
	f := guestCmd.Flags()
	f.StringVar(&guestURL, "url", "ws://127.0.0.1:7070/", "card websocket URL")
	f.IntVar(&guestRate, "rate", 48000, "sample rate")
	f.IntVar(&guestChannels, "channels", 2, "channel count")
	f.IntVar(&guestBits, "bits", 16, "bits per sample")
	f.Int32Var(&guestVolume, "volume", 0, "guest volume (0 is full, negative attenuates)")
	f.DurationVar(&guestChunk, "chunk", 10*time.Millisecond, "audio per data message")
	f.BoolVar(&guestRealtime, "realtime", false, "pace data at the play rate")
}

func runGuest(cmd *cobra.Command, args []string) error {
	logger := newLogger(nil)

	var r io.Reader = os.Stdin
	if args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()
		r = file
	}

	format := pcm.Format{
		Channels:      uint16(guestChannels),
		BitsPerSample: uint16(guestBits),
		SampleRate:    uint32(guestRate),
	}
	format.AvgBytesPerSec = uint32(format.BytesRate())
	if err := format.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, err := vsound.DialGuest(ctx, guestURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	opts := vsound.GuestOptions{
		Format:   format,
		Chunk:    guestChunk,
		Realtime: guestRealtime,
		Logger:   vsound.SlogLogger(logger),
	}
	if cmd.Flags().Changed("volume") {
		opts.Volume = &guestVolume
	}

	start := time.Now()
	n, err := vsound.RunGuest(ctx, conn, r, opts)
	if err != nil {
		return fmt.Errorf("guest: %w", err)
	}
	cli.PrintSuccess("Sent %s (%s of audio) in %s",
		cli.FormatBytes(n),
		cli.FormatDuration(format.Duration(n)),
		cli.FormatDuration(time.Since(start)))
	return nil
}
