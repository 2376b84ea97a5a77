package vsound

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/haivivi/vsound/pkg/audio/pcm"
)

// GuestOptions configures RunGuest.
type GuestOptions struct {
	// Format is announced with SET_FORMAT. Defaults to pcm.DefaultFormat.
	Format pcm.Format

	// Volume, if set, is announced with SET_VOLUME in the guest's signed
	// fixed-point scale (0 is full volume).
	Volume *int32

	// Chunk is the play time carried by each data message. Defaults to
	// 10ms.
	Chunk time.Duration

	// Realtime paces data messages at the play rate instead of sending as
	// fast as the transport accepts.
	Realtime bool

	Logger Logger
}

// RunGuest plays r through conn the way a guest driver would: it announces
// READY(1), waits for the host's OPEN(1), opens the stream, sends the
// format and volume, streams r as PCM in the announced format and finally
// sends OPEN(0) and CLOSE. It returns the number of PCM bytes sent.
func RunGuest(ctx context.Context, conn GuestConn, r io.Reader, opts GuestOptions) (int64, error) {
	if opts.Format == (pcm.Format{}) {
		opts.Format = pcm.DefaultFormat
	}
	if err := opts.Format.Validate(); err != nil {
		return 0, fmt.Errorf("vsound: guest: %w", err)
	}
	if opts.Chunk <= 0 {
		opts.Chunk = 10 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = DefaultLogger()
	}

	if err := conn.SendControl(ctx, Encode(EventReady, 1)); err != nil {
		return 0, fmt.Errorf("vsound: guest: send READY: %w", err)
	}
	if err := waitOpen(ctx, conn.Replies()); err != nil {
		return 0, fmt.Errorf("vsound: guest: wait OPEN: %w", err)
	}

	setup := [][]byte{
		Encode(EventOpen, 1),
		EncodeSetFormat(opts.Format),
	}
	if opts.Volume != nil {
		setup = append(setup, EncodeSetVolume(*opts.Volume))
	}
	for _, msg := range setup {
		if err := conn.SendControl(ctx, msg); err != nil {
			return 0, fmt.Errorf("vsound: guest: setup: %w", err)
		}
	}
	opts.Logger.InfoPrintf("guest streaming %s", opts.Format)

	var sent int64
	start := time.Now()
	w := pcm.WriteFunc(func(c pcm.Chunk) error {
		dc, ok := c.(*pcm.DataChunk)
		if !ok {
			return fmt.Errorf("unexpected chunk %T", c)
		}
		if err := conn.SendData(ctx, dc.Data); err != nil {
			return err
		}
		sent += int64(len(dc.Data))
		if opts.Realtime {
			due := start.Add(opts.Format.Duration(sent))
			if wait := time.Until(due); wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		return nil
	})
	if err := pcm.Copy(w, r, opts.Format, opts.Chunk); err != nil {
		return sent, fmt.Errorf("vsound: guest: stream: %w", err)
	}

	for _, msg := range [][]byte{Encode(EventOpen, 0), Encode(EventClose, 0)} {
		if err := conn.SendControl(ctx, msg); err != nil {
			return sent, fmt.Errorf("vsound: guest: teardown: %w", err)
		}
	}
	return sent, nil
}

func waitOpen(ctx context.Context, replies <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-replies:
			if !ok {
				return ErrClosed
			}
			m, err := Decode(msg)
			if err == nil && m.Event == EventOpen && m.Value != 0 {
				return nil
			}
		}
	}
}
