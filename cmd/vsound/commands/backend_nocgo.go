//go:build !cgo

package commands

import (
	"errors"
	"log/slog"
	"time"

	"github.com/haivivi/vsound/pkg/hostaudio"
)

func openPortAudio(time.Duration, *slog.Logger) (hostaudio.Backend, func() error, error) {
	return nil, nil, errors.New("portaudio backend requires a cgo build; use --backend=rtp or --backend=discard")
}
