//go:build cgo

package commands

import (
	"log/slog"
	"time"

	"github.com/haivivi/vsound/pkg/audio/portaudio"
	"github.com/haivivi/vsound/pkg/hostaudio"
)

func openPortAudio(latency time.Duration, logger *slog.Logger) (hostaudio.Backend, func() error, error) {
	b, err := portaudio.NewBackend(latency, logger)
	if err != nil {
		return nil, nil, err
	}
	return b, b.Close, nil
}
