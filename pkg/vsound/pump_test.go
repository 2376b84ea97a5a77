package vsound

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haivivi/vsound/pkg/hostaudio"
)

func TestPumpDrains(t *testing.T) {
	mem := hostaudio.NewMemory()
	dev, err := NewDevice(mem, Config{})
	if err != nil {
		t.Fatal(err)
	}
	dev.Open()
	data := pattern(1920 * 4)
	dev.HandleData(data)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewPump(dev, 5*time.Millisecond, nil).Run(ctx) }()

	waitFor(t, "ring drained", func() bool { return dev.Stats().RingUsed == 0 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run got=%v", err)
	}
	if !bytes.Equal(mem.Played(), data) {
		t.Errorf("played %d bytes, want %d", len(mem.Played()), len(data))
	}
	dev.Close()
}

func TestPumpStopsOnClose(t *testing.T) {
	dev, err := NewDevice(hostaudio.NewMemory(), Config{})
	if err != nil {
		t.Fatal(err)
	}
	dev.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := NewPump(dev, time.Millisecond, nil).Run(ctx); err != nil {
		t.Errorf("Run got=%v", err)
	}
}
