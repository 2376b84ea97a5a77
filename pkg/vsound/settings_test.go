package vsound

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haivivi/vsound/pkg/audio/pcm"
	"github.com/haivivi/vsound/pkg/hostaudio"
	"github.com/haivivi/vsound/pkg/kv"
)

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory(nil)

	if _, err := LoadSettings(ctx, store, "card0"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("missing settings got=%v", err)
	}

	want := &Settings{
		Device:    "card0",
		Format:    pcm.Format{Channels: 1, BitsPerSample: 16, SampleRate: 16000, AvgBytesPerSec: 32000},
		Volume:    Volume{Mute: true, Left: 10, Right: 20},
		UpdatedAt: time.Unix(1700000000, 0).UTC(),
	}
	if err := SaveSettings(ctx, store, want); err != nil {
		t.Fatal(err)
	}
	got, err := LoadSettings(ctx, store, "card0")
	if err != nil {
		t.Fatal(err)
	}
	if got.Device != want.Device || got.Format != want.Format || got.Volume != want.Volume || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Errorf("got=%+v want=%+v", got, want)
	}

	if err := SaveSettings(ctx, store, &Settings{Device: "card1", Format: pcm.DefaultFormat}); err != nil {
		t.Fatal(err)
	}
	all, err := ListSettings(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("list got=%d", len(all))
	}

	if err := DeleteSettings(ctx, store, "card0"); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSettings(ctx, store, "card0"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("after delete got=%v", err)
	}
	if err := SaveSettings(ctx, store, &Settings{}); err == nil {
		t.Error("saved settings without a device")
	}
}

func TestPersister(t *testing.T) {
	store := kv.NewMemory(nil)
	p := NewPersister(store, "card0", nil)

	mem := hostaudio.NewMemory()
	dev, err := NewDevice(mem, Config{ID: "card0", OnChange: p.Notify})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	f := pcm.Format{Channels: 2, BitsPerSample: 16, SampleRate: 44100, AvgBytesPerSec: 176400}
	if err := dev.HandleControl(EncodeSetFormat(f), EncodeSetVolume(0)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "settings saved", func() bool {
		s, err := LoadSettings(context.Background(), store, "card0")
		return err == nil && s.Format == f && s.Volume.Left == 255
	})

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run got=%v", err)
	}
}

func TestPersisterNotifyKeepsLatest(t *testing.T) {
	p := NewPersister(kv.NewMemory(nil), "card0", nil)
	for i := range 5 {
		p.Notify(Snapshot{StreamState: uint16(i)})
	}
	if got := (<-p.pending).StreamState; got != 4 {
		t.Errorf("got=%d", got)
	}
}
