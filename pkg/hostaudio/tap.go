package hostaudio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/haivivi/vsound/pkg/buffer"
	"github.com/haivivi/vsound/pkg/storage"
)

// DefaultTapBuffer is the default size of the tap's overwrite ring.
const DefaultTapBuffer = 1 << 20

// TapOptions configures a Tap.
type TapOptions struct {
	// Path is the file written in the store. Defaults to
	// "vsound-<uuid>.pcm".
	Path string
	// BufferSize bounds memory between Write and the store. When the store
	// falls behind, the oldest bytes are dropped. Defaults to
	// DefaultTapBuffer.
	BufferSize int
	Logger     *slog.Logger
}

// Tap wraps a Backend and mirrors every byte the inner backend accepts on a
// playback voice into a file in a storage.FileStore. Mirroring never blocks
// the audio path: bytes go into an overwrite ring that Run drains.
type Tap struct {
	inner Backend
	hooks ControlHooks
	store storage.FileStore
	path  string
	ring  *buffer.RingBuffer[byte]
	log   *slog.Logger
}

// NewTap creates a Tap around inner. Call Run to start writing the dump.
func NewTap(inner Backend, store storage.FileStore, opts TapOptions) *Tap {
	if opts.Path == "" {
		opts.Path = fmt.Sprintf("vsound-%s.pcm", uuid.NewString())
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultTapBuffer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	hooks, _ := inner.(ControlHooks)
	return &Tap{
		inner: inner,
		hooks: hooks,
		store: store,
		path:  opts.Path,
		ring:  buffer.RingN[byte](opts.BufferSize),
		log:   opts.Logger.With("component", "tap", "path", opts.Path),
	}
}

// Path returns the file the dump is written to.
func (t *Tap) Path() string {
	return t.path
}

func (t *Tap) OpenVoice(dir Direction, sampleRate int) (VoiceID, error) {
	return t.inner.OpenVoice(dir, sampleRate)
}

func (t *Tap) SetActive(v VoiceID, on bool) {
	t.inner.SetActive(v, on)
}

// Write forwards p and mirrors the accepted prefix. Only playback voices
// are ever written to.
func (t *Tap) Write(v VoiceID, p []byte) int {
	n := t.inner.Write(v, p)
	if n > 0 {
		t.ring.Write(p[:n])
	}
	return n
}

func (t *Tap) SetVolume(mute bool, left, right uint8) {
	t.inner.SetVolume(mute, left, right)
}

func (t *Tap) CloseVoice(v VoiceID) {
	t.inner.CloseVoice(v)
}

func (t *Tap) SetGuestConnected(on bool) {
	if t.hooks != nil {
		t.hooks.SetGuestConnected(on)
	}
}

func (t *Tap) SetDisabled(disabled bool) {
	if t.hooks != nil {
		t.hooks.SetDisabled(disabled)
	}
}

func (t *Tap) SetStreamState(state uint16) {
	if t.hooks != nil {
		t.hooks.SetStreamState(state)
	}
}

// Dropped returns how many mirrored bytes were lost because the store could
// not keep up.
func (t *Tap) Dropped() int64 {
	return t.ring.Overwritten()
}

// Run writes mirrored audio to the store until Close is called or ctx is
// done, then closes the file.
func (t *Tap) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { t.ring.CloseWrite() })
	defer stop()

	n, err := storage.Put(ctx, t.store, t.path, t.ring)
	if err != nil && !errors.Is(err, io.EOF) {
		t.log.Error("pcm dump failed", "error", err, "bytes", n)
		return fmt.Errorf("hostaudio: tap: %w", err)
	}
	t.log.Info("pcm dump closed", "bytes", n, "dropped", t.Dropped())
	return nil
}

// Close stops mirroring. Run drains what is buffered and returns.
func (t *Tap) Close() error {
	return t.ring.CloseWrite()
}

var (
	_ Backend      = (*Tap)(nil)
	_ ControlHooks = (*Tap)(nil)
)
