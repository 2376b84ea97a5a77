package vsound

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/haivivi/vsound/pkg/audio/pcm"
	"github.com/haivivi/vsound/pkg/buffer"
	"github.com/haivivi/vsound/pkg/hostaudio"
)

// DefaultRingSize is the default capacity of the playback ring.
const DefaultRingSize = 2 << 20

// Config configures a Device.
type Config struct {
	// ID names the device instance. Defaults to a random UUID.
	ID string

	// RingSize is rounded up to a power of two. Defaults to DefaultRingSize.
	RingSize int

	// Format is the initial guest format. Defaults to pcm.DefaultFormat.
	Format pcm.Format

	// Volume is the initial volume. Defaults to DefaultVolume.
	Volume *Volume

	// OnChange is called with every published snapshot. It runs on the
	// goroutine that caused the change and must not block.
	OnChange func(Snapshot)

	Logger Logger
}

// Device is one virtual sound card instance.
//
// A device has two sides. The transport goroutine delivers guest control
// messages and PCM through HandleControl and HandleData; it is the only
// producer into the ring. The audio goroutine calls Tick; it is the only
// consumer. Everything else may be called from any goroutine.
type Device struct {
	id      string
	backend hostaudio.Backend
	ring    *buffer.SPSC
	ctrl    *Controller
	data    *datapath
	log     Logger
	stats   Stats

	transport atomic.Pointer[attached]
	opened    atomic.Bool
	closed    atomic.Bool
}

type attached struct {
	t Transport
}

// NewDevice creates a device on backend and runs the initial voice reset at
// the configured format's sample rate.
func NewDevice(backend hostaudio.Backend, cfg Config) (*Device, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = DefaultRingSize
	}
	if cfg.Format == (pcm.Format{}) {
		cfg.Format = pcm.DefaultFormat
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, fmt.Errorf("vsound: new device: %w", err)
	}
	vol := DefaultVolume
	if cfg.Volume != nil {
		vol = *cfg.Volume
	}
	if cfg.Logger == nil {
		cfg.Logger = DefaultLogger()
	}

	d := &Device{
		id:      cfg.ID,
		backend: backend,
		ring:    buffer.NewSPSC(cfg.RingSize),
		log:     cfg.Logger,
	}
	d.ctrl = NewController(backend, ControllerOptions{
		Format:   cfg.Format,
		Volume:   vol,
		Reply:    d.send,
		OnChange: cfg.OnChange,
		Logger:   cfg.Logger,
		Stats:    &d.stats,
	})
	d.data = &datapath{
		ring:    d.ring,
		backend: backend,
		ctrl:    d.ctrl,
		log:     cfg.Logger,
		stats:   &d.stats,
	}
	d.ctrl.ResetVoices()
	return d, nil
}

// ID returns the device instance ID.
func (d *Device) ID() string {
	return d.id
}

// Attach connects the transport used for outbound control messages. Only
// one transport may be attached at a time. The returned detach function
// disconnects it again; a guest that was connected is then treated as
// closed.
func (d *Device) Attach(t Transport) (detach func(), err error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	a := &attached{t: t}
	if !d.transport.CompareAndSwap(nil, a) {
		return nil, ErrAttached
	}
	d.log.InfoPrintf("%s: transport attached", d.id)
	return func() {
		if !d.transport.CompareAndSwap(a, nil) {
			return
		}
		d.ctrl.GuestLost()
		d.log.InfoPrintf("%s: transport detached", d.id)
	}, nil
}

func (d *Device) send(msg []byte) error {
	cur := d.transport.Load()
	if cur == nil {
		return ErrNoSlot
	}
	return cur.t.SendControl(msg)
}

// Open runs the host open sequence: it marks the host side connected and
// sends OPEN(1) to the guest. Only the first call has an effect.
func (d *Device) Open() error {
	if d.closed.Load() {
		return ErrClosed
	}
	if !d.opened.CompareAndSwap(false, true) {
		return nil
	}
	d.ctrl.HostOpen()
	d.ctrl.send(Encode(EventOpen, 1))
	return nil
}

// HandleControl applies a batch of guest control messages. A malformed
// message discards the whole batch and the error wraps ErrMalformed.
func (d *Device) HandleControl(batch ...[]byte) error {
	if d.closed.Load() {
		return ErrClosed
	}
	return d.ctrl.Handle(batch...)
}

// HandleData queues guest PCM for playback and returns the bytes queued.
// It must only be called from the transport goroutine.
func (d *Device) HandleData(batch ...[]byte) int {
	if d.closed.Load() {
		return 0
	}
	return d.data.produce(batch...)
}

// Tick drains up to budget bytes for dir into the backend and returns the
// bytes written. Record and capture return ErrCaptureNotImplemented. It must
// only be called from the audio goroutine.
func (d *Device) Tick(dir hostaudio.Direction, budget int) (int, error) {
	if d.closed.Load() {
		return 0, ErrClosed
	}
	return d.data.tick(dir, budget)
}

// Snapshot returns a copy of the current control state.
func (d *Device) Snapshot() Snapshot {
	return *d.ctrl.Snapshot()
}

// Stats returns the counters together with the ring fill level.
func (d *Device) Stats() StatsSnapshot {
	s := d.stats.Snapshot()
	s.RingUsed = d.ring.Len()
	s.RingSize = d.ring.Cap()
	return s
}

// Reset reruns the voice reset at the current sample rate.
func (d *Device) Reset() error {
	if d.closed.Load() {
		return ErrClosed
	}
	return d.ctrl.ResetVoices()
}

// Close closes every voice. The caller must stop calling Tick (stop the
// Pump) before Close so the audio goroutine never writes to a closed voice.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.ctrl.Close()
	d.transport.Store(nil)
	d.log.InfoPrintf("%s: closed", d.id)
	return nil
}
