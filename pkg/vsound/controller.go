package vsound

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/haivivi/vsound/pkg/audio/pcm"
	"github.com/haivivi/vsound/pkg/hostaudio"
)

// Controller is the control-message state machine of a device. It turns
// decoded guest messages into backend calls and state changes, and publishes
// every change as a new Snapshot.
//
// Handle is meant to be driven by a single transport goroutine; the mutex
// only serializes it against host-side calls such as HostOpen and Close.
type Controller struct {
	backend hostaudio.Backend
	hooks   hostaudio.ControlHooks
	reply   func([]byte) error
	log     Logger
	stats   *Stats

	onChange func(Snapshot)

	mu     sync.Mutex
	closed bool
	voices [len(hostaudio.Directions)]hostaudio.VoiceID
	snap   atomic.Pointer[Snapshot]
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	// Format and Volume seed the initial snapshot.
	Format pcm.Format
	Volume Volume

	// Reply sends an outbound control message to the guest.
	Reply func([]byte) error

	// OnChange is called with every published snapshot. It must not block.
	OnChange func(Snapshot)

	Logger Logger
	Stats  *Stats
}

// NewController creates a Controller. ControlHooks are discovered on backend
// once, here.
func NewController(backend hostaudio.Backend, opts ControllerOptions) *Controller {
	if opts.Logger == nil {
		opts.Logger = DefaultLogger()
	}
	if opts.Stats == nil {
		opts.Stats = new(Stats)
	}
	if opts.Reply == nil {
		opts.Reply = func([]byte) error { return ErrNoSlot }
	}
	hooks, _ := backend.(hostaudio.ControlHooks)
	c := &Controller{
		backend:  backend,
		hooks:    hooks,
		reply:    opts.Reply,
		log:      opts.Logger,
		stats:    opts.Stats,
		onChange: opts.OnChange,
	}
	c.snap.Store(&Snapshot{
		State:  StateIdle,
		Format: opts.Format,
		Volume: opts.Volume,
	})
	return c
}

// Snapshot returns the current snapshot. The result must not be modified.
func (c *Controller) Snapshot() *Snapshot {
	return c.snap.Load()
}

// publish copies the current snapshot, applies fn and stores the result.
func (c *Controller) publish(fn func(s *Snapshot)) {
	next := *c.snap.Load()
	fn(&next)
	c.snap.Store(&next)
	if c.onChange != nil {
		c.onChange(next)
	}
}

// Handle decodes and applies a batch of control messages. If any message in
// the batch is malformed the whole batch is dropped: no state changes and no
// replies. After Close it returns ErrClosed.
func (c *Controller) Handle(batch ...[]byte) error {
	msgs := make([]*Message, 0, len(batch))
	for _, raw := range batch {
		m, err := Decode(raw)
		if err == nil {
			err = validate(m)
		}
		if err != nil {
			c.stats.Malformed.Add(1)
			c.log.WarnPrintf("drop control batch of %d: %v", len(batch), err)
			return err
		}
		msgs = append(msgs, m)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	for _, m := range msgs {
		c.stats.ControlMessages.Add(1)
		c.apply(m)
	}
	return nil
}

// validate rejects messages whose payload is missing or unusable.
func validate(m *Message) error {
	switch m.Event {
	case EventSetFormat:
		if m.Format == nil {
			return fmt.Errorf("%w: %s without payload", ErrMalformed, m.Event)
		}
		if err := m.Format.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformed, m.Event, err)
		}
	case EventSetVolume:
		if m.Volume == nil {
			return fmt.Errorf("%w: %s without payload", ErrMalformed, m.Event)
		}
	}
	return nil
}

func (c *Controller) apply(m *Message) {
	c.log.DebugPrintf("control %s", m)

	switch m.Event {
	case EventReady:
		if m.Value == 0 {
			c.stats.GuestInitFailures.Add(1)
			c.log.ErrorPrintf("guest init failure: READY(0)")
			return
		}
		c.publish(func(s *Snapshot) { s.State = StateReady })
		c.send(Encode(EventOpen, 1))

	case EventOpen:
		c.setGuestConnected(m.Value != 0)

	case EventClose:
		c.log.DebugPrintf("CLOSE ignored")

	case EventEnable:
		c.setDisabled(false)

	case EventDisable:
		c.setDisabled(m.Value != 0)

	case EventSetFormat:
		f := *m.Format
		c.publish(func(s *Snapshot) { s.Format = f })
		c.log.InfoPrintf("format %s", f)
		c.resetVoicesLocked()

	case EventSetState:
		c.publish(func(s *Snapshot) { s.StreamState = m.Value })
		if c.hooks != nil {
			c.hooks.SetStreamState(m.Value)
		}

	case EventSetVolume:
		vol := HostVolume(*m.Volume)
		c.publish(func(s *Snapshot) {
			s.Volume.Left = vol
			s.Volume.Right = vol
		})
		c.applyVolume()

	case EventSetMute:
		c.publish(func(s *Snapshot) { s.Volume.Mute = m.Value != 0 })
		c.applyVolume()

	case EventGetMute:
		c.log.DebugPrintf("GET_MUTE ignored")

	default:
		c.stats.UnknownEvents.Add(1)
		c.log.DebugPrintf("unknown event %d ignored", uint16(m.Event))
	}
}

func (c *Controller) send(msg []byte) {
	if err := c.reply(msg); err != nil {
		c.stats.RepliesDropped.Add(1)
		c.log.DebugPrintf("reply dropped: %v", err)
		return
	}
	c.stats.RepliesSent.Add(1)
}

func (c *Controller) setGuestConnected(on bool) {
	c.publish(func(s *Snapshot) {
		s.GuestConnected = on
		if on {
			s.State = StateOpen
		} else {
			s.State = StateClosed
		}
	})
	if c.hooks != nil {
		c.hooks.SetGuestConnected(on)
	}
}

func (c *Controller) setDisabled(disabled bool) {
	c.publish(func(s *Snapshot) { s.Disabled = disabled })
	if c.hooks != nil {
		c.hooks.SetDisabled(disabled)
	}
}

func (c *Controller) applyVolume() {
	v := c.snap.Load().Volume
	c.backend.SetVolume(v.Mute, v.Left, v.Right)
}

// ResetVoices closes every voice and reopens them at the current sample
// rate: all inactive, then playback activated and the volume re-applied.
// After Close it opens nothing and returns ErrClosed.
func (c *Controller) ResetVoices() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.resetVoicesLocked()
	return nil
}

func (c *Controller) resetVoicesLocked() {
	// Stop the data path from using the old playback voice first.
	c.publish(func(s *Snapshot) { s.Playback = 0 })
	c.closeVoicesLocked()

	rate := int(c.snap.Load().Format.SampleRate)
	var errs []error
	for _, dir := range hostaudio.Directions {
		v, err := c.backend.OpenVoice(dir, rate)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", dir, err))
			continue
		}
		c.backend.SetActive(v, false)
		c.voices[dir] = v
	}
	if err := errors.Join(errs...); err != nil {
		c.log.ErrorPrintf("voice reset at %d Hz: %v", rate, err)
	}

	playback := c.voices[hostaudio.Playback]
	if playback != 0 {
		c.backend.SetActive(playback, true)
	}
	c.applyVolume()
	c.publish(func(s *Snapshot) { s.Playback = playback })
	c.stats.VoiceResets.Add(1)
}

func (c *Controller) closeVoicesLocked() {
	for _, dir := range hostaudio.Directions {
		if v := c.voices[dir]; v != 0 {
			c.backend.CloseVoice(v)
			c.voices[dir] = 0
		}
	}
}

// HostOpen marks the host side connected. It reports whether this call
// changed the flag.
func (c *Controller) HostOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.snap.Load().HostConnected {
		return false
	}
	c.publish(func(s *Snapshot) { s.HostConnected = true })
	return true
}

// GuestLost handles the transport going away as if the guest sent OPEN(0).
func (c *Controller) GuestLost() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap.Load().GuestConnected {
		c.setGuestConnected(false)
	}
}

// Close closes every voice and marks the host side disconnected. Later
// control batches and voice resets are refused, so no voice is reopened.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.publish(func(s *Snapshot) {
		s.Playback = 0
		s.HostConnected = false
	})
	c.closeVoicesLocked()
}
