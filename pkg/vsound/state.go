package vsound

import (
	"fmt"

	"github.com/haivivi/vsound/pkg/audio/pcm"
	"github.com/haivivi/vsound/pkg/hostaudio"
)

// State is the control-protocol state of a device.
type State int

const (
	StateIdle State = iota
	StateReady
	StateOpen
	StateClosed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = StateIdle
	case "ready":
		*s = StateReady
	case "open":
		*s = StateOpen
	case "closed":
		*s = StateClosed
	default:
		return fmt.Errorf("vsound: unknown state %q", b)
	}
	return nil
}

// Volume is the host-side volume: a mute flag and a left/right pair on the
// 0..255 scale.
type Volume struct {
	Mute  bool  `json:"mute" yaml:"mute" msgpack:"mute"`
	Left  uint8 `json:"left" yaml:"left" msgpack:"left"`
	Right uint8 `json:"right" yaml:"right" msgpack:"right"`
}

// DefaultVolume is the volume a device starts with.
var DefaultVolume = Volume{Left: 64, Right: 64}

// Snapshot is an immutable view of a device's control state. A new Snapshot
// is published after every change, so readers never see a torn format or
// volume.
type Snapshot struct {
	State          State      `json:"state" yaml:"state"`
	Format         pcm.Format `json:"format" yaml:"format"`
	Volume         Volume     `json:"volume" yaml:"volume"`
	GuestConnected bool       `json:"guest_connected" yaml:"guest_connected"`
	HostConnected  bool       `json:"host_connected" yaml:"host_connected"`
	Disabled       bool       `json:"disabled" yaml:"disabled"`
	StreamState    uint16     `json:"stream_state" yaml:"stream_state"`

	// Playback is the voice the data path drains into; zero when no
	// playback voice is open.
	Playback hostaudio.VoiceID `json:"-" yaml:"-"`
}

// Live reports whether both sides are connected.
func (s *Snapshot) Live() bool {
	return s.GuestConnected && s.HostConnected
}

// VoiceFormat is the format of the host voices: always 2-channel S16 at the
// negotiated rate.
func (s *Snapshot) VoiceFormat() pcm.Format {
	return voiceFormat(int(s.Format.SampleRate))
}

func voiceFormat(rate int) pcm.Format {
	return pcm.Format{
		Channels:       hostaudio.VoiceChannels,
		BitsPerSample:  hostaudio.VoiceBitsPerSample,
		SampleRate:     uint32(rate),
		AvgBytesPerSec: uint32(rate * hostaudio.VoiceChannels * hostaudio.VoiceBitsPerSample / 8),
	}
}
