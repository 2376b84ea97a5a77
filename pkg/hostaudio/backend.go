// Package hostaudio defines the host side of a virtual sound card: the
// Backend a device pushes PCM into and the optional ControlHooks it reports
// guest control events to.
//
// Voices are always 2-channel signed 16-bit little-endian PCM at the rate
// passed to OpenVoice.
package hostaudio

import "fmt"

const (
	// VoiceChannels is the channel count of every voice.
	VoiceChannels = 2
	// VoiceBitsPerSample is the sample depth of every voice.
	VoiceBitsPerSample = 16
)

// Direction identifies a voice's role.
type Direction int

const (
	// Playback carries guest audio to the host output.
	Playback Direction = iota
	// Record carries host line-in to the guest.
	Record
	// Capture carries the host microphone to the guest.
	Capture
)

// Directions lists every direction in voice reset order.
var Directions = [...]Direction{Record, Playback, Capture}

func (d Direction) String() string {
	switch d {
	case Playback:
		return "playback"
	case Record:
		return "record"
	case Capture:
		return "capture"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// VoiceID is an opaque handle returned by Backend.OpenVoice.
type VoiceID uint32

// Backend is a host audio driver.
//
// Write is called from the audio tick goroutine; every other method is
// called from the control goroutine. Implementations that share state
// between the two must synchronize it themselves.
type Backend interface {
	// OpenVoice opens a voice for dir at sampleRate frames per second.
	OpenVoice(dir Direction, sampleRate int) (VoiceID, error)

	// SetActive starts or stops a voice.
	SetActive(v VoiceID, on bool)

	// Write offers p to a playback voice and returns how many bytes were
	// accepted. Zero means the backend cannot take more right now.
	Write(v VoiceID, p []byte) int

	// SetVolume applies mute and per-channel volume (0..255) to output.
	SetVolume(mute bool, left, right uint8)

	// CloseVoice releases a voice. Closing an unknown voice is a no-op.
	CloseVoice(v VoiceID)
}

// ControlHooks is optionally implemented by a Backend that wants to observe
// control events with no audio effect of their own.
type ControlHooks interface {
	SetGuestConnected(on bool)
	SetDisabled(disabled bool)
	SetStreamState(state uint16)
}
