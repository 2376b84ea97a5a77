package hostaudio

import "sync/atomic"

// Discard is a Backend that accepts and drops everything written to it.
// It is useful for running a device without audio hardware.
type Discard struct {
	next    atomic.Uint32
	written atomic.Int64
}

func (d *Discard) OpenVoice(Direction, int) (VoiceID, error) {
	return VoiceID(d.next.Add(1)), nil
}

func (d *Discard) SetActive(VoiceID, bool) {}

func (d *Discard) Write(_ VoiceID, p []byte) int {
	d.written.Add(int64(len(p)))
	return len(p)
}

func (d *Discard) SetVolume(bool, uint8, uint8) {}

func (d *Discard) CloseVoice(VoiceID) {}

// Written returns the total number of bytes dropped.
func (d *Discard) Written() int64 {
	return d.written.Load()
}

var _ Backend = (*Discard)(nil)
