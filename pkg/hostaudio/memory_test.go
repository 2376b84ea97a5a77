package hostaudio

import (
	"bytes"
	"slices"
	"testing"
)

func TestMemoryBackend(t *testing.T) {
	m := NewMemory()
	v, err := m.OpenVoice(Playback, 48000)
	if err != nil {
		t.Fatal(err)
	}

	if n := m.Write(v, []byte{1, 2}); n != 0 {
		t.Errorf("inactive voice accepted %d bytes", n)
	}
	m.SetActive(v, true)
	if n := m.Write(v, []byte{1, 2, 3, 4}); n != 4 {
		t.Errorf("Write=%d", n)
	}

	m.SetWriteLimit(3)
	if n := m.Write(v, []byte{5, 6, 7, 8}); n != 3 {
		t.Errorf("limited Write=%d", n)
	}
	m.SetWriteLimit(-1)
	m.SetBudget(2)
	if n := m.Write(v, []byte{9, 9, 9}); n != 2 {
		t.Errorf("budget Write=%d", n)
	}
	if n := m.Write(v, []byte{9}); n != 0 {
		t.Errorf("exhausted budget Write=%d", n)
	}
	m.SetBudget(-1)

	if got := m.Played(); !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6, 7, 9, 9}) {
		t.Errorf("Played=%v", got)
	}

	m.SetVolume(true, 10, 20)
	if vol, calls := m.Volume(); vol != (Volume{Mute: true, Left: 10, Right: 20}) || calls != 1 {
		t.Errorf("Volume=%+v calls=%d", vol, calls)
	}

	m.CloseVoice(v)
	if n := m.Write(v, []byte{1}); n != 0 {
		t.Errorf("closed voice accepted %d", n)
	}
	if open := m.Open(Playback); len(open) != 0 {
		t.Errorf("Open=%v", open)
	}

	want := []string{
		"open playback 48000",
		"active playback true",
		"volume true 10 20",
		"close playback",
	}
	if got := m.Events(); !slices.Equal(got, want) {
		t.Errorf("Events=%q", got)
	}
}

func TestMemoryRejectsBadRate(t *testing.T) {
	if _, err := NewMemory().OpenVoice(Playback, 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestDiscard(t *testing.T) {
	var d Discard
	v1, _ := d.OpenVoice(Playback, 48000)
	v2, _ := d.OpenVoice(Record, 48000)
	if v1 == v2 {
		t.Error("voice ids collide")
	}
	if n := d.Write(v1, make([]byte, 100)); n != 100 {
		t.Errorf("Write=%d", n)
	}
	if d.Written() != 100 {
		t.Errorf("Written=%d", d.Written())
	}
}

func TestDirectionString(t *testing.T) {
	for d, want := range map[Direction]string{
		Playback:     "playback",
		Record:       "record",
		Capture:      "capture",
		Direction(7): "Direction(7)",
	} {
		if got := d.String(); got != want {
			t.Errorf("%d: %q", int(d), got)
		}
	}
}
