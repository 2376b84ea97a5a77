package hostaudio

import (
	"fmt"
	"sync"
)

// MemoryVoice is the recorded state of one voice opened on a Memory backend.
type MemoryVoice struct {
	ID     VoiceID
	Dir    Direction
	Rate   int
	Active bool
	Closed bool
	Data   []byte
}

// Volume is a mute flag plus a left/right pair on the 0..255 scale.
type Volume struct {
	Mute        bool
	Left, Right uint8
}

// Memory is a Backend that keeps everything in memory: voices, the bytes
// written to them, the last volume and every control hook call. Tests use it
// to observe a device; it also implements ControlHooks.
//
// By default Write accepts everything offered to an active, open voice.
// SetWriteLimit caps the bytes accepted per call.
type Memory struct {
	mu     sync.Mutex
	next   VoiceID
	voices map[VoiceID]*MemoryVoice
	order  []VoiceID
	limit  int
	budget int

	volume    Volume
	volumeSet int

	guestConnected bool
	disabled       bool
	streamState    uint16
	events         []string
}

// NewMemory creates an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{
		voices: make(map[VoiceID]*MemoryVoice),
		limit:  -1,
		budget: -1,
	}
}

// SetWriteLimit caps the bytes accepted per Write call; n < 0 removes the cap
// and n == 0 makes every Write stall.
func (m *Memory) SetWriteLimit(n int) {
	m.mu.Lock()
	m.limit = n
	m.mu.Unlock()
}

// SetBudget caps the total bytes accepted across all future Write calls until
// the next SetBudget; n < 0 removes the cap.
func (m *Memory) SetBudget(n int) {
	m.mu.Lock()
	m.budget = n
	m.mu.Unlock()
}

func (m *Memory) OpenVoice(dir Direction, sampleRate int) (VoiceID, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("hostaudio: invalid sample rate %d", sampleRate)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.voices[m.next] = &MemoryVoice{ID: m.next, Dir: dir, Rate: sampleRate}
	m.order = append(m.order, m.next)
	m.events = append(m.events, fmt.Sprintf("open %s %d", dir, sampleRate))
	return m.next, nil
}

func (m *Memory) SetActive(v VoiceID, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mv, ok := m.voices[v]; ok {
		mv.Active = on
		m.events = append(m.events, fmt.Sprintf("active %s %t", mv.Dir, on))
	}
}

func (m *Memory) Write(v VoiceID, p []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv, ok := m.voices[v]
	if !ok || mv.Closed || !mv.Active {
		return 0
	}
	n := len(p)
	if m.limit >= 0 {
		n = min(n, m.limit)
	}
	if m.budget >= 0 {
		n = min(n, m.budget)
		m.budget -= n
	}
	mv.Data = append(mv.Data, p[:n]...)
	return n
}

func (m *Memory) SetVolume(mute bool, left, right uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = Volume{Mute: mute, Left: left, Right: right}
	m.volumeSet++
	m.events = append(m.events, fmt.Sprintf("volume %t %d %d", mute, left, right))
}

func (m *Memory) CloseVoice(v VoiceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mv, ok := m.voices[v]; ok && !mv.Closed {
		mv.Closed = true
		mv.Active = false
		m.events = append(m.events, fmt.Sprintf("close %s", mv.Dir))
	}
}

func (m *Memory) SetGuestConnected(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guestConnected = on
	m.events = append(m.events, fmt.Sprintf("guest %t", on))
}

func (m *Memory) SetDisabled(disabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disabled = disabled
	m.events = append(m.events, fmt.Sprintf("disabled %t", disabled))
}

func (m *Memory) SetStreamState(state uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamState = state
	m.events = append(m.events, fmt.Sprintf("state %d", state))
}

// Voices returns copies of every voice ever opened, oldest first.
func (m *Memory) Voices() []MemoryVoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MemoryVoice, 0, len(m.order))
	for _, id := range m.order {
		mv := *m.voices[id]
		mv.Data = append([]byte(nil), mv.Data...)
		out = append(out, mv)
	}
	return out
}

// Open returns the open voices for dir, oldest first.
func (m *Memory) Open(dir Direction) []MemoryVoice {
	var out []MemoryVoice
	for _, v := range m.Voices() {
		if v.Dir == dir && !v.Closed {
			out = append(out, v)
		}
	}
	return out
}

// Played returns every byte accepted on playback voices, in order.
func (m *Memory) Played() []byte {
	var out []byte
	for _, v := range m.Voices() {
		if v.Dir == Playback {
			out = append(out, v.Data...)
		}
	}
	return out
}

// Volume returns the last volume and how many times SetVolume was called.
func (m *Memory) Volume() (Volume, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume, m.volumeSet
}

// GuestConnected returns the last SetGuestConnected value.
func (m *Memory) GuestConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guestConnected
}

// Disabled returns the last SetDisabled value.
func (m *Memory) Disabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disabled
}

// StreamState returns the last SetStreamState value.
func (m *Memory) StreamState() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamState
}

// Events returns a log of every call in the form "open playback 48000",
// "active playback true", "volume false 64 64", "guest true" and so on.
func (m *Memory) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

// ResetEvents clears the call log.
func (m *Memory) ResetEvents() {
	m.mu.Lock()
	m.events = nil
	m.mu.Unlock()
}

var (
	_ Backend      = (*Memory)(nil)
	_ ControlHooks = (*Memory)(nil)
)
