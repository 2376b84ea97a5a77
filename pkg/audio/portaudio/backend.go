package portaudio

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haivivi/vsound/pkg/audio/pcm"
	"github.com/haivivi/vsound/pkg/hostaudio"
)

// Backend plays the playback voice on the default output device. Volume is
// applied in software. Record and capture voices are bookkeeping only: they
// open and close but no input stream is attached.
type Backend struct {
	latency time.Duration
	log     *slog.Logger

	mu     sync.Mutex
	next   hostaudio.VoiceID
	voices map[hostaudio.VoiceID]*voice

	volume  atomic.Pointer[hostaudio.Volume]
	scratch []byte
}

type voice struct {
	dir    hostaudio.Direction
	stream *Stream
	active bool
}

// NewBackend creates a Backend whose output streams buffer roughly latency
// of audio per PortAudio buffer. Zero picks 10ms.
func NewBackend(latency time.Duration, logger *slog.Logger) (*Backend, error) {
	if err := Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	if latency <= 0 {
		latency = 10 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{
		latency: latency,
		log:     logger.With("component", "portaudio"),
		voices:  make(map[hostaudio.VoiceID]*voice),
	}
	b.volume.Store(&hostaudio.Volume{Left: 255, Right: 255})
	return b, nil
}

func (b *Backend) OpenVoice(dir hostaudio.Direction, sampleRate int) (hostaudio.VoiceID, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("portaudio: invalid sample rate %d", sampleRate)
	}
	v := &voice{dir: dir}
	if dir == hostaudio.Playback {
		f := pcm.Format{Channels: hostaudio.VoiceChannels, BitsPerSample: hostaudio.VoiceBitsPerSample, SampleRate: uint32(sampleRate)}
		s, err := openOutput(hostaudio.VoiceChannels, float64(sampleRate), int(f.SamplesInDuration(b.latency)))
		if err != nil {
			return 0, err
		}
		v.stream = s
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.voices[b.next] = v
	return b.next, nil
}

func (b *Backend) SetActive(id hostaudio.VoiceID, on bool) {
	b.mu.Lock()
	v, ok := b.voices[id]
	if ok {
		v.active = on
	}
	b.mu.Unlock()
	if !ok || v.stream == nil {
		return
	}
	var err error
	if on {
		err = v.stream.Start()
	} else {
		err = v.stream.Stop()
	}
	if err != nil {
		b.log.Debug("set active", "dir", v.dir, "on", on, "error", err)
	}
}

// Write accepts as many whole frames as the device can take without blocking.
func (b *Backend) Write(id hostaudio.VoiceID, p []byte) int {
	b.mu.Lock()
	v, ok := b.voices[id]
	active := ok && v.active
	b.mu.Unlock()
	if !active || v.stream == nil {
		return 0
	}

	frames := min(len(p)/v.stream.frameSize, v.stream.WriteAvailable())
	if frames == 0 {
		return 0
	}
	n := frames * v.stream.frameSize
	if cap(b.scratch) < n {
		b.scratch = make([]byte, n)
	}
	buf := b.scratch[:n]
	vol := b.volume.Load()
	pcm.ApplyVolume(buf, p[:n], vol.Mute, vol.Left, vol.Right)

	written, err := v.stream.WriteBytes(buf)
	if err != nil {
		b.log.Debug("write", "error", err)
	}
	return written
}

func (b *Backend) SetVolume(mute bool, left, right uint8) {
	b.volume.Store(&hostaudio.Volume{Mute: mute, Left: left, Right: right})
}

func (b *Backend) CloseVoice(id hostaudio.VoiceID) {
	b.mu.Lock()
	v, ok := b.voices[id]
	delete(b.voices, id)
	b.mu.Unlock()
	if ok && v.stream != nil {
		if err := v.stream.Close(); err != nil {
			b.log.Warn("close voice", "dir", v.dir, "error", err)
		}
	}
}

// Close closes every open voice.
func (b *Backend) Close() error {
	b.mu.Lock()
	ids := make([]hostaudio.VoiceID, 0, len(b.voices))
	for id := range b.voices {
		ids = append(ids, id)
	}
	b.mu.Unlock()
	for _, id := range ids {
		b.CloseVoice(id)
	}
	return nil
}

var _ hostaudio.Backend = (*Backend)(nil)
