package hostaudio

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haivivi/vsound/pkg/audio/pcm"
	"github.com/pion/rtp"
)

// DefaultRTPPayloadType is the dynamic payload type used for L16 audio.
const DefaultRTPPayloadType = 96

// RTPOptions configures an RTP backend.
type RTPOptions struct {
	// PayloadType defaults to DefaultRTPPayloadType.
	PayloadType uint8
	// SSRC defaults to a random value.
	SSRC uint32
	// PacketDuration is the audio carried per packet. Defaults to 5ms.
	PacketDuration time.Duration
	Logger         *slog.Logger
}

// RTP is a Backend that streams playback audio as RTP L16 (big-endian,
// RFC 3551) over a connected UDP socket. Volume is applied in software.
// Record and capture voices open successfully but never carry data.
type RTP struct {
	conn   net.Conn
	pt     uint8
	ssrc   uint32
	pktDur time.Duration
	log    *slog.Logger
	seq    rtp.Sequencer

	mu     sync.Mutex
	voices map[VoiceID]*rtpVoice
	next   VoiceID
	volume atomic.Pointer[Volume]

	packets atomic.Int64
	errors  atomic.Int64
}

type rtpVoice struct {
	dir     Direction
	rate    int
	active  bool
	ts      uint32
	pending []byte
	scratch []byte
}

// DialRTP connects a UDP socket to addr and wraps it in an RTP backend.
func DialRTP(addr string, opts RTPOptions) (*RTP, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("hostaudio: dial rtp %s: %w", addr, err)
	}
	return NewRTP(conn, opts), nil
}

// NewRTP creates an RTP backend writing to conn.
func NewRTP(conn net.Conn, opts RTPOptions) *RTP {
	if opts.PayloadType == 0 {
		opts.PayloadType = DefaultRTPPayloadType
	}
	if opts.SSRC == 0 {
		opts.SSRC = rand.Uint32()
	}
	if opts.PacketDuration <= 0 {
		opts.PacketDuration = 5 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := &RTP{
		conn:   conn,
		pt:     opts.PayloadType,
		ssrc:   opts.SSRC,
		pktDur: opts.PacketDuration,
		log:    opts.Logger.With("component", "rtp"),
		seq:    rtp.NewRandomSequencer(),
		voices: make(map[VoiceID]*rtpVoice),
	}
	r.volume.Store(&Volume{Left: 255, Right: 255})
	return r
}

func (r *RTP) OpenVoice(dir Direction, sampleRate int) (VoiceID, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("hostaudio: invalid sample rate %d", sampleRate)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.voices[r.next] = &rtpVoice{dir: dir, rate: sampleRate, ts: rand.Uint32()}
	return r.next, nil
}

func (r *RTP) SetActive(v VoiceID, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rv, ok := r.voices[v]; ok {
		rv.active = on
		if !on {
			rv.pending = rv.pending[:0]
		}
	}
}

func (r *RTP) format(rv *rtpVoice) pcm.Format {
	return pcm.Format{Channels: VoiceChannels, BitsPerSample: VoiceBitsPerSample, SampleRate: uint32(rv.rate)}
}

// Write accepts all of p for an active playback voice and sends every full
// packet it can form. A partial packet waits for the next Write.
func (r *RTP) Write(v VoiceID, p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.voices[v]
	if !ok || !rv.active || rv.dir != Playback {
		return 0
	}
	f := r.format(rv)
	size := int(f.BytesInDuration(r.pktDur))
	if size <= 0 {
		size = f.FrameSize()
	}

	buf := append(rv.pending, p...)
	vol := r.volume.Load()
	off := 0
	for len(buf)-off >= size {
		r.send(rv, buf[off:off+size], vol, uint32(size/f.FrameSize()))
		off += size
	}
	rv.pending = buf[:copy(buf, buf[off:])]
	return len(p)
}

func (r *RTP) send(rv *rtpVoice, le []byte, vol *Volume, frames uint32) {
	if cap(rv.scratch) < len(le) {
		rv.scratch = make([]byte, len(le))
	}
	payload := rv.scratch[:len(le)]
	pcm.ApplyVolume(payload, le, vol.Mute, vol.Left, vol.Right)
	for i := 0; i+1 < len(payload); i += 2 {
		binary.BigEndian.PutUint16(payload[i:], binary.LittleEndian.Uint16(payload[i:]))
	}

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    r.pt,
			SequenceNumber: r.seq.NextSequenceNumber(),
			Timestamp:      rv.ts,
			SSRC:           r.ssrc,
		},
		Payload: payload,
	}
	rv.ts += frames

	raw, err := pkt.Marshal()
	if err == nil {
		_, err = r.conn.Write(raw)
	}
	if err != nil {
		if r.errors.Add(1) == 1 {
			r.log.Warn("rtp send failed", "error", err)
		}
		return
	}
	r.packets.Add(1)
}

func (r *RTP) SetVolume(mute bool, left, right uint8) {
	r.volume.Store(&Volume{Mute: mute, Left: left, Right: right})
}

func (r *RTP) CloseVoice(v VoiceID) {
	r.mu.Lock()
	delete(r.voices, v)
	r.mu.Unlock()
}

// Packets returns the number of packets sent.
func (r *RTP) Packets() int64 {
	return r.packets.Load()
}

// Close closes the underlying socket.
func (r *RTP) Close() error {
	return r.conn.Close()
}

var _ Backend = (*RTP)(nil)
