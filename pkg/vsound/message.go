package vsound

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/haivivi/vsound/pkg/audio/pcm"
)

const (
	// HeaderSize is the size of the {event, value} header.
	HeaderSize = 4
	// FormatPayloadSize is the size of the SET_FORMAT payload.
	FormatPayloadSize = 12
	// VolumePayloadSize is the size of the SET_VOLUME payload.
	VolumePayloadSize = 4
)

// ErrMalformed is returned for control messages that are too short or whose
// payload has the wrong length.
var ErrMalformed = errors.New("vsound: malformed control message")

// Message is a decoded control message. Format is set only for SET_FORMAT
// and Volume only for SET_VOLUME, and only when the payload was present.
type Message struct {
	Event  Event
	Value  uint16
	Format *pcm.Format
	Volume *int32
}

func (m *Message) String() string {
	switch {
	case m.Format != nil:
		return fmt.Sprintf("%s(%d, %s)", m.Event, m.Value, m.Format)
	case m.Volume != nil:
		return fmt.Sprintf("%s(%d, %d)", m.Event, m.Value, *m.Volume)
	}
	return fmt.Sprintf("%s(%d)", m.Event, m.Value)
}

// Decode parses one control message.
//
// The buffer must hold at least the 4-byte header. SET_FORMAT and
// SET_VOLUME may be followed by exactly their payload; a header-only message
// decodes without a payload and any other length is ErrMalformed. Trailing
// bytes after every other event are ignored.
func Decode(buf []byte) (*Message, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrMalformed, len(buf), HeaderSize)
	}
	m := &Message{
		Event: Event(binary.LittleEndian.Uint16(buf[0:])),
		Value: binary.LittleEndian.Uint16(buf[2:]),
	}
	payload := buf[HeaderSize:]

	switch m.Event {
	case EventSetFormat:
		switch len(payload) {
		case 0:
		case FormatPayloadSize:
			m.Format = &pcm.Format{
				Channels:       binary.LittleEndian.Uint16(payload[0:]),
				BitsPerSample:  binary.LittleEndian.Uint16(payload[2:]),
				SampleRate:     binary.LittleEndian.Uint32(payload[4:]),
				AvgBytesPerSec: binary.LittleEndian.Uint32(payload[8:]),
			}
		default:
			return nil, fmt.Errorf("%w: %s payload is %d bytes, want %d", ErrMalformed, m.Event, len(payload), FormatPayloadSize)
		}
	case EventSetVolume:
		switch len(payload) {
		case 0:
		case VolumePayloadSize:
			v := int32(binary.LittleEndian.Uint32(payload))
			m.Volume = &v
		default:
			return nil, fmt.Errorf("%w: %s payload is %d bytes, want %d", ErrMalformed, m.Event, len(payload), VolumePayloadSize)
		}
	}
	return m, nil
}

// Encode returns the 4-byte header for event and value. Outbound replies
// never carry a payload.
func Encode(event Event, value uint16) []byte {
	return AppendHeader(make([]byte, 0, HeaderSize), event, value)
}

// AppendHeader appends an {event, value} header to dst.
func AppendHeader(dst []byte, event Event, value uint16) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, uint16(event))
	return binary.LittleEndian.AppendUint16(dst, value)
}

// AppendFormat appends the 12-byte SET_FORMAT payload for f to dst.
func AppendFormat(dst []byte, f pcm.Format) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, f.Channels)
	dst = binary.LittleEndian.AppendUint16(dst, f.BitsPerSample)
	dst = binary.LittleEndian.AppendUint32(dst, f.SampleRate)
	return binary.LittleEndian.AppendUint32(dst, f.AvgBytesPerSec)
}

// EncodeSetFormat builds a complete SET_FORMAT message.
func EncodeSetFormat(f pcm.Format) []byte {
	buf := make([]byte, 0, HeaderSize+FormatPayloadSize)
	return AppendFormat(AppendHeader(buf, EventSetFormat, 0), f)
}

// EncodeSetVolume builds a complete SET_VOLUME message.
func EncodeSetVolume(v int32) []byte {
	buf := make([]byte, 0, HeaderSize+VolumePayloadSize)
	return binary.LittleEndian.AppendUint32(AppendHeader(buf, EventSetVolume, 0), uint32(v))
}
