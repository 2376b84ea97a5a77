package pcm

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Format describes interleaved signed little-endian PCM as negotiated by a
// guest: channel count, bits per sample, frames per second and the advisory
// average byte rate the guest reported.
//
// Format is a value type; a new format replaces the old one wholesale.
type Format struct {
	Channels       uint16 `json:"channels" yaml:"channels" msgpack:"channels"`
	BitsPerSample  uint16 `json:"bits_per_sample" yaml:"bits_per_sample" msgpack:"bits_per_sample"`
	SampleRate     uint32 `json:"sample_rate" yaml:"sample_rate" msgpack:"sample_rate"`
	AvgBytesPerSec uint32 `json:"avg_bytes_per_sec" yaml:"avg_bytes_per_sec" msgpack:"avg_bytes_per_sec"`
}

// DefaultFormat is the format a device starts with before the guest sends
// SET_FORMAT.
var DefaultFormat = Format{
	Channels:       2,
	BitsPerSample:  16,
	SampleRate:     48000,
	AvgBytesPerSec: 19200,
}

// ErrInvalidFormat is returned by Validate.
var ErrInvalidFormat = errors.New("pcm: invalid format")

// Validate reports whether the format can describe audio at all: channels,
// bits and rate must be non-zero and bits must be a multiple of 8.
func (f Format) Validate() error {
	switch {
	case f.Channels == 0:
		return fmt.Errorf("%w: zero channels", ErrInvalidFormat)
	case f.BitsPerSample == 0 || f.BitsPerSample%8 != 0:
		return fmt.Errorf("%w: bits per sample %d", ErrInvalidFormat, f.BitsPerSample)
	case f.SampleRate == 0:
		return fmt.Errorf("%w: zero sample rate", ErrInvalidFormat)
	}
	return nil
}

// FrameSize returns the size in bytes of one frame (one sample for every
// channel).
func (f Format) FrameSize() int {
	return int(f.Channels) * int(f.BitsPerSample) / 8
}

// BytesRate returns the byte rate derived from rate, channels and depth.
// It ignores AvgBytesPerSec, which is only what the guest claimed.
func (f Format) BytesRate() int {
	return int(f.SampleRate) * f.FrameSize()
}

// SamplesInDuration returns the number of frames in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration, always a
// whole number of frames.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * int64(f.FrameSize())
}

// Duration returns the play time of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	fs := int64(f.FrameSize())
	if fs == 0 || f.SampleRate == 0 {
		return 0
	}
	return time.Duration(bytes/fs) * time.Second / time.Duration(f.SampleRate)
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	return fmt.Sprintf("audio/L%d; rate=%d; channels=%d", f.BitsPerSample, f.SampleRate, f.Channels)
}

// Chunk is a chunk of audio data.
type Chunk interface {
	Len() int64
	Format() Format
	WriteTo(w io.Writer) (int64, error)
}

// DataChunk returns a chunk of audio data.
func (f Format) DataChunk(data []byte) Chunk {
	return &DataChunk{
		Data: data,
		fmt:  f,
	}
}

// SilenceChunk returns a silence chunk of the given duration.
func (f Format) SilenceChunk(duration time.Duration) Chunk {
	return &SilenceChunk{
		Duration: duration,
		len:      f.BytesInDuration(duration),
		fmt:      f,
	}
}

// DataChunk is a chunk of audio data.
type DataChunk struct {
	Data []byte
	fmt  Format
}

// Len returns the length of the audio data in bytes.
func (c *DataChunk) Len() int64 {
	return int64(len(c.Data))
}

// Format returns the audio format of this chunk.
func (c *DataChunk) Format() Format {
	return c.fmt
}

// WriteTo writes the audio data to the writer.
func (c *DataChunk) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.Data)
	return int64(n), err
}

// SilenceChunk is a chunk of silence.
type SilenceChunk struct {
	Duration time.Duration
	len      int64
	fmt      Format
}

// Len returns the length of the silence in bytes.
func (c *SilenceChunk) Len() int64 {
	return c.len
}

// Format returns the audio format of this chunk.
func (c *SilenceChunk) Format() Format {
	return c.fmt
}

var emptyBytes [32000]byte

// WriteTo writes silence (zero bytes) to the writer.
func (c *SilenceChunk) WriteTo(w io.Writer) (int64, error) {
	var wn int64
	for tw := c.len; tw > 0; {
		silence := emptyBytes[:min(tw, int64(len(emptyBytes)))]
		n, err := w.Write(silence)
		wn += int64(n)
		if err != nil {
			return wn, err
		}
		tw -= int64(len(silence))
	}
	return wn, nil
}
