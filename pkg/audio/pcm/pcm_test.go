package pcm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func TestFormatArithmetic(t *testing.T) {
	f := Format{Channels: 2, BitsPerSample: 16, SampleRate: 48000, AvgBytesPerSec: 192000}
	if got := f.FrameSize(); got != 4 {
		t.Errorf("FrameSize=%d", got)
	}
	if got := f.BytesRate(); got != 192000 {
		t.Errorf("BytesRate=%d", got)
	}
	if got := f.BytesInDuration(10 * time.Millisecond); got != 1920 {
		t.Errorf("BytesInDuration(10ms)=%d", got)
	}
	if got := f.Duration(192000); got != time.Second {
		t.Errorf("Duration=%v", got)
	}
	if got := f.String(); got != "audio/L16; rate=48000; channels=2" {
		t.Errorf("String=%q", got)
	}
	if got := (Format{}).Duration(100); got != 0 {
		t.Errorf("zero format Duration=%v", got)
	}
}

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name string
		f    Format
		ok   bool
	}{
		{"default", DefaultFormat, true},
		{"mono16k", Format{Channels: 1, BitsPerSample: 16, SampleRate: 16000, AvgBytesPerSec: 32000}, true},
		{"zero channels", Format{BitsPerSample: 16, SampleRate: 48000}, false},
		{"zero bits", Format{Channels: 2, SampleRate: 48000}, false},
		{"odd bits", Format{Channels: 2, BitsPerSample: 12, SampleRate: 48000}, false},
		{"zero rate", Format{Channels: 2, BitsPerSample: 16}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.f.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("err=%v, want ErrInvalidFormat", err)
			}
		})
	}
}

func TestSilenceChunk(t *testing.T) {
	c := DefaultFormat.SilenceChunk(time.Second)
	var buf bytes.Buffer
	n, err := c.WriteTo(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 192000 || c.Len() != 192000 || buf.Len() != 192000 {
		t.Errorf("n=%d len=%d buf=%d", n, c.Len(), buf.Len())
	}
}

func TestCopy(t *testing.T) {
	f := DefaultFormat
	// 25ms plus a stray byte.
	src := make([]byte, f.BytesInDuration(25*time.Millisecond)+1)
	for i := range src {
		src[i] = byte(i)
	}
	var sizes []int64
	var out bytes.Buffer
	err := Copy(WriteFunc(func(c Chunk) error {
		sizes = append(sizes, c.Len())
		_, err := c.WriteTo(&out)
		return err
	}), bytes.NewReader(src), f, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{1920, 1920, 960}
	if len(sizes) != len(want) {
		t.Fatalf("sizes=%v", sizes)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("sizes=%v", sizes)
		}
	}
	if !bytes.Equal(out.Bytes(), src[:len(src)-1]) {
		t.Error("copied bytes differ")
	}
}

func TestApplyVolume(t *testing.T) {
	src := make([]byte, 8)
	for i, s := range []int16{1000, -1000, 2000, -2000} {
		binary.LittleEndian.PutUint16(src[i*2:], uint16(s))
	}
	sample := func(b []byte, i int) int16 {
		return int16(binary.LittleEndian.Uint16(b[i*2:]))
	}

	t.Run("unity", func(t *testing.T) {
		dst := make([]byte, len(src))
		ApplyVolume(dst, src, false, 255, 255)
		if !bytes.Equal(dst, src) {
			t.Errorf("dst=%v", dst)
		}
	})

	t.Run("per channel", func(t *testing.T) {
		dst := make([]byte, len(src))
		ApplyVolume(dst, src, false, 255, 0)
		if sample(dst, 0) != 1000 || sample(dst, 1) != 0 || sample(dst, 2) != 2000 || sample(dst, 3) != 0 {
			t.Errorf("dst=%v", dst)
		}
	})

	t.Run("mute", func(t *testing.T) {
		dst := make([]byte, len(src))
		if n := ApplyVolume(dst, src, true, 255, 255); n != len(src) {
			t.Errorf("n=%d", n)
		}
		if !bytes.Equal(dst, make([]byte, len(src))) {
			t.Errorf("dst=%v", dst)
		}
	})

	t.Run("trailing partial frame", func(t *testing.T) {
		// One frame plus a lone sample: the frame is scaled per channel and
		// the lone sample is left alone rather than taken as a left sample.
		odd := src[:6]
		dst := make([]byte, len(odd))
		if n := ApplyVolume(dst, odd, false, 0, 255); n != len(odd) {
			t.Errorf("n=%d", n)
		}
		if sample(dst, 0) != 0 || sample(dst, 1) != -1000 || sample(dst, 2) != 2000 {
			t.Errorf("dst=%v", dst)
		}
	})
}
