package pcm

import "encoding/binary"

// ApplyVolume scales interleaved stereo S16LE frames from src into dst using
// the 0..255 per-channel volume scale, where 255 is unity gain. Muted audio
// becomes silence.
//
// src must start on a frame boundary: the first sample is always the left
// channel. dst must be at least len(src) bytes; a trailing partial frame is
// copied unchanged. It returns the number of bytes written.
func ApplyVolume(dst, src []byte, mute bool, left, right uint8) int {
	const frame = 4
	n := copy(dst, src)
	whole := n - n%frame
	if mute {
		clear(dst[:whole])
		return n
	}
	if left == 255 && right == 255 {
		return n
	}
	l, r := int32(left), int32(right)
	for i := 0; i < whole; i += frame {
		ls := int32(int16(binary.LittleEndian.Uint16(dst[i:])))
		rs := int32(int16(binary.LittleEndian.Uint16(dst[i+2:])))
		binary.LittleEndian.PutUint16(dst[i:], uint16(int16(ls*l/255)))
		binary.LittleEndian.PutUint16(dst[i+2:], uint16(int16(rs*r/255)))
	}
	return n
}
