package pcm

import (
	"errors"
	"io"
	"time"
)

// Writer is a writer for chunks of audio data.
type Writer interface {
	Write(Chunk) error
}

var _ Writer = WriteFunc(nil)

// WriteFunc is a function that implements the Writer interface.
type WriteFunc func(Chunk) error

// Write implements the Writer interface.
func (f WriteFunc) Write(c Chunk) error {
	return f(c)
}

// Discard is a Writer that discards all written chunks.
var Discard Writer = discard{}

type discard struct{}

func (discard) Write(Chunk) error {
	return nil
}

// ChunkWriter wraps an io.Writer to provide a pcm.Writer interface.
func ChunkWriter(w io.Writer) Writer {
	return WriteFunc(func(c Chunk) error {
		_, err := c.WriteTo(w)
		return err
	})
}

// Copy reads r in chunks of the given duration and writes them to w as
// DataChunks. A trailing short read is delivered as a final, shorter chunk,
// trimmed to whole frames. Copy returns nil on EOF.
func Copy(w Writer, r io.Reader, format Format, chunk time.Duration) error {
	size := int(format.BytesInDuration(chunk))
	if size <= 0 {
		size = max(format.FrameSize(), 1)
	}
	fs := max(format.FrameSize(), 1)
	for {
		buf := make([]byte, size)
		n, err := io.ReadFull(r, buf)
		n -= n % fs
		if n > 0 {
			if err := w.Write(format.DataChunk(buf[:n])); err != nil {
				return err
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
	}
}
