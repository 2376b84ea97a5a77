// Package storage defines where PCM dumps end up. A FileStore is a flat,
// slash-separated namespace of files backed by a local directory, an
// S3-compatible bucket or memory.
package storage

import (
	"context"
	"fmt"
	"io"
)

// FileStore is a minimal interface for file-oriented storage.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file for reading.
	// If the file does not exist, an error wrapping os.ErrNotExist is returned.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write opens the named file for writing, truncating any existing file.
	// The caller must close the returned WriteCloser to flush data.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file. Missing files are not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// Put streams r into path and closes the file. The returned count is the
// number of bytes copied.
func Put(ctx context.Context, fs FileStore, path string, r io.Reader) (int64, error) {
	w, err := fs.Write(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("storage: open %s: %w", path, err)
	}
	n, err := io.Copy(w, r)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("storage: write %s: %w", path, err)
	}
	return n, nil
}
