package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLocalPutAndRead(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	pcm := bytes.Repeat([]byte{0x10, 0x00}, 960)
	if _, err := Put(ctx, s, "dev-1/playback-0001.pcm", bytes.NewReader(pcm)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "dev-1", "playback-0001.pcm")); err != nil {
		t.Fatalf("file not on disk: %v", err)
	}

	r, err := s.Read(ctx, "dev-1/playback-0001.pcm")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if !bytes.Equal(got, pcm) {
		t.Error("read back differs")
	}
}

func TestLocalReadNotExist(t *testing.T) {
	s := newTestLocal(t)
	_, err := s.Read(context.Background(), "no-such-file")
	if !os.IsNotExist(err) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLocalExistsDelete(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	if ok, err := s.Exists(ctx, "a.pcm"); ok || err != nil {
		t.Fatalf("Exists=%v, %v", ok, err)
	}
	if _, err := Put(ctx, s, "a.pcm", bytes.NewReader([]byte{1})); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, "a.pcm"); !ok {
		t.Fatal("expected file to exist")
	}
	if err := s.Delete(ctx, "a.pcm"); err != nil {
		t.Fatal(err)
	}
	// Idempotent.
	if err := s.Delete(ctx, "a.pcm"); err != nil {
		t.Fatal(err)
	}
}

func TestLocalResolveStaysInRoot(t *testing.T) {
	s := newTestLocal(t)
	for _, p := range []string{"../escape.pcm", "/abs.pcm", "a/../../b.pcm"} {
		full := s.resolve(p)
		if !strings.HasPrefix(full, s.Root()+string(filepath.Separator)) {
			t.Errorf("resolve(%q)=%q escapes root", p, full)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := Put(ctx, m, "x.pcm", bytes.NewReader([]byte{1, 2})); err != nil {
		t.Fatal(err)
	}
	if got := m.Paths(); len(got) != 1 || got[0] != "x.pcm" {
		t.Errorf("Paths=%v", got)
	}
	if _, err := m.Read(ctx, "y.pcm"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err=%v", err)
	}
}
