package vsound

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/haivivi/vsound/pkg/hostaudio"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func recvReply(t *testing.T, replies <-chan []byte) []byte {
	t.Helper()
	select {
	case msg, ok := <-replies:
		if !ok {
			t.Fatal("replies closed")
		}
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for reply")
	}
	return nil
}

func TestPipeNoSlot(t *testing.T) {
	host, guest := NewPipe(2)
	defer host.Close()

	for i := range 2 {
		if err := host.SendControl(Encode(EventOpen, 1)); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if err := host.SendControl(Encode(EventOpen, 1)); !errors.Is(err, ErrNoSlot) {
		t.Fatalf("full queue got=%v", err)
	}
	<-guest.Replies()
	if err := host.SendControl(Encode(EventOpen, 1)); err != nil {
		t.Errorf("after read got=%v", err)
	}

	guest.Close()
	if err := host.SendControl(Encode(EventOpen, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("after close got=%v", err)
	}
	if err := guest.SendData(context.Background(), []byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("guest send after close got=%v", err)
	}
}

func TestPipeServe(t *testing.T) {
	mem := hostaudio.NewMemory()
	dev, err := NewDevice(mem, Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	host, guest := NewPipe(4)
	defer guest.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- host.Serve(ctx, dev) }()

	if got := recvReply(t, guest.Replies()); !bytes.Equal(got, Encode(EventOpen, 1)) {
		t.Fatalf("host open got=%x", got)
	}
	if err := guest.SendControl(ctx, Encode(EventReady, 1)); err != nil {
		t.Fatal(err)
	}
	if got := recvReply(t, guest.Replies()); !bytes.Equal(got, Encode(EventOpen, 1)) {
		t.Fatalf("READY reply got=%x", got)
	}
	if err := guest.SendData(ctx, pattern(64)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "ring fill", func() bool { return dev.Stats().RingUsed == 64 })

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve got=%v", err)
	}
	if _, err := dev.Attach(host); err != nil {
		t.Errorf("transport still attached: %v", err)
	}
}

func TestRunGuestOverPipe(t *testing.T) {
	mem := hostaudio.NewMemory()
	dev, err := NewDevice(mem, Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	host, guest := NewPipe(4)
	defer guest.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go host.Serve(ctx, dev)

	data := pattern(1920 * 5)
	vol := int32(-3145728)
	n, err := RunGuest(ctx, guest, bytes.NewReader(data), GuestOptions{Volume: &vol})
	if err != nil {
		t.Fatalf("RunGuest: %v", err)
	}
	if n != int64(len(data)) {
		t.Errorf("sent got=%d", n)
	}
	waitFor(t, "stream closed", func() bool { return dev.Snapshot().State == StateClosed })

	if got := dev.Snapshot().Volume; got.Left != 127 {
		t.Errorf("volume got=%+v", got)
	}
	if _, err := dev.Tick(hostaudio.Playback, len(data)); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(mem.Played(), data) {
		t.Errorf("played %d bytes, want %d", len(mem.Played()), len(data))
	}
}

func TestWebsocketEndToEnd(t *testing.T) {
	mem := hostaudio.NewMemory()
	dev, err := NewDevice(mem, Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	srv := httptest.NewServer(NewWSServer(dev, WSOptions{}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	guest, err := DialGuest(ctx, url)
	if err != nil {
		t.Fatalf("DialGuest: %v", err)
	}
	defer guest.Close()

	if _, err := DialGuest(ctx, url); err == nil || !strings.Contains(err.Error(), "409") {
		t.Errorf("second guest got=%v", err)
	}

	data := pattern(1920 * 3)
	if _, err := RunGuest(ctx, guest, bytes.NewReader(data), GuestOptions{}); err != nil {
		t.Fatalf("RunGuest: %v", err)
	}
	waitFor(t, "stream closed", func() bool { return dev.Snapshot().State == StateClosed })

	if !dev.Snapshot().HostConnected {
		t.Error("host side not opened")
	}
	if _, err := dev.Tick(hostaudio.Playback, len(data)); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(mem.Played(), data) {
		t.Errorf("played %d bytes, want %d", len(mem.Played()), len(data))
	}

	guest.Close()
	waitFor(t, "detach", func() bool {
		detach, err := dev.Attach(TransportFunc(func([]byte) error { return nil }))
		if err != nil {
			return false
		}
		detach()
		return true
	})
}

func TestWebsocketServerClose(t *testing.T) {
	dev, err := NewDevice(hostaudio.NewMemory(), Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	ws := NewWSServer(dev, WSOptions{})
	srv := httptest.NewServer(ws)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	guest, err := DialGuest(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("DialGuest: %v", err)
	}
	defer guest.Close()

	// The host open sequence sends OPEN(1).
	recvReply(t, guest.Replies())

	ws.Close()
	select {
	case _, ok := <-guest.Replies():
		for ok {
			_, ok = <-guest.Replies()
		}
	case <-time.After(3 * time.Second):
		t.Fatal("guest not dropped")
	}
	waitFor(t, "detach", func() bool {
		detach, err := dev.Attach(TransportFunc(func([]byte) error { return nil }))
		if err != nil {
			return false
		}
		detach()
		return true
	})
}

func TestWebsocketOversizedFrame(t *testing.T) {
	dev, err := NewDevice(hostaudio.NewMemory(), Config{})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	srv := httptest.NewServer(NewWSServer(dev, WSOptions{MaxFrame: 65}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	guest, err := DialGuest(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("DialGuest: %v", err)
	}
	defer guest.Close()
	recvReply(t, guest.Replies())

	if err := guest.SendData(ctx, pattern(64)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "frame at the limit", func() bool { return dev.Stats().BytesIn == 64 })

	// One byte over the limit drops the guest before the payload is queued.
	if err := guest.SendData(ctx, pattern(65)); err != nil {
		t.Fatal(err)
	}
	select {
	case _, ok := <-guest.Replies():
		for ok {
			_, ok = <-guest.Replies()
		}
	case <-time.After(3 * time.Second):
		t.Fatal("guest not dropped")
	}
	if got := dev.Stats().BytesIn; got != 64 {
		t.Errorf("bytes in got=%d", got)
	}
}

func TestWebsocketDefaultFrameLimit(t *testing.T) {
	dev, err := NewDevice(hostaudio.NewMemory(), Config{RingSize: 1024})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()
	if got := NewWSServer(dev, WSOptions{}).maxFrame; got != 1025 {
		t.Errorf("max frame got=%d", got)
	}
}
