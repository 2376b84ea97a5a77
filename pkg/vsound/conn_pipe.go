package vsound

import (
	"context"
	"errors"
	"sync"
)

// GuestConn is the guest end of a transport: what a guest driver uses to
// talk to a device.
type GuestConn interface {
	// SendControl delivers one control message to the device.
	SendControl(ctx context.Context, msg []byte) error
	// SendData delivers PCM to the device.
	SendData(ctx context.Context, pcm []byte) error
	// Replies yields control messages sent by the device. The channel is
	// closed when the connection ends.
	Replies() <-chan []byte
	Close() error
}

type pipeFrame struct {
	control bool
	payload []byte
}

// NewPipe creates a connected in-process transport. The host end queues at
// most depth outbound control messages; further sends fail with ErrNoSlot
// until the guest reads.
func NewPipe(depth int) (*PipeHost, *PipeGuest) {
	if depth < 1 {
		depth = 1
	}
	sh := &pipeShared{
		uplink:   make(chan pipeFrame, 256),
		downlink: make(chan []byte, depth),
		done:     make(chan struct{}),
	}
	return &PipeHost{sh}, &PipeGuest{sh}
}

type pipeShared struct {
	uplink   chan pipeFrame
	downlink chan []byte

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func (sh *pipeShared) close() {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.closed {
		return
	}
	sh.closed = true
	close(sh.done)
	close(sh.downlink)
}

// PipeHost is the device end of a pipe. It implements Transport.
type PipeHost struct {
	sh *pipeShared
}

// SendControl queues msg for the guest without blocking.
func (h *PipeHost) SendControl(msg []byte) error {
	h.sh.mu.Lock()
	defer h.sh.mu.Unlock()
	if h.sh.closed {
		return ErrClosed
	}
	select {
	case h.sh.downlink <- append([]byte(nil), msg...):
		return nil
	default:
		return ErrNoSlot
	}
}

// Serve attaches the pipe to d, runs the host open sequence and delivers
// guest traffic to d until ctx is done or either end closes the pipe.
func (h *PipeHost) Serve(ctx context.Context, d *Device) error {
	detach, err := d.Attach(h)
	if err != nil {
		return err
	}
	defer detach()
	if err := d.Open(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.sh.done:
			return nil
		case f := <-h.sh.uplink:
			if f.control {
				err = d.HandleControl(f.payload)
			} else {
				d.HandleData(f.payload)
			}
			if errors.Is(err, ErrClosed) {
				return err
			}
		}
	}
}

// Close closes both ends.
func (h *PipeHost) Close() error {
	h.sh.close()
	return nil
}

// PipeGuest is the guest end of a pipe.
type PipeGuest struct {
	sh *pipeShared
}

func (g *PipeGuest) send(ctx context.Context, f pipeFrame) error {
	select {
	case g.sh.uplink <- f:
		return nil
	case <-g.sh.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *PipeGuest) SendControl(ctx context.Context, msg []byte) error {
	return g.send(ctx, pipeFrame{control: true, payload: append([]byte(nil), msg...)})
}

func (g *PipeGuest) SendData(ctx context.Context, pcm []byte) error {
	return g.send(ctx, pipeFrame{payload: append([]byte(nil), pcm...)})
}

func (g *PipeGuest) Replies() <-chan []byte {
	return g.sh.downlink
}

// Close closes both ends.
func (g *PipeGuest) Close() error {
	g.sh.close()
	return nil
}

var (
	_ Transport = (*PipeHost)(nil)
	_ GuestConn = (*PipeGuest)(nil)
)
