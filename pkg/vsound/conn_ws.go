package vsound

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Websocket frames are binary and start with a one-byte queue tag.
const (
	wsTagControl byte = 0x01
	wsTagData    byte = 0x02
)

const wsWriteTimeout = 5 * time.Second

// WSOptions configures a WSServer.
type WSOptions struct {
	// QueueSize bounds the outbound control queue. Defaults to 16.
	QueueSize int
	// MaxFrame is the largest inbound frame, tag included. Larger frames
	// drop the guest. Defaults to one byte more than the device ring.
	MaxFrame int
	Logger   Logger
}

// WSServer is an http.Handler that accepts one guest at a time over a
// websocket and connects it to a device. A second guest gets 409 Conflict
// while the first is connected.
//
// When a guest connects the device is attached and opened, so the first
// guest receives OPEN(1) from the host open sequence.
type WSServer struct {
	dev      *Device
	upgrader websocket.Upgrader
	queue    int
	maxFrame int
	log      Logger
	busy     atomic.Bool
	active   atomic.Pointer[wsHostConn]
}

// NewWSServer creates a websocket transport server for d.
func NewWSServer(d *Device, opts WSOptions) *WSServer {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.MaxFrame <= 0 {
		opts.MaxFrame = 1 + d.Stats().RingSize
	}
	if opts.Logger == nil {
		opts.Logger = DefaultLogger()
	}
	return &WSServer{
		dev: d,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		queue:    opts.QueueSize,
		maxFrame: opts.MaxFrame,
		log:      opts.Logger,
	}
}

func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.busy.CompareAndSwap(false, true) {
		http.Error(w, "vsound: guest already connected", http.StatusConflict)
		return
	}
	defer s.busy.Store(false)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WarnPrintf("websocket upgrade: %v", err)
		return
	}
	ws.SetReadLimit(int64(s.maxFrame))
	conn := &wsHostConn{
		ws:   ws,
		out:  make(chan []byte, s.queue),
		done: make(chan struct{}),
	}
	defer conn.close()
	s.active.Store(conn)
	defer s.active.Store(nil)

	detach, err := s.dev.Attach(conn)
	if err != nil {
		s.log.WarnPrintf("attach %s: %v", r.RemoteAddr, err)
		return
	}
	defer detach()
	s.log.InfoPrintf("guest connected from %s", r.RemoteAddr)

	go conn.writeLoop(s.log)
	if err := s.dev.Open(); err != nil {
		s.log.WarnPrintf("open: %v", err)
		return
	}

	for {
		mt, frame, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.WarnPrintf("guest %s: read: %v", r.RemoteAddr, err)
			}
			s.log.InfoPrintf("guest %s disconnected", r.RemoteAddr)
			return
		}
		if mt != websocket.BinaryMessage || len(frame) == 0 {
			s.log.DebugPrintf("ignore non-binary or empty frame")
			continue
		}
		switch frame[0] {
		case wsTagControl:
			err = s.dev.HandleControl(frame[1:])
		case wsTagData:
			s.dev.HandleData(frame[1:])
		default:
			s.log.DebugPrintf("ignore frame with tag %#x", frame[0])
		}
		if errors.Is(err, ErrClosed) {
			return
		}
	}
}

// Close drops the connected guest, if any. http.Server.Shutdown does not
// track hijacked connections, so call Close when shutting down.
func (s *WSServer) Close() error {
	if c := s.active.Load(); c != nil {
		c.close()
	}
	return nil
}

// wsHostConn is the device side of one guest connection.
type wsHostConn struct {
	ws  *websocket.Conn
	out chan []byte

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func (c *wsHostConn) SendControl(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	frame := make([]byte, 0, len(msg)+1)
	frame = append(frame, wsTagControl)
	frame = append(frame, msg...)
	select {
	case c.out <- frame:
		return nil
	default:
		return ErrNoSlot
	}
}

func (c *wsHostConn) writeLoop(log Logger) {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				log.WarnPrintf("write control: %v", err)
				c.ws.Close()
				return
			}
		}
	}
}

func (c *wsHostConn) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	c.mu.Unlock()
	c.ws.Close()
}

// WSGuest is the guest end of a websocket transport.
type WSGuest struct {
	ws      *websocket.Conn
	replies chan []byte
	done    chan struct{}

	wmu       sync.Mutex
	closeOnce sync.Once
}

// DialGuest connects to a WSServer at url (ws://host:port/path).
func DialGuest(ctx context.Context, url string) (*WSGuest, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("vsound: dial %s: %s: %w", url, resp.Status, err)
		}
		return nil, fmt.Errorf("vsound: dial %s: %w", url, err)
	}
	g := &WSGuest{
		ws:      ws,
		replies: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
	go g.readLoop()
	return g, nil
}

func (g *WSGuest) readLoop() {
	defer close(g.replies)
	for {
		mt, frame, err := g.ws.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage || len(frame) == 0 || frame[0] != wsTagControl {
			continue
		}
		select {
		case g.replies <- frame[1:]:
		case <-g.done:
			return
		}
	}
}

func (g *WSGuest) write(ctx context.Context, tag byte, p []byte) error {
	frame := make([]byte, 0, len(p)+1)
	frame = append(frame, tag)
	frame = append(frame, p...)

	g.wmu.Lock()
	defer g.wmu.Unlock()
	deadline := time.Now().Add(wsWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	g.ws.SetWriteDeadline(deadline)
	if err := g.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("vsound: websocket write: %w", err)
	}
	return nil
}

func (g *WSGuest) SendControl(ctx context.Context, msg []byte) error {
	return g.write(ctx, wsTagControl, msg)
}

func (g *WSGuest) SendData(ctx context.Context, pcm []byte) error {
	return g.write(ctx, wsTagData, pcm)
}

func (g *WSGuest) Replies() <-chan []byte {
	return g.replies
}

// Close sends a close frame and closes the connection.
func (g *WSGuest) Close() error {
	var err error
	g.closeOnce.Do(func() {
		close(g.done)
		g.wmu.Lock()
		g.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		g.wmu.Unlock()
		err = g.ws.Close()
	})
	return err
}

var (
	_ http.Handler = (*WSServer)(nil)
	_ Transport    = (*wsHostConn)(nil)
	_ GuestConn    = (*WSGuest)(nil)
)
