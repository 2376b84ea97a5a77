package buffer

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrIteratorDone is returned by Next once the ring is closed for writing
// and drained.
var ErrIteratorDone = errors.New("buffer: iterator done")

// RingBuffer is a mutex-guarded ring that never blocks writers. When a write
// does not fit, the oldest elements are discarded to make room, so the ring
// always holds the most recent Cap() elements.
//
// Readers block until data arrives or the write side is closed. RingBuffer is
// meant for side channels that must not apply backpressure to a real-time
// producer, such as PCM dumps and captured log lines.
type RingBuffer[T any] struct {
	writeNotify chan struct{}

	mu          sync.Mutex
	buf         []T
	head, tail  int64
	overwritten int64
	closeWrite  bool
	closeErr    error
}

// RingN creates a RingBuffer holding at most size elements.
func RingN[T any](size int) *RingBuffer[T] {
	if size < 1 {
		size = 1
	}
	return &RingBuffer[T]{
		writeNotify: make(chan struct{}, 1),
		buf:         make([]T, size),
	}
}

// Cap returns the maximum number of elements the ring holds.
func (rb *RingBuffer[T]) Cap() int {
	return len(rb.buf)
}

// Write appends p, discarding the oldest elements if needed. It never blocks
// and always reports len(p) on success.
func (rb *RingBuffer[T]) Write(p []T) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if err := rb.writableLocked(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	size := int64(len(rb.buf))
	src := p
	if int64(len(src)) > size {
		// Only the tail of p can survive.
		rb.overwritten += int64(len(src)) - size
		src = src[int64(len(src))-size:]
	}
	if over := rb.tail - rb.head + int64(len(src)) - size; over > 0 {
		rb.head += over
		rb.overwritten += over
	}

	tail := int(rb.tail % size)
	n := copy(rb.buf[tail:], src)
	copy(rb.buf, src[n:])
	rb.tail += int64(len(src))

	rb.notifyLocked()
	return len(p), nil
}

// Add appends a single element, discarding the oldest one if the ring is full.
func (rb *RingBuffer[T]) Add(t T) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if err := rb.writableLocked(); err != nil {
		return err
	}
	size := int64(len(rb.buf))
	rb.buf[rb.tail%size] = t
	rb.tail++
	if rb.tail-rb.head > size {
		rb.head++
		rb.overwritten++
	}
	rb.notifyLocked()
	return nil
}

// Read copies buffered elements into p. It blocks until at least one element
// is available, returning io.EOF once the ring is closed for writing and
// empty.
func (rb *RingBuffer[T]) Read(p []T) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if err := rb.waitLocked(); err != nil {
		if errors.Is(err, ErrIteratorDone) {
			return 0, io.EOF
		}
		return 0, err
	}

	size := int64(len(rb.buf))
	avail := int(rb.tail - rb.head)
	head := int(rb.head % size)

	var n int
	if head+avail <= len(rb.buf) {
		n = copy(p, rb.buf[head:head+avail])
	} else {
		n = copy(p, rb.buf[head:])
		n += copy(p[n:], rb.buf[:avail-n])
	}
	rb.head += int64(n)
	return n, nil
}

// Next removes and returns the oldest element, blocking until one is
// available. It returns ErrIteratorDone after CloseWrite once drained.
func (rb *RingBuffer[T]) Next() (t T, err error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if err = rb.waitLocked(); err != nil {
		return t, err
	}
	t = rb.buf[rb.head%int64(len(rb.buf))]
	rb.head++
	return t, nil
}

// waitLocked blocks, releasing the lock while waiting, until data is
// available or the ring is closed.
func (rb *RingBuffer[T]) waitLocked() error {
	for {
		if rb.closeErr != nil {
			return fmt.Errorf("buffer: read from closed buffer: %w", rb.closeErr)
		}
		if rb.head != rb.tail {
			return nil
		}
		if rb.closeWrite {
			return ErrIteratorDone
		}
		rb.mu.Unlock()
		<-rb.writeNotify
		rb.mu.Lock()
	}
}

func (rb *RingBuffer[T]) writableLocked() error {
	if rb.closeErr != nil {
		return fmt.Errorf("buffer: write to closed buffer: %w", rb.closeErr)
	}
	if rb.closeWrite {
		return fmt.Errorf("buffer: write to closed buffer: %w", io.ErrClosedPipe)
	}
	return nil
}

func (rb *RingBuffer[T]) notifyLocked() {
	select {
	case rb.writeNotify <- struct{}{}:
	default:
	}
}

// Len returns the number of buffered elements.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return int(rb.tail - rb.head)
}

// Overwritten returns how many elements were discarded to make room for
// newer ones since the ring was created.
func (rb *RingBuffer[T]) Overwritten() int64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.overwritten
}

// Bytes returns a copy of the buffered elements, oldest first, without
// consuming them.
func (rb *RingBuffer[T]) Bytes() []T {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	n := int(rb.tail - rb.head)
	out := make([]T, n)
	head := int(rb.head % int64(len(rb.buf)))
	c := copy(out, rb.buf[head:min(head+n, len(rb.buf))])
	copy(out[c:], rb.buf[:n-c])
	return out
}

// CloseWrite stops further writes. Readers drain what is left and then see
// io.EOF (Read) or ErrIteratorDone (Next).
func (rb *RingBuffer[T]) CloseWrite() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closeWrite {
		return nil
	}
	rb.closeWrite = true
	close(rb.writeNotify)
	return nil
}

// CloseWithError closes both sides; pending and future calls return err.
func (rb *RingBuffer[T]) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closeErr != nil {
		return nil
	}
	rb.closeErr = err
	if !rb.closeWrite {
		rb.closeWrite = true
		close(rb.writeNotify)
	}
	return nil
}

// Close is CloseWithError(io.ErrClosedPipe).
func (rb *RingBuffer[T]) Close() error {
	return rb.CloseWithError(io.ErrClosedPipe)
}
