package buffer

import (
	"math/bits"
	"sync/atomic"
)

// SPSC is a lock-free, fixed-capacity byte ring for exactly one producer
// goroutine and one consumer goroutine.
//
// The capacity is always a power of two so that a cursor maps to a slot with
// a bitmask. Both cursors are free-running 64-bit counters; the number of
// unread bytes is write-read, which Produce keeps within [0, Cap()].
//
// The producer publishes its cursor only after the bytes are copied, and the
// consumer publishes its cursor only after the sink has taken the bytes, so
// neither side can observe a slot the other side still owns.
type SPSC struct {
	buf  []byte
	mask uint64

	_     [56]byte
	write atomic.Uint64
	_     [56]byte
	read  atomic.Uint64
}

// NewSPSC creates a ring whose capacity is the smallest power of two that is
// greater than or equal to size. Sizes below 1 yield a capacity of 1.
func NewSPSC(size int) *SPSC {
	n := RoundUpPow2(size)
	return &SPSC{
		buf:  make([]byte, n),
		mask: uint64(n - 1),
	}
}

// RoundUpPow2 returns the smallest power of two >= n, or 1 when n < 1.
func RoundUpPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(uint64(n-1))
}

// Cap returns the capacity in bytes.
func (r *SPSC) Cap() int {
	return len(r.buf)
}

// Len returns the number of unread bytes.
func (r *SPSC) Len() int {
	return int(r.used(r.write.Load(), r.read.Load()))
}

// Free returns the number of bytes the producer can write without loss.
func (r *SPSC) Free() int {
	return len(r.buf) - r.Len()
}

func (r *SPSC) used(w, rd uint64) uint64 {
	n := w - rd
	if n > uint64(len(r.buf)) {
		// Only possible if a caller broke the single-producer rule.
		return uint64(len(r.buf))
	}
	return n
}

// Produce copies as much of p as fits into the free space and returns the
// number of bytes copied. Bytes that do not fit are not written; the caller
// decides whether to drop or retry them.
//
// Produce must only be called from the producer goroutine.
func (r *SPSC) Produce(p []byte) int {
	w := r.write.Load()
	rd := r.read.Load()

	free := uint64(len(r.buf)) - r.used(w, rd)
	n := uint64(len(p))
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	start := w & r.mask
	first := min(n, uint64(len(r.buf))-start)
	copy(r.buf[start:start+first], p[:first])
	if first < n {
		copy(r.buf[:n-first], p[first:n])
	}

	r.write.Store(w + n)
	return int(n)
}

// ConsumeInto offers up to limit unread bytes to sink as contiguous spans,
// split at the physical end of the ring. The sink returns how many bytes of
// the span it accepted; the read cursor advances by exactly that amount and
// any remainder is offered again in the next span.
//
// It returns the total accepted and whether the call stopped because no data
// was available or the sink accepted zero bytes.
//
// ConsumeInto must only be called from the consumer goroutine.
func (r *SPSC) ConsumeInto(limit int, sink func([]byte) int) (n int, stalled bool) {
	if limit <= 0 {
		return 0, false
	}
	rd := r.read.Load()
	w := r.write.Load()

	todo := min(r.used(w, rd), uint64(limit))
	if todo == 0 {
		return 0, true
	}

	var done uint64
	for done < todo {
		start := (rd + done) & r.mask
		span := min(todo-done, uint64(len(r.buf))-start)
		accepted := sink(r.buf[start : start+span])
		if accepted <= 0 {
			stalled = true
			break
		}
		if uint64(accepted) > span {
			accepted = int(span)
		}
		done += uint64(accepted)
		r.read.Store(rd + done)
	}
	return int(done), stalled
}

// Reset discards all unread data. Both sides must be idle while Reset runs.
func (r *SPSC) Reset() {
	r.read.Store(r.write.Load())
}
