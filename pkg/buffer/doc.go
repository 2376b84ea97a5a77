// Package buffer provides the byte rings used on the audio path.
//
//   - SPSC: a lock-free, power-of-two byte ring for exactly one producer and
//     one consumer goroutine. Produce never overwrites unread data; it returns
//     a short count instead. ConsumeInto hands contiguous spans to a sink that
//     may accept only part of them.
//
//   - RingBuffer: a mutex-guarded generic ring that overwrites the oldest
//     elements when full. It never blocks writers and is used for side
//     channels such as PCM dumps and captured log lines.
//
// Example usage:
//
//	ring := buffer.NewSPSC(2 << 20)
//
//	// producer goroutine
//	n := ring.Produce(pcm)
//
//	// consumer goroutine
//	ring.ConsumeInto(budget, func(p []byte) int {
//		return out.Write(p)
//	})
package buffer
