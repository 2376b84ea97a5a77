// Package pcm provides types and utilities for working with PCM (Pulse Code Modulation) audio data.
//
// Key types:
//   - Format: channels, bits per sample and sample rate of interleaved little-endian PCM,
//     with byte/duration arithmetic
//   - Chunk: Interface for audio data chunks
//   - DataChunk: Concrete implementation of Chunk for raw audio data
//   - SilenceChunk: Chunk that produces silence of a specified duration
//   - Writer: Interface for writing audio chunks
//
// Example usage:
//
//	format := pcm.DefaultFormat
//
//	// Calculate bytes needed for 10ms of audio
//	bytes := format.BytesInDuration(10 * time.Millisecond)
//
//	// Create a data chunk
//	chunk := format.DataChunk(audioData)
package pcm
