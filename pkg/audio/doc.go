// Package audio groups the host-side audio helpers of vsound:
//
//   - pcm: PCM format arithmetic, chunks and software volume
//   - portaudio: a hostaudio.Backend on the default PortAudio output device
package audio
