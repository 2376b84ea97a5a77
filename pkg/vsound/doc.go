// Package vsound implements a virtual sound card that plays a guest's PCM
// stream on a host audio backend.
//
// The guest talks to a Device over a Transport: small control messages
// ({u16 event, u16 value} little-endian, optionally followed by a format or
// volume payload) and raw interleaved PCM. Control messages drive a state
// machine that negotiates the format, volume and connection state; PCM is
// queued in a lock-free single-producer/single-consumer ring and drained
// into the backend's playback voice on every Tick.
//
// Threading model:
//   - the transport goroutine is the only producer and the only driver of
//     the control state machine (HandleControl, HandleData);
//   - the audio goroutine (a Pump or a backend callback) is the only
//     consumer (Tick);
//   - control state is published as an immutable Snapshot so the audio
//     goroutine never takes a lock.
//
// Transports: NewPipe connects a guest in-process; WSServer and DialGuest
// carry the same traffic over a websocket. RunGuest simulates a guest
// driver.
package vsound
