package vsound

import "errors"

var (
	// ErrNoSlot is returned by Transport.SendControl when the outbound
	// control queue has no room or no guest is attached. The message is
	// dropped.
	ErrNoSlot = errors.New("vsound: no outbound control slot")

	// ErrClosed is returned by operations on a closed device or transport.
	ErrClosed = errors.New("vsound: closed")

	// ErrAttached is returned by Device.Attach when a transport is already
	// attached.
	ErrAttached = errors.New("vsound: transport already attached")

	// ErrCaptureNotImplemented is returned by Tick for the record and
	// capture directions. No bytes are produced for the guest.
	ErrCaptureNotImplemented = errors.New("vsound: capture not implemented")
)

// Transport carries outbound control messages to the guest. Inbound traffic
// is pushed by the transport into Device.HandleControl and Device.HandleData.
type Transport interface {
	// SendControl queues msg for the guest. It must not block; when no slot
	// is free it returns ErrNoSlot.
	SendControl(msg []byte) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(msg []byte) error

// SendControl calls f(msg).
func (f TransportFunc) SendControl(msg []byte) error {
	return f(msg)
}
