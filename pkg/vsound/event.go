package vsound

import "fmt"

// Event is the 16-bit code at the start of every control message.
type Event uint16

const (
	EventReady Event = iota
	EventOpen
	EventClose
	EventEnable
	EventDisable
	EventSetFormat
	EventSetState
	EventSetVolume
	EventSetMute
	EventGetMute
)

// Known reports whether e is one of the ten defined events. Codes from 10 up
// are reserved and ignored.
func (e Event) Known() bool {
	return e <= EventGetMute
}

// String returns the string representation of the event.
func (e Event) String() string {
	switch e {
	case EventReady:
		return "READY"
	case EventOpen:
		return "OPEN"
	case EventClose:
		return "CLOSE"
	case EventEnable:
		return "ENABLE"
	case EventDisable:
		return "DISABLE"
	case EventSetFormat:
		return "SET_FORMAT"
	case EventSetState:
		return "SET_STATE"
	case EventSetVolume:
		return "SET_VOLUME"
	case EventSetMute:
		return "SET_MUTE"
	case EventGetMute:
		return "GET_MUTE"
	}
	return fmt.Sprintf("EVENT_%d", uint16(e))
}
