package vsound

import "sync/atomic"

// Stats counts what a device has done. All fields are updated atomically and
// may be read at any time.
type Stats struct {
	ControlMessages   atomic.Int64
	Malformed         atomic.Int64
	UnknownEvents     atomic.Int64
	GuestInitFailures atomic.Int64
	RepliesSent       atomic.Int64
	RepliesDropped    atomic.Int64
	VoiceResets       atomic.Int64

	BytesIn        atomic.Int64
	BytesDropped   atomic.Int64
	BytesDiscarded atomic.Int64
	BytesOut       atomic.Int64
	Ticks          atomic.Int64
	Underruns      atomic.Int64
	Stalls         atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	ControlMessages   int64 `json:"control_messages" yaml:"control_messages"`
	Malformed         int64 `json:"malformed" yaml:"malformed"`
	UnknownEvents     int64 `json:"unknown_events" yaml:"unknown_events"`
	GuestInitFailures int64 `json:"guest_init_failures" yaml:"guest_init_failures"`
	RepliesSent       int64 `json:"replies_sent" yaml:"replies_sent"`
	RepliesDropped    int64 `json:"replies_dropped" yaml:"replies_dropped"`
	VoiceResets       int64 `json:"voice_resets" yaml:"voice_resets"`

	BytesIn        int64 `json:"bytes_in" yaml:"bytes_in"`
	BytesDropped   int64 `json:"bytes_dropped" yaml:"bytes_dropped"`
	BytesDiscarded int64 `json:"bytes_discarded" yaml:"bytes_discarded"`
	BytesOut       int64 `json:"bytes_out" yaml:"bytes_out"`
	Ticks          int64 `json:"ticks" yaml:"ticks"`
	Underruns      int64 `json:"underruns" yaml:"underruns"`
	Stalls         int64 `json:"stalls" yaml:"stalls"`

	RingUsed int `json:"ring_used" yaml:"ring_used"`
	RingSize int `json:"ring_size" yaml:"ring_size"`
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		ControlMessages:   s.ControlMessages.Load(),
		Malformed:         s.Malformed.Load(),
		UnknownEvents:     s.UnknownEvents.Load(),
		GuestInitFailures: s.GuestInitFailures.Load(),
		RepliesSent:       s.RepliesSent.Load(),
		RepliesDropped:    s.RepliesDropped.Load(),
		VoiceResets:       s.VoiceResets.Load(),
		BytesIn:           s.BytesIn.Load(),
		BytesDropped:      s.BytesDropped.Load(),
		BytesDiscarded:    s.BytesDiscarded.Load(),
		BytesOut:          s.BytesOut.Load(),
		Ticks:             s.Ticks.Load(),
		Underruns:         s.Underruns.Load(),
		Stalls:            s.Stalls.Load(),
	}
}
