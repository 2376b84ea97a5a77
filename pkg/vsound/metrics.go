package vsound

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports a device's stats and control state as Prometheus
// metrics. Every metric carries a "device" label with the device ID.
type Collector struct {
	dev *Device

	counters []counterDesc

	ringUsed       *prometheus.Desc
	ringSize       *prometheus.Desc
	guestConnected *prometheus.Desc
	hostConnected  *prometheus.Desc
	live           *prometheus.Desc
	disabled       *prometheus.Desc
	sampleRate     *prometheus.Desc
	volume         *prometheus.Desc
}

type counterDesc struct {
	desc  *prometheus.Desc
	value func(*StatsSnapshot) int64
}

// NewCollector creates a Collector for d. Register it with a
// prometheus.Registerer.
func NewCollector(d *Device) *Collector {
	labels := prometheus.Labels{"device": d.ID()}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc("vsound_"+name, help, variable, labels)
	}
	counter := func(name, help string, value func(*StatsSnapshot) int64) counterDesc {
		return counterDesc{desc: desc(name, help), value: value}
	}
	return &Collector{
		dev: d,
		counters: []counterDesc{
			counter("control_messages_total", "Control messages applied.", func(s *StatsSnapshot) int64 { return s.ControlMessages }),
			counter("malformed_total", "Control batches discarded as malformed.", func(s *StatsSnapshot) int64 { return s.Malformed }),
			counter("unknown_events_total", "Control messages with an unknown event code.", func(s *StatsSnapshot) int64 { return s.UnknownEvents }),
			counter("guest_init_failures_total", "READY(0) messages received.", func(s *StatsSnapshot) int64 { return s.GuestInitFailures }),
			counter("replies_sent_total", "Control messages sent to the guest.", func(s *StatsSnapshot) int64 { return s.RepliesSent }),
			counter("replies_dropped_total", "Control messages dropped for lack of a slot.", func(s *StatsSnapshot) int64 { return s.RepliesDropped }),
			counter("voice_resets_total", "Voice resets performed.", func(s *StatsSnapshot) int64 { return s.VoiceResets }),
			counter("bytes_in_total", "PCM bytes received from the guest.", func(s *StatsSnapshot) int64 { return s.BytesIn }),
			counter("bytes_dropped_total", "PCM bytes dropped because the ring was full.", func(s *StatsSnapshot) int64 { return s.BytesDropped }),
			counter("bytes_discarded_total", "PCM bytes discarded while the host was not connected.", func(s *StatsSnapshot) int64 { return s.BytesDiscarded }),
			counter("bytes_out_total", "PCM bytes written to the backend.", func(s *StatsSnapshot) int64 { return s.BytesOut }),
			counter("ticks_total", "Playback ticks.", func(s *StatsSnapshot) int64 { return s.Ticks }),
			counter("underruns_total", "Ticks that ran out of buffered PCM.", func(s *StatsSnapshot) int64 { return s.Underruns }),
			counter("stalls_total", "Ticks stopped by a backend that accepted nothing.", func(s *StatsSnapshot) int64 { return s.Stalls }),
		},
		ringUsed:       desc("ring_used_bytes", "Bytes buffered in the playback ring."),
		ringSize:       desc("ring_size_bytes", "Capacity of the playback ring."),
		guestConnected: desc("guest_connected", "1 when the guest side is connected."),
		hostConnected:  desc("host_connected", "1 when the host side is connected."),
		live:           desc("live", "1 when both sides are connected."),
		disabled:       desc("disabled", "1 when the guest disabled the device."),
		sampleRate:     desc("sample_rate_hertz", "Negotiated sample rate."),
		volume:         desc("volume", "Host volume on the 0..255 scale, 0 when muted.", "channel"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	ch <- c.ringUsed
	ch <- c.ringSize
	ch <- c.guestConnected
	ch <- c.hostConnected
	ch <- c.live
	ch <- c.disabled
	ch <- c.sampleRate
	ch <- c.volume
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.dev.Stats()
	snap := c.dev.Snapshot()

	for _, cd := range c.counters {
		ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, float64(cd.value(&stats)))
	}
	ch <- prometheus.MustNewConstMetric(c.ringUsed, prometheus.GaugeValue, float64(stats.RingUsed))
	ch <- prometheus.MustNewConstMetric(c.ringSize, prometheus.GaugeValue, float64(stats.RingSize))
	ch <- prometheus.MustNewConstMetric(c.guestConnected, prometheus.GaugeValue, boolGauge(snap.GuestConnected))
	ch <- prometheus.MustNewConstMetric(c.hostConnected, prometheus.GaugeValue, boolGauge(snap.HostConnected))
	ch <- prometheus.MustNewConstMetric(c.live, prometheus.GaugeValue, boolGauge(snap.Live()))
	ch <- prometheus.MustNewConstMetric(c.disabled, prometheus.GaugeValue, boolGauge(snap.Disabled))
	ch <- prometheus.MustNewConstMetric(c.sampleRate, prometheus.GaugeValue, float64(snap.Format.SampleRate))

	left, right := float64(snap.Volume.Left), float64(snap.Volume.Right)
	if snap.Volume.Mute {
		left, right = 0, 0
	}
	ch <- prometheus.MustNewConstMetric(c.volume, prometheus.GaugeValue, left, "left")
	ch <- prometheus.MustNewConstMetric(c.volume, prometheus.GaugeValue, right, "right")
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var _ prometheus.Collector = (*Collector)(nil)
