package vsound

import (
	"fmt"

	"github.com/haivivi/vsound/pkg/buffer"
	"github.com/haivivi/vsound/pkg/hostaudio"
)

// datapath moves guest PCM through the ring into the playback voice.
// produce runs on the transport goroutine and tick on the audio goroutine;
// they share only the ring and the published snapshot.
type datapath struct {
	ring    *buffer.SPSC
	backend hostaudio.Backend
	ctrl    *Controller
	log     Logger
	stats   *Stats
}

// produce queues inbound PCM. Data is discarded while the host side is not
// connected; bytes that do not fit in the ring are dropped.
func (d *datapath) produce(batch ...[]byte) int {
	snap := d.ctrl.Snapshot()
	total := 0
	for _, p := range batch {
		if len(p) == 0 {
			continue
		}
		d.stats.BytesIn.Add(int64(len(p)))
		if !snap.HostConnected {
			d.stats.BytesDiscarded.Add(int64(len(p)))
			continue
		}
		n := d.ring.Produce(p)
		total += n
		if dropped := len(p) - n; dropped > 0 {
			d.stats.BytesDropped.Add(int64(dropped))
			d.log.DebugPrintf("ring full: dropped %d of %d bytes", dropped, len(p))
		}
	}
	return total
}

// tick drains up to budget bytes into the backend.
func (d *datapath) tick(dir hostaudio.Direction, budget int) (int, error) {
	switch dir {
	case hostaudio.Playback:
	case hostaudio.Record, hostaudio.Capture:
		return 0, fmt.Errorf("%w: %s", ErrCaptureNotImplemented, dir)
	default:
		return 0, fmt.Errorf("vsound: tick: unknown direction %s", dir)
	}
	d.stats.Ticks.Add(1)

	snap := d.ctrl.Snapshot()
	voice := snap.Playback
	if voice == 0 {
		return 0, nil
	}
	minChunk := max(1, snap.VoiceFormat().FrameSize()/2)
	sink := func(span []byte) int {
		return d.backend.Write(voice, span)
	}

	total := 0
	for budget >= minChunk {
		n, stalled := d.ring.ConsumeInto(budget, sink)
		total += n
		budget -= n
		if !stalled {
			continue
		}
		if d.ring.Len() == 0 {
			d.stats.Underruns.Add(1)
			d.log.DebugPrintf("underrun: %d bytes short", budget)
		} else {
			d.stats.Stalls.Add(1)
		}
		break
	}
	d.stats.BytesOut.Add(int64(total))
	return total, nil
}
