package vsound

import (
	"context"
	"errors"
	"time"

	"github.com/haivivi/vsound/pkg/hostaudio"
)

// DefaultTickPeriod is the default Pump period.
const DefaultTickPeriod = 10 * time.Millisecond

// Pump drives Device.Tick from a ticker for backends that have no clock of
// their own. Each tick's budget is the playback time elapsed since the
// previous tick at the voice rate, capped at four periods so a stalled
// process does not flush the whole ring at once.
type Pump struct {
	dev    *Device
	period time.Duration
	log    Logger
}

// NewPump creates a Pump for d. A period of zero means DefaultTickPeriod.
func NewPump(d *Device, period time.Duration, logger Logger) *Pump {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	if logger == nil {
		logger = DefaultLogger()
	}
	return &Pump{dev: d, period: period, log: logger}
}

// Run ticks until ctx is done or the device is closed.
func (p *Pump) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	last := time.Now()
	var owed time.Duration
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			owed += now.Sub(last)
			last = now
			owed = min(owed, 4*p.period)

			vf := p.dev.Snapshot().VoiceFormat()
			budget := vf.BytesInDuration(owed)
			if budget <= 0 {
				continue
			}
			owed -= vf.Duration(budget)
			if _, err := p.dev.Tick(hostaudio.Playback, int(budget)); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				p.log.WarnPrintf("tick: %v", err)
			}
		}
	}
}
