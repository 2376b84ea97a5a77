package vsound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/vsound/pkg/audio/pcm"
	"github.com/haivivi/vsound/pkg/kv"
)

// Settings is the persisted part of a device's state: the last negotiated
// format and volume. A device restarted with its saved settings comes up
// at the rate and volume the guest last asked for.
type Settings struct {
	Device    string     `json:"device" yaml:"device" msgpack:"device"`
	Format    pcm.Format `json:"format" yaml:"format" msgpack:"format"`
	Volume    Volume     `json:"volume" yaml:"volume" msgpack:"volume"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"updated_at" msgpack:"updated_at"`
}

var settingsPrefix = kv.Key{"vsound", "settings"}

// SettingsKey returns the kv key holding the settings of device.
func SettingsKey(device string) kv.Key {
	return kv.Key{settingsPrefix[0], settingsPrefix[1], device}
}

// LoadSettings reads the settings of device. It returns an error wrapping
// kv.ErrNotFound when none were saved.
func LoadSettings(ctx context.Context, store kv.Store, device string) (*Settings, error) {
	data, err := store.Get(ctx, SettingsKey(device))
	if err != nil {
		return nil, fmt.Errorf("vsound: load settings %s: %w", device, err)
	}
	var s Settings
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("vsound: decode settings %s: %w", device, err)
	}
	return &s, nil
}

// SaveSettings writes s under s.Device.
func SaveSettings(ctx context.Context, store kv.Store, s *Settings) error {
	if s.Device == "" {
		return errors.New("vsound: save settings: empty device")
	}
	data, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("vsound: encode settings %s: %w", s.Device, err)
	}
	if err := store.Set(ctx, SettingsKey(s.Device), data); err != nil {
		return fmt.Errorf("vsound: save settings %s: %w", s.Device, err)
	}
	return nil
}

// DeleteSettings removes the settings of device.
func DeleteSettings(ctx context.Context, store kv.Store, device string) error {
	if err := store.Delete(ctx, SettingsKey(device)); err != nil {
		return fmt.Errorf("vsound: delete settings %s: %w", device, err)
	}
	return nil
}

// ListSettings returns the settings of every device, skipping entries that
// do not decode.
func ListSettings(ctx context.Context, store kv.Store) ([]Settings, error) {
	var all []Settings
	for entry, err := range store.List(ctx, settingsPrefix) {
		if err != nil {
			return nil, fmt.Errorf("vsound: list settings: %w", err)
		}
		var s Settings
		if err := msgpack.Unmarshal(entry.Value, &s); err != nil {
			continue
		}
		all = append(all, s)
	}
	return all, nil
}

// Persister saves a device's settings in the background whenever the
// format or volume changes. Wire Notify to Config.OnChange and run Run in
// its own goroutine.
type Persister struct {
	store   kv.Store
	device  string
	log     Logger
	pending chan Snapshot
}

// NewPersister creates a Persister writing the settings of device to store.
func NewPersister(store kv.Store, device string, logger Logger) *Persister {
	if logger == nil {
		logger = DefaultLogger()
	}
	return &Persister{
		store:   store,
		device:  device,
		log:     logger,
		pending: make(chan Snapshot, 1),
	}
}

// Notify queues s for saving without blocking. Only the latest pending
// snapshot is kept.
func (p *Persister) Notify(s Snapshot) {
	for {
		select {
		case p.pending <- s:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

// Run saves queued snapshots until ctx is done, then flushes the last one.
func (p *Persister) Run(ctx context.Context) error {
	var last *Settings
	if s, err := LoadSettings(ctx, p.store, p.device); err == nil {
		last = s
	}
	save := func(ctx context.Context, snap Snapshot) {
		if last != nil && last.Format == snap.Format && last.Volume == snap.Volume {
			return
		}
		s := &Settings{
			Device:    p.device,
			Format:    snap.Format,
			Volume:    snap.Volume,
			UpdatedAt: time.Now(),
		}
		if err := SaveSettings(ctx, p.store, s); err != nil {
			p.log.WarnPrintf("%v", err)
			return
		}
		last = s
		p.log.DebugPrintf("saved settings %s: %s", p.device, s.Format)
	}

	for {
		select {
		case <-ctx.Done():
			select {
			case snap := <-p.pending:
				save(context.WithoutCancel(ctx), snap)
			default:
			}
			return nil
		case snap := <-p.pending:
			save(ctx, snap)
		}
	}
}
