package vsound

const (
	// guestVolumeOffset and guestVolumeScale map the guest's signed volume
	// onto 0..255: -6291456 is silent, 0 is full scale.
	guestVolumeOffset = 6291456
	guestVolumeScale  = 6291456
)

// HostVolume converts a guest SET_VOLUME value to the host 0..255 scale,
// clamping at both ends.
func HostVolume(guest int32) uint8 {
	v := (int64(guest) + guestVolumeOffset) * 255 / guestVolumeScale
	return uint8(min(max(v, 0), 255))
}
