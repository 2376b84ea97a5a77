package vsound

import "testing"

func TestHostVolume(t *testing.T) {
	tests := []struct {
		guest int32
		want  uint8
	}{
		{-6291456, 0},
		{-3145728, 127},
		{0, 255},
		{-7000000, 0},
		{-2147483648, 0},
		{1000, 255},
		{2147483647, 255},
	}
	for _, tt := range tests {
		if got := HostVolume(tt.guest); got != tt.want {
			t.Errorf("HostVolume(%d) got=%d want=%d", tt.guest, got, tt.want)
		}
	}
}

func TestHostVolumeMonotonic(t *testing.T) {
	prev := HostVolume(-8000000)
	for v := int32(-8000000); v <= 100000; v += 4099 {
		got := HostVolume(v)
		if got < prev {
			t.Fatalf("HostVolume(%d)=%d < previous %d", v, got, prev)
		}
		prev = got
	}
}
