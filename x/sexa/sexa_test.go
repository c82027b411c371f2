package sexa

import (
	"math"
	"testing"
)

func TestHMSOf(t *testing.T) {
	tests := []struct {
		hours float64
		want  HMS
	}{
		{0, HMS{0, 0, 0}},
		{12.5, HMS{12, 30, 0}},
		{6.752477, HMS{6, 45, 8.9172}},
		{23.999999, HMS{23, 59, 59.9964}},
	}
	for _, tt := range tests {
		got := HMSOf(tt.hours)
		if got.Hour != tt.want.Hour || got.Min != tt.want.Min ||
			math.Abs(got.Sec-tt.want.Sec) > 1e-3 {
			t.Errorf("HMSOf(%v) = %+v, want %+v", tt.hours, got, tt.want)
		}
	}
}

func TestDMSOf(t *testing.T) {
	got := DMSOf(-16.716116)
	if got.Deg != -17 {
		t.Errorf("DMSOf floor deg = %d, want -17", got.Deg)
	}
	if got.Min < 0 || got.Sec < 0 {
		t.Errorf("DMSOf components = %+v, want non-negative min/sec", got)
	}
}

func TestString(t *testing.T) {
	if got, want := HMSOf(12.5).String(), "12h 30m 0.00s"; got != want {
		t.Errorf("HMS string = %q, want %q", got, want)
	}
	if got, want := DMSOf(41.269065).String(), "41° 16′ 8.63″"; got != want {
		t.Errorf("DMS string = %q, want %q", got, want)
	}
}
