package lidar

import (
	"testing"
	"time"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/share"
)

type fakePulse struct {
	width time.Duration
	ok    bool
}

func (f *fakePulse) PulseWidth() (time.Duration, bool) {
	return f.width, f.ok
}

func TestDistance(t *testing.T) {
	for _, tc := range []struct {
		width    time.Duration
		expected float64
	}{
		{1000 * time.Microsecond, 0},
		{1040 * time.Microsecond, 30},
		{2000 * time.Microsecond, 750},
	} {
		if d := DistanceMM(tc.width); d != tc.expected {
			t.Errorf("DistanceMM(%v) = %v, expected %v", tc.width, d, tc.expected)
		}
	}
}

func TestHoldsNoReadingUntilFirstPulse(t *testing.T) {
	dist := share.New[float64]("distance")
	src := &fakePulse{}
	l := New(src, dist)
	l.Step()
	if dist.Get() != NoReading {
		t.Fatalf("distance %v before first pulse, expected %v", dist.Get(), NoReading)
	}

	src.width, src.ok = 1400*time.Microsecond, true
	l.Step()
	if dist.Get() != 300 {
		t.Fatalf("distance %v, expected 300", dist.Get())
	}
}
