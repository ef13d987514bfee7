package hardware

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/bno055"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/config"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/linesensor"
)

func newDummy(world World) *Dummy {
	return NewDummy(config.Default().Robot, 10*time.Millisecond, world)
}

func expectNear(t *testing.T, desc string, got, expected, tol float64) {
	t.Helper()
	if math.Abs(got-expected) > tol {
		t.Errorf("%s = %v, expected %v", desc, got, expected)
	}
}

func drive(d *Dummy, left, right float64, steps int) {
	for i, effort := range []float64{left, right} {
		m := d.LeftMotor()
		if i == 1 {
			m = d.RightMotor()
		}
		_ = m.SetReverse(effort < 0)
		_ = m.SetEffort(math.Abs(effort))
	}
	for i := 0; i < steps; i++ {
		d.Step()
	}
}

func TestDriveStraight(t *testing.T) {
	d := newDummy(CircleWorld(0.4))
	// 50% is 4 rad/s at the wheel; one second of it.
	drive(d, 50, 50, 100)

	pos, heading := d.Pose()
	expectNear(t, "x", pos.X, 4*0.035, 1e-9)
	expectNear(t, "y", pos.Y, 0, 1e-9)
	expectNear(t, "heading", heading, 0, 1e-9)

	count, err := d.LeftEncoder().Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 916 {
		t.Errorf("left count %d, expected 916", count)
	}
}

func TestReverseCountsDown(t *testing.T) {
	d := newDummy(CircleWorld(0.4))
	drive(d, -50, -50, 10)

	pos, _ := d.Pose()
	if pos.X >= 0 {
		t.Errorf("reversing moved to %v", pos)
	}
	count, _ := d.RightEncoder().Count()
	if count < 65000 {
		t.Errorf("right count %d, expected it to wrap below zero", count)
	}
}

func TestSpinMatchesIMU(t *testing.T) {
	d := newDummy(CircleWorld(0.4))
	drive(d, -50, 50, 100)

	pos, heading := d.Pose()
	expected := 2 * 4 * 0.035 / 0.141
	expectNear(t, "heading", heading, expected, 1e-9)
	if r2.Norm(pos) > 1e-9 {
		t.Errorf("spinning in place moved to %v", pos)
	}

	s, err := d.IMU().Read()
	if err != nil {
		t.Fatal(err)
	}
	expectNear(t, "heading from compass", bno055.Heading(compassAtStart, s.EulerX), expected, 1e-9)
	expectNear(t, "turn rate", s.RateZ, expected, 1e-9)
}

func TestLineSensorsOnStraightTrack(t *testing.T) {
	d := newDummy(CourseWorld())
	adc := d.LineADC()
	read := func(ch int) uint16 {
		v, err := adc.Read(ch)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}
	if v := read(2); v != linesensor.FullScale {
		t.Errorf("centre sensor read %d over the tape", v)
	}
	if read(0) != read(4) {
		t.Errorf("outer sensors differ: %d vs %d", read(0), read(4))
	}
	if v := read(0); v > linesensor.FullScale/20 {
		t.Errorf("outer sensor read %d, expected nearly nothing", v)
	}
	if v := read(5); v != 0 {
		t.Errorf("channel 5 read %d", v)
	}
}

func TestRangefinder(t *testing.T) {
	for _, test := range []struct {
		name  string
		world World
		mm    float64
	}{
		{"box ahead", CourseWorld(), 1000 - 70 - 50},
		{"nothing", CircleWorld(0.4), rangeLimitMM},
	} {
		d := newDummy(test.world)
		width, ok := d.Rangefinder().PulseWidth()
		if !ok {
			t.Fatalf("%s: no pulse", test.name)
		}
		us := float64(width) / float64(time.Microsecond)
		expectNear(t, test.name, 0.75*(us-1000), test.mm, 0.01)
	}
}

func TestStraightTrackEnds(t *testing.T) {
	track := CourseWorld().Track
	for _, test := range []struct {
		p        r2.Vec
		expected float64
	}{
		{r2.Vec{X: 0.5}, 1},
		{r2.Vec{X: 1.99, Y: 0.05}, 1},
		{r2.Vec{X: 2.01}, 0},
		{r2.Vec{X: -0.6}, 0},
	} {
		expectNear(t, "reflectance", track.Reflectance(test.p), test.expected, 1e-9)
	}
}

func TestShutdownStopsMotors(t *testing.T) {
	d := newDummy(CircleWorld(0.4))
	drive(d, 50, 50, 10)
	d.Shutdown()
	before, _ := d.Pose()
	d.Step()
	after, _ := d.Pose()
	if before != after {
		t.Errorf("moved from %v to %v after shutdown", before, after)
	}
}
