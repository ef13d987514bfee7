package maneuver

import (
	"math"
	"testing"
)

type driveCmd struct {
	left, right float64
}

type recorder struct {
	cmds []driveCmd
}

func (r *recorder) Drive(left, right float64) {
	r.cmds = append(r.cmds, driveCmd{left, right})
}

type fakeNav struct {
	heading, chord float64
}

func (n *fakeNav) Heading() float64 { return n.heading }
func (n *fakeNav) Chord() float64 { return n.chord }

type constSource float64

func (s constSource) Get() float64 { return float64(s) }

type propController struct {
	kp                   float64
	lastSP, lastFeedback float64
}

func (c *propController) Update(setpoint, feedback float64) float64 {
	c.lastSP, c.lastFeedback = setpoint, feedback
	return c.kp * (setpoint - feedback)
}

func TestLineMoveFourCycles(t *testing.T) {
	rec := &recorder{}
	nav := &fakeNav{chord: 0.05}
	m := NewLineMove(rec, nav, 0.2, 20)

	for i := 1; i <= 4; i++ {
		if s := m.Step(); s != Active {
			t.Fatalf("step %d returned %v, expected active", i, s)
		}
	}
	if s := m.Step(); s != Complete {
		t.Fatalf("step 5 returned %v, expected complete", s)
	}
	if len(rec.cmds) != 4 {
		t.Fatalf("drove %d times, expected 4", len(rec.cmds))
	}
	for i, c := range rec.cmds {
		if c != (driveCmd{20, 20}) {
			t.Errorf("command %d = %+v, expected (20, 20)", i, c)
		}
	}
	if m.Travelled() != 0 {
		t.Errorf("accumulator not reset on completion: %v", m.Travelled())
	}
}

func TestLineMoveZeroTarget(t *testing.T) {
	rec := &recorder{}
	m := NewLineMove(rec, &fakeNav{chord: 0.05}, 0, 20)
	if s := m.Step(); s != Complete {
		t.Fatalf("zero-length move returned %v", s)
	}
	if len(rec.cmds) != 0 {
		t.Fatalf("zero-length move drove the motors")
	}
}

func TestTurnCompletesWithinTolerance(t *testing.T) {
	rec := &recorder{}
	nav := &fakeNav{}
	m := NewTurn(rec, nav, math.Pi/2)

	const step = 0.0004
	steps := 0
	for {
		s := m.Step()
		remaining := math.Abs(math.Pi/2 - nav.heading)
		if s == Complete {
			if remaining > TurnTolerance {
				t.Fatalf("completed %v rad from target", remaining)
			}
			break
		}
		if remaining <= TurnTolerance {
			t.Fatalf("still active %v rad from target", remaining)
		}
		steps++
		if steps > 10000 {
			t.Fatalf("turn never completed")
		}
		nav.heading += step
	}
	if math.Abs(m.Target()-math.Pi/2) > 1e-12 {
		t.Errorf("target %v, expected π/2", m.Target())
	}
	for _, c := range rec.cmds {
		if c != (driveCmd{-DefaultTurnDuty, DefaultTurnDuty}) {
			t.Fatalf("positive turn drove %+v", c)
		}
	}

	// Latched: moving away again does not reactivate it.
	nav.heading += 0.5
	if s := m.Step(); s != Complete {
		t.Fatalf("turn reactivated after completing")
	}
}

func TestTurnNegativeWrapsTarget(t *testing.T) {
	rec := &recorder{}
	nav := &fakeNav{heading: 0.2}
	m := NewTurn(rec, nav, -math.Pi/2)
	if s := m.Step(); s != Active {
		t.Fatalf("first step returned %v", s)
	}
	expected := 0.2 - math.Pi/2 + 2*math.Pi
	if math.Abs(m.Target()-expected) > 1e-12 {
		t.Fatalf("target %v, expected %v", m.Target(), expected)
	}
	if rec.cmds[0] != (driveCmd{DefaultTurnDuty, -DefaultTurnDuty}) {
		t.Fatalf("negative turn drove %+v", rec.cmds[0])
	}

	// Arriving from just above 0 across the wrap.
	nav.heading = expected + 0.0005
	if s := m.Step(); s != Complete {
		t.Fatalf("turn within tolerance returned %v", s)
	}
}

func TestTurnOvershoot(t *testing.T) {
	nav := &fakeNav{}
	literal := NewTurn(&recorder{}, nav, 0.1)
	stopping := NewTurn(&recorder{}, nav, 0.1)
	stopping.StopOnOvershoot = true

	literal.Step()
	stopping.Step()
	// Step straight past the target.
	nav.heading = 0.15
	if s := literal.Step(); s != Active {
		t.Errorf("literal turn stopped on overshoot")
	}
	if s := stopping.Step(); s != Complete {
		t.Errorf("turn with StopOnOvershoot kept going after overshoot")
	}
}

// spin steps m, turning nav by step each cycle in the direction it drives,
// and returns how far the robot turned before the turn completed.
func spin(t *testing.T, m *Turn, rec *recorder, nav *fakeNav, step float64) float64 {
	t.Helper()
	turned := 0.0
	for i := 0; i < 100000; i++ {
		if m.Step() == Complete {
			return turned
		}
		c := rec.cmds[len(rec.cmds)-1]
		d := step
		if c.right < c.left {
			d = -step
		}
		turned += d
		nav.heading = math.Mod(nav.heading+d+2*math.Pi, 2*math.Pi)
	}
	t.Fatalf("%s never completed", m.Name())
	return 0
}

func TestTurnBeyondHalfCircle(t *testing.T) {
	for _, test := range []struct {
		angle float64
		stop  bool
		step  float64
		tol   float64
	}{
		{-math.Pi, true, 0.01, 0.01},
		{-math.Pi, false, 0.0004, TurnTolerance},
		{3 * math.Pi / 2, true, 0.01, 0.01},
		{3 * math.Pi / 2, false, 0.0004, TurnTolerance},
		{-3 * math.Pi / 2, true, 0.01, 0.01},
		{-3 * math.Pi / 2, false, 0.0004, TurnTolerance},
	} {
		rec := &recorder{}
		nav := &fakeNav{heading: 1.0}
		m := NewTurn(rec, nav, test.angle)
		m.StopOnOvershoot = test.stop
		turned := spin(t, m, rec, nav, test.step)
		if math.Abs(turned-test.angle) > test.tol {
			t.Errorf("Turn(%.4f) stop=%v turned %.4f", test.angle, test.stop, turned)
		}
	}
}

func TestTurnGoesRoundAgainAfterOvershoot(t *testing.T) {
	rec := &recorder{}
	nav := &fakeNav{}
	m := NewTurn(rec, nav, 0.1)
	m.Step()
	nav.heading = 0.15
	if s := m.Step(); s != Active {
		t.Fatalf("overshoot returned %v", s)
	}
	// Keeps turning the same way, all the way round to the target.
	turned := 0.15 + spin(t, m, rec, nav, 0.0004)
	if math.Abs(turned-(0.1+2*math.Pi)) > TurnTolerance {
		t.Errorf("turned %.4f, expected one extra revolution", turned)
	}
}

func TestLineFollowSteers(t *testing.T) {
	rec := &recorder{}
	ctrl := &propController{kp: 0.5}
	m := NewLineFollow(rec, constSource(0.4), ctrl, 20)

	for i := 0; i < 3; i++ {
		if s := m.Step(); s != Active {
			t.Fatalf("line follow returned %v", s)
		}
	}
	if ctrl.lastSP != 0 || ctrl.lastFeedback != 0.4 {
		t.Errorf("controller got setpoint %v feedback %v", ctrl.lastSP, ctrl.lastFeedback)
	}
	// cs = -0.2
	last := rec.cmds[len(rec.cmds)-1]
	if math.Abs(last.left-24) > 1e-9 || math.Abs(last.right-16) > 1e-9 {
		t.Errorf("drove %+v, expected (24, 16)", last)
	}
}
