// Package maneuver contains the motion primitives that MasterMind strings
// together.  Each is a small state machine advanced by one Step per scheduler
// cycle; abandoning one is just a matter of not stepping it again.
package maneuver

import (
	"fmt"
	"math"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/angle"
)

type Status int

const (
	Active Status = iota
	Complete
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

type Maneuver interface {
	Step() Status
	Name() string
}

// Driver accepts signed duty percentages for the two wheels.
type Driver interface {
	Drive(left, right float64)
}

// Navigator is the view of dead reckoning that the maneuvers need.  It must
// already be up to date for the current cycle when Step is called.
type Navigator interface {
	Heading() float64
	Chord() float64
}

type Source interface {
	Get() float64
}

type Controller interface {
	Update(setpoint, feedback float64) float64
}

// DistanceEpsilon absorbs float error when summing chords to a target.
const DistanceEpsilon = 1e-9

// LineMove drives straight until the accumulated chord length reaches Target.
type LineMove struct {
	Target float64 // m
	Speed  float64 // duty %

	driver Driver
	nav    Navigator
	dist   float64
}

func NewLineMove(driver Driver, nav Navigator, target, speed float64) *LineMove {
	return &LineMove{Target: target, Speed: speed, driver: driver, nav: nav}
}

func (m *LineMove) Name() string {
	return fmt.Sprintf("LineMove(%.3fm)", m.Target)
}

func (m *LineMove) Step() Status {
	if m.dist < m.Target-DistanceEpsilon {
		m.driver.Drive(m.Speed, m.Speed)
		m.dist += m.nav.Chord()
		return Active
	}
	m.dist = 0
	return Complete
}

// Travelled is the distance covered so far.
func (m *LineMove) Travelled() float64 {
	return m.dist
}

const (
	// TurnTolerance is how close to the target heading counts as there.
	TurnTolerance   = 0.001
	DefaultTurnDuty = 15
)

// Turn spins on the spot by Angle radians.  Positive is counter-clockwise.
type Turn struct {
	Angle float64
	Speed float64

	// StopOnOvershoot also completes the turn if the heading steps past the
	// target in a single cycle without landing inside TurnTolerance.
	StopOnOvershoot bool

	driver  Driver
	nav     Navigator
	started bool
	done    bool
	target  angle.Heading
	last    angle.Heading
	// Rotation so far, in the turn's own direction.  Short-way steps between
	// cycles are summed so a turn past ±π is not mistaken for an overshoot.
	rotated float64
}

func NewTurn(driver Driver, nav Navigator, relAngle float64) *Turn {
	return &Turn{Angle: relAngle, Speed: DefaultTurnDuty, driver: driver, nav: nav}
}

func (m *Turn) Name() string {
	return fmt.Sprintf("Turn(%.3frad)", m.Angle)
}

// Target is the absolute heading the turn is aiming for.  It is fixed on the
// first Step, not at construction.
func (m *Turn) Target() float64 {
	return m.target.Float()
}

func (m *Turn) Step() Status {
	if m.done {
		return Complete
	}
	heading := angle.HeadingFromFloat(m.nav.Heading())
	if !m.started {
		m.target = heading.AddFloat(m.Angle)
		m.last = heading
		m.started = true
	}
	m.rotated += heading.Sub(m.last).Float()
	m.last = heading

	if math.Abs(m.target.Sub(heading).Float()) <= TurnTolerance {
		m.done = true
		return Complete
	}
	dir := 1.0
	if m.Angle < 0 {
		dir = -1
	}
	if (m.Angle-m.rotated)*dir < 0 {
		// Stepped past the target without landing on it.
		if m.StopOnOvershoot {
			m.done = true
			return Complete
		}
		m.rotated -= dir * angle.TwoPi
	}

	if dir > 0 {
		m.driver.Drive(-m.Speed, m.Speed)
	} else {
		m.driver.Drive(m.Speed, -m.Speed)
	}
	return Active
}

// LineFollow steers along the line using the weighted line-sensor value.  It
// never completes; the owner decides when to stop stepping it.
type LineFollow struct {
	Speed float64

	driver  Driver
	sensor  Source
	control Controller
}

func NewLineFollow(driver Driver, sensor Source, control Controller, speed float64) *LineFollow {
	return &LineFollow{Speed: speed, driver: driver, sensor: sensor, control: control}
}

func (m *LineFollow) Name() string {
	return "LineFollow"
}

func (m *LineFollow) Step() Status {
	cs := m.control.Update(0, m.sensor.Get())
	m.driver.Drive(m.Speed*(1-cs), m.Speed*(1+cs))
	return Active
}
