// Package deadreck tracks the robot's position from heading changes and wheel
// travel.
package deadreck

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/angle"
)

// ArcEpsilon is the smallest heading change, in radians, that is treated as
// an arc.  Below it the wheels are assumed to have driven a straight line.
const ArcEpsilon = 0.001

// WheelSample is one wheel's encoder output for a cycle.
type WheelSample struct {
	Position float64 // rad
	Delta    float64 // rad since the previous sample
	Velocity float64 // rad/s
}

type Pose struct {
	Position r2.Vec // m
	Heading  float64
}

func (p Pose) String() string {
	return fmt.Sprintf("X = %.4f; Y = %.4f; phi = %.4f", p.Position.X, p.Position.Y, p.Heading)
}

// Step is the outcome of one cycle of dead reckoning.
type Step struct {
	Theta float64 // heading change, rad
	Chord float64 // m
	Move  r2.Vec  // world frame
}

// Estimate computes how far the robot moved between two headings given the
// arc length travelled by each wheel.  Headings may wrap; the change is taken
// the short way round.
func Estimate(oldHeading, newHeading, left, right float64) Step {
	theta := angle.FromFloat(newHeading - oldHeading).Float()

	var chord float64
	if math.Abs(theta) > ArcEpsilon {
		chord = (left + right) / theta * math.Sin(theta/2)
	} else {
		chord = (left + right) / 2
	}

	// Project along the bisector of the two headings in both branches so the
	// path is continuous at the epsilon boundary.
	mean := oldHeading + theta/2
	return Step{
		Theta: theta,
		Chord: chord,
		Move:  r2.Vec{X: chord * math.Cos(mean), Y: chord * math.Sin(mean)},
	}
}

// Estimator accumulates a Pose.  It is owned by a single task.
type Estimator struct {
	WheelRadius float64
	Wheelbase   float64

	pose       Pose
	last       Step
	wheelTheta float64
}

func NewEstimator(wheelRadius, wheelbase float64) *Estimator {
	return &Estimator{
		WheelRadius: wheelRadius,
		Wheelbase:   wheelbase,
	}
}

// Update folds in one cycle of sensor data and returns the new pose.
// heading is the IMU heading in radians; left and right are the encoder
// samples for this cycle.
func (e *Estimator) Update(heading float64, left, right WheelSample) Pose {
	lL := e.WheelRadius * left.Delta
	lR := e.WheelRadius * right.Delta

	step := Estimate(e.pose.Heading, heading, lL, lR)
	e.pose.Position = r2.Add(e.pose.Position, step.Move)
	e.pose.Heading = heading
	e.last = step
	if e.Wheelbase > 0 {
		e.wheelTheta = (lR - lL) / e.Wheelbase
	}
	return e.pose
}

func (e *Estimator) Pose() Pose {
	return e.pose
}

// Chord is the path length covered in the most recent cycle.
func (e *Estimator) Chord() float64 {
	return e.last.Chord
}

// Heading is the heading used in the most recent cycle.
func (e *Estimator) Heading() float64 {
	return e.pose.Heading
}

func (e *Estimator) LastStep() Step {
	return e.last
}

// WheelTheta is the heading change implied by the encoders alone for the most
// recent cycle, for comparison against the IMU.
func (e *Estimator) WheelTheta() float64 {
	return e.wheelTheta
}

// DistanceFromOrigin is how far the robot is from where it started.
func (e *Estimator) DistanceFromOrigin() float64 {
	return r2.Norm(e.pose.Position)
}
