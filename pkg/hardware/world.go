package hardware

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/config"
)

// LineSigma is how quickly a sensor's reading falls off either side of the
// tape, in metres.
const LineSigma = 0.012

// Track is the tape on the floor.
type Track interface {
	// Reflectance at p: 0 is bare floor, 1 is squarely on the tape.
	Reflectance(p r2.Vec) float64
}

func lineResponse(offset float64) float64 {
	return math.Exp(-offset * offset / (2 * LineSigma * LineSigma))
}

// CircleTrack is a closed loop of tape.
type CircleTrack struct {
	Centre r2.Vec
	Radius float64
}

func (c CircleTrack) Reflectance(p r2.Vec) float64 {
	return lineResponse(r2.Norm(r2.Sub(p, c.Centre)) - c.Radius)
}

// StraightTrack runs along the x axis from StartX to EndX and finishes with a
// solid bar FinishDepth deep.  Beyond EndX there is nothing.
type StraightTrack struct {
	StartX, EndX float64
	FinishDepth  float64
	FinishWidth  float64
}

func (s StraightTrack) Reflectance(p r2.Vec) float64 {
	if p.X < s.StartX || p.X > s.EndX {
		return 0
	}
	if p.X >= s.EndX-s.FinishDepth && math.Abs(p.Y) <= s.FinishWidth/2 {
		return 1
	}
	return lineResponse(p.Y)
}

// Obstacle is a round box the distance sensor can see.
type Obstacle struct {
	Centre r2.Vec
	Radius float64
}

type World struct {
	Track     Track
	Obstacles []Obstacle
}

// CircleWorld is a loop of the given radius that the robot starts on,
// pointing anticlockwise.
func CircleWorld(radius float64) World {
	return World{Track: CircleTrack{Centre: r2.Vec{Y: radius}, Radius: radius}}
}

// CourseWorld is a straight run with a box in the way and a finish bar at the
// end.
func CourseWorld() World {
	return World{
		Track: StraightTrack{StartX: -0.5, EndX: 2.0, FinishDepth: 0.03, FinishWidth: 0.2},
		Obstacles: []Obstacle{
			{Centre: r2.Vec{X: 1.0}, Radius: 0.05},
		},
	}
}

// WorldFor picks the world a mission is meant to be run in.
func WorldFor(mission string) World {
	if mission == config.MissionCourse {
		return CourseWorld()
	}
	return CircleWorld(0.4)
}

// RangeMM is the distance along the unit vector dir from p to the nearest
// obstacle, or +Inf if nothing is in the way.
func (w World) RangeMM(p, dir r2.Vec) float64 {
	nearest := math.Inf(1)
	for _, o := range w.Obstacles {
		f := r2.Sub(p, o.Centre)
		b := r2.Dot(f, dir)
		c := r2.Dot(f, f) - o.Radius*o.Radius
		if c <= 0 {
			return 0 // inside it
		}
		disc := b*b - c
		if disc < 0 {
			continue
		}
		if t := -b - math.Sqrt(disc); t >= 0 && t < nearest {
			nearest = t
		}
	}
	return nearest * 1000
}
