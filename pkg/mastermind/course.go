package mastermind

import (
	"fmt"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/config"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/maneuver"
)

type LegKind int

const (
	// LegFollowUntilObstacle follows the line while the distance sensor reads
	// more than Value mm.
	LegFollowUntilObstacle LegKind = iota
	// LegTurn turns on the spot by Value radians.
	LegTurn
	// LegMove drives straight for Value metres.
	LegMove
	// LegFollowUntilFinish follows the line until the finish flag is raised,
	// then clears it.
	LegFollowUntilFinish
	// LegReturnHome is replaced, when reached, by a turn towards the origin
	// and a move of the remaining distance.
	LegReturnHome
)

func (k LegKind) String() string {
	switch k {
	case LegFollowUntilObstacle:
		return "FollowUntilObstacle"
	case LegTurn:
		return "Turn"
	case LegMove:
		return "Move"
	case LegFollowUntilFinish:
		return "FollowUntilFinish"
	case LegReturnHome:
		return "ReturnHome"
	}
	return fmt.Sprintf("LegKind(%d)", int(k))
}

type Leg struct {
	Kind  LegKind
	Value float64
}

func (l Leg) String() string {
	return fmt.Sprintf("%v(%.3f)", l.Kind, l.Value)
}

// DefaultCourse is the obstacle detour: follow the line up to the box, step
// out to the left, drive past it, step back in and pick the line up again.
func DefaultCourse(c config.Course) []Leg {
	legs := []Leg{
		{Kind: LegFollowUntilObstacle, Value: c.ObstacleMM},
		{Kind: LegTurn, Value: c.TurnAngle},
		{Kind: LegMove, Value: c.Sidestep},
		{Kind: LegTurn, Value: -c.TurnAngle},
		{Kind: LegMove, Value: c.Pass},
		{Kind: LegTurn, Value: -c.TurnAngle},
		{Kind: LegMove, Value: c.Sidestep},
		{Kind: LegTurn, Value: c.TurnAngle},
		{Kind: LegFollowUntilFinish},
	}
	if c.ReturnHome {
		legs = append(legs, Leg{Kind: LegReturnHome})
	}
	return legs
}

// SetCourse replaces the course script.  It takes effect the next time the
// course starts; a run already under way keeps its own legs.
func (m *MasterMind) SetCourse(legs []Leg) {
	m.course = append([]Leg(nil), legs...)
}

// Leg returns the index of the course leg in progress.
func (m *MasterMind) Leg() int {
	return m.leg
}

// stepCourse runs the current leg.  A leg whose exit condition is already met
// hands over to the next leg in the same cycle; a maneuver that reports
// Complete uses up the cycle.
func (m *MasterMind) stepCourse() {
	for m.leg < len(m.run) {
		leg := m.run[m.leg]
		if leg.Kind == LegReturnHome {
			home := m.homeLegs()
			m.homing = true
			rest := append(home, m.run[m.leg+1:]...)
			m.run = append(m.run[:m.leg:m.leg], rest...)
			continue
		}
		if m.current == nil {
			m.current = m.startLeg(leg)
			fmt.Printf("MM: leg %d %v\n", m.leg, leg)
		}

		switch leg.Kind {
		case LegFollowUntilObstacle:
			if m.shares.Distance.Get() > leg.Value {
				m.current.Step()
				m.logPose()
				return
			}
			fmt.Printf("MM: obstacle at %.0fmm\n", m.shares.Distance.Get())
		case LegFollowUntilFinish:
			if m.shares.Finish.IsClear() {
				m.current.Step()
				m.logPose()
				return
			}
			fmt.Println("MM: finish line")
			m.shares.Finish.Clear()
		case LegTurn, LegMove:
			status := m.current.Step()
			m.logPose()
			if status == maneuver.Complete {
				m.nextLeg()
			}
			return
		default:
			panic(fmt.Sprintf("mastermind: invalid course leg %v", leg))
		}
		m.nextLeg()
	}

	fmt.Println("MM: course complete")
	m.finishManeuver()
}

func (m *MasterMind) nextLeg() {
	m.current = nil
	m.leg++
}

func (m *MasterMind) startLeg(leg Leg) maneuver.Maneuver {
	switch leg.Kind {
	case LegFollowUntilObstacle, LegFollowUntilFinish:
		return m.lineFollow()
	case LegTurn:
		return m.NewTurn(leg.Value)
	case LegMove:
		return m.NewLineMove(leg.Value)
	}
	panic(fmt.Sprintf("mastermind: invalid course leg %v", leg))
}
