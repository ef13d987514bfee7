// Package mastermind is the robot's top-level decision task.  Every cycle it
// updates dead reckoning and then advances a small state machine that steps
// at most one maneuver.
package mastermind

import (
	"fmt"
	"math"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/angle"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/config"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/deadreck"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/maneuver"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/share"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

type State int

const (
	StateInit State = iota
	StateIdle
	StateManeuverSequence
	StateLineFollowLoop
	StateCourseRun
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateIdle:
		return "Idle"
	case StateManeuverSequence:
		return "ManeuverSequence"
	case StateLineFollowLoop:
		return "LineFollowLoop"
	case StateCourseRun:
		return "CourseRun"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Shares are the cells MasterMind reads and writes.  It is the only writer of
// LeftDuty, RightDuty and ZeroHeading, and it clears CalibrationDone and
// Finish once it has acted on them.
type Shares struct {
	Heading         *share.Share[float64] // rad, [0, 2π)
	EulerX          *share.Share[float64]
	CalibrationDone *share.Flag
	ZeroHeading     *share.Flag

	LineValue *share.Share[float64]
	Finish    *share.Flag
	Distance  *share.Share[float64] // mm

	LeftDelta, RightDelta       *share.Share[float64] // rad this cycle
	LeftVelocity, RightVelocity *share.Share[float64] // rad/s

	LeftDuty, RightDuty *share.Share[float64]
}

// LineController is the closed-loop controller used by the line follower.
type LineController interface {
	maneuver.Controller
	SetKp(kp float64) error
}

type MasterMind struct {
	shares  Shares
	control LineController
	est     *deadreck.Estimator

	mission    string
	kp         float64
	baseSpeed  float64
	courseCfg  config.Course
	landmarkX  float64
	verbose    bool
	printEvery int

	state        State
	current      maneuver.Maneuver
	pending      maneuver.Maneuver
	landmarkSeen bool
	homing       bool

	// course is the script; run is the copy being worked through, with any
	// ReturnHome leg expanded in place.
	course []Leg
	run    []Leg
	leg    int

	cycles int
}

func New(cfg config.Config, shares Shares, control LineController) (*MasterMind, error) {
	if control == nil {
		return nil, errors.New("mastermind: no line controller")
	}
	if cfg.LineFollow.Kp <= 0 {
		return nil, errors.Errorf("mastermind: line-follow Kp must be positive, got %v", cfg.LineFollow.Kp)
	}
	switch cfg.Mission {
	case config.MissionCircle, config.MissionCourse, config.MissionIdle:
	default:
		return nil, errors.Errorf("mastermind: unknown mission %q", cfg.Mission)
	}
	for name, s := range map[string]*share.Share[float64]{
		"Heading": shares.Heading, "EulerX": shares.EulerX, "LineValue": shares.LineValue,
		"Distance": shares.Distance, "LeftDelta": shares.LeftDelta, "RightDelta": shares.RightDelta,
		"LeftVelocity": shares.LeftVelocity, "RightVelocity": shares.RightVelocity,
		"LeftDuty": shares.LeftDuty, "RightDuty": shares.RightDuty,
	} {
		if s == nil {
			return nil, errors.Errorf("mastermind: share %s not wired", name)
		}
	}
	if shares.CalibrationDone == nil || shares.ZeroHeading == nil || shares.Finish == nil {
		return nil, errors.New("mastermind: flags not wired")
	}

	return &MasterMind{
		shares:     shares,
		control:    control,
		est:        deadreck.NewEstimator(cfg.Robot.WheelRadius, cfg.Robot.Wheelbase),
		mission:    cfg.Mission,
		kp:         cfg.LineFollow.Kp,
		baseSpeed:  cfg.LineFollow.BaseSpeed,
		courseCfg:  cfg.Course,
		landmarkX:  cfg.Course.LandmarkX,
		verbose:    cfg.Verbose,
		printEvery: 10,
		state:      StateInit,
		course:     DefaultCourse(cfg.Course),
	}, nil
}

// Step is the task body.
func (m *MasterMind) Step() {
	m.cycles++
	m.est.Update(m.shares.Heading.Get(),
		deadreck.WheelSample{Delta: m.shares.LeftDelta.Get(), Velocity: m.shares.LeftVelocity.Get()},
		deadreck.WheelSample{Delta: m.shares.RightDelta.Get(), Velocity: m.shares.RightVelocity.Get()},
	)

	switch m.state {
	case StateInit:
		m.stepInit()
	case StateIdle:
		m.Drive(0, 0)
		if m.pending != nil {
			m.current, m.pending = m.pending, nil
			fmt.Printf("MM: starting %s\n", m.current.Name())
			m.setState(StateManeuverSequence)
		}
	case StateManeuverSequence:
		status := m.current.Step()
		m.logPose()
		if status == maneuver.Complete {
			m.finishManeuver()
		}
	case StateLineFollowLoop:
		m.current.Step()
		m.logPose()
		x := m.est.Pose().Position.X
		if !m.landmarkSeen && x < -m.landmarkX {
			fmt.Println("MM: passed the far side of the circle")
			m.landmarkSeen = true
		} else if m.landmarkSeen && x > 0 {
			m.landmarkSeen = false
			m.finishManeuver()
		}
	case StateCourseRun:
		m.stepCourse()
	default:
		panic(fmt.Sprintf("mastermind: invalid state %v", m.state))
	}
}

func (m *MasterMind) stepInit() {
	m.Drive(0, 0)
	if m.shares.CalibrationDone.IsClear() || m.shares.EulerX.Get() == 0 {
		return
	}
	m.shares.CalibrationDone.Clear()
	m.shares.ZeroHeading.Put()
	if err := m.control.SetKp(m.kp); err != nil {
		// Checked in New.
		panic(err)
	}

	switch m.mission {
	case config.MissionCircle:
		m.current = m.lineFollow()
		m.setState(StateLineFollowLoop)
	case config.MissionCourse:
		m.run = append([]Leg(nil), m.course...)
		m.leg = 0
		m.current = nil
		m.setState(StateCourseRun)
	default:
		m.setState(StateIdle)
	}
}

func (m *MasterMind) finishManeuver() {
	m.current = nil
	m.homing = false
	m.Drive(0, 0)
	m.setState(StateIdle)
}

func (m *MasterMind) setState(s State) {
	fmt.Printf("MM: %v -> %v at %v\n", m.state, s, m.est.Pose())
	m.state = s
}

func (m *MasterMind) logPose() {
	if !m.verbose || m.cycles%m.printEvery != 0 {
		return
	}
	fmt.Printf("MM: %v\n", m.est.Pose())
}

// Drive writes the motor duty shares.
func (m *MasterMind) Drive(left, right float64) {
	m.shares.LeftDuty.Put(left)
	m.shares.RightDuty.Put(right)
}

// Request queues a maneuver.  It starts the next time MasterMind is Idle;
// a later request replaces one that has not started yet.
func (m *MasterMind) Request(man maneuver.Maneuver) {
	m.pending = man
}

// Navigator gives maneuvers built outside this package access to the same
// dead reckoning MasterMind uses.
func (m *MasterMind) Navigator() maneuver.Navigator {
	return m.est
}

func (m *MasterMind) NewLineMove(target float64) *maneuver.LineMove {
	return maneuver.NewLineMove(m, m.est, target, m.courseCfg.MoveSpeed)
}

func (m *MasterMind) NewTurn(relAngle float64) *maneuver.Turn {
	t := maneuver.NewTurn(m, m.est, relAngle)
	t.Speed = m.courseCfg.TurnDuty
	t.StopOnOvershoot = m.courseCfg.StopTurnOnOvershoot
	return t
}

func (m *MasterMind) lineFollow() *maneuver.LineFollow {
	return maneuver.NewLineFollow(m, m.shares.LineValue, m.control, m.baseSpeed)
}

func (m *MasterMind) State() State {
	return m.state
}

func (m *MasterMind) Pose() deadreck.Pose {
	return m.est.Pose()
}

// Homing reports whether the course run is on its way back to the origin.
func (m *MasterMind) Homing() bool {
	return m.homing
}

// Current is the maneuver being stepped, if any.
func (m *MasterMind) Current() maneuver.Maneuver {
	return m.current
}

// homeLegs plans the way back to the origin from the current pose.
func (m *MasterMind) homeLegs() []Leg {
	pose := m.est.Pose()
	toHome := r2.Scale(-1, pose.Position)
	dist := r2.Norm(toHome)
	if dist < maneuver.DistanceEpsilon {
		return nil
	}
	bearing := math.Atan2(toHome.Y, toHome.X)
	turn := angle.FromFloat(bearing - pose.Heading).Float()
	fmt.Printf("MM: heading home, turn %.3f rad then %.3f m\n", turn, dist)
	return []Leg{
		{Kind: LegTurn, Value: turn},
		{Kind: LegMove, Value: dist},
	}
}
