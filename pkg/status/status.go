// Package status is the lowest priority task: it mirrors MasterMind's
// progress onto the screen and plays a cue when a run starts or ends.
package status

import (
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/deadreck"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/maneuver"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/mastermind"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/screen"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/share"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/sound"
)

// Robot is the part of MasterMind the status task watches.
type Robot interface {
	State() mastermind.State
	Pose() deadreck.Pose
	Current() maneuver.Maneuver
	Homing() bool
}

type Output interface {
	ShowStatus(s screen.Status)
	PlaySound(cue string)
}

type Shares struct {
	Distance                  *share.Share[float64]
	LeftEnabled, RightEnabled *share.Share[bool]
}

type Task struct {
	robot  Robot
	out    Output
	shares Shares

	lastState  mastermind.State
	lastHoming bool
}

func New(robot Robot, out Output, shares Shares) *Task {
	return &Task{
		robot:     robot,
		out:       out,
		shares:    shares,
		lastState: mastermind.StateInit,
	}
}

// Step is the task body.
func (t *Task) Step() {
	state := t.robot.State()
	homing := t.robot.Homing()
	if cue, ok := cueFor(t.lastState, state); ok {
		t.out.PlaySound(cue)
	} else if homing && !t.lastHoming {
		t.out.PlaySound(sound.Home)
	}
	t.lastState, t.lastHoming = state, homing

	pose := t.robot.Pose()
	st := screen.Status{
		State:         state.String(),
		X:             pose.Position.X,
		Y:             pose.Position.Y,
		Heading:       pose.Heading,
		DistanceMM:    t.shares.Distance.Get(),
		MotorsEnabled: t.shares.LeftEnabled.Get() && t.shares.RightEnabled.Get(),
	}
	if m := t.robot.Current(); m != nil {
		st.Leg = m.Name()
	}
	t.out.ShowStatus(st)
}

func cueFor(from, to mastermind.State) (string, bool) {
	if from == to {
		return "", false
	}
	switch {
	case from == mastermind.StateInit:
		return sound.Start, true
	case to == mastermind.StateIdle:
		return sound.Finish, true
	}
	return "", false
}
