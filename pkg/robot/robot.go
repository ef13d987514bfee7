// Package robot wires the device tasks, the line controller and MasterMind
// together around one set of shares and registers them with the scheduler.
package robot

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/bno055"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/config"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/cotask"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/encoder"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/hardware"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/lidar"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/linecl"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/linesensor"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/mastermind"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/motor"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/share"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/status"
)

const (
	prioritySimulation = 0
	priorityControl    = 1
	priorityStatus     = 2

	statusEvery = 10
)

// Shares is every cell passed between tasks.
type Shares struct {
	Heading         *share.Share[float64]
	CalibrationDone *share.Flag
	ZeroHeading     *share.Flag
	EulerX, EulerY  *share.Share[float64]
	EulerZ          *share.Share[float64]
	RateX, RateY    *share.Share[float64]
	RateZ           *share.Share[float64]

	LeftPosition, RightPosition *share.Share[float64]
	LeftDelta, RightDelta       *share.Share[float64]
	LeftSpeed, RightSpeed       *share.Share[float64]
	LeftZero, RightZero         *share.Flag

	LineValue   *share.Share[float64]
	LineSum     *share.Share[float64]
	LineOffline *share.Share[bool]
	Finish      *share.Flag

	Distance *share.Share[float64]

	LeftEnable, RightEnable *share.Share[bool]
	LeftDuty, RightDuty     *share.Share[float64]
}

func NewShares() Shares {
	f := share.New[float64]
	return Shares{
		Heading:         f("phi"),
		CalibrationDone: share.NewFlag("BNO cal done"),
		ZeroHeading:     share.NewFlag("BNO zero"),
		EulerX:          f("eul x"),
		EulerY:          f("eul y"),
		EulerZ:          f("eul z"),
		RateX:           f("av x"),
		RateY:           f("av y"),
		RateZ:           f("av z"),

		LeftPosition:  f("L pos"),
		RightPosition: f("R pos"),
		LeftDelta:     f("L delta"),
		RightDelta:    f("R delta"),
		LeftSpeed:     f("L speed"),
		RightSpeed:    f("R speed"),
		LeftZero:      share.NewFlag("L zero"),
		RightZero:     share.NewFlag("R zero"),

		LineValue:   f("LS value"),
		LineSum:     f("LS sum"),
		LineOffline: share.New[bool]("LS offline"),
		Finish:      share.NewFlag("LS finish"),

		Distance: f("distance"),

		LeftEnable:  share.New[bool]("L EN"),
		RightEnable: share.New[bool]("R EN"),
		LeftDuty:    f("L duty"),
		RightDuty:   f("R duty"),
	}
}

type Robot struct {
	Scheduler  *cotask.Scheduler
	MasterMind *mastermind.MasterMind
	IMU        *bno055.Task
	Shares     Shares

	hw          hardware.Interface
	left, right *motor.Motor
	verbose     bool
}

// Build creates every task over hw and registers it.  A nil clock means the
// system clock.
func Build(cfg config.Config, hw hardware.Interface, clock cotask.Clock) (*Robot, error) {
	if clock == nil {
		clock = cotask.SystemClock{}
	}
	s := NewShares()
	r := &Robot{
		Scheduler: cotask.New(clock),
		Shares:    s,
		hw:        hw,
		verbose:   cfg.Verbose,
	}

	mode, err := linecl.ParseDerivativeMode(cfg.LineFollow.Derivative)
	if err != nil {
		return nil, err
	}
	lf := cfg.LineFollow
	control, err := linecl.New(linecl.Config{
		Gains:      linecl.Gains{Kp: lf.Kp, Ki: lf.Ki, Kd: lf.Kd},
		HighSat:    lf.HighSat,
		LowSat:     lf.LowSat,
		Derivative: mode,
		Clock:      clock.Now,
	})
	if err != nil {
		return nil, errors.Wrap(err, "line controller")
	}

	imuMode, err := bno055.ParseMode(cfg.Hardware.IMUMode)
	if err != nil {
		return nil, err
	}
	r.IMU = bno055.NewTask(hw.IMU(), hw.CalibrationStore(), imuMode, bno055.Shares{
		Heading:         s.Heading,
		CalibrationDone: s.CalibrationDone,
		ZeroHeading:     s.ZeroHeading,
		EulerX:          s.EulerX,
		EulerY:          s.EulerY,
		EulerZ:          s.EulerZ,
		RateX:           s.RateX,
		RateY:           s.RateY,
		RateZ:           s.RateZ,
	})

	ticks := cfg.Robot.TicksPerRev
	encL := encoder.New("L", hw.LeftEncoder(), ticks, encoder.Shares{
		Position: s.LeftPosition, Delta: s.LeftDelta, Speed: s.LeftSpeed, Zero: s.LeftZero,
	}, clock.Now)
	encR := encoder.New("R", hw.RightEncoder(), ticks, encoder.Shares{
		Position: s.RightPosition, Delta: s.RightDelta, Speed: s.RightSpeed, Zero: s.RightZero,
	}, clock.Now)

	ls, err := linesensor.New(hw.LineADC(), cfg.Hardware.LineChannels, linesensor.Shares{
		Value: s.LineValue, Finish: s.Finish, Sum: s.LineSum, Offline: s.LineOffline,
	})
	if err != nil {
		return nil, err
	}
	rangefinder := lidar.New(hw.Rangefinder(), s.Distance)

	r.MasterMind, err = mastermind.New(cfg, mastermind.Shares{
		Heading:         s.Heading,
		EulerX:          s.EulerX,
		CalibrationDone: s.CalibrationDone,
		ZeroHeading:     s.ZeroHeading,
		LineValue:       s.LineValue,
		Finish:          s.Finish,
		Distance:        s.Distance,
		LeftDelta:       s.LeftDelta,
		RightDelta:      s.RightDelta,
		LeftVelocity:    s.LeftSpeed,
		RightVelocity:   s.RightSpeed,
		LeftDuty:        s.LeftDuty,
		RightDuty:       s.RightDuty,
	}, control)
	if err != nil {
		return nil, err
	}

	r.left = motor.New("L", hw.LeftMotor(), motor.Shares{Enable: s.LeftEnable, Duty: s.LeftDuty})
	r.right = motor.New("R", hw.RightMotor(), motor.Shares{Enable: s.RightEnable, Duty: s.RightDuty})
	toggle := motor.NewEnableToggle(hw.ButtonPresses, s.LeftEnable, s.RightEnable)
	st := status.New(r.MasterMind, hw, status.Shares{
		Distance: s.Distance, LeftEnabled: s.LeftEnable, RightEnabled: s.RightEnable,
	})

	period := cfg.Scheduler.Period()
	var tasks []*cotask.Task
	if sim, ok := hw.(hardware.Simulator); ok {
		tasks = append(tasks, &cotask.Task{Name: "Physics", Period: period, Priority: prioritySimulation, Body: sim.Step})
	}
	// Sensors, then the decision, then the actuators, so a duty set this pass
	// is applied this pass.
	tasks = append(tasks,
		&cotask.Task{Name: "L Encoder", Period: period, Priority: priorityControl, Body: encL.Step},
		&cotask.Task{Name: "R Encoder", Period: period, Priority: priorityControl, Body: encR.Step},
		&cotask.Task{Name: "BNO", Period: period, Priority: priorityControl, Body: r.IMU.Step},
		&cotask.Task{Name: "Lidar", Period: period, Priority: priorityControl, Body: rangefinder.Step},
		&cotask.Task{Name: "LineSensors", Period: period, Priority: priorityControl, Body: ls.Step},
		&cotask.Task{Name: "MasterMind", Period: period, Priority: priorityControl, Body: r.MasterMind.Step},
		&cotask.Task{Name: "L Motor", Period: period, Priority: priorityControl, Body: r.left.Step},
		&cotask.Task{Name: "R Motor", Period: period, Priority: priorityControl, Body: r.right.Step},
		&cotask.Task{Name: "Button", Period: period, Priority: priorityControl, Body: toggle.Step},
		&cotask.Task{Name: "Status", Period: statusEvery * period, Priority: priorityStatus, Body: st.Step},
	)
	for _, t := range tasks {
		if err := r.Scheduler.Add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Stop zeroes both motors directly and, if verbose, prints the scheduler
// profile.
func (r *Robot) Stop() {
	fmt.Println("Zeroing motors for shut down")
	r.left.Stop()
	r.right.Stop()
	if r.verbose {
		r.Scheduler.PrintStats()
	}
}
