package bno055

import (
	"fmt"
	"math"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/share"
)

type TaskState int

const (
	CheckCalibration TaskState = iota
	Calibrate
	SaveCalibration
	LoadCalibration
	Running
)

func (s TaskState) String() string {
	switch s {
	case CheckCalibration:
		return "CheckCalibration"
	case Calibrate:
		return "Calibrate"
	case SaveCalibration:
		return "SaveCalibration"
	case LoadCalibration:
		return "LoadCalibration"
	case Running:
		return "Running"
	}
	return fmt.Sprintf("TaskState(%d)", int(s))
}

type Shares struct {
	// Heading in radians, [0, 2π), increasing anticlockwise from wherever
	// ZeroHeading was last raised.
	Heading         *share.Share[float64]
	CalibrationDone *share.Flag
	ZeroHeading     *share.Flag

	EulerX, EulerY, EulerZ *share.Share[float64]
	RateX, RateY, RateZ    *share.Share[float64]
}

func (s Shares) each(f func(*share.Share[float64])) {
	for _, sh := range []*share.Share[float64]{s.Heading, s.EulerX, s.EulerY, s.EulerZ, s.RateX, s.RateY, s.RateZ} {
		if sh != nil {
			f(sh)
		}
	}
}

// Task brings the IMU up, calibrating it or restoring saved coefficients, then
// publishes orientation every cycle.
type Task struct {
	sensor Sensor
	store  CoefficientStore
	mode   OperatingMode
	shares Shares

	state      TaskState
	lastStatus CalibrationStatus
	loaded     Coefficients
	zero       float64
}

func NewTask(sensor Sensor, store CoefficientStore, mode OperatingMode, shares Shares) *Task {
	shares.each(func(s *share.Share[float64]) { s.Put(0) })
	return &Task{
		sensor: sensor,
		store:  store,
		mode:   mode,
		shares: shares,
	}
}

func (t *Task) State() TaskState {
	return t.state
}

func (t *Task) setState(s TaskState) {
	fmt.Printf("BNO: %v -> %v\n", t.state, s)
	t.state = s
}

// Step is the task body.
func (t *Task) Step() {
	switch t.state {
	case CheckCalibration:
		if err := t.sensor.SetMode(t.mode); err != nil {
			fmt.Println("BNO: failed to set mode:", err)
			return
		}
		c, ok, err := t.store.Load()
		switch {
		case err != nil:
			fmt.Println("BNO: unusable calibration, recalibrating:", err)
			t.setState(Calibrate)
		case !ok:
			fmt.Println("BNO: no calibration saved, starting calibration")
			t.setState(Calibrate)
		default:
			t.loaded = c
			t.setState(LoadCalibration)
		}
	case Calibrate:
		status, err := t.sensor.CalibrationStatus()
		if err != nil {
			fmt.Println("BNO: failed to read calibration status:", err)
			return
		}
		if status != t.lastStatus {
			fmt.Println("BNO:", status)
			t.lastStatus = status
		}
		if status.FullyCalibrated() {
			t.setState(SaveCalibration)
		}
	case SaveCalibration:
		t.withConfigMode(func() error {
			c, err := t.sensor.Coefficients()
			if err != nil {
				return err
			}
			if err := t.store.Save(c); err != nil {
				// Calibrated anyway; it'll just need doing again next time.
				fmt.Println("BNO: failed to save calibration:", err)
			}
			return nil
		})
	case LoadCalibration:
		t.withConfigMode(func() error {
			return t.sensor.SetCoefficients(t.loaded)
		})
	case Running:
		t.publish()
	default:
		panic(fmt.Sprintf("BNO: invalid state %v", t.state))
	}
}

// withConfigMode runs f with the chip in config mode and, on success, raises
// CalibrationDone and moves to Running.  A failure retries next cycle.
func (t *Task) withConfigMode(f func() error) {
	if err := t.sensor.SetMode(ModeConfig); err != nil {
		fmt.Println("BNO: failed to enter config mode:", err)
		return
	}
	err := f()
	if modeErr := t.sensor.SetMode(t.mode); modeErr != nil && err == nil {
		err = modeErr
	}
	if err != nil {
		fmt.Printf("BNO: %v failed: %v\n", t.state, err)
		return
	}
	t.shares.CalibrationDone.Put()
	t.setState(Running)
}

func (t *Task) publish() {
	s, err := t.sensor.Read()
	if err != nil {
		fmt.Println("BNO: read failed:", err)
		return
	}
	if t.shares.ZeroHeading.IsRaised() {
		t.shares.ZeroHeading.Clear()
		t.zero = s.EulerX
		fmt.Printf("BNO: heading zeroed at %.4f\n", t.zero)
	}
	t.shares.Heading.Put(Heading(t.zero, s.EulerX))

	put := func(sh *share.Share[float64], v float64) {
		if sh != nil {
			sh.Put(v)
		}
	}
	put(t.shares.EulerX, s.EulerX)
	put(t.shares.EulerY, s.EulerY)
	put(t.shares.EulerZ, s.EulerZ)
	put(t.shares.RateX, s.RateX)
	put(t.shares.RateY, s.RateY)
	put(t.shares.RateZ, s.RateZ)
}

// Heading converts a clockwise compass reading into an anticlockwise heading
// relative to zero, in [0, 2π).
func Heading(zero, eulerX float64) float64 {
	if eulerX > zero {
		return zero - eulerX + 2*math.Pi
	}
	return zero - eulerX
}
