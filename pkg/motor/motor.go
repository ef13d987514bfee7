package motor

import (
	"fmt"
	"math"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/share"
)

// Output is a PWM/direction motor driver such as the Romi's DRV8838s.
type Output interface {
	// SetEffort sets the PWM duty, 0-100%.
	SetEffort(percent float64) error
	SetReverse(reverse bool) error
}

type Shares struct {
	Enable *share.Share[bool]
	Duty   *share.Share[float64] // signed %, positive is forwards
}

type Motor struct {
	name   string
	out    Output
	shares Shares

	applied float64
	failing bool
}

// New starts the motor enabled with zero duty.
func New(name string, out Output, shares Shares) *Motor {
	shares.Enable.Put(true)
	shares.Duty.Put(0)
	return &Motor{name: name, out: out, shares: shares}
}

// Step is the task body.
func (m *Motor) Step() {
	m.set(m.shares.Enable.Get(), m.shares.Duty.Get())
}

func (m *Motor) set(enabled bool, duty float64) {
	var err error
	switch {
	case !enabled:
		duty = 0
		err = m.out.SetEffort(0)
	case duty >= 0:
		duty = math.Min(duty, 100)
		err = m.out.SetEffort(duty)
		if err == nil {
			err = m.out.SetReverse(false)
		}
	default:
		duty = math.Max(duty, -100)
		err = m.out.SetEffort(-duty)
		if err == nil {
			err = m.out.SetReverse(true)
		}
	}
	if err != nil {
		// Only log the first failure of a run of them.
		if !m.failing {
			fmt.Printf("MOT: %s failed to set duty %.1f: %v\n", m.name, duty, err)
		}
		m.failing = true
		return
	}
	m.failing = false
	m.applied = duty
}

// Applied is the signed duty most recently written to the driver.
func (m *Motor) Applied() float64 {
	return m.applied
}

// Stop zeroes the driver directly, bypassing the shares.  For shutdown.
func (m *Motor) Stop() {
	m.set(false, 0)
}

func (m *Motor) Name() string {
	return m.name
}
