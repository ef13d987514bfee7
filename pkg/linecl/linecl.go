// Package linecl is the closed-loop controller used for line following.
package linecl

import (
	"fmt"
	"math"
	"time"

	"github.com/felixge/pidctrl"
	"github.com/pkg/errors"
)

var (
	ErrNonPositiveKp  = errors.New("linecl: proportional gain must be positive and non-zero")
	ErrNegativeGain   = errors.New("linecl: gain must be non-negative")
	ErrSaturationPair = errors.New("linecl: saturation requires both upper and lower limits")
)

// DerivativeMode selects how the derivative term is computed.
type DerivativeMode int

const (
	// DerivativeOnError uses Kd·error/Δt: the current error, not its change.
	// This is how the robot was originally tuned.
	DerivativeOnError DerivativeMode = iota
	// DerivativeOnDelta uses Kd·Δerror/Δt, the textbook form.
	DerivativeOnDelta
)

func (m DerivativeMode) String() string {
	switch m {
	case DerivativeOnError:
		return "error"
	case DerivativeOnDelta:
		return "delta"
	}
	return fmt.Sprintf("DerivativeMode(%d)", int(m))
}

func ParseDerivativeMode(s string) (DerivativeMode, error) {
	switch s {
	case "", "error":
		return DerivativeOnError, nil
	case "delta":
		return DerivativeOnDelta, nil
	}
	return 0, errors.Errorf("linecl: unknown derivative mode %q", s)
}

type Gains struct {
	Kp, Ki, Kd float64
}

type Config struct {
	Gains

	// Saturation limits.  Either both or neither must be set.
	HighSat, LowSat *float64

	Derivative DerivativeMode

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Controller is not safe for concurrent use; it belongs to whichever task
// steps the line follower.
type Controller struct {
	gains      Gains
	satEnabled bool
	high, low  float64
	mode       DerivativeMode
	now        func() time.Time

	t0     time.Time
	errSum float64
	output float64

	pid *pidctrl.PIDController
}

func New(cfg Config) (*Controller, error) {
	if cfg.Kp <= 0 {
		return nil, errors.Wrapf(ErrNonPositiveKp, "Kp=%v", cfg.Kp)
	}
	if cfg.Ki < 0 {
		return nil, errors.Wrapf(ErrNegativeGain, "Ki=%v", cfg.Ki)
	}
	if cfg.Kd < 0 {
		return nil, errors.Wrapf(ErrNegativeGain, "Kd=%v", cfg.Kd)
	}
	if (cfg.HighSat == nil) != (cfg.LowSat == nil) {
		return nil, ErrSaturationPair
	}
	if cfg.Derivative != DerivativeOnError && cfg.Derivative != DerivativeOnDelta {
		return nil, errors.Errorf("linecl: unknown derivative mode %v", cfg.Derivative)
	}

	c := &Controller{
		gains: cfg.Gains,
		mode:  cfg.Derivative,
		now:   cfg.Clock,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if cfg.HighSat != nil {
		if *cfg.HighSat < *cfg.LowSat {
			return nil, errors.Errorf("linecl: high saturation %v is below low saturation %v", *cfg.HighSat, *cfg.LowSat)
		}
		c.satEnabled = true
		c.high, c.low = *cfg.HighSat, *cfg.LowSat
	}
	c.Reset()
	return c, nil
}

// Reset clears the accumulated state and restarts the Δt clock.
func (c *Controller) Reset() {
	c.t0 = c.now()
	c.errSum = 0
	c.output = 0
	if c.mode == DerivativeOnDelta {
		c.pid = pidctrl.NewPIDController(c.gains.Kp, c.gains.Ki, c.gains.Kd)
		if c.satEnabled {
			c.pid.SetOutputLimits(c.low, c.high)
		}
	}
}

func (c *Controller) SetKp(kp float64) error {
	if kp <= 0 {
		return errors.Wrapf(ErrNonPositiveKp, "Kp=%v", kp)
	}
	c.gains.Kp = kp
	c.syncGains()
	return nil
}

func (c *Controller) SetKi(ki float64) error {
	if ki < 0 {
		return errors.Wrapf(ErrNegativeGain, "Ki=%v", ki)
	}
	c.gains.Ki = ki
	c.syncGains()
	return nil
}

func (c *Controller) SetKd(kd float64) error {
	if kd < 0 {
		return errors.Wrapf(ErrNegativeGain, "Kd=%v", kd)
	}
	c.gains.Kd = kd
	c.syncGains()
	return nil
}

func (c *Controller) syncGains() {
	if c.pid != nil {
		c.pid.SetPID(c.gains.Kp, c.gains.Ki, c.gains.Kd)
	}
}

func (c *Controller) Gains() Gains {
	return c.gains
}

func (c *Controller) Mode() DerivativeMode {
	return c.mode
}

// Update runs one step of the controller and returns the control signal.
// Δt is the time since the previous Update (or since construction/Reset).
func (c *Controller) Update(setpoint, feedback float64) float64 {
	now := c.now()
	dt := now.Sub(c.t0)
	c.t0 = now

	if c.mode == DerivativeOnDelta {
		c.pid.Set(setpoint)
		c.output = c.pid.UpdateDuration(feedback, dt)
		return c.output
	}

	seconds := dt.Seconds()
	e := setpoint - feedback

	p := c.gains.Kp * e
	c.errSum += e * seconds
	i := c.gains.Ki * c.errSum
	var d float64
	if seconds > 0 {
		// Two updates at the same instant would otherwise divide by zero.
		d = c.gains.Kd * e / seconds
	}

	c.output = clamp(p+i+d, c.satEnabled, c.low, c.high)
	return c.output
}

// Output is the value returned by the most recent Update.
func (c *Controller) Output() float64 {
	return c.output
}

func clamp(v float64, enabled bool, low, high float64) float64 {
	if !enabled {
		return v
	}
	return math.Max(low, math.Min(high, v))
}
