package motor

import (
	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

const PWMFrequency = 20 * physic.KiloHertz

// PinOutput drives a motor from a PWM pin and a direction pin.
type PinOutput struct {
	pwm, dir gpio.PinOut
}

func OpenPins(pwmPin, dirPin string) (*PinOutput, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialise periph")
	}
	pwm := gpioreg.ByName(pwmPin)
	if pwm == nil {
		return nil, errors.Errorf("no such pin %q", pwmPin)
	}
	dir := gpioreg.ByName(dirPin)
	if dir == nil {
		return nil, errors.Errorf("no such pin %q", dirPin)
	}
	if err := pwm.Out(gpio.Low); err != nil {
		return nil, errors.Wrapf(err, "failed to configure %s", pwmPin)
	}
	if err := dir.Out(gpio.Low); err != nil {
		return nil, errors.Wrapf(err, "failed to configure %s", dirPin)
	}
	return &PinOutput{pwm: pwm, dir: dir}, nil
}

func (p *PinOutput) SetEffort(percent float64) error {
	if percent <= 0 {
		return p.pwm.Out(gpio.Low)
	}
	duty := gpio.Duty(percent / 100 * float64(gpio.DutyMax))
	return p.pwm.PWM(duty, PWMFrequency)
}

func (p *PinOutput) SetReverse(reverse bool) error {
	// Direction pin low is forwards.
	return p.dir.Out(gpio.Level(reverse))
}
