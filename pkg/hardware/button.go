package hardware

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/share"
)

const debounce = 50 * time.Millisecond

// Button counts presses of an active-low push button.
type Button struct {
	pin     gpio.PinIn
	presses share.Guarded[int]
}

func OpenButton(pinName string) (*Button, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialise periph")
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, errors.Errorf("no such pin %q", pinName)
	}
	if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
		return nil, errors.Wrapf(err, "failed to configure button on %s", pinName)
	}
	return &Button{pin: pin}, nil
}

func (b *Button) Close() error {
	return b.pin.Halt()
}

func (b *Button) Loop(ctx context.Context) {
	var last time.Time
	for ctx.Err() == nil {
		if !b.pin.WaitForEdge(100 * time.Millisecond) {
			continue
		}
		now := time.Now()
		if now.Sub(last) < debounce {
			continue
		}
		last = now
		n := b.presses.Get() + 1
		b.presses.Put(n)
		fmt.Println("HW: button pressed", n)
	}
}

func (b *Button) Presses() int {
	return b.presses.Get()
}
