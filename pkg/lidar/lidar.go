// Package lidar reads the Pololu time-of-flight distance sensor, which reports
// distance as the width of a pulse on a single pin.
package lidar

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/share"
)

// NoReading is published until the first pulse has been measured.
const NoReading = 999.0

// PulseSource reports the most recently measured pulse width.  ok is false if
// no pulse has been seen yet.
type PulseSource interface {
	PulseWidth() (width time.Duration, ok bool)
}

// DistanceMM converts a pulse width to millimetres: 1000µs is zero and every
// further 4/3µs is a millimetre.
func DistanceMM(width time.Duration) float64 {
	us := float64(width) / float64(time.Microsecond)
	return 0.75 * (us - 1000)
}

type Lidar struct {
	src      PulseSource
	distance *share.Share[float64]
}

func New(src PulseSource, distance *share.Share[float64]) *Lidar {
	distance.Put(NoReading)
	return &Lidar{src: src, distance: distance}
}

// Step is the task body.
func (l *Lidar) Step() {
	width, ok := l.src.PulseWidth()
	if !ok {
		return
	}
	l.distance.Put(DistanceMM(width))
}

// PulseCapture times pulses on a GPIO pin from its own goroutine.
type PulseCapture struct {
	pin   gpio.PinIn
	width share.Guarded[time.Duration]
}

func OpenPulseCapture(pinName string) (*PulseCapture, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialise periph")
	}
	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, errors.Errorf("no such pin %q", pinName)
	}
	if err := pin.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return nil, errors.Wrapf(err, "failed to configure %s for edge detection", pinName)
	}
	return &PulseCapture{pin: pin}, nil
}

// Close stops edge detection on the pin.
func (c *PulseCapture) Close() error {
	return c.pin.Halt()
}

// Loop measures pulses until the context is cancelled.
func (c *PulseCapture) Loop(ctx context.Context) {
	var rise time.Time
	for ctx.Err() == nil {
		if !c.pin.WaitForEdge(100 * time.Millisecond) {
			continue
		}
		now := time.Now()
		if c.pin.Read() == gpio.High {
			rise = now
			continue
		}
		if !rise.IsZero() {
			c.width.Put(now.Sub(rise))
			rise = time.Time{}
		}
	}
}

func (c *PulseCapture) PulseWidth() (time.Duration, bool) {
	width, at := c.width.Load()
	return width, !at.IsZero()
}
