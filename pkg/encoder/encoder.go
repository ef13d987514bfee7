package encoder

import (
	"fmt"
	"math"
	"time"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/share"
)

// Counter is a free-running 16-bit quadrature count.
type Counter interface {
	Count() (uint16, error)
}

type Shares struct {
	Position *share.Share[float64] // rad since start or last zero
	Delta    *share.Share[float64] // rad since the previous cycle
	Speed    *share.Share[float64] // rad/s
	Zero     *share.Flag
}

// Encoder turns raw counts into wheel angle, angle change and speed once per
// cycle.
type Encoder struct {
	name       string
	counter    Counter
	shares     Shares
	radPerTick float64
	now        func() time.Time

	doneFirstPoll bool
	lastCount     uint16
	lastTime      time.Time
	position      int64
}

func New(name string, counter Counter, ticksPerRev float64, shares Shares, now func() time.Time) *Encoder {
	if now == nil {
		now = time.Now
	}
	shares.Position.Put(0)
	shares.Delta.Put(0)
	shares.Speed.Put(0)
	return &Encoder{
		name:       name,
		counter:    counter,
		shares:     shares,
		radPerTick: 2 * math.Pi / ticksPerRev,
		now:        now,
	}
}

// Step is the task body.
func (e *Encoder) Step() {
	if e.shares.Zero != nil && e.shares.Zero.IsRaised() {
		e.position = 0
		e.shares.Zero.Clear()
	}

	count, err := e.counter.Count()
	if err != nil {
		fmt.Printf("ENC: %s read failed: %v\n", e.name, err)
		// No new motion observed this cycle.
		e.shares.Delta.Put(0)
		return
	}
	now := e.now()

	var delta int64
	if e.doneFirstPoll {
		// The subtraction wraps, so anything under half the counter range in
		// either direction comes out right across an overflow.
		delta = int64(int16(count - e.lastCount))
	}
	var speed float64
	if dt := now.Sub(e.lastTime).Seconds(); e.doneFirstPoll && dt > 0 {
		speed = float64(delta) * e.radPerTick / dt
	}

	e.position += delta
	e.lastCount = count
	e.lastTime = now
	e.doneFirstPoll = true

	e.shares.Position.Put(float64(e.position) * e.radPerTick)
	e.shares.Delta.Put(float64(delta) * e.radPerTick)
	e.shares.Speed.Put(speed)
}

func (e *Encoder) Name() string {
	return e.name
}
