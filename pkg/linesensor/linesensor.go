// Package linesensor turns the front reflectance sensor array into a signed
// "how far off the line" value and a finish-line flag.
package linesensor

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/share"
)

// ADC reads a 12-bit sample from one channel.
type ADC interface {
	Read(channel int) (uint16, error)
}

const (
	FullScale = 4095

	// Weights for far left, mid left, mid right, far right.  The centre
	// sensor isn't weighted.
	WeightFar = 2.5
	WeightMid = 4

	// With the outer four summing below LostSum the line is out of sight; the
	// value is pinned at ±LostValue on the side the line was last seen.
	LostSum      = 0.4
	LostValue    = 2.0
	ReacquireSum = 0.3

	// Crossing the finish bar lights up every sensor.  It counts once the
	// sum has gone above FinishSum and back down below LostSum; dropping only
	// below FalseAlarmSum means it was a crossing line.
	FinishSum     = 2.0
	FalseAlarmSum = 1.0
)

type Shares struct {
	Value   *share.Share[float64]
	Finish  *share.Flag
	Sum     *share.Share[float64]
	Offline *share.Share[bool]
}

// Reading is one normalised sample of the five front sensors, left to right.
type Reading struct {
	FarLeft, MidLeft, Centre, MidRight, FarRight float64
}

func (r Reading) OuterSum() float64 {
	return r.FarLeft + r.MidLeft + r.MidRight + r.FarRight
}

func (r Reading) Weighted() float64 {
	return -WeightFar*r.FarLeft - WeightMid*r.MidLeft + WeightMid*r.MidRight + WeightFar*r.FarRight
}

type LineSensors struct {
	adc      ADC
	channels [5]int
	shares   Shares

	value       float64
	offline     bool
	finishMaybe bool
}

// New takes the ADC channels of the five front sensors, left to right.
func New(adc ADC, channels []int, shares Shares) (*LineSensors, error) {
	if len(channels) != 5 {
		return nil, errors.Errorf("linesensor: need 5 channels, got %d", len(channels))
	}
	ls := &LineSensors{adc: adc, shares: shares}
	copy(ls.channels[:], channels)
	shares.Value.Put(0)
	return ls, nil
}

// Step is the task body.
func (ls *LineSensors) Step() {
	r, err := ls.read()
	if err != nil {
		fmt.Println("LS: read failed:", err)
		return
	}
	sum := ls.Update(r)
	ls.shares.Value.Put(ls.value)
	if ls.shares.Sum != nil {
		ls.shares.Sum.Put(sum)
	}
	if ls.shares.Offline != nil {
		ls.shares.Offline.Put(ls.offline)
	}
}

func (ls *LineSensors) read() (Reading, error) {
	var v [5]float64
	for i, ch := range ls.channels {
		raw, err := ls.adc.Read(ch)
		if err != nil {
			return Reading{}, errors.Wrapf(err, "channel %d", ch)
		}
		v[i] = float64(raw) / FullScale
	}
	return Reading{v[0], v[1], v[2], v[3], v[4]}, nil
}

// Update folds in a reading and returns the outer sum.
func (ls *LineSensors) Update(r Reading) float64 {
	sum := r.OuterSum()

	switch {
	case sum < LostSum && ls.value > 0:
		ls.value = LostValue
		ls.offline = true
	case sum < LostSum && ls.value < 0:
		ls.value = -LostValue
		ls.offline = true
	default:
		ls.value = r.Weighted()
	}
	if ls.offline && sum > ReacquireSum {
		ls.offline = false
	}

	if sum > FinishSum {
		ls.finishMaybe = true
	}
	if ls.finishMaybe && sum < LostSum {
		ls.finishMaybe = false
		ls.shares.Finish.Put()
		fmt.Println("LS: finish line")
	} else if ls.finishMaybe && sum < FalseAlarmSum {
		ls.finishMaybe = false
	}
	return sum
}

func (ls *LineSensors) Value() float64 {
	return ls.value
}

func (ls *LineSensors) Offline() bool {
	return ls.offline
}
