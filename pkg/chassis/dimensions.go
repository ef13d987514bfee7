// Package chassis is the Romi's measured geometry, in metres.
package chassis

import "math"

const (
	WheelDiameter float64 = 0.070
	WheelRadius           = WheelDiameter / 2
	WheelCircum           = WheelDiameter * math.Pi

	// Tyre centre to tyre centre.
	Wheelbase = 0.141

	// 12 counts per motor rev through the 120:1 gearbox.
	EncoderTicksPerRev = 12 * 120

	// The line sensor bar is mounted ahead of the axle, one sensor every
	// SensorSpacing across it.
	SensorAhead   = 0.07
	SensorSpacing = 0.015
)

