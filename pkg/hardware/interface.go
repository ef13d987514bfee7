package hardware

import (
	"context"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/bno055"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/encoder"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/lidar"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/linesensor"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/motor"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/screen"
)

// Interface is everything the tasks need from the robot.  Device handles are
// opened up front; Start launches the goroutines that watch pins and drive the
// screen.
type Interface interface {
	Start(ctx context.Context)

	LeftEncoder() encoder.Counter
	RightEncoder() encoder.Counter
	IMU() bno055.Sensor
	CalibrationStore() bno055.CoefficientStore
	LineADC() linesensor.ADC
	Rangefinder() lidar.PulseSource
	LeftMotor() motor.Output
	RightMotor() motor.Output

	// ButtonPresses counts operator button presses since start up.
	ButtonPresses() int

	ShowStatus(s screen.Status)
	PlaySound(cue string)

	// Shutdown stops the motors directly and releases the devices.
	Shutdown()
}
