package hardware

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/bno055"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/config"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/encoder"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/lidar"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/linesensor"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/motor"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/screen"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/sound"
)

type Hardware struct {
	encoders    *encoder.AStar
	imu         *bno055.Device
	store       bno055.FileStore
	adc         *linesensor.MCP3208
	left, right *motor.PinOutput
	lidar       *lidar.PulseCapture
	button      *Button
	screen      *screen.Screen
	player      *sound.Player

	// Everything opened so far that holds a bus, port or pin.
	closers   []io.Closer
	loopsDone sync.WaitGroup
}

var _ Interface = (*Hardware)(nil)

// New opens every device.  Any failure is fatal; the robot is no use with a
// sensor missing.  Devices opened before the failure are closed again.
func New(cfg config.Hardware) (h *Hardware, err error) {
	h = &Hardware{
		store:  bno055.FileStore{Path: cfg.CalibrationFile},
		screen: screen.New(cfg.Screen),
	}
	defer func() {
		if err != nil {
			h.closeAll()
			h = nil
		}
	}()

	if h.encoders, err = encoder.OpenAStar(cfg.I2CBus, cfg.EncoderAddress); err != nil {
		return
	}
	h.closers = append(h.closers, h.encoders)
	if cfg.IMUSerial != "" {
		h.imu, err = bno055.OpenSerial(cfg.IMUSerial)
	} else {
		h.imu, err = bno055.OpenI2C(cfg.I2CBus, cfg.IMUAddress)
	}
	if err != nil {
		return
	}
	h.closers = append(h.closers, h.imu)
	if h.adc, err = linesensor.OpenMCP3208(cfg.SPIPort); err != nil {
		return
	}
	h.closers = append(h.closers, h.adc)
	if h.left, err = motor.OpenPins(cfg.LeftPWMPin, cfg.LeftDirPin); err != nil {
		err = errors.Wrap(err, "left motor")
		return
	}
	if h.right, err = motor.OpenPins(cfg.RightPWMPin, cfg.RightDirPin); err != nil {
		err = errors.Wrap(err, "right motor")
		return
	}
	if h.lidar, err = lidar.OpenPulseCapture(cfg.LidarPin); err != nil {
		err = errors.Wrap(err, "distance sensor")
		return
	}
	h.closers = append(h.closers, h.lidar)
	if h.button, err = OpenButton(cfg.ButtonPin); err != nil {
		return
	}
	h.closers = append(h.closers, h.button)
	h.player = sound.NewPlayer(cfg.SoundDir)
	return h, nil
}

// closeAll closes what has been opened, newest first.
func (h *Hardware) closeAll() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i].Close(); err != nil {
			fmt.Println("HW: failed to close device:", err)
		}
	}
	h.closers = nil
}

func (h *Hardware) Start(ctx context.Context) {
	for _, loop := range []func(context.Context){h.lidar.Loop, h.button.Loop, h.screen.Loop} {
		loop := loop
		h.loopsDone.Add(1)
		go func() {
			defer h.loopsDone.Done()
			loop(ctx)
		}()
	}
}

func (h *Hardware) LeftEncoder() encoder.Counter              { return h.encoders.Left() }
func (h *Hardware) RightEncoder() encoder.Counter             { return h.encoders.Right() }
func (h *Hardware) IMU() bno055.Sensor                        { return h.imu }
func (h *Hardware) CalibrationStore() bno055.CoefficientStore { return h.store }
func (h *Hardware) LineADC() linesensor.ADC                   { return h.adc }
func (h *Hardware) Rangefinder() lidar.PulseSource            { return h.lidar }
func (h *Hardware) LeftMotor() motor.Output                   { return h.left }
func (h *Hardware) RightMotor() motor.Output                  { return h.right }

func (h *Hardware) ButtonPresses() int {
	return h.button.Presses()
}

func (h *Hardware) ShowStatus(s screen.Status) {
	h.screen.Update(s)
}

func (h *Hardware) PlaySound(cue string) {
	h.player.Play(cue)
}

// Shutdown zeroes the motors and waits for the pin loops, which exit when the
// context passed to Start is cancelled.
func (h *Hardware) Shutdown() {
	fmt.Println("HW: Zeroing motors for shut down")
	for _, m := range []*motor.PinOutput{h.left, h.right} {
		if err := m.SetEffort(0); err != nil {
			fmt.Println("HW: failed to stop motor:", err)
		}
	}
	h.loopsDone.Wait()
	h.player.Close()
	h.closeAll()
}
