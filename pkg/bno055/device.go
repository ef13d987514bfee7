package bno055

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x28

	RegGyroData   = 0x14 // x, y, z int16
	RegEulerData  = 0x1A // heading uint16, roll int16, pitch int16
	RegCalibStat  = 0x35
	RegUnitSel    = 0x3B
	RegOprMode    = 0x3D
	RegPwrMode    = 0x3E
	RegAxisMapCfg = 0x41
	RegAxisMapSgn = 0x42
	RegCalibData  = 0x55 // through 0x6A

	// Gyro in rad/s, Euler angles in degrees.
	unitSel = 0x02
	// The chip is mounted flat with its axes swapped relative to the robot.
	axisMapConfig = 0x24
	axisMapSign   = 0x05

	lsbPerRadPerSec = 900
	lsbPerDegree    = 16
)

// OperatingMode is the fusion mode written to OPR_MODE.
type OperatingMode byte

const (
	ModeConfig     OperatingMode = 0x00
	ModeIMU        OperatingMode = 0x08
	ModeCompass    OperatingMode = 0x09
	ModeM4G        OperatingMode = 0x0A
	ModeNDOFFMCOff OperatingMode = 0x0B
	ModeNDOF       OperatingMode = 0x0C
)

func (m OperatingMode) String() string {
	switch m {
	case ModeConfig:
		return "CONFIG"
	case ModeIMU:
		return "IMU"
	case ModeCompass:
		return "COMPASS"
	case ModeM4G:
		return "M4G"
	case ModeNDOFFMCOff:
		return "NDOF_FMC_OFF"
	case ModeNDOF:
		return "NDOF"
	}
	return fmt.Sprintf("OperatingMode(%#x)", byte(m))
}

func ParseMode(s string) (OperatingMode, error) {
	for _, m := range []OperatingMode{ModeConfig, ModeIMU, ModeCompass, ModeM4G, ModeNDOFFMCOff, ModeNDOF} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, errors.Errorf("bno055: unknown operating mode %q", s)
}

// CalibrationStatus holds the 0-3 calibration level of each subsystem.
type CalibrationStatus struct {
	Sys, Gyro, Accel, Mag uint8
}

func CalibrationStatusFromByte(b byte) CalibrationStatus {
	return CalibrationStatus{
		Sys:   b >> 6 & 3,
		Gyro:  b >> 4 & 3,
		Accel: b >> 2 & 3,
		Mag:   b & 3,
	}
}

func (c CalibrationStatus) FullyCalibrated() bool {
	return c.Sys == 3 && c.Gyro == 3 && c.Accel == 3 && c.Mag == 3
}

func (c CalibrationStatus) String() string {
	return fmt.Sprintf("System: %d Gyroscope: %d Accelerometer: %d Magnetometer: %d", c.Sys, c.Gyro, c.Accel, c.Mag)
}

// Sample is one read of the fused orientation and the gyro rates.
type Sample struct {
	// Euler angles in radians.  EulerX is the compass heading, [0, 2π),
	// increasing clockwise.
	EulerX, EulerY, EulerZ float64
	// Angular velocity in rad/s.
	RateX, RateY, RateZ float64
}

// Sensor is what the IMU task needs from the chip.
type Sensor interface {
	SetMode(m OperatingMode) error
	CalibrationStatus() (CalibrationStatus, error)
	Coefficients() (Coefficients, error)
	SetCoefficients(c Coefficients) error
	Read() (Sample, error)
}

type port interface {
	ReadReg(reg byte, buf []byte) error
	WriteReg(reg byte, buf []byte) error
}

type Device struct {
	dev    port
	closer io.Closer
	mode   OperatingMode
}

var _ Sensor = (*Device)(nil)

func OpenI2C(bus string, addr int) (*Device, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: bus}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open BNO055 at %#x on %s", addr, bus)
	}
	d := &Device{dev: dev, closer: dev}
	if err := d.Configure(); err != nil {
		_ = dev.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the bus or serial port.
func (d *Device) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// Configure puts the chip into config mode and sets power, axis mapping and
// units.  It leaves the chip in config mode.
func (d *Device) Configure() error {
	if err := d.SetMode(ModeConfig); err != nil {
		return err
	}
	for _, w := range []struct {
		reg, value byte
	}{
		{RegPwrMode, 0x00},
		{RegAxisMapCfg, axisMapConfig},
		{RegAxisMapSgn, axisMapSign},
		{RegUnitSel, unitSel},
	} {
		if err := d.dev.WriteReg(w.reg, []byte{w.value}); err != nil {
			return errors.Wrapf(err, "bno055: failed to write register %#x", w.reg)
		}
	}
	return nil
}

func (d *Device) SetMode(m OperatingMode) error {
	if err := d.dev.WriteReg(RegOprMode, []byte{byte(m)}); err != nil {
		return errors.Wrapf(err, "bno055: failed to switch to %v", m)
	}
	if m != d.mode {
		// Mode switches take up to 19ms to settle.
		time.Sleep(20 * time.Millisecond)
	}
	d.mode = m
	return nil
}

func (d *Device) Mode() OperatingMode {
	return d.mode
}

func (d *Device) CalibrationStatus() (CalibrationStatus, error) {
	var buf [1]byte
	if err := d.dev.ReadReg(RegCalibStat, buf[:]); err != nil {
		return CalibrationStatus{}, errors.Wrap(err, "bno055: failed to read calibration status")
	}
	return CalibrationStatusFromByte(buf[0]), nil
}

// Coefficients reads the calibration offsets.  The chip must be in config
// mode.
func (d *Device) Coefficients() (Coefficients, error) {
	var buf [CoefficientBytes]byte
	if err := d.dev.ReadReg(RegCalibData, buf[:]); err != nil {
		return Coefficients{}, errors.Wrap(err, "bno055: failed to read calibration data")
	}
	return CoefficientsFromBytes(buf), nil
}

// SetCoefficients writes the calibration offsets.  The chip must be in
// config mode.
func (d *Device) SetCoefficients(c Coefficients) error {
	buf := c.Bytes()
	if err := d.dev.WriteReg(RegCalibData, buf[:]); err != nil {
		return errors.Wrap(err, "bno055: failed to write calibration data")
	}
	return nil
}

// Read burst-reads the gyro and Euler registers, which are contiguous.
func (d *Device) Read() (Sample, error) {
	var buf [12]byte
	if err := d.dev.ReadReg(RegGyroData, buf[:]); err != nil {
		return Sample{}, errors.Wrap(err, "bno055: failed to read orientation")
	}
	s16 := func(i int) float64 {
		return float64(int16(binary.LittleEndian.Uint16(buf[i:])))
	}
	const radPerLSB = math.Pi / 180 / lsbPerDegree
	return Sample{
		RateX:  s16(0) / lsbPerRadPerSec,
		RateY:  s16(2) / lsbPerRadPerSec,
		RateZ:  s16(4) / lsbPerRadPerSec,
		EulerX: float64(binary.LittleEndian.Uint16(buf[6:])) * radPerLSB,
		EulerY: s16(8) * radPerLSB,
		EulerZ: s16(10) * radPerLSB,
	}, nil
}
