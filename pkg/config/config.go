// Package config holds the robot's start-up constants.  Values are loaded
// once, before any task is registered; nothing here is changed at runtime.
package config

import (
	"fmt"
	"io/ioutil"
	"math"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/bno055"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/chassis"
)

const (
	MissionCircle = "circle"
	MissionCourse = "course"
	MissionIdle   = "idle"
)

type Config struct {
	Robot      Robot      `yaml:"robot"`
	Scheduler  Scheduler  `yaml:"scheduler"`
	LineFollow LineFollow `yaml:"line_follow"`
	Course     Course     `yaml:"course"`
	Mission    string     `yaml:"mission"`
	Verbose    bool       `yaml:"verbose"`
	Hardware   Hardware   `yaml:"hardware"`
}

type Robot struct {
	Wheelbase   float64 `yaml:"wheelbase"`    // m, tyre centre to tyre centre
	WheelRadius float64 `yaml:"wheel_radius"` // m
	TicksPerRev float64 `yaml:"ticks_per_rev"`
}

type Scheduler struct {
	PeriodMS int `yaml:"period_ms"`
}

func (s Scheduler) Period() time.Duration {
	return time.Duration(s.PeriodMS) * time.Millisecond
}

type LineFollow struct {
	Kp        float64 `yaml:"kp"`
	Ki        float64 `yaml:"ki"`
	Kd        float64 `yaml:"kd"`
	BaseSpeed float64 `yaml:"base_speed"` // duty %

	// Optional; both or neither.
	HighSat *float64 `yaml:"high_sat,omitempty"`
	LowSat  *float64 `yaml:"low_sat,omitempty"`

	// "error" or "delta".
	Derivative string `yaml:"derivative"`
}

type Course struct {
	ObstacleMM float64 `yaml:"obstacle_mm"`
	TurnAngle  float64 `yaml:"turn_angle"` // rad
	Sidestep   float64 `yaml:"sidestep"`   // m
	Pass       float64 `yaml:"pass"`       // m
	MoveSpeed  float64 `yaml:"move_speed"`
	TurnDuty   float64 `yaml:"turn_duty"`
	ReturnHome bool    `yaml:"return_home"`

	// Finish a turn if the heading jumps past the target in one cycle rather
	// than spinning until it lands within tolerance.
	StopTurnOnOvershoot bool `yaml:"stop_turn_on_overshoot"`

	// The circle mission stops once X has gone below -LandmarkX and then come
	// back above zero.
	LandmarkX float64 `yaml:"landmark_x"`
}

type Hardware struct {
	Dummy bool `yaml:"dummy"`

	I2CBus         string `yaml:"i2c_bus"`
	EncoderAddress int    `yaml:"encoder_address"`
	IMUAddress     int    `yaml:"imu_address"`
	// If set, the IMU is talked to over this UART instead of I2C.
	IMUSerial string `yaml:"imu_serial"`
	IMUMode   string `yaml:"imu_mode"`

	SPIPort      string `yaml:"spi_port"`
	LineChannels []int  `yaml:"line_channels"`

	LeftPWMPin  string `yaml:"left_pwm_pin"`
	LeftDirPin  string `yaml:"left_dir_pin"`
	RightPWMPin string `yaml:"right_pwm_pin"`
	RightDirPin string `yaml:"right_dir_pin"`
	LidarPin    string `yaml:"lidar_pin"`
	ButtonPin   string `yaml:"button_pin"`

	CalibrationFile string `yaml:"calibration_file"`
	Screen          string `yaml:"screen"`
	SoundDir        string `yaml:"sound_dir"`
}

// Default returns the constants the robot was built and tuned with.
func Default() Config {
	return Config{
		Robot: Robot{
			Wheelbase:   chassis.Wheelbase,
			WheelRadius: chassis.WheelRadius,
			TicksPerRev: chassis.EncoderTicksPerRev,
		},
		Scheduler: Scheduler{PeriodMS: 10},
		LineFollow: LineFollow{
			Kp:         7,
			BaseSpeed:  20,
			Derivative: "error",
		},
		Course: Course{
			ObstacleMM:          30,
			TurnAngle:           1.57,
			Sidestep:            0.2,
			Pass:                0.4,
			MoveSpeed:           20,
			TurnDuty:            15,
			ReturnHome:          true,
			StopTurnOnOvershoot: true,
			LandmarkX:           0.2,
		},
		Mission: MissionCircle,
		Hardware: Hardware{
			I2CBus:          "/dev/i2c-1",
			EncoderAddress:  0x14,
			IMUAddress:      0x28,
			IMUMode:         "NDOF",
			LineChannels:    []int{0, 1, 2, 3, 4},
			LeftPWMPin:      "GPIO12",
			LeftDirPin:      "GPIO5",
			RightPWMPin:     "GPIO13",
			RightDirPin:     "GPIO6",
			LidarPin:        "GPIO17",
			ButtonPin:       "GPIO27",
			CalibrationFile: "/cfg/bno055.yaml",
			Screen:          "/dev/fb1",
			SoundDir:        "/sounds",
		},
	}
}

// Load overlays the YAML file at path onto Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "config: failed to read")
	}
	return Parse(data)
}

// Parse overlays YAML onto Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "config: failed to parse")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	positive := []struct {
		key   string
		value float64
	}{
		{"robot.wheelbase", c.Robot.Wheelbase},
		{"robot.wheel_radius", c.Robot.WheelRadius},
		{"robot.ticks_per_rev", c.Robot.TicksPerRev},
		{"scheduler.period_ms", float64(c.Scheduler.PeriodMS)},
		{"line_follow.kp", c.LineFollow.Kp},
		{"course.turn_duty", c.Course.TurnDuty},
	}
	for _, p := range positive {
		if !(p.value > 0) {
			return errors.Errorf("config: %s must be positive, got %v", p.key, p.value)
		}
	}

	nonNegative := []struct {
		key   string
		value float64
	}{
		{"line_follow.ki", c.LineFollow.Ki},
		{"line_follow.kd", c.LineFollow.Kd},
		{"course.obstacle_mm", c.Course.ObstacleMM},
		{"course.sidestep", c.Course.Sidestep},
		{"course.pass", c.Course.Pass},
		{"course.landmark_x", c.Course.LandmarkX},
	}
	for _, p := range nonNegative {
		if !(p.value >= 0) {
			return errors.Errorf("config: %s must not be negative, got %v", p.key, p.value)
		}
	}

	for key, duty := range map[string]float64{
		"line_follow.base_speed": c.LineFollow.BaseSpeed,
		"course.move_speed":      c.Course.MoveSpeed,
		"course.turn_duty":       c.Course.TurnDuty,
	} {
		if math.Abs(duty) > 100 {
			return errors.Errorf("config: %s is a duty cycle and must be within ±100, got %v", key, duty)
		}
	}

	lf := c.LineFollow
	if (lf.HighSat == nil) != (lf.LowSat == nil) {
		return errors.New("config: line_follow.high_sat and line_follow.low_sat must be set together")
	}
	if lf.HighSat != nil && *lf.HighSat < *lf.LowSat {
		return errors.Errorf("config: line_follow.high_sat (%v) is below line_follow.low_sat (%v)", *lf.HighSat, *lf.LowSat)
	}
	switch lf.Derivative {
	case "", "error", "delta":
	default:
		return errors.Errorf("config: line_follow.derivative must be \"error\" or \"delta\", got %q", lf.Derivative)
	}

	if _, err := bno055.ParseMode(c.Hardware.IMUMode); err != nil {
		return errors.Errorf("config: hardware.imu_mode: %v", err)
	}

	switch c.Mission {
	case MissionCircle, MissionCourse, MissionIdle:
	default:
		return errors.Errorf("config: unknown mission %q", c.Mission)
	}
	return nil
}

// Dump renders the config in use, for the log.
func (c *Config) Dump() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<unprintable config: %v>", err)
	}
	return string(out)
}
