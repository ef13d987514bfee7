package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Scheduler.Period() != 10*time.Millisecond {
		t.Errorf("default period %v", cfg.Scheduler.Period())
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
mission: course
line_follow:
  kp: 3.5
  high_sat: 1
  low_sat: -1
  derivative: delta
course:
  return_home: false
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Mission != MissionCourse {
		t.Errorf("mission %q", cfg.Mission)
	}
	if cfg.LineFollow.Kp != 3.5 || cfg.LineFollow.BaseSpeed != 20 {
		t.Errorf("line_follow %+v", cfg.LineFollow)
	}
	if cfg.LineFollow.HighSat == nil || *cfg.LineFollow.HighSat != 1 || *cfg.LineFollow.LowSat != -1 {
		t.Errorf("saturation not loaded")
	}
	if cfg.Course.ReturnHome {
		t.Errorf("return_home not overridden")
	}
	if !cfg.Course.StopTurnOnOvershoot || cfg.Course.Pass != 0.4 {
		t.Errorf("unset course fields lost their defaults: %+v", cfg.Course)
	}
	if cfg.Robot.Wheelbase != 0.141 {
		t.Errorf("robot section lost its defaults: %+v", cfg.Robot)
	}
}

func TestValidationNamesTheKey(t *testing.T) {
	for _, tc := range []struct {
		yaml string
		key  string
	}{
		{"line_follow:\n  kp: 0\n", "line_follow.kp"},
		{"line_follow:\n  ki: -1\n", "line_follow.ki"},
		{"line_follow:\n  high_sat: 5\n", "line_follow.high_sat"},
		{"line_follow:\n  high_sat: -5\n  low_sat: 5\n", "line_follow.high_sat"},
		{"line_follow:\n  derivative: sideways\n", "line_follow.derivative"},
		{"robot:\n  wheelbase: -0.1\n", "robot.wheelbase"},
		{"scheduler:\n  period_ms: 0\n", "scheduler.period_ms"},
		{"course:\n  move_speed: 150\n", "course.move_speed"},
		{"mission: dance\n", "mission"},
		{"hardware:\n  imu_mode: SPORT\n", "hardware.imu_mode"},
	} {
		_, err := Parse([]byte(tc.yaml))
		if err == nil {
			t.Errorf("%q: expected an error", tc.yaml)
			continue
		}
		if !strings.Contains(err.Error(), tc.key) {
			t.Errorf("%q: error %q does not mention %s", tc.yaml, err, tc.key)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "romi-config")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "romi.yaml")
	if err := ioutil.WriteFile(path, []byte("verbose: true\nhardware:\n  dummy: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Verbose || !cfg.Hardware.Dummy || cfg.Hardware.I2CBus != "/dev/i2c-1" {
		t.Errorf("loaded %+v", cfg)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Errorf("missing file did not fail")
	}

	// The dump parses back to the same thing.
	again, err := Parse([]byte(cfg.Dump()))
	if err != nil {
		t.Fatalf("re-parsing dump failed: %v", err)
	}
	if again.Course != cfg.Course || again.Robot != cfg.Robot {
		t.Errorf("dump round trip changed config")
	}
}
