package bno055

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/share"
)

type regPort struct {
	regs   [256]byte
	writes []byte
}

func (p *regPort) ReadReg(reg byte, buf []byte) error {
	copy(buf, p.regs[int(reg):])
	return nil
}

func (p *regPort) WriteReg(reg byte, buf []byte) error {
	p.writes = append(p.writes, reg)
	copy(p.regs[int(reg):], buf)
	return nil
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestConfigure(t *testing.T) {
	p := &regPort{}
	p.regs[RegOprMode] = byte(ModeNDOF)
	d := &Device{dev: p, mode: ModeNDOF}
	if err := d.Configure(); err != nil {
		t.Fatal(err)
	}
	for _, c := range []struct {
		reg, value byte
	}{
		{RegOprMode, byte(ModeConfig)},
		{RegPwrMode, 0},
		{RegAxisMapCfg, 0x24},
		{RegAxisMapSgn, 0x05},
		{RegUnitSel, 0x02},
	} {
		if p.regs[c.reg] != c.value {
			t.Errorf("register %#x = %#x, expected %#x", c.reg, p.regs[c.reg], c.value)
		}
	}
	if d.Mode() != ModeConfig {
		t.Errorf("left in %v", d.Mode())
	}
}

func TestReadScalesUnits(t *testing.T) {
	p := &regPort{}
	put := func(reg byte, v uint16) {
		binary.LittleEndian.PutUint16(p.regs[reg:], v)
	}
	put(RegGyroData, 900)
	put(RegGyroData+2, uint16(0xFFFF&-450))
	put(RegGyroData+4, 0)
	put(RegEulerData, 90*16)
	put(RegEulerData+2, uint16(0xFFFF&-(45*16)))
	put(RegEulerData+4, 180*16)

	d := &Device{dev: p}
	s, err := d.Read()
	if err != nil {
		t.Fatal(err)
	}
	if !closeTo(s.RateX, 1) || !closeTo(s.RateY, -0.5) || s.RateZ != 0 {
		t.Errorf("rates %v %v %v", s.RateX, s.RateY, s.RateZ)
	}
	if !closeTo(s.EulerX, math.Pi/2) || !closeTo(s.EulerY, -math.Pi/4) || !closeTo(s.EulerZ, math.Pi) {
		t.Errorf("euler %v %v %v", s.EulerX, s.EulerY, s.EulerZ)
	}
}

func TestCalibrationStatus(t *testing.T) {
	p := &regPort{}
	p.regs[RegCalibStat] = 0xFF
	d := &Device{dev: p}
	s, err := d.CalibrationStatus()
	if err != nil {
		t.Fatal(err)
	}
	if !s.FullyCalibrated() {
		t.Errorf("0xFF not fully calibrated: %v", s)
	}

	s = CalibrationStatusFromByte(0xE4) // 11 10 01 00
	if s != (CalibrationStatus{Sys: 3, Gyro: 2, Accel: 1, Mag: 0}) {
		t.Errorf("0xE4 decoded as %+v", s)
	}
	if s.FullyCalibrated() {
		t.Errorf("partial calibration reported complete")
	}
}

func TestCoefficientLayout(t *testing.T) {
	c := Coefficients{
		AccelOffset: [3]int16{1, -2, 3},
		MagOffset:   [3]int16{4, 5, 6},
		GyroOffset:  [3]int16{-7, 8, 9},
		AccelRadius: 1000,
		MagRadius:   -1,
	}
	b := c.Bytes()
	if b[0] != 1 || b[2] != 0xFE || b[3] != 0xFF {
		t.Errorf("accel offset bytes % x", b[:6])
	}
	if b[18] != 0xE8 || b[19] != 0x03 {
		t.Errorf("accel radius bytes % x", b[18:20])
	}

	p := &regPort{}
	d := &Device{dev: p}
	if err := d.SetCoefficients(c); err != nil {
		t.Fatal(err)
	}
	got, err := d.Coefficients()
	if err != nil {
		t.Fatal(err)
	}
	if got != c {
		t.Errorf("read back %+v, wrote %+v", got, c)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("NDOF")
	if err != nil || m != ModeNDOF {
		t.Errorf("ParseMode(NDOF) = %v, %v", m, err)
	}
	if _, err := ParseMode("SPORT"); err == nil {
		t.Errorf("unknown mode accepted")
	}
}

// fakeUART answers from a canned byte stream and records what was sent.
type fakeUART struct {
	sent  bytes.Buffer
	reply *bytes.Reader
}

func (f *fakeUART) Write(b []byte) (int, error) { return f.sent.Write(b) }
func (f *fakeUART) Read(b []byte) (int, error)  { return f.reply.Read(b) }

func TestUARTWrite(t *testing.T) {
	f := &fakeUART{reply: bytes.NewReader([]byte{0xEE, 0x01})}
	u := newUARTPort(f)
	if err := u.WriteReg(RegOprMode, []byte{0x0C}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(f.sent.Bytes(), []byte{0xAA, 0x00, 0x3D, 0x01, 0x0C}) {
		t.Errorf("sent % x", f.sent.Bytes())
	}

	f = &fakeUART{reply: bytes.NewReader([]byte{0xEE, 0x07})}
	u = newUARTPort(f)
	if err := u.WriteReg(RegOprMode, []byte{0x0C}); err == nil {
		t.Errorf("rejected write reported success")
	}
}

func TestUARTRead(t *testing.T) {
	f := &fakeUART{reply: bytes.NewReader([]byte{0xBB, 0x02, 0x34, 0x12})}
	u := newUARTPort(f)
	buf := make([]byte, 2)
	if err := u.ReadReg(RegEulerData, buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(f.sent.Bytes(), []byte{0xAA, 0x01, 0x1A, 0x02}) {
		t.Errorf("sent % x", f.sent.Bytes())
	}
	if binary.LittleEndian.Uint16(buf) != 0x1234 {
		t.Errorf("read % x", buf)
	}

	f = &fakeUART{reply: bytes.NewReader([]byte{0xEE, 0x07})}
	u = newUARTPort(f)
	if err := u.ReadReg(RegEulerData, buf); err == nil {
		t.Errorf("error status reported success")
	}
}

func TestFileStore(t *testing.T) {
	dir, err := ioutil.TempDir("", "bno055")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	fs := FileStore{Path: filepath.Join(dir, "cal.yaml")}
	if _, ok, err := fs.Load(); ok || err != nil {
		t.Fatalf("missing file gave ok=%v err=%v", ok, err)
	}
	c := Coefficients{AccelOffset: [3]int16{-12, 3, 40}, MagRadius: 640}
	if err := fs.Save(c); err != nil {
		t.Fatal(err)
	}
	got, ok, err := fs.Load()
	if !ok || err != nil || got != c {
		t.Fatalf("loaded %+v ok=%v err=%v", got, ok, err)
	}

	if err := ioutil.WriteFile(fs.Path, []byte("bogus: [1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := fs.Load(); err == nil {
		t.Errorf("corrupt file loaded")
	}
}

type fakeSensor struct {
	modes    []OperatingMode
	status   CalibrationStatus
	coeffs   Coefficients
	written  *Coefficients
	sample   Sample
	readErr  error
	coeffErr error
}

func (f *fakeSensor) SetMode(m OperatingMode) error {
	f.modes = append(f.modes, m)
	return nil
}

func (f *fakeSensor) CalibrationStatus() (CalibrationStatus, error) { return f.status, nil }

func (f *fakeSensor) Coefficients() (Coefficients, error) { return f.coeffs, f.coeffErr }

func (f *fakeSensor) SetCoefficients(c Coefficients) error {
	f.written = &c
	return nil
}

func (f *fakeSensor) Read() (Sample, error) { return f.sample, f.readErr }

func newShares() Shares {
	return Shares{
		Heading:         share.New[float64]("heading"),
		CalibrationDone: share.NewFlag("cal"),
		ZeroHeading:     share.NewFlag("zero"),
		EulerX:          share.New[float64]("eulx"),
		EulerY:          share.New[float64]("euly"),
		EulerZ:          share.New[float64]("eulz"),
		RateX:           share.New[float64]("ratex"),
		RateY:           share.New[float64]("ratey"),
		RateZ:           share.New[float64]("ratez"),
	}
}

func TestCalibrateThenSave(t *testing.T) {
	sensor := &fakeSensor{
		status: CalibrationStatus{Sys: 3, Gyro: 3, Accel: 2, Mag: 3},
		coeffs: Coefficients{GyroOffset: [3]int16{1, 2, 3}},
	}
	store := &MemoryStore{}
	s := newShares()
	task := NewTask(sensor, store, ModeNDOF, s)

	task.Step()
	if task.State() != Calibrate {
		t.Fatalf("state %v with nothing saved", task.State())
	}
	task.Step()
	task.Step()
	if task.State() != Calibrate || s.CalibrationDone.IsRaised() {
		t.Fatalf("left calibration early: %v", task.State())
	}

	sensor.status.Accel = 3
	task.Step()
	if task.State() != SaveCalibration {
		t.Fatalf("state %v once calibrated", task.State())
	}
	task.Step()
	if task.State() != Running || !s.CalibrationDone.IsRaised() {
		t.Fatalf("state %v, done %v after saving", task.State(), s.CalibrationDone.IsRaised())
	}
	saved, ok, _ := store.Load()
	if !ok || saved != sensor.coeffs {
		t.Errorf("saved %+v ok=%v", saved, ok)
	}
	if last := sensor.modes[len(sensor.modes)-1]; last != ModeNDOF {
		t.Errorf("left in %v", last)
	}
}

func TestLoadSavedCalibration(t *testing.T) {
	sensor := &fakeSensor{}
	store := &MemoryStore{}
	want := Coefficients{MagOffset: [3]int16{-5, 6, 7}}
	_ = store.Save(want)
	s := newShares()
	task := NewTask(sensor, store, ModeNDOF, s)

	task.Step()
	if task.State() != LoadCalibration {
		t.Fatalf("state %v with calibration saved", task.State())
	}
	task.Step()
	if sensor.written == nil || *sensor.written != want {
		t.Fatalf("wrote %+v", sensor.written)
	}
	if task.State() != Running || !s.CalibrationDone.IsRaised() {
		t.Fatalf("state %v after loading", task.State())
	}
	expectedModes := []OperatingMode{ModeNDOF, ModeConfig, ModeNDOF}
	if len(sensor.modes) != len(expectedModes) {
		t.Fatalf("modes %v", sensor.modes)
	}
	for i := range expectedModes {
		if sensor.modes[i] != expectedModes[i] {
			t.Errorf("modes %v, expected %v", sensor.modes, expectedModes)
			break
		}
	}
}

func TestFailedSaveRetries(t *testing.T) {
	sensor := &fakeSensor{
		status:   CalibrationStatus{3, 3, 3, 3},
		coeffErr: errors.New("i2c"),
	}
	task := NewTask(sensor, &MemoryStore{}, ModeNDOF, newShares())
	task.Step()
	task.Step()
	task.Step()
	if task.State() != SaveCalibration {
		t.Fatalf("state %v after a failed coefficient read", task.State())
	}
	sensor.coeffErr = nil
	task.Step()
	if task.State() != Running {
		t.Fatalf("state %v after retry", task.State())
	}
}

func TestHeadingZeroing(t *testing.T) {
	sensor := &fakeSensor{}
	store := &MemoryStore{}
	_ = store.Save(Coefficients{})
	s := newShares()
	task := NewTask(sensor, store, ModeNDOF, s)
	task.Step()
	task.Step()

	sensor.sample = Sample{EulerX: 1, RateZ: 0.25}
	s.ZeroHeading.Put()
	task.Step()
	if s.ZeroHeading.IsRaised() {
		t.Errorf("zero request not cleared")
	}
	if s.Heading.Get() != 0 {
		t.Errorf("heading %v right after zeroing", s.Heading.Get())
	}
	if s.EulerX.Get() != 1 || s.RateZ.Get() != 0.25 {
		t.Errorf("raw values not published")
	}

	// Compass readings grow clockwise, so turning left lowers EulerX.
	sensor.sample.EulerX = 0.5
	task.Step()
	if !closeTo(s.Heading.Get(), 0.5) {
		t.Errorf("heading %v after turning left, expected 0.5", s.Heading.Get())
	}
	sensor.sample.EulerX = 1.5
	task.Step()
	if !closeTo(s.Heading.Get(), 2*math.Pi-0.5) {
		t.Errorf("heading %v after turning right, expected 2π-0.5", s.Heading.Get())
	}

	sensor.readErr = errors.New("bus")
	task.Step()
	if !closeTo(s.Heading.Get(), 2*math.Pi-0.5) {
		t.Errorf("heading changed on a failed read")
	}
}

func TestInvalidStatePanics(t *testing.T) {
	task := NewTask(&fakeSensor{}, &MemoryStore{}, ModeNDOF, newShares())
	task.state = TaskState(42)
	defer func() {
		if recover() == nil {
			t.Errorf("no panic")
		}
	}()
	task.Step()
}
