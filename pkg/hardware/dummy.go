package hardware

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/Jojo-Penrose/ME-405-Romi/pkg/angle"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/bno055"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/chassis"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/config"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/encoder"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/lidar"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/linesensor"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/motor"
	"github.com/Jojo-Penrose/ME-405-Romi/pkg/screen"
)

const (
	// Wheel speed at 1% duty.  Motors respond instantly.
	RadPerSecPerDuty = 0.08

	// Compass reading when the robot points along +x.
	compassAtStart = 1.0
	// Beyond this the distance sensor reports nothing nearer.
	rangeLimitMM = 1300
)

// Simulator is hardware that has to be stepped.  Its Step runs as the first
// task of every pass.
type Simulator interface {
	Step()
}

// Dummy is a flat-floor simulation of the robot: two driven wheels, a tape
// track, and round obstacles.  All of the Interface devices read from it.
type Dummy struct {
	lock sync.Mutex

	world       World
	wheelRadius float64
	wheelbase   float64
	radPerTick  float64
	dt          float64

	position r2.Vec
	heading  float64 // rad anticlockwise from +x, unwrapped
	turnRate float64 // rad/s
	wheel    [2]float64
	effort   [2]float64
	reverse  [2]bool

	presses int
	status  screen.Status
	sounds  []string
	store   bno055.MemoryStore
}

var (
	_ Interface = (*Dummy)(nil)
	_ Simulator = (*Dummy)(nil)
)

// NewDummy starts the robot at the origin pointing along +x.  Each Step
// advances the simulation by period.
func NewDummy(robot config.Robot, period time.Duration, world World) *Dummy {
	return &Dummy{
		world:       world,
		wheelRadius: robot.WheelRadius,
		wheelbase:   robot.Wheelbase,
		radPerTick:  2 * math.Pi / robot.TicksPerRev,
		dt:          period.Seconds(),
	}
}

func (d *Dummy) Start(ctx context.Context) {
	fmt.Println("DHW: Start")
}

// Step moves the robot for one period at the current motor efforts.
func (d *Dummy) Step() {
	d.lock.Lock()
	defer d.lock.Unlock()

	var arc [2]float64
	for i := range d.wheel {
		speed := d.effort[i] * RadPerSecPerDuty
		if d.reverse[i] {
			speed = -speed
		}
		d.wheel[i] += speed * d.dt
		arc[i] = speed * d.dt * d.wheelRadius
	}
	turn := (arc[1] - arc[0]) / d.wheelbase
	mean := d.heading + turn/2
	forward := (arc[0] + arc[1]) / 2
	d.position = r2.Add(d.position, r2.Scale(forward, r2.Vec{X: math.Cos(mean), Y: math.Sin(mean)}))
	d.heading += turn
	d.turnRate = turn / d.dt
}

// Pose is the true position and heading, for tests and the simulator's log.
func (d *Dummy) Pose() (r2.Vec, float64) {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.position, angle.HeadingFromFloat(d.heading).Float()
}

// sensorPoint is where a sensor offset left of the centreline by lateral
// sits on the floor.  Must be called with the lock held.
func (d *Dummy) sensorPoint(lateral float64) r2.Vec {
	fwd := r2.Vec{X: math.Cos(d.heading), Y: math.Sin(d.heading)}
	left := r2.Vec{X: -fwd.Y, Y: fwd.X}
	return r2.Add(d.position, r2.Add(r2.Scale(chassis.SensorAhead, fwd), r2.Scale(lateral, left)))
}

func (d *Dummy) LeftEncoder() encoder.Counter   { return dummyEncoder{d: d, side: 0} }
func (d *Dummy) RightEncoder() encoder.Counter  { return dummyEncoder{d: d, side: 1} }
func (d *Dummy) IMU() bno055.Sensor             { return dummyIMU{d} }
func (d *Dummy) LineADC() linesensor.ADC        { return dummyADC{d} }
func (d *Dummy) Rangefinder() lidar.PulseSource { return dummyRangefinder{d} }
func (d *Dummy) LeftMotor() motor.Output        { return dummyMotor{d: d, side: 0} }
func (d *Dummy) RightMotor() motor.Output       { return dummyMotor{d: d, side: 1} }

func (d *Dummy) CalibrationStore() bno055.CoefficientStore {
	return &d.store
}

// Press simulates the operator pressing the button.
func (d *Dummy) Press() {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.presses++
}

func (d *Dummy) ButtonPresses() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.presses
}

func (d *Dummy) ShowStatus(s screen.Status) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.status = s
}

// Status is the last status shown.
func (d *Dummy) Status() screen.Status {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.status
}

func (d *Dummy) PlaySound(cue string) {
	fmt.Printf("DHW: PlaySound cue=%v\n", cue)
	d.lock.Lock()
	defer d.lock.Unlock()
	d.sounds = append(d.sounds, cue)
}

// Sounds lists the cues played so far.
func (d *Dummy) Sounds() []string {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]string(nil), d.sounds...)
}

func (d *Dummy) Shutdown() {
	fmt.Println("DHW: Shutdown")
	d.lock.Lock()
	defer d.lock.Unlock()
	d.effort = [2]float64{}
}

type dummyEncoder struct {
	d    *Dummy
	side int
}

func (e dummyEncoder) Count() (uint16, error) {
	e.d.lock.Lock()
	defer e.d.lock.Unlock()
	ticks := int64(math.Floor(e.d.wheel[e.side] / e.d.radPerTick))
	return uint16(ticks), nil
}

type dummyMotor struct {
	d    *Dummy
	side int
}

func (m dummyMotor) SetEffort(percent float64) error {
	m.d.lock.Lock()
	defer m.d.lock.Unlock()
	m.d.effort[m.side] = math.Max(0, math.Min(percent, 100))
	return nil
}

func (m dummyMotor) SetReverse(reverse bool) error {
	m.d.lock.Lock()
	defer m.d.lock.Unlock()
	m.d.reverse[m.side] = reverse
	return nil
}

// dummyIMU is always calibrated.  Its compass grows clockwise, like the
// real chip's.
type dummyIMU struct {
	d *Dummy
}

func (dummyIMU) SetMode(bno055.OperatingMode) error { return nil }

func (dummyIMU) CalibrationStatus() (bno055.CalibrationStatus, error) {
	return bno055.CalibrationStatus{Sys: 3, Gyro: 3, Accel: 3, Mag: 3}, nil
}

func (dummyIMU) Coefficients() (bno055.Coefficients, error) { return bno055.Coefficients{}, nil }

func (dummyIMU) SetCoefficients(bno055.Coefficients) error { return nil }

func (i dummyIMU) Read() (bno055.Sample, error) {
	i.d.lock.Lock()
	defer i.d.lock.Unlock()
	return bno055.Sample{
		EulerX: angle.HeadingFromFloat(compassAtStart - i.d.heading).Float(),
		RateZ:  i.d.turnRate,
	}, nil
}

// dummyADC maps channels 0-4 to the five front sensors, left to right.
type dummyADC struct {
	d *Dummy
}

func (a dummyADC) Read(channel int) (uint16, error) {
	if channel < 0 || channel > 4 {
		return 0, nil
	}
	a.d.lock.Lock()
	defer a.d.lock.Unlock()
	lateral := float64(2-channel) * chassis.SensorSpacing
	r := a.d.world.Track.Reflectance(a.d.sensorPoint(lateral))
	return uint16(math.Round(r * linesensor.FullScale)), nil
}

type dummyRangefinder struct {
	d *Dummy
}

func (r dummyRangefinder) PulseWidth() (time.Duration, bool) {
	r.d.lock.Lock()
	defer r.d.lock.Unlock()
	from := r.d.sensorPoint(0)
	dir := r2.Vec{X: math.Cos(r.d.heading), Y: math.Sin(r.d.heading)}
	mm := math.Min(r.d.world.RangeMM(from, dir), rangeLimitMM)
	us := 1000 + mm/0.75
	return time.Duration(us * float64(time.Microsecond)), true
}
