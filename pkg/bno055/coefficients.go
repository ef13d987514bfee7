package bno055

import (
	"encoding/binary"
	"io/ioutil"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// CoefficientBytes is the size of the calibration block at RegCalibData.
const CoefficientBytes = 22

// Coefficients are the offsets the chip learns while calibrating.  Restoring
// them at start up skips the figure-of-eight dance.
type Coefficients struct {
	AccelOffset [3]int16 `yaml:"accel_offset"`
	MagOffset   [3]int16 `yaml:"mag_offset"`
	GyroOffset  [3]int16 `yaml:"gyro_offset"`
	AccelRadius int16    `yaml:"accel_radius"`
	MagRadius   int16    `yaml:"mag_radius"`
}

func CoefficientsFromBytes(buf [CoefficientBytes]byte) (c Coefficients) {
	word := func(i int) int16 {
		return int16(binary.LittleEndian.Uint16(buf[2*i:]))
	}
	for i := 0; i < 3; i++ {
		c.AccelOffset[i] = word(i)
		c.MagOffset[i] = word(3 + i)
		c.GyroOffset[i] = word(6 + i)
	}
	c.AccelRadius = word(9)
	c.MagRadius = word(10)
	return
}

func (c Coefficients) Bytes() (buf [CoefficientBytes]byte) {
	put := func(i int, v int16) {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	for i := 0; i < 3; i++ {
		put(i, c.AccelOffset[i])
		put(3+i, c.MagOffset[i])
		put(6+i, c.GyroOffset[i])
	}
	put(9, c.AccelRadius)
	put(10, c.MagRadius)
	return
}

// CoefficientStore persists calibration coefficients between runs.  Load
// reports false, with no error, if nothing has been saved yet.
type CoefficientStore interface {
	Load() (Coefficients, bool, error)
	Save(c Coefficients) error
}

// FileStore keeps the coefficients in a YAML file.
type FileStore struct {
	Path string
}

func (f FileStore) Load() (Coefficients, bool, error) {
	var c Coefficients
	data, err := ioutil.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return c, false, nil
	}
	if err != nil {
		return c, false, errors.Wrapf(err, "failed to read calibration file %s", f.Path)
	}
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return c, false, errors.Wrapf(err, "failed to parse calibration file %s", f.Path)
	}
	return c, true, nil
}

func (f FileStore) Save(c Coefficients) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal calibration")
	}
	if err := ioutil.WriteFile(f.Path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write calibration file %s", f.Path)
	}
	return nil
}

// MemoryStore is a CoefficientStore for the simulator and tests.
type MemoryStore struct {
	lock  sync.Mutex
	c     Coefficients
	saved bool
}

func (m *MemoryStore) Load() (Coefficients, bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.c, m.saved, nil
}

func (m *MemoryStore) Save(c Coefficients) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.c, m.saved = c, true
	return nil
}
