package encoder

import (
	"encoding/binary"
	"sync"
	"time"

	"golang.org/x/exp/io/i2c"

	"github.com/pkg/errors"
)

// The Romi's 32U4 control board counts the encoders and exposes the counts
// over I2C as part of its slave data block.
const (
	AStarAddr = 0x14

	RegLeftEncoder  = 39 // int16, little endian
	RegRightEncoder = 41
)

type AStar struct {
	lock sync.Mutex
	dev  *i2c.Device
}

func OpenAStar(bus string, addr int) (*AStar, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: bus}, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open 32U4 at %#x on %s", addr, bus)
	}
	return &AStar{dev: dev}, nil
}

func (a *AStar) Left() Counter {
	return astarCounter{a: a, reg: RegLeftEncoder}
}

func (a *AStar) Right() Counter {
	return astarCounter{a: a, reg: RegRightEncoder}
}

func (a *AStar) read(reg byte, buf []byte) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if err := a.dev.Write([]byte{reg}); err != nil {
		return err
	}
	// The 32U4 needs a moment to load the buffer after the address write.
	time.Sleep(100 * time.Microsecond)
	return a.dev.Read(buf)
}

func (a *AStar) Close() error {
	return a.dev.Close()
}

type astarCounter struct {
	a   *AStar
	reg byte
}

func (c astarCounter) Count() (uint16, error) {
	var buf [2]byte
	if err := c.a.read(c.reg, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}
