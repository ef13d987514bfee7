package linesensor

import (
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

// MCP3208 is an 8-channel 12-bit SPI ADC.
type MCP3208 struct {
	lock   sync.Mutex
	port   spi.PortCloser
	c      spi.Conn
	tx, rx [3]byte
}

func OpenMCP3208(port string) (*MCP3208, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialise periph")
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open SPI port %q", port)
	}
	c, err := p.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		_ = p.Close()
		return nil, errors.Wrap(err, "failed to connect to MCP3208")
	}
	return &MCP3208{port: p, c: c}, nil
}

func (m *MCP3208) Close() error {
	return m.port.Close()
}

func (m *MCP3208) Read(channel int) (uint16, error) {
	if channel < 0 || channel > 7 {
		return 0, errors.Errorf("MCP3208 has no channel %d", channel)
	}
	m.lock.Lock()
	defer m.lock.Unlock()

	// Start bit, single-ended, then the 3-bit channel number straddling the
	// first two bytes.  The 12-bit result comes back in the last two.
	m.tx = [3]byte{0x06 | byte(channel>>2), byte(channel&3) << 6, 0}
	if err := m.c.Tx(m.tx[:], m.rx[:]); err != nil {
		return 0, err
	}
	return uint16(m.rx[1]&0x0F)<<8 | uint16(m.rx[2]), nil
}
