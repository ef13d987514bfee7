package bno055

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

const (
	uartStart     = 0xAA
	uartWrite     = 0x00
	uartRead      = 0x01
	uartAck       = 0xEE
	uartReadReply = 0xBB
	uartWriteOK   = 0x01
)

// uartPort speaks the chip's register protocol over its UART interface.
// Bursts are limited to 128 bytes.
type uartPort struct {
	rw io.ReadWriter
	r  *bufio.Reader
}

func newUARTPort(rw io.ReadWriter) *uartPort {
	return &uartPort{rw: rw, r: bufio.NewReader(rw)}
}

// OpenSerial opens the chip on a serial device with its PS pins set for UART.
func OpenSerial(device string) (*Device, error) {
	s, err := serial.Open(device, &serial.Mode{BaudRate: 115200})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", device)
	}
	d := &Device{dev: newUARTPort(s), closer: s}
	if err := d.Configure(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

func (u *uartPort) WriteReg(reg byte, buf []byte) error {
	if len(buf) == 0 || len(buf) > 128 {
		return errors.Errorf("bad UART write length %d", len(buf))
	}
	msg := append([]byte{uartStart, uartWrite, reg, byte(len(buf))}, buf...)
	if _, err := u.rw.Write(msg); err != nil {
		return errors.Wrap(err, "UART write failed")
	}
	var resp [2]byte
	if _, err := io.ReadFull(u.r, resp[:]); err != nil {
		return errors.Wrap(err, "UART write: no acknowledgement")
	}
	if resp[0] != uartAck || resp[1] != uartWriteOK {
		return errors.Errorf("UART write to %#x rejected: %#x %#x", reg, resp[0], resp[1])
	}
	return nil
}

func (u *uartPort) ReadReg(reg byte, buf []byte) error {
	if len(buf) == 0 || len(buf) > 128 {
		return errors.Errorf("bad UART read length %d", len(buf))
	}
	if _, err := u.rw.Write([]byte{uartStart, uartRead, reg, byte(len(buf))}); err != nil {
		return errors.Wrap(err, "UART read request failed")
	}
	var hdr [2]byte
	if _, err := io.ReadFull(u.r, hdr[:]); err != nil {
		return errors.Wrap(err, "UART read: no response")
	}
	if hdr[0] != uartReadReply {
		return errors.Errorf("UART read from %#x failed: %#x %#x", reg, hdr[0], hdr[1])
	}
	if int(hdr[1]) != len(buf) {
		return errors.Errorf("UART read from %#x returned %d bytes, expected %d", reg, hdr[1], len(buf))
	}
	if _, err := io.ReadFull(u.r, buf); err != nil {
		return errors.Wrap(err, "UART read: short response")
	}
	return nil
}
