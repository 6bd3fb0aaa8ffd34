package modbusclient

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/goburrow/modbus"
	"github.com/sirupsen/logrus"
)

// Client is the part of the modbus protocol the heat pump adapter uses.
type Client interface {
	ReadInputRegister(address uint16) (int, error)
	ReadHoldingRegister16(address uint16) (int, error)
	ReadDiscreteInput(address uint16) (bool, error)
	WriteSingleRegister(address, value uint16) (results []byte, err error)
}

type client struct {
	client modbus.Client
	close  func() error
}

// New wraps a goburrow client. close drops the connection so the handler
// dials again on the next request.
func New(c modbus.Client, close func() error) *client {
	return &client{
		client: c,
		close:  close,
	}
}

// NewTCP connects lazily to a modbus tcp slave.
func NewTCP(address string, slaveID int) *client {
	handler := modbus.NewTCPClientHandler(address)
	handler.SlaveId = byte(slaveID)
	handler.Timeout = 5 * time.Second
	return New(modbus.NewClient(handler), handler.Close)
}

func (c *client) Close() error {
	return c.close()
}

// request runs one modbus call and drops the connection when it is broken.
func (c *client) request(call func() ([]byte, error)) ([]byte, error) {
	b, err := call()
	if err == nil {
		return b, nil
	}

	var reason string
	switch {
	case errors.Is(err, syscall.EPIPE):
		reason = "broken pipe"
	case errors.Is(err, os.ErrDeadlineExceeded):
		reason = "i/o timeout"
	default:
		return b, err
	}
	logrus.WithError(err).Warnf("modbus: reconnect due to %s", reason)
	if cerr := c.close(); cerr != nil {
		logrus.WithError(cerr).Error("modbus: error closing client")
	}
	return b, err
}

func (c *client) ReadInputRegister(address uint16) (int, error) {
	b, err := c.request(func() ([]byte, error) { return c.client.ReadInputRegisters(address, 1) })
	if err != nil {
		return 0, fmt.Errorf("error reading address %d: %w", address, err)
	}
	return Decode(b), nil
}

func (c *client) ReadHoldingRegister16(address uint16) (int, error) {
	b, err := c.request(func() ([]byte, error) { return c.client.ReadHoldingRegisters(address, 1) })
	if err != nil {
		return 0, fmt.Errorf("error reading address %d: %w", address, err)
	}
	return Decode(b), nil
}

func (c *client) ReadDiscreteInput(address uint16) (bool, error) {
	b, err := c.request(func() ([]byte, error) { return c.client.ReadDiscreteInputs(address, 1) })
	if err != nil {
		return false, fmt.Errorf("error reading address %d: %w", address, err)
	}
	return Bit(b), nil
}

func (c *client) WriteSingleRegister(address, value uint16) ([]byte, error) {
	b, err := c.request(func() ([]byte, error) { return c.client.WriteSingleRegister(address, value) })
	if err != nil {
		return b, fmt.Errorf("error writing address %d value %d: %w", address, value, err)
	}
	return b, nil
}

// Decode reads a signed big endian value of 1, 2, 4 or 8 bytes. Other lengths decode to 0.
func Decode(data []byte) int {
	switch len(data) {
	case 1:
		return int(int8(data[0]))
	case 2:
		return int(int16(binary.BigEndian.Uint16(data)))
	case 4:
		return int(int32(binary.BigEndian.Uint32(data)))
	case 8:
		return int(int64(binary.BigEndian.Uint64(data)))
	}
	return 0
}

// Bit returns the first bit of a coil or discrete input response.
func Bit(data []byte) bool {
	return len(data) > 0 && data[0]&0x01 == 0x01
}
