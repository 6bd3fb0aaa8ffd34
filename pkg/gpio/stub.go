//go:build !linux

package gpio

import (
	"errors"

	"github.com/nergy-se/antipendel/pkg/config"
	"github.com/nergy-se/antipendel/pkg/controller"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Board is not available on non-Linux platforms.
type Board struct{}

func NewBoard(cfg config.GPIO) (*Board, error) {
	return nil, errUnsupported
}

func (b *Board) Set(relay controller.Relay, on bool) error {
	return errUnsupported
}

func (b *Board) Relay(relay controller.Relay) (bool, error) {
	return false, errUnsupported
}

func (b *Board) Thermostat() (bool, error) {
	return false, errUnsupported
}

func (b *Board) Close() error {
	return nil
}
