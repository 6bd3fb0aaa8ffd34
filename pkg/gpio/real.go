//go:build linux

package gpio

import (
	"fmt"

	"github.com/nergy-se/antipendel/pkg/config"
	"github.com/nergy-se/antipendel/pkg/controller"
	"github.com/sirupsen/logrus"
	"github.com/warthog618/go-gpiocdev"
)

type Board struct {
	chip       *gpiocdev.Chip
	relays     map[controller.Relay]*gpiocdev.Line
	thermostat *gpiocdev.Line
	activeLow  bool
}

// NewBoard requests all relay lines as outputs driven low and the thermostat line as input.
func NewBoard(cfg config.GPIO) (*Board, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.Chip, err)
	}
	b := &Board{
		chip:      chip,
		relays:    make(map[controller.Relay]*gpiocdev.Line),
		activeLow: cfg.ThermostatActiveLow,
	}

	for relay, offset := range Offsets(cfg) {
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request %s relay line %d: %w", relay, offset, err)
		}
		b.relays[relay] = line
	}

	b.thermostat, err = chip.RequestLine(cfg.Thermostat, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request thermostat line %d: %w", cfg.Thermostat, err)
	}
	return b, nil
}

func (b *Board) Set(relay controller.Relay, on bool) error {
	line, ok := b.relays[relay]
	if !ok {
		return fmt.Errorf("unknown relay %s", relay)
	}
	if err := line.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("set %s relay: %w", relay, err)
	}
	return nil
}

func (b *Board) Relay(relay controller.Relay) (bool, error) {
	line, ok := b.relays[relay]
	if !ok {
		return false, fmt.Errorf("unknown relay %s", relay)
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read %s relay: %w", relay, err)
	}
	return v == 1, nil
}

func (b *Board) Thermostat() (bool, error) {
	v, err := b.thermostat.Value()
	if err != nil {
		return false, fmt.Errorf("read thermostat: %w", err)
	}
	if b.activeLow {
		return v == 0, nil
	}
	return v == 1, nil
}

// Close switches all relays off and releases the lines.
func (b *Board) Close() error {
	var errs []error
	for relay, line := range b.relays {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("switch off %s relay: %w", relay, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s relay: %w", relay, err))
		}
	}
	if b.thermostat != nil {
		if err := b.thermostat.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close thermostat: %w", err))
		}
	}
	if err := b.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		logrus.WithField("errors", errs).Error("gpio: close errors")
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
