package heatpump

import (
	"github.com/nergy-se/antipendel/pkg/controller"
)

// Board is the relay board: relay outputs with readback and the thermostat input.
type Board interface {
	controller.Actuators
	Relay(relay controller.Relay) (bool, error)
	Thermostat() (bool, error)
}

// Installation is the heat pump together with the relay board.
type Installation struct {
	pump  *HeatPump
	board Board
}

func NewInstallation(pump *HeatPump, board Board) *Installation {
	return &Installation{
		pump:  pump,
		board: board,
	}
}

func (i *Installation) Read() (controller.Readings, error) {
	r := controller.Readings{}
	var err error
	if r.Thermostat, err = i.board.Thermostat(); err != nil {
		return r, err
	}
	relays := []struct {
		relay controller.Relay
		dst   *bool
	}{
		{controller.RelayHeat, &r.HeatRelay},
		{controller.RelayPump, &r.PumpRelay},
		{controller.RelayBackupHeat, &r.BackupHeatRelay},
		{controller.RelayBoost, &r.Boost},
		{controller.RelaySilentMode, &r.SilentMode},
	}
	for _, rel := range relays {
		if *rel.dst, err = i.board.Relay(rel.relay); err != nil {
			return r, err
		}
	}
	return r, i.pump.Read(&r)
}

func (i *Installation) Set(relay controller.Relay, on bool) error {
	return i.board.Set(relay, on)
}

func (i *Installation) WriteTarget(celsius float64) error {
	return i.pump.WriteTarget(celsius)
}
