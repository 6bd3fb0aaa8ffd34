// Package gpio drives the relay board over the linux gpio character device.
// Relays are outputs that can be read back, the thermostat is an input.
package gpio

import (
	"github.com/nergy-se/antipendel/pkg/config"
	"github.com/nergy-se/antipendel/pkg/controller"
)

// Offsets maps the relays to their line offsets.
func Offsets(cfg config.GPIO) map[controller.Relay]int {
	return map[controller.Relay]int{
		controller.RelayHeat:       cfg.HeatRelay,
		controller.RelayPump:       cfg.PumpRelay,
		controller.RelayBackupHeat: cfg.BackupRelay,
		controller.RelayBoost:      cfg.BoostRelay,
		controller.RelaySilentMode: cfg.SilentRelay,
	}
}

func boolToValue(on bool) int {
	if on {
		return 1
	}
	return 0
}
