package controller

import (
	"errors"

	"github.com/nergy-se/antipendel/pkg/alarm"
	"github.com/nergy-se/antipendel/pkg/input"
	"github.com/sirupsen/logrus"
)

// ErrBackupWithoutHeat is returned when backup heat is requested while heat demand is off.
var ErrBackupWithoutHeat = errors.New("backup heat requested without heat demand")

type BackupReason int

const (
	BackupReasonRequest BackupReason = iota
	BackupReasonLowTemp
	BackupReasonHotWater
	BackupReasonDefrost
	BackupReasonStall
)

func (r BackupReason) message() string {
	switch r {
	case BackupReasonLowTemp:
		return "Backup heat on due to low temp"
	case BackupReasonHotWater:
		return "Backup heat on due to SWW run"
	case BackupReasonDefrost:
		return "Backup heat on due to Defrost"
	case BackupReasonStall:
		return "Backup heat on due to STALL"
	}
	return "Backup heat on"
}

// Guard is the only writer of the relays. It keeps the physical interlocks:
// no heat demand without pump, no backup heat without heat demand and pump.
type Guard struct {
	actuators Actuators
	publisher Publisher
	alarms    *alarm.ActiveAlarms

	heat   *input.Tracked[bool]
	pump   *input.Tracked[bool]
	backup *input.Tracked[bool]
	boost  *input.Tracked[bool]
	silent *input.Tracked[bool]

	lowTempTrip bool
}

// SetHeat switches the heat demand relay. The pump is switched on first when
// needed, backup heat is switched off before heat demand goes off.
func (g *Guard) SetHeat(on bool) {
	if on {
		if !g.pump.Value() {
			g.violation("Invalid config: heat on before pump.")
			g.SetPump(true)
			if !g.pump.Value() {
				logrus.Error("guard: not switching heat on, pump is still off")
				return
			}
		}
		g.write(RelayHeat, g.heat, true)
		return
	}

	if g.backup.Value() {
		g.violation("Invalid config: heat off before backup_heat")
		g.SetBackupHeat(false, BackupReasonRequest)
		if g.backup.Value() {
			logrus.Error("guard: not switching heat off, backup heat is still on")
			return
		}
	}
	g.write(RelayHeat, g.heat, false)
}

// SetPump switches the external circulation pump. Heat demand and backup heat
// are switched off before the pump stops.
func (g *Guard) SetPump(on bool) {
	if on {
		g.write(RelayPump, g.pump, true)
		return
	}

	if g.heat.Value() {
		g.violation("Invalid config: pump off before heat")
		g.SetHeat(false)
	}
	if g.backup.Value() {
		g.violation("Invalid config: pump off before backup_heat")
		g.SetBackupHeat(false, BackupReasonRequest)
	}
	if g.heat.Value() || g.backup.Value() {
		logrus.Error("guard: not switching pump off, heat or backup heat is still on")
		return
	}
	g.write(RelayPump, g.pump, false)
}

// SetBackupHeat switches the electric backup heater. Switching it on is
// rejected with ErrBackupWithoutHeat while heat demand is off.
func (g *Guard) SetBackupHeat(on bool, reason BackupReason) error {
	if !on {
		if g.write(RelayBackupHeat, g.backup, false) {
			g.lowTempTrip = false
		}
		return nil
	}

	if !g.heat.Value() {
		logrus.Warn("guard: invalid configuration relay_backup_heat on before relay_heat")
		g.publisher.PublishInfo("ERROR: backup_heat on before heat.")
		g.alarms.Add(ErrBackupWithoutHeat.Error())
		return ErrBackupWithoutHeat
	}
	if !g.pump.Value() {
		g.violation("Invalid config: backup_heat on before pump.")
		g.SetPump(true)
		if !g.pump.Value() {
			logrus.Error("guard: not switching backup heat on, pump is still off")
			return nil
		}
	}
	if g.write(RelayBackupHeat, g.backup, true) {
		g.lowTempTrip = reason == BackupReasonLowTemp
		g.publisher.PublishInfo(reason.message())
	}
	return nil
}

// SetBoost only writes the switch. The boost readback is what drives the
// curve offset, so the tracked state follows on the next refresh.
func (g *Guard) SetBoost(on bool) {
	if g.boost.Value() == on {
		return
	}
	if err := g.actuators.Set(RelayBoost, on); err != nil {
		logrus.WithError(err).Error("guard: error switching boost")
		return
	}
	logrus.WithField("on", on).Info("guard: boost switched")
}

func (g *Guard) SetSilentMode(on bool) {
	g.write(RelaySilentMode, g.silent, on)
}

// LowTempTrip reports if the running backup heat was started by the low outside temperature trigger.
func (g *Guard) LowTempTrip() bool {
	return g.lowTempTrip
}

// write switches a relay when the tracked state differs and reports if it did.
func (g *Guard) write(relay Relay, tracked *input.Tracked[bool], on bool) bool {
	if tracked.Value() == on {
		return false
	}
	if err := g.actuators.Set(relay, on); err != nil {
		logrus.WithError(err).Errorf("guard: error switching %s", relay)
		g.publisher.PublishInfo("ERROR: switching " + string(relay) + " failed")
		return false
	}
	tracked.Receive(on)
	logrus.WithFields(logrus.Fields{"relay": relay, "on": on}).Info("guard: relay switched")
	return true
}

func (g *Guard) violation(msg string) {
	logrus.Warn("guard: " + msg)
	g.publisher.PublishInfo(msg)
	g.alarms.Add(msg)
}
