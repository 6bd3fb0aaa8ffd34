package controller

// Event is a condition a state can subscribe to. Events are checked before
// the state handler and may force a transition.
type Event uint16

const (
	EventDefrost Event = 1 << iota
	EventHotWater
	EventThermostat
	EventRelayHeat
	EventCompressor
	EventEmergency
	EventBackupHeat
)

// eventOrder is the priority in which subscribed events are checked.
var eventOrder = [...]Event{
	EventDefrost,
	EventHotWater,
	EventThermostat,
	EventRelayHeat,
	EventCompressor,
	EventEmergency,
	EventBackupHeat,
}

// dispatch checks the subscribed events in priority order. The first event
// that forces a transition wins and the remaining events are skipped.
func (c *Controller) dispatch(events Event) (State, bool) {
	for _, ev := range eventOrder {
		if events&ev == 0 {
			continue
		}
		if next, ok := c.checkEvent(ev); ok {
			return next, true
		}
	}
	return StateNone, false
}

func (c *Controller) checkEvent(ev Event) (State, bool) {
	switch ev {
	case EventDefrost:
		if c.defrost.Value() {
			c.log().Debug("DEFROST run detected next state: DEFROST")
			return c.transition(StateDefrost), true
		}

	case EventHotWater:
		if c.hotWater.Value() && !c.defrost.Value() {
			c.log().Debug("SWW run detected next state: SWW")
			return c.transition(StateHotWater), true
		}

	case EventThermostat:
		if c.thermostat.Value() {
			break
		}
		if !c.hotWater.Value() && !c.defrost.Value() {
			c.log().Debug("THERMOSTAT OFF next state: AFTERRUN")
			return c.transition(StateAfterrun), true
		}
		// heat pump is busy, only drop the heating side
		c.setBackupHeat(false, BackupReasonRequest)
		c.guard.SetHeat(false)

	case EventRelayHeat:
		if c.heat.Value() {
			break
		}
		if c.thermostat.Value() {
			c.guard.SetPump(true)
			c.guard.SetHeat(true)
			c.info("Heat switched off; thermostat on. Heat back on")
			break
		}
		if !c.hotWater.Value() && !c.defrost.Value() {
			c.info("Heat switched off. Aborting")
			return c.transition(StateAfterrun), true
		}

	case EventCompressor:
		if !c.compressor.Value() {
			c.log().Debug("Failed run detected next state: WAIT")
			return c.transition(StateWait), true
		}

	case EventEmergency:
		if c.pendulumDelta >= c.tunables.Hysteresis {
			c.log().Debugf("pendulum delta %.1f reached hysteresis next state: OVERSHOOT", c.pendulumDelta)
			return c.transition(StateOvershoot), true
		}

	case EventBackupHeat:
		c.backupHeatAutoOff()
	}
	return StateNone, false
}

// backupHeatAutoOff switches backup heat off when it is no longer needed.
func (c *Controller) backupHeatAutoOff() {
	if !c.backupHeat.Value() {
		return
	}
	switch {
	case !c.heat.Value() || !c.thermostat.Value():
		c.guard.SetHeat(false)
		c.setBackupHeat(false, BackupReasonRequest)
		c.info("Backup heat off due to no heat request")
	case c.oat.Value() > c.tunables.BackupHeatActiveOAT:
		c.setBackupHeat(false, BackupReasonRequest)
		c.info("Backup heat off due to high oat")
	case c.guard.LowTempTrip() && c.oat.Value() > c.tunables.BackupHeatAlwaysOnOAT:
		c.setBackupHeat(false, BackupReasonRequest)
		c.info("Backup heat off due to temperature improvement")
	}
}
