package controller

import "math"

type handler struct {
	// events checked every tick before handle
	events Event
	// enter runs once on the first tick in the state
	enter func()
	// enforce runs every tick before the events
	enforce func()
	// handle returns the requested next state or StateNone to stay
	handle func() State
}

func (c *Controller) stateTable() map[State]handler {
	return map[State]handler{
		StateInit: {
			enforce: c.backupAndBoostOff,
			handle:  c.runInit,
		},
		StateIdle: {
			events:  EventHotWater | EventDefrost,
			enforce: c.enforceIdle,
			handle:  c.runIdle,
		},
		StateStart: {
			enter:   c.enterStart,
			enforce: func() { c.setBackupHeat(false, BackupReasonRequest) },
			handle:  c.runStartState,
		},
		StateStarting: {
			events:  EventHotWater | EventDefrost | EventThermostat | EventRelayHeat,
			enforce: c.backupAndBoostOff,
			handle:  c.runStarting,
		},
		StateStabilize: {
			events:  EventHotWater | EventDefrost | EventThermostat | EventRelayHeat | EventCompressor,
			enforce: c.backupAndBoostOff,
			handle:  c.runStabilize,
		},
		StateRun: {
			events: EventHotWater | EventDefrost | EventThermostat | EventRelayHeat | EventCompressor | EventEmergency | EventBackupHeat,
			handle: c.runRun,
		},
		StateOvershoot: {
			events:  EventHotWater | EventDefrost | EventThermostat | EventRelayHeat | EventCompressor,
			enforce: func() { c.setBackupHeat(false, BackupReasonRequest) },
			handle:  c.runOvershoot,
		},
		StateStall: {
			events: EventHotWater | EventDefrost | EventThermostat | EventRelayHeat | EventCompressor | EventEmergency | EventBackupHeat,
			handle: c.runStall,
		},
		StateWait: {
			events: EventHotWater | EventDefrost | EventThermostat | EventRelayHeat | EventBackupHeat,
			handle: c.runWait,
		},
		StateHotWater: {
			events: EventDefrost | EventThermostat | EventRelayHeat | EventBackupHeat,
			enter:  c.enterHotWater,
			handle: c.runHotWater,
		},
		StateDefrost: {
			events: EventThermostat | EventRelayHeat | EventBackupHeat,
			enter:  c.enterDefrost,
			handle: c.runDefrost,
		},
		StateAfterrun: {
			events:  EventHotWater,
			enforce: c.enforceAfterrun,
			handle:  c.runAfterrun,
		},
	}
}

func (c *Controller) backupAndBoostOff() {
	c.setBackupHeat(false, BackupReasonRequest)
	c.guard.SetBoost(false)
}

// runInit waits for the sensors to populate.
func (c *Controller) runInit() State {
	r := c.readings
	if c.clock.Now() < initDelay || !c.haveRead || math.IsNaN(r.OutsideTemp) || math.IsNaN(r.SupplyTemp) || math.IsNaN(r.ReturnTemp) {
		return StateNone
	}
	c.receiveInputs()
	if c.thermostat.Value() {
		c.publisher.PublishInfo("Init complete. First state: START")
		return c.transition(StateStart)
	}
	c.publisher.PublishInfo("Init complete. First state: IDLE")
	return c.transition(StateIdle)
}

func (c *Controller) enforceIdle() {
	c.setBackupHeat(false, BackupReasonRequest)
	c.guard.SetHeat(false)
	c.guard.SetPump(false)
	c.guard.SetBoost(false)
}

func (c *Controller) runIdle() State {
	if c.thermostat.Value() {
		c.log().Debug("THERMOSTAT ON next state: START")
		return c.transition(StateStart)
	}
	return StateNone
}

func (c *Controller) enterStart() {
	c.guard.SetPump(true)
	c.guard.SetHeat(true)
	c.setBackupHeat(false, BackupReasonRequest)
}

// runStartState lets the pump run for three minutes and sets the initial target:
// at least tracking+2 so the compressor starts, at most the curve target.
func (c *Controller) runStartState() State {
	if c.secondsInState() < 3*60 {
		return StateNone
	}
	curveTarget := c.curveTarget.Value()
	target := curveTarget + c.targetOffset()
	target = math.Max(target, c.tracking.Value()+2)
	target = math.Min(target, curveTarget)
	c.setTarget(target)
	c.log().Debugf("Run start initial target set; stooklijn_target: %.1f target: %.1f tracking_value: %.1f", curveTarget, target, c.tracking.Value())
	c.runStart = c.clock.Now()
	return c.transition(StateStarting)
}

func (c *Controller) runStarting() State {
	if c.compressor.Value() {
		return c.transition(StateStabilize)
	}
	return StateNone
}

// runStabilize hands over to RUN once the temperature is stable. Until then
// the target follows the tracking value, at most once every 5 minutes unless
// the run is about to be killed by the heat pump hysteresis.
func (c *Controller) runStabilize() State {
	modulating := c.modulating()
	inRun := c.secondsInRun()
	if inRun > 15*60 || (inRun > 6*60 && modulating) {
		rate := c.estimate.Rate10 * 60
		if modulating || (rate >= -3 && rate <= 3) {
			c.log().Debug("Stabilized, RUN is next")
			return c.transition(StateRun)
		}
	}

	if c.pendulumDelta >= c.tunables.Hysteresis || float64(c.newTarget.SecondsSinceChange()) > 5*60 {
		if c.delta > 0 {
			curveTarget := c.curveTarget.Value()
			target := math.Max(curveTarget+c.targetOffset(), c.tracking.Value()-4)
			c.setTarget(math.Min(target, curveTarget+c.tunables.MaxOvershoot))
		}
	}
	return StateNone
}

// lowTempBackup runs backup heat during the whole run in very cold weather.
func (c *Controller) lowTempBackup() {
	if c.lowTempTrigger() && float64(c.backupHeat.SecondsSinceChange()) > 15*60 {
		c.setBackupHeat(true, BackupReasonLowTemp)
	}
}

// runRun keeps a stable run on the curve target and escalates to OVERSHOOT or STALL.
func (c *Controller) runRun() State {
	c.lowTempBackup()

	target, curveTarget := c.newTarget.Value(), c.curveTarget.Value()
	if target != curveTarget {
		if target < curveTarget {
			c.log().Debug("Not running on stooklijn_target: new state will be stall")
			return c.transition(StateStall)
		}
		c.log().Debug("Not running on stooklijn_target: new state will be overshoot")
		return c.transition(StateOvershoot)
	}

	if c.secondsInState() < 5*60 {
		return StateNone
	}
	e := c.estimate
	if c.delta >= 1 && (e.Pred20Rate5 >= 2.5 || e.Pred20Rate10 >= 2.5) {
		c.log().Debugf("New state will be overshoot. delta: %.1f pred_20_delta_5: %.2f pred_20_delta_10: %.2f", c.delta, e.Pred20Rate5, e.Pred20Rate10)
		return c.transition(StateOvershoot)
	}
	if c.delta <= -2 || (c.delta <= -1 && (e.Pred20Rate5 < -3 || e.Pred20Rate10 < -3)) {
		c.log().Debugf("New state will be stall. delta: %.1f pred_20_delta_5: %.2f pred_20_delta_10: %.2f", c.delta, e.Pred20Rate5, e.Pred20Rate10)
		return c.transition(StateStall)
	}
	return StateNone
}

// runOvershoot raises the target to keep the compressor running and brings it
// back down to the curve target once the overshoot is contained.
func (c *Controller) runOvershoot() State {
	target, curveTarget := c.newTarget.Value(), c.curveTarget.Value()
	e := c.estimate

	if c.delta < 1 && e.Pred20Rate5 < 1.5 && e.Pred20Rate10 < 1.5 {
		c.setTarget(curveTarget)
		c.log().Debug("delta < 1, no overshoot predicted, my job is done.")
		return c.transition(StateRun)
	}
	if c.pendulumDelta >= c.tunables.Hysteresis {
		c.setTarget(math.Min(target+1, curveTarget+c.tunables.MaxOvershoot))
		c.log().Debugf("Emergency intervention, raised target (%.1f) if there was room", c.newTarget.Value())
		return StateNone
	}
	if target > curveTarget && c.pendulumDelta <= c.tunables.Hysteresis-1 {
		c.setTarget(math.Max(curveTarget, target-1))
		c.log().Debugf("Operating above stooklijn_target, target lowered to %.1f", c.newTarget.Value())
		return StateNone
	}
	c.log().Debugf("waiting for (predicted)delta to come within range delta: %.1f, pred_20_delta_5: %.2f, pred_20_delta_10: %.2f", c.delta, e.Pred20Rate5, e.Pred20Rate10)
	return StateNone
}

// runStall raises the target step by step to get the water temperature back
// to the curve target. Backup heat is the last resort.
func (c *Controller) runStall() State {
	c.lowTempBackup()

	target, curveTarget, tracking := c.newTarget.Value(), c.curveTarget.Value(), c.tracking.Value()
	e := c.estimate

	if target >= curveTarget && c.delta >= 0 && e.Pred20Rate5 >= 0 && e.Pred20Rate10 >= 0 {
		c.setTarget(curveTarget)
		c.log().Debug("delta >= 0, target >= stooklijn_target, my job is done.")
		return c.transition(StateRun)
	}

	// usually after a target change (boost) or a start, no waiting time
	if target < curveTarget && c.delta > 0 && c.modulating() {
		c.setTarget(curveTarget)
		return StateNone
	}

	if c.newTarget.SecondsSinceChange() < 10*60 {
		c.log().Debug("Stall is waiting for effect of previous target change")
		return StateNone
	}

	// delta projected 30 minutes ahead
	projected := c.delta + e.Rate5*30
	if target < curveTarget {
		step := 1.0
		if projected < 0 {
			step = 3
		}
		c.setTarget(math.Min(curveTarget, math.Max(tracking, target+step)))
		c.log().Debugf("Operating below target, raising target, target: %.1f", c.newTarget.Value())
		return StateNone
	}

	if c.modulating() && target < curveTarget+3 {
		c.setTarget(math.Min(curveTarget+3, tracking+3))
		c.log().Debugf("Modulating, raising target, target: %.1f", c.newTarget.Value())
		return StateNone
	}

	if projected < 0 {
		if c.oat.Value() < c.tunables.BackupHeatActiveOAT && !c.backupHeat.Value() {
			c.setBackupHeat(true, BackupReasonStall)
			c.log().Debug("tracking_value stalled, switched backup_heater on")
		}
		return StateNone
	}
	c.log().Debug("Stall is waiting for next action (or out of options).")
	return StateNone
}

// runWait handles a failed run: the compressor stopped while heat is still requested.
func (c *Controller) runWait() State {
	if c.curveTarget.HasChanged() {
		c.setTarget(c.curveTarget.Value())
		c.log().Debugf("Target changed: Setting new target: %.1f", c.newTarget.Value())
	}
	if c.secondsInState() < 6*60 {
		return StateNone
	}
	if c.compressor.Value() {
		return c.transition(StateRun)
	}
	return StateNone
}

// backupForHotWaterOrDefrost starts backup heat when heating continues during
// a hot water or defrost run in cold weather.
func (c *Controller) backupForHotWaterOrDefrost(reason BackupReason, skipped string) {
	if c.thermostat.Value() && c.oat.Value() <= c.tunables.BackupHeatActiveOAT {
		c.setBackupHeat(true, reason)
		return
	}
	c.publisher.PublishInfo(skipped)
}

func (c *Controller) enterHotWater() {
	c.backupForHotWaterOrDefrost(BackupReasonHotWater, "Starting SWW with no backup heat.")
}

func (c *Controller) runHotWater() State {
	if c.thermostat.HasChanged() && c.thermostat.Value() && c.oat.Value() <= c.tunables.BackupHeatActiveOAT {
		c.setBackupHeat(true, BackupReasonHotWater)
		c.publisher.PublishInfo("SWW thermostat on: backup heat on")
	}
	if c.hotWater.Value() {
		return StateNone
	}

	// thermostat sensor off after hot water, straight off without delay
	if !c.thermostatSensor.Value() {
		return c.transition(StateAfterrun)
	}
	next := StateWait
	if c.compressor.Value() {
		next = StateRun
	}
	// make up for the lost heating time when there was no backup heat
	if !c.backupHeat.Value() {
		c.info("SWW done starting boost.")
		c.guard.SetBoost(true)
	}
	c.setTarget(c.curveTarget.Value())
	return c.transition(next)
}

func (c *Controller) enterDefrost() {
	c.backupForHotWaterOrDefrost(BackupReasonDefrost, "DEFROST with backup heat off.")
}

func (c *Controller) runDefrost() State {
	if c.defrost.Value() {
		return StateNone
	}
	c.setTarget(c.curveTarget.Value())
	// defrost takes about 4 minutes, give values and backup heat time to settle
	if c.secondsInState() < 10*60 {
		return StateNone
	}
	if !c.thermostatSensor.Value() {
		return c.transition(StateAfterrun)
	}
	if !c.compressor.Value() {
		c.setBackupHeat(false, BackupReasonRequest)
		return c.transition(StateWait)
	}
	if c.delta > 0 {
		c.setBackupHeat(false, BackupReasonRequest)
		return c.transition(StateRun)
	}
	return c.transition(StateStall)
}

func (c *Controller) enforceAfterrun() {
	c.setBackupHeat(false, BackupReasonRequest)
	c.guard.SetHeat(false)
	c.guard.SetBoost(false)
}

// runAfterrun lets the external pump run over before going idle.
func (c *Controller) runAfterrun() State {
	if c.thermostat.Value() {
		c.log().Debug("THERMOSTAT ON next state: START")
		return c.transition(StateStart)
	}
	if c.secondsInState() < c.tunables.PumpRunover*60 {
		return StateNone
	}
	return c.transition(StateIdle)
}
