// Package controller decides once per tick which relays of the heat pump
// installation should be on and which supply temperature the heat pump tracks.
//
// A tick refreshes the inputs, runs the events registered by the active state,
// runs the state handler, writes the target when it changed, clears the change
// flags and finally commits the transition the handler asked for. A handler
// always runs against the state that was active at the start of the tick.
//
// The controller is not safe for concurrent use; the host calls Tick from one goroutine.
package controller

import (
	"math"

	"github.com/nergy-se/antipendel/pkg/alarm"
	"github.com/nergy-se/antipendel/pkg/config"
	"github.com/nergy-se/antipendel/pkg/curve"
	"github.com/nergy-se/antipendel/pkg/derivative"
	"github.com/nergy-se/antipendel/pkg/input"
	"github.com/nergy-se/antipendel/pkg/state"
	"github.com/sirupsen/logrus"
)

const (
	// seconds of controller time before INIT looks at the sensors
	initDelay = 90
)

type Controller struct {
	tunables  config.Tunables
	interval  uint64
	sensors   Sensors
	target    TargetWriter
	publisher Publisher
	guard     *Guard
	alarms    *alarm.ActiveAlarms

	clock    *input.Clock
	readings Readings
	haveRead bool

	thermostatSensor *input.Tracked[bool]
	thermostat       *input.Tracked[bool]
	compressor       *input.Tracked[bool]
	hotWater         *input.Tracked[bool]
	defrost          *input.Tracked[bool]
	boost            *input.Tracked[bool]
	backupHeat       *input.Tracked[bool]
	pump             *input.Tracked[bool]
	heat             *input.Tracked[bool]
	primaryPump      *input.Tracked[bool]
	silentMode       *input.Tracked[bool]
	oat              *input.Tracked[float64]
	curveTarget      *input.Tracked[float64]
	tracking         *input.Tracked[float64]
	newTarget        *input.Tracked[float64]
	tracked          []input.Unflagger

	curve       *curve.Calculator
	rawOAT      float64
	boostOffset float64
	predictor   derivative.Predictor
	estimate    derivative.Estimate

	delta         float64
	pendulumDelta float64

	current    State
	prev       State
	next       State
	stateStart uint64
	runStart   uint64
	entryDone  bool
	handlers   map[State]handler

	lastSent float64
}

// New creates a controller in INIT. interval is the tick period in seconds.
func New(tunables config.Tunables, interval uint64, sensors Sensors, actuators Actuators, target TargetWriter, publisher Publisher) *Controller {
	if publisher == nil {
		publisher = Publishers{}
	}
	clock := &input.Clock{}
	c := &Controller{
		tunables:  tunables,
		interval:  interval,
		sensors:   sensors,
		target:    target,
		publisher: publisher,
		alarms:    &alarm.ActiveAlarms{},
		clock:     clock,
		curve:     curve.NewCalculator(),
		current:   StateInit,
		prev:      StateNone,
		next:      StateNone,
		lastSent:  math.NaN(),
	}

	c.thermostatSensor = c.newBool("thermostat_sensor")
	c.thermostat = c.newBool("thermostat")
	c.compressor = c.newBool("compressor")
	c.hotWater = c.newBool("sww_run")
	c.defrost = c.newBool("defrost_run")
	c.boost = c.newBool("boost")
	c.backupHeat = c.newBool("backup_heat")
	c.pump = c.newBool("external_pump")
	c.heat = c.newBool("relay_heat")
	c.primaryPump = c.newBool("wp_pump")
	c.silentMode = c.newBool("silent_mode")
	c.oat = c.newFloat("oat")
	c.curveTarget = c.newFloat("stooklijn_target")
	c.tracking = c.newFloat("tracking_value")
	c.newTarget = c.newFloat("temp_new_target")
	c.oat.Receive(20)
	c.rawOAT = 20

	c.guard = &Guard{
		actuators: actuators,
		publisher: publisher,
		alarms:    c.alarms,
		heat:      c.heat,
		pump:      c.pump,
		backup:    c.backupHeat,
		boost:     c.boost,
		silent:    c.silentMode,
	}
	c.handlers = c.stateTable()
	c.curve.Request()
	return c
}

func (c *Controller) newBool(name string) *input.Tracked[bool] {
	t := input.New[bool](name, c.clock)
	c.tracked = append(c.tracked, t)
	return t
}

func (c *Controller) newFloat(name string) *input.Tracked[float64] {
	t := input.New[float64](name, c.clock)
	c.tracked = append(c.tracked, t)
	return t
}

// SetTunables replaces the tunables between ticks and recomputes the heating curve on the next tick.
func (c *Controller) SetTunables(t config.Tunables) {
	c.tunables = t
	c.curve.Request()
}

// RequestCurveUpdate recomputes the heating curve on the next tick.
func (c *Controller) RequestCurveUpdate() {
	c.curve.Request()
}

func (c *Controller) State() State {
	return c.current
}

func (c *Controller) PrevState() State {
	return c.prev
}

// Tick runs one control cycle.
func (c *Controller) Tick() {
	c.clock.Advance(c.interval)

	readings, err := c.sensors.Read()
	if err != nil {
		c.log().WithError(err).Error("error reading sensors, keeping previous inputs")
		c.publisher.PublishInfo("ERROR: reading sensors failed")
	} else {
		c.readings = readings
		c.haveRead = true
	}

	// relay readbacks are needed in INIT to switch off what was left on
	c.receiveRelays()
	if c.current != StateInit {
		c.receiveInputs()
		c.processInputs()
	}

	c.next = c.step()

	c.alive()
	c.writeTarget()
	for _, t := range c.tracked {
		t.Unflag()
	}
	c.commit()
}

// step runs events and the handler of the current state and returns the
// requested next state, StateNone when no transition is requested.
func (c *Controller) step() State {
	h, ok := c.handlers[c.current]
	if !ok {
		c.log().Error("ERROR: State is none")
		c.publisher.PublishInfo("ERROR: state = NONE")
		c.alarms.Add("state is NONE")
		return StateNone
	}

	if !c.entryDone {
		c.entryDone = true
		if h.enter != nil {
			h.enter()
		}
	}
	if h.enforce != nil {
		h.enforce()
	}
	if h.events != 0 {
		if next, ok := c.dispatch(h.events); ok {
			return next
		}
	}
	return h.handle()
}

func (c *Controller) transition(next State) State {
	c.log().Debugf("State transition-> %s", next)
	return next
}

func (c *Controller) commit() {
	next := c.next
	c.next = StateNone
	if next == StateNone || next == c.current {
		return
	}
	c.prev = c.current
	c.current = next
	c.stateStart = c.clock.Now()
	c.entryDone = false
	if next == StateIdle {
		c.alarms.Clear()
	}
	c.publisher.PublishState(next.String())
	c.log().WithField("prev", c.prev.String()).Info("State transition complete")
}

func (c *Controller) receiveInputs() {
	r := c.readings
	c.thermostatSensor.Receive(r.Thermostat)
	c.thermostat.Receive(c.thermostatState())
	c.compressor.Receive(r.CompressorRunning)
	c.hotWater.Receive(r.HotWater)
	c.defrost.Receive(r.Defrost)
	c.rawOAT = math.Round(r.OutsideTemp)
	if curve.Valid(c.rawOAT) {
		c.oat.Receive(c.rawOAT)
	} else {
		c.curve.Request()
	}
	if c.oat.HasChanged() || c.curve.Pending() {
		c.updateCurve()
	}
	c.tracking.Receive(math.Floor(r.SupplyTemp))
	c.primaryPump.Receive(r.PumpRunning)
	if c.newTarget.Value() == 0 {
		c.newTarget.Receive(c.curveTarget.Value())
	}
	c.delta = c.tracking.Value() - c.curveTarget.Value()
	c.pendulumDelta = c.tracking.Value() - c.newTarget.Value()
}

func (c *Controller) receiveRelays() {
	r := c.readings
	c.boost.Receive(r.Boost)
	c.backupHeat.Receive(r.BackupHeatRelay)
	c.pump.Receive(r.PumpRelay)
	c.heat.Receive(r.HeatRelay)
	c.silentMode.Receive(r.SilentMode)
}

func (c *Controller) processInputs() {
	if c.boost.Value() && float64(c.boost.SecondsSinceChange()) > c.tunables.BoostTime*60 {
		c.guard.SetBoost(false)
	}
	if c.boost.HasChanged() {
		c.toggleBoost()
	}
	c.manageSilentMode()

	if c.primaryPump.Value() && c.current != StateHotWater && c.current != StateDefrost {
		c.estimate = c.predictor.Update(c.tracking.Value(), c.curveTarget.Value())
		c.publisher.PublishValue(ValueDerivative, c.estimate.Rate10*60)
	} else if !c.primaryPump.Value() && c.predictor.Len() > 0 {
		c.predictor.Reset()
		c.estimate = c.predictor.Estimate()
		c.publisher.PublishValue(ValueDerivative, 0)
	}
}

func (c *Controller) updateCurve() {
	target, ok := c.curve.Update(c.tunables.Curve(), c.rawOAT, c.boostOffset)
	if !ok {
		c.log().Warnf("invalid outside temperature %.1f, curve uses last valid reading", c.rawOAT)
	}
	c.curveTarget.Receive(target)
	c.publisher.PublishValue(ValueCurveTarget, target)
}

func (c *Controller) toggleBoost() {
	if c.boost.Value() {
		c.boostOffset = c.tunables.BoostOffset
		c.updateCurve()
		c.info("Boost mode active")
		return
	}
	c.boostOffset = 0
	c.updateCurve()
	c.info("Boost mode deactivated")
}

func (c *Controller) writeTarget() {
	if c.current == StateInit {
		return
	}
	// until the first write succeeds the target is sent every tick
	if !math.IsNaN(c.lastSent) && (!c.newTarget.HasChanged() || c.newTarget.Value() == c.lastSent) {
		return
	}
	target := math.Round(c.newTarget.Value())
	if err := c.target.WriteTarget(target); err != nil {
		c.log().WithError(err).Error("error writing target temperature")
		c.publisher.PublishInfo("ERROR: writing target failed")
		return
	}
	c.lastSent = c.newTarget.Value()
	c.publisher.PublishValue(ValueTarget, target)
	c.log().Debugf("target set to: %.0f", target)
}

func (c *Controller) alive() {
	if c.tunables.AliveInterval <= 0 || c.clock.Now()%uint64(c.tunables.AliveInterval) != 0 {
		return
	}
	c.log().WithFields(logrus.Fields{
		"timer":         c.clock.Now(),
		"oat":           c.oat.Value(),
		"inlet":         c.readings.ReturnTemp,
		"outlet":        c.readings.SupplyTemp,
		"tracking":      c.tracking.Value(),
		"stooklijn":     c.curveTarget.Value(),
		"target":        c.newTarget.Value(),
		"delta":         c.delta,
		"pendulumDelta": c.pendulumDelta,
	}).Debug("**alive**")
}

// setTarget changes the target the heat pump should track.
func (c *Controller) setTarget(t float64) {
	if t != c.newTarget.Value() {
		c.newTarget.Receive(t)
	}
}

// targetOffset is applied to the curve target at the start of a run.
func (c *Controller) targetOffset() float64 {
	if c.oat.Value() >= 10 {
		return -3
	}
	if c.oat.Value() >= c.tunables.SilentAlwaysOnOAT {
		return -2
	}
	return -1
}

// modulating reports if the compressor runs below the speed where it starts modulating.
func (c *Controller) modulating() bool {
	if c.silentMode.Value() {
		return c.readings.CompressorRPM <= 50
	}
	return c.readings.CompressorRPM <= 70
}

func (c *Controller) lowTempTrigger() bool {
	return c.oat.Value() <= c.tunables.BackupHeatAlwaysOnOAT
}

func (c *Controller) secondsInState() float64 {
	return float64(c.clock.Now() - c.stateStart)
}

func (c *Controller) secondsInRun() float64 {
	return float64(c.clock.Now() - c.runStart)
}

func (c *Controller) info(msg string) {
	c.log().Info(msg)
	c.publisher.PublishInfo(msg)
}

func (c *Controller) log() *logrus.Entry {
	return logrus.WithField("state", c.current.String())
}

func (c *Controller) setBackupHeat(on bool, reason BackupReason) {
	if err := c.guard.SetBackupHeat(on, reason); err != nil {
		c.log().WithError(err).Warn("backup heat request rejected")
	}
}

// Status returns a snapshot for telemetry.
func (c *Controller) Status() state.State {
	return state.State{
		State:         c.current.String(),
		FriendlyState: c.current.FriendlyName(),
		PrevState:     c.prev.String(),
		Outdoor:       state.Pointer(c.oat.Value()),
		Supply:        state.Pointer(c.readings.SupplyTemp),
		Return:        state.Pointer(c.readings.ReturnTemp),
		Tracking:      state.Pointer(c.tracking.Value()),
		CurveTarget:   state.Pointer(c.curveTarget.Value()),
		Target:        state.Pointer(c.newTarget.Value()),
		Delta:         state.Pointer(c.delta),
		PendulumDelta: state.Pointer(c.pendulumDelta),
		Derivative:    state.Pointer(c.estimate.Rate10 * 60),
		CompressorRPM: state.Pointer(c.readings.CompressorRPM),
		Thermostat:    state.Pointer(c.thermostat.Value()),
		Compressor:    state.Pointer(c.compressor.Value()),
		Heat:          state.Pointer(c.heat.Value()),
		Pump:          state.Pointer(c.pump.Value()),
		BackupHeat:    state.Pointer(c.backupHeat.Value()),
		Boost:         state.Pointer(c.boost.Value()),
		SilentMode:    state.Pointer(c.silentMode.Value()),
		Alarms:        c.alarms.List(),
	}
}
