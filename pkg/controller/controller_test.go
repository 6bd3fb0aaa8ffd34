package controller

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitToStart(t *testing.T) {
	c, board, rec := newTestController(t)

	c.Tick()
	c.Tick()
	assert.Equal(t, StateInit, c.State())

	c.Tick()
	assert.Equal(t, StateStart, c.State())
	assert.Equal(t, StateInit, c.PrevState())
	assert.Equal(t, []string{"START"}, rec.states)
	assert.Empty(t, rec.targets, "no target is written from INIT")
	assert.True(t, c.thermostat.Value(), "thermostat is on without delay after boot")

	c.Tick()
	assert.Equal(t, StateStart, c.State())
	assert.Equal(t, []relayWrite{{RelayPump, true}, {RelayHeat, true}}, board.writes[:2])
}

func TestInitSwitchesOffRelaysLeftOn(t *testing.T) {
	c, board, _ := newTestController(t)
	board.relays[RelayPump] = true
	board.relays[RelayHeat] = true
	board.relays[RelayBackupHeat] = true
	board.relays[RelayBoost] = true

	c.Tick()
	assert.Equal(t, StateInit, c.State())
	assert.False(t, board.relays[RelayBackupHeat])
	assert.False(t, board.relays[RelayBoost])
	assert.True(t, board.relays[RelayHeat])
	assert.True(t, board.relays[RelayPump])

	c.Tick()
	assert.Equal(t, []relayWrite{{RelayBackupHeat, false}, {RelayBoost, false}}, board.writes)
}

func TestFirstTargetIsAlwaysWritten(t *testing.T) {
	c, board, rec := newTestController(t)
	board.readings.Thermostat = false
	for c.State() != StateIdle {
		c.Tick()
		require.Less(t, c.clock.Now(), uint64(600))
	}
	assert.Empty(t, rec.targets)

	rec.targetErr = errors.New("modbus timeout")
	c.Tick()
	assert.Empty(t, rec.targets)

	// retried without a target change until it succeeds
	rec.targetErr = nil
	c.Tick()
	assert.Equal(t, []float64{38}, rec.targets)

	c.Tick()
	assert.Equal(t, []float64{38}, rec.targets)
}

func TestInitToIdle(t *testing.T) {
	c, board, _ := newTestController(t)
	board.readings.Thermostat = false

	for i := 0; i < 3; i++ {
		c.Tick()
	}
	assert.Equal(t, StateIdle, c.State())
}

func TestInitWaitsForSensors(t *testing.T) {
	c, board, _ := newTestController(t)
	board.readings.SupplyTemp = math.NaN()

	for i := 0; i < 10; i++ {
		c.Tick()
	}
	assert.Equal(t, StateInit, c.State())

	board.readings.SupplyTemp = 30
	c.Tick()
	assert.Equal(t, StateStart, c.State())
}

func TestInitWaitsForFirstRead(t *testing.T) {
	c, board, _ := newTestController(t)
	board.readErr = errors.New("modbus timeout")

	for i := 0; i < 5; i++ {
		c.Tick()
	}
	assert.Equal(t, StateInit, c.State())

	board.readErr = nil
	c.Tick()
	assert.Equal(t, StateStart, c.State())
}

func TestStartSetsInitialTarget(t *testing.T) {
	tests := []struct {
		name     string
		supply   float64
		expected float64
		written  []float64
	}{
		// curve 38, offset -1 at oat -5. The target taken from the curve in
		// INIT is written on the first tick in START.
		{name: "cold water", supply: 25, expected: 37, written: []float64{38, 37}},
		{name: "warm water is bounded by the curve", supply: 37.5, expected: 38, written: []float64{38}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, board, rec := newTestController(t)
			board.readings.SupplyTemp = tt.supply
			for c.State() != StateStarting {
				c.Tick()
				require.Less(t, c.clock.Now(), uint64(600))
			}
			assert.Equal(t, tt.expected, c.newTarget.Value())
			assert.Equal(t, tt.written, rec.targets)
			assert.Equal(t, uint64(270), c.runStart)
		})
	}
}

func TestRunDeltaBelowCurveGoesToStall(t *testing.T) {
	c, board, rec := newTestController(t)
	board.readings.SupplyTemp = 36.6
	running(c, board, StateRun)
	c.clock.Advance(600)

	c.Tick()

	assert.Equal(t, StateStall, c.State())
	assert.Equal(t, StateRun, c.PrevState())
	assert.Equal(t, -2.0, c.delta)
	assert.Equal(t, []float64{38}, rec.targets)
	assert.Equal(t, 38.0, rec.values[ValueCurveTarget])
}

func TestCompressorOffForcesWait(t *testing.T) {
	c, board, _ := newTestController(t)
	board.readings.SupplyTemp = 36.6
	board.readings.CompressorRunning = false
	running(c, board, StateRun)
	c.compressor.Receive(true)
	c.clock.Advance(600)

	c.Tick()

	// the RUN handler would have asked for STALL
	assert.Equal(t, StateWait, c.State())
}

func TestOvershootReturnsToRun(t *testing.T) {
	c, board, rec := newTestController(t)
	board.readings.SupplyTemp = 38.2
	running(c, board, StateOvershoot)
	c.newTarget.Receive(40)

	c.Tick()

	assert.Equal(t, StateRun, c.State())
	assert.Equal(t, 38.0, c.newTarget.Value())
	assert.Equal(t, []float64{38}, rec.targets)
}

func TestOneTransitionPerTick(t *testing.T) {
	c, board, rec := newTestController(t)
	board.readings.SupplyTemp = 36.6
	running(c, board, StateRun)
	c.clock.Advance(600)

	c.Tick()
	assert.Equal(t, StateStall, c.State())
	assert.Len(t, rec.states, 1)

	// hot water while stalled: the event wins, the STALL handler does not run
	board.readings.HotWater = true
	c.Tick()
	assert.Equal(t, StateHotWater, c.State())
	assert.Equal(t, StateStall, c.PrevState())
	assert.Equal(t, []string{"STALL", "SWW"}, rec.states)
	assert.Equal(t, StateNone, c.next)
}

func TestHotWaterWithBackupHeat(t *testing.T) {
	c, board, rec := newTestController(t)
	running(c, board, StateRun)
	board.readings.HotWater = true

	c.Tick()
	assert.Equal(t, StateHotWater, c.State())
	assert.False(t, board.relays[RelayBackupHeat])

	// entry action on the first tick in SWW, oat -5 is at the backup threshold
	c.Tick()
	assert.True(t, board.relays[RelayBackupHeat])
	assert.Contains(t, rec.infos, "Backup heat on due to SWW run")

	board.readings.HotWater = false
	c.Tick()
	assert.Equal(t, StateRun, c.State())
	assert.False(t, board.relays[RelayBoost], "no boost when backup heat was used")
}

func TestHotWaterWithoutBackupHeatBoosts(t *testing.T) {
	c, board, _ := newTestController(t)
	board.readings.OutsideTemp = 2
	board.readings.CompressorRunning = false
	running(c, board, StateWait)
	board.readings.HotWater = true

	c.Tick()
	c.Tick()
	assert.False(t, board.relays[RelayBackupHeat])

	board.readings.HotWater = false
	c.Tick()
	assert.Equal(t, StateWait, c.State())
	assert.True(t, board.relays[RelayBoost])

	// the boost readback raises the curve on the next tick
	before := c.curveTarget.Value()
	c.Tick()
	assert.Equal(t, before+2, c.curveTarget.Value())
}

func TestBoostSwitchesOffAfterBoostTime(t *testing.T) {
	c, board, rec := newTestController(t)
	running(c, board, StateWait)
	board.relays[RelayBoost] = true

	c.Tick()
	assert.Contains(t, rec.infos, "Boost mode active")

	c.clock.Advance(61 * 60)
	c.Tick()
	assert.False(t, board.relays[RelayBoost])

	c.Tick()
	assert.Contains(t, rec.infos, "Boost mode deactivated")
}

func TestAfterrunToIdle(t *testing.T) {
	c, board, rec := newTestController(t)
	board.readings.Thermostat = false
	board.readings.CompressorRunning = false
	running(c, board, StateRun)
	c.alarms.Add("Invalid config: heat on before pump.")

	c.Tick()
	assert.Equal(t, StateAfterrun, c.State())

	c.Tick()
	assert.False(t, board.relays[RelayHeat])
	assert.True(t, board.relays[RelayPump], "pump runs over")

	c.clock.Advance(10 * 60)
	c.Tick()
	assert.Equal(t, StateIdle, c.State())
	assert.Empty(t, c.alarms.List())

	c.Tick()
	assert.False(t, board.relays[RelayPump])
	assert.Equal(t, []string{"AFTERRUN", "IDLE"}, rec.states)
}

func TestAfterrunRestartsOnThermostat(t *testing.T) {
	c, board, _ := newTestController(t)
	running(c, board, StateAfterrun)

	c.Tick()
	assert.Equal(t, StateStart, c.State())
}

func TestStateNone(t *testing.T) {
	c, _, rec := newTestController(t)
	enterState(c, StateNone)

	c.Tick()

	assert.Equal(t, StateNone, c.State())
	assert.Contains(t, rec.infos, "ERROR: state = NONE")
	assert.Contains(t, c.alarms.List(), "state is NONE")
}

func TestTargetWrite(t *testing.T) {
	c, board, rec := newTestController(t)
	running(c, board, StateWait)

	c.Tick()
	assert.Equal(t, []float64{38}, rec.targets)

	// unchanged target is not written again
	c.Tick()
	assert.Equal(t, []float64{38}, rec.targets)

	// failed writes are retried on the next change
	rec.targetErr = errors.New("modbus timeout")
	c.setTarget(40)
	c.writeTarget()
	assert.Equal(t, 38.0, c.lastSent)

	rec.targetErr = nil
	c.setTarget(39.6)
	c.writeTarget()
	assert.Equal(t, []float64{38, 40}, rec.targets)
}

func TestSensorErrorKeepsInputs(t *testing.T) {
	c, board, rec := newTestController(t)
	running(c, board, StateWait)
	c.Tick()
	tracking := c.tracking.Value()

	board.readErr = errors.New("modbus timeout")
	board.readings.SupplyTemp = 20
	c.Tick()

	assert.Equal(t, tracking, c.tracking.Value())
	assert.Contains(t, rec.infos, "ERROR: reading sensors failed")
}

func TestInvalidOutsideTemp(t *testing.T) {
	c, board, _ := newTestController(t)
	running(c, board, StateWait)
	c.Tick()
	assert.Equal(t, 38.0, c.curveTarget.Value())

	board.readings.OutsideTemp = -99
	c.Tick()
	assert.Equal(t, -5.0, c.oat.Value())
	assert.Equal(t, 38.0, c.curveTarget.Value())
	assert.True(t, c.curve.Pending())

	board.readings.OutsideTemp = 0
	c.Tick()
	assert.Equal(t, 36.0, c.curveTarget.Value())
	assert.False(t, c.curve.Pending())
}

func TestDerivativeFollowsPrimaryPump(t *testing.T) {
	c, board, rec := newTestController(t)
	board.readings.PumpRunning = true
	running(c, board, StateWait)

	for i := 0; i < 30; i++ {
		board.readings.SupplyTemp = 30 + float64(i)*0.5
		c.Tick()
	}
	assert.Equal(t, 30, c.predictor.Len())
	assert.InDelta(t, 0.5, c.estimate.Rate10, 0.05)
	assert.InDelta(t, 0.5*60, rec.values[ValueDerivative], 3)

	board.readings.PumpRunning = false
	c.Tick()
	assert.Equal(t, 0, c.predictor.Len())
	assert.Equal(t, 0.0, rec.values[ValueDerivative])
}

func TestStatus(t *testing.T) {
	c, board, _ := newTestController(t)
	running(c, board, StateWait)
	c.Tick()

	s := c.Status()
	assert.Equal(t, "WAIT", s.State)
	assert.Equal(t, "Pauze (Uit)", s.FriendlyState)
	assert.Equal(t, 38.0, *s.CurveTarget)
	assert.Equal(t, 38.0, *s.Tracking)
	assert.True(t, *s.Heat)
	assert.False(t, *s.BackupHeat)
}
