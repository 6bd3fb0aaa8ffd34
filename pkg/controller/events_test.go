package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const allEvents = EventDefrost | EventHotWater | EventThermostat | EventRelayHeat | EventCompressor | EventEmergency | EventBackupHeat

func TestDispatchPriority(t *testing.T) {
	tests := []struct {
		name          string
		events        Event
		defrost       bool
		hotWater      bool
		thermostatOff bool
		compressorOff bool
		pendulumDelta float64
		expected      State
	}{
		{name: "defrost before hot water", events: allEvents, defrost: true, hotWater: true, expected: StateDefrost},
		{name: "hot water", events: allEvents, hotWater: true, expected: StateHotWater},
		{name: "hot water before thermostat", events: allEvents, hotWater: true, thermostatOff: true, expected: StateHotWater},
		{name: "thermostat off", events: allEvents, thermostatOff: true, compressorOff: true, expected: StateAfterrun},
		{name: "failed run", events: allEvents, compressorOff: true, pendulumDelta: 6, expected: StateWait},
		{name: "emergency", events: allEvents, pendulumDelta: 5, expected: StateOvershoot},
		{name: "unsubscribed events are skipped", events: EventCompressor, defrost: true, compressorOff: true, expected: StateWait},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, board, _ := newTestController(t)
			running(c, board, StateRun)
			onCurve(c, 38, 0)
			c.defrost.Receive(tt.defrost)
			c.hotWater.Receive(tt.hotWater)
			c.thermostat.Receive(!tt.thermostatOff)
			c.compressor.Receive(!tt.compressorOff)
			c.pendulumDelta = tt.pendulumDelta

			next, ok := c.dispatch(tt.events)
			require.True(t, ok)
			assert.Equal(t, tt.expected, next)
		})
	}
}

func TestDispatchNoTransition(t *testing.T) {
	c, board, _ := newTestController(t)
	running(c, board, StateRun)
	onCurve(c, 38, 0)
	c.compressor.Receive(true)

	next, ok := c.dispatch(allEvents)
	assert.False(t, ok)
	assert.Equal(t, StateNone, next)
}

func TestThermostatOffDuringHotWater(t *testing.T) {
	c, board, _ := newTestController(t)
	running(c, board, StateHotWater)
	require.NoError(t, c.guard.SetBackupHeat(true, BackupReasonHotWater))
	c.hotWater.Receive(true)
	c.thermostat.Receive(false)

	_, ok := c.dispatch(EventThermostat)
	assert.False(t, ok)
	assert.False(t, board.relays[RelayBackupHeat])
	assert.False(t, board.relays[RelayHeat])
	assert.True(t, board.relays[RelayPump])
	assert.Equal(t, []relayWrite{{RelayBackupHeat, true}, {RelayBackupHeat, false}, {RelayHeat, false}}, board.writes)
}

func TestRelayHeatOff(t *testing.T) {
	tests := []struct {
		name       string
		thermostat bool
		hotWater   bool
		expected   State
		ok         bool
		heat       bool
		info       string
	}{
		{name: "thermostat on", thermostat: true, heat: true, info: "Heat switched off; thermostat on. Heat back on"},
		{name: "thermostat off", expected: StateAfterrun, ok: true, info: "Heat switched off. Aborting"},
		{name: "heat pump busy", hotWater: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, board, rec := newTestController(t)
			running(c, board, StateRun)
			board.relays[RelayHeat] = false
			c.heat.Receive(false)
			c.thermostat.Receive(tt.thermostat)
			c.hotWater.Receive(tt.hotWater)

			next, ok := c.dispatch(EventRelayHeat)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, next)
			assert.Equal(t, tt.heat, board.relays[RelayHeat])
			if tt.info != "" {
				assert.Contains(t, rec.infos, tt.info)
			}
		})
	}
}

func TestBackupHeatAutoOff(t *testing.T) {
	tests := []struct {
		name          string
		oat           float64
		thermostatOff bool
		lowTemp       bool
		backup        bool
		heat          bool
	}{
		{name: "cold stall", oat: -7, backup: true, heat: true},
		{name: "high outside temperature", oat: -3, heat: true},
		{name: "low temperature recovered", oat: -8, lowTemp: true, heat: true},
		{name: "still very cold", oat: -12, lowTemp: true, backup: true, heat: true},
		{name: "no heat request", oat: -12, thermostatOff: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, board, _ := newTestController(t)
			running(c, board, StateRun)
			reason := BackupReasonStall
			if tt.lowTemp {
				reason = BackupReasonLowTemp
			}
			require.NoError(t, c.guard.SetBackupHeat(true, reason))
			c.oat.Receive(tt.oat)
			c.thermostat.Receive(!tt.thermostatOff)

			c.backupHeatAutoOff()

			assert.Equal(t, tt.backup, board.relays[RelayBackupHeat])
			assert.Equal(t, tt.heat, board.relays[RelayHeat])
		})
	}
}
