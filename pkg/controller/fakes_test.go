package controller

import (
	"testing"

	"github.com/nergy-se/antipendel/pkg/config"
)

type relayWrite struct {
	relay Relay
	on    bool
}

// fakeBoard is the heat pump and relay board. Relays read back what was written.
type fakeBoard struct {
	readings Readings
	relays   map[Relay]bool
	writes   []relayWrite
	readErr  error
	setErr   error
}

func (b *fakeBoard) Read() (Readings, error) {
	if b.readErr != nil {
		return Readings{}, b.readErr
	}
	r := b.readings
	r.HeatRelay = b.relays[RelayHeat]
	r.PumpRelay = b.relays[RelayPump]
	r.BackupHeatRelay = b.relays[RelayBackupHeat]
	r.Boost = b.relays[RelayBoost]
	r.SilentMode = b.relays[RelaySilentMode]
	return r, nil
}

func (b *fakeBoard) Set(relay Relay, on bool) error {
	if b.setErr != nil {
		return b.setErr
	}
	b.relays[relay] = on
	b.writes = append(b.writes, relayWrite{relay: relay, on: on})
	return nil
}

type recorder struct {
	states    []string
	infos     []string
	values    map[string]float64
	targets   []float64
	targetErr error
}

func (r *recorder) PublishState(name string)           { r.states = append(r.states, name) }
func (r *recorder) PublishInfo(msg string)             { r.infos = append(r.infos, msg) }
func (r *recorder) PublishValue(key string, v float64) { r.values[key] = v }

func (r *recorder) WriteTarget(celsius float64) error {
	if r.targetErr != nil {
		return r.targetErr
	}
	r.targets = append(r.targets, celsius)
	return nil
}

// newTestController returns a controller reading OAT -5 (curve target 38 with
// the default tunables), thermostat on and compressor running.
func newTestController(t *testing.T) (*Controller, *fakeBoard, *recorder) {
	t.Helper()
	board := &fakeBoard{
		relays: make(map[Relay]bool),
		readings: Readings{
			Thermostat:        true,
			CompressorRunning: true,
			OutsideTemp:       -5,
			SupplyTemp:        38.4,
			ReturnTemp:        33,
			CompressorRPM:     100,
		},
	}
	rec := &recorder{values: make(map[string]float64)}
	c := New(config.Defaults(), 30, board, board, rec, rec)
	return c, board, rec
}

// running puts the controller in state s with pump and heat on, the thermostat
// settled on and a run that started an hour ago.
func running(c *Controller, board *fakeBoard, s State) {
	board.relays[RelayPump] = true
	board.relays[RelayHeat] = true
	c.pump.Receive(true)
	c.heat.Receive(true)
	c.thermostatSensor.Receive(true)
	c.thermostat.Receive(true)
	c.clock.Advance(3600)
	c.runStart = 0
	enterState(c, s)
}

func enterState(c *Controller, s State) {
	c.current = s
	c.entryDone = true
	c.stateStart = c.clock.Now()
}
