package gpio

import (
	"errors"
	"testing"

	"github.com/nergy-se/antipendel/pkg/config"
	"github.com/nergy-se/antipendel/pkg/controller"
	"github.com/stretchr/testify/assert"
)

func TestFakeReadback(t *testing.T) {
	f := NewFake()

	on, err := f.Relay(controller.RelayHeat)
	assert.NoError(t, err)
	assert.False(t, on)

	assert.NoError(t, f.Set(controller.RelayPump, true))
	assert.NoError(t, f.Set(controller.RelayHeat, true))
	on, _ = f.Relay(controller.RelayHeat)
	assert.True(t, on)
	assert.Equal(t, []Write{
		{Relay: controller.RelayPump, On: true},
		{Relay: controller.RelayHeat, On: true},
	}, f.Writes)

	f.SetThermostat(true)
	on, _ = f.Thermostat()
	assert.True(t, on)

	f.Reset()
	assert.Empty(t, f.Writes)
}

func TestFakeSetError(t *testing.T) {
	f := NewFake()
	f.SetError = errors.New("line busy")

	assert.Error(t, f.Set(controller.RelayBackupHeat, true))
	on, _ := f.Relay(controller.RelayBackupHeat)
	assert.False(t, on)
	assert.Empty(t, f.Writes)
}

func TestOffsets(t *testing.T) {
	cfg := config.GPIO{HeatRelay: 17, PumpRelay: 27, BackupRelay: 22, BoostRelay: 23, SilentRelay: 24}
	assert.Equal(t, map[controller.Relay]int{
		controller.RelayHeat:       17,
		controller.RelayPump:       27,
		controller.RelayBackupHeat: 22,
		controller.RelayBoost:      23,
		controller.RelaySilentMode: 24,
	}, Offsets(cfg))
	assert.Equal(t, 1, boolToValue(true))
	assert.Equal(t, 0, boolToValue(false))
}
