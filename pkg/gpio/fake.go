package gpio

import (
	"sync"

	"github.com/nergy-se/antipendel/pkg/controller"
)

// Write is one recorded relay switch.
type Write struct {
	Relay controller.Relay
	On    bool
}

// Fake is an in-memory relay board. Relays read back what was written.
type Fake struct {
	mu         sync.Mutex
	relays     map[controller.Relay]bool
	thermostat bool

	// Writes contains every successful Set in order.
	Writes []Write

	// SetError, if set, is returned by Set and the relay keeps its state.
	SetError error
}

func NewFake() *Fake {
	return &Fake{
		relays: make(map[controller.Relay]bool),
	}
}

func (f *Fake) Set(relay controller.Relay, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.relays[relay] = on
	f.Writes = append(f.Writes, Write{Relay: relay, On: on})
	return nil
}

func (f *Fake) Relay(relay controller.Relay) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.relays[relay], nil
}

func (f *Fake) Thermostat() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.thermostat, nil
}

// SetThermostat changes the thermostat input.
func (f *Fake) SetThermostat(on bool) {
	f.mu.Lock()
	f.thermostat = on
	f.mu.Unlock()
}

// Reset clears recorded writes.
func (f *Fake) Reset() {
	f.mu.Lock()
	f.Writes = nil
	f.mu.Unlock()
}
