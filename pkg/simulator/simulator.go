// Package simulator is an in-process heat pump and relay board. It lets the
// controller run without hardware.
package simulator

import (
	"math"
	"sync"

	"github.com/nergy-se/antipendel/pkg/controller"
	"github.com/sirupsen/logrus"
)

// Model constants in degrees per minute.
const (
	heatRate      = 1.0
	backupRate    = 0.3
	coolRate      = 0.4
	returnDrop    = 5.0
	hysteresis    = 5.0
	startupDelay  = 120.0 // seconds of heat demand before the compressor starts
	modulationGap = 3.0
)

// Simulator implements controller.Sensors, controller.Actuators and
// controller.TargetWriter. Every Read advances the model by one tick.
type Simulator struct {
	mu   sync.Mutex
	tick float64

	relays     map[controller.Relay]bool
	thermostat bool
	hotWater   bool
	defrost    bool

	oat        float64
	supply     float64
	target     float64
	compressor bool
	demandFor  float64
}

func New(tickSeconds int) *Simulator {
	return &Simulator{
		tick:   float64(tickSeconds),
		relays: make(map[controller.Relay]bool),
		oat:    0,
		supply: 25,
	}
}

func (s *Simulator) SetOutsideTemp(oat float64) {
	s.mu.Lock()
	s.oat = oat
	s.mu.Unlock()
}

func (s *Simulator) SetThermostat(on bool) {
	s.mu.Lock()
	s.thermostat = on
	s.mu.Unlock()
}

func (s *Simulator) SetHotWater(on bool) {
	s.mu.Lock()
	s.hotWater = on
	s.mu.Unlock()
}

func (s *Simulator) SetDefrost(on bool) {
	s.mu.Lock()
	s.defrost = on
	s.mu.Unlock()
}

func (s *Simulator) Read() (controller.Readings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step()
	return s.readings(), nil
}

// Snapshot returns the current readings without advancing the model.
func (s *Simulator) Snapshot() controller.Readings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readings()
}

func (s *Simulator) readings() controller.Readings {
	r := controller.Readings{
		Thermostat:        s.thermostat,
		CompressorRunning: s.compressor,
		HotWater:          s.hotWater,
		Defrost:           s.defrost,
		BackupHeatRelay:   s.relays[controller.RelayBackupHeat],
		PumpRelay:         s.relays[controller.RelayPump],
		HeatRelay:         s.relays[controller.RelayHeat],
		Boost:             s.relays[controller.RelayBoost],
		SilentMode:        s.relays[controller.RelaySilentMode],
		PumpRunning:       s.compressor || s.relays[controller.RelayPump],
		OutsideTemp:       s.oat,
		SupplyTemp:        s.supply,
		ReturnTemp:        s.supply,
	}
	if s.compressor {
		r.ReturnTemp = s.supply - returnDrop
		r.CompressorRPM = 100
		if s.target-s.supply < modulationGap {
			r.CompressorRPM = 40
		}
	}
	return r
}

func (s *Simulator) Set(relay controller.Relay, on bool) error {
	s.mu.Lock()
	s.relays[relay] = on
	s.mu.Unlock()
	return nil
}

func (s *Simulator) WriteTarget(celsius float64) error {
	s.mu.Lock()
	s.target = celsius
	s.mu.Unlock()
	logrus.WithField("target", celsius).Debug("simulator: target written")
	return nil
}

// step advances the model by one tick.
func (s *Simulator) step() {
	minutes := s.tick / 60
	demand := s.relays[controller.RelayHeat] && s.relays[controller.RelayPump]

	if demand {
		s.demandFor += s.tick
	} else {
		s.demandFor = 0
	}

	switch {
	case !demand || s.hotWater || s.defrost:
		s.compressor = false
	case s.compressor && s.supply >= s.target+hysteresis:
		logrus.WithField("supply", s.supply).Debug("simulator: compressor stopped on hysteresis")
		s.compressor = false
	case !s.compressor && s.demandFor >= startupDelay && s.supply < s.target:
		s.compressor = true
	}

	if s.compressor {
		// heat output falls off when close to the target
		gap := s.target + hysteresis - s.supply
		s.supply += math.Min(heatRate, math.Max(gap/4, 0.1)) * minutes
	} else {
		floor := math.Max(s.oat, 20)
		s.supply -= math.Min(coolRate*minutes, math.Max(s.supply-floor, 0))
	}
	if s.relays[controller.RelayBackupHeat] {
		s.supply += backupRate * minutes
	}
}
