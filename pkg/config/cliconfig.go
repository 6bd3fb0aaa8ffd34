package config

import (
	"fmt"
	"time"
)

type CliConfig struct {
	LogLevel string `default:"info"`

	// TickSeconds is the control interval. Controller time advances by this much every tick.
	TickSeconds int `default:"30"`

	// Backend selects the hardware: modbus (heat pump over modbus tcp + gpio relays) or simulator.
	Backend string `default:"modbus"`

	ModbusAddress string `default:"127.0.0.1:502"`
	ModbusSlaveID int    `default:"1"`
	Registers     Registers

	GPIO GPIO

	// MQTTBroker is an external broker url like tcp://10.0.0.2:1883. When empty an
	// embedded broker is started on MQTTListen.
	MQTTBroker string
	MQTTListen string `default:":1883"`
	MQTTPrefix string `default:"antipendel"`

	// HistoryFile is the sqlite database with state transitions. Empty disables it.
	HistoryFile string

	Tunables Tunables
}

func (c *CliConfig) Interval() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

func (c *CliConfig) Validate() error {
	if c.TickSeconds <= 0 {
		return fmt.Errorf("tick interval must be positive, got %d", c.TickSeconds)
	}
	switch c.Backend {
	case BackendModbus, BackendSimulator:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return c.Tunables.Validate()
}

const (
	BackendModbus    = "modbus"
	BackendSimulator = "simulator"
)

// Registers is the modbus map of the heat pump. Temperatures are read as
// signed 16 bit input registers divided by Scale.
type Registers struct {
	OutsideTemp   int     `default:"13"`
	SupplyTemp    int     `default:"9"`
	ReturnTemp    int     `default:"8"`
	CompressorRPM int     `default:"54"`
	Scale         float64 `default:"100"`

	CompressorRunning int `default:"10"`
	HotWaterActive    int `default:"11"`
	DefrostActive     int `default:"12"`
	PumpRunning       int `default:"13"`

	// TargetTemp is the holding register for the supply temperature set point in whole degrees times Scale.
	TargetTemp int `default:"18"`
}

// GPIO line offsets on the relay board.
type GPIO struct {
	Chip        string `default:"gpiochip0"`
	HeatRelay   int    `default:"17"`
	PumpRelay   int    `default:"27"`
	BackupRelay int    `default:"22"`
	BoostRelay  int    `default:"23"`
	SilentRelay int    `default:"24"`
	Thermostat  int    `default:"25"`
	// ThermostatActiveLow inverts the thermostat input (optocoupler pulls low when on).
	ThermostatActiveLow bool `default:"true"`
}
