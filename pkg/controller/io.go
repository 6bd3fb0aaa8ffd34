package controller

// Readings is one snapshot of the external signals, taken at the start of a tick.
type Readings struct {
	Thermostat        bool
	CompressorRunning bool
	HotWater          bool
	Defrost           bool
	BackupHeatRelay   bool
	PumpRelay         bool
	HeatRelay         bool
	Boost             bool
	SilentMode        bool
	PumpRunning       bool

	OutsideTemp   float64
	SupplyTemp    float64
	ReturnTemp    float64
	CompressorRPM float64
}

type Sensors interface {
	Read() (Readings, error)
}

type Relay string

const (
	RelayHeat       Relay = "heat"
	RelayPump       Relay = "pump"
	RelayBackupHeat Relay = "backup_heat"
	RelayBoost      Relay = "boost"
	RelaySilentMode Relay = "silent_mode"
)

type Actuators interface {
	Set(relay Relay, on bool) error
}

// TargetWriter sends the supply water set point to the heat pump.
type TargetWriter interface {
	WriteTarget(celsius float64) error
}

// Publisher receives status for observability. Implementations must not block the tick.
type Publisher interface {
	PublishState(name string)
	PublishInfo(msg string)
	PublishValue(key string, v float64)
}

// Publishers fans out to every publisher in the list.
type Publishers []Publisher

func (p Publishers) PublishState(name string) {
	for _, pub := range p {
		pub.PublishState(name)
	}
}

func (p Publishers) PublishInfo(msg string) {
	for _, pub := range p {
		pub.PublishInfo(msg)
	}
}

func (p Publishers) PublishValue(key string, v float64) {
	for _, pub := range p {
		pub.PublishValue(key, v)
	}
}

// Published value keys.
const (
	ValueCurveTarget = "curve_target"
	ValueDerivative  = "derivative"
	ValueTarget      = "target"
)
