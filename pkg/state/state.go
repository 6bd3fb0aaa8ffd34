package state

// State is the telemetry snapshot of the controller published after every tick.
type State struct {
	State         string `json:"state"`
	FriendlyState string `json:"friendlyState,omitempty"`
	PrevState     string `json:"prevState,omitempty"`

	Outdoor       *float64 `json:"outdoor,omitempty"`
	Supply        *float64 `json:"supply,omitempty"`
	Return        *float64 `json:"return,omitempty"`
	Tracking      *float64 `json:"tracking,omitempty"`
	CurveTarget   *float64 `json:"curveTarget,omitempty"`
	Target        *float64 `json:"target,omitempty"`
	Delta         *float64 `json:"delta,omitempty"`
	PendulumDelta *float64 `json:"pendulumDelta,omitempty"`
	Derivative    *float64 `json:"derivative,omitempty"`
	CompressorRPM *float64 `json:"compressorRPM,omitempty"`

	Thermostat *bool `json:"thermostat,omitempty"`
	Compressor *bool `json:"compressor,omitempty"`
	Heat       *bool `json:"heat,omitempty"`
	Pump       *bool `json:"pump,omitempty"`
	BackupHeat *bool `json:"backupHeat,omitempty"`
	Boost      *bool `json:"boost,omitempty"`
	SilentMode *bool `json:"silentMode,omitempty"`

	Alarms []string `json:"alarms,omitempty"`
}

func Pointer[K any](v K) *K {
	return &v
}

// Map flattens the numeric fields for value publishing. Booleans become 0 or 1.
func (s State) Map() map[string]interface{} {
	m := make(map[string]interface{})
	floats := map[string]*float64{
		"outdoor":       s.Outdoor,
		"supply":        s.Supply,
		"return":        s.Return,
		"tracking":      s.Tracking,
		"curveTarget":   s.CurveTarget,
		"target":        s.Target,
		"delta":         s.Delta,
		"pendulumDelta": s.PendulumDelta,
		"derivative":    s.Derivative,
		"compressorRPM": s.CompressorRPM,
	}
	for k, v := range floats {
		if v != nil {
			m[k] = *v
		}
	}
	bools := map[string]*bool{
		"thermostat": s.Thermostat,
		"compressor": s.Compressor,
		"heat":       s.Heat,
		"pump":       s.Pump,
		"backupHeat": s.BackupHeat,
		"boost":      s.Boost,
		"silentMode": s.SilentMode,
	}
	for k, v := range bools {
		if v != nil {
			m[k] = boolToInt(*v)
		}
	}
	return m
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
