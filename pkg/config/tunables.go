package config

import (
	"fmt"

	"github.com/nergy-se/antipendel/pkg/curve"
)

// Tunables are the control parameters. Delays and durations are in minutes,
// temperatures in degrees celsius.
type Tunables struct {
	ThermostatOnDelay  float64 `default:"5"`
	ThermostatOffDelay float64 `default:"5"`
	MinimumRunTime     float64 `default:"30"`

	BoostTime   float64 `default:"60"`
	BoostOffset float64 `default:"2"`

	CurveMinOAT       float64 `default:"-20"`
	CurveMaxOAT       float64 `default:"20"`
	CurveMinWaterTemp float64 `default:"26"`
	CurveMaxWaterTemp float64 `default:"45"`
	CurveCurvature    float64 `default:"0"`
	CurveOffset       float64 `default:"0"`

	// BackupHeatActiveOAT backup heat is only used at or below this outside temperature.
	BackupHeatActiveOAT float64 `default:"-5"`
	// BackupHeatAlwaysOnOAT backup heat runs during the whole run at or below this outside temperature.
	BackupHeatAlwaysOnOAT float64 `default:"-10"`

	SilentAlwaysOnOAT  float64 `default:"5"`
	SilentAlwaysOffOAT float64 `default:"-2"`

	PumpRunover float64 `default:"10"`

	// Hysteresis is how far above target the heat pump stops the compressor.
	Hysteresis   float64 `default:"5"`
	MaxOvershoot float64 `default:"3"`

	// AliveInterval in seconds of controller time between status log lines.
	AliveInterval int `default:"600"`
}

func (t Tunables) Curve() curve.Params {
	return curve.Params{
		MinOAT:       t.CurveMinOAT,
		MaxOAT:       t.CurveMaxOAT,
		MinWaterTemp: t.CurveMinWaterTemp,
		MaxWaterTemp: t.CurveMaxWaterTemp,
		Curvature:    t.CurveCurvature,
		Offset:       t.CurveOffset,
	}
}

func (t Tunables) Validate() error {
	if err := t.Curve().Validate(); err != nil {
		return err
	}
	if t.Hysteresis <= 0 {
		return fmt.Errorf("hysteresis must be positive, got %.1f", t.Hysteresis)
	}
	if t.MaxOvershoot < 0 {
		return fmt.Errorf("max overshoot must not be negative, got %.1f", t.MaxOvershoot)
	}
	if t.SilentAlwaysOffOAT > t.SilentAlwaysOnOAT {
		return fmt.Errorf("silent always off oat %.1f above always on oat %.1f", t.SilentAlwaysOffOAT, t.SilentAlwaysOnOAT)
	}
	if t.BackupHeatAlwaysOnOAT > t.BackupHeatActiveOAT {
		return fmt.Errorf("backup heat always on oat %.1f above active oat %.1f", t.BackupHeatAlwaysOnOAT, t.BackupHeatActiveOAT)
	}
	return nil
}

// Defaults returns the tunables of the reference installation.
func Defaults() Tunables {
	return Tunables{
		ThermostatOnDelay:     5,
		ThermostatOffDelay:    5,
		MinimumRunTime:        30,
		BoostTime:             60,
		BoostOffset:           2,
		CurveMinOAT:           -20,
		CurveMaxOAT:           20,
		CurveMinWaterTemp:     26,
		CurveMaxWaterTemp:     45,
		BackupHeatActiveOAT:   -5,
		BackupHeatAlwaysOnOAT: -10,
		SilentAlwaysOnOAT:     5,
		SilentAlwaysOffOAT:    -2,
		PumpRunover:           10,
		Hysteresis:            5,
		MaxOvershoot:          3,
		AliveInterval:         600,
	}
}
