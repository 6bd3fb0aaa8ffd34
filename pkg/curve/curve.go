// Package curve calculates the heating curve (stooklijn): the supply water
// temperature the heat pump should track for a given outside air temperature.
package curve

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// readings outside this range are treated as a broken sensor.
const (
	minSaneOAT = -50.0
	maxSaneOAT = 60.0

	// oat kept until the first valid reading arrives. 20 maps to the lowest water temp.
	startupOAT = 20.0
)

type Params struct {
	MinOAT       float64
	MaxOAT       float64
	MinWaterTemp float64
	MaxWaterTemp float64
	// Curvature is in thousandths per squared degree below MaxOAT.
	Curvature float64
	Offset    float64
}

func (p Params) Validate() error {
	if p.MinOAT >= p.MaxOAT {
		return fmt.Errorf("curve min oat %.1f must be below max oat %.1f", p.MinOAT, p.MaxOAT)
	}
	if p.MinWaterTemp > p.MaxWaterTemp {
		return fmt.Errorf("curve min water temp %.1f above max water temp %.1f", p.MinWaterTemp, p.MaxWaterTemp)
	}
	if p.Curvature < 0 {
		return fmt.Errorf("curve curvature must not be negative, got %.2f", p.Curvature)
	}
	return nil
}

// Target maps an outside temperature to a water temperature. The result is
// rounded to whole degrees and clamped to [MinWaterTemp, MaxWaterTemp+3].
func (p Params) Target(oat, boostOffset float64) float64 {
	slope := -((p.MaxWaterTemp - p.MinWaterTemp) / (p.MinOAT - p.MaxOAT))
	oat = clamp(oat, p.MinOAT, p.MaxOAT)
	curvature := (p.Curvature * 0.001) * math.Pow(oat-p.MaxOAT, 2)

	target := math.Round(slope*(p.MaxOAT-oat) + p.MinWaterTemp + curvature)
	target += p.Offset + boostOffset
	return clamp(target, p.MinWaterTemp, p.MaxWaterTemp+3)
}

// Calculator remembers the last valid outside temperature and whether a
// recompute is still owed.
type Calculator struct {
	lastValidOAT float64
	pending      bool
}

func NewCalculator() *Calculator {
	return &Calculator{
		lastValidOAT: startupOAT,
	}
}

// Request marks the curve for recompute on the next Update.
func (c *Calculator) Request() {
	c.pending = true
}

func (c *Calculator) Pending() bool {
	return c.pending
}

// Valid reports if the outside temperature reading is usable.
func Valid(oat float64) bool {
	return !math.IsNaN(oat) && oat <= maxSaneOAT && oat >= minSaneOAT
}

// Update computes the curve target. On an invalid reading the last valid
// outside temperature is used and the recompute stays pending, ok is false.
func (c *Calculator) Update(p Params, oat, boostOffset float64) (target float64, ok bool) {
	if Valid(oat) {
		c.lastValidOAT = oat
		c.pending = false
		ok = true
	} else {
		logrus.Debugf("curve: invalid oat (%f) waiting for next run", oat)
		c.pending = true
	}

	target = p.Target(c.lastValidOAT, boostOffset)
	logrus.WithFields(logrus.Fields{
		"oat":    c.lastValidOAT,
		"offset": p.Offset,
		"boost":  boostOffset,
		"target": target,
	}).Debug("curve: calculated")
	return target, ok
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
