package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var linear = Params{
	MinOAT:       -10,
	MaxOAT:       20,
	MinWaterTemp: 25,
	MaxWaterTemp: 45,
}

func TestTarget(t *testing.T) {
	var tests = []struct {
		name     string
		params   Params
		oat      float64
		boost    float64
		expected float64
	}{
		{name: "linear interpolation", params: linear, oat: -5, expected: 42},
		{name: "at max oat", params: linear, oat: 20, expected: 25},
		{name: "at min oat", params: linear, oat: -10, expected: 45},
		{name: "clamped above max oat", params: linear, oat: 30, expected: 25},
		{name: "clamped below min oat", params: linear, oat: -25, expected: 45},
		{name: "boost offset", params: linear, oat: -5, boost: 2, expected: 44},
		{name: "offset clamped to max+3", params: Params{MinOAT: -10, MaxOAT: 20, MinWaterTemp: 25, MaxWaterTemp: 45, Offset: 5}, oat: -10, expected: 48},
		{name: "negative offset clamped to min", params: Params{MinOAT: -10, MaxOAT: 20, MinWaterTemp: 25, MaxWaterTemp: 45, Offset: -4}, oat: 20, expected: 25},
		{name: "curvature", params: Params{MinOAT: -10, MaxOAT: 20, MinWaterTemp: 25, MaxWaterTemp: 45, Curvature: 4}, oat: 0, expected: 40},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.params.Target(tt.oat, tt.boost))
		})
	}
}

func TestTargetMonotonic(t *testing.T) {
	p := linear
	p.Curvature = 5
	prev := math.Inf(1)
	for oat := -15.0; oat <= 25; oat += 0.5 {
		target := p.Target(oat, 0)
		assert.LessOrEqual(t, target, prev, "oat %.1f", oat)
		assert.GreaterOrEqual(t, target, p.MinWaterTemp)
		assert.LessOrEqual(t, target, p.MaxWaterTemp+3)
		prev = target
	}
}

func TestCalculatorInvalidOAT(t *testing.T) {
	c := NewCalculator()
	c.Request()

	target, ok := c.Update(linear, math.NaN(), 0)
	assert.False(t, ok)
	assert.True(t, c.Pending())
	assert.Equal(t, 25.0, target, "startup oat of 20 maps to the lowest water temp")

	target, ok = c.Update(linear, -5, 0)
	assert.True(t, ok)
	assert.False(t, c.Pending())
	assert.Equal(t, 42.0, target)

	target, ok = c.Update(linear, 75, 0)
	assert.False(t, ok)
	assert.True(t, c.Pending())
	assert.Equal(t, 42.0, target, "last valid oat is reused")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, linear.Validate())
	assert.Error(t, Params{MinOAT: 20, MaxOAT: -10, MinWaterTemp: 25, MaxWaterTemp: 45}.Validate())
	assert.Error(t, Params{MinOAT: -10, MaxOAT: 20, MinWaterTemp: 50, MaxWaterTemp: 45}.Validate())
	assert.Error(t, Params{MinOAT: -10, MaxOAT: 20, MinWaterTemp: 25, MaxWaterTemp: 45, Curvature: -1}.Validate())
}
