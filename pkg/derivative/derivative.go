// Package derivative estimates how fast the tracked water temperature moves
// and where it will be in a few minutes.
package derivative

// Capacity is 15 minutes of samples at one sample per 30 second tick.
const Capacity = 31

const (
	// samples needed before a rate is trusted. The first minutes after the
	// pump starts are distorted by water that cooled down in the unit.
	minSamplesRate5  = 15
	minSamplesRate10 = 25

	spanRate5  = 10
	spanRate10 = 20
)

// Window is a fixed size ring buffer of samples, oldest evicted first.
type Window struct {
	buf   [Capacity]float64
	start int
	n     int
}

func (w *Window) Push(v float64) {
	if w.n < Capacity {
		w.buf[(w.start+w.n)%Capacity] = v
		w.n++
		return
	}
	w.buf[w.start] = v
	w.start = (w.start + 1) % Capacity
}

func (w *Window) Len() int {
	return w.n
}

// Back returns the sample k positions before the latest one. Back(0) is the latest.
func (w *Window) Back(k int) float64 {
	return w.buf[(w.start+w.n-1-k)%Capacity]
}

func (w *Window) Reset() {
	w.start = 0
	w.n = 0
}

// Estimate is the result of one predictor update. Rates are in degrees per
// sample interval; Pred fields are predicted tracking value minus curve target.
type Estimate struct {
	Rate5  float64
	Rate10 float64

	Pred5Rate5   float64
	Pred5Rate10  float64
	Pred20Rate5  float64
	Pred20Rate10 float64
}

type Predictor struct {
	window   Window
	estimate Estimate
}

// Update adds a sample and recalculates rates and predictions against curveTarget.
func (p *Predictor) Update(tracking, curveTarget float64) Estimate {
	p.window.Push(tracking)

	var e Estimate
	if n := p.window.Len(); n >= minSamplesRate5 {
		e.Rate5 = (p.window.Back(0) - p.window.Back(spanRate5)) / spanRate5
	}
	if n := p.window.Len(); n >= minSamplesRate10 {
		e.Rate10 = (p.window.Back(0) - p.window.Back(spanRate10)) / spanRate10
	}
	// a prediction is always present, with a zero rate it equals the current delta
	e.Pred5Rate5 = predict(tracking, e.Rate5, 5, curveTarget)
	e.Pred5Rate10 = predict(tracking, e.Rate10, 5, curveTarget)
	e.Pred20Rate5 = predict(tracking, e.Rate5, 20, curveTarget)
	e.Pred20Rate10 = predict(tracking, e.Rate10, 20, curveTarget)

	p.estimate = e
	return e
}

func (p *Predictor) Estimate() Estimate {
	return p.estimate
}

func (p *Predictor) Len() int {
	return p.window.Len()
}

// Reset clears the window and zeroes rates and predictions.
func (p *Predictor) Reset() {
	p.window.Reset()
	p.estimate = Estimate{}
}

func predict(tracking, rate, horizon, curveTarget float64) float64 {
	return tracking + rate*horizon - curveTarget
}
