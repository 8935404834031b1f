package metrics

import "math"

// WelfordState holds running statistics using Welford's online algorithm,
// so mean and standard deviation update in O(1) without storing samples.
type WelfordState struct {
	Count int
	Mean  float64
	M2    float64 // sum of squared differences from the mean
}

// Update adds one observation
func (w *WelfordState) Update(v float64) {
	w.Count++
	delta := v - w.Mean
	w.Mean += delta / float64(w.Count)
	w.M2 += delta * (v - w.Mean)
}

// StdDev returns the population standard deviation, 0 below two observations
func (w *WelfordState) StdDev() float64 {
	if w.Count < 2 {
		return 0
	}
	return math.Sqrt(w.M2 / float64(w.Count))
}

// ZScore reports how many standard deviations v lies from the mean.
// ok is false while the deviation is still undefined.
func (w *WelfordState) ZScore(v float64) (z float64, ok bool) {
	sd := w.StdDev()
	if sd == 0 {
		return 0, false
	}
	return (v - w.Mean) / sd, true
}
