// ABOUTME: Biquad filters for K-weighting
// ABOUTME: Designs the BS.1770 shelf and high-pass stages for any sample rate
package loudness

import "math"

// biquad is a second order IIR section with a0 normalized to 1
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// process filters x and returns a new slice; filter state starts at zero
func (f biquad) process(x []float64) []float64 {
	y := make([]float64, len(x))
	var x1, x2, y1, y2 float64
	for n, in := range x {
		out := f.b0*in + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		x2, x1 = x1, in
		y2, y1 = y1, out
		y[n] = out
	}
	return y
}

// Analog prototype parameters of the K-weighting stages. Designing from
// these with a pre-warped bilinear transform reproduces the coefficients
// published for 48 kHz and keeps the response at other rates.
const (
	shelfFreq = 1681.974450955533
	shelfGain = 3.999843853973347 // dB
	shelfQ    = 0.7071752369554196
	shelfVb   = 0.4996667741545416

	highpassFreq = 38.13547087602444
	highpassQ    = 0.5003270373238773
)

// kWeighting returns the shelf and high-pass stages for sampleRate
func kWeighting(sampleRate float64) (shelf, highpass biquad) {
	k := math.Tan(math.Pi * shelfFreq / sampleRate)
	vh := math.Pow(10, shelfGain/20)
	vb := math.Pow(vh, shelfVb)
	a0 := 1 + k/shelfQ + k*k

	shelf = biquad{
		b0: (vh + vb*k/shelfQ + k*k) / a0,
		b1: 2 * (k*k - vh) / a0,
		b2: (vh - vb*k/shelfQ + k*k) / a0,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/shelfQ + k*k) / a0,
	}

	k = math.Tan(math.Pi * highpassFreq / sampleRate)
	a0 = 1 + k/highpassQ + k*k

	highpass = biquad{
		b0: 1,
		b1: -2,
		b2: 1,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/highpassQ + k*k) / a0,
	}

	return shelf, highpass
}
