// Package filter designs the Kaiser-windowed sinc low-pass used as the
// anti-alias stage of the rate transposer.
package filter

import (
	"errors"
	"fmt"
	"math"

	"github.com/tphakala/go-audio-stretcher/internal/mathutil"
	"github.com/tphakala/simd/f64"
)

const (
	minTaps = 3
	maxTaps = 1024

	// Highest usable normalised cutoff (Nyquist).
	nyquist = 0.5

	// Sinc arguments closer to the centre than this use the analytic limit.
	sincZeroThreshold = 1e-10
)

// ErrInvalidDesign is returned for filter parameters that cannot be realised.
var ErrInvalidDesign = errors.New("invalid filter design")

// LowPass describes a windowed-sinc low-pass filter.
type LowPass struct {
	// Cutoff is the normalised cutoff frequency in (0, 0.5).
	Cutoff float64

	// Attenuation is the stopband attenuation in dB used to pick the Kaiser β.
	Attenuation float64

	// Gain is the DC gain after normalisation, usually 1.
	Gain float64
}

// Validate checks the design against a filter length.
func (lp LowPass) Validate(taps int) error {
	if taps < minTaps || taps > maxTaps {
		return fmt.Errorf("%w: %d taps (allowed %d-%d)", ErrInvalidDesign, taps, minTaps, maxTaps)
	}
	if lp.Cutoff <= 0 || lp.Cutoff >= nyquist {
		return fmt.Errorf("%w: cutoff %f outside (0, %v)", ErrInvalidDesign, lp.Cutoff, nyquist)
	}
	if lp.Attenuation < 0 {
		return fmt.Errorf("%w: negative attenuation %f", ErrInvalidDesign, lp.Attenuation)
	}
	if lp.Gain <= 0 {
		return fmt.Errorf("%w: gain must be positive, got %f", ErrInvalidDesign, lp.Gain)
	}
	return nil
}

// KaiserWindowInto fills dst with a Kaiser window of shape β.
// The window is symmetric and peaks at 1 in the centre.
func KaiserWindowInto(dst []float64, beta float64) {
	n := len(dst)
	switch n {
	case 0:
		return
	case 1:
		dst[0] = 1
		return
	}

	alpha := float64(n-1) / 2
	i0Beta := mathutil.BesselI0(beta)
	for i := range dst {
		x := (float64(i) - alpha) / alpha
		dst[i] = mathutil.BesselI0(beta*math.Sqrt(math.Max(0, 1-x*x))) / i0Beta
	}
}

// DesignLowPassInto writes len(dst) linear-phase coefficients into dst.
// It does not allocate, so it can run when the transposer ratio changes
// inside an audio callback.
func DesignLowPassInto(dst []float64, lp LowPass) error {
	if err := lp.Validate(len(dst)); err != nil {
		return err
	}

	beta := mathutil.KaiserBeta(lp.Attenuation)
	KaiserWindowInto(dst, beta)

	center := float64(len(dst)-1) / 2
	for i := range dst {
		x := float64(i) - center

		// sin(2π·fc·x)/(π·x), with limit 2·fc at x=0
		sinc := 2 * lp.Cutoff
		if math.Abs(x) > sincZeroThreshold {
			sinc = math.Sin(2*math.Pi*lp.Cutoff*x) / (math.Pi * x)
		}
		dst[i] *= sinc
	}

	if sum := f64.Sum(dst); math.Abs(sum) > sincZeroThreshold {
		f64.Scale(dst, dst, lp.Gain/sum)
	}

	return nil
}

// DesignLowPass is the allocating form of DesignLowPassInto.
func DesignLowPass(taps int, lp LowPass) ([]float64, error) {
	if err := lp.Validate(taps); err != nil {
		return nil, err
	}
	coeffs := make([]float64, taps)
	if err := DesignLowPassInto(coeffs, lp); err != nil {
		return nil, err
	}
	return coeffs, nil
}

// MagnitudeAt evaluates |H(f)| of an FIR filter at normalised frequency f.
func MagnitudeAt(coeffs []float64, freq float64) float64 {
	var re, im float64
	omega := 2 * math.Pi * freq
	for n, h := range coeffs {
		re += h * math.Cos(omega*float64(n))
		im -= h * math.Sin(omega*float64(n))
	}
	return math.Hypot(re, im)
}

// MagnitudeDB converts a linear magnitude to decibels, floored at -200 dB.
func MagnitudeDB(magnitude float64) float64 {
	const floor = 1e-10
	return 20 * math.Log10(math.Max(magnitude, floor))
}
