// Package analysis provides the spectral measurements used to check rendered
// output: dominant frequency and RMS level.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/tphakala/simd/f64"
	"gonum.org/v1/gonum/dsp/fourier"
)

// minAnalysisLength is the shortest signal accepted by DominantFrequency.
const minAnalysisLength = 16

// ErrTooShort is returned when a signal is too short to analyse.
var ErrTooShort = errors.New("analysis: signal too short")

// Spectrum computes magnitude spectra of fixed-length real signals. It reuses
// its buffers between calls and is not safe for concurrent use.
type Spectrum struct {
	fft      *fourier.FFT
	window   []float64
	windowed []float64
	coeffs   []complex128
}

// NewSpectrum creates an analyser for signals of n samples (Hann windowed).
func NewSpectrum(n int) (*Spectrum, error) {
	if n < minAnalysisLength {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrTooShort, n, minAnalysisLength)
	}

	window := make([]float64, n)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}

	return &Spectrum{
		fft:      fourier.NewFFT(n),
		window:   window,
		windowed: make([]float64, n),
		coeffs:   make([]complex128, n/2+1),
	}, nil
}

// Len returns the analysis length.
func (s *Spectrum) Len() int { return len(s.window) }

// DominantFrequency returns the frequency in Hz of the strongest non-DC bin
// in the first Len samples of signal, refined by parabolic interpolation.
func (s *Spectrum) DominantFrequency(signal []float64, sampleRate float64) (float64, error) {
	n := len(s.window)
	if len(signal) < n {
		return 0, fmt.Errorf("%w: %d samples, need %d", ErrTooShort, len(signal), n)
	}

	for i, w := range s.window {
		s.windowed[i] = signal[i] * w
	}
	s.coeffs = s.fft.Coefficients(s.coeffs, s.windowed)

	peak := 1
	for k := 2; k < len(s.coeffs); k++ {
		if cmplx.Abs(s.coeffs[k]) > cmplx.Abs(s.coeffs[peak]) {
			peak = k
		}
	}

	offset := 0.0
	if peak+1 < len(s.coeffs) {
		a := cmplx.Abs(s.coeffs[peak-1])
		b := cmplx.Abs(s.coeffs[peak])
		c := cmplx.Abs(s.coeffs[peak+1])
		if den := a - 2*b + c; den != 0 {
			offset = 0.5 * (a - c) / den
		}
	}

	return (float64(peak) + offset) * sampleRate / float64(n), nil
}

// DominantFrequency is a one-shot form of Spectrum.DominantFrequency over the
// whole signal.
func DominantFrequency(signal []float64, sampleRate float64) (float64, error) {
	s, err := NewSpectrum(len(signal))
	if err != nil {
		return 0, err
	}
	return s.DominantFrequency(signal, sampleRate)
}

// RMS returns the root mean square of signal, or 0 for an empty slice.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	return math.Sqrt(f64.DotProduct(signal, signal) / float64(len(signal)))
}
