// Package testutil provides signal generators and assertions shared by the
// stretcher tests.
package testutil

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/go-audio-stretcher/internal/simdops"
)

// Default tolerances for various test scenarios.
const (
	DefaultTolerance = 1e-10
	Float32Tolerance = 1e-6

	// FrequencyTolerance is the relative error allowed when comparing a
	// measured dominant frequency to the expected one.
	FrequencyTolerance = 0.03
)

// Sine returns n samples of a unit-amplitude sine at freq Hz.
func Sine[F simdops.Float](freq, sampleRate float64, n int) []F {
	out := make([]F, n)
	for i := range out {
		out[i] = F(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}
	return out
}

// Ramp returns n samples counting up from start in steps of one.
func Ramp[F simdops.Float](start, n int) []F {
	out := make([]F, n)
	for i := range out {
		out[i] = F(start + i)
	}
	return out
}

// Planar allocates channels zeroed planes of frames samples.
func Planar[F simdops.Float](channels, frames int) [][]F {
	out := make([][]F, channels)
	for ch := range out {
		out[ch] = make([]F, frames)
	}
	return out
}

// Interleaved repeats every sample of mono across channels.
func Interleaved[F simdops.Float](mono []F, channels int) []F {
	out := make([]F, len(mono)*channels)
	for i, s := range mono {
		for ch := range channels {
			out[i*channels+ch] = s
		}
	}
	return out
}

// Channel extracts channel ch of an interleaved buffer as float64.
func Channel[F simdops.Float](interleaved []F, channels, ch int) []float64 {
	out := make([]float64, len(interleaved)/channels)
	for i := range out {
		out[i] = float64(interleaved[i*channels+ch])
	}
	return out
}

// AssertNoNaNOrInf verifies that no elements in the slice are NaN or Inf.
func AssertNoNaNOrInf[F simdops.Float](t *testing.T, s []F) bool {
	t.Helper()
	for i, v := range s {
		f := float64(v)
		if math.IsNaN(f) {
			return assert.Fail(t, "found NaN", "s[%d] is NaN", i)
		}
		if math.IsInf(f, 0) {
			return assert.Fail(t, "found Inf", "s[%d] is Inf", i)
		}
	}
	return true
}

// AssertAllZero verifies that every element is exactly zero.
func AssertAllZero[F simdops.Float](t *testing.T, s []F, msgAndArgs ...any) bool {
	t.Helper()
	for i, v := range s {
		if v != 0 {
			return assert.Fail(t, fmt.Sprintf("non-zero sample s[%d]=%v", i, v), msgAndArgs...)
		}
	}
	return true
}

// AssertRelativeError verifies |actual-expected|/|expected| <= tolerance.
func AssertRelativeError(t *testing.T, expected, actual, tolerance float64, msgAndArgs ...any) bool {
	t.Helper()
	if expected == 0 {
		return assert.InDelta(t, expected, actual, tolerance, msgAndArgs...)
	}
	return assert.InEpsilon(t, expected, actual, tolerance, msgAndArgs...)
}
