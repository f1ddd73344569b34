// Package simdops binds the SIMD kernels of github.com/tphakala/simd to a
// generic float type so the buffering and engine code can be written once for
// float32 and float64 samples.
package simdops

import (
	"github.com/tphakala/simd/cpu"
	"github.com/tphakala/simd/f32"
	"github.com/tphakala/simd/f64"
)

// Float is the type constraint for supported sample types.
type Float interface {
	float32 | float64
}

// Ops is the kernel table for sample type F.
type Ops[F Float] struct {
	// DotProductUnsafe returns Σ a[i]*b[i]. Both slices must have equal length.
	DotProductUnsafe func(a, b []F) F

	// Interleave2 writes dst[0]=a[0], dst[1]=b[0], dst[2]=a[1], ...
	Interleave2 func(dst, a, b []F)

	// Scale writes dst[i] = a[i] * s.
	Scale func(dst, a []F, s F)
}

var (
	ops32 = Ops[float32]{
		DotProductUnsafe: f32.DotProductUnsafe,
		Interleave2:      f32.Interleave2,
		Scale:            f32.Scale,
	}
	ops64 = Ops[float64]{
		DotProductUnsafe: f64.DotProductUnsafe,
		Interleave2:      f64.Interleave2,
		Scale:            f64.Scale,
	}
)

// For returns the kernel table for F. Resolve it once at construction time,
// not per sample.
func For[F Float]() *Ops[F] {
	var zero F
	switch any(zero).(type) {
	case float32:
		ops, ok := any(&ops32).(*Ops[F])
		if !ok {
			panic("simdops: type assertion failed for float32")
		}
		return ops
	case float64:
		ops, ok := any(&ops64).(*Ops[F])
		if !ok {
			panic("simdops: type assertion failed for float64")
		}
		return ops
	default:
		panic("simdops: unsupported float type")
	}
}

// BytesPerSample returns the size of one F sample.
func BytesPerSample[F Float]() int {
	var zero F
	if _, ok := any(zero).(float64); ok {
		return 8
	}
	return 4
}

// Info describes the instruction set the kernels dispatch to.
func Info() string {
	return cpu.Info()
}
