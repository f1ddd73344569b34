package engine

import (
	"github.com/tphakala/go-audio-stretcher/internal/filter"
	"github.com/tphakala/go-audio-stretcher/internal/simdops"
)

// transposer resamples interleaved audio by a continuous ratio with 4-point
// Hermite interpolation. When it decimates (rate > 1), input first passes a
// Kaiser low-pass at the new Nyquist.
type transposer[F simdops.Float] struct {
	channels int
	rate     float64 // input frames consumed per output frame

	// phase is the position of the next output relative to history[2], in
	// input frames. It starts at hermiteDelayFrames so nothing is emitted
	// until the window holds real input.
	phase float64

	// history holds the last hermitePoints inputs per channel, newest first.
	history []F

	antiAlias bool
	coeffs64  []float64
	coeffs    []F
	firHist   []F // per channel, 2*antiAliasTaps doubled circular buffer
	firPos    int

	ops *simdops.Ops[F]
}

func newTransposer[F simdops.Float](channels int) *transposer[F] {
	return &transposer[F]{
		channels: channels,
		rate:     1,
		phase:    hermiteDelayFrames,
		history:  make([]F, channels*hermitePoints),
		coeffs64: make([]float64, antiAliasTaps),
		coeffs:   make([]F, antiAliasTaps),
		firHist:  make([]F, channels*2*antiAliasTaps),
		ops:      simdops.For[F](),
	}
}

// setRate changes the ratio. The anti-alias filter is redesigned in place.
func (t *transposer[F]) setRate(rate float64) {
	if rate == t.rate {
		return
	}
	t.rate = rate

	wasActive := t.antiAlias
	t.antiAlias = false
	if rate <= 1 {
		return
	}

	if err := filter.DesignLowPassInto(t.coeffs64, AntiAliasFilter(rate)); err != nil {
		return
	}
	for i, c := range t.coeffs64 {
		t.coeffs[i] = F(c)
	}
	if !wasActive {
		clear(t.firHist)
		t.firPos = 0
	}
	t.antiAlias = true
}

// AntiAliasFilter returns the low-pass the transposer applies when it
// decimates by rate (rate > 1). The filter has AntiAliasTaps taps.
func AntiAliasFilter(rate float64) filter.LowPass {
	return filter.LowPass{
		Cutoff:      0.5 / rate * antiAliasCutoffScale,
		Attenuation: antiAliasAttenuation,
		Gain:        1,
	}
}

func (t *transposer[F]) reset() {
	t.phase = hermiteDelayFrames
	clear(t.history)
	clear(t.firHist)
	t.firPos = 0
}

// maxOutput bounds the frames produced from frames input frames.
func (t *transposer[F]) maxOutput(frames int) int {
	return int(float64(frames)/t.rate) + 2
}

// process consumes frames interleaved frames of in and appends the result to out.
func (t *transposer[F]) process(in []F, frames int, out *sampleQueue[F]) {
	if frames == 0 {
		return
	}

	ch := t.channels
	dst := out.reserve(t.maxOutput(frames))
	produced := 0

	for i := range frames {
		frame := in[i*ch : (i+1)*ch]
		if t.antiAlias {
			t.firPos = (t.firPos - 1 + antiAliasTaps) % antiAliasTaps
		}
		for c, x := range frame {
			if t.antiAlias {
				x = t.filterSample(c, x)
			}
			h := t.history[c*hermitePoints : (c+1)*hermitePoints]
			h[3], h[2], h[1], h[0] = h[2], h[1], h[0], x
		}

		for t.phase < 1 {
			x := F(t.phase)
			o := dst[produced*ch : (produced+1)*ch]
			for c := range ch {
				o[c] = hermite(t.history[c*hermitePoints:(c+1)*hermitePoints], x)
			}
			produced++
			t.phase += t.rate
		}
		t.phase--
	}

	out.commit(produced)
}

// filterSample pushes x into channel c's FIR history and returns the filtered value.
func (t *transposer[F]) filterSample(c int, x F) F {
	h := t.firHist[c*2*antiAliasTaps : (c+1)*2*antiAliasTaps]
	h[t.firPos] = x
	h[t.firPos+antiAliasTaps] = x
	return t.ops.DotProductUnsafe(t.coeffs, h[t.firPos:t.firPos+antiAliasTaps])
}

// hermite interpolates between h[2] and h[1] at fraction x, where h is
// newest first.
func hermite[F simdops.Float](h []F, x F) F {
	y0, y1, y2, y3 := h[3], h[2], h[1], h[0]

	a := -hermiteCoeffHalf*y0 + hermiteCoeffOneHalf*y1 - hermiteCoeffOneHalf*y2 + hermiteCoeffHalf*y3
	b := y0 - hermiteCoeffTwoHalf*y1 + 2*y2 - hermiteCoeffHalf*y3
	c := -hermiteCoeffHalf*y0 + hermiteCoeffHalf*y2

	return ((a*x+b)*x+c)*x + y1
}
