// Command analyze-filter prints the response of the rate transposer's
// anti-alias filter for a set of decimation ratios.
package main

import (
	"fmt"

	"github.com/tphakala/go-audio-stretcher/internal/engine"
	"github.com/tphakala/go-audio-stretcher/internal/filter"
	"github.com/tphakala/go-audio-stretcher/internal/mathutil"
)

const (
	// Offset past the cutoff where the stopband is measured
	stopbandOffset = 0.06

	// Number of points sampled across the stopband for the worst case
	stopbandPoints = 200
)

// ratioCase is one effective transposer rate to analyse.
type ratioCase struct {
	rate float64
	name string
}

// response summarises a filter design.
type response struct {
	cutoff     float64
	beta       float64
	dcGain     float64
	passbandDB float64
	cutoffDB   float64
	stopbandDB float64
}

func main() {
	fmt.Println("=== Anti-alias filter response ===")
	fmt.Printf("Taps: %d\n", engine.AntiAliasTaps)

	cases := []ratioCase{
		{1.0595, "+1 semitone"},
		{1.25, "+25% rate"},
		{1.4983, "+7 semitones"},
		{2.0, "+12 semitones"},
		{4.0, "+24 semitones"},
		{8.0, "+36 semitones"},
	}

	for _, c := range cases {
		r, err := analyze(c.rate)
		if err != nil {
			fmt.Printf("\n%s: %v\n", c.name, err)
			continue
		}
		fmt.Printf("\n=== %s (rate = %.4f) ===\n", c.name, c.rate)
		fmt.Printf("  Cutoff:      %.5f cycles/sample (Kaiser beta %.3f)\n", r.cutoff, r.beta)
		fmt.Printf("  DC gain:     %.10f\n", r.dcGain)
		fmt.Printf("  Passband:    %+.4f dB at half cutoff\n", r.passbandDB)
		fmt.Printf("  At cutoff:   %+.2f dB\n", r.cutoffDB)
		fmt.Printf("  Stopband:    %+.1f dB worst case above %.5f\n", r.stopbandDB, r.cutoff+stopbandOffset)
	}
}

// analyze designs the filter for rate and measures it.
func analyze(rate float64) (response, error) {
	lp := engine.AntiAliasFilter(rate)
	coeffs, err := filter.DesignLowPass(engine.AntiAliasTaps, lp)
	if err != nil {
		return response{}, err
	}

	r := response{
		cutoff:     lp.Cutoff,
		beta:       mathutil.KaiserBeta(lp.Attenuation),
		dcGain:     filter.MagnitudeAt(coeffs, 0),
		passbandDB: filter.MagnitudeDB(filter.MagnitudeAt(coeffs, lp.Cutoff/2)),
		cutoffDB:   filter.MagnitudeDB(filter.MagnitudeAt(coeffs, lp.Cutoff)),
		stopbandDB: filter.MagnitudeDB(0),
	}

	start := lp.Cutoff + stopbandOffset
	if start >= 0.5 {
		return r, nil
	}
	step := (0.5 - start) / stopbandPoints
	for i := range stopbandPoints + 1 {
		db := filter.MagnitudeDB(filter.MagnitudeAt(coeffs, start+float64(i)*step))
		r.stopbandDB = max(r.stopbandDB, db)
	}
	return r, nil
}
