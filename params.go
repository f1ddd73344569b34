package stretcher

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// SemitonesToRatio converts a pitch shift in semitones to a frequency ratio.
func SemitonesToRatio(semitones float64) float64 {
	return math.Exp2(semitones / semitonesPerOctave)
}

// RatioToSemitones converts a frequency ratio to semitones.
func RatioToSemitones(ratio float64) float64 {
	return semitonesPerOctave * math.Log2(ratio)
}

// PercentToRatio converts a percent change (e.g. +50) to a ratio (1.5).
func PercentToRatio(percent float64) float64 {
	return 1 + percent/percentScale
}

// RatioToPercent converts a ratio to a percent change.
func RatioToPercent(ratio float64) float64 {
	return (ratio - 1) * percentScale
}

// FormatSemitones renders a pitch shift as "+10.50 st".
func FormatSemitones(semitones float64) string {
	if math.Abs(semitones) < semitoneZeroThreshold {
		return "0.00 st"
	}
	return fmt.Sprintf("%+.2f st", semitones)
}

// FormatPercent renders a tempo or rate change as "+50.0%".
func FormatPercent(percent float64) string {
	if math.Abs(percent) < percentZeroThreshold {
		return "0.0%"
	}
	return fmt.Sprintf("%+.1f%%", percent)
}

// ValidateSemitones checks a pitch shift against the supported range.
func ValidateSemitones(semitones float64) error {
	if math.IsNaN(semitones) || semitones < minPitchSemitones || semitones > maxPitchSemitones {
		return fmt.Errorf("%w: pitch %v st outside %v..%v", ErrInvalidParameter,
			semitones, minPitchSemitones, maxPitchSemitones)
	}
	return nil
}

// ValidatePercent checks a tempo or rate change against the supported range.
func ValidatePercent(percent float64) error {
	if math.IsNaN(percent) || percent < minPercent || percent > maxPercent {
		return fmt.Errorf("%w: %v%% outside %v..%v", ErrInvalidParameter,
			percent, minPercent, maxPercent)
	}
	return nil
}

func validatePitchRatio(r float64) error {
	lo, hi := SemitonesToRatio(minPitchSemitones), SemitonesToRatio(maxPitchSemitones)
	if math.IsNaN(r) || r < lo || r > hi {
		return fmt.Errorf("%w: pitch ratio %v outside %v..%v", ErrInvalidParameter, r, lo, hi)
	}
	return nil
}

func validatePercentRatio(r float64) error {
	lo, hi := PercentToRatio(minPercent), PercentToRatio(maxPercent)
	if math.IsNaN(r) || r < lo || r > hi {
		return fmt.Errorf("%w: ratio %v outside %v..%v", ErrInvalidParameter, r, lo, hi)
	}
	return nil
}

// ratioCell is a float64 shared between the control and audio goroutines.
// The latest store wins.
type ratioCell struct {
	bits atomic.Uint64
}

func newRatioCell(v float64) *ratioCell {
	c := &ratioCell{}
	c.store(v)
	return c
}

func (c *ratioCell) load() float64 { return math.Float64frombits(c.bits.Load()) }

func (c *ratioCell) store(v float64) { c.bits.Store(math.Float64bits(v)) }

// SetPitchSemitones shifts pitch by semitones without changing tempo.
func (p *Processor[F]) SetPitchSemitones(semitones float64) error {
	if err := ValidateSemitones(semitones); err != nil {
		p.rejected("pitch", semitones, err)
		return err
	}
	p.pitch.store(SemitonesToRatio(semitones))
	return nil
}

// SetTempoPercent changes tempo by percent without changing pitch.
func (p *Processor[F]) SetTempoPercent(percent float64) error {
	if err := ValidatePercent(percent); err != nil {
		p.rejected("tempo", percent, err)
		return err
	}
	p.tempo.store(PercentToRatio(percent))
	return nil
}

// SetRatePercent changes playback rate by percent, shifting tempo and pitch together.
func (p *Processor[F]) SetRatePercent(percent float64) error {
	if err := ValidatePercent(percent); err != nil {
		p.rejected("rate", percent, err)
		return err
	}
	p.rate.store(PercentToRatio(percent))
	return nil
}

// SetPitchRatio sets the pitch as a frequency ratio.
func (p *Processor[F]) SetPitchRatio(r float64) error {
	if err := validatePitchRatio(r); err != nil {
		p.rejected("pitch_ratio", r, err)
		return err
	}
	p.pitch.store(r)
	return nil
}

// SetTempoRatio sets the tempo as a speed ratio.
func (p *Processor[F]) SetTempoRatio(r float64) error {
	if err := validatePercentRatio(r); err != nil {
		p.rejected("tempo_ratio", r, err)
		return err
	}
	p.tempo.store(r)
	return nil
}

// SetRateRatio sets the playback rate ratio.
func (p *Processor[F]) SetRateRatio(r float64) error {
	if err := validatePercentRatio(r); err != nil {
		p.rejected("rate_ratio", r, err)
		return err
	}
	p.rate.store(r)
	return nil
}

// PitchRatio returns the requested pitch ratio.
func (p *Processor[F]) PitchRatio() float64 { return p.pitch.load() }

// TempoRatio returns the requested tempo ratio.
func (p *Processor[F]) TempoRatio() float64 { return p.tempo.load() }

// RateRatio returns the requested playback rate ratio.
func (p *Processor[F]) RateRatio() float64 { return p.rate.load() }

// PitchSemitones returns the requested pitch shift in semitones.
func (p *Processor[F]) PitchSemitones() float64 { return RatioToSemitones(p.pitch.load()) }

// TempoPercent returns the requested tempo change in percent.
func (p *Processor[F]) TempoPercent() float64 { return RatioToPercent(p.tempo.load()) }

// RatePercent returns the requested rate change in percent.
func (p *Processor[F]) RatePercent() float64 { return RatioToPercent(p.rate.load()) }

func (p *Processor[F]) rejected(param string, value float64, err error) {
	p.logger().WithFields(logrus.Fields{
		"parameter": param,
		"value":     value,
	}).WithError(err).Debug("parameter rejected")
}
