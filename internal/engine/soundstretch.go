// Package engine implements the transform engines driven by the block
// processor: a WSOLA tempo stretcher with a Hermite pitch transposer, and a
// fixed delay line.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/tphakala/go-audio-stretcher/internal/simdops"
)

var (
	// ErrNotConfigured is returned by Push before Configure succeeded.
	ErrNotConfigured = errors.New("engine: not configured")

	// ErrInvalidGeometry is returned for bad sample rates, channel counts or
	// sample slices that do not hold the stated frame count.
	ErrInvalidGeometry = errors.New("engine: invalid geometry")
)

// Info describes an engine's configuration.
type Info struct {
	Algorithm      string
	SampleRate     float64
	Channels       int
	SequenceFrames int
	SeekFrames     int
	OverlapFrames  int
	FilterTaps     int
	LatencyFrames  int
	SIMD           string
}

// SoundStretch changes tempo, pitch and playback rate independently.
// Tempo is handled by a WSOLA stage, pitch and rate by a resampling
// transposer after it; pitch is the combination of a tempo change and the
// inverse rate change.
//
// Push, Drain, Reset and the ratio setters belong to the audio goroutine.
// UnprocessedFrameBacklog may be called from any goroutine.
type SoundStretch[F simdops.Float] struct {
	sampleRate float64
	channels   int

	pitch float64
	tempo float64
	rate  float64

	stretch   *stretchStage[F]
	transpose *transposer[F]
	mid       *sampleQueue[F]
	out       *sampleQueue[F]

	// Frames the transposer has taken in, capped at its history delay.
	held int

	backlog atomic.Int64
}

// NewSoundStretch returns an unconfigured engine at unity ratios.
func NewSoundStretch[F simdops.Float]() *SoundStretch[F] {
	return &SoundStretch[F]{pitch: 1, tempo: 1, rate: 1}
}

// Configure allocates all stages for the given format and clears any state.
// Ratios set earlier are kept.
func (s *SoundStretch[F]) Configure(sampleRate float64, channels int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%w: sample rate %v", ErrInvalidGeometry, sampleRate)
	}
	if channels < 1 {
		return fmt.Errorf("%w: %d channels", ErrInvalidGeometry, channels)
	}

	s.sampleRate = sampleRate
	s.channels = channels
	s.stretch = newStretchStage[F](sampleRate, channels)
	s.transpose = newTransposer[F](channels)
	s.mid = newSampleQueue[F](channels, s.stretch.sampleReq)
	s.out = newSampleQueue[F](channels, s.stretch.sampleReq)
	s.apply()
	s.held = 0
	s.backlog.Store(0)
	return nil
}

// Reset drops all buffered audio and filter state.
func (s *SoundStretch[F]) Reset() {
	if s.stretch == nil {
		return
	}
	s.stretch.reset()
	s.transpose.reset()
	s.mid.clear()
	s.out.clear()
	s.held = 0
	s.backlog.Store(0)
}

// Push queues frames interleaved frames and runs the stages.
func (s *SoundStretch[F]) Push(samples []F, frames int) error {
	if s.stretch == nil {
		return ErrNotConfigured
	}
	if frames < 0 || len(samples) < frames*s.channels {
		return fmt.Errorf("%w: %d samples for %d frames of %d channels",
			ErrInvalidGeometry, len(samples), frames, s.channels)
	}

	s.stretch.input.put(samples[:frames*s.channels])
	s.stretch.process(s.mid)
	if n := s.mid.frames(); n > 0 {
		s.transpose.process(s.mid.data(), n, s.out)
		s.mid.clear()
		s.held = min(s.held+n, hermiteDelayFrames)
	}
	s.backlog.Store(int64(s.stretch.backlog() + s.held))
	return nil
}

// FramesAvailable returns the number of frames Drain can return.
func (s *SoundStretch[F]) FramesAvailable() int {
	if s.out == nil {
		return 0
	}
	return s.out.frames()
}

// Drain copies up to maxFrames processed frames into dst. It never blocks.
func (s *SoundStretch[F]) Drain(dst []F, maxFrames int) int {
	if s.out == nil {
		return 0
	}
	return s.out.take(dst, maxFrames)
}

// SetPitchRatio sets the frequency multiplier, e.g. 2 for one octave up.
func (s *SoundStretch[F]) SetPitchRatio(r float64) {
	if validRatio(r) {
		s.pitch = r
		s.apply()
	}
}

// SetTempoRatio sets the speed multiplier without changing pitch.
func (s *SoundStretch[F]) SetTempoRatio(r float64) {
	if validRatio(r) {
		s.tempo = r
		s.apply()
	}
}

// SetRateRatio sets the playback rate multiplier, changing tempo and pitch together.
func (s *SoundStretch[F]) SetRateRatio(r float64) {
	if validRatio(r) {
		s.rate = r
		s.apply()
	}
}

// UnprocessedFrameBacklog returns the input frames waiting in the stretch
// stage plus those held in the transposer history window.
func (s *SoundStretch[F]) UnprocessedFrameBacklog() int {
	return int(s.backlog.Load())
}

// Info reports the engine configuration.
func (s *SoundStretch[F]) Info() Info {
	info := Info{
		Algorithm:  "wsola+hermite",
		SampleRate: s.sampleRate,
		Channels:   s.channels,
		FilterTaps: antiAliasTaps,
		SIMD:       simdops.Info(),
	}
	if s.stretch != nil {
		info.SequenceFrames = s.stretch.seq
		info.SeekFrames = s.stretch.seek
		info.OverlapFrames = s.stretch.overlap
		info.LatencyFrames = hermiteDelayFrames
		if !s.stretch.bypassed() {
			info.LatencyFrames += s.stretch.sampleReq
		}
	}
	return info
}

func (s *SoundStretch[F]) apply() {
	if s.stretch == nil {
		return
	}
	s.stretch.setTempo(clampRatio(s.tempo / s.pitch))
	s.transpose.setRate(clampRatio(s.rate * s.pitch))
}

func validRatio(r float64) bool {
	return r > 0 && !math.IsInf(r, 0) && !math.IsNaN(r)
}

func clampRatio(r float64) float64 {
	return min(max(r, minEffectiveRatio), maxEffectiveRatio)
}
