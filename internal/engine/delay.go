package engine

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/tphakala/go-audio-stretcher/internal/simdops"
)

// Delay is an identity engine that withholds the most recent frames frames.
// Ratio setters are accepted and ignored.
type Delay[F simdops.Float] struct {
	frames     int
	sampleRate float64
	channels   int
	queue      *sampleQueue[F]
	held       atomic.Int64
}

// NewDelay returns a delay engine holding back frames frames (negative is 0).
func NewDelay[F simdops.Float](frames int) *Delay[F] {
	return &Delay[F]{frames: max(frames, 0)}
}

// Configure allocates the delay line.
func (d *Delay[F]) Configure(sampleRate float64, channels int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%w: sample rate %v", ErrInvalidGeometry, sampleRate)
	}
	if channels < 1 {
		return fmt.Errorf("%w: %d channels", ErrInvalidGeometry, channels)
	}
	d.sampleRate = sampleRate
	d.channels = channels
	d.queue = newSampleQueue[F](channels, 2*d.frames+1)
	d.held.Store(0)
	return nil
}

// Reset empties the delay line.
func (d *Delay[F]) Reset() {
	if d.queue != nil {
		d.queue.clear()
	}
	d.held.Store(0)
}

// Push appends frames frames.
func (d *Delay[F]) Push(samples []F, frames int) error {
	if d.queue == nil {
		return ErrNotConfigured
	}
	if frames < 0 || len(samples) < frames*d.channels {
		return fmt.Errorf("%w: %d samples for %d frames of %d channels",
			ErrInvalidGeometry, len(samples), frames, d.channels)
	}
	d.queue.put(samples[:frames*d.channels])
	d.updateHeld()
	return nil
}

// FramesAvailable returns the frames beyond the delay.
func (d *Delay[F]) FramesAvailable() int {
	if d.queue == nil {
		return 0
	}
	return max(d.queue.frames()-d.frames, 0)
}

// Drain copies up to maxFrames delayed frames into dst.
func (d *Delay[F]) Drain(dst []F, maxFrames int) int {
	n := d.FramesAvailable()
	if n == 0 {
		return 0
	}
	n = d.queue.take(dst, min(n, maxFrames))
	d.updateHeld()
	return n
}

// SetPitchRatio is ignored.
func (d *Delay[F]) SetPitchRatio(float64) {}

// SetTempoRatio is ignored.
func (d *Delay[F]) SetTempoRatio(float64) {}

// SetRateRatio is ignored.
func (d *Delay[F]) SetRateRatio(float64) {}

// UnprocessedFrameBacklog returns the frames currently withheld.
func (d *Delay[F]) UnprocessedFrameBacklog() int {
	return int(d.held.Load())
}

// Info reports the delay configuration.
func (d *Delay[F]) Info() Info {
	return Info{
		Algorithm:     "delay",
		SampleRate:    d.sampleRate,
		Channels:      d.channels,
		LatencyFrames: d.frames,
		SIMD:          simdops.Info(),
	}
}

func (d *Delay[F]) updateHeld() {
	d.held.Store(int64(min(d.queue.frames(), d.frames)))
}
