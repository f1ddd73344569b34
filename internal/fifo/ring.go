// Package fifo provides the fixed-capacity interleaved sample FIFO that sits
// between a variable-rate engine and a fixed-rate audio callback.
package fifo

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tphakala/go-audio-stretcher/internal/simdops"
)

var (
	// ErrInvalidGeometry is returned by New for a non-positive capacity or channel count.
	ErrInvalidGeometry = errors.New("fifo: invalid geometry")

	// ErrUnderrun is returned by ReadFrames when fewer frames are ready than requested.
	ErrUnderrun = errors.New("fifo: underrun")
)

// RingBuffer is a single-producer single-consumer circular buffer of
// interleaved samples. Capacity is fixed at construction; writes never
// overwrite unread data and always move whole frames.
//
// Write and ReadFrames must be called from the same goroutine (the audio
// callback). Ready, ReadyFrames and their Free counterparts may be observed
// from any goroutine.
type RingBuffer[F simdops.Float] struct {
	data     []F
	channels int
	readPos  int
	writePos int
	ready    atomic.Int64 // samples
}

// New allocates a ring holding capacityFrames frames of the given channel count.
func New[F simdops.Float](capacityFrames, channels int) (*RingBuffer[F], error) {
	if capacityFrames < 1 {
		return nil, fmt.Errorf("%w: capacity %d frames", ErrInvalidGeometry, capacityFrames)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidGeometry, channels)
	}

	return &RingBuffer[F]{
		data:     make([]F, capacityFrames*channels),
		channels: channels,
	}, nil
}

// Write appends as many whole frames of samples as fit and returns the number
// of samples accepted. A trailing partial frame is never written.
func (r *RingBuffer[F]) Write(samples []F) int {
	n := min(len(samples), r.Free())
	n -= n % r.channels
	if n == 0 {
		return 0
	}

	first := copy(r.data[r.writePos:], samples[:n])
	if first < n {
		copy(r.data, samples[first:n])
	}
	r.writePos = (r.writePos + n) % len(r.data)
	r.ready.Add(int64(n))

	return n
}

// ReadFrames copies exactly frames frames into dst and consumes them. When
// fewer frames are ready, or dst is too short, nothing is consumed.
func (r *RingBuffer[F]) ReadFrames(dst []F, frames int) error {
	if frames < 0 {
		return fmt.Errorf("%w: negative frame count %d", ErrUnderrun, frames)
	}
	if ready := r.ReadyFrames(); ready < frames {
		return fmt.Errorf("%w: %d frames ready, %d requested", ErrUnderrun, ready, frames)
	}
	n := frames * r.channels
	if len(dst) < n {
		return fmt.Errorf("%w: destination holds %d samples, need %d", ErrUnderrun, len(dst), n)
	}
	if n == 0 {
		return nil
	}

	first := copy(dst[:n], r.data[r.readPos:])
	if first < n {
		copy(dst[first:n], r.data)
	}
	r.readPos = (r.readPos + n) % len(r.data)
	r.ready.Add(-int64(n))

	return nil
}

// Reset discards all ready samples without reallocating.
func (r *RingBuffer[F]) Reset() {
	r.readPos = 0
	r.writePos = 0
	r.ready.Store(0)
}

// Ready returns the number of unread samples.
func (r *RingBuffer[F]) Ready() int { return int(r.ready.Load()) }

// ReadyFrames returns the number of unread frames.
func (r *RingBuffer[F]) ReadyFrames() int { return r.Ready() / r.channels }

// Free returns the number of samples that can be written.
func (r *RingBuffer[F]) Free() int { return len(r.data) - r.Ready() }

// FreeFrames returns the number of frames that can be written.
func (r *RingBuffer[F]) FreeFrames() int { return r.Free() / r.channels }

// Capacity returns the capacity in samples.
func (r *RingBuffer[F]) Capacity() int { return len(r.data) }

// CapacityFrames returns the capacity in frames.
func (r *RingBuffer[F]) CapacityFrames() int { return len(r.data) / r.channels }

// Channels returns the frame width.
func (r *RingBuffer[F]) Channels() int { return r.channels }
