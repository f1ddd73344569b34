// Package interleave converts between the planar channel layout used by audio
// hosts and the interleaved layout consumed by transform engines.
package interleave

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-audio-stretcher/internal/simdops"
)

// ErrGeometryMismatch is returned when buffer shapes disagree with the
// configured channel count or frame limit. Data is never truncated.
var ErrGeometryMismatch = errors.New("interleave: geometry mismatch")

// Interleaver owns the scratch buffer for one channel layout. Not safe for
// concurrent use.
type Interleaver[F simdops.Float] struct {
	channels  int
	maxFrames int
	scratch   []F
	ops       *simdops.Ops[F]
}

// New creates an Interleaver for channels channels and up to maxFrames frames
// per call. All memory is allocated here.
func New[F simdops.Float](channels, maxFrames int) (*Interleaver[F], error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrGeometryMismatch, channels)
	}
	if maxFrames < 1 {
		return nil, fmt.Errorf("%w: max frames %d", ErrGeometryMismatch, maxFrames)
	}

	return &Interleaver[F]{
		channels:  channels,
		maxFrames: maxFrames,
		scratch:   make([]F, channels*maxFrames),
		ops:       simdops.For[F](),
	}, nil
}

// Channels returns the configured channel count.
func (il *Interleaver[F]) Channels() int { return il.channels }

// MaxFrames returns the largest frame count accepted per call.
func (il *Interleaver[F]) MaxFrames() int { return il.maxFrames }

// Interleave packs frames frames of planar into the internal scratch buffer
// and returns a view of it. The view is overwritten by the next call.
func (il *Interleaver[F]) Interleave(planar [][]F, frames int) ([]F, error) {
	dst := il.scratch[:0]
	if frames > 0 && frames <= il.maxFrames {
		dst = il.scratch[:frames*il.channels]
	}
	if err := il.InterleaveInto(dst, planar, frames); err != nil {
		return nil, err
	}
	return dst, nil
}

// InterleaveInto packs frames frames of planar into dst.
func (il *Interleaver[F]) InterleaveInto(dst []F, planar [][]F, frames int) error {
	if err := il.check(planar, frames, len(dst)); err != nil {
		return err
	}

	switch il.channels {
	case 1:
		copy(dst[:frames], planar[0][:frames])
	case 2:
		il.ops.Interleave2(dst[:2*frames], planar[0][:frames], planar[1][:frames])
	default:
		for ch, plane := range planar {
			idx := ch
			for _, s := range plane[:frames] {
				dst[idx] = s
				idx += il.channels
			}
		}
	}
	return nil
}

// Deinterleave unpacks frames frames of flat into planar.
func (il *Interleaver[F]) Deinterleave(flat []F, frames int, planar [][]F) error {
	if err := il.check(planar, frames, len(flat)); err != nil {
		return err
	}

	if il.channels == 1 {
		copy(planar[0][:frames], flat[:frames])
		return nil
	}
	for ch, plane := range planar {
		idx := ch
		for i := range frames {
			plane[i] = flat[idx]
			idx += il.channels
		}
	}
	return nil
}

func (il *Interleaver[F]) check(planar [][]F, frames, flatLen int) error {
	if len(planar) != il.channels {
		return fmt.Errorf("%w: %d planes, want %d", ErrGeometryMismatch, len(planar), il.channels)
	}
	if frames < 0 || frames > il.maxFrames {
		return fmt.Errorf("%w: %d frames, limit %d", ErrGeometryMismatch, frames, il.maxFrames)
	}
	if flatLen < frames*il.channels {
		return fmt.Errorf("%w: interleaved buffer holds %d samples, need %d",
			ErrGeometryMismatch, flatLen, frames*il.channels)
	}
	for ch, plane := range planar {
		if len(plane) < frames {
			return fmt.Errorf("%w: channel %d holds %d frames, need %d",
				ErrGeometryMismatch, ch, len(plane), frames)
		}
	}
	return nil
}
