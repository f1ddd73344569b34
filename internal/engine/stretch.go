package engine

import (
	"math"

	"github.com/tphakala/go-audio-stretcher/internal/simdops"
)

// stretchStage changes tempo without changing pitch using WSOLA: the input is
// cut into overlapping sequences, and each new sequence is aligned to the
// tail of the previous one at the offset with the highest normalised
// cross-correlation before the two are cross-faded.
type stretchStage[F simdops.Float] struct {
	channels int
	seq      int // frames per sequence
	seek     int // frames searched for the best overlap
	overlap  int // cross-fade length in frames

	tempo       float64
	nominalSkip float64
	skipFract   float64
	sampleReq   int

	input *sampleQueue[F]
	mid   []F // tail of the previous sequence, overlap frames
	ops   *simdops.Ops[F]
}

func newStretchStage[F simdops.Float](sampleRate float64, channels int) *stretchStage[F] {
	overlap := max(msToFrames(sampleRate, overlapMs), minOverlapFrames)
	seek := max(msToFrames(sampleRate, seekWindowMs), minSeekFrames)
	seq := max(msToFrames(sampleRate, sequenceMs), 2*overlap+1)

	s := &stretchStage[F]{
		channels: channels,
		seq:      seq,
		seek:     seek,
		overlap:  overlap,
		mid:      make([]F, overlap*channels),
		ops:      simdops.For[F](),
	}
	s.setTempo(1)
	s.input = newSampleQueue[F](channels, s.sampleReq*initialQueueRequests)
	return s
}

func msToFrames(sampleRate, ms float64) int {
	return int(sampleRate * ms / msPerSecond)
}

// setTempo sets the input/output duration ratio. Values above 1 play faster.
func (s *stretchStage[F]) setTempo(tempo float64) {
	s.tempo = tempo
	s.nominalSkip = tempo * float64(s.seq-s.overlap)
	intSkip := int(s.nominalSkip + 0.5)
	s.sampleReq = max(intSkip+s.overlap, s.seq) + s.seek
}

func (s *stretchStage[F]) bypassed() bool { return s.tempo == 1 }

// backlog is the number of input frames not yet turned into output.
func (s *stretchStage[F]) backlog() int { return s.input.frames() }

func (s *stretchStage[F]) reset() {
	s.input.clear()
	clear(s.mid)
	s.skipFract = 0
}

// process turns as much queued input as possible into output.
func (s *stretchStage[F]) process(out *sampleQueue[F]) {
	if s.bypassed() {
		s.input.moveTo(out)
		return
	}

	ch := s.channels
	for s.input.frames() >= s.sampleReq {
		in := s.input.data()
		offset := s.bestOverlapOffset(in)

		// Cross-fade the previous tail into the aligned sequence head.
		fade := out.reserve(s.overlap)
		src := in[offset*ch:]
		step := F(1) / F(s.overlap)
		for i := range s.overlap {
			t := F(i) * step
			for c := range ch {
				j := i*ch + c
				fade[j] = s.mid[j]*(1-t) + src[j]*t
			}
		}
		out.commit(s.overlap)

		// Sequence body between the two overlap regions.
		body := s.seq - 2*s.overlap
		copy(out.reserve(body), src[s.overlap*ch:(s.overlap+body)*ch])
		out.commit(body)

		// Keep the tail for the next cross-fade.
		copy(s.mid, src[(s.seq-s.overlap)*ch:s.seq*ch])

		s.skipFract += s.nominalSkip
		skip := int(s.skipFract)
		s.skipFract -= float64(skip)
		s.input.consume(skip)
	}
}

// bestOverlapOffset returns the offset in [0, seek) whose overlap window best
// matches the stored tail.
func (s *stretchStage[F]) bestOverlapOffset(in []F) int {
	n := s.overlap * s.channels
	best := 0
	bestScore := math.Inf(-1)
	for off := range s.seek {
		cand := in[off*s.channels : off*s.channels+n]
		corr := float64(s.ops.DotProductUnsafe(s.mid, cand))
		energy := float64(s.ops.DotProductUnsafe(cand, cand))
		score := corr / math.Sqrt(energy+correlationEpsilon)
		if score > bestScore {
			best, bestScore = off, score
		}
	}
	return best
}
