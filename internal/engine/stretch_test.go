package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-stretcher/internal/testutil"
)

func TestStretchStageTiming(t *testing.T) {
	s := newStretchStage[float32](48000, 2)

	assert.Equal(t, 1920, s.seq)
	assert.Equal(t, 720, s.seek)
	assert.Equal(t, 384, s.overlap)
	assert.Len(t, s.mid, 384*2)
}

func TestStretchStageLowSampleRateKeepsSequenceValid(t *testing.T) {
	s := newStretchStage[float32](200, 1)

	assert.GreaterOrEqual(t, s.overlap, minOverlapFrames)
	assert.GreaterOrEqual(t, s.seek, minSeekFrames)
	assert.Greater(t, s.seq, 2*s.overlap)
}

func TestStretchStageRequest(t *testing.T) {
	s := newStretchStage[float64](48000, 1)

	s.setTempo(2)
	assert.InDelta(t, 2*float64(s.seq-s.overlap), s.nominalSkip, 1e-9)
	assert.Equal(t, 2*(s.seq-s.overlap)+s.overlap+s.seek, s.sampleReq)

	s.setTempo(0.5)
	assert.Equal(t, s.seq+s.seek, s.sampleReq)
}

func TestStretchStageBypassAtUnity(t *testing.T) {
	s := newStretchStage[float32](48000, 2)
	out := newSampleQueue[float32](2, 16)
	in := testutil.Ramp[float32](0, 1024)

	s.input.put(in)
	s.process(out)

	assert.True(t, s.bypassed())
	assert.Equal(t, 0, s.backlog())
	assert.Equal(t, in, out.data())
}

func TestStretchStageDuration(t *testing.T) {
	for _, tempo := range []float64{0.5, 0.8, 1.25, 2, 3} {
		s := newStretchStage[float64](48000, 1)
		s.setTempo(tempo)
		out := newSampleQueue[float64](1, 1024)

		in := testutil.Sine[float64](440, 48000, 96000)
		for pos := 0; pos < len(in); pos += 512 {
			s.input.put(in[pos:min(pos+512, len(in))])
			s.process(out)
		}

		consumed := len(in) - s.backlog()
		assert.Less(t, s.backlog(), s.sampleReq, "tempo %v", tempo)
		assert.InDelta(t, float64(consumed), float64(out.frames())*tempo, 2, "tempo %v", tempo)
		testutil.AssertNoNaNOrInf(t, out.data())
	}
}

func TestStretchStageSteadyToneKeepsLevel(t *testing.T) {
	s := newStretchStage[float64](48000, 1)
	s.setTempo(1.5)
	out := newSampleQueue[float64](1, 1024)

	s.input.put(testutil.Sine[float64](440, 48000, 96000))
	s.process(out)

	// Skip the first cross-fade, which fades in from silence.
	body := out.data()[s.overlap:]
	for i, v := range body {
		require.LessOrEqual(t, v, 1.0+1e-9, "sample %d", i)
		require.GreaterOrEqual(t, v, -1.0-1e-9, "sample %d", i)
	}
}

func TestStretchStageReset(t *testing.T) {
	in := testutil.Sine[float64](300, 48000, 20000)

	run := func(s *stretchStage[float64]) []float64 {
		out := newSampleQueue[float64](1, 16)
		s.input.put(in)
		s.process(out)
		return out.data()
	}

	s := newStretchStage[float64](48000, 1)
	s.setTempo(1.7)
	run(s)
	s.reset()
	again := run(s)

	fresh := newStretchStage[float64](48000, 1)
	fresh.setTempo(1.7)
	want := run(fresh)

	assert.Equal(t, want, again)
}
