package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-stretcher/internal/analysis"
	"github.com/tphakala/go-audio-stretcher/internal/testutil"
)

const testRate = 48000.0

// render pushes mono through e in blocks and drains everything.
func render(t *testing.T, e *SoundStretch[float64], in []float64, channels, block int) []float64 {
	t.Helper()
	frames := len(in) / channels
	out := make([]float64, 0, 2*len(in))
	buf := make([]float64, 2*block*channels)
	for pos := 0; pos < frames; pos += block {
		n := min(block, frames-pos)
		require.NoError(t, e.Push(in[pos*channels:(pos+n)*channels], n))
		for {
			got := e.Drain(buf, 2*block)
			if got == 0 {
				break
			}
			out = append(out, buf[:got*channels]...)
		}
	}
	return out
}

func TestSoundStretchConfigureValidation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		channels   int
	}{
		{"zero rate", 0, 2},
		{"negative rate", -44100, 2},
		{"NaN rate", math.NaN(), 2},
		{"infinite rate", math.Inf(1), 2},
		{"no channels", 48000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSoundStretch[float32]().Configure(tt.sampleRate, tt.channels)
			require.ErrorIs(t, err, ErrInvalidGeometry)
		})
	}
}

func TestSoundStretchRequiresConfigure(t *testing.T) {
	e := NewSoundStretch[float32]()

	require.ErrorIs(t, e.Push(make([]float32, 4), 2), ErrNotConfigured)
	assert.Equal(t, 0, e.FramesAvailable())
	assert.Equal(t, 0, e.Drain(make([]float32, 4), 2))
	e.Reset()
}

func TestSoundStretchPushValidation(t *testing.T) {
	e := NewSoundStretch[float32]()
	require.NoError(t, e.Configure(testRate, 2))

	require.ErrorIs(t, e.Push(make([]float32, 7), 4), ErrInvalidGeometry)
	require.ErrorIs(t, e.Push(nil, -1), ErrInvalidGeometry)
	require.NoError(t, e.Push(nil, 0))
}

func TestSoundStretchUnity(t *testing.T) {
	e := NewSoundStretch[float64]()
	require.NoError(t, e.Configure(testRate, 2))

	in := testutil.Interleaved(testutil.Ramp[float64](1, 4096), 2)
	out := render(t, e, in, 2, 512)

	// The transposer holds back its history window; everything else passes.
	require.Len(t, out, len(in)-2*hermiteDelayFrames)
	assert.Equal(t, hermiteDelayFrames, e.UnprocessedFrameBacklog())
	assert.Equal(t, len(in)/2, len(out)/2+e.UnprocessedFrameBacklog(), "every frame is output or in the backlog")
	assert.Equal(t, in[:len(out)], out)
}

func TestSoundStretchTempoDuration(t *testing.T) {
	for _, tempo := range []float64{0.5, 1.5, 2} {
		e := NewSoundStretch[float64]()
		require.NoError(t, e.Configure(testRate, 1))
		e.SetTempoRatio(tempo)

		in := testutil.Sine[float64](440, testRate, 96000)
		out := render(t, e, in, 1, 512)

		consumed := len(in) - e.UnprocessedFrameBacklog()
		assert.InDelta(t, float64(consumed)/tempo, float64(len(out)), 5, "tempo %v", tempo)
		testutil.AssertNoNaNOrInf(t, out)
	}
}

func TestSoundStretchPitchKeepsDuration(t *testing.T) {
	e := NewSoundStretch[float64]()
	require.NoError(t, e.Configure(testRate, 1))
	e.SetPitchRatio(math.Pow(2, 7.0/12))

	in := testutil.Sine[float64](440, testRate, 96000)
	out := render(t, e, in, 1, 512)

	consumed := len(in) - e.UnprocessedFrameBacklog()
	assert.InDelta(t, float64(consumed), float64(len(out)), 5)
}

func TestSoundStretchPitchOctaveUp(t *testing.T) {
	e := NewSoundStretch[float64]()
	require.NoError(t, e.Configure(testRate, 1))
	e.SetPitchRatio(2)

	out := render(t, e, testutil.Sine[float64](440, testRate, 2*int(testRate)), 1, 512)
	require.Greater(t, len(out), 4800+16384)

	got, err := analysis.DominantFrequency(out[4800:4800+16384], testRate)
	require.NoError(t, err)
	testutil.AssertRelativeError(t, 880, got, testutil.FrequencyTolerance)
}

func TestSoundStretchRateChangesPitchAndTempo(t *testing.T) {
	e := NewSoundStretch[float64]()
	require.NoError(t, e.Configure(testRate, 1))
	e.SetRateRatio(1.25)

	in := testutil.Sine[float64](400, testRate, 96000)
	out := render(t, e, in, 1, 512)

	assert.InDelta(t, float64(len(in))/1.25, float64(len(out)), 3)
	assert.Equal(t, hermiteDelayFrames, e.UnprocessedFrameBacklog(), "rate alone bypasses the stretch stage")

	got, err := analysis.DominantFrequency(out[2048:2048+16384], testRate)
	require.NoError(t, err)
	testutil.AssertRelativeError(t, 500, got, testutil.FrequencyTolerance)
}

func TestSoundStretchInvalidRatiosIgnored(t *testing.T) {
	e := NewSoundStretch[float32]()
	require.NoError(t, e.Configure(testRate, 1))

	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		e.SetPitchRatio(r)
		e.SetTempoRatio(r)
		e.SetRateRatio(r)
	}

	assert.InDelta(t, 1.0, e.pitch, 0)
	assert.InDelta(t, 1.0, e.tempo, 0)
	assert.InDelta(t, 1.0, e.rate, 0)
	assert.True(t, e.stretch.bypassed())
}

func TestSoundStretchRatiosSurviveConfigure(t *testing.T) {
	e := NewSoundStretch[float32]()
	e.SetTempoRatio(2)
	require.NoError(t, e.Configure(testRate, 2))

	assert.InDelta(t, 2.0, e.stretch.tempo, 1e-12)
}

func TestSoundStretchBacklog(t *testing.T) {
	e := NewSoundStretch[float32]()
	require.NoError(t, e.Configure(testRate, 2))
	e.SetTempoRatio(1.5)

	require.NoError(t, e.Push(make([]float32, 2*512), 512))
	assert.Equal(t, 512, e.UnprocessedFrameBacklog(), "below one WSOLA request nothing is processed")

	e.Reset()
	assert.Equal(t, 0, e.UnprocessedFrameBacklog())
	assert.Equal(t, 0, e.FramesAvailable())
}

func TestSoundStretchBacklogCountsTransposerHistory(t *testing.T) {
	e := NewSoundStretch[float32]()
	require.NoError(t, e.Configure(testRate, 1))
	assert.Equal(t, 0, e.UnprocessedFrameBacklog())

	// A single frame is all held back.
	require.NoError(t, e.Push([]float32{0.5}, 1))
	assert.Equal(t, 1, e.UnprocessedFrameBacklog())
	assert.Equal(t, 0, e.FramesAvailable())

	total := 1
	for range 4 {
		require.NoError(t, e.Push(make([]float32, 512), 512))
		total += 512
		assert.Equal(t, hermiteDelayFrames, e.UnprocessedFrameBacklog())
		assert.Equal(t, total, e.FramesAvailable()+e.UnprocessedFrameBacklog())
	}

	e.Reset()
	assert.Equal(t, 0, e.UnprocessedFrameBacklog())
	require.NoError(t, e.Push(make([]float32, 512), 512))
	assert.Equal(t, 512-hermiteDelayFrames, e.FramesAvailable())
	assert.Equal(t, hermiteDelayFrames, e.UnprocessedFrameBacklog())
}

func TestSoundStretchReset(t *testing.T) {
	in := testutil.Interleaved(testutil.Sine[float64](330, testRate, 24000), 2)

	e := NewSoundStretch[float64]()
	require.NoError(t, e.Configure(testRate, 2))
	e.SetPitchRatio(0.8)
	render(t, e, in, 2, 256)
	e.Reset()
	again := render(t, e, in, 2, 256)

	fresh := NewSoundStretch[float64]()
	require.NoError(t, fresh.Configure(testRate, 2))
	fresh.SetPitchRatio(0.8)
	want := render(t, fresh, in, 2, 256)

	assert.Equal(t, want, again)
}

func TestSoundStretchInfo(t *testing.T) {
	e := NewSoundStretch[float32]()
	require.NoError(t, e.Configure(44100, 2))

	info := e.Info()
	assert.Equal(t, "wsola+hermite", info.Algorithm)
	assert.InDelta(t, 44100.0, info.SampleRate, 0)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 1764, info.SequenceFrames)
	assert.Equal(t, 661, info.SeekFrames)
	assert.Equal(t, 352, info.OverlapFrames)
	assert.Equal(t, antiAliasTaps, info.FilterTaps)
	assert.Equal(t, hermiteDelayFrames, info.LatencyFrames)
	assert.NotEmpty(t, info.SIMD)
}

func BenchmarkSoundStretchPitch(b *testing.B) {
	e := NewSoundStretch[float32]()
	require.NoError(b, e.Configure(testRate, 2))
	e.SetPitchRatio(1.2)
	in := testutil.Interleaved(testutil.Sine[float32](440, testRate, 512), 2)
	out := make([]float32, 2*2048)

	b.ReportAllocs()
	for b.Loop() {
		_ = e.Push(in, 512)
		for e.Drain(out, 2048) > 0 {
		}
	}
}
