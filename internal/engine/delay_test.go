package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-stretcher/internal/testutil"
)

func TestDelayHoldsBackFrames(t *testing.T) {
	d := NewDelay[float32](100)
	require.NoError(t, d.Configure(testRate, 2))

	in := testutil.Ramp[float32](0, 2*512)
	require.NoError(t, d.Push(in, 512))

	assert.Equal(t, 412, d.FramesAvailable())
	assert.Equal(t, 100, d.UnprocessedFrameBacklog())

	out := make([]float32, 2*512)
	require.Equal(t, 412, d.Drain(out, 512))
	assert.Equal(t, in[:2*412], out[:2*412])
	assert.Equal(t, 100, d.UnprocessedFrameBacklog())

	// The next push releases the held frames first.
	require.NoError(t, d.Push(testutil.Ramp[float32](2*512, 2*512), 512))
	require.Equal(t, 512, d.Drain(out, 512))
	assert.Equal(t, testutil.Ramp[float32](2*412, 2*512), out)
}

func TestDelayShortInputIsAllBacklog(t *testing.T) {
	d := NewDelay[float64](256)
	require.NoError(t, d.Configure(testRate, 1))

	require.NoError(t, d.Push(make([]float64, 64), 64))

	assert.Equal(t, 0, d.FramesAvailable())
	assert.Equal(t, 64, d.UnprocessedFrameBacklog())
	assert.Equal(t, 0, d.Drain(make([]float64, 64), 64))
}

func TestDelayZeroIsIdentity(t *testing.T) {
	d := NewDelay[float32](-5)
	require.NoError(t, d.Configure(testRate, 1))

	in := testutil.Ramp[float32](0, 32)
	require.NoError(t, d.Push(in, 32))

	out := make([]float32, 32)
	require.Equal(t, 32, d.Drain(out, 32))
	assert.Equal(t, in, out)
	assert.Equal(t, 0, d.UnprocessedFrameBacklog())
}

func TestDelayResetAndErrors(t *testing.T) {
	d := NewDelay[float32](8)
	require.ErrorIs(t, d.Push(nil, 0), ErrNotConfigured)
	require.ErrorIs(t, d.Configure(0, 1), ErrInvalidGeometry)
	require.ErrorIs(t, d.Configure(testRate, 0), ErrInvalidGeometry)

	require.NoError(t, d.Configure(testRate, 2))
	require.ErrorIs(t, d.Push(make([]float32, 3), 2), ErrInvalidGeometry)

	require.NoError(t, d.Push(make([]float32, 40), 20))
	d.Reset()
	assert.Equal(t, 0, d.FramesAvailable())
	assert.Equal(t, 0, d.UnprocessedFrameBacklog())
}

func TestDelayInfo(t *testing.T) {
	d := NewDelay[float32](33)
	require.NoError(t, d.Configure(22050, 1))

	info := d.Info()
	assert.Equal(t, "delay", info.Algorithm)
	assert.Equal(t, 33, info.LatencyFrames)
	assert.Equal(t, 1, info.Channels)
}
