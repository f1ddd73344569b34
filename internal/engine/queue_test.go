package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-audio-stretcher/internal/testutil"
)

func TestSampleQueueOrder(t *testing.T) {
	q := newSampleQueue[float32](2, 4)

	q.put(testutil.Ramp[float32](0, 6))
	q.put(testutil.Ramp[float32](6, 10))
	require.Equal(t, 8, q.frames())

	dst := make([]float32, 16)
	n := q.take(dst, 5)
	require.Equal(t, 5, n)
	assert.Equal(t, testutil.Ramp[float32](0, 10), dst[:10])

	n = q.take(dst, 100)
	require.Equal(t, 3, n)
	assert.Equal(t, testutil.Ramp[float32](10, 6), dst[:6])
	assert.Equal(t, 0, q.frames())
}

func TestSampleQueueCompactsBeforeGrowing(t *testing.T) {
	q := newSampleQueue[float64](1, 8)
	q.put(testutil.Ramp[float64](0, 6))
	q.consume(5)

	q.put(testutil.Ramp[float64](6, 6))

	assert.Equal(t, 8, q.capacityFrames(), "consumed space should be reused")
	assert.Equal(t, testutil.Ramp[float64](5, 7), q.data())
}

func TestSampleQueueGrows(t *testing.T) {
	q := newSampleQueue[float64](2, 2)
	q.put(testutil.Ramp[float64](0, 40))

	assert.Equal(t, 20, q.frames())
	assert.GreaterOrEqual(t, q.capacityFrames(), 20)
	assert.Equal(t, testutil.Ramp[float64](0, 40), q.data())
}

func TestSampleQueueTakeBoundedByDestination(t *testing.T) {
	q := newSampleQueue[float32](2, 8)
	q.put(testutil.Ramp[float32](0, 16))

	assert.Equal(t, 3, q.take(make([]float32, 7), 8))
	assert.Equal(t, 5, q.frames())
	assert.Equal(t, 0, q.take(nil, 8))
}

func TestSampleQueueMoveTo(t *testing.T) {
	src := newSampleQueue[float32](1, 4)
	dst := newSampleQueue[float32](1, 4)
	dst.put([]float32{-1})
	src.put([]float32{1, 2, 3})

	src.moveTo(dst)

	assert.Equal(t, 0, src.frames())
	assert.Equal(t, []float32{-1, 1, 2, 3}, dst.data())
}
