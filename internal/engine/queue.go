package engine

import "github.com/tphakala/go-audio-stretcher/internal/simdops"

// sampleQueue is a linear FIFO of interleaved frames. Consumed space at the
// front is reclaimed by compaction; the backing array grows only when a
// reservation cannot fit after compaction.
type sampleQueue[F simdops.Float] struct {
	buf      []F
	channels int
	begin    int
	end      int
}

func newSampleQueue[F simdops.Float](channels, frames int) *sampleQueue[F] {
	return &sampleQueue[F]{
		buf:      make([]F, channels*max(frames, 1)),
		channels: channels,
	}
}

func (q *sampleQueue[F]) frames() int { return (q.end - q.begin) / q.channels }

func (q *sampleQueue[F]) capacityFrames() int { return len(q.buf) / q.channels }

// data returns the unread samples. The slice is valid until the next
// reserve, put or clear.
func (q *sampleQueue[F]) data() []F { return q.buf[q.begin:q.end] }

// reserve returns writable space for frames frames at the tail. Call commit
// with the number of frames actually written.
func (q *sampleQueue[F]) reserve(frames int) []F {
	need := frames * q.channels
	if q.end+need > len(q.buf) {
		if q.begin > 0 {
			n := copy(q.buf, q.buf[q.begin:q.end])
			q.begin, q.end = 0, n
		}
		if q.end+need > len(q.buf) {
			grown := make([]F, max(len(q.buf)*queueGrowthFactor, q.end+need))
			copy(grown, q.buf[:q.end])
			q.buf = grown
		}
	}
	return q.buf[q.end : q.end+need]
}

func (q *sampleQueue[F]) commit(frames int) { q.end += frames * q.channels }

func (q *sampleQueue[F]) put(samples []F) {
	frames := len(samples) / q.channels
	copy(q.reserve(frames), samples)
	q.commit(frames)
}

func (q *sampleQueue[F]) consume(frames int) {
	q.begin += min(frames, q.frames()) * q.channels
	if q.begin == q.end {
		q.begin, q.end = 0, 0
	}
}

// take moves up to maxFrames frames into dst and returns the count.
func (q *sampleQueue[F]) take(dst []F, maxFrames int) int {
	n := min(maxFrames, q.frames(), len(dst)/q.channels)
	if n <= 0 {
		return 0
	}
	copy(dst, q.buf[q.begin:q.begin+n*q.channels])
	q.consume(n)
	return n
}

// moveTo appends every queued frame to dst and empties q.
func (q *sampleQueue[F]) moveTo(dst *sampleQueue[F]) {
	if q.begin == q.end {
		return
	}
	dst.put(q.data())
	q.clear()
}

func (q *sampleQueue[F]) clear() { q.begin, q.end = 0, 0 }
