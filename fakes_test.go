package stretcher

import (
	"errors"
	"sync/atomic"
)

var errFakeEngine = errors.New("fake engine failure")

// fakeEngine repeats every input frame gain times and can hold its output
// back so it arrives in bursts, like an engine working on large analysis
// windows.
type fakeEngine[F Float] struct {
	channels   int
	gain       int
	burstEvery int // release output on every n-th push only; 0 releases always

	pending []F // produced but not yet released
	ready   []F

	pushes     int
	resets     int
	configures int
	pitch      float64
	tempo      float64
	rate       float64

	configureErr error
	pushErr      error

	backlog atomic.Int64
}

func newFakeEngine[F Float](gain, burstEvery int) *fakeEngine[F] {
	return &fakeEngine[F]{gain: gain, burstEvery: burstEvery}
}

func (e *fakeEngine[F]) Configure(_ float64, channels int) error {
	if e.configureErr != nil {
		return e.configureErr
	}
	e.configures++
	e.channels = channels
	e.Reset()
	return nil
}

func (e *fakeEngine[F]) Reset() {
	e.resets++
	e.pending = e.pending[:0]
	e.ready = e.ready[:0]
	e.backlog.Store(0)
}

func (e *fakeEngine[F]) Push(samples []F, frames int) error {
	if e.pushErr != nil {
		return e.pushErr
	}
	e.pushes++
	for i := range frames {
		frame := samples[i*e.channels : (i+1)*e.channels]
		for range e.gain {
			e.pending = append(e.pending, frame...)
		}
	}
	if e.burstEvery == 0 || e.pushes%e.burstEvery == 0 {
		e.ready = append(e.ready, e.pending...)
		e.pending = e.pending[:0]
	}
	e.backlog.Store(int64(len(e.pending) / e.channels / max(e.gain, 1)))
	return nil
}

func (e *fakeEngine[F]) FramesAvailable() int { return len(e.ready) / e.channels }

func (e *fakeEngine[F]) Drain(dst []F, maxFrames int) int {
	n := min(maxFrames, e.FramesAvailable(), len(dst)/e.channels)
	copy(dst, e.ready[:n*e.channels])
	e.ready = e.ready[n*e.channels:]
	return n
}

func (e *fakeEngine[F]) SetPitchRatio(r float64) { e.pitch = r }
func (e *fakeEngine[F]) SetTempoRatio(r float64) { e.tempo = r }
func (e *fakeEngine[F]) SetRateRatio(r float64)  { e.rate = r }

func (e *fakeEngine[F]) UnprocessedFrameBacklog() int { return int(e.backlog.Load()) }
