package stretcher

// TotalLatencyFrames returns the current pipeline delay in frames: audio
// accepted by the engine but not yet processed, plus processed audio
// waiting in the output FIFO. It is recomputed on every call and may be
// called from the control goroutine while audio runs.
//
// While a requested reset has not yet been carried out by the audio
// goroutine, both parts count as zero since they are about to be discarded.
func (p *Processor[F]) TotalLatencyFrames() int {
	ep := p.current.Load()
	if ep == nil || p.resetPending() {
		return 0
	}
	return max(p.engine.UnprocessedFrameBacklog(), 0) + ep.fifo.ReadyFrames()
}

// LatencySeconds converts TotalLatencyFrames to seconds at the prepared
// sample rate.
func (p *Processor[F]) LatencySeconds() float64 {
	ep := p.current.Load()
	if ep == nil {
		return 0
	}
	return float64(p.TotalLatencyFrames()) / ep.cfg.SampleRate
}
