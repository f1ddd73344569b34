// Package stretcher adapts a variable-throughput audio transform, such as a
// time stretcher or pitch shifter, to a real-time host that pulls fixed-size
// blocks on a strict deadline.
//
// An [Engine] accepts interleaved input and returns processed frames at its
// own cadence. The [Processor] pushes every host block into the engine,
// collects whatever the engine produces in a fixed-capacity output FIFO and
// hands exactly one block back to the host. Until a full block of processed
// audio is ready, the input is passed through unchanged, so the host never
// hears a gap.
//
// # Quick Start
//
//	p, err := stretcher.NewStereo[float32](48000, 512)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = p.SetPitchSemitones(+3)
//
//	// In the audio callback, with one plane per channel:
//	state, err := p.ProcessBlock(in, out, frames)
//
//	// For host delay compensation, from the control goroutine:
//	latency := p.TotalLatencyFrames()
//
// # Buffering Policies
//
// The FIFO capacity is chosen by a [Policy]:
//
//   - [PolicyMinimal]: max(4096, 8×block) frames. Least memory.
//   - [PolicyNormal]: max(16384, 32×block) frames. The default.
//   - [PolicyExtra]: max(32768, 64×block) frames. For very bursty engines.
//
// Changing the policy while audio runs installs a new, empty FIFO and
// resets the engine on the next callback. Engine output that does not fit
// in the FIFO is discarded and counted in [Stats].DroppedFrames.
//
// # Threading
//
// One audio goroutine calls [Processor.ProcessBlock]. A control goroutine
// may concurrently change parameters and policy, request resets, and read
// [Processor.TotalLatencyFrames] or [Processor.Stats]. The audio path takes
// no locks and does not allocate in steady state. The processor never
// starts goroutines of its own.
//
// # Engines
//
// [NewStretchEngine] returns a WSOLA time stretcher combined with a Hermite
// resampling transposer, giving independent control of pitch
// (±39.8 semitones), tempo and playback rate (-90% to +900%).
// [NewDelayEngine] returns a fixed delay, useful as a unity reference.
package stretcher
