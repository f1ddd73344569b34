package stretcher

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/tphakala/go-audio-stretcher/internal/fifo"
	"github.com/tphakala/go-audio-stretcher/internal/interleave"
)

// epoch is everything the audio goroutine needs for one stream geometry and
// policy. It is immutable once published; the FIFO inside it is mutated by
// the audio goroutine only.
type epoch[F Float] struct {
	cfg        Config
	drainChunk int
	fifo       *fifo.RingBuffer[F]
	il         *interleave.Interleaver[F]
	drainBuf   []F
	outBuf     []F
}

func newEpoch[F Float](cfg Config) (*epoch[F], error) {
	ring, err := fifo.New[F](cfg.Policy.CapacityFrames(cfg.BlockSize), cfg.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	il, err := interleave.New[F](cfg.Channels, cfg.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	chunk := cfg.drainChunk()
	return &epoch[F]{
		cfg:        cfg,
		drainChunk: chunk,
		fifo:       ring,
		il:         il,
		drainBuf:   make([]F, chunk*cfg.Channels),
		outBuf:     make([]F, cfg.BlockSize*cfg.Channels),
	}, nil
}

// Processor adapts a variable-throughput Engine to a host that pulls fixed
// blocks on a deadline. Processed audio is collected in a FIFO sized by the
// buffering Policy; until a full block is ready the input is passed through
// unchanged.
//
// ProcessBlock and Process must be called from a single audio goroutine.
// Every other method belongs to the control side and may run concurrently
// with the audio goroutine; control methods are serialised internally.
type Processor[F Float] struct {
	engine Engine[F]
	id     uuid.UUID

	// ctrl serialises control-side reconfiguration. The audio goroutine
	// never takes it.
	ctrl sync.Mutex
	log  atomic.Pointer[logrus.Entry]

	current atomic.Pointer[epoch[F]]
	policy  atomic.Int32

	// Engine and FIFO resets are requested by bumping resetRequested and
	// carried out by the audio goroutine, which then publishes resetApplied.
	resetRequested atomic.Uint64
	resetApplied   atomic.Uint64

	pitch *ratioCell
	tempo *ratioCell
	rate  *ratioCell

	// Ratios last forwarded to the engine; audio goroutine only.
	sentPitch float64
	sentTempo float64
	sentRate  float64

	stats counters

	// Dropped frames already logged; overruns are reported from the control side.
	reportedDropped atomic.Uint64
	overrunLimiter  *rate.Limiter
}

// NewProcessor wraps engine in an unprepared processor using the Normal
// policy and unity ratios. Call Prepare before processing.
func NewProcessor[F Float](e Engine[F]) (*Processor[F], error) {
	if e == nil {
		return nil, fmt.Errorf("%w: engine is nil", ErrInvalidConfig)
	}

	p := &Processor[F]{
		engine:         e,
		id:             uuid.New(),
		pitch:          newRatioCell(1),
		tempo:          newRatioCell(1),
		rate:           newRatioCell(1),
		overrunLimiter: rate.NewLimiter(rate.Every(time.Second), overrunLogBurst),
	}
	p.policy.Store(int32(DefaultPolicy))
	p.setLogger(logrus.StandardLogger())
	return p, nil
}

// New creates a processor for engine and prepares it with config.
func New[F Float](config *Config, e Engine[F]) (*Processor[F], error) {
	if config == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	p, err := NewProcessor(e)
	if err != nil {
		return nil, err
	}
	if err := p.Prepare(config); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Processor[F]) setLogger(l *logrus.Logger) {
	p.log.Store(l.WithFields(logrus.Fields{
		"component": "stretcher",
		"instance":  p.id.String(),
	}))
}

func (p *Processor[F]) logger() *logrus.Entry { return p.log.Load() }

// ID returns the processor's instance identifier, as used in log fields.
func (p *Processor[F]) ID() uuid.UUID { return p.id }

// Engine returns the wrapped engine.
func (p *Processor[F]) Engine() Engine[F] { return p.engine }

// Prepare configures the engine and allocates buffers for a stream. The
// host must not call ProcessBlock while Prepare runs.
func (p *Processor[F]) Prepare(config *Config) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return err
	}

	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	cfg := *config
	if cfg.Logger != nil {
		p.setLogger(cfg.Logger)
	}
	cfg.Logger = nil
	if cfg.Policy == 0 {
		cfg.Policy = p.Policy()
	}

	if err := p.engine.Configure(cfg.SampleRate, cfg.Channels); err != nil {
		return fmt.Errorf("%w: configure: %w", ErrEngine, err)
	}

	ep, err := newEpoch[F](cfg)
	if err != nil {
		return err
	}

	// Force every ratio through: Configure may have reset the engine's.
	p.sentPitch, p.sentTempo, p.sentRate = math.NaN(), math.NaN(), math.NaN()
	p.sendRatios()
	p.resetApplied.Store(p.resetRequested.Load())
	p.policy.Store(int32(cfg.Policy))
	p.current.Store(ep)

	p.logger().WithFields(logrus.Fields{
		"sample_rate":     cfg.SampleRate,
		"block_size":      cfg.BlockSize,
		"channels":        cfg.Channels,
		"policy":          cfg.Policy.String(),
		"capacity_frames": ep.fifo.CapacityFrames(),
		"drain_chunk":     ep.drainChunk,
	}).Info("processor prepared")

	return nil
}

// Prepared reports whether Prepare has succeeded.
func (p *Processor[F]) Prepared() bool {
	return p.current.Load() != nil
}

// Config returns the prepared stream configuration.
func (p *Processor[F]) Config() (Config, bool) {
	ep := p.current.Load()
	if ep == nil {
		return Config{}, false
	}
	return ep.cfg, true
}

// Policy returns the active buffering policy.
func (p *Processor[F]) Policy() Policy {
	return Policy(p.policy.Load())
}

// SetPolicy switches the buffering policy. A new FIFO of the new capacity
// replaces the current one, discarding in-flight audio, and the engine is
// reset on the next callback. Selecting the active policy does nothing.
func (p *Processor[F]) SetPolicy(policy Policy) error {
	if !policy.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPolicy, int(policy))
	}

	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	p.reportOverruns()

	previous := p.Policy()
	if policy == previous {
		return nil
	}

	cur := p.current.Load()
	if cur == nil {
		p.policy.Store(int32(policy))
		p.stats.policyChanges.Add(1)
		p.logger().WithField("policy", policy.String()).Debug("policy set before prepare")
		return nil
	}

	cfg := cur.cfg
	cfg.Policy = policy
	next, err := newEpoch[F](cfg)
	if err != nil {
		return err
	}

	p.resetRequested.Add(1)
	p.policy.Store(int32(policy))
	p.current.Store(next)
	p.stats.policyChanges.Add(1)

	p.logger().WithFields(logrus.Fields{
		"from":            previous.String(),
		"to":              policy.String(),
		"capacity_frames": next.fifo.CapacityFrames(),
	}).Info("buffering policy changed")

	return nil
}

// Reset requests that the engine and the output FIFO be cleared together,
// e.g. on a host transport jump. It takes effect at the next callback.
func (p *Processor[F]) Reset() {
	p.reportOverruns()
	p.resetRequested.Add(1)
	p.logger().Debug("reset requested")
}

func (p *Processor[F]) resetPending() bool {
	return p.resetRequested.Load() != p.resetApplied.Load()
}

// ProcessBlock runs one host callback. input and output hold one plane per
// channel with at least frames samples each; they may share storage.
// The first frames samples of every output plane are always written.
func (p *Processor[F]) ProcessBlock(input, output [][]F, frames int) (State, error) {
	ep := p.current.Load()
	if ep == nil {
		return p.silence(output, frames), ErrNotPrepared
	}

	p.applyPending(ep)

	if err := checkPlanes(ep, input, output, frames); err != nil {
		return p.silence(output, frames), err
	}

	flat, err := ep.il.Interleave(input, frames)
	if err != nil {
		return p.silence(output, frames), err
	}
	if err := p.engine.Push(flat, frames); err != nil {
		return p.silence(output, frames), fmt.Errorf("%w: push: %w", ErrEngine, err)
	}

	p.drain(ep)

	if ep.fifo.ReadyFrames() < frames {
		for ch := range output {
			copy(output[ch][:frames], input[ch][:frames])
		}
		p.stats.record(StatePassthrough)
		return StatePassthrough, nil
	}

	out := ep.outBuf[:frames*ep.cfg.Channels]
	clear(out)
	if err := ep.fifo.ReadFrames(out, frames); err != nil {
		return p.silence(output, frames), err
	}
	if err := ep.il.Deinterleave(out, frames, output); err != nil {
		return p.silence(output, frames), err
	}

	p.stats.record(StateProcessed)
	return StateProcessed, nil
}

// Process is the in-place form of ProcessBlock.
func (p *Processor[F]) Process(buf [][]F, frames int) (State, error) {
	return p.ProcessBlock(buf, buf, frames)
}

// applyPending carries out requested resets and forwards changed ratios.
func (p *Processor[F]) applyPending(ep *epoch[F]) {
	if req := p.resetRequested.Load(); req != p.resetApplied.Load() {
		p.engine.Reset()
		ep.fifo.Reset()
		p.resetApplied.Store(req)
	}
	p.sendRatios()
}

func (p *Processor[F]) sendRatios() {
	if v := p.pitch.load(); v != p.sentPitch {
		p.engine.SetPitchRatio(v)
		p.sentPitch = v
	}
	if v := p.tempo.load(); v != p.sentTempo {
		p.engine.SetTempoRatio(v)
		p.sentTempo = v
	}
	if v := p.rate.load(); v != p.sentRate {
		p.engine.SetRateRatio(v)
		p.sentRate = v
	}
}

// drain moves everything the engine has produced into the FIFO. Frames that
// do not fit are dropped.
func (p *Processor[F]) drain(ep *epoch[F]) {
	ch := ep.cfg.Channels
	for {
		n := p.engine.Drain(ep.drainBuf, ep.drainChunk)
		if n <= 0 {
			return
		}
		written := ep.fifo.Write(ep.drainBuf[:n*ch]) / ch
		if dropped := n - written; dropped > 0 {
			p.overrun(dropped)
		}
	}
}

func (p *Processor[F]) overrun(dropped int) {
	p.stats.dropped.Add(uint64(dropped))
}

// reportOverruns logs frames dropped since the last report, at most once per
// second. Control side only; the audio goroutine only counts.
func (p *Processor[F]) reportOverruns() {
	total := p.stats.dropped.Load()
	reported := p.reportedDropped.Load()
	if total == reported || !p.overrunLimiter.Allow() {
		return
	}
	if !p.reportedDropped.CompareAndSwap(reported, total) {
		return
	}

	fields := logrus.Fields{
		"dropped_frames": total - reported,
		"total_dropped":  total,
		"policy":         p.Policy().String(),
	}
	if ep := p.current.Load(); ep != nil {
		fields["capacity_frames"] = ep.fifo.CapacityFrames()
	}
	p.logger().WithFields(fields).Warn("output FIFO overrun, discarded engine output")
}

// silence zeroes whatever part of output[:frames] exists.
func (p *Processor[F]) silence(output [][]F, frames int) State {
	if frames > 0 {
		for _, plane := range output {
			clear(plane[:min(frames, len(plane))])
		}
	}
	p.stats.record(StateSilenced)
	return StateSilenced
}

func checkPlanes[F Float](ep *epoch[F], input, output [][]F, frames int) error {
	if len(output) != ep.cfg.Channels {
		return fmt.Errorf("%w: %d output planes, want %d", ErrGeometryMismatch, len(output), ep.cfg.Channels)
	}
	// Hosts may call back with fewer frames than prepared, never more.
	if frames < 0 || frames > ep.cfg.BlockSize {
		return fmt.Errorf("%w: %d frames, block size %d", ErrGeometryMismatch, frames, ep.cfg.BlockSize)
	}
	for ch, plane := range output {
		if len(plane) < frames {
			return fmt.Errorf("%w: output channel %d holds %d frames, need %d",
				ErrGeometryMismatch, ch, len(plane), frames)
		}
	}
	// Input planes are checked by the interleaver.
	if len(input) != ep.cfg.Channels {
		return fmt.Errorf("%w: %d input planes, want %d", ErrGeometryMismatch, len(input), ep.cfg.Channels)
	}
	return nil
}

// ReadyFrames returns the processed frames waiting in the output FIFO.
func (p *Processor[F]) ReadyFrames() int {
	ep := p.current.Load()
	if ep == nil {
		return 0
	}
	return ep.fifo.ReadyFrames()
}

// CapacityFrames returns the output FIFO capacity for the active policy.
func (p *Processor[F]) CapacityFrames() int {
	ep := p.current.Load()
	if ep == nil {
		return 0
	}
	return ep.fifo.CapacityFrames()
}

// Stats returns a snapshot of the processor counters and buffer state.
// Overruns counted since the previous call are logged at warn level.
func (p *Processor[F]) Stats() Stats {
	p.reportOverruns()
	return Stats{
		Blocks:            p.stats.blocks.Load(),
		ProcessedBlocks:   p.stats.processed.Load(),
		PassthroughBlocks: p.stats.passthrough.Load(),
		SilencedBlocks:    p.stats.silenced.Load(),
		DroppedFrames:     p.stats.dropped.Load(),
		PolicyChanges:     p.stats.policyChanges.Load(),
		ReadyFrames:       p.ReadyFrames(),
		CapacityFrames:    p.CapacityFrames(),
		LatencyFrames:     p.TotalLatencyFrames(),
		Policy:            p.Policy(),
		LastState:         State(p.stats.lastState.Load()),
	}
}
