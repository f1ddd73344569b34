package stretcher

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/tphakala/go-audio-stretcher/internal/engine"
	"github.com/tphakala/go-audio-stretcher/internal/fifo"
	"github.com/tphakala/go-audio-stretcher/internal/interleave"
	"github.com/tphakala/go-audio-stretcher/internal/simdops"
)

// Float is the sample type constraint: float32 or float64.
type Float = simdops.Float

// Engine is a variable-throughput audio transform. Input is pushed in
// interleaved frames; processed frames become available at a cadence the
// caller does not control.
//
// All methods except UnprocessedFrameBacklog are called from the audio
// goroutine only. UnprocessedFrameBacklog may be called concurrently from
// the control goroutine and must not block.
type Engine[F Float] interface {
	// Configure prepares the engine for a format and clears its state.
	Configure(sampleRate float64, channels int) error

	// Reset drops all buffered audio.
	Reset()

	// Push queues frames interleaved frames from samples.
	Push(samples []F, frames int) error

	// FramesAvailable returns how many frames Drain would return now.
	FramesAvailable() int

	// Drain copies up to maxFrames processed frames into dst and returns
	// the count. It never blocks; zero means nothing is ready.
	Drain(dst []F, maxFrames int) int

	// SetPitchRatio sets the frequency multiplier.
	SetPitchRatio(r float64)

	// SetTempoRatio sets the speed multiplier without changing pitch.
	SetTempoRatio(r float64)

	// SetRateRatio sets the playback rate multiplier (tempo and pitch together).
	SetRateRatio(r float64)

	// UnprocessedFrameBacklog returns the input frames the engine has
	// accepted but not yet turned into output.
	UnprocessedFrameBacklog() int
}

// Config describes the host stream a Processor is prepared for.
type Config struct {
	// SampleRate is the stream sample rate in Hz.
	SampleRate float64

	// BlockSize is the largest frame count the host passes per callback.
	BlockSize int

	// Channels is the number of planar channels per callback.
	Channels int

	// Policy selects the output buffering depth. The zero value keeps the
	// processor's current policy (Normal for a new processor).
	Policy Policy

	// DrainChunkFrames is the frame count requested per Engine.Drain call.
	// Zero selects twice BlockSize.
	DrainChunkFrames int

	// Logger receives processor diagnostics. Nil keeps the current logger
	// (logrus.StandardLogger for a new processor).
	Logger *logrus.Logger
}

// Common errors returned by the stretcher.
var (
	// ErrInvalidConfig indicates invalid configuration parameters.
	ErrInvalidConfig = errors.New("invalid stretcher configuration")

	// ErrInvalidPolicy indicates a buffering policy outside the defined set.
	ErrInvalidPolicy = errors.New("invalid buffering policy")

	// ErrInvalidParameter indicates a pitch, tempo or rate value out of range.
	ErrInvalidParameter = errors.New("parameter out of range")

	// ErrGeometryMismatch indicates callback buffers that disagree with the
	// prepared channel count or block size. The output is silenced.
	ErrGeometryMismatch = interleave.ErrGeometryMismatch

	// ErrNotPrepared indicates processing before a successful Prepare.
	ErrNotPrepared = errors.New("processor not prepared")

	// ErrEngine wraps errors returned by the transform engine.
	ErrEngine = errors.New("engine failure")

	// ErrUnderrun is reported by the output FIFO when fewer frames are ready
	// than requested. The processor handles it by passing input through.
	ErrUnderrun = fifo.ErrUnderrun
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 || math.IsNaN(c.SampleRate) || math.IsInf(c.SampleRate, 0) {
		return fmt.Errorf("%w: sample rate must be positive and finite", ErrInvalidConfig)
	}

	if c.SampleRate < minSampleRate || c.SampleRate > maxSampleRate {
		return fmt.Errorf("%w: sample rate %v outside %v-%v Hz", ErrInvalidConfig, c.SampleRate, minSampleRate, maxSampleRate)
	}

	if c.BlockSize < 1 || c.BlockSize > maxBlockSize {
		return fmt.Errorf("%w: block size must be 1-%d frames", ErrInvalidConfig, maxBlockSize)
	}

	if c.Channels < 1 {
		return fmt.Errorf("%w: channels must be at least 1", ErrInvalidConfig)
	}

	if c.Channels > maxChannels {
		return fmt.Errorf("%w: too many channels (max %d)", ErrInvalidConfig, maxChannels)
	}

	if c.Policy != 0 && !c.Policy.Valid() {
		return fmt.Errorf("%w: %w: %d", ErrInvalidConfig, ErrInvalidPolicy, int(c.Policy))
	}

	if c.DrainChunkFrames < 0 {
		return fmt.Errorf("%w: drain chunk must not be negative", ErrInvalidConfig)
	}

	return nil
}

// drainChunk returns the effective Engine.Drain request size.
func (c *Config) drainChunk() int {
	if c.DrainChunkFrames > 0 {
		return c.DrainChunkFrames
	}
	return defaultDrainBlocks * c.BlockSize
}

// Info describes an engine's algorithm and configuration.
type Info = engine.Info

// infoProvider is an optional interface for engines that can describe themselves.
type infoProvider interface {
	Info() Info
}

// EngineInfo returns information about an engine.
// If the engine implements the infoProvider interface, it returns actual values.
// Otherwise only the current backlog is reported.
func EngineInfo[F Float](e Engine[F]) Info {
	if provider, ok := e.(infoProvider); ok {
		return provider.Info()
	}

	return Info{
		Algorithm:     "unknown",
		LatencyFrames: e.UnprocessedFrameBacklog(),
		SIMD:          simdops.Info(),
	}
}
