package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	stretcher "github.com/tphakala/go-audio-stretcher"
	"github.com/tphakala/go-audio-stretcher/internal/analysis"
)

var (
	errUnsupportedFormat   = errors.New("unsupported WAV format")
	errUnsupportedBitDepth = errors.New("unsupported bit depth")
)

// wavInput holds validated input file information.
type wavInput struct {
	file        *os.File
	decoder     *wav.Decoder
	rate        int
	channels    int
	bitDepth    int
	totalFrames int64
	format      *audio.Format
}

// openWAVInput opens and validates a PCM WAV file, returning format information.
func openWAVInput(path string, logger *logrus.Logger) (*wavInput, error) {
	inputFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	decoder := wav.NewDecoder(inputFile)
	if !decoder.IsValidFile() {
		_ = inputFile.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	format := decoder.Format()
	bitDepth := int(decoder.BitDepth)
	if decoder.WavAudioFormat != wavFormatPCM {
		_ = inputFile.Close()
		return nil, fmt.Errorf("%w: audio format %d, only PCM is supported", errUnsupportedFormat, decoder.WavAudioFormat)
	}
	if _, err := fullScale(bitDepth); err != nil {
		_ = inputFile.Close()
		return nil, err
	}

	// Frame count from the PCM chunk size; Duration is rounded.
	if err := decoder.FwdToPCM(); err != nil {
		_ = inputFile.Close()
		return nil, fmt.Errorf("failed to locate PCM data: %w", err)
	}
	totalFrames := pcmFrames(decoder.PCMLen(), format.NumChannels, bitDepth)

	logger.WithFields(logrus.Fields{
		"rate":     format.SampleRate,
		"channels": format.NumChannels,
		"bitDepth": bitDepth,
		"frames":   totalFrames,
	}).Debug("input format")

	return &wavInput{
		file:        inputFile,
		decoder:     decoder,
		rate:        format.SampleRate,
		channels:    format.NumChannels,
		bitDepth:    bitDepth,
		totalFrames: totalFrames,
		format:      format,
	}, nil
}

// pcmFrames converts a PCM chunk size in bytes to whole frames.
func pcmFrames(pcmBytes int64, channels, bitDepth int) int64 {
	frameBytes := int64(channels * bitDepth / bitsPerByte)
	if frameBytes <= 0 {
		return 0
	}
	return pcmBytes / frameBytes
}

// Close closes the input file.
func (w *wavInput) Close() error {
	return w.file.Close()
}

// wavOutputWriter wraps the output file and its encoder.
type wavOutputWriter struct {
	file    *os.File
	encoder *wav.Encoder
}

// createWAVOutput creates the output file and a PCM encoder for it.
func createWAVOutput(path string, sampleRate, bitDepth, channels int) (*wavOutputWriter, error) {
	outputFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &wavOutputWriter{
		file:    outputFile,
		encoder: wav.NewEncoder(outputFile, sampleRate, bitDepth, channels, wavFormatPCM),
	}, nil
}

// Write appends interleaved samples to the output file.
func (w *wavOutputWriter) Write(buf *audio.IntBuffer) error {
	if err := w.encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	return nil
}

// Close finalizes the WAV header and closes the file.
func (w *wavOutputWriter) Close() error {
	if err := w.encoder.Close(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return w.file.Close()
}

// fullScale returns the maximum sample value for the given bit depth.
func fullScale(bitDepth int) (float64, error) {
	switch bitDepth {
	case bitsPerSample16:
		return maxInt16, nil
	case bitsPerSample24:
		return maxInt24, nil
	case bitsPerSample32:
		return maxInt32, nil
	default:
		return 0, fmt.Errorf("%w: %d-bit", errUnsupportedBitDepth, bitDepth)
	}
}

// blockBuffers holds all preallocated buffers for one host callback.
type blockBuffers[F stretcher.Float] struct {
	channels  int
	blockSize int
	in        *audio.IntBuffer
	out       *audio.IntBuffer
	input     [][]F
	output    [][]F
	scale     float64
	invScale  float64
}

// newBlockBuffers preallocates the PCM and planar buffers for blockSize frames.
func newBlockBuffers[F stretcher.Float](channels, blockSize, bitDepth int, format *audio.Format) (*blockBuffers[F], error) {
	scale, err := fullScale(bitDepth)
	if err != nil {
		return nil, err
	}

	input := make([][]F, channels)
	output := make([][]F, channels)
	for ch := range channels {
		input[ch] = make([]F, blockSize)
		output[ch] = make([]F, blockSize)
	}

	return &blockBuffers[F]{
		channels:  channels,
		blockSize: blockSize,
		in: &audio.IntBuffer{
			Data:           make([]int, blockSize*channels),
			Format:         format,
			SourceBitDepth: bitDepth,
		},
		out: &audio.IntBuffer{
			Data:           make([]int, blockSize*channels),
			Format:         format,
			SourceBitDepth: bitDepth,
		},
		input:    input,
		output:   output,
		scale:    scale,
		invScale: 1.0 / scale,
	}, nil
}

// intsToPlanar converts interleaved PCM into the first frames samples of dst.
func intsToPlanar[F stretcher.Float](data []int, dst [][]F, frames int, invScale float64) {
	channels := len(dst)
	if channels == 1 {
		buf := dst[0]
		for i := range frames {
			buf[i] = F(float64(data[i]) * invScale)
		}
		return
	}

	for i := range frames {
		base := i * channels
		for ch := range channels {
			dst[ch][i] = F(float64(data[base+ch]) * invScale)
		}
	}
}

// planarToInts converts the first frames samples of src into clamped
// interleaved PCM. Returns the number of elements written.
func planarToInts[F stretcher.Float](src [][]F, frames int, dst []int, scale float64) int {
	channels := len(src)
	total := frames * channels
	if len(dst) < total {
		return 0
	}

	for i := range frames {
		base := i * channels
		for ch := range channels {
			sample := float64(src[ch][i])
			if sample > 1.0 {
				sample = 1.0
			} else if sample < -1.0 {
				sample = -1.0
			}
			dst[base+ch] = int(sample * scale)
		}
	}
	return total
}

// progressTracker handles progress reporting.
type progressTracker struct {
	totalFrames  int64
	lastProgress int
	logger       *logrus.Logger
}

// newProgressTracker creates a new progress tracker.
func newProgressTracker(totalFrames int64, logger *logrus.Logger) *progressTracker {
	return &progressTracker{
		totalFrames: totalFrames,
		logger:      logger,
	}
}

// reportIfNeeded reports progress if threshold crossed.
func (p *progressTracker) reportIfNeeded(currentFrames int64) {
	if p.totalFrames == 0 || !p.logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}

	progress := int(float64(currentFrames) / float64(p.totalFrames) * percentScale)
	if progress >= p.lastProgress+progressInterval {
		p.logger.Debugf("progress: %d%%", progress)
		p.lastProgress = progress
	}
}

// pcmWriter receives rendered blocks.
type pcmWriter interface {
	Write(buf *audio.IntBuffer) error
}

// hostLoop drives the processor the way an audio callback does: one block in,
// one block of equal length out.
type hostLoop[F stretcher.Float] struct {
	proc     *stretcher.Processor[F]
	buffers  *blockBuffers[F]
	output   pcmWriter
	summary  *renderSummary
	logger   *logrus.Logger
	progress *progressTracker
	capture  *analysisCapture[F]
	last     stretcher.State
}

// run renders every block the decoder yields.
func (h *hostLoop[F]) run(input *wavInput) error {
	b := h.buffers
	for {
		b.in.Data = b.in.Data[:cap(b.in.Data)]
		n, err := input.decoder.PCMBuffer(b.in)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read audio data: %w", err)
		}
		frames := n / b.channels
		if frames == 0 {
			return nil
		}

		intsToPlanar(b.in.Data[:frames*b.channels], b.input, frames, b.invScale)
		state, err := h.step(frames)
		if err != nil {
			return err
		}
		if h.capture != nil && state == stretcher.StateProcessed {
			h.capture.add(b.input[0][:frames], b.output[0][:frames])
		}

		h.summary.inputFrames += int64(frames)
		h.progress.reportIfNeeded(h.summary.inputFrames)
	}
}

// flush renders frames of silence so buffered output reaches the file.
func (h *hostLoop[F]) flush(frames int) error {
	for _, plane := range h.buffers.input {
		clear(plane)
	}
	for remaining := frames; remaining > 0; {
		n := min(remaining, h.buffers.blockSize)
		if _, err := h.step(n); err != nil {
			return err
		}
		remaining -= n
		h.summary.tailFrames += int64(n)
	}
	return nil
}

// step processes one block already loaded into the planar input buffers.
func (h *hostLoop[F]) step(frames int) (stretcher.State, error) {
	b := h.buffers
	state, err := h.proc.ProcessBlock(b.input, b.output, frames)
	if err != nil {
		return state, fmt.Errorf("block processing failed: %w", err)
	}

	if state != h.last {
		if h.last >= 0 {
			h.summary.transitions++
		}
		h.logger.WithFields(logrus.Fields{
			"frame":         h.summary.inputFrames + h.summary.tailFrames,
			"state":         state.String(),
			"latencyFrames": h.proc.TotalLatencyFrames(),
		}).Debug("processor state changed")
		h.last = state
	}

	b.out.Data = b.out.Data[:cap(b.out.Data)]
	n := planarToInts(b.output, frames, b.out.Data, b.scale)
	b.out.Data = b.out.Data[:n]
	return state, h.output.Write(b.out)
}

// analysisCapture records channel 0 of processed blocks once the processor
// has settled.
type analysisCapture[F stretcher.Float] struct {
	settle int
	seen   int
	size   int
	input  []float64
	output []float64
}

func newAnalysisCapture[F stretcher.Float](settle, size int) *analysisCapture[F] {
	return &analysisCapture[F]{
		settle: settle,
		size:   size,
		input:  make([]float64, 0, size),
		output: make([]float64, 0, size),
	}
}

func (c *analysisCapture[F]) add(in, out []F) {
	for i := range in {
		if c.seen >= c.settle && len(c.input) < c.size {
			c.input = append(c.input, float64(in[i]))
			c.output = append(c.output, float64(out[i]))
		}
		c.seen++
	}
}

// report fills the analysis fields of s.
func (c *analysisCapture[F]) report(s *renderSummary, sampleRate float64) {
	if analysis.RMS(c.input) == 0 || analysis.RMS(c.output) == 0 {
		s.analysisNote = "skipped, signal is silent"
		return
	}
	inHz, err := analysis.DominantFrequency(c.input, sampleRate)
	if err != nil {
		s.analysisNote = fmt.Sprintf("skipped, %v", err)
		return
	}
	outHz, err := analysis.DominantFrequency(c.output, sampleRate)
	if err != nil {
		s.analysisNote = fmt.Sprintf("skipped, %v", err)
		return
	}
	s.analyzed = true
	s.inputHz = inHz
	s.outputHz = outHz
}
