// Command stretch-wav renders a WAV file through the real-time stretch
// processor, feeding it one host-sized block at a time the way an audio
// callback would.
//
// Usage:
//
//	stretch-wav --pitch 12 input.wav output.wav
//	stretch-wav --pitch -3 --policy extra --block-size 256 input.wav output.wav
//	stretch-wav --precision 32 --analyze input.wav output.wav
//	STRETCH_PITCH=7 stretch-wav input.wav output.wav
//	stretch-wav --config settings.yaml input.wav output.wav
//
// Every flag can also be set through a STRETCH_ environment variable
// (dashes become underscores) or a key of the same name in a YAML config file.
// Flags take precedence over the environment, which takes precedence over the file.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	stretcher "github.com/tphakala/go-audio-stretcher"
)

const (
	// Flag and config keys
	flagConfig    = "config"
	flagPitch     = "pitch"
	flagTempo     = "tempo"
	flagRate      = "rate"
	flagPolicy    = "policy"
	flagBlockSize = "block-size"
	flagPrecision = "precision"
	flagVerbose   = "verbose"
	flagAnalyze   = "analyze"
	flagTail      = "tail"

	envPrefix = "STRETCH"

	// Float precision choices
	precision32 = 32
	precision64 = 64

	// Sample format constants
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	// Full-scale values for signed PCM
	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0

	wavFormatPCM = 1
	bitsPerByte  = 8

	// Progress reporting
	progressInterval = 10
	percentScale     = 100

	// Spectral check window, taken after the processor has settled
	analysisFrames    = 16384
	analysisSettleSec = 0.25

	msPerSecond = 1000
)

func main() {
	if err := newRootCommand(viper.New()).Execute(); err != nil {
		os.Exit(1)
	}
}

// options is the fully resolved command configuration.
type options struct {
	input     string
	output    string
	settings  stretcher.Settings
	blockSize int
	precision int
	verbose   bool
	analyze   bool
	tail      bool
}

func newRootCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stretch-wav [flags] input.wav output.wav",
		Short: "Render a WAV file through the real-time stretch processor",
		Long: `Render a WAV file block by block through the stretch processor, applying
pitch, tempo and rate changes with the selected output buffering policy.
Blocks for which the processor has too little output are passed through unchanged,
exactly as they would be in a live host.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd, v, args)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), opts.verbose)
			return render(opts, logger, cmd.OutOrStdout())
		},
	}

	setupFlags(cmd)

	return cmd
}

// setupFlags defines the command line flags.
func setupFlags(cmd *cobra.Command) {
	defaults := stretcher.DefaultSettings()

	cmd.Flags().String(flagConfig, "", "Path to a YAML config file")
	cmd.Flags().Float64P(flagPitch, "p", defaults.PitchSemitones, "Pitch shift in semitones (-39.8 to +39.8)")
	cmd.Flags().Float64P(flagTempo, "t", defaults.TempoPercent, "Tempo change in percent (-90 to +900)")
	cmd.Flags().Float64P(flagRate, "r", defaults.RatePercent, "Rate change in percent (-90 to +900)")
	cmd.Flags().String(flagPolicy, defaults.Policy.String(), "Output buffering policy: minimal, normal, extra")
	cmd.Flags().IntP(flagBlockSize, "b", stretcher.BlockMedium, "Host block size in frames")
	cmd.Flags().Int(flagPrecision, precision64, "Float precision: 32 or 64")
	cmd.Flags().BoolP(flagVerbose, "v", false, "Verbose output")
	cmd.Flags().Bool(flagAnalyze, false, "Report the dominant frequency of input and output")
	cmd.Flags().Bool(flagTail, true, "Render extra silent blocks to flush the processor latency")
}

// loadOptions merges flags, environment and the optional config file.
func loadOptions(cmd *cobra.Command, v *viper.Viper, args []string) (*options, error) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString(flagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	policy, err := stretcher.ParsePolicy(v.GetString(flagPolicy))
	if err != nil {
		return nil, err
	}

	opts := &options{
		input:  args[0],
		output: args[1],
		settings: stretcher.Settings{
			Policy:         policy,
			PitchSemitones: v.GetFloat64(flagPitch),
			TempoPercent:   v.GetFloat64(flagTempo),
			RatePercent:    v.GetFloat64(flagRate),
		},
		blockSize: v.GetInt(flagBlockSize),
		precision: v.GetInt(flagPrecision),
		verbose:   v.GetBool(flagVerbose),
		analyze:   v.GetBool(flagAnalyze),
		tail:      v.GetBool(flagTail),
	}

	if err := opts.settings.Validate(); err != nil {
		return nil, err
	}
	if opts.blockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", opts.blockSize)
	}
	if opts.precision != precision32 && opts.precision != precision64 {
		return nil, fmt.Errorf("precision must be %d or %d, got %d", precision32, precision64, opts.precision)
	}

	return opts, nil
}

// newLogger builds the logger shared by the command and the processor.
func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}

// render processes the file at the requested precision and prints a summary.
func render(opts *options, logger *logrus.Logger, out io.Writer) error {
	logger.WithFields(logrus.Fields{
		"input":     opts.input,
		"output":    opts.output,
		"settings":  opts.settings.String(),
		"blockSize": opts.blockSize,
		"precision": opts.precision,
	}).Debug("rendering")

	start := time.Now()
	var (
		summary *renderSummary
		err     error
	)
	if opts.precision == precision32 {
		summary, err = renderWAV[float32](opts, logger)
	} else {
		summary, err = renderWAV[float64](opts, logger)
	}
	if err != nil {
		return err
	}

	printSummary(out, opts, summary, time.Since(start))
	return nil
}

// renderSummary collects what the render loop observed.
type renderSummary struct {
	rate        int
	channels    int
	bitDepth    int
	inputFrames int64
	tailFrames  int64
	transitions int
	latency     int
	stats       stretcher.Stats

	analyzed     bool
	inputHz      float64
	outputHz     float64
	analysisNote string
}

func renderWAV[F stretcher.Float](opts *options, logger *logrus.Logger) (summary *renderSummary, err error) {
	// 1. Open and validate input
	input, err := openWAVInput(opts.input, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = input.Close() }()

	// 2. Prepare the processor as a host would
	proc, err := stretcher.New(&stretcher.Config{
		SampleRate: float64(input.rate),
		BlockSize:  opts.blockSize,
		Channels:   input.channels,
		Policy:     opts.settings.Policy,
		Logger:     logger,
	}, stretcher.NewStretchEngine[F]())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare processor: %w", err)
	}
	if err := proc.ApplySettings(opts.settings); err != nil {
		return nil, err
	}

	// 3. Create output writer
	output, err := createWAVOutput(opts.output, input.rate, input.bitDepth, input.channels)
	if err != nil {
		return nil, err
	}
	// Close output, capturing close errors on success path (the encoder patches the header)
	defer func() {
		if closeErr := output.Close(); err == nil {
			err = closeErr
		}
	}()

	// 4. Initialize block buffers
	buffers, err := newBlockBuffers[F](input.channels, opts.blockSize, input.bitDepth, input.format)
	if err != nil {
		return nil, err
	}

	summary = &renderSummary{
		rate:     input.rate,
		channels: input.channels,
		bitDepth: input.bitDepth,
	}
	host := &hostLoop[F]{
		proc:     proc,
		buffers:  buffers,
		output:   output,
		summary:  summary,
		logger:   logger,
		progress: newProgressTracker(input.totalFrames, logger),
		last:     -1,
	}
	if opts.analyze {
		settle := int(float64(input.rate) * analysisSettleSec)
		host.capture = newAnalysisCapture[F](settle, analysisFrames)
	}

	// 5. Main block loop
	if err := host.run(input); err != nil {
		return nil, err
	}
	summary.latency = proc.TotalLatencyFrames()

	// 6. Flush the latency with silence
	if opts.tail {
		if err := host.flush(summary.latency); err != nil {
			return nil, err
		}
	}

	summary.stats = proc.Stats()
	if host.capture != nil {
		host.capture.report(summary, float64(input.rate))
	}

	return summary, nil
}

func printSummary(w io.Writer, opts *options, s *renderSummary, elapsed time.Duration) {
	_, _ = fmt.Fprintf(w, "Rendered %s -> %s\n", filepath.Base(opts.input), filepath.Base(opts.output))
	_, _ = fmt.Fprintf(w, "  %d Hz, %d channels, %d-bit, block %d frames, policy %s\n",
		s.rate, s.channels, s.bitDepth, opts.blockSize, opts.settings.Policy)
	_, _ = fmt.Fprintf(w, "  pitch %s, tempo %s, rate %s\n",
		stretcher.FormatSemitones(opts.settings.PitchSemitones),
		stretcher.FormatPercent(opts.settings.TempoPercent),
		stretcher.FormatPercent(opts.settings.RatePercent))
	_, _ = fmt.Fprintf(w, "  %d frames in, %d tail frames\n", s.inputFrames, s.tailFrames)
	_, _ = fmt.Fprintf(w, "  blocks: %d (processed %d, passthrough %d, silenced %d), state changes: %d\n",
		s.stats.Blocks, s.stats.ProcessedBlocks, s.stats.PassthroughBlocks, s.stats.SilencedBlocks, s.transitions)
	_, _ = fmt.Fprintf(w, "  dropped frames: %d, FIFO capacity: %d frames\n",
		s.stats.DroppedFrames, s.stats.CapacityFrames)
	_, _ = fmt.Fprintf(w, "  latency: %d frames (%.2f ms)\n",
		s.latency, float64(s.latency)/float64(s.rate)*msPerSecond)
	if seconds := elapsed.Seconds(); seconds > 0 {
		_, _ = fmt.Fprintf(w, "  Duration: %.2fs, Speed: %.1fx realtime\n",
			seconds, float64(s.inputFrames)/float64(s.rate)/seconds)
	}
	if s.analyzed {
		_, _ = fmt.Fprintf(w, "  analysis: input %.1f Hz, output %.1f Hz\n", s.inputHz, s.outputHz)
	} else if s.analysisNote != "" {
		_, _ = fmt.Fprintf(w, "  analysis: %s\n", s.analysisNote)
	}
}
