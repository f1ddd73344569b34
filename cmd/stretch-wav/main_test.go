package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stretcher "github.com/tphakala/go-audio-stretcher"
	"github.com/tphakala/go-audio-stretcher/internal/testutil"
)

// parseOptions resolves options the way RunE does, from flags only.
func parseOptions(t *testing.T, flags ...string) (*options, error) {
	t.Helper()
	v := viper.New()
	cmd := newRootCommand(v)
	require.NoError(t, cmd.ParseFlags(flags))
	return loadOptions(cmd, v, []string{"in.wav", "out.wav"})
}

func TestLoadOptions_Defaults(t *testing.T) {
	opts, err := parseOptions(t)
	require.NoError(t, err)

	assert.Equal(t, "in.wav", opts.input)
	assert.Equal(t, "out.wav", opts.output)
	assert.Equal(t, stretcher.DefaultSettings(), opts.settings)
	assert.Equal(t, stretcher.BlockMedium, opts.blockSize)
	assert.Equal(t, precision64, opts.precision)
	assert.False(t, opts.verbose)
	assert.False(t, opts.analyze)
	assert.True(t, opts.tail)
}

func TestLoadOptions_Flags(t *testing.T) {
	opts, err := parseOptions(t,
		"--pitch", "-3.5", "--tempo", "20", "-r", "-10",
		"--policy", "extra", "-b", "256", "--precision", "32",
		"-v", "--analyze", "--tail=false",
	)
	require.NoError(t, err)

	assert.InDelta(t, -3.5, opts.settings.PitchSemitones, 0)
	assert.InDelta(t, 20, opts.settings.TempoPercent, 0)
	assert.InDelta(t, -10, opts.settings.RatePercent, 0)
	assert.Equal(t, stretcher.PolicyExtra, opts.settings.Policy)
	assert.Equal(t, 256, opts.blockSize)
	assert.Equal(t, precision32, opts.precision)
	assert.True(t, opts.verbose)
	assert.True(t, opts.analyze)
	assert.False(t, opts.tail)
}

func TestLoadOptions_Environment(t *testing.T) {
	t.Setenv("STRETCH_PITCH", "7")
	t.Setenv("STRETCH_BLOCK_SIZE", "128")
	t.Setenv("STRETCH_POLICY", "1")

	opts, err := parseOptions(t)
	require.NoError(t, err)
	assert.InDelta(t, 7, opts.settings.PitchSemitones, 0)
	assert.Equal(t, 128, opts.blockSize)
	assert.Equal(t, stretcher.PolicyMinimal, opts.settings.Policy)

	// Flags win over the environment.
	opts, err = parseOptions(t, "--pitch", "2")
	require.NoError(t, err)
	assert.InDelta(t, 2, opts.settings.PitchSemitones, 0)
}

func TestLoadOptions_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pitch: -5\ntempo: 50\npolicy: minimal\nblock-size: 1024\n"), 0o644))

	opts, err := parseOptions(t, "--config", path, "--tempo", "10")
	require.NoError(t, err)
	assert.InDelta(t, -5, opts.settings.PitchSemitones, 0)
	assert.InDelta(t, 10, opts.settings.TempoPercent, 0)
	assert.Equal(t, stretcher.PolicyMinimal, opts.settings.Policy)
	assert.Equal(t, 1024, opts.blockSize)
}

func TestLoadOptions_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		flags   []string
		wantErr error
	}{
		{"pitch out of range", []string{"--pitch", "50"}, stretcher.ErrInvalidParameter},
		{"tempo out of range", []string{"--tempo", "-95"}, stretcher.ErrInvalidParameter},
		{"unknown policy", []string{"--policy", "huge"}, stretcher.ErrInvalidPolicy},
		{"zero block size", []string{"--block-size", "0"}, nil},
		{"bad precision", []string{"--precision", "16"}, nil},
		{"missing config file", []string{"--config", "/nonexistent/settings.yaml"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseOptions(t, tt.flags...)
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRootCommand_RequiresTwoArguments(t *testing.T) {
	cmd := newRootCommand(viper.New())
	cmd.SetArgs([]string{"only-one.wav"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	require.Error(t, cmd.Execute())
}

func TestRootCommand_RendersFile(t *testing.T) {
	const (
		rate   = 44100
		frames = rate / 2
	)
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	outPath := filepath.Join(dir, "out.wav")
	writeTestWAV(t, inPath, rate, 16, 2, frames, 440)

	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(viper.New())
	cmd.SetArgs([]string{"--pitch", "3", "--block-size", "256", inPath, outPath})
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	require.NoError(t, cmd.Execute(), stderr.String())

	assert.Contains(t, stdout.String(), "Rendered in.wav -> out.wav")
	assert.Contains(t, stdout.String(), "pitch +3.00 st")

	out := readTestWAV(t, outPath)
	assert.Equal(t, rate, out.Format.SampleRate)
	assert.Equal(t, 2, out.Format.NumChannels)
	assert.GreaterOrEqual(t, out.NumFrames(), frames)
}

func TestRenderWAV_Summary(t *testing.T) {
	const rate = 48000
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	writeTestWAV(t, inPath, rate, 24, 1, 2*rate, 440)

	opts := &options{
		input:     inPath,
		output:    filepath.Join(dir, "out.wav"),
		settings:  stretcher.Settings{Policy: stretcher.PolicyNormal, PitchSemitones: 12},
		blockSize: stretcher.BlockMedium,
		precision: precision64,
		analyze:   true,
		tail:      true,
	}
	summary, err := renderWAV[float64](opts, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, int64(2*rate), summary.inputFrames)
	assert.Equal(t, int64(summary.latency), summary.tailFrames)
	assert.Positive(t, summary.stats.ProcessedBlocks)
	assert.Positive(t, summary.stats.PassthroughBlocks, "cold start passes through")
	assert.Zero(t, summary.stats.SilencedBlocks)

	require.True(t, summary.analyzed, summary.analysisNote)
	testutil.AssertRelativeError(t, 440, summary.inputHz, testutil.FrequencyTolerance)
	testutil.AssertRelativeError(t, 880, summary.outputHz, testutil.FrequencyTolerance)

	out := readTestWAV(t, opts.output)
	assert.Equal(t, 2*rate+summary.latency, out.NumFrames())
}

func TestRenderWAV_Float32NoTail(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.wav")
	writeTestWAV(t, inPath, 22050, 16, 2, 5000, 300)

	opts := &options{
		input:     inPath,
		output:    filepath.Join(dir, "out.wav"),
		settings:  stretcher.DefaultSettings(),
		blockSize: stretcher.BlockSmall,
		precision: precision32,
	}
	summary, err := renderWAV[float32](opts, quietLogger())
	require.NoError(t, err)
	assert.Zero(t, summary.tailFrames)

	out := readTestWAV(t, opts.output)
	assert.Equal(t, 5000, out.NumFrames())
}

func TestPrintSummary(t *testing.T) {
	opts := &options{
		input:     "/tmp/a.wav",
		output:    "/tmp/b.wav",
		settings:  stretcher.Settings{Policy: stretcher.PolicyExtra, TempoPercent: 25},
		blockSize: 512,
	}
	s := &renderSummary{
		rate:     48000,
		channels: 2,
		bitDepth: 16,
		latency:  480,
		analyzed: true,
		inputHz:  440,
		outputHz: 880,
	}

	var buf bytes.Buffer
	printSummary(&buf, opts, s, 0)
	got := buf.String()
	assert.Contains(t, got, "Rendered a.wav -> b.wav")
	assert.Contains(t, got, "policy extra")
	assert.Contains(t, got, "tempo +25.0%")
	assert.Contains(t, got, "latency: 480 frames (10.00 ms)")
	assert.Contains(t, got, "analysis: input 440.0 Hz, output 880.0 Hz")
	assert.NotContains(t, got, "Speed")
}
