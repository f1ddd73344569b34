package stretcher

// Stream limits
const (
	maxChannels   = 256     // Maximum supported channel count
	maxBlockSize  = 1 << 16 // Largest host block in frames
	minSampleRate = 1000.0
	maxSampleRate = 768000.0
)

// defaultDrainBlocks is the default Engine.Drain request in host blocks.
const defaultDrainBlocks = 2

// FIFO capacity per policy: max(floor, multiplier × block size) frames.
const (
	minimalFloorFrames = 4096
	minimalMultiplier  = 8

	normalFloorFrames = 16384
	normalMultiplier  = 32

	extraFloorFrames = 32768
	extraMultiplier  = 64
)

// Parameter ranges
const (
	minPitchSemitones = -39.8
	maxPitchSemitones = 39.8

	minPercent = -90.0
	maxPercent = 900.0

	semitonesPerOctave = 12.0
	percentScale       = 100.0
)

// Display rounding: values closer to zero than these print as zero.
const (
	semitoneZeroThreshold = 0.005
	percentZeroThreshold  = 0.05
)

// Overrun warnings are limited to one per second.
const overrunLogBurst = 1
