package stretcher

// Common sample rates for convenience functions.
const (
	// RateCD is the CD quality sample rate (Red Book standard).
	RateCD = 44100

	// RateDAT is the DAT/DVD and video production sample rate.
	RateDAT = 48000

	// RateHiRes88 is the high-resolution 2x CD sample rate.
	RateHiRes88 = 88200

	// RateHiRes96 is the high-resolution 2x DAT sample rate.
	RateHiRes96 = 96000

	// RateHiRes192 is the very high resolution 4x DAT sample rate.
	RateHiRes192 = 192000
)

// Common host block sizes in frames.
const (
	BlockSmall  = 128
	BlockMedium = 512
	BlockLarge  = 2048
)

// NewMono creates a prepared mono processor backed by the stretch engine.
func NewMono[F Float](sampleRate float64, blockSize int) (*Processor[F], error) {
	return NewMultiChannel[F](sampleRate, blockSize, 1)
}

// NewStereo creates a prepared stereo processor backed by the stretch engine.
func NewStereo[F Float](sampleRate float64, blockSize int) (*Processor[F], error) {
	return NewMultiChannel[F](sampleRate, blockSize, 2)
}

// NewMultiChannel creates a prepared processor for channels channels backed
// by the stretch engine, using the Normal policy.
func NewMultiChannel[F Float](sampleRate float64, blockSize, channels int) (*Processor[F], error) {
	return New(&Config{
		SampleRate: sampleRate,
		BlockSize:  blockSize,
		Channels:   channels,
		Policy:     DefaultPolicy,
	}, NewStretchEngine[F]())
}
