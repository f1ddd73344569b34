package engine

// WSOLA time-stretch timing. Values match the classic SoundTouch defaults for
// music material.
const (
	sequenceMs   = 40.0
	seekWindowMs = 15.0
	overlapMs    = 8.0

	msPerSecond = 1000.0

	// Lower bounds in frames so very low sample rates still yield a usable
	// sequence (sequence > 2*overlap).
	minOverlapFrames = 4
	minSeekFrames    = 8

	// Added to the candidate energy before normalising the cross-correlation.
	correlationEpsilon = 1e-9
)

// Rate transposer constants.
const (
	// Hermite interpolation uses a 4-point window and lags the newest input
	// by two frames.
	hermitePoints       = 4
	hermiteDelayFrames  = 2
	hermiteCoeffHalf    = 0.5
	hermiteCoeffOneHalf = 1.5
	hermiteCoeffTwoHalf = 2.5

	// Anti-alias FIR used when the transposer decimates.
	antiAliasTaps        = 64
	antiAliasAttenuation = 80.0
	// Fraction of the post-decimation Nyquist kept in the passband.
	antiAliasCutoffScale = 0.95
)

// AntiAliasTaps is the length of the transposer's anti-alias FIR.
const AntiAliasTaps = antiAliasTaps

// Ratio limits applied after combining pitch with tempo and rate. The public
// parameter ranges (0.1x to 10x each) combine to at most 100x either way.
const (
	minEffectiveRatio = 0.01
	maxEffectiveRatio = 100.0
)

// Queue sizing.
const (
	// Initial stretch input capacity in multiples of one WSOLA request.
	initialQueueRequests = 4
	queueGrowthFactor    = 2
)
