package stretcher

import (
	"github.com/tphakala/go-audio-stretcher/internal/engine"
)

// NewStretchEngine returns the default engine: WSOLA time stretching
// followed by a Hermite resampling transposer. Pitch, tempo and rate are
// independent.
func NewStretchEngine[F Float]() Engine[F] {
	return engine.NewSoundStretch[F]()
}

// NewDelayEngine returns an engine that outputs its input unchanged after
// holding back frames frames. It ignores pitch, tempo and rate.
func NewDelayEngine[F Float](frames int) Engine[F] {
	return engine.NewDelay[F](frames)
}

var (
	_ Engine[float32] = (*engine.SoundStretch[float32])(nil)
	_ Engine[float64] = (*engine.SoundStretch[float64])(nil)
	_ Engine[float32] = (*engine.Delay[float32])(nil)
	_ Engine[float64] = (*engine.Delay[float64])(nil)

	_ infoProvider = (*engine.SoundStretch[float32])(nil)
	_ infoProvider = (*engine.Delay[float64])(nil)
)
