package stretcher

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Settings is the persisted, host-restorable state of a processor.
type Settings struct {
	Policy         Policy  `yaml:"policy"`
	PitchSemitones float64 `yaml:"pitch_semitones"`
	TempoPercent   float64 `yaml:"tempo_percent"`
	RatePercent    float64 `yaml:"rate_percent"`
}

// DefaultSettings returns Normal buffering at unity pitch, tempo and rate.
func DefaultSettings() Settings {
	return Settings{Policy: DefaultPolicy}
}

// Validate checks every field against its range.
func (s Settings) Validate() error {
	if !s.Policy.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPolicy, int(s.Policy))
	}
	return errors.Join(
		ValidateSemitones(s.PitchSemitones),
		ValidatePercent(s.TempoPercent),
		ValidatePercent(s.RatePercent),
	)
}

// MarshalSettings encodes s as YAML.
func MarshalSettings(s Settings) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return yaml.Marshal(s)
}

// UnmarshalSettings decodes YAML produced by MarshalSettings. Missing fields
// keep their defaults, so an empty document yields DefaultSettings.
func UnmarshalSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// MarshalYAML encodes the policy by name.
func (p Policy) MarshalYAML() (any, error) {
	text, err := p.MarshalText()
	if err != nil {
		return nil, err
	}
	return string(text), nil
}

// UnmarshalYAML accepts a policy name or a legacy index.
func (p *Policy) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected a scalar", ErrInvalidPolicy, value.Line)
	}
	return p.UnmarshalText([]byte(value.Value))
}

// Settings returns the processor's current persisted state.
func (p *Processor[F]) Settings() Settings {
	return Settings{
		Policy:         p.Policy(),
		PitchSemitones: p.PitchSemitones(),
		TempoPercent:   p.TempoPercent(),
		RatePercent:    p.RatePercent(),
	}
}

// ApplySettings restores persisted state. Nothing is applied unless every
// field is valid.
func (p *Processor[F]) ApplySettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := p.SetPolicy(s.Policy); err != nil {
		return err
	}

	p.pitch.store(SemitonesToRatio(s.PitchSemitones))
	p.tempo.store(PercentToRatio(s.TempoPercent))
	p.rate.store(PercentToRatio(s.RatePercent))

	p.logger().WithField("settings", s.String()).Debug("settings applied")
	return nil
}

// String renders the settings for logs and the command line.
func (s Settings) String() string {
	return fmt.Sprintf("policy=%s pitch=%s tempo=%s rate=%s",
		s.Policy, FormatSemitones(s.PitchSemitones),
		FormatPercent(s.TempoPercent), FormatPercent(s.RatePercent))
}
