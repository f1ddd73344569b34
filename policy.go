package stretcher

import (
	"fmt"
	"strconv"
	"strings"
)

// Policy selects how much processed audio the output FIFO can hold. Deeper
// buffering absorbs burstier engines at the cost of memory and a longer
// flush on reconfiguration.
type Policy int

const (
	// PolicyMinimal holds max(4096, 8×block) frames.
	PolicyMinimal Policy = iota + 1

	// PolicyNormal holds max(16384, 32×block) frames. This is the default.
	PolicyNormal

	// PolicyExtra holds max(32768, 64×block) frames.
	PolicyExtra
)

// DefaultPolicy is used when nothing else was selected.
const DefaultPolicy = PolicyNormal

// Policies lists every valid policy from shallowest to deepest.
func Policies() []Policy {
	return []Policy{PolicyMinimal, PolicyNormal, PolicyExtra}
}

// Valid reports whether p is one of the defined policies.
func (p Policy) Valid() bool {
	return p >= PolicyMinimal && p <= PolicyExtra
}

// CapacityFrames returns the FIFO capacity in frames for a host block size.
// It returns 0 for an invalid policy.
func (p Policy) CapacityFrames(blockSize int) int {
	switch p {
	case PolicyMinimal:
		return max(minimalFloorFrames, minimalMultiplier*blockSize)
	case PolicyNormal:
		return max(normalFloorFrames, normalMultiplier*blockSize)
	case PolicyExtra:
		return max(extraFloorFrames, extraMultiplier*blockSize)
	default:
		return 0
	}
}

// String returns the lower-case policy name.
func (p Policy) String() string {
	switch p {
	case PolicyMinimal:
		return "minimal"
	case PolicyNormal:
		return "normal"
	case PolicyExtra:
		return "extra"
	default:
		return "Policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParsePolicy accepts a policy name (case-insensitive) or the legacy
// persisted index 1, 2 or 3.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "1":
		return PolicyMinimal, nil
	case "normal", "2":
		return PolicyNormal, nil
	case "extra", "3":
		return PolicyExtra, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPolicy, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
