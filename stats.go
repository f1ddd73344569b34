package stretcher

import (
	"strconv"
	"sync/atomic"
)

// State reports what a callback did with the host buffers.
type State int32

const (
	// StatePassthrough means not enough processed audio was ready and the
	// input was copied to the output unchanged.
	StatePassthrough State = iota

	// StateProcessed means the output holds exactly one block of processed audio.
	StateProcessed

	// StateSilenced means the callback was aborted and the output zeroed.
	StateSilenced
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePassthrough:
		return "passthrough"
	case StateProcessed:
		return "processed"
	case StateSilenced:
		return "silenced"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Stats is a point-in-time snapshot of processor activity. Counters are
// cumulative since the processor was created.
type Stats struct {
	Blocks            uint64
	ProcessedBlocks   uint64
	PassthroughBlocks uint64
	SilencedBlocks    uint64

	// DroppedFrames counts engine output discarded because the FIFO was full.
	DroppedFrames uint64

	PolicyChanges uint64

	ReadyFrames    int
	CapacityFrames int
	LatencyFrames  int

	Policy    Policy
	LastState State
}

// StatsSource is implemented by anything that can report Stats, such as Processor.
type StatsSource interface {
	Stats() Stats
}

// counters are written by the audio goroutine and read by anyone.
type counters struct {
	blocks        atomic.Uint64
	processed     atomic.Uint64
	passthrough   atomic.Uint64
	silenced      atomic.Uint64
	dropped       atomic.Uint64
	policyChanges atomic.Uint64
	lastState     atomic.Int32
}

func (c *counters) record(s State) {
	c.blocks.Add(1)
	switch s {
	case StateProcessed:
		c.processed.Add(1)
	case StatePassthrough:
		c.passthrough.Add(1)
	case StateSilenced:
		c.silenced.Add(1)
	}
	c.lastState.Store(int32(s))
}
