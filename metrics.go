package stretcher

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsSubsystem = "stretcher"

// Collector exports processor statistics to Prometheus. It only reads Stats
// snapshots, so scraping never touches the audio path.
type Collector struct {
	src StatsSource

	blocks        *prometheus.Desc
	processed     *prometheus.Desc
	passthrough   *prometheus.Desc
	silenced      *prometheus.Desc
	dropped       *prometheus.Desc
	policyChanges *prometheus.Desc

	ready    *prometheus.Desc
	capacity *prometheus.Desc
	latency  *prometheus.Desc
}

// NewCollector creates a collector for src. Register it with a
// prometheus.Registerer.
func NewCollector(namespace string, src StatsSource) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, metricsSubsystem, name), help, nil, nil)
	}

	return &Collector{
		src:           src,
		blocks:        desc("blocks_total", "Host callbacks handled."),
		processed:     desc("processed_blocks_total", "Callbacks that returned processed audio."),
		passthrough:   desc("passthrough_blocks_total", "Callbacks that passed input through while the FIFO filled."),
		silenced:      desc("silenced_blocks_total", "Callbacks aborted with silenced output."),
		dropped:       desc("dropped_frames_total", "Engine output frames discarded because the FIFO was full."),
		policyChanges: desc("policy_changes_total", "Buffering policy changes."),
		ready:         desc("fifo_ready_frames", "Processed frames waiting in the output FIFO."),
		capacity:      desc("fifo_capacity_frames", "Output FIFO capacity for the active policy."),
		latency:       desc("latency_frames", "Engine backlog plus FIFO ready frames."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.blocks
	ch <- c.processed
	ch <- c.passthrough
	ch <- c.silenced
	ch <- c.dropped
	ch <- c.policyChanges
	ch <- c.ready
	ch <- c.capacity
	ch <- c.latency
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	gauge := func(d *prometheus.Desc, v int) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}

	counter(c.blocks, s.Blocks)
	counter(c.processed, s.ProcessedBlocks)
	counter(c.passthrough, s.PassthroughBlocks)
	counter(c.silenced, s.SilencedBlocks)
	counter(c.dropped, s.DroppedFrames)
	counter(c.policyChanges, s.PolicyChanges)
	gauge(c.ready, s.ReadyFrames)
	gauge(c.capacity, s.CapacityFrames)
	gauge(c.latency, s.LatencyFrames)
}

var _ prometheus.Collector = (*Collector)(nil)
