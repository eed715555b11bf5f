package stream

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes a stream's stats as prometheus metrics. Register it
// on any registry; streams pay nothing when no collector is attached.
type Collector struct {
	stats *Stats

	drains       *prometheus.Desc
	drainSeconds *prometheus.Desc
	drainedBytes *prometheus.Desc
	flushes      *prometheus.Desc
	reserves     *prometheus.Desc
	finalizes    *prometheus.Desc
	errors       *prometheus.Desc
}

// NewCollector returns a Collector over s labeled with name.
func NewCollector(namespace, name string, s *Stats) *Collector {
	labels := prometheus.Labels{"stream": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "faststream", metric),
			help, nil, labels,
		)
	}
	return &Collector{
		stats:        s,
		drains:       desc("drains_total", "Completed drain operations."),
		drainSeconds: desc("drain_seconds_total", "Time spent draining."),
		drainedBytes: desc("drained_bytes_total", "Bytes emitted to the sink."),
		flushes:      desc("flushes_total", "Flush operations."),
		reserves:     desc("reservations_total", "Reservations created."),
		finalizes:    desc("finalizations_total", "Reservations finalized."),
		errors:       desc("errors_total", "Sink failures."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.drains
	ch <- c.drainSeconds
	ch <- c.drainedBytes
	ch <- c.flushes
	ch <- c.reserves
	ch <- c.finalizes
	ch <- c.errors
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v)
	}
	counter(c.drains, float64(c.stats.Drains.Load()))
	counter(c.drainSeconds, c.stats.DrainsDur.Duration().Seconds())
	counter(c.drainedBytes, float64(c.stats.DrainedBytes.Load()))
	counter(c.flushes, float64(c.stats.Flushes.Load()))
	counter(c.reserves, float64(c.stats.Reserves.Load()))
	counter(c.finalizes, float64(c.stats.Finalizes.Load()))
	counter(c.errors, float64(c.stats.Errors.Load()))
}
