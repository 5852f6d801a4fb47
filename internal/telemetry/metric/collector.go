// Package metric provides Prometheus metrics for blazar.
package metric

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ShardState is the scrape-time view of one shard.
type ShardState struct {
	Shard     int
	Master    string
	Connected bool
}

// Collector exports per-shard connectivity read at scrape time.
type Collector struct {
	states func() []ShardState
	up     *prometheus.Desc
}

// NewCollector creates a collector that calls states on every scrape.
func NewCollector(states func() []ShardState) *Collector {
	return &Collector{
		states: states,
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "backend", "up"),
			"Whether the shard session currently holds a live connection.",
			[]string{"shard", "master"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.states() {
		v := 0.0
		if s.Connected {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, v, strconv.Itoa(s.Shard), s.Master)
	}
}
