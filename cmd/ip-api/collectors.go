package main

import (
	"strings"

	"ip-api/middleware/ratelimit/infra"

	"github.com/prometheus/client_golang/prometheus"
)

// decisionCollector exporta os contadores por rota do MemoryStatsStore.
// Caminhos fora de `routes` são somados em "other".
type decisionCollector struct {
	stats *infra.MemoryStatsStore
	known map[string]struct{}
	desc  *prometheus.Desc
}

func newDecisionCollector(stats *infra.MemoryStatsStore, routes []string) *decisionCollector {
	known := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		known[r] = struct{}{}
	}
	return &decisionCollector{
		stats: stats,
		known: known,
		desc: prometheus.NewDesc(
			"ipapi_ratelimit_decisions_total",
			"Rate limiter decisions by route.",
			[]string{"route", "decision"}, nil,
		),
	}
}

func (c *decisionCollector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

func (c *decisionCollector) Collect(ch chan<- prometheus.Metric) {
	byPath := make(map[string]infra.Counters)
	for route, n := range c.stats.ByRoute() {
		_, path, _ := strings.Cut(route, " ")
		if _, ok := c.known[path]; !ok {
			path = "other"
		}
		agg := byPath[path]
		agg.Allowed += n.Allowed
		agg.Denied += n.Denied
		byPath[path] = agg
	}

	for path, n := range byPath {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(n.Allowed), path, "allowed")
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(n.Denied), path, "denied")
	}
}
