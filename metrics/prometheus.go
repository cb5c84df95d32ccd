package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/reasonmesh/core"
)

const namespace = "reasonmesh"

var (
	inferencesTotal = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "engine", "inferences_total"),
		"Total completed inferences.",
		nil, nil,
	)

	streamingInferencesTotal = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "engine", "streaming_inferences_total"),
		"Total completed streaming inferences.",
		nil, nil,
	)

	activeInferences = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "engine", "active_inferences"),
		"In-flight inferences, including unfinished streams.",
		nil, nil,
	)

	avgLatencyMs = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "engine", "inference_latency_avg_ms"),
		"Running average latency of completed inferences in milliseconds.",
		nil, nil,
	)

	cacheHitsTotal = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "hits_total"),
		"Total context cache hits.",
		nil, nil,
	)

	cacheMissesTotal = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "misses_total"),
		"Total context cache misses.",
		nil, nil,
	)

	cacheEvictionsTotal = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "evictions_total"),
		"Total contexts evicted for capacity.",
		nil, nil,
	)

	cacheExpirationsTotal = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "expirations_total"),
		"Total contexts expired by TTL.",
		nil, nil,
	)

	cacheHitRate = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "hit_rate"),
		"Cache hit rate: hits / (hits + misses).",
		nil, nil,
	)

	cacheSize = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "size"),
		"Contexts currently cached.",
		nil, nil,
	)

	cacheCapacity = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "cache", "capacity"),
		"Maximum contexts the cache holds.",
		nil, nil,
	)

	routerDecisionsTotal = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "router", "decisions_total"),
		"Total successful routing decisions.",
		nil, nil,
	)

	routerUnroutableTotal = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "router", "unroutable_total"),
		"Total capability lookups no agent could serve.",
		nil, nil,
	)

	// Per-agent profile gauges. Labels: agent_type.
	agentSuccessRate = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "agent", "success_rate"),
		"EWMA success rate per agent type.",
		[]string{"agent_type"}, nil,
	)

	agentAvgResponseTimeMs = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "agent", "avg_response_time_ms"),
		"EWMA response time per agent type in milliseconds.",
		[]string{"agent_type"}, nil,
	)

	agentObservationsTotal = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "agent", "observations_total"),
		"Outcome observations folded into each agent profile.",
		[]string{"agent_type"}, nil,
	)
)

// Source provides the statistic snapshots the collector exports. It is
// satisfied by the engine.
type Source interface {
	Metrics() core.EngineMetrics
	RouteStats() core.RouteStats
}

// Collector exports engine, cache, and router statistics on every scrape.
type Collector struct {
	source Source
}

// NewCollector creates a collector reading from the given source. Register
// it with a prometheus.Registerer to expose the metrics.
func NewCollector(source Source) *Collector {
	return &Collector{source: source}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- inferencesTotal
	ch <- streamingInferencesTotal
	ch <- activeInferences
	ch <- avgLatencyMs
	ch <- cacheHitsTotal
	ch <- cacheMissesTotal
	ch <- cacheEvictionsTotal
	ch <- cacheExpirationsTotal
	ch <- cacheHitRate
	ch <- cacheSize
	ch <- cacheCapacity
	ch <- routerDecisionsTotal
	ch <- routerUnroutableTotal
	ch <- agentSuccessRate
	ch <- agentAvgResponseTimeMs
	ch <- agentObservationsTotal
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.source.Metrics()

	ch <- prometheus.MustNewConstMetric(inferencesTotal, prometheus.CounterValue, float64(m.TotalInferences))
	ch <- prometheus.MustNewConstMetric(streamingInferencesTotal, prometheus.CounterValue, float64(m.StreamingInferences))
	ch <- prometheus.MustNewConstMetric(activeInferences, prometheus.GaugeValue, float64(m.ActiveInferences))
	ch <- prometheus.MustNewConstMetric(avgLatencyMs, prometheus.GaugeValue, m.AvgLatencyMs)

	ch <- prometheus.MustNewConstMetric(cacheHitsTotal, prometheus.CounterValue, float64(m.Cache.Hits))
	ch <- prometheus.MustNewConstMetric(cacheMissesTotal, prometheus.CounterValue, float64(m.Cache.Misses))
	ch <- prometheus.MustNewConstMetric(cacheEvictionsTotal, prometheus.CounterValue, float64(m.Cache.Evictions))
	ch <- prometheus.MustNewConstMetric(cacheExpirationsTotal, prometheus.CounterValue, float64(m.Cache.Expirations))
	ch <- prometheus.MustNewConstMetric(cacheHitRate, prometheus.GaugeValue, m.Cache.HitRate)
	ch <- prometheus.MustNewConstMetric(cacheSize, prometheus.GaugeValue, float64(m.Cache.Size))
	ch <- prometheus.MustNewConstMetric(cacheCapacity, prometheus.GaugeValue, float64(m.Cache.Capacity))

	stats := c.source.RouteStats()

	ch <- prometheus.MustNewConstMetric(routerDecisionsTotal, prometheus.CounterValue, float64(stats.Decisions))
	ch <- prometheus.MustNewConstMetric(routerUnroutableTotal, prometheus.CounterValue, float64(stats.Unroutable))

	for _, profile := range stats.Agents {
		ch <- prometheus.MustNewConstMetric(agentSuccessRate, prometheus.GaugeValue, profile.SuccessRate, profile.AgentType)
		ch <- prometheus.MustNewConstMetric(agentAvgResponseTimeMs, prometheus.GaugeValue, profile.AvgResponseTimeMs, profile.AgentType)
		ch <- prometheus.MustNewConstMetric(agentObservationsTotal, prometheus.CounterValue, float64(profile.Observations), profile.AgentType)
	}
}
