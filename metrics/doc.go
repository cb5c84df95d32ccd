// Package metrics exposes engine, cache, and router statistics as
// Prometheus metrics.
//
// The package implements a pull-based prometheus.Collector over the
// snapshots the engine already maintains, so no double accounting takes
// place: every scrape reads the live counters.
//
// Usage:
//
//	e := engine.New()
//
//	prometheus.MustRegister(metrics.NewCollector(e))
//	http.Handle("/metrics", promhttp.Handler())
//
// All metric families carry the "reasonmesh" namespace. Per-agent gauges
// are labeled with agent_type.
package metrics
