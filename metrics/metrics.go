// Package metrics holds the in-process counters exported on /metrics.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	EventsReceived      atomic.Int64
	EventsEnqueued      atomic.Int64
	EventsShed          atomic.Int64
	EventsInvalid       atomic.Int64
	EventsPersisted     atomic.Int64
	PersistFailures     atomic.Int64
	PersistRetries      atomic.Int64
	EventsDropped       atomic.Int64
	GeoTimeouts         atomic.Int64
	EventsAggregated    atomic.Int64
	AggregationFailures atomic.Int64
	AntiCheatRejections atomic.Int64
	ScoresSubmitted     atomic.Int64
	PrizesAwarded       atomic.Int64
	CacheErrors         atomic.Int64
	BroadcastFailures   atomic.Int64
}

func New() *Metrics { return &Metrics{} }

// OrNew returns m, or a fresh instance when m is nil.
func OrNew(m *Metrics) *Metrics {
	if m == nil {
		return New()
	}
	return m
}

func (m *Metrics) counters() map[string]*atomic.Int64 {
	return map[string]*atomic.Int64{
		"events_received_total":      &m.EventsReceived,
		"events_enqueued_total":      &m.EventsEnqueued,
		"events_shed_total":          &m.EventsShed,
		"events_invalid_total":       &m.EventsInvalid,
		"events_persisted_total":     &m.EventsPersisted,
		"persist_failures_total":     &m.PersistFailures,
		"persist_retries_total":      &m.PersistRetries,
		"events_dropped_total":       &m.EventsDropped,
		"geo_lookup_timeouts_total":  &m.GeoTimeouts,
		"events_aggregated_total":    &m.EventsAggregated,
		"aggregation_failures_total": &m.AggregationFailures,
		"anticheat_rejections_total": &m.AntiCheatRejections,
		"scores_submitted_total":     &m.ScoresSubmitted,
		"prizes_awarded_total":       &m.PrizesAwarded,
		"cache_errors_total":         &m.CacheErrors,
		"broadcast_failures_total":   &m.BroadcastFailures,
	}
}

func (m *Metrics) Snapshot() map[string]int64 {
	out := make(map[string]int64)
	for name, c := range m.counters() {
		out[name] = c.Load()
	}
	return out
}

// Registry exposes every counter as a prometheus CounterFunc on a private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	for name, c := range m.counters() {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "flappyjet",
			Name:      name,
			Help:      "FlappyJet backend counter " + name,
		}, func() float64 { return float64(c.Load()) }))
	}
	return reg
}
