package observability

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type loyaltyMetrics struct {
	mints         prometheus.Counter
	burns         prometheus.Counter
	distributions prometheus.Counter
	poolSubmitted prometheus.Counter
}

var (
	loyaltyMetricsOnce sync.Once
	loyaltyRegistry    *loyaltyMetrics
)

// Loyalty returns the lazily-initialised metrics registry tracking token
// lifecycle and reward distribution activity.
func Loyalty() *loyaltyMetrics {
	loyaltyMetricsOnce.Do(func() {
		loyaltyRegistry = &loyaltyMetrics{
			mints: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "loyalty",
				Subsystem: "token",
				Name:      "mints_total",
				Help:      "Count of successfully minted loyalty tokens.",
			}),
			burns: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "loyalty",
				Subsystem: "token",
				Name:      "burns_total",
				Help:      "Count of successfully burnt loyalty tokens.",
			}),
			distributions: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "loyalty",
				Subsystem: "rewards",
				Name:      "distributions_total",
				Help:      "Count of completed reward distribution rounds.",
			}),
			poolSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "loyalty",
				Subsystem: "rewards",
				Name:      "pool_submitted_wei",
				Help:      "Total reward pool value submitted across all rounds. Float precision; indicative only.",
			}),
		}
		prometheus.MustRegister(
			loyaltyRegistry.mints,
			loyaltyRegistry.burns,
			loyaltyRegistry.distributions,
			loyaltyRegistry.poolSubmitted,
		)
	})
	return loyaltyRegistry
}

// RecordMint increments the mint counter.
func (m *loyaltyMetrics) RecordMint() {
	if m == nil {
		return
	}
	m.mints.Inc()
}

// RecordBurn increments the burn counter.
func (m *loyaltyMetrics) RecordBurn() {
	if m == nil {
		return
	}
	m.burns.Inc()
}

// RecordDistribution increments the round counter and adds the submitted pool
// to the running total.
func (m *loyaltyMetrics) RecordDistribution(pool *big.Int) {
	if m == nil {
		return
	}
	m.distributions.Inc()
	if pool != nil {
		value, _ := new(big.Float).SetInt(pool).Float64()
		m.poolSubmitted.Add(value)
	}
}
