package resilience

import "github.com/prometheus/client_golang/prometheus"

// Breaker collectors carry a target label so the dashboard can separate the
// commerce API breaker from any future upstream.
var (
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_upstream_breaker_state",
			Help: "Upstream circuit breaker state: 0=closed, 1=open, 2=half-open.",
		},
		[]string{"target"},
	)
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_upstream_breaker_transitions_total",
			Help: "Upstream circuit breaker state transitions.",
		},
		[]string{"target", "from", "to"},
	)
	BreakerOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_upstream_breaker_opened_total",
			Help: "Times the upstream circuit breaker tripped open.",
		},
		[]string{"target"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal)
}
