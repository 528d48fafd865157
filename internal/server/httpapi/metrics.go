package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts authentication decisions and refresh rotations by outcome.
type Metrics struct {
	AuthDecisions *prometheus.CounterVec
	Rotations     *prometheus.CounterVec
}

// Outcome label values.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
)

// NewMetrics registers the counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuthDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ragkeeper_auth_decisions_total",
			Help: "Per-request bearer token decisions by outcome.",
		}, []string{"outcome"}),
		Rotations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ragkeeper_token_rotations_total",
			Help: "Refresh token rotation attempts by outcome.",
		}, []string{"outcome"}),
	}
}
