package futures

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the ledger's Prometheus instruments. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	created  prometheus.Counter
	rejected *prometheus.CounterVec
	stored   prometheus.Gauge
}

// NewMetrics registers the ledger metrics with reg. A nil reg builds
// unregistered instruments.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		created: f.NewCounter(prometheus.CounterOpts{
			Namespace: "futures",
			Subsystem: "ledger",
			Name:      "created_total",
			Help:      "Total number of futures created",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "futures",
			Subsystem: "ledger",
			Name:      "rejected_total",
			Help:      "Total number of rejected CreateFuture calls by reason",
		}, []string{"reason"}),
		stored: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "futures",
			Subsystem: "ledger",
			Name:      "stored",
			Help:      "Number of futures currently stored",
		}),
	}
}

func (m *Metrics) observeCreated(count uint64) {
	if m == nil {
		return
	}
	m.created.Inc()
	m.stored.Set(float64(count))
}

func (m *Metrics) observeStored(count uint64) {
	if m == nil {
		return
	}
	m.stored.Set(float64(count))
}

func (m *Metrics) observeRejected(err error) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(rejectReason(err)).Inc()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAsset):
		return "invalid_asset"
	case errors.Is(err, ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, ErrInvalidExpiry):
		return "invalid_expiry"
	default:
		return "internal"
	}
}
