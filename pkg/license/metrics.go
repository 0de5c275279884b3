package license

import (
	"time"

	"github.com/lamassuiot/licensekey/v3/pkg/errs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "licensekey"

// Metrics counts codec outcomes by error kind. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	issued        *prometheus.CounterVec
	verifications *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		issued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "issued_total",
			Help:      "License keys issued, partitioned by result.",
		}, []string{"result"}),
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "verifications_total",
			Help:      "License key verifications, partitioned by result.",
		}, []string{"result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent issuing or verifying license keys.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"operation"}),
	}
}

func (m *Metrics) observeIssue(start time.Time, err error) {
	if m == nil {
		return
	}

	m.issued.WithLabelValues(errs.Kind(err)).Inc()
	m.duration.WithLabelValues("issue").Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeVerify(start time.Time, err error) {
	if m == nil {
		return
	}

	m.verifications.WithLabelValues(errs.Kind(err)).Inc()
	m.duration.WithLabelValues("verify").Observe(time.Since(start).Seconds())
}
