package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors of the seating service. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	HttpRequestsTotal    *prometheus.CounterVec
	HttpRequestDuration  *prometheus.HistogramVec
	SeatingsTotal        *prometheus.CounterVec
	SeatingConflicts     prometheus.Counter
	AllocatorPasses      *prometheus.CounterVec
	NotificationFailures prometheus.Counter
	QueueJoins           *prometheus.CounterVec
	Subscribers          prometheus.Gauge
}

// New registers every collector on reg using prefix for the metric names.
func New(reg prometheus.Registerer, prefix string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HttpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		SeatingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_seatings_total",
				Help: "Parties seated, by mode (auto, manual, multi)",
			},
			[]string{"mode"},
		),
		SeatingConflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_seating_conflicts_total",
				Help: "Seating attempts that lost a race for a table",
			},
		),
		AllocatorPasses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_allocator_passes_total",
				Help: "Allocator passes, by trigger (automatic, manual, skipped)",
			},
			[]string{"trigger"},
		),
		NotificationFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_notification_failures_total",
				Help: "Seat notifications that could not be delivered",
			},
		),
		QueueJoins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_queue_joins_total",
				Help: "Queue join attempts, by result (queued, already_queued)",
			},
			[]string{"result"},
		),
		Subscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_live_subscribers",
				Help: "Connected live dashboard subscribers",
			},
		),
	}
}

func (m *Metrics) Seated(mode string) {
	if m == nil {
		return
	}
	m.SeatingsTotal.WithLabelValues(mode).Inc()
}

func (m *Metrics) Conflict() {
	if m == nil {
		return
	}
	m.SeatingConflicts.Inc()
}

func (m *Metrics) Pass(trigger string) {
	if m == nil {
		return
	}
	m.AllocatorPasses.WithLabelValues(trigger).Inc()
}

func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.NotificationFailures.Inc()
}

func (m *Metrics) QueueJoin(result string) {
	if m == nil {
		return
	}
	m.QueueJoins.WithLabelValues(result).Inc()
}

func (m *Metrics) SubscriberDelta(delta float64) {
	if m == nil {
		return
	}
	m.Subscribers.Add(delta)
}
