package metrics

import "github.com/prometheus/client_golang/prometheus"

// Booking outcomes recorded by ObserveBooking.
const (
	OutcomeCreated   = "created"
	OutcomeBlocked   = "blocked"
	OutcomeConflict  = "conflict"
	OutcomeContended = "contended"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// SchedulingMetrics exposes counters/histograms for the booking flows.
type SchedulingMetrics struct {
	bookingsTotal     *prometheus.CounterVec
	transitionsTotal  *prometheus.CounterVec
	slotQueries       *prometheus.CounterVec
	slotsReturned     prometheus.Histogram
	bookingLatency    prometheus.Histogram
	httpRequestsTotal *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "booking",
			Name:      "status_transitions_total",
			Help:      "Appointment status changes by source and target status",
		}, []string{"source", "to"}),
		slotQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "availability",
			Name:      "queries_total",
			Help:      "Available slot queries by result",
		}, []string{"result"}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agenda",
			Subsystem: "availability",
			Name:      "slots_returned",
			Help:      "Number of slots returned per availability query",
			Buckets:   []float64{0, 1, 2, 4, 6, 8, 10, 12, 16, 24},
		}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agenda",
			Subsystem: "booking",
			Name:      "latency_seconds",
			Help:      "Latency of the booking check-and-insert",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agenda",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.bookingsTotal,
		m.transitionsTotal,
		m.slotQueries,
		m.slotsReturned,
		m.bookingLatency,
		m.httpRequestsTotal,
		m.httpLatency,
	)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.bookingLatency.Observe(seconds)
}

// ObserveTransition counts a status change. source is "admin" or "customer".
func (m *SchedulingMetrics) ObserveTransition(source, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(source, to).Inc()
}

func (m *SchedulingMetrics) ObserveSlotQuery(result string, slots int) {
	if m == nil {
		return
	}
	m.slotQueries.WithLabelValues(result).Inc()
	if result == "ok" {
		m.slotsReturned.Observe(float64(slots))
	}
}

func (m *SchedulingMetrics) ObserveHTTP(route, method string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(route, method, statusLabel(status)).Inc()
	m.httpLatency.WithLabelValues(route, method).Observe(seconds)
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
