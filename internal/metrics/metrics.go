package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	outcomes       *prometheus.CounterVec
	bookLatency    prometheus.Histogram
	slotsPublished prometheus.Counter
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telecare",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		bookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "telecare",
			Subsystem: "booking",
			Name:      "duration_seconds",
			Help:      "Latency of the full book operation",
			Buckets:   prometheus.DefBuckets,
		}),
		slotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telecare",
			Subsystem: "booking",
			Name:      "slots_published_total",
			Help:      "Slots published by physicians",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outcomes, m.bookLatency, m.slotsPublished)
	return m
}

func (m *BookingMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
	m.bookLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveSlotPublished() {
	if m == nil {
		return
	}
	m.slotsPublished.Inc()
}
