// Package metrics holds the Prometheus collectors of the rental service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	HoldOutcomes         *prometheus.CounterVec
	BookingOutcomes      *prometheus.CounterVec
	PaymentOutcomes      *prometheus.CounterVec
	SchedulerTransitions *prometheus.CounterVec
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
}

// New creates the collectors and registers them with registerer when it is
// not nil.
func New(namespace string, registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		HoldOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vehicle_hold_total",
			Help:      "Vehicle hold attempts by outcome.",
		}, []string{"outcome"}),
		BookingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_events_total",
			Help:      "Booking lifecycle events.",
		}, []string{"event"}),
		PaymentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_events_total",
			Help:      "Payment gateway interactions by outcome.",
		}, []string{"operation", "outcome"}),
		SchedulerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_transitions_total",
			Help:      "Records changed by scheduler jobs.",
		}, []string{"job"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	if registerer != nil {
		for _, c := range m.collectors() {
			if err := registerer.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.HoldOutcomes,
		m.BookingOutcomes,
		m.PaymentOutcomes,
		m.SchedulerTransitions,
		m.HTTPRequests,
		m.HTTPDuration,
	}
}

func (m *Metrics) ObserveHold(outcome string) {
	if m == nil {
		return
	}
	m.HoldOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBooking(event string) {
	if m == nil {
		return
	}
	m.BookingOutcomes.WithLabelValues(event).Inc()
}

func (m *Metrics) ObservePayment(operation, outcome string) {
	if m == nil {
		return
	}
	m.PaymentOutcomes.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveScheduler(job string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.SchedulerTransitions.WithLabelValues(job).Add(float64(count))
}

func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
