package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the portal's Prometheus collectors.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	BookingsCreated   prometheus.Counter
	BookingsRejected  prometheus.Counter
	PaymentsConfirmed prometheus.Counter
	RemindersSent     prometheus.Counter
	RemindersFailed   prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "doctors_portal_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "doctors_portal_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		BookingsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "doctors_portal_bookings_created_total",
			Help: "Total number of bookings created",
		}),

		BookingsRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "doctors_portal_bookings_duplicate_total",
			Help: "Total number of bookings refused as duplicates",
		}),

		PaymentsConfirmed: f.NewCounter(prometheus.CounterOpts{
			Name: "doctors_portal_payments_confirmed_total",
			Help: "Total number of payment confirmations",
		}),

		RemindersSent: f.NewCounter(prometheus.CounterOpts{
			Name: "doctors_portal_reminders_sent_total",
			Help: "Total number of appointment reminders sent",
		}),

		RemindersFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "doctors_portal_reminders_failed_total",
			Help: "Total number of appointment reminders that failed to send",
		}),
	}
}
