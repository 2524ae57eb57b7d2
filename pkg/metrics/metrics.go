package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stylo"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	sessionsTotal       *prometheus.CounterVec
	otpTotal            *prometheus.CounterVec
	notificationsTotal  *prometheus.CounterVec
	eventsTotal         *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	availabilityLatency *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "sessions_total",
			Help:      "Booking session lifecycle transitions by outcome",
		}, []string{"outcome"}),
		otpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "otp_total",
			Help:      "OTP challenge operations by action and result",
		}, []string{"action", "result"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Outbound WhatsApp notifications by kind and status",
		}, []string{"kind", "status"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "messages_total",
			Help:      "Kafka messages by direction and status",
		}, []string{"direction", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
		availabilityLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "compute_seconds",
			Help:      "Time spent computing availability views",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"view"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.sessionsTotal,
		m.otpTotal,
		m.notificationsTotal,
		m.eventsTotal,
		m.httpDuration,
		m.availabilityLatency,
	)
	return m
}

func (m *BookingMetrics) ObserveSession(outcome string) {
	if m == nil {
		return
	}
	m.sessionsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveOTP(action, result string) {
	if m == nil {
		return
	}
	m.otpTotal.WithLabelValues(action, result).Inc()
}

func (m *BookingMetrics) ObserveNotification(kind string, err error) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(kind, status(err)).Inc()
}

func (m *BookingMetrics) ObserveEvent(direction string, err error) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(direction, status(err)).Inc()
}

func (m *BookingMetrics) ObserveHTTP(method string, code int, seconds float64) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, strconv.Itoa(code)).Observe(seconds)
}

func (m *BookingMetrics) ObserveAvailability(view string, seconds float64) {
	if m == nil {
		return
	}
	m.availabilityLatency.WithLabelValues(view).Observe(seconds)
}

func status(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
