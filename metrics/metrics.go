// Package metrics holds the Prometheus collectors for the front desk.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for conversations, bookings and caches.
type Metrics struct {
	TurnsTotal       *prometheus.CounterVec
	BookingsTotal    *prometheus.CounterVec
	CourseCacheTotal *prometheus.CounterVec
	HRCommandsTotal  *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
}

// New creates and registers the metrics. Registration happens once per
// process; later calls return the same collectors.
//
// Metrics:
//   - frontdesk_turns_total{state} - turns processed, by state entered
//   - frontdesk_bookings_total{outcome} - scheduler outcomes
//   - frontdesk_course_cache_total{result} - course cache hits and misses
//   - frontdesk_hr_commands_total{action} - privileged actions
//   - frontdesk_active_sessions - live conversations
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			TurnsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "frontdesk_turns_total",
					Help: "Total number of conversation turns processed",
				},
				[]string{"state"},
			),
			BookingsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "frontdesk_bookings_total",
					Help: "Total number of scheduling attempts by outcome",
				},
				[]string{"outcome"},
			),
			CourseCacheTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "frontdesk_course_cache_total",
					Help: "Course detail cache lookups by result",
				},
				[]string{"result"}, // "hit" or "miss"
			),
			HRCommandsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "frontdesk_hr_commands_total",
					Help: "Total number of privileged HR actions",
				},
				[]string{"action"},
			),
			ActiveSessions: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "frontdesk_active_sessions",
					Help: "Number of live conversations",
				},
			),
		}
	})
	return globalMetrics
}

// Booking records a scheduler outcome. Safe on a nil receiver.
func (m *Metrics) Booking(outcome string) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(outcome).Inc()
}

// Turn records one processed turn. Safe on a nil receiver.
func (m *Metrics) Turn(state string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(state).Inc()
}

// CacheLookup records a course cache hit or miss. Safe on a nil receiver.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CourseCacheTotal.WithLabelValues(result).Inc()
}

// HRCommand records a privileged action. Safe on a nil receiver.
func (m *Metrics) HRCommand(action string) {
	if m == nil {
		return
	}
	m.HRCommandsTotal.WithLabelValues(action).Inc()
}

// SessionOpened and SessionClosed track the live conversation gauge.
func (m *Metrics) SessionOpened() {
	if m != nil {
		m.ActiveSessions.Inc()
	}
}

func (m *Metrics) SessionClosed() {
	if m != nil {
		m.ActiveSessions.Dec()
	}
}
