package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewIsIdempotent(t *testing.T) {
	a := New()
	b := New()
	assert.Same(t, a, b)
}

func TestCounters(t *testing.T) {
	m := New()

	before := testutil.ToFloat64(m.BookingsTotal.WithLabelValues("booked"))
	m.Booking("booked")
	assert.Equal(t, before+1, testutil.ToFloat64(m.BookingsTotal.WithLabelValues("booked")))

	hits := testutil.ToFloat64(m.CourseCacheTotal.WithLabelValues("hit"))
	m.CacheLookup(true)
	assert.Equal(t, hits+1, testutil.ToFloat64(m.CourseCacheTotal.WithLabelValues("hit")))

	active := testutil.ToFloat64(m.ActiveSessions)
	m.SessionOpened()
	m.SessionClosed()
	assert.Equal(t, active, testutil.ToFloat64(m.ActiveSessions))
}

func TestNilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Booking("booked")
		m.Turn("idle")
		m.CacheLookup(false)
		m.HRCommand("logout")
		m.SessionOpened()
		m.SessionClosed()
	})
}
