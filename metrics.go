package rotor

import (
	"fmt"
	"io"
	"sync/atomic"
)

// MetricID identifies one engine counter.
type MetricID uint8

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterConflict
	MetricLoginSuccess
	MetricLoginFailure
	MetricRefreshSuccess
	MetricRefreshExpired
	MetricRefreshDenied
	MetricLogoutSuccess
	MetricLogoutNoSession

	metricCount
)

var metricNames = [metricCount]string{
	MetricRegisterSuccess:  "rotor_register_success_total",
	MetricRegisterConflict: "rotor_register_conflict_total",
	MetricLoginSuccess:     "rotor_login_success_total",
	MetricLoginFailure:     "rotor_login_failure_total",
	MetricRefreshSuccess:   "rotor_refresh_success_total",
	MetricRefreshExpired:   "rotor_refresh_expired_total",
	MetricRefreshDenied:    "rotor_refresh_denied_total",
	MetricLogoutSuccess:    "rotor_logout_success_total",
	MetricLogoutNoSession:  "rotor_logout_no_session_total",
}

// Metrics is a fixed set of lock-free counters covering every engine outcome.
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

// NewMetrics returns zeroed Metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Inc increments one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	out := make(map[MetricID]uint64, metricCount)
	if m == nil {
		return out
	}
	for id := MetricID(0); id < metricCount; id++ {
		out[id] = m.counters[id].Load()
	}
	return out
}

// WritePrometheus renders all counters in Prometheus text exposition format.
func (m *Metrics) WritePrometheus(w io.Writer) error {
	for id := MetricID(0); id < metricCount; id++ {
		var v uint64
		if m != nil {
			v = m.counters[id].Load()
		}
		if _, err := fmt.Fprintf(w, "# TYPE %s counter\n%s %d\n", metricNames[id], metricNames[id], v); err != nil {
			return err
		}
	}
	return nil
}
