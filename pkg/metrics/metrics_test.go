package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDisabledReturnsNil(t *testing.T) {
	m := New(false)
	require.Nil(t, m)

	// Every method must tolerate a nil receiver.
	m.ObserveSnapshotAcquired(time.Millisecond, time.Millisecond)
	m.ObserveSocketCommand("stats", time.Millisecond, nil)
	m.ObserveHTTPRequest("/api/history", "GET", 200, time.Millisecond)
	m.ObserveHistoryPage()
	m.ObservePredicatePassThrough("domain")
	require.Nil(t, m.Registry())
	require.Nil(t, m.Handler())
}

func TestNewEnabledRegistersCollectors(t *testing.T) {
	m := New(true)
	require.NotNil(t, m)
	require.NotNil(t, m.Registry())
	require.NotNil(t, m.Handler())
}

func TestObserveSocketCommandExposesMetrics(t *testing.T) {
	m := New(true)
	require.NotNil(t, m)

	m.ObserveSocketCommand("dbstats", 10*time.Millisecond, nil)
	m.ObserveSocketCommand("stats", 5*time.Millisecond, errors.New("sentinel"))

	body := scrape(t, m)
	require.Contains(t, body, `pihole_api_socket_command_seconds_count{command="dbstats"}`)
	require.Contains(t, body, `pihole_api_socket_command_failures_total{command="stats"}`)
}

func TestObserveSnapshotAcquired(t *testing.T) {
	m := New(true)
	require.NotNil(t, m)

	m.ObserveSnapshotAcquired(2*time.Millisecond, 8*time.Millisecond)

	body := scrape(t, m)
	require.Contains(t, body, "pihole_api_snapshot_acquisitions_total 1")
	require.Contains(t, body, "pihole_api_snapshot_lock_wait_seconds")
	require.Contains(t, body, "pihole_api_snapshot_hold_seconds")
}

func TestObserveHTTPRequestStatusClass(t *testing.T) {
	m := New(true)
	require.NotNil(t, m)

	m.ObserveHTTPRequest("/api/history", "GET", 204, time.Millisecond)
	m.ObserveHTTPRequest("/api/history", "GET", 500, time.Millisecond)

	body := scrape(t, m)
	require.Contains(t, body, `status="2xx"`)
	require.Contains(t, body, `status="5xx"`)
}

func TestObservePredicatePassThrough(t *testing.T) {
	m := New(true)
	require.NotNil(t, m)

	m.ObservePredicatePassThrough("domain")
	m.ObservePredicatePassThrough("domain")
	m.ObservePredicatePassThrough("status")

	body := scrape(t, m)
	require.Contains(t, body, `pihole_api_history_filter_predicate_pass_total{predicate="domain"} 2`)
	require.Contains(t, body, `pihole_api_history_filter_predicate_pass_total{predicate="status"} 1`)
}

func TestStatusClass(t *testing.T) {
	require.Equal(t, "2xx", statusClass(200))
	require.Equal(t, "3xx", statusClass(304))
	require.Equal(t, "4xx", statusClass(404))
	require.Equal(t, "5xx", statusClass(502))
	require.Equal(t, "other", statusClass(100))
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)
	return rec.Body.String()
}
