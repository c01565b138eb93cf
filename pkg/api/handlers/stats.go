package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pihole/pihole-api/internal/apierror"
	"github.com/pihole/pihole-api/internal/ftl/history"
	"github.com/pihole/pihole-api/internal/ftl/snapshot"
	"github.com/pihole/pihole-api/internal/ftl/socket"
	"github.com/pihole/pihole-api/internal/ftl/stats"
	"github.com/pihole/pihole-api/pkg/api"
)

// StatsHandler serves the aggregator endpoints (§4.H): the socket-backed
// `>stats`/`>dbstats` commands and the shm-backed query-type, top-N,
// over-time, forward-destination, recent-blocked and unknown-query
// aggregators.
type StatsHandler struct {
	facade *snapshot.Facade
	dialer *socket.Dialer
}

// NewStatsHandler builds a StatsHandler over facade and dialer.
func NewStatsHandler(facade *snapshot.Facade, dialer *socket.Dialer) *StatsHandler {
	return &StatsHandler{facade: facade, dialer: dialer}
}

func (h *StatsHandler) dial(r *http.Request) (socket.Conn, error) {
	return h.dialer.Dial(r.Context())
}

// Summary handles GET /api/stats/summary.
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	conn, err := h.dial(r)
	if err != nil {
		api.Error(w, err)
		return
	}
	defer conn.Close()

	summary, err := stats.GetSummary(r.Context(), conn)
	writeResult(w, http.StatusOK, summary, err)
}

// QueryTypes handles GET /api/stats/query_types.
func (h *StatsHandler) QueryTypes(w http.ResponseWriter, r *http.Request) {
	var fractions stats.QueryTypeFractions
	err := h.facade.WithRetry(func(snap snapshot.Snapshot) error {
		fractions = stats.QueryTypeFractionsFromCounters(snap.Counters)
		return nil
	})
	writeResult(w, http.StatusOK, fractions, err)
}

// Database handles GET /api/stats/database.
func (h *StatsHandler) Database(w http.ResponseWriter, r *http.Request) {
	conn, err := h.dial(r)
	if err != nil {
		api.Error(w, err)
		return
	}
	defer conn.Close()

	dbstats, err := stats.GetDBStats(r.Context(), conn)
	writeResult(w, http.StatusOK, dbstats, err)
}

// TopDomains handles GET /api/stats/top_domains.
func (h *StatsHandler) TopDomains(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "limit", 10)
	blocked := queryBoolPtr(r, "blocked")

	var result []stats.NamedCount
	err := h.facade.WithRetry(func(snap snapshot.Snapshot) error {
		result = stats.TopDomains(snap, n, blocked != nil && *blocked)
		return nil
	})
	writeResult(w, http.StatusOK, result, err)
}

// TopClients handles GET /api/stats/top_clients.
func (h *StatsHandler) TopClients(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "limit", 10)
	blocked := queryBoolPtr(r, "blocked")

	var result []stats.NamedCount
	err := h.facade.WithRetry(func(snap snapshot.Snapshot) error {
		result = stats.TopClients(snap, n, blocked != nil && *blocked)
		return nil
	})
	writeResult(w, http.StatusOK, result, err)
}

// OverTime handles GET /api/stats/over_time.
func (h *StatsHandler) OverTime(w http.ResponseWriter, r *http.Request) {
	var result []stats.OverTimeBucket
	err := h.facade.WithRetry(func(snap snapshot.Snapshot) error {
		result = stats.OverTime(snap)
		return nil
	})
	writeResult(w, http.StatusOK, result, err)
}

// OverTimeClient handles GET /api/stats/over_time/clients/{clientIndex}.
func (h *StatsHandler) OverTimeClient(w http.ResponseWriter, r *http.Request) {
	clientIndexParam := chi.URLParam(r, "clientIndex")

	clientIndex, err := strconv.Atoi(clientIndexParam)
	if err != nil {
		api.Error(w, apierror.New(apierror.KindBadRequest, "invalid client index"))
		return
	}

	var result []stats.OverTimeClientBucket
	err = h.facade.WithRetry(func(snap snapshot.Snapshot) error {
		result = stats.OverTimeForClient(snap, clientIndex, snap.OverTime.Len(), snap.Clients.Len())
		return nil
	})
	writeResult(w, http.StatusOK, result, err)
}

// ForwardDestinations handles GET /api/stats/forward_destinations.
func (h *StatsHandler) ForwardDestinations(w http.ResponseWriter, r *http.Request) {
	var result []stats.ForwardDestination
	err := h.facade.WithRetry(func(snap snapshot.Snapshot) error {
		result = stats.ForwardDestinations(snap)
		return nil
	})
	writeResult(w, http.StatusOK, result, err)
}

// RecentBlocked handles GET /api/stats/recent_blocked.
func (h *StatsHandler) RecentBlocked(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "limit", 10)

	var result []history.Record
	err := h.facade.WithRetry(func(snap snapshot.Snapshot) error {
		result = stats.RecentBlocked(snap, n)
		return nil
	})
	writeResult(w, http.StatusOK, result, err)
}

// UnknownQueries handles GET /api/stats/unknown_queries.
func (h *StatsHandler) UnknownQueries(w http.ResponseWriter, r *http.Request) {
	var result []history.Record
	err := h.facade.WithRetry(func(snap snapshot.Snapshot) error {
		result = stats.UnknownQueries(snap)
		return nil
	})
	writeResult(w, http.StatusOK, result, err)
}
