package handlers

import (
	"net/http"
	"sync"

	"github.com/pihole/pihole-api/internal/ftl/history"
	"github.com/pihole/pihole-api/internal/ftl/snapshot"
	"github.com/pihole/pihole-api/internal/setupvars"
	"github.com/pihole/pihole-api/internal/telemetry"
	"github.com/pihole/pihole-api/pkg/api"
	"github.com/pihole/pihole-api/pkg/metrics"
)

// ExclusionsSource resolves the current setupVars domain/client exclusion
// lists, cached across requests and invalidated by a filesystem watch on
// setupVars.conf (§4.L).
type ExclusionsSource struct {
	setupVarsPath string

	mu  sync.RWMutex
	val history.Exclusions
}

// NewExclusionsSource builds an ExclusionsSource rooted at setupVarsPath,
// performing an initial synchronous read.
func NewExclusionsSource(setupVarsPath string) (*ExclusionsSource, error) {
	s := &ExclusionsSource{setupVarsPath: setupVarsPath}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the domain/client exclusion lists, called synchronously
// at startup and asynchronously by the fsnotify watch set up in cmd/pihole-api.
func (s *ExclusionsSource) Reload() error {
	domains, err := setupvars.ReadList(s.setupVarsPath, "API_EXCLUDE_DOMAINS")
	if err != nil {
		return err
	}
	clients, err := setupvars.ReadList(s.setupVarsPath, "API_EXCLUDE_CLIENTS")
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.val = history.Exclusions{Domains: domains, Clients: clients}
	s.mu.Unlock()
	return nil
}

// Get returns the currently cached exclusion lists.
func (s *ExclusionsSource) Get() history.Exclusions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.val
}

// HistoryHandler serves the paginated query-history endpoint (§4.G).
type HistoryHandler struct {
	facade     *snapshot.Facade
	exclusions *ExclusionsSource
	metrics    *metrics.Metrics
}

// NewHistoryHandler builds a HistoryHandler over facade, consulting
// exclusions for the setupVars filter step. m may be nil (metrics disabled).
func NewHistoryHandler(facade *snapshot.Facade, exclusions *ExclusionsSource, m *metrics.Metrics) *HistoryHandler {
	return &HistoryHandler{facade: facade, exclusions: exclusions, metrics: m}
}

// historyResponse is the JSON shape returned by List.
type historyResponse struct {
	Records    []history.Record `json:"queries"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// List handles GET /api/history.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, span := telemetry.StartHistorySpan(r.Context())
	defer span.End()
	r = r.WithContext(ctx)

	params, err := history.ParseHistoryParams(r.URL.Query())
	if err != nil {
		api.Error(w, err)
		return
	}

	cursor, err := history.DecodeCursor(params.Cursor)
	if err != nil {
		api.Error(w, err)
		return
	}

	qt, ok := history.ParseQueryType(r.URL.Query().Get("type"))
	if !ok {
		api.ValidationError(w, "type", "unrecognized query type")
		return
	}
	statuses, ok := history.ParseStatusList(r.URL.Query().Get("status"))
	if !ok {
		api.ValidationError(w, "status", "unrecognized status")
		return
	}

	filterParams := history.Params{
		From:       params.From,
		Until:      params.Until,
		Domain:     params.Domain,
		Client:     params.Client,
		Upstream:   params.Upstream,
		Status:     statuses,
		QueryType:  qt,
		Exclusions: h.exclusions.Get(),
	}

	span.SetAttributes(telemetry.HistoryLimit(params.Limit))

	var page history.Page
	var epoch uint32
	err = h.facade.WithRetry(func(snap snapshot.Snapshot) error {
		epoch = snap.Settings.GlobalSHMCounter
		all := history.BuildRecords(snap)
		predicates := history.Pipeline(filterParams)
		page = history.PaginateObserved(all, predicates, cursor, epoch, params.Limit, h.metrics.ObservePredicatePassThrough)
		return nil
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		api.Error(w, err)
		return
	}
	span.SetAttributes(telemetry.SnapshotEpoch(epoch))
	h.metrics.ObserveHistoryPage()

	resp := historyResponse{Records: page.Records}
	if page.NextCursor != nil {
		resp.NextCursor = page.NextCursor.Encode()
	}
	api.JSON(w, http.StatusOK, resp)
}
