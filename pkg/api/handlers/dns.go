package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pihole/pihole-api/internal/ftl/socket"
	"github.com/pihole/pihole-api/internal/ftl/stats"
	"github.com/pihole/pihole-api/internal/setupvars"
	"github.com/pihole/pihole-api/pkg/api"
	"github.com/pihole/pihole-api/pkg/lists"
)

// DNSHandler serves the blocking-status route: §9's Open Question resolves
// the control-socket variant as canonical ("treats the socket variant as
// canonical; the file variant is a degraded fallback for when the resolver
// is unreachable"), grounded on original_source/src/dns/status.rs for the
// fallback and internal/ftl/stats for the canonical path.
type DNSHandler struct {
	dialer        *socket.Dialer
	dnsmasqConfig string
}

// NewDNSHandler builds a DNSHandler.
func NewDNSHandler(dialer *socket.Dialer, dnsmasqConfig string) *DNSHandler {
	return &DNSHandler{dialer: dialer, dnsmasqConfig: dnsmasqConfig}
}

// Status handles GET /api/dns/status.
func (h *DNSHandler) Status(w http.ResponseWriter, r *http.Request) {
	conn, err := h.dialer.Dial(r.Context())
	if err != nil {
		api.JSON(w, http.StatusOK, map[string]string{
			"status": setupvars.FileStatus(h.dnsmasqConfig),
		})
		return
	}
	defer conn.Close()

	summary, err := stats.GetSummary(r.Context(), conn)
	if err != nil {
		api.JSON(w, http.StatusOK, map[string]string{
			"status": setupvars.FileStatus(h.dnsmasqConfig),
		})
		return
	}

	status := "disabled"
	if summary.Status != 0 {
		status = "enabled"
	}
	api.JSON(w, http.StatusOK, map[string]string{"status": status})
}

// ListsHandler serves the allow/deny/wildcard list CRUD routes (§4.F step
// 2 supplement, §4.L), delegating to the list repository and requesting a
// resolver reload over the control socket after every mutation.
type ListsHandler struct {
	repo   *lists.Repository
	dialer *socket.Dialer
}

// NewListsHandler builds a ListsHandler.
func NewListsHandler(repo *lists.Repository, dialer *socket.Dialer) *ListsHandler {
	return &ListsHandler{repo: repo, dialer: dialer}
}

func listKind(r *http.Request) (lists.Kind, bool) {
	switch chi.URLParam(r, "kind") {
	case "whitelist":
		return lists.Whitelist, true
	case "blacklist":
		return lists.Blacklist, true
	case "wildlist":
		return lists.Wildlist, true
	default:
		return "", false
	}
}

// Get handles GET /api/lists/{kind}.
func (h *ListsHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind, ok := listKind(r)
	if !ok {
		api.ValidationError(w, "kind", "unknown list kind")
		return
	}

	domains, err := h.repo.Get(kind)
	writeResult(w, http.StatusOK, map[string]any{"domains": domains}, err)
}

type addDomainRequest struct {
	Domain string `json:"domain"`
}

// Add handles POST /api/lists/{kind}.
func (h *ListsHandler) Add(w http.ResponseWriter, r *http.Request) {
	kind, ok := listKind(r)
	if !ok {
		api.ValidationError(w, "kind", "unknown list kind")
		return
	}

	var req addDomainRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Domain == "" {
		api.ValidationError(w, "domain", "domain is required")
		return
	}

	if err := h.repo.Add(kind, req.Domain); err != nil {
		api.Error(w, err)
		return
	}

	h.requestReload(r)
	api.JSON(w, http.StatusCreated, map[string]string{"domain": req.Domain})
}

// Remove handles DELETE /api/lists/{kind}/{domain}.
func (h *ListsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	kind, ok := listKind(r)
	if !ok {
		api.ValidationError(w, "kind", "unknown list kind")
		return
	}

	domain := chi.URLParam(r, "domain")
	if err := h.repo.Remove(kind, domain); err != nil {
		api.Error(w, err)
		return
	}

	h.requestReload(r)
	w.WriteHeader(http.StatusNoContent)
}

// requestReload asks the resolver to reload gravity/lists after a mutation.
// It is best-effort: dial and command errors are discarded here (Dial and
// Command log their own warnings) and never reach the client, since the
// mutation itself already succeeded and list changes are picked up on
// the resolver's own poll cycle even without an immediate reload.
func (h *ListsHandler) requestReload(r *http.Request) {
	conn, err := h.dialer.Dial(r.Context())
	if err != nil {
		return
	}
	defer conn.Close()
	_, _ = conn.Command(r.Context(), "reload")
}
