package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pihole/pihole-api/internal/ftl/snapshot"
	"github.com/pihole/pihole-api/internal/ftl/socket"
	"github.com/pihole/pihole-api/internal/logger"
	"github.com/pihole/pihole-api/pkg/api/handlers"
	apiMiddleware "github.com/pihole/pihole-api/pkg/api/middleware"
	"github.com/pihole/pihole-api/pkg/lists"
	"github.com/pihole/pihole-api/pkg/metrics"
)

// Deps bundles every collaborator the router wires into handlers.
type Deps struct {
	Facade        *snapshot.Facade
	Dialer        *socket.Dialer
	Lists         *lists.Repository
	Exclusions    *handlers.ExclusionsSource
	DnsmasqConfig string
	AuthKey       string
	Metrics       *metrics.Metrics
}

// NewRouter creates and configures the chi router with all middleware and
// routes (§4.I), modeled on the teacher's router but routing to the
// telemetry-plane handlers instead of filesystem-share management.
//
// Routes:
//   - GET  /health, /health/ready        - unauthenticated probes
//   - GET  /api/stats/*                  - unauthenticated aggregator reads
//   - GET  /api/history                  - unauthenticated paginated query log
//   - GET  /api/dns/status               - unauthenticated blocking status
//   - GET  /api/lists/{kind}             - unauthenticated list reads
//   - POST/DELETE /api/lists/{kind}[...] - bearer-token-protected mutations
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewHealthHandler(deps.Facade)
	statsHandler := handlers.NewStatsHandler(deps.Facade, deps.Dialer)
	historyHandler := handlers.NewHistoryHandler(deps.Facade, deps.Exclusions, deps.Metrics)
	dnsHandler := handlers.NewDNSHandler(deps.Dialer, deps.DnsmasqConfig)
	listsHandler := handlers.NewListsHandler(deps.Lists, deps.Dialer)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/stats", func(r chi.Router) {
			r.Get("/summary", statsHandler.Summary)
			r.Get("/query_types", statsHandler.QueryTypes)
			r.Get("/database", statsHandler.Database)
			r.Get("/top_domains", statsHandler.TopDomains)
			r.Get("/top_clients", statsHandler.TopClients)
			r.Get("/over_time", statsHandler.OverTime)
			r.Get("/over_time/clients/{clientIndex}", statsHandler.OverTimeClient)
			r.Get("/forward_destinations", statsHandler.ForwardDestinations)
			r.Get("/recent_blocked", statsHandler.RecentBlocked)
			r.Get("/unknown_queries", statsHandler.UnknownQueries)
		})

		r.Get("/history", historyHandler.List)
		r.Get("/dns/status", dnsHandler.Status)

		r.Route("/lists/{kind}", func(r chi.Router) {
			r.Get("/", listsHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.BearerAuth(deps.AuthKey))
				r.Post("/", listsHandler.Add)
				r.Delete("/{domain}", listsHandler.Remove)
			})
		})
	})

	return r
}

// requestLogger logs requests using the internal logger, matching the
// teacher's pattern of request-scoped structured logging, and records the
// HTTP request duration histogram named in §4.M. m may be nil (metrics
// disabled).
func requestLogger(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())

			logger.Debug("API request started",
				logger.RequestID(requestID),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.RemoteAddr(r.RemoteAddr),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			m.ObserveHTTPRequest(route, r.Method, ww.Status(), duration)

			logger.Info("API request completed",
				logger.RequestID(requestID),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.Route(route),
				logger.HTTPStatus(ww.Status()),
				logger.Bytes(ww.BytesWritten()),
				logger.Duration(duration.String()),
			)
		})
	}
}
