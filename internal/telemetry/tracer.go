package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for the telemetry-plane operations this API wraps (§4.D,
// §4.E, §4.F, §4.G, §4.H): shared-memory snapshot acquisition, the
// control-socket command protocol, and the history filter pipeline.
// Re-keyed from the teacher's filesystem-operation attribute set to this
// domain's operations.
const (
	// ========================================================================
	// Snapshot attributes (internal/ftl/snapshot)
	// ========================================================================
	AttrSnapshotEpoch   = "snapshot.epoch"
	AttrSnapshotStale   = "snapshot.stale"
	AttrSnapshotRetried = "snapshot.retried"

	// ========================================================================
	// Control-socket attributes (internal/ftl/socket)
	// ========================================================================
	AttrSocketCommand = "socket.command"
	AttrSocketPath    = "socket.path"

	// ========================================================================
	// History filter-pipeline attributes (internal/ftl/history)
	// ========================================================================
	AttrFilterPredicate = "filter.predicate"
	AttrFilterInCount   = "filter.in_count"
	AttrFilterOutCount  = "filter.out_count"
	AttrHistoryCursor   = "history.cursor"
	AttrHistoryLimit    = "history.limit"

	// ========================================================================
	// HTTP attributes (pkg/api)
	// ========================================================================
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.status_code"

	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP = "client.ip"
)

// Span names for the operations this API instruments.
const (
	SpanSnapshotWith   = "snapshot.with"
	SpanSocketCommand  = "socket.command"
	SpanHistoryList    = "history.list"
	SpanFilterPipeline = "history.filter_pipeline"
)

// SnapshotEpoch returns an attribute for the global_shm_counter epoch a
// snapshot was acquired under.
func SnapshotEpoch(epoch uint32) attribute.KeyValue {
	return attribute.Int64(AttrSnapshotEpoch, int64(epoch))
}

// SnapshotStale returns an attribute marking whether a snapshot acquisition
// hit a StaleSnapshot epoch change.
func SnapshotStale(stale bool) attribute.KeyValue {
	return attribute.Bool(AttrSnapshotStale, stale)
}

// SocketCommand returns an attribute for the control-socket command name
// (e.g. "stats", "querytypes", "dbstats").
func SocketCommand(name string) attribute.KeyValue {
	return attribute.String(AttrSocketCommand, name)
}

// FilterPredicate returns an attribute for a history filter predicate name.
func FilterPredicate(name string) attribute.KeyValue {
	return attribute.String(AttrFilterPredicate, name)
}

// HistoryLimit returns an attribute for a history page's requested limit.
func HistoryLimit(limit int) attribute.KeyValue {
	return attribute.Int(AttrHistoryLimit, limit)
}

// ClientIP returns an attribute for the requesting client's IP address.
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// HTTPRoute returns an attribute for the matched chi route pattern.
func HTTPRoute(route string) attribute.KeyValue {
	return attribute.String(AttrHTTPRoute, route)
}

// StartSnapshotSpan starts a span around one Facade.With/WithRetry
// invocation (§4.D).
func StartSnapshotSpan(ctx context.Context, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanSnapshotWith, trace.WithAttributes(attrs...))
}

// StartSocketSpan starts a span around one control-socket command (§4.E).
func StartSocketSpan(ctx context.Context, command string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{SocketCommand(command)}, attrs...)
	return StartSpan(ctx, SpanSocketCommand, trace.WithAttributes(allAttrs...))
}

// StartHistorySpan starts a span around one /api/history request, covering
// cursor decode, the filter pipeline and pagination (§4.F, §4.G).
func StartHistorySpan(ctx context.Context, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanHistoryList, trace.WithAttributes(attrs...))
}
