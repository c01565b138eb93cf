package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the HTTP surface,
// control-socket client and shared-memory facade. Use these keys
// consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// HTTP request/response
	// ========================================================================
	KeyRequestID  = "request_id"  // chi middleware request ID
	KeyMethod     = "method"      // HTTP method
	KeyPath       = "path"        // request URL path
	KeyRoute      = "route"       // matched chi route pattern
	KeyRemoteAddr = "remote_addr" // client address as seen by net/http
	KeyStatus     = "status"      // HTTP response status code
	KeyBytes      = "bytes"       // response bytes written
	KeyDuration   = "duration"    // operation duration

	// ========================================================================
	// Control socket (internal/ftl/socket)
	// ========================================================================
	KeySocketCommand = "socket_command" // command name sent to the resolver
	KeySocketPath    = "socket_path"    // UNIX socket path dialed

	// ========================================================================
	// Shared-memory snapshot (internal/ftl/snapshot)
	// ========================================================================
	KeySnapshotEpoch = "snapshot_epoch" // global_shm_counter value
	KeySegment       = "segment"        // shared-memory segment name

	// ========================================================================
	// History pipeline (internal/ftl/history)
	// ========================================================================
	KeyHistoryCursor = "history_cursor" // opaque pagination cursor
	KeyHistoryLimit  = "history_limit"  // requested page size

	// ========================================================================
	// Request-scoped LogContext fields (added by the *Ctx log functions)
	// ========================================================================
	KeyProcedure = "procedure" // LogContext.Procedure
	KeyShare     = "share"     // LogContext.Share
	KeyClientIP  = "client_ip" // client IP address (without port)
	KeyUID       = "uid"       // LogContext.UID
	KeyGID       = "gid"       // LogContext.GID

	// ========================================================================
	// Generic
	// ========================================================================
	KeyError  = "error"  // error string
	KeySource = "source" // origin of a logged fact (e.g. config source)
)

// TraceID returns the trace_id field.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns the span_id field.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// RequestID returns the request_id field.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Method returns the HTTP method field.
func Method(method string) slog.Attr {
	return slog.String(KeyMethod, method)
}

// Path returns the HTTP request path field.
func Path(path string) slog.Attr {
	return slog.String(KeyPath, path)
}

// Route returns the matched chi route pattern field.
func Route(route string) slog.Attr {
	return slog.String(KeyRoute, route)
}

// RemoteAddr returns the client remote address field.
func RemoteAddr(addr string) slog.Attr {
	return slog.String(KeyRemoteAddr, addr)
}

// HTTPStatus returns the HTTP response status field.
func HTTPStatus(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// Bytes returns the response byte count field.
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}

// Duration returns the operation duration field.
func Duration(d string) slog.Attr {
	return slog.String(KeyDuration, d)
}

// SocketCommand returns the control-socket command field.
func SocketCommand(name string) slog.Attr {
	return slog.String(KeySocketCommand, name)
}

// SocketPath returns the control-socket path field.
func SocketPath(path string) slog.Attr {
	return slog.String(KeySocketPath, path)
}

// SnapshotEpoch returns the global_shm_counter epoch field.
func SnapshotEpoch(epoch uint32) slog.Attr {
	return slog.Uint64(KeySnapshotEpoch, uint64(epoch))
}

// Segment returns the shared-memory segment name field.
func Segment(name string) slog.Attr {
	return slog.String(KeySegment, name)
}

// HistoryCursor returns the pagination cursor field.
func HistoryCursor(cursor string) slog.Attr {
	return slog.String(KeyHistoryCursor, cursor)
}

// HistoryLimit returns the requested page size field.
func HistoryLimit(limit int) slog.Attr {
	return slog.Int(KeyHistoryLimit, limit)
}

// Err returns the error field, or a no-op attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Source returns the generic source field.
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}
