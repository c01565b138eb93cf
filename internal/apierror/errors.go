// Package apierror defines the typed error kinds surfaced by the telemetry
// plane and the HTTP status mapping used to translate them.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind enumerates the error categories defined by the error handling design.
type Kind string

const (
	KindUnauthorized          Kind = "Unauthorized"
	KindBadRequest            Kind = "BadRequest"
	KindNotFound              Kind = "NotFound"
	KindInvalidSettingValue   Kind = "InvalidSettingValue"
	KindSharedMemoryOpenError Kind = "SharedMemoryOpenError"
	KindSharedMemoryReadError Kind = "SharedMemoryReadError"
	KindSharedMemoryLockError Kind = "SharedMemoryLockError"
	KindStaleSnapshot         Kind = "StaleSnapshot"
	KindFtlConnectionFail     Kind = "FtlConnectionFail"
	KindFtlReadError          Kind = "FtlReadError"
	KindFtlEOM                Kind = "FtlEOM" // internal only, never reaches a handler
	KindRestartDNSError       Kind = "RestartDnsError"
	KindUnknown               Kind = "Unknown"
)

// httpStatus maps each Kind to the HTTP status code a handler should write.
var httpStatus = map[Kind]int{
	KindUnauthorized:          http.StatusUnauthorized,
	KindBadRequest:            http.StatusBadRequest,
	KindNotFound:              http.StatusNotFound,
	KindInvalidSettingValue:   http.StatusBadRequest,
	KindSharedMemoryOpenError: http.StatusInternalServerError,
	KindSharedMemoryReadError: http.StatusInternalServerError,
	KindSharedMemoryLockError: http.StatusInternalServerError,
	KindStaleSnapshot:         http.StatusInternalServerError,
	KindFtlConnectionFail:     http.StatusBadGateway,
	KindFtlReadError:          http.StatusBadGateway,
	KindRestartDNSError:       http.StatusInternalServerError,
	KindUnknown:               http.StatusInternalServerError,
}

// Error is the typed error returned by every core component. Handlers never
// construct these directly from scratch; they wrap a lower-level cause with
// the appropriate Kind via New or Wrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Status returns the HTTP status code for this error's Kind.
func (e *Error) Status() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// New builds an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error that chains a lower-level cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, otherwise
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status that should be written for err.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status()
	}
	return http.StatusInternalServerError
}

// IsStale reports whether err is a StaleSnapshot error, the one Kind that
// callers are expected to retry once before surfacing.
func IsStale(err error) bool {
	return KindOf(err) == KindStaleSnapshot
}
