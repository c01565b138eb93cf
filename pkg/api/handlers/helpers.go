package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pihole/pihole-api/pkg/api"
)

// decodeJSONBody decodes a JSON request body into v, writing a 400
// Envelope and returning false on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		api.ValidationError(w, "body", "invalid JSON request body")
		return false
	}
	return true
}

// writeResult writes data on success or the apierror-mapped failure on err.
func writeResult(w http.ResponseWriter, status int, data any, err error) {
	if err != nil {
		api.Error(w, err)
		return
	}
	api.JSON(w, status, data)
}

// queryInt parses a query-string integer parameter, returning def when the
// parameter is absent or unparseable.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// queryBoolPtr parses an optional boolean query-string parameter, returning
// nil when the parameter is absent.
func queryBoolPtr(r *http.Request, key string) *bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}
