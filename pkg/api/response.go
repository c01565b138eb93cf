package api

import (
	"encoding/json"
	"net/http"

	"github.com/pihole/pihole-api/internal/apierror"
)

// FieldError names one entry of the "errors" array in a failed response,
// grounded on the teacher's RFC7807 problem.go but switched to the key/
// message pair the HTTP surface reports instead of a problem document.
type FieldError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Envelope is the JSON shape every pihole-api route returns: `{data, errors}`
// on success, `{data: null, errors: [...]}` on failure.
type Envelope struct {
	Data   interface{}  `json:"data"`
	Errors []FieldError `json:"errors"`
}

// JSON writes an Envelope carrying data and no errors.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	writeEnvelope(w, status, Envelope{Data: data, Errors: []FieldError{}})
}

// Error writes an Envelope carrying a single error derived from err, using
// apierror.StatusOf to pick the HTTP status when err is not already an
// *apierror.Error.
func Error(w http.ResponseWriter, err error) {
	status := apierror.StatusOf(err)
	kind := apierror.KindOf(err)

	writeEnvelope(w, status, Envelope{
		Data: nil,
		Errors: []FieldError{
			{Key: string(kind), Message: err.Error()},
		},
	})
}

// ValidationError writes a 400 Envelope naming the offending field.
func ValidationError(w http.ResponseWriter, field, message string) {
	writeEnvelope(w, http.StatusBadRequest, Envelope{
		Data:   nil,
		Errors: []FieldError{{Key: field, Message: message}},
	})
}

// Unauthorized writes a 401 Envelope naming the offending field.
func Unauthorized(w http.ResponseWriter, field, message string) {
	writeEnvelope(w, http.StatusUnauthorized, Envelope{
		Data:   nil,
		Errors: []FieldError{{Key: field, Message: message}},
	})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	if env.Errors == nil {
		env.Errors = []FieldError{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(env); err != nil {
		http.Error(w, `{"data":null,"errors":[{"key":"internal","message":"failed to encode response"}]}`, http.StatusInternalServerError)
	}
}
