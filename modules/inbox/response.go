package inbox

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/propnotify/pkg/validator"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respond(w http.ResponseWriter, data any, meta map[string]any) {
	writeJSON(w, http.StatusOK, Envelope{Data: data, Meta: meta})
}

// errorResponse maps err to a status: validation failures are 422 with
// per-field details, HTTPError keeps its code, anything else is 500.
func errorResponse(err error) (int, Envelope) {
	if ve := validator.ExtractValidationErrors(err); ve != nil {
		details := make(map[string][]string, len(ve))
		for _, field := range ve.Fields() {
			details[field] = ve.Get(field)
		}
		return http.StatusUnprocessableEntity, Envelope{Error: &ErrorDetail{
			Code:    "validation_error",
			Message: "validation failed",
			Details: details,
		}}
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, Envelope{Error: &ErrorDetail{
			Code:    httpErr.Key,
			Message: http.StatusText(httpErr.Code),
		}}
	}

	return http.StatusInternalServerError, Envelope{Error: &ErrorDetail{
		Code:    ErrInternalError.Key,
		Message: http.StatusText(http.StatusInternalServerError),
	}}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
