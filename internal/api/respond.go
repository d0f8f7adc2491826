package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"hospitality-ops/internal/apperr"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto its HTTP status. Errors that carry details (a
// failed send that was still saved) use the details as the response body.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.CodeOf(err)
	status := apperr.HTTPStatus(code)

	if status == http.StatusInternalServerError {
		a.log.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, status, map[string]string{"error": "internal server error", "code": string(code)})
		return
	}

	if details := apperr.DetailsOf(err); details != nil {
		writeJSON(w, status, details)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "code": string(code)})
}

// decodeJSON reads a JSON body into v. Any malformed body is invalid input.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InvalidInput("request body is required")
		}
		return apperr.InvalidInput("bad request body")
	}
	return nil
}
