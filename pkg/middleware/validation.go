package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodySize = 1 << 20

// ErrorResponse is the JSON error body used by the API.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ValidateRequest rejects non-JSON or empty POST/PUT bodies and caps body size.
func ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.Contains(ct, "application/json") {
				writeError(w, http.StatusUnsupportedMediaType, "expected application/json")
				return
			}
			if r.ContentLength == 0 {
				writeError(w, http.StatusBadRequest, "request body cannot be empty")
				return
			}
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		next.ServeHTTP(w, r)
	})
}

// HandleValidationError writes a 400 naming the first failing field.
func HandleValidationError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		resp.Field = verrs[0].Field()
		resp.Error = verrs[0].Field() + " failed on " + verrs[0].Tag()
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
