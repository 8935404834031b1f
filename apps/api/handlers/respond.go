package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

// Cache policies. Reference data only changes on restart; positions move every second.
const (
	cacheLive      = "public, max-age=15, stale-while-revalidate=10"
	cacheTimetable = "public, max-age=60, stale-while-revalidate=30"
	cacheStatic    = "public, max-age=3600"
)

// ErrorResponse is the JSON error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Clock returns the current instant; handlers take one so tests can pin "now"
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

func writeJSON(w http.ResponseWriter, status int, cacheControl string, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if cacheControl != "" {
		w.Header().Set("Cache-Control", cacheControl)
		w.Header().Set("Vary", "Accept-Encoding")
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeError maps the engine's error taxonomy onto HTTP status codes
func writeError(w http.ResponseWriter, err error, details map[string]interface{}) {
	var ve *schedule.ValidationError
	switch {
	case errors.As(err, &ve):
		if details == nil {
			details = map[string]interface{}{}
		}
		if ve.Field != "" {
			details["field"] = ve.Field
		}
		writeJSON(w, http.StatusBadRequest, "", ErrorResponse{Error: ve.Error(), Details: details})
	case errors.Is(err, schedule.ErrNotFound):
		writeJSON(w, http.StatusNotFound, "", ErrorResponse{Error: err.Error(), Details: details})
	default:
		log.Printf("Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, "", ErrorResponse{
			Error: "Internal server error",
			Details: map[string]interface{}{
				"internal": err.Error(),
			},
		})
	}
}
