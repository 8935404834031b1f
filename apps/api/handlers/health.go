package handlers

import (
	"net/http"
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

// HealthQueries describes the loaded snapshot
type HealthQueries interface {
	Version() string
	Counts() schedule.Counts
	Location() *time.Location
	ActivePositions(now time.Time, bounds *schedule.Bounds) []models.VehiclePosition
}

// HealthHandler reports which snapshot is being served
type HealthHandler struct {
	sched    HealthQueries
	source   string
	loadedAt time.Time
	clock    Clock
}

// NewHealthHandler creates a new handler for a snapshot loaded from source at loadedAt
func NewHealthHandler(sched HealthQueries, source string, loadedAt time.Time, clock Clock) *HealthHandler {
	return &HealthHandler{sched: sched, source: source, loadedAt: loadedAt, clock: clock}
}

// GetHealth handles GET /health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	now := h.clock.now()
	counts := h.sched.Counts()

	response := models.SnapshotHealth{
		Status:         models.CalculateHealthStatus(counts),
		SnapshotID:     h.sched.Version(),
		Source:         h.source,
		LoadedAt:       h.loadedAt,
		AgeSeconds:     int(now.Sub(h.loadedAt).Seconds()),
		TimeZone:       h.sched.Location().String(),
		Counts:         counts,
		ActiveVehicles: len(h.sched.ActivePositions(now, nil)),
		Timestamp:      now.UTC(),
	}

	status := http.StatusOK
	if response.Status != models.StatusOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, "", response)
}

// Healthz handles GET /healthz for liveness probes
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
