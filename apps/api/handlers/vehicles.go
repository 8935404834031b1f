package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

// VehicleQueries is the part of the snapshot the vehicle endpoints read
type VehicleQueries interface {
	ActivePositions(now time.Time, bounds *schedule.Bounds) []models.VehiclePosition
	Version() string
}

// VehicleHandler handles HTTP requests for simulated bus positions
type VehicleHandler struct {
	sched VehicleQueries
	clock Clock
}

// NewVehicleHandler creates a new handler. A nil clock means time.Now.
func NewVehicleHandler(sched VehicleQueries, clock Clock) *VehicleHandler {
	return &VehicleHandler{sched: sched, clock: clock}
}

// BusesResponse is the JSON response for GET /api/buses
type BusesResponse struct {
	Count     int                      `json:"count"`
	Buses     []models.VehiclePosition `json:"buses"`
	Timestamp int64                    `json:"timestamp"` // unix seconds
}

// GetBuses handles GET /api/buses
// Bounds are applied only when all four of minLat, maxLat, minLng, maxLng are given
func (h *VehicleHandler) GetBuses(w http.ResponseWriter, r *http.Request) {
	now := h.clock.now()

	var buses []models.VehiclePosition
	if q := readBoundsQuery(r); q.complete() {
		bounds, err := q.parse()
		if err != nil {
			writeError(w, err, nil)
			return
		}
		buses = h.sched.ActivePositions(now, &bounds)
		log.Printf("/api/buses bounds: minLat=%f maxLat=%f minLng=%f maxLng=%f -> returned=%d",
			bounds.MinLat, bounds.MaxLat, bounds.MinLng, bounds.MaxLng, len(buses))
	} else {
		buses = h.sched.ActivePositions(now, nil)
	}

	writeJSON(w, http.StatusOK, cacheLive, BusesResponse{
		Count:     len(buses),
		Buses:     buses,
		Timestamp: now.Unix(),
	})
}
