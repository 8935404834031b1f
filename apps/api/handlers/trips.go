package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

// TripQueries is the part of the snapshot the trip endpoint reads
type TripQueries interface {
	TripDetail(routeID, tripID string) (*schedule.TripDetail, error)
}

// TripHandler handles HTTP requests for trip details
type TripHandler struct {
	sched TripQueries
}

// NewTripHandler creates a new handler
func NewTripHandler(sched TripQueries) *TripHandler {
	return &TripHandler{sched: sched}
}

// TripDetailResponse is the JSON response for GET /api/trips/{routeId}/{tripId}
type TripDetailResponse struct {
	TripID     string            `json:"trip_id"`
	RouteID    string            `json:"route_id"`
	RouteName  string            `json:"route_name"`
	RouteColor string            `json:"route_color"`
	Trip       models.TripInfo   `json:"trip"`
	Stops      models.StopsData  `json:"stops"`
	Shape      *models.ShapeData `json:"shape"` // null when no geometry is known
	OfficeName string            `json:"office_name"`
}

// GetTripDetail handles GET /api/trips/{routeId}/{tripId}
func (h *TripHandler) GetTripDetail(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")
	tripID := chi.URLParam(r, "tripId")

	detail, err := h.sched.TripDetail(routeID, tripID)
	if err != nil {
		writeError(w, err, map[string]interface{}{
			"routeId": routeID,
			"tripId":  tripID,
		})
		return
	}

	writeJSON(w, http.StatusOK, cacheTimetable, TripDetailResponse{
		TripID:     detail.TripID,
		RouteID:    detail.RouteID,
		RouteName:  detail.Route.ShortName,
		RouteColor: detail.Route.Color,
		Trip:       detail.Trip,
		Stops:      detail.Stops,
		Shape:      detail.Shape,
		OfficeName: detail.OfficeName,
	})
}
