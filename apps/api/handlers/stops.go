package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

// StopQueries is the part of the schedule snapshot the stop endpoints read
type StopQueries interface {
	Stops() models.StopsData
	GetStop(stopID string) (models.Stop, error)
	SearchStopsInBounds(b schedule.Bounds) models.StopsData
	StopTimetable(stopID string, now time.Time) (*schedule.StopTimetable, error)
	CoNamedStops(stopID string) ([]string, error)
	ArrivalsForStops(stopIDs []string, now time.Time) []models.Arrival
	Location() *time.Location
}

// StopHandler handles HTTP requests for stops, timetables and arrivals
type StopHandler struct {
	sched StopQueries
	clock Clock
}

// NewStopHandler creates a new handler. A nil clock means time.Now.
func NewStopHandler(sched StopQueries, clock Clock) *StopHandler {
	return &StopHandler{sched: sched, clock: clock}
}

// SearchStopsResponse is the JSON response for GET /api/stops/search
type SearchStopsResponse struct {
	Count int              `json:"count"`
	Stops models.StopsData `json:"stops"`
}

// StopResponse is the JSON response for GET /api/stops/{stopId}
type StopResponse struct {
	StopID string `json:"stop_id"`
	models.Stop
}

// StopTimetableResponse is the JSON response for GET /api/stops/{stopId}/timetable
type StopTimetableResponse struct {
	StopID     string                `json:"stop_id"`
	StopName   string                `json:"stop_name"`
	Timetables models.TimetablesData `json:"timetables"` // route_id -> trip_id -> TripInfo
	Arrivals   []models.Arrival      `json:"arrivals"`
}

// ArrivalsResponse is the JSON response for GET /api/stops/{stopId}/arrivals
type ArrivalsResponse struct {
	StopID      string           `json:"stop_id"`
	StopIDs     []string         `json:"stop_ids"`
	Arrivals    []models.Arrival `json:"arrivals"`
	Count       int              `json:"count"`
	CurrentTime string           `json:"current_time"` // HH:MM:SS in the network time zone
}

// GetAllStops handles GET /api/stops
func (h *StopHandler) GetAllStops(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cacheStatic, h.sched.Stops())
}

// SearchStops handles GET /api/stops/search?minLat&maxLat&minLng&maxLng
// All four parameters are required
func (h *StopHandler) SearchStops(w http.ResponseWriter, r *http.Request) {
	bounds, err := readBoundsQuery(r).parse()
	if err != nil {
		writeError(w, err, nil)
		return
	}

	stops := h.sched.SearchStopsInBounds(bounds)
	writeJSON(w, http.StatusOK, cacheStatic, SearchStopsResponse{
		Count: len(stops),
		Stops: stops,
	})
}

// GetStop handles GET /api/stops/{stopId}
func (h *StopHandler) GetStop(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopId")

	stop, err := h.sched.GetStop(stopID)
	if err != nil {
		writeError(w, err, map[string]interface{}{"stopId": stopID})
		return
	}

	writeJSON(w, http.StatusOK, cacheStatic, StopResponse{StopID: stopID, Stop: stop})
}

// GetStopTimetable handles GET /api/stops/{stopId}/timetable
// Timetables lists every trip calling at the stop on any day; Arrivals only today's
func (h *StopHandler) GetStopTimetable(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopId")

	tt, err := h.sched.StopTimetable(stopID, h.clock.now())
	if err != nil {
		writeError(w, err, map[string]interface{}{"stopId": stopID})
		return
	}

	writeJSON(w, http.StatusOK, cacheTimetable, StopTimetableResponse{
		StopID:     tt.StopID,
		StopName:   tt.StopName,
		Timetables: tt.Timetables,
		Arrivals:   tt.Arrivals,
	})
}

// GetArrivals handles GET /api/stops/{stopId}/arrivals[?group=name]
// With group=name, arrivals of every stop sharing the display name are merged
func (h *StopHandler) GetArrivals(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopId")

	stopIDs := []string{stopID}
	switch group := r.URL.Query().Get("group"); group {
	case "":
		if _, err := h.sched.GetStop(stopID); err != nil {
			writeError(w, err, map[string]interface{}{"stopId": stopID})
			return
		}
	case "name":
		ids, err := h.sched.CoNamedStops(stopID)
		if err != nil {
			writeError(w, err, map[string]interface{}{"stopId": stopID})
			return
		}
		stopIDs = ids
	default:
		writeError(w, &schedule.ValidationError{Field: "group", Reason: "must be empty or \"name\""}, nil)
		return
	}

	now := h.clock.now()
	arrivals := h.sched.ArrivalsForStops(stopIDs, now)

	writeJSON(w, http.StatusOK, cacheLive, ArrivalsResponse{
		StopID:      stopID,
		StopIDs:     stopIDs,
		Arrivals:    arrivals,
		Count:       len(arrivals),
		CurrentTime: schedule.FormatTimeHHMMSS(schedule.SecondsSinceMidnight(now.In(h.sched.Location()))),
	})
}
