package handlers

import (
	"net/http"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
)

// ReferenceQueries exposes the bulk tables served verbatim
type ReferenceQueries interface {
	CalendarTable() models.CalendarData
	Routes() models.RoutesData
	Extra() models.ExtraData
}

// ReferenceHandler serves calendar, routes and extra data
type ReferenceHandler struct {
	sched ReferenceQueries
}

// NewReferenceHandler serves the route, stop and calendar tables of sched
func NewReferenceHandler(sched ReferenceQueries) *ReferenceHandler {
	return &ReferenceHandler{sched: sched}
}

// GetCalendar handles GET /api/calendar
func (h *ReferenceHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cacheStatic, h.sched.CalendarTable())
}

// GetRoutes handles GET /api/routes
func (h *ReferenceHandler) GetRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cacheStatic, h.sched.Routes())
}

// GetExtra handles GET /api/extra
func (h *ReferenceHandler) GetExtra(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, cacheStatic, h.sched.Extra())
}
