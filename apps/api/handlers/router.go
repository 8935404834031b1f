package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

// RouterOptions configures NewRouter
type RouterOptions struct {
	AllowedOrigins []string
	StaticDir      string // served at / when set
	Clock          Clock

	// Middleware wraps every route, e.g. request metrics
	Middleware []func(http.Handler) http.Handler
	// MetricsHandler is mounted at /metrics when set
	MetricsHandler http.Handler
}

// Routes lists the registered endpoints for the startup log
var Routes = []string{
	"GET /api/stops",
	"GET /api/stops/search?minLat&maxLat&minLng&maxLng",
	"GET /api/stops/{stopId}",
	"GET /api/stops/{stopId}/timetable",
	"GET /api/stops/{stopId}/arrivals[?group=name]",
	"GET /api/buses[?minLat&maxLat&minLng&maxLng]",
	"GET /api/gtfs-rt/vehicle_positions.pb[?format=json]",
	"GET /api/trips/{routeId}/{tripId}",
	"GET /api/calendar",
	"GET /api/routes",
	"GET /api/extra",
	"GET /health",
	"GET /healthz",
}

// NewRouter builds the HTTP surface over one snapshot
func NewRouter(snap *schedule.Snapshot, opts RouterOptions) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	stopHandler := NewStopHandler(snap, opts.Clock)
	vehicleHandler := NewVehicleHandler(snap, opts.Clock)
	tripHandler := NewTripHandler(snap)
	referenceHandler := NewReferenceHandler(snap)
	healthHandler := NewHealthHandler(snap, snap.Source, snap.LoadedAt, opts.Clock)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Snapshot-Id"},
		MaxAge:         300,
	}))
	for _, mw := range opts.Middleware {
		r.Use(mw)
	}

	r.Get("/health", healthHandler.GetHealth)
	r.Get("/healthz", healthHandler.Healthz)
	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/stops", stopHandler.GetAllStops)
		r.Get("/stops/search", stopHandler.SearchStops)
		r.Get("/stops/{stopId}", stopHandler.GetStop)
		r.Get("/stops/{stopId}/timetable", stopHandler.GetStopTimetable)
		r.Get("/stops/{stopId}/arrivals", stopHandler.GetArrivals)

		r.Get("/buses", vehicleHandler.GetBuses)
		r.Get("/gtfs-rt/vehicle_positions.pb", vehicleHandler.GetVehicleFeed)

		r.Get("/trips/{routeId}/{tripId}", tripHandler.GetTripDetail)

		r.Get("/calendar", referenceHandler.GetCalendar)
		r.Get("/routes", referenceHandler.GetRoutes)
		r.Get("/extra", referenceHandler.GetExtra)
	})

	if opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
	}

	return r
}
