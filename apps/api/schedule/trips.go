package schedule

import (
	"fmt"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
)

// TripDetail is everything the map needs to draw one trip
type TripDetail struct {
	RouteID    string
	TripID     string
	Route      models.Route
	Trip       models.TripInfo
	Stops      models.StopsData  // stops the trip calls at
	Shape      *models.ShapeData // nil when no geometry is known
	OfficeName string
}

// TripDetail looks up one trip under its route
func (s *Snapshot) TripDetail(routeID, tripID string) (*TripDetail, error) {
	routeTrips, ok := s.tables.Timetables[routeID]
	if !ok {
		return nil, fmt.Errorf("route %q: %w", routeID, ErrNotFound)
	}
	trip, ok := routeTrips[tripID]
	if !ok {
		return nil, fmt.Errorf("trip %q on route %q: %w", tripID, routeID, ErrNotFound)
	}

	stops := make(models.StopsData, len(trip.Stops))
	for _, ts := range trip.Stops {
		if stop, exists := s.tables.Stops[ts.StopID]; exists {
			stops[ts.StopID] = stop
		}
	}

	shape, _ := s.geometry.Lookup(PatternKeyForTrip(&trip))

	return &TripDetail{
		RouteID:    routeID,
		TripID:     tripID,
		Route:      s.tables.Routes[routeID],
		Trip:       trip,
		Stops:      stops,
		Shape:      shape,
		OfficeName: s.tables.Extra.Offices[trip.OfficeID],
	}, nil
}
