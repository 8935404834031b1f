package schedule

import (
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
)

// ActivePositions returns one simulated position per trip running at now.
// When bounds is non-nil only vehicles inside it are returned.
// Output order is unspecified.
func (s *Snapshot) ActivePositions(now time.Time, bounds *Bounds) []models.VehiclePosition {
	now = s.local(now)
	nowSec := SecondsSinceMidnight(now)

	result := []models.VehiclePosition{}

	for routeID, trips := range s.tables.Timetables {
		for tripID, trip := range trips {
			if !s.calendar.IsServiceRunning(trip.ServiceID, now) {
				continue
			}

			stops := trip.Stops
			if len(stops) < 2 {
				continue
			}

			startSec := TimeToSeconds(stops[0].Time)
			endSec := TimeToSeconds(stops[len(stops)-1].Time)
			if nowSec < startSec || nowSec > endSec {
				continue
			}

			shape, ok := s.geometry.Lookup(PatternKeyForTrip(&trip))
			if !ok {
				continue
			}

			pos, ok := Interpolate(&trip, nowSec, shape)
			if !ok {
				continue
			}
			if bounds != nil && !bounds.Contains(pos.Lat, pos.Lng) {
				continue
			}

			route := s.tables.Routes[routeID]
			vp := models.VehiclePosition{
				TripID:    tripID,
				RouteID:   routeID,
				RouteName: route.ShortName,
				Headsign:  trip.Headsign,
				Position:  pos.Coordinates(),
				Color:     route.Color,
				Progress:  shapeProgress(shape, pos.Index),
			}
			if bearing, ok := shapeBearing(shape, pos.Index); ok {
				vp.Bearing = &bearing
			}
			result = append(result, vp)
		}
	}

	return result
}
