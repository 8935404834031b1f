package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
)

// StopTimetable is the timetable view of one stop
type StopTimetable struct {
	StopID     string
	StopName   string
	Timetables models.TimetablesData // every trip calling at the stop, any day
	Arrivals   []models.Arrival      // today's calls, sorted by time
}

type tripStopKey struct {
	routeID string
	tripID  string
	stopID  string
}

// ArrivalsForStops returns today's calls at any of stopIDs, sorted by time.
// A trip contributes at most one arrival per stop id.
func (s *Snapshot) ArrivalsForStops(stopIDs []string, now time.Time) []models.Arrival {
	now = s.local(now)
	nowSec := SecondsSinceMidnight(now)

	targets := make(map[string]struct{}, len(stopIDs))
	for _, id := range stopIDs {
		targets[id] = struct{}{}
	}

	type timed struct {
		sec int
		arr models.Arrival
	}
	var found []timed
	seen := make(map[tripStopKey]struct{})

	for routeID, trips := range s.tables.Timetables {
		route := s.tables.Routes[routeID]
		for tripID, trip := range trips {
			checked, running := false, false
			for _, ts := range trip.Stops {
				if _, ok := targets[ts.StopID]; !ok {
					continue
				}
				if !checked {
					running = s.calendar.IsServiceRunning(trip.ServiceID, now)
					checked = true
				}
				if !running {
					break
				}
				key := tripStopKey{routeID: routeID, tripID: tripID, stopID: ts.StopID}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}

				sec := TimeToSeconds(ts.Time)
				found = append(found, timed{sec: sec, arr: models.Arrival{
					Time:      ts.Time,
					RouteID:   routeID,
					RouteName: route.ShortName,
					Color:     route.Color,
					TripID:    tripID,
					Headsign:  trip.Headsign,
					Via:       trip.Via,
					Platform:  s.tables.Stops[ts.StopID].Platform,
					StopID:    ts.StopID,
					IsPast:    sec < nowSec,
				}})
			}
		}
	}

	// Map iteration is random; tie-break so equal times are stable across calls
	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if a.sec != b.sec {
			return a.sec < b.sec
		}
		if a.arr.RouteID != b.arr.RouteID {
			return a.arr.RouteID < b.arr.RouteID
		}
		if a.arr.TripID != b.arr.TripID {
			return a.arr.TripID < b.arr.TripID
		}
		return a.arr.StopID < b.arr.StopID
	})

	arrivals := make([]models.Arrival, len(found))
	for i, f := range found {
		arrivals[i] = f.arr
	}
	return arrivals
}

// TripsTouchingStops returns every trip whose stop list contains any of
// stopIDs, grouped route -> trip, regardless of calendar
func (s *Snapshot) TripsTouchingStops(stopIDs []string) models.TimetablesData {
	targets := make(map[string]struct{}, len(stopIDs))
	for _, id := range stopIDs {
		targets[id] = struct{}{}
	}

	result := make(models.TimetablesData)
	for routeID, trips := range s.tables.Timetables {
		for tripID, trip := range trips {
			for _, ts := range trip.Stops {
				if _, ok := targets[ts.StopID]; !ok {
					continue
				}
				if result[routeID] == nil {
					result[routeID] = make(map[string]models.TripInfo)
				}
				result[routeID][tripID] = trip
				break
			}
		}
	}
	return result
}

// StopTimetable builds the timetable of one stop
func (s *Snapshot) StopTimetable(stopID string, now time.Time) (*StopTimetable, error) {
	stop, ok := s.tables.Stops[stopID]
	if !ok {
		return nil, fmt.Errorf("stop %q: %w", stopID, ErrNotFound)
	}

	ids := []string{stopID}
	return &StopTimetable{
		StopID:     stopID,
		StopName:   stop.Name,
		Timetables: s.TripsTouchingStops(ids),
		Arrivals:   s.ArrivalsForStops(ids, now),
	}, nil
}
