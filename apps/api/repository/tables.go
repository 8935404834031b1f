package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

// rowScanner is the common subset of *sql.Rows and pgx.Rows
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// queryFunc runs a parameterless query; release must be called once rows are drained
type queryFunc func(ctx context.Context, query string) (rows rowScanner, release func(), err error)

// Queries shared by the SQLite and PostgreSQL sources. The schema lives with
// the import-gtfs writer.
const (
	selectStops = `
		SELECT stop_id, name, yomi, lat, lng, platform
		FROM stops`

	selectRoutes = `
		SELECT route_id, short_name, color
		FROM routes`

	selectTrips = `
		SELECT route_id, trip_id, headsign, via, service_id, office_id
		FROM trips`

	selectStopTimes = `
		SELECT route_id, trip_id, time, stop_id
		FROM stop_times
		ORDER BY route_id, trip_id, stop_sequence`

	selectShapes = `
		SELECT pattern_key, coordinates, stop_indices
		FROM shapes`

	selectCalendar = `
		SELECT service_id, days, start_date, end_date
		FROM calendar`

	selectCalendarDates = `
		SELECT service_id, date, exception_type
		FROM calendar_dates
		ORDER BY seq`

	selectOffices = `
		SELECT office_id, name
		FROM offices`
)

// readTables loads the full snapshot through query
func readTables(ctx context.Context, source string, query queryFunc) (schedule.Tables, error) {
	t := schedule.Tables{
		Stops:      models.StopsData{},
		Routes:     models.RoutesData{},
		Timetables: models.TimetablesData{},
		Shapes:     models.ShapesData{},
		Calendar:   models.CalendarData{},
		Extra: models.ExtraData{
			Offices:       map[string]string{},
			CalendarDates: []models.CalendarDateException{},
		},
	}

	each := func(table, q string, scan func(rowScanner) error) error {
		rows, release, err := query(ctx, q)
		if err != nil {
			return &LoadError{Source: source, Table: table, Err: err}
		}
		defer release()

		for rows.Next() {
			if err := scan(rows); err != nil {
				return &LoadError{Source: source, Table: table, Err: err}
			}
		}
		if err := rows.Err(); err != nil {
			return &LoadError{Source: source, Table: table, Err: err}
		}
		return nil
	}

	if err := each("stops", selectStops, func(r rowScanner) error {
		var id string
		var s models.Stop
		if err := r.Scan(&id, &s.Name, &s.Yomi, &s.Lat, &s.Lng, &s.Platform); err != nil {
			return err
		}
		t.Stops[id] = s
		return nil
	}); err != nil {
		return schedule.Tables{}, err
	}

	if err := each("routes", selectRoutes, func(r rowScanner) error {
		var id string
		var route models.Route
		if err := r.Scan(&id, &route.ShortName, &route.Color); err != nil {
			return err
		}
		t.Routes[id] = route
		return nil
	}); err != nil {
		return schedule.Tables{}, err
	}

	if err := each("trips", selectTrips, func(r rowScanner) error {
		var routeID, tripID string
		var trip models.TripInfo
		if err := r.Scan(&routeID, &tripID, &trip.Headsign, &trip.Via, &trip.ServiceID, &trip.OfficeID); err != nil {
			return err
		}
		if t.Timetables[routeID] == nil {
			t.Timetables[routeID] = map[string]models.TripInfo{}
		}
		trip.Stops = []models.TripStop{}
		t.Timetables[routeID][tripID] = trip
		return nil
	}); err != nil {
		return schedule.Tables{}, err
	}

	if err := each("stop_times", selectStopTimes, func(r rowScanner) error {
		var routeID, tripID string
		var st models.TripStop
		if err := r.Scan(&routeID, &tripID, &st.Time, &st.StopID); err != nil {
			return err
		}
		trip, ok := t.Timetables[routeID][tripID]
		if !ok {
			return fmt.Errorf("stop time for unknown trip %s/%s", routeID, tripID)
		}
		trip.Stops = append(trip.Stops, st)
		t.Timetables[routeID][tripID] = trip
		return nil
	}); err != nil {
		return schedule.Tables{}, err
	}

	if err := each("shapes", selectShapes, func(r rowScanner) error {
		var key, coords, indices string
		if err := r.Scan(&key, &coords, &indices); err != nil {
			return err
		}
		var shape models.ShapeData
		if err := json.Unmarshal([]byte(coords), &shape.Coordinates); err != nil {
			return fmt.Errorf("shape %q coordinates: %w", key, err)
		}
		if err := json.Unmarshal([]byte(indices), &shape.StopIndices); err != nil {
			return fmt.Errorf("shape %q stop_indices: %w", key, err)
		}
		t.Shapes[key] = shape
		return nil
	}); err != nil {
		return schedule.Tables{}, err
	}

	if err := each("calendar", selectCalendar, func(r rowScanner) error {
		var id, days string
		var entry models.CalendarEntry
		if err := r.Scan(&id, &days, &entry.Start, &entry.End); err != nil {
			return err
		}
		if len(days) != 7 {
			return fmt.Errorf("service %q: days must have 7 flags, got %q", id, days)
		}
		entry.Days = strings.Split(days, "")
		t.Calendar[id] = entry
		return nil
	}); err != nil {
		return schedule.Tables{}, err
	}

	if err := each("calendar_dates", selectCalendarDates, func(r rowScanner) error {
		var ex models.CalendarDateException
		if err := r.Scan(&ex.ServiceID, &ex.Date, &ex.ExceptionType); err != nil {
			return err
		}
		t.Extra.CalendarDates = append(t.Extra.CalendarDates, ex)
		return nil
	}); err != nil {
		return schedule.Tables{}, err
	}

	if err := each("offices", selectOffices, func(r rowScanner) error {
		var id, name string
		if err := r.Scan(&id, &name); err != nil {
			return err
		}
		t.Extra.Offices[id] = name
		return nil
	}); err != nil {
		return schedule.Tables{}, err
	}

	return t, nil
}
