package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
)

// Tables is the raw content of a schedule snapshot, as persisted
type Tables struct {
	Stops      models.StopsData
	Routes     models.RoutesData
	Timetables models.TimetablesData
	Shapes     models.ShapesData
	Calendar   models.CalendarData
	Extra      models.ExtraData
}

// Counts summarises the size of a snapshot
type Counts = models.SnapshotCounts

// Snapshot is the read-only schedule every query runs against.
// It is built once and never mutated, so concurrent readers need no locking.
type Snapshot struct {
	ID       uuid.UUID
	LoadedAt time.Time
	Source   string

	location   *time.Location
	tables     Tables
	calendar   *CalendarResolver
	geometry   *GeometryIndex
	nameGroups map[string][]string // folded stop name -> stop ids
	counts     Counts
}

// NewSnapshot indexes the tables. loc is the network's time zone used for
// "today" and "now"; nil means time.Local.
func NewSnapshot(t Tables, source string, loc *time.Location) *Snapshot {
	if loc == nil {
		loc = time.Local
	}
	if t.Stops == nil {
		t.Stops = models.StopsData{}
	}
	if t.Routes == nil {
		t.Routes = models.RoutesData{}
	}
	if t.Timetables == nil {
		t.Timetables = models.TimetablesData{}
	}
	if t.Shapes == nil {
		t.Shapes = models.ShapesData{}
	}
	if t.Calendar == nil {
		t.Calendar = models.CalendarData{}
	}
	if t.Extra.Offices == nil {
		t.Extra.Offices = map[string]string{}
	}
	if t.Extra.CalendarDates == nil {
		t.Extra.CalendarDates = []models.CalendarDateException{}
	}

	s := &Snapshot{
		ID:         uuid.New(),
		LoadedAt:   time.Now().UTC(),
		Source:     source,
		location:   loc,
		tables:     t,
		calendar:   NewCalendarResolver(t.Calendar, t.Extra.CalendarDates),
		geometry:   NewGeometryIndex(t.Shapes),
		nameGroups: buildNameGroups(t.Stops),
	}

	trips := 0
	for _, routeTrips := range t.Timetables {
		trips += len(routeTrips)
	}
	s.counts = Counts{
		Stops:      len(t.Stops),
		Routes:     len(t.Routes),
		Trips:      trips,
		Shapes:     s.geometry.Len(),
		Services:   len(t.Calendar),
		Exceptions: len(t.Extra.CalendarDates),
		Offices:    len(t.Extra.Offices),
	}
	return s
}

// Version identifies this snapshot instance
func (s *Snapshot) Version() string { return s.ID.String() }

// Location returns the time zone "today" is evaluated in
func (s *Snapshot) Location() *time.Location { return s.location }

// Counts returns table sizes
func (s *Snapshot) Counts() Counts { return s.counts }

// Calendar returns the calendar resolver
func (s *Snapshot) Calendar() *CalendarResolver { return s.calendar }

// Geometry returns the geometry index
func (s *Snapshot) Geometry() *GeometryIndex { return s.geometry }

// Stops returns the full stop table
func (s *Snapshot) Stops() models.StopsData { return s.tables.Stops }

// Routes returns the full route table
func (s *Snapshot) Routes() models.RoutesData { return s.tables.Routes }

// CalendarTable returns the full calendar table
func (s *Snapshot) CalendarTable() models.CalendarData { return s.calendar.Entries() }

// Extra returns offices and calendar exceptions
func (s *Snapshot) Extra() models.ExtraData { return s.tables.Extra }

// Timetables returns the nested route -> trip table
func (s *Snapshot) Timetables() models.TimetablesData { return s.tables.Timetables }

// GetStop returns one stop by id
func (s *Snapshot) GetStop(stopID string) (models.Stop, error) {
	stop, ok := s.tables.Stops[stopID]
	if !ok {
		return models.Stop{}, fmt.Errorf("stop %q: %w", stopID, ErrNotFound)
	}
	return stop, nil
}

// SearchStopsInBounds returns every stop inside b
func (s *Snapshot) SearchStopsInBounds(b Bounds) models.StopsData {
	result := make(models.StopsData)
	for stopID, stop := range s.tables.Stops {
		if b.Contains(stop.Lat, stop.Lng) {
			result[stopID] = stop
		}
	}
	return result
}

// local converts now into the network time zone
func (s *Snapshot) local(now time.Time) time.Time {
	return now.In(s.location)
}
