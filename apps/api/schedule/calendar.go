package schedule

import (
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
)

// Calendars spanning at least this many days keep their weekly pattern
// outside [start, end]; shorter ones stop running at their bounds.
const staleCalendarSpanDays = 20

const dateLayout = "20060102"

type exceptionKey struct {
	serviceID string
	date      string
}

// CalendarResolver decides whether a service runs on a given date
type CalendarResolver struct {
	entries    models.CalendarData
	exceptions map[exceptionKey]string // -> exception_type
}

// NewCalendarResolver indexes the calendar and its date exceptions.
// When the same (service, date) appears more than once, the first entry wins.
func NewCalendarResolver(entries models.CalendarData, exceptions []models.CalendarDateException) *CalendarResolver {
	idx := make(map[exceptionKey]string, len(exceptions))
	for _, ex := range exceptions {
		key := exceptionKey{serviceID: ex.ServiceID, date: ex.Date}
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = ex.ExceptionType
	}
	if entries == nil {
		entries = models.CalendarData{}
	}
	return &CalendarResolver{entries: entries, exceptions: idx}
}

// IsServiceRunning reports whether serviceID runs on the calendar date of date.
// The date's own location decides the day; callers pass a time already in the
// network's time zone.
func (c *CalendarResolver) IsServiceRunning(serviceID string, date time.Time) bool {
	ymd := date.Format(dateLayout)

	if exType, ok := c.exceptions[exceptionKey{serviceID: serviceID, date: ymd}]; ok {
		return exType == "1"
	}

	cal, ok := c.entries[serviceID]
	if !ok {
		return false
	}

	// GTFS order: Monday=0 .. Sunday=6
	dayIdx := (int(date.Weekday()) + 6) % 7

	if ymd >= cal.Start && ymd <= cal.End && dayIdx < len(cal.Days) {
		return cal.Days[dayIdx] == "1"
	}

	startDate, err := time.Parse(dateLayout, cal.Start)
	if err != nil {
		return false
	}
	endDate, err := time.Parse(dateLayout, cal.End)
	if err != nil {
		return false
	}
	spanDays := endDate.Sub(startDate).Hours() / 24

	if spanDays >= staleCalendarSpanDays && dayIdx < len(cal.Days) {
		return cal.Days[dayIdx] == "1"
	}
	return false
}

// Entries returns the calendar table as loaded
func (c *CalendarResolver) Entries() models.CalendarData {
	return c.entries
}
