package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TripStop is one (time-of-day, stop) entry of a trip
// Time is "HH:MM:SS" and may exceed 24:00:00 for post-midnight trips
type TripStop struct {
	Time   string `json:"time"`
	StopID string `json:"stop_id"`
}

// TripInfo is one scheduled trip
type TripInfo struct {
	Headsign  string     `json:"headsign"`
	ServiceID string     `json:"service_id"`
	OfficeID  string     `json:"office_id"`
	Via       string     `json:"via"`
	Stops     []TripStop `json:"stops"`
}

// TimetablesData maps route_id -> trip_id -> TripInfo
type TimetablesData map[string]map[string]TripInfo

// StopIDs returns the ordered stop identifiers of the trip
func (t *TripInfo) StopIDs() []string {
	ids := make([]string, len(t.Stops))
	for i, s := range t.Stops {
		ids[i] = s.StopID
	}
	return ids
}

// Validate checks the trip has at least two stops with well-formed,
// non-decreasing times
func (t *TripInfo) Validate() error {
	if len(t.Stops) < 2 {
		return errors.New("trip must have at least 2 stops")
	}

	prev := -1
	for i, s := range t.Stops {
		if s.StopID == "" {
			return fmt.Errorf("stop %d: stop_id is required", i)
		}
		sec, err := parseClock(s.Time)
		if err != nil {
			return fmt.Errorf("stop %d: %w", i, err)
		}
		if sec < prev {
			return fmt.Errorf("stop %d: time %s is earlier than the previous stop", i, s.Time)
		}
		prev = sec
	}
	return nil
}

// parseClock is the strict variant of schedule.TimeToSeconds used for validation
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM[:SS]", s)
	}
	total := 0
	mult := []int{3600, 60, 1}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		if i > 0 && n > 59 {
			return 0, fmt.Errorf("invalid time %q: minutes/seconds out of range", s)
		}
		total += n * mult[i]
	}
	return total, nil
}
