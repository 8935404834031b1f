package models

// CalendarEntry is the weekly running pattern of one service
// Days holds 7 "1"/"0" flags in GTFS order (Monday..Sunday)
type CalendarEntry struct {
	Days  []string `json:"days"`
	Start string   `json:"start"` // YYYYMMDD, inclusive
	End   string   `json:"end"`   // YYYYMMDD, inclusive
}

// CalendarData maps service_id -> CalendarEntry
type CalendarData map[string]CalendarEntry

// CalendarDateException overrides the weekly pattern on one date
// ExceptionType "1" adds service, anything else removes it
type CalendarDateException struct {
	ServiceID     string `json:"service_id"`
	Date          string `json:"date"`
	ExceptionType string `json:"exception_type"`
}

// ExtraData is the extra.json bundle
type ExtraData struct {
	Offices       map[string]string       `json:"offices"` // office_id -> display name
	CalendarDates []CalendarDateException `json:"calendar_dates"`
}
