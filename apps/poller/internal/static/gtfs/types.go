package gtfs

// Data represents all parsed GTFS (and GTFS-JP) data
type Data struct {
	Agency        []Agency
	Routes        []Route
	Stops         []Stop
	Trips         []Trip
	StopTimes     []StopTime
	Shapes        map[string][]ShapePoint // keyed by shape_id, sorted by sequence
	Calendar      []Calendar
	CalendarDates []CalendarDate
	Offices       []Office      // office_jp.txt
	Translations  []Translation // translations.txt
}

// Agency represents an agency from agency.txt
type Agency struct {
	AgencyID   string
	AgencyName string
	AgencyURL  string
}

// Route represents a route from routes.txt
type Route struct {
	RouteID        string
	AgencyID       string
	RouteShortName string
	RouteLongName  string
	RouteType      int
	RouteColor     string
	RouteTextColor string
}

// Stop represents a stop from stops.txt
type Stop struct {
	StopID        string
	StopCode      string
	StopName      string
	StopLat       float64
	StopLon       float64
	LocationType  int
	ParentStation string
	PlatformCode  string
}

// Trip represents a trip from trips.txt
type Trip struct {
	RouteID      string
	ServiceID    string
	TripID       string
	TripHeadsign string
	DirectionID  int
	ShapeID      string
	JPTripDesc   string // via text
	JPOfficeID   string
}

// ShapePoint represents a point from shapes.txt
type ShapePoint struct {
	ShapeID         string
	ShapePtLat      float64
	ShapePtLon      float64
	ShapePtSequence int
}

// StopTime represents a stop time from stop_times.txt
type StopTime struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int
}

// Calendar represents a row of calendar.txt
// Days is Monday..Sunday
type Calendar struct {
	ServiceID string
	Days      [7]bool
	StartDate string
	EndDate   string
}

// CalendarDate represents a row of calendar_dates.txt, in file order
type CalendarDate struct {
	ServiceID     string
	Date          string
	ExceptionType string
}

// Office represents a row of the GTFS-JP office_jp.txt
type Office struct {
	OfficeID   string
	OfficeName string
}

// Translation is one row of translations.txt. GTFS-JP v2 files only carry
// TransID (the translated text itself), Lang and Translation.
type Translation struct {
	TableName   string
	FieldName   string
	Language    string
	Translation string
	RecordID    string
	FieldValue  string
}
