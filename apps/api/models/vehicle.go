package models

// VehiclePosition is the simulated position of one running trip
type VehiclePosition struct {
	TripID    string    `json:"trip_id"`
	RouteID   string    `json:"route_id"`
	RouteName string    `json:"route_name"`
	Headsign  string    `json:"headsign"`
	Position  []float64 `json:"position"` // [lng, lat]
	Color     string    `json:"color"`

	// Derived from the shape, not from measurement
	Bearing  *float64 `json:"bearing,omitempty"` // degrees 0-360
	Progress float64  `json:"progress"`          // 0.0-1.0 along the trip's path
}

// Lat returns the latitude of the position
func (v *VehiclePosition) Lat() float64 {
	if len(v.Position) < 2 {
		return 0
	}
	return v.Position[1]
}

// Lng returns the longitude of the position
func (v *VehiclePosition) Lng() float64 {
	if len(v.Position) < 1 {
		return 0
	}
	return v.Position[0]
}

// Arrival is one scheduled call of a trip at a stop
type Arrival struct {
	Time      string `json:"time"` // HH:MM:SS as scheduled
	RouteID   string `json:"route_id"`
	RouteName string `json:"route_name"`
	Color     string `json:"color"`
	TripID    string `json:"trip_id"`
	Headsign  string `json:"headsign"`
	Via       string `json:"via"`
	Platform  string `json:"platform"`
	StopID    string `json:"stop_id"`
	IsPast    bool   `json:"is_past"`
}
