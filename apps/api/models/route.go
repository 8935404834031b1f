package models

// Route is the display information of one route from routes.json
type Route struct {
	ShortName string `json:"short_name"`
	Color     string `json:"color"` // hex without '#'
}

// RoutesData maps route_id -> Route
type RoutesData map[string]Route
