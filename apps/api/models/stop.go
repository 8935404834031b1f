package models

import "errors"

// Stop is one bus stop from stops.json
// Immutable after the snapshot is loaded
type Stop struct {
	Name     string  `json:"name"`
	Yomi     string  `json:"yomi"` // phonetic reading
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Platform string  `json:"platform"` // may be empty
}

// StopsData maps stop_id -> Stop
type StopsData map[string]Stop

// Validate checks the stop carries a name and a coordinate inside WGS84 bounds
func (s *Stop) Validate() error {
	if s.Name == "" {
		return errors.New("stop name is required")
	}
	if s.Lat < -90 || s.Lat > 90 {
		return errors.New("latitude out of range: must be between -90 and 90")
	}
	if s.Lng < -180 || s.Lng > 180 {
		return errors.New("longitude out of range: must be between -180 and 180")
	}
	return nil
}
