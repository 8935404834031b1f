package models

import "errors"

// ShapeData is the precomputed path of one stop pattern
type ShapeData struct {
	Coordinates [][]float64 `json:"coordinates"`  // [lng, lat] pairs
	StopIndices []int       `json:"stop_indices"` // per pattern stop, nearest index into Coordinates
}

// ShapesData maps a persisted pattern key (stop ids joined with '|') -> ShapeData
type ShapesData map[string]ShapeData

// Validate checks stop indices are non-decreasing and point inside Coordinates
func (s *ShapeData) Validate(patternLen int) error {
	if len(s.StopIndices) != patternLen {
		return errors.New("stop_indices length must equal the pattern stop count")
	}
	prev := 0
	for _, idx := range s.StopIndices {
		if idx < prev {
			return errors.New("stop_indices must be non-decreasing")
		}
		if idx >= len(s.Coordinates) {
			return errors.New("stop_indices point past the last coordinate")
		}
		prev = idx
	}
	return nil
}
