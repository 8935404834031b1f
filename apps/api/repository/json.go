package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

// Snapshot file names inside a data directory
const (
	StopsFile      = "stops.json"
	RoutesFile     = "routes.json"
	TimetablesFile = "timetables.json"
	ShapesFile     = "shapes.json"
	CalendarFile   = "calendar.json"
	ExtraFile      = "extra.json"
)

// JSONSource reads a snapshot from a directory of JSON files.
// Every file must exist and decode.
type JSONSource struct {
	dir string
}

// NewJSONSource creates a JSONSource rooted at dir
func NewJSONSource(dir string) *JSONSource {
	return &JSONSource{dir: dir}
}

func (s *JSONSource) Name() string { return "json" }

func (s *JSONSource) Close() error { return nil }

// LoadTables decodes every snapshot file
func (s *JSONSource) LoadTables(ctx context.Context) (schedule.Tables, error) {
	var t schedule.Tables

	files := []struct {
		name string
		dest any
	}{
		{StopsFile, &t.Stops},
		{RoutesFile, &t.Routes},
		{TimetablesFile, &t.Timetables},
		{ShapesFile, &t.Shapes},
		{CalendarFile, &t.Calendar},
		{ExtraFile, &t.Extra},
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return schedule.Tables{}, err
		}
		if err := s.readFile(f.name, f.dest); err != nil {
			return schedule.Tables{}, &LoadError{Source: s.Name(), Table: f.name, Err: err}
		}
	}
	return t, nil
}

func (s *JSONSource) readFile(name string, dest any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
