package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Parse reads a GTFS zip file and returns parsed data
func Parse(zipPath string) (*Data, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	return ParseZip(&r.Reader)
}

// ParseZip parses an already opened GTFS archive.
// stops.txt, trips.txt and stop_times.txt are required; other files are optional.
func ParseZip(r *zip.Reader) (*Data, error) {
	data := &Data{
		Shapes: make(map[string][]ShapePoint),
	}

	// Feeds are sometimes zipped with a top-level directory
	files := make(map[string]*zip.File)
	for _, f := range r.File {
		name := f.Name
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		files[name] = f
	}

	for _, required := range []string{"stops.txt", "trips.txt", "stop_times.txt"} {
		if _, ok := files[required]; !ok {
			return nil, fmt.Errorf("%s missing from feed", required)
		}
	}

	parsers := []struct {
		name     string
		required bool
		row      func(rec []string, idx map[string]int)
	}{
		{"agency.txt", false, func(rec []string, idx map[string]int) {
			data.Agency = append(data.Agency, Agency{
				AgencyID:   getField(rec, idx, "agency_id"),
				AgencyName: getField(rec, idx, "agency_name"),
				AgencyURL:  getField(rec, idx, "agency_url"),
			})
		}},
		{"routes.txt", false, func(rec []string, idx map[string]int) {
			routeType, _ := strconv.Atoi(getField(rec, idx, "route_type"))
			data.Routes = append(data.Routes, Route{
				RouteID:        getField(rec, idx, "route_id"),
				AgencyID:       getField(rec, idx, "agency_id"),
				RouteShortName: getField(rec, idx, "route_short_name"),
				RouteLongName:  getField(rec, idx, "route_long_name"),
				RouteType:      routeType,
				RouteColor:     getField(rec, idx, "route_color"),
				RouteTextColor: getField(rec, idx, "route_text_color"),
			})
		}},
		{"stops.txt", true, func(rec []string, idx map[string]int) {
			lat, _ := strconv.ParseFloat(getField(rec, idx, "stop_lat"), 64)
			lon, _ := strconv.ParseFloat(getField(rec, idx, "stop_lon"), 64)
			locType, _ := strconv.Atoi(getField(rec, idx, "location_type"))
			data.Stops = append(data.Stops, Stop{
				StopID:        getField(rec, idx, "stop_id"),
				StopCode:      getField(rec, idx, "stop_code"),
				StopName:      getField(rec, idx, "stop_name"),
				StopLat:       lat,
				StopLon:       lon,
				LocationType:  locType,
				ParentStation: getField(rec, idx, "parent_station"),
				PlatformCode:  getField(rec, idx, "platform_code"),
			})
		}},
		{"trips.txt", true, func(rec []string, idx map[string]int) {
			directionID, _ := strconv.Atoi(getField(rec, idx, "direction_id"))
			data.Trips = append(data.Trips, Trip{
				RouteID:      getField(rec, idx, "route_id"),
				ServiceID:    getField(rec, idx, "service_id"),
				TripID:       getField(rec, idx, "trip_id"),
				TripHeadsign: getField(rec, idx, "trip_headsign"),
				DirectionID:  directionID,
				ShapeID:      getField(rec, idx, "shape_id"),
				JPTripDesc:   getField(rec, idx, "jp_trip_desc"),
				JPOfficeID:   getField(rec, idx, "jp_office_id"),
			})
		}},
		{"stop_times.txt", true, func(rec []string, idx map[string]int) {
			seq, _ := strconv.Atoi(getField(rec, idx, "stop_sequence"))
			data.StopTimes = append(data.StopTimes, StopTime{
				TripID:        getField(rec, idx, "trip_id"),
				ArrivalTime:   getField(rec, idx, "arrival_time"),
				DepartureTime: getField(rec, idx, "departure_time"),
				StopID:        getField(rec, idx, "stop_id"),
				StopSequence:  seq,
			})
		}},
		{"shapes.txt", false, func(rec []string, idx map[string]int) {
			shapeID := getField(rec, idx, "shape_id")
			lat, _ := strconv.ParseFloat(getField(rec, idx, "shape_pt_lat"), 64)
			lon, _ := strconv.ParseFloat(getField(rec, idx, "shape_pt_lon"), 64)
			seq, _ := strconv.Atoi(getField(rec, idx, "shape_pt_sequence"))
			data.Shapes[shapeID] = append(data.Shapes[shapeID], ShapePoint{
				ShapeID:         shapeID,
				ShapePtLat:      lat,
				ShapePtLon:      lon,
				ShapePtSequence: seq,
			})
		}},
		{"calendar.txt", false, func(rec []string, idx map[string]int) {
			c := Calendar{
				ServiceID: getField(rec, idx, "service_id"),
				StartDate: getField(rec, idx, "start_date"),
				EndDate:   getField(rec, idx, "end_date"),
			}
			for i, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
				c.Days[i] = getField(rec, idx, day) == "1"
			}
			data.Calendar = append(data.Calendar, c)
		}},
		{"calendar_dates.txt", false, func(rec []string, idx map[string]int) {
			data.CalendarDates = append(data.CalendarDates, CalendarDate{
				ServiceID:     getField(rec, idx, "service_id"),
				Date:          getField(rec, idx, "date"),
				ExceptionType: getField(rec, idx, "exception_type"),
			})
		}},
		{"office_jp.txt", false, func(rec []string, idx map[string]int) {
			data.Offices = append(data.Offices, Office{
				OfficeID:   getField(rec, idx, "office_id"),
				OfficeName: getField(rec, idx, "office_name"),
			})
		}},
		{"translations.txt", false, func(rec []string, idx map[string]int) {
			t := Translation{
				TableName:   getField(rec, idx, "table_name"),
				FieldName:   getField(rec, idx, "field_name"),
				Language:    firstNonEmpty(getField(rec, idx, "language"), getField(rec, idx, "lang")),
				Translation: getField(rec, idx, "translation"),
				RecordID:    getField(rec, idx, "record_id"),
				FieldValue:  firstNonEmpty(getField(rec, idx, "field_value"), getField(rec, idx, "trans_id")),
			}
			data.Translations = append(data.Translations, t)
		}},
	}

	for _, p := range parsers {
		f, ok := files[p.name]
		if !ok {
			continue
		}
		if err := readCSV(f, p.row); err != nil {
			if p.required {
				return nil, fmt.Errorf("failed to parse %s: %w", p.name, err)
			}
			log.Printf("Warning: failed to parse %s: %v", p.name, err)
		}
	}

	for shapeID := range data.Shapes {
		points := data.Shapes[shapeID]
		sort.Slice(points, func(i, j int) bool {
			return points[i].ShapePtSequence < points[j].ShapePtSequence
		})
	}

	log.Printf("GTFS parsed: %d routes, %d stops, %d trips, %d shapes, %d services, %d offices",
		len(data.Routes), len(data.Stops), len(data.Trips), len(data.Shapes), len(data.Calendar), len(data.Offices))

	return data, nil
}

// readCSV calls row for every record after the header. Malformed records are skipped.
func readCSV(f *zip.File, row func(rec []string, idx map[string]int)) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	reader := bomAwareCSVReader(rc)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return err
	}

	idx := makeIndex(header)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			continue
		}
		row(record, idx)
	}
}

// bomAwareCSVReader strips a leading UTF-8/UTF-16 byte order mark, which
// several Japanese GTFS exports carry
func bomAwareCSVReader(r io.Reader) *csv.Reader {
	decoder := unicode.BOMOverride(encoding.Nop.NewDecoder())
	return csv.NewReader(transform.NewReader(r, decoder))
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
