// Package snapshot turns a parsed GTFS(-JP) feed into the schedule tables the
// API serves, and persists them.
package snapshot

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/static/gtfs"
)

// yomiLanguage is the GTFS-JP language tag for kana readings
const yomiLanguage = "ja-Hrkt"

// Report counts what Build dropped
type Report struct {
	SkippedTrips    int // fewer than 2 stop times
	StraightShapes  int // patterns without a usable shapes.txt entry
	ParentStations  int
	UnknownStopRefs int
}

// Build converts a feed into snapshot tables
func Build(data *gtfs.Data) (schedule.Tables, Report) {
	var report Report

	t := schedule.Tables{
		Stops:      models.StopsData{},
		Routes:     models.RoutesData{},
		Timetables: models.TimetablesData{},
		Shapes:     models.ShapesData{},
		Calendar:   models.CalendarData{},
		Extra: models.ExtraData{
			Offices:       map[string]string{},
			CalendarDates: []models.CalendarDateException{},
		},
	}

	yomiByID, yomiByName := stopReadings(data.Translations)

	for _, s := range data.Stops {
		if s.LocationType != 0 {
			report.ParentStations++
			continue
		}
		yomi := yomiByID[s.StopID]
		if yomi == "" {
			yomi = yomiByName[s.StopName]
		}
		t.Stops[s.StopID] = models.Stop{
			Name:     s.StopName,
			Yomi:     yomi,
			Lat:      s.StopLat,
			Lng:      s.StopLon,
			Platform: s.PlatformCode,
		}
	}

	for _, r := range data.Routes {
		name := r.RouteShortName
		if name == "" {
			name = r.RouteLongName
		}
		t.Routes[r.RouteID] = models.Route{
			ShortName: name,
			Color:     strings.ToUpper(strings.TrimPrefix(r.RouteColor, "#")),
		}
	}

	stopTimes := make(map[string][]gtfs.StopTime)
	for _, st := range data.StopTimes {
		stopTimes[st.TripID] = append(stopTimes[st.TripID], st)
	}

	// pattern key -> shape_id of the first trip using it
	patternShapes := make(map[string]string)
	patternStops := make(map[string][]string)
	var patternOrder []string

	for _, trip := range data.Trips {
		times := stopTimes[trip.TripID]
		if len(times) < 2 {
			report.SkippedTrips++
			continue
		}
		sort.SliceStable(times, func(i, j int) bool {
			return times[i].StopSequence < times[j].StopSequence
		})

		info := models.TripInfo{
			Headsign:  trip.TripHeadsign,
			ServiceID: trip.ServiceID,
			OfficeID:  trip.JPOfficeID,
			Via:       trip.JPTripDesc,
			Stops:     make([]models.TripStop, 0, len(times)),
		}
		for _, st := range times {
			if _, ok := t.Stops[st.StopID]; !ok {
				report.UnknownStopRefs++
			}
			clock := st.DepartureTime
			if clock == "" {
				clock = st.ArrivalTime
			}
			info.Stops = append(info.Stops, models.TripStop{
				Time:   normalizeTime(clock),
				StopID: st.StopID,
			})
		}

		if t.Timetables[trip.RouteID] == nil {
			t.Timetables[trip.RouteID] = map[string]models.TripInfo{}
		}
		t.Timetables[trip.RouteID][trip.TripID] = info

		stopIDs := info.StopIDs()
		key := schedule.PersistedPatternKey(stopIDs)
		if _, seen := patternShapes[key]; !seen {
			patternShapes[key] = trip.ShapeID
			patternStops[key] = stopIDs
			patternOrder = append(patternOrder, key)
		} else if patternShapes[key] == "" && trip.ShapeID != "" {
			patternShapes[key] = trip.ShapeID
		}
	}

	for _, key := range patternOrder {
		stopIDs := patternStops[key]
		shape, ok := shapeFromPoints(data.Shapes[patternShapes[key]], stopIDs, t.Stops)
		if !ok {
			shape = straightShape(stopIDs, t.Stops)
			report.StraightShapes++
		}
		t.Shapes[key] = shape
	}

	for _, c := range data.Calendar {
		days := make([]string, 7)
		for i, running := range c.Days {
			days[i] = "0"
			if running {
				days[i] = "1"
			}
		}
		t.Calendar[c.ServiceID] = models.CalendarEntry{
			Days:  days,
			Start: c.StartDate,
			End:   c.EndDate,
		}
	}

	for _, cd := range data.CalendarDates {
		t.Extra.CalendarDates = append(t.Extra.CalendarDates, models.CalendarDateException{
			ServiceID:     cd.ServiceID,
			Date:          cd.Date,
			ExceptionType: cd.ExceptionType,
		})
	}

	for _, o := range data.Offices {
		t.Extra.Offices[o.OfficeID] = o.OfficeName
	}

	log.Printf("Snapshot built: %d stops, %d routes, %d patterns (%d straight), %d skipped trips",
		len(t.Stops), len(t.Routes), len(t.Shapes), report.StraightShapes, report.SkippedTrips)

	return t, report
}

// stopReadings collects kana readings from translations.txt, keyed by stop id
// (record_id) and by stop name (field_value / legacy trans_id)
func stopReadings(translations []gtfs.Translation) (byID, byName map[string]string) {
	byID = make(map[string]string)
	byName = make(map[string]string)
	for _, tr := range translations {
		if tr.Language != yomiLanguage {
			continue
		}
		if tr.TableName != "" && (tr.TableName != "stops" || tr.FieldName != "stop_name") {
			continue
		}
		if tr.RecordID != "" {
			byID[tr.RecordID] = tr.Translation
		}
		if tr.FieldValue != "" {
			byName[tr.FieldValue] = tr.Translation
		}
	}
	return byID, byName
}

// normalizeTime zero-pads the hour so times sort lexically ("8:05:00" -> "08:05:00")
func normalizeTime(clock string) string {
	clock = strings.TrimSpace(clock)
	parts := strings.Split(clock, ":")
	if len(parts) == 2 {
		parts = append(parts, "00")
	}
	if len(parts) != 3 {
		return clock
	}
	if len(parts[0]) == 1 {
		parts[0] = "0" + parts[0]
	}
	return fmt.Sprintf("%s:%s:%s", parts[0], parts[1], parts[2])
}

// shapeFromPoints snaps each pattern stop to the nearest shape point at or
// after the previous stop's point, keeping stop indices non-decreasing
func shapeFromPoints(points []gtfs.ShapePoint, stopIDs []string, stops models.StopsData) (models.ShapeData, bool) {
	if len(points) < 2 {
		return models.ShapeData{}, false
	}

	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.ShapePtLon, p.ShapePtLat}
	}

	indices := make([]int, len(stopIDs))
	from := 0
	for i, id := range stopIDs {
		stop, ok := stops[id]
		if !ok {
			return models.ShapeData{}, false
		}
		idx := schedule.FindClosestPointIndex(coords, stop.Lat, stop.Lng, from)
		if idx < 0 {
			return models.ShapeData{}, false
		}
		indices[i] = idx
		from = idx
	}

	return models.ShapeData{Coordinates: coords, StopIndices: indices}, true
}

// straightShape joins the pattern's stops with straight segments
func straightShape(stopIDs []string, stops models.StopsData) models.ShapeData {
	shape := models.ShapeData{
		Coordinates: make([][]float64, 0, len(stopIDs)),
		StopIndices: make([]int, 0, len(stopIDs)),
	}
	for _, id := range stopIDs {
		stop := stops[id]
		shape.StopIndices = append(shape.StopIndices, len(shape.Coordinates))
		shape.Coordinates = append(shape.Coordinates, []float64{stop.Lng, stop.Lat})
	}
	return shape
}
