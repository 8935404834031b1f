package schedule

import (
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
)

var jst = time.FixedZone("JST", 9*3600)

// 2024-01-03 is a Wednesday
func at(hh, mm, ss int) time.Time {
	return time.Date(2024, 1, 3, hh, mm, ss, 0, jst)
}

// straightShape returns n coordinates along a meridian, one step of 0.001° per index
func straightShape(n int, stopIndices ...int) models.ShapeData {
	coords := make([][]float64, n)
	for i := range coords {
		coords[i] = []float64{140.0, 38.0 + float64(i)*0.001}
	}
	return models.ShapeData{Coordinates: coords, StopIndices: stopIndices}
}

func weekdaysOnly() models.CalendarEntry {
	return models.CalendarEntry{
		Days:  []string{"1", "1", "1", "1", "1", "0", "0"},
		Start: "20240101",
		End:   "20240131",
	}
}

func testTables() Tables {
	return Tables{
		Stops: models.StopsData{
			"A":  {Name: "A町", Lat: 38.000, Lng: 140.0},
			"B":  {Name: "B町", Lat: 38.010, Lng: 140.0},
			"C1": {Name: "Central", Lat: 38.005, Lng: 140.001, Platform: "1"},
			"C2": {Name: "Ｃｅｎｔｒａｌ", Lat: 38.005, Lng: 140.002, Platform: "2"},
			"X":  {Name: "Far", Lat: 35.0, Lng: 135.0},
		},
		Routes: models.RoutesData{
			"R1": {ShortName: "1", Color: "FF0000"},
			"R2": {ShortName: "2", Color: "00FF00"},
		},
		Timetables: models.TimetablesData{
			"R1": {
				"T1": {
					Headsign: "B行", ServiceID: "WK", OfficeID: "O1", Via: "C経由",
					Stops: []models.TripStop{
						{Time: "08:00:00", StopID: "A"},
						{Time: "08:10:00", StopID: "B"},
					},
				},
				"T2": {
					Headsign: "Central行", ServiceID: "WK",
					Stops: []models.TripStop{
						{Time: "08:30:00", StopID: "A"},
						{Time: "09:00:00", StopID: "C1"},
					},
				},
				"HOLIDAY": {
					Headsign: "B行", ServiceID: "HOL",
					Stops: []models.TripStop{
						{Time: "08:00:00", StopID: "A"},
						{Time: "08:10:00", StopID: "B"},
					},
				},
			},
			"R2": {
				"T3": {
					Headsign: "Loop", ServiceID: "WK",
					Stops: []models.TripStop{
						{Time: "08:20:00", StopID: "C2"},
						{Time: "08:40:00", StopID: "C1"},
					},
				},
				"NOSHAPE": {
					Headsign: "Far", ServiceID: "WK",
					Stops: []models.TripStop{
						{Time: "08:00:00", StopID: "A"},
						{Time: "09:00:00", StopID: "X"},
					},
				},
				"SINGLE": {
					Headsign: "Single", ServiceID: "WK",
					Stops: []models.TripStop{
						{Time: "08:00:00", StopID: "A"},
					},
				},
			},
		},
		Shapes: models.ShapesData{
			"A|B":   straightShape(11, 0, 10),
			"A|C1":  straightShape(6, 0, 5),
			"C2|C1": straightShape(3, 0, 2),
		},
		Calendar: models.CalendarData{
			"WK":  weekdaysOnly(),
			"HOL": {Days: []string{"0", "0", "0", "0", "0", "1", "1"}, Start: "20240101", End: "20240131"},
		},
		Extra: models.ExtraData{
			Offices: map[string]string{"O1": "仙台営業所"},
		},
	}
}

func testSnapshot() *Snapshot {
	return NewSnapshot(testTables(), "test", jst)
}
