package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

var jst = time.FixedZone("JST", 9*60*60)

// 2024-01-03 is a Wednesday
var testNow = time.Date(2024, 1, 3, 8, 5, 0, 0, jst)

func line(n int, fromLat float64) [][]float64 {
	coords := make([][]float64, n)
	for i := range coords {
		coords[i] = []float64{140.0, fromLat + float64(i)*0.001}
	}
	return coords
}

func testSnapshot() *schedule.Snapshot {
	tables := schedule.Tables{
		Stops: models.StopsData{
			"A": {Name: "Sendai Sta", Yomi: "せんだいえき", Lat: 38.000, Lng: 140.0, Platform: "1"},
			"B": {Name: "Sendai Sta", Yomi: "せんだいえき", Lat: 38.001, Lng: 140.0, Platform: "2"},
			"C": {Name: "Kita", Yomi: "きた", Lat: 38.010, Lng: 140.0},
		},
		Routes: models.RoutesData{
			"R1": {ShortName: "1", Color: "ff0000"},
		},
		Timetables: models.TimetablesData{
			"R1": {
				"T1": {Headsign: "Kita", ServiceID: "WK", OfficeID: "O1", Stops: []models.TripStop{
					{Time: "08:00:00", StopID: "A"}, {Time: "08:10:00", StopID: "C"},
				}},
				"T2": {Headsign: "Kita", ServiceID: "WK", OfficeID: "O1", Stops: []models.TripStop{
					{Time: "09:00:00", StopID: "B"}, {Time: "09:10:00", StopID: "C"},
				}},
				"T3": {Headsign: "Sendai Sta", ServiceID: "WK", Via: "Kita", Stops: []models.TripStop{
					{Time: "08:00:00", StopID: "C"}, {Time: "08:10:00", StopID: "A"},
				}},
			},
		},
		Shapes: models.ShapesData{
			"A|C": {Coordinates: line(11, 38.000), StopIndices: []int{0, 10}},
			"B|C": {Coordinates: line(10, 38.001), StopIndices: []int{0, 9}},
		},
		Calendar: models.CalendarData{
			"WK": {Days: []string{"1", "1", "1", "1", "1", "0", "0"}, Start: "20240101", End: "20241231"},
		},
		Extra: models.ExtraData{
			Offices: map[string]string{"O1": "仙台営業所"},
		},
	}
	return schedule.NewSnapshot(tables, "test", jst)
}

func newTestServer() http.Handler {
	return NewRouter(testSnapshot(), RouterOptions{
		Clock: func() time.Time { return testNow },
	})
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func TestGetBuses(t *testing.T) {
	h := newTestServer()

	tests := []struct {
		name      string
		url       string
		wantCode  int
		wantTrips []string
	}{
		{name: "no bounds", url: "/api/buses", wantCode: http.StatusOK, wantTrips: []string{"T1"}},
		{name: "bounds containing the bus", url: "/api/buses?minLat=38&maxLat=38.01&minLng=139.9&maxLng=140.1", wantCode: http.StatusOK, wantTrips: []string{"T1"}},
		{name: "bounds elsewhere", url: "/api/buses?minLat=38.1&maxLat=38.2&minLng=139&maxLng=141", wantCode: http.StatusOK, wantTrips: []string{}},
		{name: "partial bounds are ignored", url: "/api/buses?minLat=38.1&maxLat=38.2", wantCode: http.StatusOK, wantTrips: []string{"T1"}},
		{name: "non-numeric bound", url: "/api/buses?minLat=abc&maxLat=38.2&minLng=139&maxLng=141", wantCode: http.StatusBadRequest},
		{name: "inverted box", url: "/api/buses?minLat=38.2&maxLat=38.1&minLng=139&maxLng=141", wantCode: http.StatusBadRequest},
		{name: "exponent bounds", url: "/api/buses?minLat=3.8e1&maxLat=3.801e1&minLng=1.399e2&maxLng=1.401e2", wantCode: http.StatusOK, wantTrips: []string{"T1"}},
		{name: "leading dot bound", url: "/api/buses?minLat=.5&maxLat=38.01&minLng=139.9&maxLng=140.1", wantCode: http.StatusOK, wantTrips: []string{"T1"}},
		{name: "NaN bound", url: "/api/buses?minLat=NaN&maxLat=38.01&minLng=139.9&maxLng=140.1", wantCode: http.StatusBadRequest},
		{name: "infinite bound", url: "/api/buses?minLat=-Inf&maxLat=38.01&minLng=139.9&maxLng=140.1", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.url)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				var errResp ErrorResponse
				decode(t, rec, &errResp)
				if errResp.Error == "" {
					t.Error("error message is empty")
				}
				return
			}

			var resp BusesResponse
			decode(t, rec, &resp)
			got := []string{}
			for _, b := range resp.Buses {
				got = append(got, b.TripID)
			}
			if diff := cmp.Diff(tt.wantTrips, got); diff != "" {
				t.Errorf("trips mismatch (-want +got):\n%s", diff)
			}
			if resp.Count != len(resp.Buses) {
				t.Errorf("count = %d, want %d", resp.Count, len(resp.Buses))
			}
			if resp.Timestamp != testNow.Unix() {
				t.Errorf("timestamp = %d, want %d", resp.Timestamp, testNow.Unix())
			}
		})
	}
}

func TestGetBusesPosition(t *testing.T) {
	rec := get(t, newTestServer(), "/api/buses")

	var resp BusesResponse
	decode(t, rec, &resp)
	if len(resp.Buses) != 1 {
		t.Fatalf("got %d buses, want 1", len(resp.Buses))
	}

	bus := resp.Buses[0]
	if diff := cmp.Diff(line(11, 38.000)[5], bus.Position); diff != "" {
		t.Errorf("position mismatch (-want +got):\n%s", diff)
	}
	if bus.RouteName != "1" || bus.Color != "ff0000" || bus.Headsign != "Kita" {
		t.Errorf("unexpected bus metadata: %+v", bus)
	}
	if got := rec.Header().Get("Cache-Control"); got != cacheLive {
		t.Errorf("Cache-Control = %q, want %q", got, cacheLive)
	}
}

func TestSearchStops(t *testing.T) {
	h := newTestServer()

	rec := get(t, h, "/api/stops/search?minLat=37.9999&maxLat=38.0015&minLng=139.9&maxLng=140.1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp SearchStopsResponse
	decode(t, rec, &resp)
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
	if _, ok := resp.Stops["C"]; ok {
		t.Error("stop C is outside the box")
	}

	for _, url := range []string{
		"/api/stops/search?minLat=3.79999e1&maxLat=38.0015&minLng=139.9&maxLng=140.1",
		"/api/stops/search?minLat=.5&maxLat=38.0015&minLng=139.9&maxLng=1.401E2",
	} {
		rec := get(t, h, url)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200 (body %s)", url, rec.Code, rec.Body.String())
		}
		var resp SearchStopsResponse
		decode(t, rec, &resp)
		if resp.Count != 2 {
			t.Errorf("%s: count = %d, want 2", url, resp.Count)
		}
	}

	for _, url := range []string{
		"/api/stops/search",
		"/api/stops/search?minLat=NaN&maxLat=38.1&minLng=140&maxLng=141",
		"/api/stops/search?minLat=38&maxLat=%2BInf&minLng=140&maxLng=141",
		"/api/stops/search?minLat=38&maxLat=38.1&minLng=140",
		"/api/stops/search?minLat=38&maxLat=38.1&minLng=140.1&maxLng=140",
		"/api/stops/search?minLat=x&maxLat=38.1&minLng=140&maxLng=141",
	} {
		if rec := get(t, h, url); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", url, rec.Code)
		}
	}
}

func TestGetStop(t *testing.T) {
	h := newTestServer()

	rec := get(t, h, "/api/stops/A")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp StopResponse
	decode(t, rec, &resp)
	if resp.StopID != "A" || resp.Platform != "1" || resp.Name != "Sendai Sta" {
		t.Errorf("unexpected stop: %+v", resp)
	}

	if rec := get(t, h, "/api/stops/NOPE"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown stop: status = %d, want 404", rec.Code)
	}
}

func TestGetAllStops(t *testing.T) {
	rec := get(t, newTestServer(), "/api/stops")

	var stops models.StopsData
	decode(t, rec, &stops)
	if len(stops) != 3 {
		t.Errorf("got %d stops, want 3", len(stops))
	}
}

func TestGetStopTimetable(t *testing.T) {
	h := newTestServer()

	rec := get(t, h, "/api/stops/A/timetable")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp StopTimetableResponse
	decode(t, rec, &resp)

	if resp.StopName != "Sendai Sta" {
		t.Errorf("stop_name = %q", resp.StopName)
	}
	var trips []string
	for tripID := range resp.Timetables["R1"] {
		trips = append(trips, tripID)
	}
	if diff := cmp.Diff([]string{"T1", "T3"}, trips, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("timetable trips mismatch (-want +got):\n%s", diff)
	}

	want := []models.Arrival{
		{Time: "08:00:00", RouteID: "R1", RouteName: "1", Color: "ff0000", TripID: "T1", Headsign: "Kita", Platform: "1", StopID: "A", IsPast: true},
		{Time: "08:10:00", RouteID: "R1", RouteName: "1", Color: "ff0000", TripID: "T3", Headsign: "Sendai Sta", Via: "Kita", Platform: "1", StopID: "A"},
	}
	if diff := cmp.Diff(want, resp.Arrivals); diff != "" {
		t.Errorf("arrivals mismatch (-want +got):\n%s", diff)
	}

	if rec := get(t, h, "/api/stops/NOPE/timetable"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown stop: status = %d, want 404", rec.Code)
	}
}

func TestGetArrivalsGroupedByName(t *testing.T) {
	h := newTestServer()

	rec := get(t, h, "/api/stops/A/arrivals?group=name")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp ArrivalsResponse
	decode(t, rec, &resp)

	if diff := cmp.Diff([]string{"A", "B"}, resp.StopIDs); diff != "" {
		t.Errorf("stop_ids mismatch (-want +got):\n%s", diff)
	}
	var got []string
	for _, a := range resp.Arrivals {
		got = append(got, a.TripID+"@"+a.StopID)
	}
	if diff := cmp.Diff([]string{"T1@A", "T3@A", "T2@B"}, got); diff != "" {
		t.Errorf("arrivals mismatch (-want +got):\n%s", diff)
	}
	if resp.Count != 3 {
		t.Errorf("count = %d, want 3", resp.Count)
	}
	if resp.CurrentTime != "08:05:00" {
		t.Errorf("current_time = %q, want 08:05:00", resp.CurrentTime)
	}
}

func TestGetArrivalsSingleStop(t *testing.T) {
	h := newTestServer()

	rec := get(t, h, "/api/stops/B/arrivals")
	var resp ArrivalsResponse
	decode(t, rec, &resp)
	if len(resp.Arrivals) != 1 || resp.Arrivals[0].TripID != "T2" || resp.Arrivals[0].Platform != "2" {
		t.Errorf("unexpected arrivals: %+v", resp.Arrivals)
	}

	if rec := get(t, h, "/api/stops/B/arrivals?group=route"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad group: status = %d, want 400", rec.Code)
	}
	if rec := get(t, h, "/api/stops/NOPE/arrivals?group=name"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown stop: status = %d, want 404", rec.Code)
	}
}

func TestGetTripDetail(t *testing.T) {
	h := newTestServer()

	rec := get(t, h, "/api/trips/R1/T1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp TripDetailResponse
	decode(t, rec, &resp)
	if resp.Shape == nil || len(resp.Shape.Coordinates) != 11 {
		t.Errorf("expected an 11-point shape, got %+v", resp.Shape)
	}
	if resp.OfficeName != "仙台営業所" || resp.RouteColor != "ff0000" {
		t.Errorf("unexpected detail: %+v", resp)
	}
	if len(resp.Stops) != 2 {
		t.Errorf("got %d stops, want 2", len(resp.Stops))
	}

	// No geometry is a valid trip with a null shape
	rec = get(t, h, "/api/trips/R1/T3")
	var raw map[string]json.RawMessage
	decode(t, rec, &raw)
	if string(raw["shape"]) != "null" {
		t.Errorf("shape = %s, want null", raw["shape"])
	}

	for _, url := range []string{"/api/trips/R1/NOPE", "/api/trips/R9/T1"} {
		if rec := get(t, h, url); rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", url, rec.Code)
		}
	}
}

func TestReferenceEndpoints(t *testing.T) {
	h := newTestServer()

	var calendar models.CalendarData
	decode(t, get(t, h, "/api/calendar"), &calendar)
	if calendar["WK"].Start != "20240101" {
		t.Errorf("unexpected calendar: %+v", calendar)
	}

	var routes models.RoutesData
	decode(t, get(t, h, "/api/routes"), &routes)
	if routes["R1"].ShortName != "1" {
		t.Errorf("unexpected routes: %+v", routes)
	}

	var extra models.ExtraData
	decode(t, get(t, h, "/api/extra"), &extra)
	if extra.Offices["O1"] != "仙台営業所" {
		t.Errorf("unexpected extra: %+v", extra)
	}
	if extra.CalendarDates == nil {
		t.Error("calendar_dates should be an empty list, not null")
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer()

	rec := get(t, h, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp models.SnapshotHealth
	decode(t, rec, &resp)
	if resp.Status != models.StatusOK || resp.Source != "test" || resp.SnapshotID == "" {
		t.Errorf("unexpected health: %+v", resp)
	}
	if resp.Counts.Trips != 3 || resp.ActiveVehicles != 1 {
		t.Errorf("counts = %+v, active = %d", resp.Counts, resp.ActiveVehicles)
	}

	rec = get(t, h, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestHealthDegradedOnEmptySnapshot(t *testing.T) {
	snap := schedule.NewSnapshot(schedule.Tables{}, "test", jst)
	h := NewRouter(snap, RouterOptions{Clock: func() time.Time { return testNow }})

	if rec := get(t, h, "/health"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestGetVehicleFeed(t *testing.T) {
	h := newTestServer()

	rec := get(t, h, "/api/gtfs-rt/vehicle_positions.pb")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-protobuf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("X-Snapshot-Id") == "" {
		t.Error("missing X-Snapshot-Id")
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(rec.Body.Bytes(), feed); err != nil {
		t.Fatalf("unmarshal feed: %v", err)
	}
	if feed.GetHeader().GetIncrementality() != gtfs.FeedHeader_FULL_DATASET {
		t.Errorf("incrementality = %v", feed.GetHeader().GetIncrementality())
	}
	if len(feed.GetEntity()) != 1 {
		t.Fatalf("got %d entities, want 1", len(feed.GetEntity()))
	}
	entity := feed.GetEntity()[0]
	if entity.GetId() != "R1:T1" || entity.GetVehicle().GetTrip().GetRouteId() != "R1" {
		t.Errorf("unexpected entity: %v", entity)
	}

	rec = get(t, h, "/api/gtfs-rt/vehicle_positions.pb?format=json")
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	jsonFeed := &gtfs.FeedMessage{}
	if err := protojson.Unmarshal(rec.Body.Bytes(), jsonFeed); err != nil {
		t.Fatalf("protojson unmarshal: %v", err)
	}
	if uint64(testNow.Unix()) != jsonFeed.GetHeader().GetTimestamp() {
		t.Errorf("timestamp = %d", jsonFeed.GetHeader().GetTimestamp())
	}
}
