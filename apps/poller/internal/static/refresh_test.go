package static

import (
	"archive/zip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/repository"
	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/static/snapshot"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func writeManifest(t *testing.T, dir string, m snapshot.Manifest) {
	t.Helper()
	data, _ := json.Marshal(m)
	if err := os.WriteFile(filepath.Join(dir, snapshot.ManifestFile), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestIsStaleOrMissing_MissingFile(t *testing.T) {
	// A non-existent manifest should trigger refresh
	if !isStaleOrMissing(t.TempDir(), 7, now) {
		t.Error("isStaleOrMissing should return true for missing file")
	}
}

func TestIsStaleOrMissing_FreshManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, snapshot.Manifest{
		UpdatedAt:        now.Add(-time.Hour).Format(time.RFC3339),
		GeneratorVersion: snapshot.GeneratorVersion,
	})

	if isStaleOrMissing(dir, 7, now) {
		t.Error("isStaleOrMissing should return false for fresh manifest")
	}
}

func TestIsStaleOrMissing_StaleManifest(t *testing.T) {
	dir := t.TempDir()
	// 10 days old
	writeManifest(t, dir, snapshot.Manifest{
		UpdatedAt:        now.Add(-10 * 24 * time.Hour).Format(time.RFC3339),
		GeneratorVersion: snapshot.GeneratorVersion,
	})

	if !isStaleOrMissing(dir, 7, now) {
		t.Error("isStaleOrMissing should return true for stale manifest")
	}
}

func TestIsStaleOrMissing_CorruptJSON(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, snapshot.ManifestFile), []byte("{invalid json"), 0644)

	if !isStaleOrMissing(dir, 7, now) {
		t.Error("isStaleOrMissing should return true for corrupt manifest")
	}
}

func TestIsStaleOrMissing_LegacyGeneratedAt(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, snapshot.Manifest{
		GeneratedAt:      now.Format(time.RFC3339),
		GeneratorVersion: snapshot.GeneratorVersion,
	})

	if isStaleOrMissing(dir, 7, now) {
		t.Error("isStaleOrMissing should handle legacy generated_at field")
	}
}

func TestIsStaleOrMissing_GeneratorVersionChanged(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, snapshot.Manifest{
		UpdatedAt:        now.Format(time.RFC3339),
		GeneratorVersion: "0",
	})

	if !isStaleOrMissing(dir, 7, now) {
		t.Error("isStaleOrMissing should return true when the generator version differs")
	}
}

func feedZip(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feed.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	files := map[string]string{
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\nA,Sendai Sta,38.26,140.88\nB,Kita,38.27,140.87\n",
		"routes.txt": "route_id,route_short_name,route_color\nR1,1,FF0000\n",
		"trips.txt": "route_id,service_id,trip_id,trip_headsign\nR1,WK,T1,Kita\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,08:00:00,08:00:00,A,1\nT1,08:10:00,08:10:00,B,2\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WK,1,1,1,1,1,0,0,20240101,20241231\n",
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestRefreshIfStale(t *testing.T) {
	body := feedZip(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(body)
	}))
	defer srv.Close()

	opts := RefreshOptions{
		URL:        srv.URL + "/gtfs.zip",
		CacheDir:   t.TempDir(),
		OutDir:     t.TempDir(),
		MaxAgeDays: 7,
	}

	refreshed, err := RefreshIfStale(context.Background(), opts, now)
	if err != nil {
		t.Fatalf("RefreshIfStale() error = %v", err)
	}
	if !refreshed || hits.Load() != 1 {
		t.Fatalf("refreshed = %v, hits = %d; want true, 1", refreshed, hits.Load())
	}

	tables, err := repository.NewJSONSource(opts.OutDir).LoadTables(context.Background())
	if err != nil {
		t.Fatalf("LoadTables() error = %v", err)
	}
	if len(tables.Stops) != 2 || len(tables.Timetables["R1"]) != 1 || len(tables.Shapes) != 1 {
		t.Errorf("unexpected tables: %d stops, %d trips, %d shapes",
			len(tables.Stops), len(tables.Timetables["R1"]), len(tables.Shapes))
	}

	// Second run within MaxAgeDays is a no-op
	refreshed, err = RefreshIfStale(context.Background(), opts, now.Add(24*time.Hour))
	if err != nil || refreshed || hits.Load() != 1 {
		t.Errorf("second run: refreshed = %v, err = %v, hits = %d", refreshed, err, hits.Load())
	}
}

func TestRefreshIfStale_NoURL(t *testing.T) {
	_, err := RefreshIfStale(context.Background(), RefreshOptions{OutDir: t.TempDir(), MaxAgeDays: 7}, now)
	if err == nil {
		t.Error("expected an error when the snapshot is stale and no URL is configured")
	}
}
