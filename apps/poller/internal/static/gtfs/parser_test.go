package gtfs

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFeed builds a zip archive in memory from file name -> content
func writeFeed(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return r
}

func minimalFeed() map[string]string {
	return map[string]string{
		// UTF-8 BOM in front of the header
		"stops.txt": "\ufeffstop_id,stop_name,stop_lat,stop_lon,location_type,platform_code\n" +
			"S1,仙台駅前,38.2601,140.8819,0,1\n" +
			"S2,北四番丁,38.2710,140.8720,0,\n" +
			"P1,仙台駅,38.2600,140.8820,1,\n",
		"routes.txt": "route_id,route_short_name,route_long_name,route_type,route_color\n" +
			"R1,,宮町経由,3,FF0000\n",
		"trips.txt": "route_id,service_id,trip_id,trip_headsign,shape_id,jp_trip_desc,jp_office_id\n" +
			"R1,WK,T1,北四番丁,SH1,宮町経由,O1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,8:00:00,8:00:00,S1,1\n" +
			"T1,08:10:00,08:10:00,S2,2\n",
		"shapes.txt": "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n" +
			"SH1,38.2710,140.8720,2\n" +
			"SH1,38.2601,140.8819,1\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WK,1,1,1,1,1,0,0,20240101,20241231\n",
		"calendar_dates.txt": "service_id,date,exception_type\n" +
			"WK,20240101,2\n",
		"office_jp.txt": "office_id,office_name\n" +
			"O1,川内営業所\n",
		"translations.txt": "table_name,field_name,language,translation,record_id,field_value\n" +
			"stops,stop_name,ja-Hrkt,せんだいえきまえ,,仙台駅前\n",
	}
}

func TestParseZip(t *testing.T) {
	data, err := ParseZip(writeFeed(t, minimalFeed()))
	require.NoError(t, err)

	require.Len(t, data.Stops, 3)
	assert.Equal(t, "S1", data.Stops[0].StopID, "BOM must not leak into the first header")
	assert.Equal(t, "1", data.Stops[0].PlatformCode)
	assert.Equal(t, 1, data.Stops[2].LocationType)

	require.Len(t, data.Routes, 1)
	assert.Equal(t, "宮町経由", data.Routes[0].RouteLongName)

	require.Len(t, data.Trips, 1)
	assert.Equal(t, "O1", data.Trips[0].JPOfficeID)
	assert.Equal(t, "宮町経由", data.Trips[0].JPTripDesc)

	assert.Len(t, data.StopTimes, 2)

	points := data.Shapes["SH1"]
	require.Len(t, points, 2)
	assert.Equal(t, 1, points[0].ShapePtSequence, "shape points are sorted by sequence")

	require.Len(t, data.Calendar, 1)
	assert.Equal(t, [7]bool{true, true, true, true, true, false, false}, data.Calendar[0].Days)
	assert.Equal(t, "20241231", data.Calendar[0].EndDate)

	require.Len(t, data.CalendarDates, 1)
	assert.Equal(t, "2", data.CalendarDates[0].ExceptionType)

	require.Len(t, data.Offices, 1)
	assert.Equal(t, "川内営業所", data.Offices[0].OfficeName)

	require.Len(t, data.Translations, 1)
	assert.Equal(t, "ja-Hrkt", data.Translations[0].Language)
	assert.Equal(t, "仙台駅前", data.Translations[0].FieldValue)
}

func TestParseZip_LegacyTranslations(t *testing.T) {
	files := minimalFeed()
	files["translations.txt"] = "trans_id,lang,translation\n" +
		"仙台駅前,ja-Hrkt,せんだいえきまえ\n" +
		"仙台駅前,en,Sendai Station\n"

	data, err := ParseZip(writeFeed(t, files))
	require.NoError(t, err)

	require.Len(t, data.Translations, 2)
	assert.Equal(t, Translation{Language: "ja-Hrkt", Translation: "せんだいえきまえ", FieldValue: "仙台駅前"}, data.Translations[0])
}

func TestParseZip_NestedDirectory(t *testing.T) {
	files := map[string]string{}
	for name, content := range minimalFeed() {
		files["feed/"+name] = content
	}

	data, err := ParseZip(writeFeed(t, files))
	require.NoError(t, err)
	assert.Len(t, data.Stops, 3)
}

func TestParseZip_MissingRequiredFile(t *testing.T) {
	for _, name := range []string{"stops.txt", "trips.txt", "stop_times.txt"} {
		t.Run(name, func(t *testing.T) {
			files := minimalFeed()
			delete(files, name)

			_, err := ParseZip(writeFeed(t, files))
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestParseZip_OptionalFilesAbsent(t *testing.T) {
	files := minimalFeed()
	for _, name := range []string{"shapes.txt", "calendar.txt", "calendar_dates.txt", "office_jp.txt", "translations.txt", "routes.txt"} {
		delete(files, name)
	}

	data, err := ParseZip(writeFeed(t, files))
	require.NoError(t, err)
	assert.Empty(t, data.Shapes)
	assert.Empty(t, data.Calendar)
	assert.Empty(t, data.Offices)
}

func TestParse_File(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range minimalFeed() {
		w, err := zw.Create(name)
		require.NoError(t, err)
		w.Write([]byte(content))
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "gtfs.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	data, err := Parse(path)
	require.NoError(t, err)
	assert.Len(t, data.Trips, 1)

	_, err = Parse(filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)
}

func TestGetField(t *testing.T) {
	idx := makeIndex([]string{"a", " b "})
	record := []string{" x ", "y"}

	assert.Equal(t, "x", getField(record, idx, "a"))
	assert.Equal(t, "y", getField(record, idx, "b"))
	assert.Equal(t, "", getField(record, idx, "c"))
	assert.Equal(t, "", getField([]string{"only"}, idx, "b"))
}
