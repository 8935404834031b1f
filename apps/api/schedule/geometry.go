package schedule

import (
	"math"
	"strconv"
	"strings"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
)

const earthRadiusMeters = 6371000

// persistedKeySeparator joins stop ids in the geometry table of the snapshot files
const persistedKeySeparator = "|"

// PatternKey identifies a stop pattern: the ordered stop ids of a trip.
// Each id is length-prefixed, so ids containing any separator never collide.
type PatternKey string

// NewPatternKey builds the key of an ordered stop id sequence
func NewPatternKey(stopIDs []string) PatternKey {
	var b strings.Builder
	for _, id := range stopIDs {
		b.WriteString(strconv.Itoa(len(id)))
		b.WriteByte(':')
		b.WriteString(id)
	}
	return PatternKey(b.String())
}

// PatternKeyForTrip builds the key of the trip's stop sequence
func PatternKeyForTrip(trip *models.TripInfo) PatternKey {
	return NewPatternKey(trip.StopIDs())
}

// ParsePersistedPatternKey converts a '|'-joined key from the snapshot files
func ParsePersistedPatternKey(s string) PatternKey {
	if s == "" {
		return NewPatternKey(nil)
	}
	return NewPatternKey(strings.Split(s, persistedKeySeparator))
}

// PersistedPatternKey renders stop ids the way the snapshot files key geometry
func PersistedPatternKey(stopIDs []string) string {
	return strings.Join(stopIDs, persistedKeySeparator)
}

// StopIDs decodes the key back into its stop ids
func (k PatternKey) StopIDs() []string {
	var ids []string
	s := string(k)
	for len(s) > 0 {
		colon := strings.IndexByte(s, ':')
		if colon < 0 {
			return ids
		}
		n, err := strconv.Atoi(s[:colon])
		if err != nil || colon+1+n > len(s) {
			return ids
		}
		ids = append(ids, s[colon+1:colon+1+n])
		s = s[colon+1+n:]
	}
	return ids
}

// GeometryIndex maps stop patterns to their precomputed paths
type GeometryIndex struct {
	shapes map[PatternKey]models.ShapeData
}

// NewGeometryIndex indexes the geometry table of a snapshot
func NewGeometryIndex(shapes models.ShapesData) *GeometryIndex {
	idx := make(map[PatternKey]models.ShapeData, len(shapes))
	for key, shape := range shapes {
		idx[ParsePersistedPatternKey(key)] = shape
	}
	return &GeometryIndex{shapes: idx}
}

// Lookup returns the path of a pattern. A missing path is a normal state:
// the trip stays valid but cannot be drawn or located.
func (g *GeometryIndex) Lookup(key PatternKey) (*models.ShapeData, bool) {
	shape, ok := g.shapes[key]
	if !ok {
		return nil, false
	}
	return &shape, true
}

// Len returns the number of known patterns
func (g *GeometryIndex) Len() int {
	return len(g.shapes)
}

// Haversine calculates the distance between two points in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Bearing calculates the bearing from point 1 to point 2 in degrees (0-360)
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	x := math.Sin(deltaLambda) * math.Cos(phi2)
	y := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)

	bearing := math.Atan2(x, y) * 180 / math.Pi
	return math.Mod(bearing+360, 360)
}

// FindClosestPointIndex finds the index of the closest point in a coordinate list,
// searching only from index `from` onwards. coords are [lng, lat] pairs.
// Returns -1 when no point is at or after `from`.
func FindClosestPointIndex(coords [][]float64, lat, lng float64, from int) int {
	minDist := math.MaxFloat64
	minIdx := -1

	if from < 0 {
		from = 0
	}
	for i := from; i < len(coords); i++ {
		if len(coords[i]) < 2 {
			continue
		}
		dist := Haversine(coords[i][1], coords[i][0], lat, lng)
		if dist < minDist {
			minDist = dist
			minIdx = i
		}
	}

	return minIdx
}

// Clamp constrains a value between min and max
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
