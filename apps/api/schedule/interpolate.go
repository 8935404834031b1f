package schedule

import (
	"math"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
)

// Position is an interpolated point on a shape
type Position struct {
	Lng   float64
	Lat   float64
	Index int // index into the shape's coordinates
}

// Coordinates returns the position as a [lng, lat] pair
func (p Position) Coordinates() []float64 {
	return []float64{p.Lng, p.Lat}
}

// Interpolate computes where the trip is at nowSec seconds since midnight.
//
// The vehicle is placed in the stop interval with s_i <= now < s_{i+1}; the time
// ratio inside that interval is mapped linearly onto the shape indices of the two
// stops and floored. Returns false when now is outside every interval, or when
// the shape is missing or empty.
func Interpolate(trip *models.TripInfo, nowSec int, shape *models.ShapeData) (Position, bool) {
	if shape == nil || len(shape.Coordinates) == 0 || len(shape.StopIndices) == 0 {
		return Position{}, false
	}

	stops := trip.Stops
	coords := shape.Coordinates
	indices := shape.StopIndices

	for i := 0; i < len(stops)-1; i++ {
		s1 := TimeToSeconds(stops[i].Time)
		s2 := TimeToSeconds(stops[i+1].Time)

		if nowSec < s1 || nowSec >= s2 {
			continue
		}
		// s1 == s2 never reaches here: the interval [s1, s2) is empty
		if i+1 >= len(indices) {
			return Position{}, false
		}

		ratio := float64(nowSec-s1) / float64(s2-s1)
		target := int(math.Floor(float64(indices[i]) + float64(indices[i+1]-indices[i])*ratio))
		if target >= len(coords) {
			target = len(coords) - 1
		}
		if target < 0 {
			target = 0
		}

		coord := coords[target]
		if len(coord) < 2 {
			return Position{}, false
		}
		return Position{Lng: coord[0], Lat: coord[1], Index: target}, true
	}

	return Position{}, false
}

// shapeBearing returns the heading of the shape at index idx, looking at the
// previous coordinate (or the next one at the start of the path)
func shapeBearing(shape *models.ShapeData, idx int) (float64, bool) {
	coords := shape.Coordinates
	from, to := idx-1, idx
	if idx == 0 {
		from, to = 0, 1
	}
	if from < 0 || to >= len(coords) || len(coords[from]) < 2 || len(coords[to]) < 2 {
		return 0, false
	}
	a, b := coords[from], coords[to]
	if a[0] == b[0] && a[1] == b[1] {
		return 0, false
	}
	return Bearing(a[1], a[0], b[1], b[0]), true
}

// shapeProgress returns how far idx lies between the first and last stop indices
func shapeProgress(shape *models.ShapeData, idx int) float64 {
	indices := shape.StopIndices
	if len(indices) < 2 {
		return 0
	}
	first, last := indices[0], indices[len(indices)-1]
	if last <= first {
		return 0
	}
	return Clamp(float64(idx-first)/float64(last-first), 0, 1)
}
