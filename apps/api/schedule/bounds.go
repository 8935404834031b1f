package schedule

// Bounds is an inclusive latitude/longitude box
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// NewBounds builds a Bounds, rejecting boxes whose minimum exceeds the maximum
func NewBounds(minLat, maxLat, minLng, maxLng float64) (Bounds, error) {
	if minLat > maxLat {
		return Bounds{}, &ValidationError{Field: "bounds", Reason: "minLat is greater than maxLat"}
	}
	if minLng > maxLng {
		return Bounds{}, &ValidationError{Field: "bounds", Reason: "minLng is greater than maxLng"}
	}
	return Bounds{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}, nil
}

// Contains reports whether the point lies inside the box, edges included
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat &&
		lng >= b.MinLng && lng <= b.MaxLng
}
