package handlers

import (
	"errors"
	"math"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// boundsQuery is the raw ?minLat&maxLat&minLng&maxLng query
type boundsQuery struct {
	MinLat string `query:"minLat" validate:"required"`
	MaxLat string `query:"maxLat" validate:"required"`
	MinLng string `query:"minLng" validate:"required"`
	MaxLng string `query:"maxLng" validate:"required"`
}

func readBoundsQuery(r *http.Request) boundsQuery {
	q := r.URL.Query()
	return boundsQuery{
		MinLat: q.Get("minLat"),
		MaxLat: q.Get("maxLat"),
		MinLng: q.Get("minLng"),
		MaxLng: q.Get("maxLng"),
	}
}

// complete reports whether all four parameters were supplied
func (b boundsQuery) complete() bool {
	return b.MinLat != "" && b.MaxLat != "" && b.MinLng != "" && b.MaxLng != ""
}

// parse validates the query and builds a bounding box
func (b boundsQuery) parse() (schedule.Bounds, error) {
	if err := validate.Struct(b); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return schedule.Bounds{}, &schedule.ValidationError{
				Field:  verrs[0].Field(),
				Reason: "minLat, maxLat, minLng and maxLng are required",
			}
		}
		return schedule.Bounds{}, err
	}

	params := []struct {
		name, value string
	}{
		{"minLat", b.MinLat}, {"maxLat", b.MaxLat}, {"minLng", b.MinLng}, {"maxLng", b.MaxLng},
	}
	vals := make([]float64, len(params))
	for i, p := range params {
		f, err := strconv.ParseFloat(p.value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return schedule.Bounds{}, &schedule.ValidationError{Field: p.name, Reason: "must be a number"}
		}
		vals[i] = f
	}
	return schedule.NewBounds(vals[0], vals[1], vals[2], vals[3])
}
