package location

import (
	"context"

	"github.com/i474232898/weather-refresh/internal/weather"
)

// Static returns fixed, configured coordinates.
type Static struct {
	coords weather.Coordinates
	set    bool
}

// NewStatic returns a Static locator. A nil lat or lon yields a locator that
// never has a fix.
func NewStatic(lat, lon *float64) *Static {
	if lat == nil || lon == nil {
		return &Static{}
	}
	return &Static{coords: weather.Coordinates{Lat: *lat, Lon: *lon}, set: true}
}

func (s *Static) CurrentCoordinates(context.Context) (weather.Coordinates, bool) {
	return s.coords, s.set
}
