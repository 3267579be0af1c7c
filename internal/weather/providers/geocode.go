package providers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-refresh/internal/weather"
)

// ErrNoGeocoder is returned when a place name needs resolving and no geocoder is configured.
var ErrNoGeocoder = errors.New("geocoder not configured")

// Place is a resolved place name.
type Place struct {
	Name    string
	Country string
	Coords  weather.Coordinates
}

// Geocoder resolves free-text place names to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Place, error)
}

// GoogleGeocoder resolves place names with the Google Geocoding API through
// github.com/kelvins/geocoder.
type GoogleGeocoder struct {
	apiKey string
}

// kelvins/geocoder keeps its API key in a package variable.
var geocoderMu sync.Mutex

func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{apiKey: apiKey}
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, query string) (Place, error) {
	if g.apiKey == "" {
		return Place{}, ErrNoGeocoder
	}
	if err := ctx.Err(); err != nil {
		return Place{}, err
	}

	addr := geocoder.Address{City: query}
	if city, country, ok := strings.Cut(query, ","); ok {
		addr = geocoder.Address{
			City:    strings.TrimSpace(city),
			Country: strings.TrimSpace(country),
		}
	}

	geocoderMu.Lock()
	geocoder.ApiKey = g.apiKey
	loc, err := geocoder.Geocoding(addr)
	geocoderMu.Unlock()
	if err != nil {
		return Place{}, fmt.Errorf("geocode %q: %w", query, err)
	}

	return Place{
		Name:    addr.City,
		Country: addr.Country,
		Coords:  weather.Coordinates{Lat: loc.Latitude, Lon: loc.Longitude},
	}, nil
}

// parseCoordinates recognises a "lat,lon" query.
func parseCoordinates(query string) (weather.Coordinates, bool) {
	latText, lonText, ok := strings.Cut(query, ",")
	if !ok {
		return weather.Coordinates{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	if err != nil || lat < -90 || lat > 90 {
		return weather.Coordinates{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonText), 64)
	if err != nil || lon < -180 || lon > 180 {
		return weather.Coordinates{}, false
	}
	return weather.Coordinates{Lat: lat, Lon: lon}, true
}
