package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-refresh/internal/weather"
)

const openMeteoJSON = `{
  "utc_offset_seconds": 3600,
  "current": {"temperature_2m": 4.2, "relative_humidity_2m": 80.6, "apparent_temperature": 1.9,
              "weather_code": 61, "wind_speed_10m": 12.3},
  "hourly": {
    "time": ["2026-03-01T00:00", "2026-03-01T01:00", "2026-03-02T00:00", "bogus"],
    "temperature_2m": [3.0, 2.5, 1.0, 0],
    "weather_code": [3, 45, 95, 0],
    "precipitation_probability": [10, null, 70, 0],
    "wind_speed_10m": [8.0, 7.5, 20.1, 0]
  },
  "daily": {
    "time": ["2026-03-01", "2026-03-02"],
    "weather_code": [63, 71],
    "temperature_2m_max": [6.5, 2.0],
    "temperature_2m_min": [0.5, -3.0],
    "precipitation_probability_max": [85, null]
  }
}`

type fakeGeocoder struct {
	place Place
	err   error
	query string
}

func (g *fakeGeocoder) Geocode(_ context.Context, q string) (Place, error) {
	g.query = q
	return g.place, g.err
}

func TestOpenMeteo_FetchForecastByCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "47.37", q.Get("latitude"))
		assert.Equal(t, "8.54", q.Get("longitude"))
		assert.Equal(t, "2", q.Get("forecast_days"))
		assert.Equal(t, "auto", q.Get("timezone"))
		_, _ = w.Write([]byte(openMeteoJSON))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), nil, WithOpenMeteoBaseURL(srv.URL), WithOpenMeteoBackoff(fastBackoff))
	payload, err := p.FetchForecast(context.Background(), "47.37,8.54", 2)
	require.NoError(t, err)

	assert.Equal(t, "47.37,8.54", payload.Location.Name)
	assert.Equal(t, 4.2, payload.Current.TempC)
	assert.Equal(t, 81, payload.Current.Humidity)
	assert.Equal(t, weather.ConditionDrizzle, weather.ConditionFromCode(payload.Current.Condition.Code))

	require.Len(t, payload.Forecast.Days, 2)
	day := payload.Forecast.Days[0]
	assert.Equal(t, "2026-03-01", day.Date)
	assert.Equal(t, 85, day.Day.ChanceOfRain)
	assert.Equal(t, weather.ConditionHeavyRain, weather.ConditionFromCode(day.Day.Condition.Code))
	require.Len(t, day.Hours, 2)
	assert.Equal(t, "2026-03-01 00:00", day.Hours[0].Time)
	assert.Equal(t, 10, day.Hours[0].ChanceOfRain)
	assert.Equal(t, 0, day.Hours[1].ChanceOfRain)
	assert.Equal(t, weather.ConditionFog, weather.ConditionFromCode(day.Hours[1].Condition.Code))

	next := payload.Forecast.Days[1]
	assert.Equal(t, weather.ConditionSnow, weather.ConditionFromCode(next.Day.Condition.Code))
	require.Len(t, next.Hours, 1)
	assert.Equal(t, weather.ConditionThunderstorm, weather.ConditionFromCode(next.Hours[0].Condition.Code))
	assert.Equal(t, int64(1772406000), next.Hours[0].TimeEpoch)
}

func TestOpenMeteo_PlaceNameNeedsGeocoder(t *testing.T) {
	p := NewOpenMeteoProvider(http.DefaultClient, nil)
	_, err := p.FetchForecast(context.Background(), "Zurich", 3)
	assert.ErrorIs(t, err, ErrNoGeocoder)
}

func TestOpenMeteo_GeocodesPlaceName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "47.37", r.URL.Query().Get("latitude"))
		_, _ = w.Write([]byte(openMeteoJSON))
	}))
	defer srv.Close()

	geo := &fakeGeocoder{place: Place{Name: "Zurich", Country: "Switzerland", Coords: weather.Coordinates{Lat: 47.37, Lon: 8.54}}}
	p := NewOpenMeteoProvider(srv.Client(), geo, WithOpenMeteoBaseURL(srv.URL))

	payload, err := p.FetchForecast(context.Background(), "Zurich", 3)
	require.NoError(t, err)
	assert.Equal(t, "Zurich", geo.query)
	assert.Equal(t, "Zurich", payload.Location.Name)
	assert.Equal(t, "Switzerland", payload.Location.Country)
}

func TestOpenMeteo_ErrorReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":true,"reason":"Latitude must be in range of -90 to 90°."}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), nil, WithOpenMeteoBaseURL(srv.URL), WithOpenMeteoBackoff(fastBackoff))
	_, err := p.FetchForecast(context.Background(), "1,2", 3)

	var se *weather.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Latitude must be in range of -90 to 90°.", se.Message)
}

func TestPayloadCondition_Unmapped(t *testing.T) {
	assert.Equal(t, weather.ConditionUnknown, weather.ConditionFromCode(payloadCondition(42).Code))
}

func TestParseCoordinates(t *testing.T) {
	tests := []struct {
		in   string
		want weather.Coordinates
		ok   bool
	}{
		{"51.5,-0.12", weather.Coordinates{Lat: 51.5, Lon: -0.12}, true},
		{" 10 , 20 ", weather.Coordinates{Lat: 10, Lon: 20}, true},
		{"London", weather.Coordinates{}, false},
		{"Paris,France", weather.Coordinates{}, false},
		{"91,0", weather.Coordinates{}, false},
		{"0,181", weather.Coordinates{}, false},
	}
	for _, tt := range tests {
		got, ok := parseCoordinates(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestGoogleGeocoder_RequiresKey(t *testing.T) {
	_, err := NewGoogleGeocoder("").Geocode(context.Background(), "Paris")
	assert.ErrorIs(t, err, ErrNoGeocoder)
}
