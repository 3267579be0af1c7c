package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/i474232898/weather-refresh/internal/weather"
)

const openMeteoForecastURL = "https://api.open-meteo.com/v1/forecast"

const (
	openMeteoCurrent = "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m"
	openMeteoHourly  = "temperature_2m,weather_code,precipitation_probability,wind_speed_10m"
	openMeteoDaily   = "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max"

	openMeteoTimeLayout = "2006-01-02T15:04"
	openMeteoDateLayout = "2006-01-02"
)

// OpenMeteoProvider implements weather.Source for Open-Meteo. Its response is
// translated into the WeatherAPI-shaped payload; place names go through a Geocoder.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	geocoder Geocoder
	httpCfg  HTTPClientConfig
	circuit  *breaker
}

// OpenMeteoOption customises an OpenMeteoProvider.
type OpenMeteoOption func(*OpenMeteoProvider)

func WithOpenMeteoBaseURL(u string) OpenMeteoOption {
	return func(p *OpenMeteoProvider) { p.baseURL = u }
}

func WithOpenMeteoBackoff(b BackoffConfig) OpenMeteoOption {
	return func(p *OpenMeteoProvider) { p.httpCfg.Backoff = b }
}

func NewOpenMeteoProvider(client *http.Client, geocoder Geocoder, opts ...OpenMeteoOption) *OpenMeteoProvider {
	p := &OpenMeteoProvider{
		name:     "openmeteo",
		baseURL:  openMeteoForecastURL,
		geocoder: geocoder,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("openmeteo"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Host() string {
	return hostOf(p.baseURL)
}

type openMeteoResponse struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Current          struct {
		Temperature         float64 `json:"temperature_2m"`
		RelativeHumidity    float64 `json:"relative_humidity_2m"`
		ApparentTemperature float64 `json:"apparent_temperature"`
		WeatherCode         int     `json:"weather_code"`
		WindSpeed           float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Hourly struct {
		Time                     []string   `json:"time"`
		Temperature              []float64  `json:"temperature_2m"`
		WeatherCode              []int      `json:"weather_code"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		WindSpeed                []float64  `json:"wind_speed_10m"`
	} `json:"hourly"`
	Daily struct {
		Time                        []string   `json:"time"`
		WeatherCode                 []int      `json:"weather_code"`
		TemperatureMax              []float64  `json:"temperature_2m_max"`
		TemperatureMin              []float64  `json:"temperature_2m_min"`
		PrecipitationProbabilityMax []*float64 `json:"precipitation_probability_max"`
	} `json:"daily"`
}

// FetchForecast accepts "lat,lon" directly and geocodes anything else.
func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, query string, days int) (weather.ForecastPayload, error) {
	if days <= 0 {
		days = weather.DefaultForecastDays
	}

	place, err := p.resolve(ctx, query)
	if err != nil {
		return weather.ForecastPayload{}, err
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(place.Coords.Lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(place.Coords.Lon, 'f', -1, 64))
		values.Set("current", openMeteoCurrent)
		values.Set("hourly", openMeteoHourly)
		values.Set("daily", openMeteoDaily)
		values.Set("forecast_days", strconv.Itoa(days))
		values.Set("timezone", "auto")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, openMeteoMessage, buildRequest)
	if err != nil {
		return weather.ForecastPayload{}, err
	}

	var raw openMeteoResponse
	if err := decodeJSON(resp, &raw); err != nil {
		return weather.ForecastPayload{}, err
	}
	return translateOpenMeteo(raw, place), nil
}

func (p *OpenMeteoProvider) resolve(ctx context.Context, query string) (Place, error) {
	if c, ok := parseCoordinates(query); ok {
		return Place{Name: c.Query(), Coords: c}, nil
	}
	if p.geocoder == nil {
		return Place{}, fmt.Errorf("openmeteo place %q: %w", query, ErrNoGeocoder)
	}
	return p.geocoder.Geocode(ctx, query)
}

func translateOpenMeteo(raw openMeteoResponse, place Place) weather.ForecastPayload {
	loc := time.FixedZone("", raw.UTCOffsetSeconds)

	var out weather.ForecastPayload
	out.Location = weather.PayloadLocation{Name: place.Name, Country: place.Country}
	out.Current = weather.PayloadCurrent{
		TempC:      raw.Current.Temperature,
		FeelsLikeC: raw.Current.ApparentTemperature,
		Humidity:   int(math.Round(raw.Current.RelativeHumidity)),
		WindKph:    raw.Current.WindSpeed,
		Condition:  payloadCondition(raw.Current.WeatherCode),
	}

	days := make([]weather.PayloadDay, len(raw.Daily.Time))
	index := make(map[string]int, len(days))
	for i, date := range raw.Daily.Time {
		d := &days[i]
		d.Date = date
		if t, err := time.ParseInLocation(openMeteoDateLayout, date, loc); err == nil {
			d.DateEpoch = t.Unix()
		}
		d.Day.MaxTempC = at(raw.Daily.TemperatureMax, i)
		d.Day.MinTempC = at(raw.Daily.TemperatureMin, i)
		d.Day.ChanceOfRain = percent(raw.Daily.PrecipitationProbabilityMax, i)
		d.Day.Condition = payloadCondition(at(raw.Daily.WeatherCode, i))
		index[date] = i
	}

	for i, ts := range raw.Hourly.Time {
		t, err := time.ParseInLocation(openMeteoTimeLayout, ts, loc)
		if err != nil {
			continue
		}
		di, ok := index[t.Format(openMeteoDateLayout)]
		if !ok {
			continue
		}
		days[di].Hours = append(days[di].Hours, weather.PayloadHour{
			Time:         strings.Replace(ts, "T", " ", 1),
			TimeEpoch:    t.Unix(),
			TempC:        at(raw.Hourly.Temperature, i),
			WindKph:      at(raw.Hourly.WindSpeed, i),
			ChanceOfRain: percent(raw.Hourly.PrecipitationProbability, i),
			Condition:    payloadCondition(at(raw.Hourly.WeatherCode, i)),
		})
	}

	out.Forecast.Days = days
	return out
}

// wmoToWeatherAPI maps WMO weather interpretation codes onto WeatherAPI.com
// condition codes.
var wmoToWeatherAPI = map[int]weather.PayloadCondition{
	0:  {Code: 1000, Text: "Clear"},
	1:  {Code: 1003, Text: "Mainly clear"},
	2:  {Code: 1003, Text: "Partly cloudy"},
	3:  {Code: 1009, Text: "Overcast"},
	45: {Code: 1135, Text: "Fog"},
	48: {Code: 1135, Text: "Depositing rime fog"},
	51: {Code: 1153, Text: "Light drizzle"},
	53: {Code: 1153, Text: "Drizzle"},
	55: {Code: 1153, Text: "Dense drizzle"},
	56: {Code: 1168, Text: "Freezing drizzle"},
	57: {Code: 1171, Text: "Heavy freezing drizzle"},
	61: {Code: 1183, Text: "Light rain"},
	63: {Code: 1189, Text: "Moderate rain"},
	65: {Code: 1195, Text: "Heavy rain"},
	66: {Code: 1198, Text: "Light freezing rain"},
	67: {Code: 1198, Text: "Heavy freezing rain"},
	71: {Code: 1213, Text: "Light snow"},
	73: {Code: 1219, Text: "Moderate snow"},
	75: {Code: 1219, Text: "Heavy snow"},
	77: {Code: 1213, Text: "Snow grains"},
	80: {Code: 1180, Text: "Light rain shower"},
	81: {Code: 1189, Text: "Rain shower"},
	82: {Code: 1195, Text: "Violent rain shower"},
	85: {Code: 1213, Text: "Light snow showers"},
	86: {Code: 1219, Text: "Heavy snow showers"},
	95: {Code: 1279, Text: "Thunderstorm"},
	96: {Code: 1282, Text: "Thunderstorm with hail"},
	99: {Code: 1282, Text: "Thunderstorm with heavy hail"},
}

func payloadCondition(wmo int) weather.PayloadCondition {
	if c, ok := wmoToWeatherAPI[wmo]; ok {
		return c
	}
	return weather.PayloadCondition{Code: -1}
}

func at[T any](s []T, i int) T {
	var zero T
	if i < 0 || i >= len(s) {
		return zero
	}
	return s[i]
}

func percent(s []*float64, i int) int {
	v := at(s, i)
	if v == nil {
		return 0
	}
	return int(math.Round(*v))
}

// openMeteoMessage extracts "reason" from an Open-Meteo error body.
func openMeteoMessage(body []byte) string {
	var e struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return plainMessage(body)
	}
	return e.Reason
}
