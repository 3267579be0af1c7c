package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/i474232898/weather-refresh/internal/weather"
)

const weatherAPIForecastURL = "https://api.weatherapi.com/v1/forecast.json"

// WeatherAPIProvider implements weather.Source for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *breaker
}

// WeatherAPIOption customises a WeatherAPIProvider.
type WeatherAPIOption func(*WeatherAPIProvider)

// WithWeatherAPIBaseURL points the provider at a different forecast endpoint.
func WithWeatherAPIBaseURL(u string) WeatherAPIOption {
	return func(p *WeatherAPIProvider) { p.baseURL = u }
}

// WithWeatherAPIBackoff overrides the retry policy.
func WithWeatherAPIBackoff(b BackoffConfig) WeatherAPIOption {
	return func(p *WeatherAPIProvider) { p.httpCfg.Backoff = b }
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, opts ...WeatherAPIOption) *WeatherAPIProvider {
	p := &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: weatherAPIForecastURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("weatherapi"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

// Host returns the provider's host, used for connectivity probing.
func (p *WeatherAPIProvider) Host() string {
	return hostOf(p.baseURL)
}

// FetchForecast calls forecast.json. query is a place name or "lat,lon".
func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, query string, days int) (weather.ForecastPayload, error) {
	if p.apiKey == "" {
		return weather.ForecastPayload{}, fmt.Errorf("weatherapi api key is not configured")
	}
	if days <= 0 {
		days = weather.DefaultForecastDays
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", query)
		values.Set("days", fmt.Sprint(days))
		values.Set("aqi", "no")
		values.Set("alerts", "no")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, weatherAPIMessage, buildRequest)
	if err != nil {
		return weather.ForecastPayload{}, err
	}

	var payload weather.ForecastPayload
	if err := decodeJSON(resp, &payload); err != nil {
		return weather.ForecastPayload{}, err
	}
	return payload, nil
}

// weatherAPIMessage extracts error.message from a WeatherAPI error body.
func weatherAPIMessage(body []byte) string {
	var e struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return plainMessage(body)
	}
	return e.Error.Message
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
