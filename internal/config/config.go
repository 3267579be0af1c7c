package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported weather providers.
const (
	ProviderWeatherAPI = "weatherapi"
	ProviderOpenMeteo  = "openmeteo"
)

type AppConfig struct {
	Provider       string
	WeatherAPIKey  string
	GeocoderAPIKey string
	ForecastDays   int

	// StaleAfter is the age beyond which a cached snapshot is refreshed.
	StaleAfter time.Duration
	// RefreshInterval controls the periodic background refresh.
	RefreshInterval time.Duration

	HTTPTimeout    time.Duration
	HTTPMaxRetries int

	LocationTimeout  time.Duration
	LocationLat      *float64
	LocationLon      *float64
	LocationIPLookup bool

	PreferencesDriver string // memory, sqlite or postgres
	PreferencesDSN    string

	Port            string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from the environment (and an optional .env file)
// with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	var errs []error
	cfg := &AppConfig{
		Provider:          strings.ToLower(getenvDefault("WEATHER_PROVIDER", ProviderWeatherAPI)),
		WeatherAPIKey:     os.Getenv("WEATHERAPI_API_KEY"),
		GeocoderAPIKey:    os.Getenv("GEOCODER_API_KEY"),
		ForecastDays:      getenvInt("FORECAST_DAYS", 3, &errs),
		StaleAfter:        getenvDuration("STALE_AFTER", 30*time.Minute, &errs),
		RefreshInterval:   getenvDuration("REFRESH_INTERVAL", 30*time.Minute, &errs),
		HTTPTimeout:       getenvDuration("HTTP_TIMEOUT", 10*time.Second, &errs),
		HTTPMaxRetries:    getenvInt("HTTP_MAX_RETRIES", 3, &errs),
		LocationTimeout:   getenvDuration("LOCATION_TIMEOUT", 15*time.Second, &errs),
		LocationLat:       getenvFloat("LOCATION_LAT", &errs),
		LocationLon:       getenvFloat("LOCATION_LON", &errs),
		LocationIPLookup:  getenvBool("LOCATION_IP_LOOKUP", true, &errs),
		PreferencesDriver: strings.ToLower(getenvDefault("PREFERENCES_DRIVER", "memory")),
		PreferencesDSN:    os.Getenv("PREFERENCES_DSN"),
		Port:              getenvDefault("PORT", "8080"),
		LogLevel:          getenvDefault("LOG_LEVEL", "info"),
		LogFormat:         getenvDefault("LOG_FORMAT", "text"),
		ShutdownTimeout:   getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *AppConfig) validate() []error {
	var errs []error

	switch c.Provider {
	case ProviderWeatherAPI:
		if c.WeatherAPIKey == "" {
			errs = append(errs, errors.New("WEATHERAPI_API_KEY is required for the weatherapi provider"))
		}
	case ProviderOpenMeteo:
	default:
		errs = append(errs, fmt.Errorf("invalid WEATHER_PROVIDER %q", c.Provider))
	}

	switch c.PreferencesDriver {
	case "memory":
	case "sqlite", "postgres":
		if c.PreferencesDSN == "" {
			errs = append(errs, fmt.Errorf("PREFERENCES_DSN is required for driver %q", c.PreferencesDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid PREFERENCES_DRIVER %q", c.PreferencesDriver))
	}

	if (c.LocationLat == nil) != (c.LocationLon == nil) {
		errs = append(errs, errors.New("LOCATION_LAT and LOCATION_LON must be set together"))
	}
	if c.LocationLat != nil && (*c.LocationLat < -90 || *c.LocationLat > 90) {
		errs = append(errs, fmt.Errorf("LOCATION_LAT out of range: %v", *c.LocationLat))
	}
	if c.LocationLon != nil && (*c.LocationLon < -180 || *c.LocationLon > 180) {
		errs = append(errs, fmt.Errorf("LOCATION_LON out of range: %v", *c.LocationLon))
	}

	if c.ForecastDays < 1 || c.ForecastDays > 14 {
		errs = append(errs, fmt.Errorf("FORECAST_DAYS must be between 1 and 14, got %d", c.ForecastDays))
	}
	if c.HTTPMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("HTTP_MAX_RETRIES must not be negative, got %d", c.HTTPMaxRetries))
	}
	for name, d := range map[string]time.Duration{
		"STALE_AFTER":      c.StaleAfter,
		"REFRESH_INTERVAL": c.RefreshInterval,
		"HTTP_TIMEOUT":     c.HTTPTimeout,
		"LOCATION_TIMEOUT": c.LocationTimeout,
		"SHUTDOWN_TIMEOUT": c.ShutdownTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	return errs
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}

func getenvBool(key string, def bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return b
}

func getenvFloat(key string, errs *[]error) *float64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return nil
	}
	return &f
}
