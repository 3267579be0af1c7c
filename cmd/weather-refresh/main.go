package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/weather-refresh/internal/api/http"
	"github.com/i474232898/weather-refresh/internal/config"
	"github.com/i474232898/weather-refresh/internal/location"
	"github.com/i474232898/weather-refresh/internal/observability"
	"github.com/i474232898/weather-refresh/internal/scheduler"
	"github.com/i474232898/weather-refresh/internal/store"
	"github.com/i474232898/weather-refresh/internal/weather"
	"github.com/i474232898/weather-refresh/internal/weather/providers"
	"github.com/i474232898/weather-refresh/internal/widget"
)

const serviceName = "weather-refresh"

// source is a weather.Source whose host can be probed for connectivity.
type source interface {
	weather.Source
	Host() string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	prefs, err := store.Open(ctx, cfg.PreferencesDriver, cfg.PreferencesDSN, logger)
	if err != nil {
		logger.Error("failed to open preferences", "driver", cfg.PreferencesDriver, "error", err)
		os.Exit(1)
	}
	defer prefs.Close()

	backoff := providers.DefaultBackoff
	backoff.MaxRetries = cfg.HTTPMaxRetries

	var src source
	switch cfg.Provider {
	case config.ProviderOpenMeteo:
		var geo providers.Geocoder
		if cfg.GeocoderAPIKey != "" {
			geo = providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)
		} else {
			logger.Info("geocoder disabled, open-meteo accepts coordinates only")
		}
		src = providers.NewOpenMeteoProvider(httpClient, geo, providers.WithOpenMeteoBackoff(backoff))
	default:
		src = providers.NewWeatherAPIProvider(httpClient, cfg.WeatherAPIKey, providers.WithWeatherAPIBackoff(backoff))
	}

	var locators []weather.Locator
	locators = append(locators, location.NewStatic(cfg.LocationLat, cfg.LocationLon))
	if cfg.LocationIPLookup {
		locators = append(locators, location.NewIPLookup(httpClient, logger))
	}
	locator := location.NewChain(cfg.LocationTimeout, logger, locators...)

	svc := weather.NewService(src, locator, prefs,
		weather.WithClock(clock),
		weather.WithLogger(logger),
		weather.WithRecorder(metrics),
		weather.WithStaleAfter(cfg.StaleAfter),
		weather.WithForecastDays(cfg.ForecastDays),
	)

	board := widget.NewBoard(clock)
	go board.Follow(ctx, prefs)

	sched := scheduler.New(svc, board, scheduler.NewTCPProbe(src.Host(), 5*time.Second),
		scheduler.WithInterval(cfg.RefreshInterval),
		scheduler.WithRecorder(metrics),
		scheduler.WithLogger(logger),
	)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		svc.Start(ctx)
	}()

	app := httpapi.NewApp(serviceName, logger)
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Weather:     svc,
		Widget:      board,
		Trigger:     sched,
		Preferences: prefs,
		Metrics:     promhttp.Handler(),
	})

	go func() {
		logger.Info("http server listening", "port", cfg.Port, "provider", src.Name())
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	sched.Stop()

	select {
	case <-watchDone:
	case <-shutdownCtx.Done():
		logger.Warn("preference watcher did not stop in time")
	}
}
