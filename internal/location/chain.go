// Package location resolves the coordinates used for location-based refreshes.
// Locators never return errors: a missing fix is ok=false.
package location

import (
	"context"
	"log/slog"
	"time"

	"github.com/i474232898/weather-refresh/internal/weather"
)

// DefaultTimeout bounds a single coordinates lookup.
const DefaultTimeout = 15 * time.Second

// Chain asks each locator in turn and returns the first fix. The whole lookup
// shares one timeout.
type Chain struct {
	locators []weather.Locator
	timeout  time.Duration
	logger   *slog.Logger
}

func NewChain(timeout time.Duration, logger *slog.Logger, locators ...weather.Locator) *Chain {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Chain{
		locators: locators,
		timeout:  timeout,
		logger:   logger.With("component", "location"),
	}
}

func (c *Chain) CurrentCoordinates(ctx context.Context) (weather.Coordinates, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	for _, l := range c.locators {
		if coords, ok := l.CurrentCoordinates(ctx); ok {
			return coords, true
		}
		if ctx.Err() != nil {
			c.logger.Warn("location lookup timed out", "timeout", c.timeout)
			return weather.Coordinates{}, false
		}
	}
	c.logger.Debug("no locator produced a fix")
	return weather.Coordinates{}, false
}
