package httpapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/i474232898/weather-refresh/internal/scheduler"
	"github.com/i474232898/weather-refresh/internal/weather"
	"github.com/i474232898/weather-refresh/internal/widget"
)

var validate = validator.New()

// WeatherController is the main-screen orchestrator.
type WeatherController interface {
	State() weather.ViewState
	Dispatch(ctx context.Context, ev weather.Event) error
}

// WidgetView exposes the widget card.
type WidgetView interface {
	View() widget.Card
}

// Trigger starts named background refreshes.
type Trigger interface {
	TriggerNow(name string) <-chan struct{}
}

// Preferences resets the stored preference record.
type Preferences interface {
	Clear(ctx context.Context) error
}

// Deps are the collaborators behind the routes. Metrics and Preferences may be nil.
type Deps struct {
	Weather     WeatherController
	Widget      WidgetView
	Trigger     Trigger
	Preferences Preferences
	Metrics     http.Handler
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics))
	}

	v1 := app.Group("/api/v1")

	v1.Get("/weather/state", func(c *fiber.Ctx) error {
		return c.JSON(d.Weather.State())
	})

	v1.Post("/weather/events", func(c *fiber.Ctx) error {
		var req eventRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		// Fetch and validation failures are part of the returned state.
		_ = d.Weather.Dispatch(c.UserContext(), req.toEvent())
		return c.JSON(d.Weather.State())
	})

	if d.Preferences != nil {
		v1.Delete("/preferences", func(c *fiber.Ctx) error {
			if err := d.Preferences.Clear(c.UserContext()); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to clear preferences")
			}
			return c.SendStatus(fiber.StatusNoContent)
		})
	}

	v1.Get("/widget", func(c *fiber.Ctx) error {
		return c.JSON(d.Widget.View())
	})

	v1.Post("/widget/refresh", func(c *fiber.Ctx) error {
		done := d.Trigger.TriggerNow(scheduler.ManualRefresh)

		if !c.QueryBool("wait") {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "accepted"})
		}
		select {
		case <-done:
			return c.JSON(d.Widget.View())
		case <-c.UserContext().Done():
			return fiber.NewError(fiber.StatusServiceUnavailable, "refresh interrupted")
		}
	})
}

// eventRequest is the body of POST /api/v1/weather/events.
type eventRequest struct {
	Kind string `json:"kind" validate:"required,oneof=get_weather_by_query get_weather_by_location update_search_query retry_last_search toggle_location_based_search toggle_search_bar_visibility"`
	Text string `json:"text" validate:"max=200"`
}

func (r eventRequest) toEvent() weather.Event {
	return weather.Event{Kind: weather.EventKind(r.Kind), Text: r.Text}
}
