package location

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/i474232898/weather-refresh/internal/weather"
)

const ipAPIURL = "http://ip-api.com/json/?fields=status,message,lat,lon"

// IPLookup estimates coordinates from the host's public IP address.
type IPLookup struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

func NewIPLookup(client *http.Client, logger *slog.Logger) *IPLookup {
	return &IPLookup{client: client, baseURL: ipAPIURL, logger: logger.With("component", "ip-location")}
}

// WithBaseURL points the lookup at another endpoint.
func (l *IPLookup) WithBaseURL(u string) *IPLookup {
	l.baseURL = u
	return l
}

func (l *IPLookup) CurrentCoordinates(ctx context.Context) (weather.Coordinates, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL, nil)
	if err != nil {
		l.logger.Error("build request", "error", err)
		return weather.Coordinates{}, false
	}

	resp, err := l.client.Do(req)
	if err != nil {
		l.logger.Warn("ip lookup failed", "error", err)
		return weather.Coordinates{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Warn("ip lookup failed", "status", resp.StatusCode)
		return weather.Coordinates{}, false
	}

	var body struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		l.logger.Warn("decode ip lookup", "error", err)
		return weather.Coordinates{}, false
	}
	if body.Status != "success" {
		l.logger.Warn("ip lookup rejected", "message", body.Message)
		return weather.Coordinates{}, false
	}
	return weather.Coordinates{Lat: body.Lat, Lon: body.Lon}, true
}
