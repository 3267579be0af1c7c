package location

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/i474232898/weather-refresh/internal/weather"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(f float64) *float64 { return &f }

func TestStatic(t *testing.T) {
	c, ok := NewStatic(ptr(1.5), ptr(-2.25)).CurrentCoordinates(context.Background())
	assert.True(t, ok)
	assert.Equal(t, weather.Coordinates{Lat: 1.5, Lon: -2.25}, c)

	_, ok = NewStatic(nil, ptr(3)).CurrentCoordinates(context.Background())
	assert.False(t, ok)
}

func TestIPLookup(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   weather.Coordinates
		ok     bool
	}{
		{"success", http.StatusOK, `{"status":"success","lat":52.52,"lon":13.405}`, weather.Coordinates{Lat: 52.52, Lon: 13.405}, true},
		{"rejected", http.StatusOK, `{"status":"fail","message":"private range"}`, weather.Coordinates{}, false},
		{"bad status", http.StatusServiceUnavailable, ``, weather.Coordinates{}, false},
		{"malformed", http.StatusOK, `{"status":`, weather.Coordinates{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, ok := NewIPLookup(srv.Client(), discard()).WithBaseURL(srv.URL).CurrentCoordinates(context.Background())
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

type slowLocator struct{}

func (slowLocator) CurrentCoordinates(ctx context.Context) (weather.Coordinates, bool) {
	<-ctx.Done()
	return weather.Coordinates{}, false
}

func TestChain_FirstFixWins(t *testing.T) {
	chain := NewChain(time.Second, discard(),
		NewStatic(nil, nil),
		NewStatic(ptr(10), ptr(20)),
		NewStatic(ptr(30), ptr(40)),
	)
	c, ok := chain.CurrentCoordinates(context.Background())
	assert.True(t, ok)
	assert.Equal(t, weather.Coordinates{Lat: 10, Lon: 20}, c)
}

func TestChain_TimeoutGivesNoFix(t *testing.T) {
	chain := NewChain(20*time.Millisecond, discard(), slowLocator{}, NewStatic(ptr(1), ptr(2)))

	start := time.Now()
	_, ok := chain.CurrentCoordinates(context.Background())
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestChain_Empty(t *testing.T) {
	_, ok := NewChain(0, discard()).CurrentCoordinates(context.Background())
	assert.False(t, ok)
}
