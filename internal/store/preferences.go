package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/i474232898/weather-refresh/internal/weather"
)

var (
	// ErrUnknownDriver is returned for an unsupported preferences driver.
	ErrUnknownDriver = errors.New("unknown preferences driver")
)

// Persisted keys.
const (
	keyLocationBased = "is_location_based"
	keyWeatherJSON   = "weather_json"
	keyLastQuery     = "last_searched_location"
	keyLastLatitude  = "last_location_latitude"
	keyLastLongitude = "last_location_longitude"
)

// Backend is the raw key-value storage behind a Repository. Replace swaps the
// entire contents atomically.
type Backend interface {
	Load(ctx context.Context) (map[string]string, error)
	Replace(ctx context.Context, values map[string]string) error
	Close() error
}

// Repository implements weather.PreferenceStore on top of a Backend and
// notifies watchers after every write.
type Repository struct {
	backend Backend
	logger  *slog.Logger

	// mu serializes writes so each read-modify-write setter is atomic.
	mu sync.Mutex

	watchMu  sync.Mutex
	watchers map[int]chan weather.Preferences
	nextID   int
}

// NewRepository creates a Repository over backend.
func NewRepository(backend Backend, logger *slog.Logger) *Repository {
	return &Repository{
		backend:  backend,
		logger:   logger.With("component", "preferences"),
		watchers: make(map[int]chan weather.Preferences),
	}
}

// Open builds a Repository for the configured driver: "memory", "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Repository, error) {
	var backend Backend
	switch driver {
	case "", "memory":
		backend = NewMemoryBackend()
	case DriverSQLite, DriverPostgres:
		b, err := NewSQLBackend(ctx, driver, dsn)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	return NewRepository(backend, logger), nil
}

// Read returns a fresh copy of the stored preferences.
func (r *Repository) Read(ctx context.Context) (weather.Preferences, error) {
	values, err := r.backend.Load(ctx)
	if err != nil {
		return weather.Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	return decode(values, r.logger), nil
}

// Save replaces the whole record.
func (r *Repository) Save(ctx context.Context, p weather.Preferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.write(ctx, p)
}

// Update applies fn to the current record and saves the result.
func (r *Repository) Update(ctx context.Context, fn func(*weather.Preferences)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.Read(ctx)
	if err != nil {
		return err
	}
	fn(&p)
	return r.write(ctx, p)
}

func (r *Repository) SetSnapshot(ctx context.Context, s weather.Snapshot) error {
	encoded, err := weather.EncodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return r.Update(ctx, func(p *weather.Preferences) { p.Snapshot = encoded })
}

func (r *Repository) SetLocationMode(ctx context.Context, locationBased bool) error {
	return r.Update(ctx, func(p *weather.Preferences) { p.LocationBased = locationBased })
}

func (r *Repository) SetLastQuery(ctx context.Context, query string) error {
	return r.Update(ctx, func(p *weather.Preferences) { p.LastQuery = query })
}

func (r *Repository) SetLastCoordinates(ctx context.Context, lat, lon float64) error {
	return r.Update(ctx, func(p *weather.Preferences) {
		p.LastCoordinates = &weather.Coordinates{Lat: lat, Lon: lon}
	})
}

// Clear resets every preference to its default.
func (r *Repository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.write(ctx, weather.DefaultPreferences())
}

// Close closes the backend.
func (r *Repository) Close() error {
	return r.backend.Close()
}

func (r *Repository) write(ctx context.Context, p weather.Preferences) error {
	if err := r.backend.Replace(ctx, encode(p)); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	r.notify(p)
	return nil
}

// Watch emits the current record and then the latest record after each write.
// Each watcher holds at most one pending record; a newer record replaces an
// unread one, so writers never block on slow watchers.
func (r *Repository) Watch(ctx context.Context) <-chan weather.Preferences {
	out := make(chan weather.Preferences, 1)

	// Holding mu keeps a concurrent write from slipping between the initial
	// read and registration.
	r.mu.Lock()
	p, err := r.Read(ctx)
	r.watchMu.Lock()
	id := r.nextID
	r.nextID++
	r.watchers[id] = out
	if err == nil {
		offerLocked(out, p)
	}
	r.watchMu.Unlock()
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("failed to read preferences for watcher", "error", err)
	}

	go func() {
		<-ctx.Done()
		r.watchMu.Lock()
		delete(r.watchers, id)
		close(out)
		r.watchMu.Unlock()
	}()

	return out
}

func (r *Repository) notify(p weather.Preferences) {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()

	for _, ch := range r.watchers {
		offerLocked(ch, p)
	}
}

// offerLocked replaces any unread record in ch with p. Callers hold watchMu.
func offerLocked(ch chan weather.Preferences, p weather.Preferences) {
	select {
	case <-ch:
	default:
	}
	ch <- p
}

func encode(p weather.Preferences) map[string]string {
	values := map[string]string{
		keyLocationBased: strconv.FormatBool(p.LocationBased),
		keyLastQuery:     p.LastQuery,
	}
	if p.Snapshot != "" {
		values[keyWeatherJSON] = p.Snapshot
	}
	if c := p.LastCoordinates; c != nil {
		values[keyLastLatitude] = strconv.FormatFloat(c.Lat, 'f', -1, 64)
		values[keyLastLongitude] = strconv.FormatFloat(c.Lon, 'f', -1, 64)
	}
	return values
}

// decode tolerates missing or malformed values by falling back to defaults.
func decode(values map[string]string, logger *slog.Logger) weather.Preferences {
	p := weather.DefaultPreferences()

	if v, ok := values[keyLocationBased]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			p.LocationBased = b
		} else {
			logger.Warn("ignoring malformed preference", "key", keyLocationBased, "value", v)
		}
	}
	p.Snapshot = values[keyWeatherJSON]
	p.LastQuery = values[keyLastQuery]

	lat, latOK := parseFloat(values, keyLastLatitude)
	lon, lonOK := parseFloat(values, keyLastLongitude)
	if latOK && lonOK {
		p.LastCoordinates = &weather.Coordinates{Lat: lat, Lon: lon}
	}
	return p
}

func parseFloat(values map[string]string, key string) (float64, bool) {
	v, ok := values[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}
