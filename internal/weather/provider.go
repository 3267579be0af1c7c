package weather

import (
	"context"
	"time"
)

// DefaultForecastDays is the number of forecast days requested when none is configured.
const DefaultForecastDays = 3

// Source abstracts a remote forecast provider (e.g. WeatherAPI.com, Open-Meteo).
// query is either a free-text place name or a "lat,lon" pair. Sources fail with
// a transport error or a *StatusError and never return a partial payload.
type Source interface {
	Name() string
	FetchForecast(ctx context.Context, query string, days int) (ForecastPayload, error)
}

// Locator resolves the device's current coordinates. It returns ok=false when
// permission is missing, no fix is available or its own timeout expires.
type Locator interface {
	CurrentCoordinates(ctx context.Context) (Coordinates, bool)
}

// PreferenceStore is the durable state shared by foreground and background refreshes.
// Every Save replaces the whole record. Update is an atomic read-modify-write of
// that record, so concurrent writers never drop each other's fields.
type PreferenceStore interface {
	Read(ctx context.Context) (Preferences, error)
	// Watch emits the current record and then the latest record after every
	// change, until ctx is done.
	Watch(ctx context.Context) <-chan Preferences
	Save(ctx context.Context, p Preferences) error
	Update(ctx context.Context, fn func(*Preferences)) error
}

// Recorder receives fetch measurements.
type Recorder interface {
	ObserveFetch(outcome string, d time.Duration)
	ObserveSnapshotAge(age time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, time.Duration) {}
func (nopRecorder) ObserveSnapshotAge(time.Duration)   {}
