package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-refresh/internal/weather"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func backends() map[string]func(t *testing.T) Backend {
	return map[string]func(t *testing.T) Backend{
		"memory": func(t *testing.T) Backend { return NewMemoryBackend() },
		"sqlite": func(t *testing.T) Backend {
			dsn := filepath.Join(t.TempDir(), "prefs.db")
			b, err := NewSQLBackend(context.Background(), DriverSQLite, dsn)
			require.NoError(t, err)
			t.Cleanup(func() { _ = b.Close() })
			return b
		},
	}
}

func TestRepository_DefaultsAndSetters(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewRepository(mk(t), testLogger())

			p, err := repo.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, weather.DefaultPreferences(), p)
			assert.True(t, p.LocationBased)

			snap := weather.Snapshot{Location: "Paris", Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
			require.NoError(t, repo.SetSnapshot(ctx, snap))
			require.NoError(t, repo.SetLocationMode(ctx, false))
			require.NoError(t, repo.SetLastQuery(ctx, "Paris"))
			require.NoError(t, repo.SetLastCoordinates(ctx, 48.8566, 2.3522))

			p, err = repo.Read(ctx)
			require.NoError(t, err)
			assert.False(t, p.LocationBased)
			assert.Equal(t, "Paris", p.LastQuery)
			require.NotNil(t, p.LastCoordinates)
			assert.Equal(t, weather.Coordinates{Lat: 48.8566, Lon: 2.3522}, *p.LastCoordinates)
			decoded := weather.DecodeSnapshot(p.Snapshot)
			require.NotNil(t, decoded)
			assert.Equal(t, snap.Location, decoded.Location)
			assert.True(t, snap.Timestamp.Equal(decoded.Timestamp))

			require.NoError(t, repo.Clear(ctx))
			p, err = repo.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, weather.DefaultPreferences(), p)
		})
	}
}

func TestRepository_ConcurrentUpdatesKeepEveryField(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewRepository(mk(t), testLogger())

			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					assert.NoError(t, repo.SetLastQuery(ctx, "Paris"))
				}()
				go func() {
					defer wg.Done()
					assert.NoError(t, repo.SetLastCoordinates(ctx, 1.5, 2.5))
				}()
			}
			wg.Wait()

			p, err := repo.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, "Paris", p.LastQuery)
			require.NotNil(t, p.LastCoordinates)
			assert.Equal(t, weather.Coordinates{Lat: 1.5, Lon: 2.5}, *p.LastCoordinates)
		})
	}
}

func TestRepository_SaveReplacesWholeRecord(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := NewRepository(mk(t), testLogger())

			require.NoError(t, repo.Save(ctx, weather.Preferences{
				Snapshot:        `{"location":"Oslo"}`,
				LastQuery:       "Oslo",
				LastCoordinates: &weather.Coordinates{Lat: 1, Lon: 2},
			}))
			require.NoError(t, repo.Save(ctx, weather.Preferences{LocationBased: true}))

			p, err := repo.Read(ctx)
			require.NoError(t, err)
			assert.Equal(t, weather.Preferences{LocationBased: true}, p)
		})
	}
}

func TestRepository_WatchEmitsCurrentThenLatest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := NewRepository(NewMemoryBackend(), testLogger())

	ch := repo.Watch(ctx)

	select {
	case p := <-ch:
		assert.Equal(t, weather.DefaultPreferences(), p)
	case <-time.After(time.Second):
		t.Fatal("no initial emission")
	}

	// Unread writes coalesce into the newest record.
	require.NoError(t, repo.SetLastQuery(ctx, "A"))
	require.NoError(t, repo.SetLastQuery(ctx, "B"))
	require.NoError(t, repo.SetLastQuery(ctx, "C"))

	select {
	case p := <-ch:
		assert.Equal(t, "C", p.LastQuery)
	case <-time.After(time.Second):
		t.Fatal("no emission after write")
	}
	select {
	case p := <-ch:
		t.Fatalf("unexpected extra emission: %+v", p)
	default:
	}

	cancel()
	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}

func TestRepository_DecodeToleratesMalformedValues(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.Replace(ctx, map[string]string{
		keyLocationBased: "maybe",
		keyLastQuery:     "Lima",
		keyLastLatitude:  "north",
		keyLastLongitude: "10",
	}))
	repo := NewRepository(backend, testLogger())

	p, err := repo.Read(ctx)
	require.NoError(t, err)
	assert.True(t, p.LocationBased)
	assert.Equal(t, "Lima", p.LastQuery)
	assert.Nil(t, p.LastCoordinates)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	repo, err := Open(ctx, "memory", "", testLogger())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "p.db"), testLogger())
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	_, err = Open(ctx, "redis", "", testLogger())
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestSQLBackend_Persists(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "prefs.db")

	b, err := NewSQLBackend(ctx, DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, b.Replace(ctx, map[string]string{"k": "v"}))
	require.NoError(t, b.Close())

	b, err = NewSQLBackend(ctx, DriverSQLite, dsn)
	require.NoError(t, err)
	defer b.Close()

	values, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "v"}, values)
}

func TestSQLBackend_Rebind(t *testing.T) {
	pg := &SQLBackend{driver: DriverPostgres}
	assert.Equal(t, "INSERT INTO t(a, b) VALUES($1, $2)", pg.rebind("INSERT INTO t(a, b) VALUES(?, ?)"))

	lite := &SQLBackend{driver: DriverSQLite}
	assert.Equal(t, "VALUES(?, ?)", lite.rebind("VALUES(?, ?)"))
}

func TestNewSQLBackend_UnknownDriver(t *testing.T) {
	_, err := NewSQLBackend(context.Background(), "mysql", "")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
