package weather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultStaleAfter is the age beyond which a cached snapshot is refreshed.
const DefaultStaleAfter = 30 * time.Minute

// Service decides which location to query and when, folds every fetch into the
// observable view state, and persists successful results.
type Service struct {
	source  Source
	locator Locator
	prefs   PreferenceStore

	clock      clockwork.Clock
	logger     *slog.Logger
	recorder   Recorder
	staleAfter time.Duration
	days       int

	// inflight counts fetches (including location lookups) still running.
	inflight atomic.Int32

	mu      sync.Mutex
	state   ViewState
	subs    map[int]chan ViewState
	nextSub int
}

// Option customises a Service.
type Option func(*Service)

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l.With("component", "weather-service") }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithStaleAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

func WithForecastDays(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.days = n
		}
	}
}

// NewService creates a new Service.
func NewService(source Source, locator Locator, prefs PreferenceStore, opts ...Option) *Service {
	s := &Service{
		source:     source,
		locator:    locator,
		prefs:      prefs,
		clock:      clockwork.NewRealClock(),
		logger:     slog.Default().With("component", "weather-service"),
		recorder:   nopRecorder{},
		staleAfter: DefaultStaleAfter,
		days:       DefaultForecastDays,
		state:      InitialState(),
		subs:       make(map[int]chan ViewState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current view state.
func (s *Service) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe streams every published view state. Slow subscribers miss states
// once their buffer is full. The returned func unsubscribes and closes the channel.
func (s *Service) Subscribe(buffer int) (<-chan ViewState, func()) {
	ch := make(chan ViewState, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Service) apply(u Update) ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Reduce(s.state, u)
	for _, ch := range s.subs {
		select {
		case ch <- s.state:
		default:
		}
	}
	return s.state
}

// Start follows the preference store until ctx is done. Each emission updates
// the view state and, when the cached snapshot is stale, triggers a refresh.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info("watching preferences", "stale_after", s.staleAfter)
	for prefs := range s.prefs.Watch(ctx) {
		s.onPreferences(ctx, prefs)
	}
	s.logger.Info("stopped watching preferences")
}

func (s *Service) onPreferences(ctx context.Context, prefs Preferences) {
	snap := DecodeSnapshot(prefs.Snapshot)
	if snap != nil {
		s.recorder.ObserveSnapshotAge(snap.Age(s.clock.Now()))
	}

	refresh := s.shouldRefresh(prefs, snap)
	s.apply(PreferencesLoaded{
		Prefs:   prefs,
		Weather: snap,
		Settle:  !refresh && s.inflight.Load() == 0,
	})
	if !refresh {
		return
	}

	s.logger.Info("cached weather is stale, refreshing",
		"location_based", prefs.LocationBased,
		"has_snapshot", snap != nil,
	)
	_, _ = s.refreshWith(ctx, prefs.LocationBased, prefs.LastQuery)
}

// shouldRefresh reports whether the cached snapshot needs replacing. A missing
// snapshot counts as stale when there is a usable location source.
func (s *Service) shouldRefresh(prefs Preferences, snap *Snapshot) bool {
	if s.inflight.Load() > 0 {
		return false
	}
	if snap == nil {
		return prefs.LocationBased || strings.TrimSpace(prefs.LastQuery) != ""
	}
	return snap.Age(s.clock.Now()) > s.staleAfter
}

// Dispatch handles one presentation event and returns once it has settled.
// Fetch failures are returned as *FetchError; validation failures as
// ErrEmptyQuery or ErrNoLocation. Both are already reflected in the view state.
func (s *Service) Dispatch(ctx context.Context, ev Event) error {
	var err error
	switch ev.Kind {
	case EventGetWeatherByQuery:
		_, err = s.byQuery(ctx, ev.Text)
	case EventGetWeatherByLocation:
		_, err = s.byLocation(ctx)
	case EventUpdateSearchQuery:
		s.apply(QueryEdited{Text: ev.Text})
	case EventRetryLastSearch:
		st := s.State()
		_, err = s.refreshWith(ctx, st.LocationBased, st.LastSearchedLocation)
	case EventToggleLocationBasedSearch:
		s.apply(LocationModeToggled{})
	case EventToggleSearchBarVisibility:
		s.apply(SearchBarToggled{})
	default:
		return fmt.Errorf("unknown event %q", ev.Kind)
	}
	return err
}

// Refresh runs one full refresh cycle from the stored preferences. Background
// triggers call this so that they share the foreground decision logic.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	prefs, err := s.prefs.Read(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read preferences: %w", err)
	}
	return s.refreshWith(ctx, prefs.LocationBased, prefs.LastQuery)
}

func (s *Service) refreshWith(ctx context.Context, locationBased bool, query string) (Snapshot, error) {
	if locationBased {
		return s.byLocation(ctx)
	}
	return s.byQuery(ctx, query)
}

func (s *Service) byQuery(ctx context.Context, text string) (Snapshot, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		s.apply(ValidationFailed{Message: ErrEmptyQuery.Error()})
		return Snapshot{}, ErrEmptyQuery
	}

	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	s.apply(TargetSelected{LocationBased: false, Query: query})
	return s.fetch(ctx, query, func(p *Preferences) {
		p.LocationBased = false
		p.LastQuery = query
	})
}

func (s *Service) byLocation(ctx context.Context) (Snapshot, error) {
	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	coords, ok := s.currentCoordinates(ctx)
	if !ok {
		if err := ctx.Err(); err != nil {
			s.apply(FetchCancelled{})
			return Snapshot{}, err
		}
		s.logger.Warn("location unavailable")
		s.apply(ValidationFailed{Message: ErrNoLocation.Error()})
		return Snapshot{}, ErrNoLocation
	}

	s.apply(TargetSelected{LocationBased: true})
	return s.fetch(ctx, coords.Query(), func(p *Preferences) {
		p.LocationBased = true
		p.LastCoordinates = &coords
	})
}

func (s *Service) currentCoordinates(ctx context.Context) (Coordinates, bool) {
	if s.locator == nil {
		return Coordinates{}, false
	}
	return s.locator.CurrentCoordinates(ctx)
}

// fetch folds one outcome sequence into the view state. commit records the
// mode and location that produced a successful snapshot.
func (s *Service) fetch(ctx context.Context, target string, commit func(*Preferences)) (Snapshot, error) {
	start := s.clock.Now()

	var (
		snap Snapshot
		ferr *FetchError
	)
	for o := range Outcomes(ctx, s.fetchSnapshot(target)) {
		switch o.State {
		case OutcomeLoading:
			s.logger.Debug("fetching weather", "source", s.source.Name(), "query", target)
			s.apply(FetchStarted{})
		case OutcomeSuccess:
			snap = o.Snapshot
			s.apply(FetchSucceeded{Snapshot: snap})
			s.recorder.ObserveFetch("success", s.clock.Since(start))
			s.save(ctx, snap, commit)
		case OutcomeError:
			ferr = o.Err
			if ctx.Err() != nil {
				s.apply(FetchCancelled{})
				s.recorder.ObserveFetch("cancelled", s.clock.Since(start))
				s.logger.Debug("weather fetch cancelled", "query", target, "cause", context.Cause(ctx))
				continue
			}
			s.apply(FetchFailed{Message: ferr.Message()})
			s.recorder.ObserveFetch(ferr.Kind.String(), s.clock.Since(start))
			s.logger.Warn("weather fetch failed",
				"query", target,
				"kind", ferr.Kind.String(),
				"error", ferr.Cause,
			)
		}
	}

	if ferr != nil {
		return Snapshot{}, ferr
	}
	return snap, nil
}

func (s *Service) fetchSnapshot(target string) FetchFunc {
	return func(ctx context.Context) (Snapshot, error) {
		payload, err := s.source.FetchForecast(ctx, target, s.days)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%s forecast for %q: %w", s.source.Name(), target, err)
		}
		return Normalize(payload, s.clock.Now()), nil
	}
}

// save persists a successful snapshot together with the fields that produced
// it as one atomic read-modify-write. Write failures are logged, not returned.
func (s *Service) save(ctx context.Context, snap Snapshot, commit func(*Preferences)) {
	ctx = context.WithoutCancel(ctx)

	encoded, err := EncodeSnapshot(snap)
	if err != nil {
		s.logger.Warn("snapshot not cached: encode failed", "error", err)
	}

	err = s.prefs.Update(ctx, func(p *Preferences) {
		commit(p)
		if encoded != "" {
			p.Snapshot = encoded
		}
	})
	if err != nil {
		s.logger.Error("failed to save preferences", "error", err)
	}
}
