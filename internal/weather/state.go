package weather

// Phase is the coarse status of the view state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoading   Phase = "loading"
	PhasePopulated Phase = "populated"
	PhaseFailed    Phase = "failed"
)

// ViewState is what the presentation layer renders.
type ViewState struct {
	Loading              bool      `json:"isLoading"`
	Weather              *Snapshot `json:"weather"`
	Error                string    `json:"error"`
	SearchQuery          string    `json:"searchQuery"`
	LastSearchedLocation string    `json:"lastSearchedLocation"`
	LocationBased        bool      `json:"isLocationBased"`
	SearchBarVisible     bool      `json:"isSearchBarVisible"`
}

// InitialState is the state before preferences have been read.
func InitialState() ViewState {
	return ViewState{Loading: true, LocationBased: true}
}

// Phase derives the coarse status. An error wins over a retained snapshot.
func (v ViewState) Phase() Phase {
	switch {
	case v.Loading:
		return PhaseLoading
	case v.Error != "":
		return PhaseFailed
	case v.Weather != nil:
		return PhasePopulated
	default:
		return PhaseIdle
	}
}

// Update is a discrete change folded into the view state by Reduce.
type Update interface {
	isUpdate()
}

// PreferencesLoaded carries a preference store emission. Settle clears the
// loading flag when no fetch follows.
type PreferencesLoaded struct {
	Prefs   Preferences
	Weather *Snapshot
	Settle  bool
}

// TargetSelected records the location source of a new fetch before it starts.
type TargetSelected struct {
	LocationBased bool
	Query         string
}

type FetchStarted struct{}

type FetchSucceeded struct {
	Snapshot Snapshot
}

type FetchFailed struct {
	Message string
}

// FetchCancelled ends a fetch whose context was cancelled. It is not a
// failure, so the error and the retained snapshot are left alone.
type FetchCancelled struct{}

// ValidationFailed is a failure detected before any network call.
type ValidationFailed struct {
	Message string
}

type QueryEdited struct {
	Text string
}

type LocationModeToggled struct{}

type SearchBarToggled struct{}

func (PreferencesLoaded) isUpdate()   {}
func (TargetSelected) isUpdate()      {}
func (FetchStarted) isUpdate()        {}
func (FetchSucceeded) isUpdate()      {}
func (FetchFailed) isUpdate()         {}
func (FetchCancelled) isUpdate()      {}
func (ValidationFailed) isUpdate()    {}
func (QueryEdited) isUpdate()         {}
func (LocationModeToggled) isUpdate() {}
func (SearchBarToggled) isUpdate()    {}

// Reduce folds one update into the view state. It has no side effects.
func Reduce(v ViewState, u Update) ViewState {
	switch u := u.(type) {
	case PreferencesLoaded:
		v.LocationBased = u.Prefs.LocationBased
		v.LastSearchedLocation = u.Prefs.LastQuery
		v.SearchQuery = u.Prefs.LastQuery
		if u.Weather != nil {
			v.Weather = u.Weather
		}
		if u.Settle {
			v.Loading = false
		}
	case TargetSelected:
		v.LocationBased = u.LocationBased
		if !u.LocationBased {
			v.LastSearchedLocation = u.Query
		}
	case FetchStarted:
		v.Loading = true
		v.Error = ""
	case FetchSucceeded:
		snap := u.Snapshot
		v.Loading = false
		v.Weather = &snap
		v.Error = ""
	case FetchFailed:
		v.Loading = false
		v.Error = u.Message
	case FetchCancelled:
		v.Loading = false
	case ValidationFailed:
		v.Loading = false
		v.Error = u.Message
	case QueryEdited:
		v.SearchQuery = u.Text
	case LocationModeToggled:
		v.LocationBased = !v.LocationBased
	case SearchBarToggled:
		v.SearchBarVisible = !v.SearchBarVisible
	}
	return v
}

// EventKind enumerates the events the presentation layer can emit.
type EventKind string

const (
	EventGetWeatherByQuery         EventKind = "get_weather_by_query"
	EventGetWeatherByLocation      EventKind = "get_weather_by_location"
	EventUpdateSearchQuery         EventKind = "update_search_query"
	EventRetryLastSearch           EventKind = "retry_last_search"
	EventToggleLocationBasedSearch EventKind = "toggle_location_based_search"
	EventToggleSearchBarVisibility EventKind = "toggle_search_bar_visibility"
)

// Event is a user action. Text is used by the query events only.
type Event struct {
	Kind EventKind
	Text string
}

func GetWeatherByQuery(text string) Event { return Event{Kind: EventGetWeatherByQuery, Text: text} }
func GetWeatherByLocation() Event         { return Event{Kind: EventGetWeatherByLocation} }
func UpdateSearchQuery(text string) Event { return Event{Kind: EventUpdateSearchQuery, Text: text} }
func RetryLastSearch() Event              { return Event{Kind: EventRetryLastSearch} }
func ToggleLocationBasedSearch() Event    { return Event{Kind: EventToggleLocationBasedSearch} }
func ToggleSearchBarVisibility() Event    { return Event{Kind: EventToggleSearchBarVisibility} }
