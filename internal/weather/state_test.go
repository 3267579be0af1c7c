package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduce_FetchSequence(t *testing.T) {
	prev := &Snapshot{Location: "Old"}
	v := ViewState{Weather: prev, Error: "stale error"}

	v = Reduce(v, FetchStarted{})
	assert.True(t, v.Loading)
	assert.Empty(t, v.Error)
	assert.Equal(t, PhaseLoading, v.Phase())

	failed := Reduce(v, FetchFailed{Message: "Server error. Please try again later."})
	assert.False(t, failed.Loading)
	assert.Same(t, prev, failed.Weather, "errors keep the last good snapshot")
	assert.Equal(t, PhaseFailed, failed.Phase())

	cancelled := Reduce(v, FetchCancelled{})
	assert.False(t, cancelled.Loading)
	assert.Empty(t, cancelled.Error, "cancellation is not a failure")
	assert.Same(t, prev, cancelled.Weather)
	assert.Equal(t, PhasePopulated, cancelled.Phase())

	ok := Reduce(v, FetchSucceeded{Snapshot: Snapshot{Location: "New"}})
	assert.False(t, ok.Loading)
	assert.Equal(t, "New", ok.Weather.Location)
	assert.Equal(t, PhasePopulated, ok.Phase())
}

func TestReduce_PreferencesLoaded(t *testing.T) {
	v := InitialState()
	prefs := Preferences{LocationBased: false, LastQuery: "Berlin"}

	v = Reduce(v, PreferencesLoaded{Prefs: prefs})
	assert.True(t, v.Loading, "a fetch is about to follow")
	assert.False(t, v.LocationBased)
	assert.Equal(t, "Berlin", v.LastSearchedLocation)
	assert.Equal(t, "Berlin", v.SearchQuery)

	snap := &Snapshot{Location: "Berlin"}
	v = Reduce(v, PreferencesLoaded{Prefs: prefs, Weather: snap, Settle: true})
	assert.False(t, v.Loading)
	assert.Same(t, snap, v.Weather)

	v = Reduce(v, PreferencesLoaded{Prefs: prefs, Settle: true})
	assert.Same(t, snap, v.Weather, "a missing snapshot does not clear the shown one")
}

func TestReduce_TargetSelected(t *testing.T) {
	v := Reduce(InitialState(), TargetSelected{LocationBased: false, Query: "Lima"})
	assert.False(t, v.LocationBased)
	assert.Equal(t, "Lima", v.LastSearchedLocation)

	v = Reduce(v, TargetSelected{LocationBased: true})
	assert.True(t, v.LocationBased)
	assert.Equal(t, "Lima", v.LastSearchedLocation)
}

func TestReduce_UIToggles(t *testing.T) {
	v := ViewState{LocationBased: true}

	v = Reduce(v, QueryEdited{Text: "Par"})
	assert.Equal(t, "Par", v.SearchQuery)

	v = Reduce(v, LocationModeToggled{})
	assert.False(t, v.LocationBased)
	v = Reduce(v, SearchBarToggled{})
	assert.True(t, v.SearchBarVisible)
	v = Reduce(v, SearchBarToggled{})
	assert.False(t, v.SearchBarVisible)

	v = Reduce(v, ValidationFailed{Message: ErrEmptyQuery.Error()})
	assert.Equal(t, "no location in query", v.Error)
	assert.Equal(t, PhaseFailed, v.Phase())
}

func TestPhase_Idle(t *testing.T) {
	assert.Equal(t, PhaseIdle, ViewState{}.Phase())
	assert.Equal(t, PhaseLoading, InitialState().Phase())
}
