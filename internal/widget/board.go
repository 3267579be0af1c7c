// Package widget holds what a home-screen weather widget shows: the last good
// snapshot, when it was taken and the last background error. The board follows
// the preference store, so foreground and background results both reach it.
package widget

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-refresh/internal/weather"
)

const unknownPlace = "Unknown"

// Card is the rendered widget content.
type Card struct {
	Temperature string            `json:"temperature"`
	Condition   weather.Condition `json:"condition"`
	Label       string            `json:"label"`
	Icon        string            `json:"icon"`
	City        string            `json:"city"`
	Country     string            `json:"country"`
	LastUpdate  *time.Time        `json:"lastUpdate,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Watcher streams the stored preference record.
type Watcher interface {
	Watch(ctx context.Context) <-chan weather.Preferences
}

// Board is the widget's state. Stored snapshots arrive through Follow; background
// runs report their errors through Repaint.
type Board struct {
	clock clockwork.Clock

	mu         sync.RWMutex
	snapshot   *weather.Snapshot
	lastUpdate time.Time
	errMsg     string
}

func NewBoard(clock clockwork.Clock) *Board {
	return &Board{clock: clock}
}

// Follow shows every snapshot written to the preference store until ctx is
// done. A record without a snapshot empties the board.
func (b *Board) Follow(ctx context.Context, w Watcher) {
	for p := range w.Watch(ctx) {
		if p.Snapshot == "" {
			b.reset()
			continue
		}
		b.Show(weather.DecodeSnapshot(p.Snapshot))
	}
}

// Show displays s unless the board already holds a snapshot at least as recent.
// A newer snapshot clears the last error.
func (b *Board) Show(s *weather.Snapshot) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.snapshot != nil && !s.Timestamp.After(b.snapshot.Timestamp) {
		return
	}
	b.snapshot = s
	b.lastUpdate = s.Timestamp
	b.errMsg = ""
}

func (b *Board) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.snapshot = nil
	b.lastUpdate = time.Time{}
	b.errMsg = ""
}

// Repaint records the result of a refresh run. A failure keeps the last good
// snapshot and only sets the error message.
func (b *Board) Repaint(s weather.Snapshot, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.errMsg = message(err)
		return
	}
	b.snapshot = &s
	b.lastUpdate = b.clock.Now()
	b.errMsg = ""
}

// View renders the current card.
func (b *Board) View() Card {
	b.mu.RLock()
	defer b.mu.RUnlock()

	card := Card{
		Temperature: "--°",
		City:        unknownPlace,
		Country:     unknownPlace,
		Error:       b.errMsg,
	}
	cond := weather.ConditionUnknown
	if s := b.snapshot; s != nil {
		card.Temperature = fmt.Sprintf("%d°", int(math.Trunc(s.Temperature)))
		cond = s.Condition
		if s.Location != "" {
			card.City = s.Location
		}
		if s.Country != "" {
			card.Country = s.Country
		}
		t := b.lastUpdate
		card.LastUpdate = &t
	}
	card.Condition = cond
	card.Label, card.Icon = Appearance(cond)
	return card
}

func message(err error) string {
	var fe *weather.FetchError
	if errors.As(err, &fe) {
		return fe.Message()
	}
	return err.Error()
}
