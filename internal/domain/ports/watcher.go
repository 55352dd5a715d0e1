package ports

import (
	"context"
	"time"
)

// DeckWatcher reports edits to a deck file and to the .html slide
// fragments a YAML or JSON deck may reference from its directory.
// Bursts of changes are coalesced; one DeckChange means "reload the deck".
type DeckWatcher interface {
	// Watch fails if the deck itself cannot be read. The channel closes on Stop.
	Watch(ctx context.Context, deckPath string) (<-chan DeckChange, error)
	Stop() error
}

// DeckChange names the first file found changed in a poll
type DeckChange struct {
	DeckPath string
	// Path is the changed file: the deck or one of its fragments
	Path string
	Kind ChangeKind
	// Fragment is set when Path is not the deck file
	Fragment  bool
	Timestamp time.Time
}

// ChangeKind classifies a DeckChange
type ChangeKind string

const (
	ChangeEdited  ChangeKind = "edited"
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
)

// RemovesDeck reports whether the deck file itself went away
func (c DeckChange) RemovesDeck() bool {
	return !c.Fragment && c.Kind == ChangeRemoved
}
