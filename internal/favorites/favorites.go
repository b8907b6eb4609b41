// Package favorites persists each user's saved listings and implements the
// save/unsave toggle on top of any Store.
package favorites

import (
	"context"
	"fmt"

	"github.com/m3rciful/listingbot/internal/listing"
)

// Record is one saved listing. Listing fields are denormalized for display.
type Record struct {
	UserID   int64
	Title    string
	Price    string
	Bedrooms string
	Location string
	URL      string
	ImageURL string
}

// Hash returns the content hash the record is keyed by.
func (r Record) Hash() string {
	return listing.ContentHash(r.URL)
}

// NewRecord denormalizes l for userID.
func NewRecord(userID int64, l listing.Listing) Record {
	return Record{
		UserID:   userID,
		Title:    l.Title,
		Price:    fmt.Sprint(l.Price),
		Bedrooms: l.Bedrooms,
		Location: l.Location,
		URL:      l.URL,
		ImageURL: l.ImageURL,
	}
}

// Store is the append-only favorites log.
type Store interface {
	// Append adds a record without checking for duplicates.
	Append(ctx context.Context, userID int64, l listing.Listing) error
	// Remove deletes every record of userID with the given hash.
	Remove(ctx context.Context, userID int64, hash string) (bool, error)
	// List returns the user's records in insertion order.
	List(ctx context.Context, userID int64) ([]Record, error)
}

// State is whether a listing is currently saved by a user.
type State int

const (
	NotSaved State = iota
	Saved
)

func (s State) String() string {
	if s == Saved {
		return "saved"
	}
	return "not_saved"
}

// StateOf queries the store for the user's current state of l.
func StateOf(ctx context.Context, store Store, userID int64, l listing.Listing) (State, error) {
	records, err := store.List(ctx, userID)
	if err != nil {
		return NotSaved, err
	}
	hash := l.Hash()
	for _, r := range records {
		if r.Hash() == hash {
			return Saved, nil
		}
	}
	return NotSaved, nil
}

// Toggle flips the saved state of l for userID and returns the new state.
// It is not safe against concurrent toggles for the same user; callers hold
// the user's session lock.
func Toggle(ctx context.Context, store Store, userID int64, l listing.Listing) (State, error) {
	current, err := StateOf(ctx, store, userID, l)
	if err != nil {
		return NotSaved, fmt.Errorf("favorites: read state: %w", err)
	}
	if current == Saved {
		if _, err := store.Remove(ctx, userID, l.Hash()); err != nil {
			return Saved, fmt.Errorf("favorites: remove: %w", err)
		}
		return NotSaved, nil
	}
	if err := store.Append(ctx, userID, l); err != nil {
		return NotSaved, fmt.Errorf("favorites: append: %w", err)
	}
	return Saved, nil
}
