// Package session keeps per-user funnel and paging state in memory and
// serializes every mutation of a user's state behind that user's lock.
package session

import (
	"errors"

	"github.com/m3rciful/listingbot/internal/listing"
	"github.com/m3rciful/listingbot/internal/search"
)

// Stage is the funnel position derived from the recorded selections.
type Stage int

const (
	StageStart Stage = iota
	StageLocationChosen
	StageBedroomsChosen
	StageResults
	StageResultsEmpty
)

// String implements fmt.Stringer for log fields.
func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageLocationChosen:
		return "location_chosen"
	case StageBedroomsChosen:
		return "bedrooms_chosen"
	case StageResults:
		return "results"
	case StageResultsEmpty:
		return "results_empty"
	}
	return "unknown"
}

var (
	// ErrIncompleteFunnel is returned when a step is chosen before its prerequisites.
	ErrIncompleteFunnel = errors.New("session: earlier funnel step missing")
	// ErrNoResults is returned by paging and favorite actions outside the results view.
	ErrNoResults = errors.New("session: no results to browse")
)

// DisplayRef addresses the chat message a session edits in place.
type DisplayRef struct {
	ChatID    int64
	MessageID string
}

// Session is one user's funnel state. Mutate it only inside Manager.WithUserLock.
type Session struct {
	Location string
	Bedrooms string
	Budget   *search.PriceRange

	// Results is the snapshot taken when the budget was chosen; nil until then.
	Results []listing.Listing
	Page    int
	Display *DisplayRef
}

// Stage reports the funnel position.
func (s Session) Stage() Stage {
	switch {
	case s.Results != nil && len(s.Results) == 0:
		return StageResultsEmpty
	case s.Results != nil:
		return StageResults
	case s.Location != "" && s.Bedrooms != "":
		return StageBedroomsChosen
	case s.Location != "":
		return StageLocationChosen
	}
	return StageStart
}

// IsEmpty reports whether nothing has been selected yet.
func (s Session) IsEmpty() bool {
	return s.Stage() == StageStart && s.Display == nil
}

// ChooseLocation records the location and clears every later step.
func (s *Session) ChooseLocation(location string) {
	*s = Session{Location: location}
}

// ChooseBedrooms records the bedrooms selector and clears every later step.
func (s *Session) ChooseBedrooms(selector string) error {
	if s.Location == "" {
		return ErrIncompleteFunnel
	}
	s.Bedrooms = selector
	s.clearBudget()
	return nil
}

// ChooseBudget records the price range and the filtered snapshot.
// The display reference is dropped so the first page is sent as a new message.
func (s *Session) ChooseBudget(r search.PriceRange, results []listing.Listing) error {
	if s.Location == "" || s.Bedrooms == "" {
		return ErrIncompleteFunnel
	}
	if results == nil {
		results = []listing.Listing{}
	}
	budget := r
	s.Budget = &budget
	s.Results = results
	s.Page = 0
	s.Display = nil
	return nil
}

// Current returns the listing on the current page.
func (s *Session) Current() (listing.Listing, error) {
	if len(s.Results) == 0 {
		return listing.Listing{}, ErrNoResults
	}
	return s.Results[s.Page], nil
}

// Advance moves the page cursor and reports whether it changed.
func (s *Session) Advance(d search.Direction) (bool, error) {
	if len(s.Results) == 0 {
		return false, ErrNoResults
	}
	next := search.Advance(len(s.Results), s.Page, d)
	changed := next != s.Page
	s.Page = next
	return changed, nil
}

// BackToLocation drops the location and everything after it.
func (s *Session) BackToLocation() {
	*s = Session{}
}

// BackToBedrooms drops the bedrooms choice and everything after it.
func (s *Session) BackToBedrooms() {
	s.Bedrooms = ""
	s.clearBudget()
}

// BackToBudget drops the budget, the results snapshot and the display reference.
func (s *Session) BackToBudget() {
	s.clearBudget()
}

// TrackDisplay remembers the message showing the results.
func (s *Session) TrackDisplay(ref DisplayRef) {
	r := ref
	s.Display = &r
}

func (s *Session) clearBudget() {
	s.Budget = nil
	s.Results = nil
	s.Page = 0
	s.Display = nil
}
