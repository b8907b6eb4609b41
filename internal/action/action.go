// Package action implements the compact button payload protocol:
// a kind token followed by zero or more Separator-delimited parameters.
package action

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/m3rciful/listingbot/internal/search"
)

const (
	// Separator delimits the kind and parameters.
	Separator = "|"
	// NoLimit encodes an unbounded budget maximum.
	NoLimit = "inf"
	// MaxEncodedLen is the largest payload a chat button can carry.
	MaxEncodedLen = 64
)

// Kind identifies what a button does.
type Kind string

const (
	KindLocation       Kind = "location"
	KindBedrooms       Kind = "bedrooms"
	KindBudget         Kind = "budget"
	KindPage           Kind = "page"
	KindFavToggle      Kind = "fav_toggle"
	KindFavRemove      Kind = "fav_remove"
	KindFavorites      Kind = "favorites"
	KindHelp           Kind = "help"
	KindRestart        Kind = "restart"
	KindBackToLocation Kind = "back_to_location"
	KindBackToBedrooms Kind = "back_to_bedrooms"
	KindBackToBudget   Kind = "back_to_budget"
)

// Kinds lists every kind the decoder accepts.
func Kinds() []Kind {
	return []Kind{
		KindLocation, KindBedrooms, KindBudget, KindPage,
		KindFavToggle, KindFavRemove, KindFavorites, KindHelp,
		KindRestart, KindBackToLocation, KindBackToBedrooms, KindBackToBudget,
	}
}

// ErrInvalidPayload is returned for malformed or unknown payloads.
var ErrInvalidPayload = errors.New("action: invalid payload")

var hashRe = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Payload is a decoded button action. Only the fields relevant to Kind are set.
type Payload struct {
	Kind      Kind
	Value     string // location name or bedrooms selector
	Budget    search.PriceRange
	Direction search.Direction
	Hash      string
}

// Location selects a location.
func Location(name string) Payload { return Payload{Kind: KindLocation, Value: name} }

// Bedrooms selects a bedrooms category.
func Bedrooms(selector string) Payload { return Payload{Kind: KindBedrooms, Value: selector} }

// Budget selects a price range.
func Budget(r search.PriceRange) Payload { return Payload{Kind: KindBudget, Budget: r} }

// Page moves through results.
func Page(d search.Direction) Payload { return Payload{Kind: KindPage, Direction: d} }

// FavRemove removes a favorite by content hash.
func FavRemove(hash string) Payload { return Payload{Kind: KindFavRemove, Hash: hash} }

// Simple builds a parameterless payload.
func Simple(k Kind) Payload { return Payload{Kind: k} }

// Encode renders the payload in wire form.
func (p Payload) Encode() string {
	parts := []string{string(p.Kind)}
	switch p.Kind {
	case KindLocation, KindBedrooms:
		parts = append(parts, p.Value)
	case KindBudget:
		max := NoLimit
		if !p.Budget.Unbounded {
			max = strconv.Itoa(p.Budget.Max)
		}
		parts = append(parts, strconv.Itoa(p.Budget.Min), max)
	case KindPage:
		parts = append(parts, string(p.Direction))
	case KindFavRemove:
		parts = append(parts, p.Hash)
	}
	return strings.Join(parts, Separator)
}

// Fits reports whether the encoded payload respects MaxEncodedLen.
func (p Payload) Fits() bool {
	return len(p.Encode()) <= MaxEncodedLen
}

// Decode parses a wire payload. Only canonical forms are accepted so that
// Decode(s).Encode() == s for every s that decodes without error.
func Decode(raw string) (Payload, error) {
	parts := strings.Split(raw, Separator)
	kind := Kind(parts[0])
	args := parts[1:]

	invalid := func(reason string) (Payload, error) {
		return Payload{}, fmt.Errorf("%w: %s: %q", ErrInvalidPayload, reason, raw)
	}
	want := func(n int) bool { return len(args) == n }

	switch kind {
	case KindLocation, KindBedrooms:
		if !want(1) || strings.TrimSpace(args[0]) == "" {
			return invalid("missing value")
		}
		return Payload{Kind: kind, Value: args[0]}, nil
	case KindBudget:
		if !want(2) {
			return invalid("budget needs min and max")
		}
		min, ok := canonicalInt(args[0])
		if !ok {
			return invalid("bad budget min")
		}
		if args[1] == NoLimit {
			return Budget(search.AtLeast(min)), nil
		}
		max, ok := canonicalInt(args[1])
		if !ok || max < min {
			return invalid("bad budget max")
		}
		return Budget(search.Between(min, max)), nil
	case KindPage:
		if !want(1) || !search.Direction(args[0]).Valid() {
			return invalid("bad direction")
		}
		return Page(search.Direction(args[0])), nil
	case KindFavRemove:
		if !want(1) || !hashRe.MatchString(args[0]) {
			return invalid("bad hash")
		}
		return FavRemove(args[0]), nil
	case KindFavToggle, KindFavorites, KindHelp, KindRestart,
		KindBackToLocation, KindBackToBedrooms, KindBackToBudget:
		if !want(0) {
			return invalid("unexpected parameters")
		}
		return Simple(kind), nil
	}
	return invalid("unknown kind")
}

// canonicalInt parses a non-negative decimal with no sign or leading zeros.
func canonicalInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || strconv.Itoa(n) != s {
		return 0, false
	}
	return n, true
}
