// Package listing holds the immutable listing model and its loaders.
package listing

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// BedroomsBedsitter is the category used for studios and zero-bedroom units.
	BedroomsBedsitter = "Bedsitter"
	// BedroomsUnknown marks listings whose bedroom count could not be read.
	BedroomsUnknown = "Unknown"
)

// Listing is a single rental advert. Values are never mutated after load.
type Listing struct {
	Title    string
	Location string
	Bedrooms string
	Price    int
	URL      string
	ImageURL string
}

// Hash returns the favorite identity of the listing.
func (l Listing) Hash() string {
	return ContentHash(l.URL)
}

// ContentHash is the hex MD5 digest of a listing URL.
func ContentHash(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// NormalizeLocation trims and title-cases a raw location value.
func NormalizeLocation(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	return cases.Title(language.Und).String(strings.ToLower(s))
}

// NormalizeBedrooms maps free-form bedroom values onto the funnel vocabulary.
func NormalizeBedrooms(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return BedroomsUnknown
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		var v int
		switch {
		case f >= math.MaxInt:
			v = math.MaxInt
		case f <= math.MinInt:
			v = math.MinInt
		default:
			v = int(f)
		}
		if v == 0 {
			return BedroomsBedsitter
		}
		return strconv.Itoa(v)
	}
	switch strings.ToLower(s) {
	case "bedsitter", "bedsit", "bed sitter":
		return BedroomsBedsitter
	}
	return s
}

// ParsePrice reads a price column leniently; unreadable or negative values become 0.
func ParsePrice(raw string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f >= math.MaxInt {
		return math.MaxInt
	}
	return int(f)
}
