// Package search filters the listing dataset and pages through the result.
package search

import (
	"strconv"

	"github.com/m3rciful/listingbot/internal/listing"
)

// BedroomsFourPlus matches any numeric bedroom count of four or more.
const BedroomsFourPlus = "4+"

// PriceRange is an inclusive price window. When Unbounded is set Max is
// ignored and the range has no upper limit.
type PriceRange struct {
	Min       int
	Max       int
	Unbounded bool
}

// Between returns the inclusive range [min, max].
func Between(min, max int) PriceRange {
	return PriceRange{Min: min, Max: max}
}

// AtLeast returns a range with no upper limit.
func AtLeast(min int) PriceRange {
	return PriceRange{Min: min, Unbounded: true}
}

// Contains reports whether price falls inside the range.
func (r PriceRange) Contains(price int) bool {
	if price < r.Min {
		return false
	}
	return r.Unbounded || price <= r.Max
}

// MatchBedrooms applies the bedrooms selector to a listing value.
func MatchBedrooms(value, selector string) bool {
	if selector == BedroomsFourPlus {
		n, err := strconv.Atoi(value)
		return err == nil && n >= 4
	}
	return value == selector
}

// Filter returns the listings matching all criteria, in load order.
// The result is never nil so callers can tell "searched, nothing found"
// apart from "never searched".
func Filter(listings []listing.Listing, location, bedrooms string, price PriceRange) []listing.Listing {
	out := make([]listing.Listing, 0)
	for _, l := range listings {
		if l.Location != location {
			continue
		}
		if !MatchBedrooms(l.Bedrooms, bedrooms) {
			continue
		}
		if !price.Contains(l.Price) {
			continue
		}
		out = append(out, l)
	}
	return out
}
