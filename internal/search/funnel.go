package search

import "github.com/m3rciful/listingbot/internal/listing"

// Budget is a labelled price button offered at the last funnel step.
type Budget struct {
	Label string
	Range PriceRange
}

// DefaultBedrooms is the bedrooms vocabulary offered when none is configured.
func DefaultBedrooms() []string {
	return []string{listing.BedroomsBedsitter, "1", "2", "3", BedroomsFourPlus}
}

// DefaultBudgets is the budget vocabulary offered when none is configured.
func DefaultBudgets() []Budget {
	return []Budget{
		{Label: "≤ 10k", Range: Between(0, 10000)},
		{Label: "≤ 20k", Range: Between(10001, 20000)},
		{Label: "≤ 30k", Range: Between(20001, 30000)},
		{Label: "≤ 50k", Range: Between(30001, 50000)},
		{Label: "Any", Range: AtLeast(0)},
	}
}
