package search

// Direction is a paging step.
type Direction string

const (
	// Prev moves one result back.
	Prev Direction = "prev"
	// Next moves one result forward.
	Next Direction = "next"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Prev || d == Next
}

// Advance moves index one step in direction d, clamped to [0, total-1].
// Stepping past either end is a no-op; an empty result set always yields 0.
func Advance(total, index int, d Direction) int {
	if total <= 0 {
		return 0
	}
	index = clamp(index, total)
	switch d {
	case Prev:
		if index > 0 {
			index--
		}
	case Next:
		if index < total-1 {
			index++
		}
	}
	return index
}

// HasPrev reports whether a previous result exists.
func HasPrev(index, total int) bool {
	return total > 0 && index > 0
}

// HasNext reports whether a following result exists.
func HasNext(index, total int) bool {
	return index < total-1
}

func clamp(index, total int) int {
	if index < 0 {
		return 0
	}
	if index > total-1 {
		return total - 1
	}
	return index
}
