package policy

import (
	"fmt"
	"strings"
)

// Rating is a client's creditworthiness grade; A is best, E is worst
type Rating string

const (
	RatingA Rating = "A"
	RatingB Rating = "B"
	RatingC Rating = "C"
	RatingD Rating = "D"
	RatingE Rating = "E"
)

var ratings = []Rating{RatingA, RatingB, RatingC, RatingD, RatingE}

// AllRatings returns ratings from best to worst
func AllRatings() []Rating {
	return append([]Rating(nil), ratings...)
}

// ParseRating converts a raw value into a Rating
func ParseRating(raw string) (Rating, error) {
	r := Rating(strings.ToUpper(strings.TrimSpace(raw)))
	if r.Ordinal() < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownRating, raw)
	}
	return r, nil
}

// Ordinal returns the position of the rating in [A..E], or -1 if unknown
func (r Rating) Ordinal() int {
	for i, known := range ratings {
		if known == r {
			return i
		}
	}
	return -1
}

// IsValid reports whether the rating is known
func (r Rating) IsValid() bool {
	return r.Ordinal() >= 0
}

// String returns the string representation of the rating
func (r Rating) String() string {
	return string(r)
}
