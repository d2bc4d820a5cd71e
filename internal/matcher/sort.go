package matcher

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"example.com/playdate/internal/domain"
)

// unratedFriction places playdates without a friction dial after every rated one.
const unratedFriction = 999

// SortRanked orders results by score descending, friction ascending (unrated last), then title in
// English collation order. Activity id breaks any remaining tie.
func SortRanked(ranked []domain.RankedActivity) {
	// Collators keep internal buffers and are not safe for concurrent use.
	col := collate.New(language.English)
	slices.SortStableFunc(ranked, func(a, b domain.RankedActivity) int {
		return cmp.Or(
			cmp.Compare(b.Score, a.Score),
			cmp.Compare(frictionKey(a.FrictionDial), frictionKey(b.FrictionDial)),
			col.CompareString(a.Title, b.Title),
			cmp.Compare(a.ActivityID, b.ActivityID),
		)
	})
}

func frictionKey(dial *int) int {
	if dial == nil {
		return unratedFriction
	}
	return *dial
}
