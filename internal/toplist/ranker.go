package toplist

import (
	"sort"

	"github.com/mohamedkhairy/fire-scanner/internal/models"
)

// DefaultLimit is the number of results a scan returns
const DefaultLimit = 50

// Rank returns the top limit items by score, highest first. Equal scores are
// ordered by symbol, then by input position. The input is not modified.
// A limit of zero or less means DefaultLimit.
func Rank(items []models.ScoredItem, limit int) []models.ScoredItem {
	if limit <= 0 {
		limit = DefaultLimit
	}

	ranked := make([]models.ScoredItem, len(items))
	copy(ranked, items)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
