package analysis

import (
	"cmp"
	"slices"

	"github.com/atri1011/datafx/internal/domain"
)

// AggregateBy groups items by the text attribute keyField and returns one
// rollup per distinct value, sorted by videoCount then totalViews, both
// descending. Equal groups keep first-seen order.
func AggregateBy(items []domain.DerivedItem, keyField string) []domain.AuthorAggregate {
	groups := make([]domain.AuthorAggregate, 0)
	index := make(map[string]int)

	for _, item := range items {
		key, _ := item.Attribute(keyField)

		pos, seen := index[key]
		if !seen {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, domain.AuthorAggregate{Author: key})
		}

		groups[pos].VideoCount++
		groups[pos].TotalViews += item.View
		groups[pos].TotalLikes += item.Like
	}

	slices.SortStableFunc(groups, func(a, b domain.AuthorAggregate) int {
		if c := cmp.Compare(b.VideoCount, a.VideoCount); c != 0 {
			return c
		}
		return cmp.Compare(b.TotalViews, a.TotalViews)
	})

	return groups
}
