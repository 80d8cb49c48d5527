package analysis

import "github.com/atri1011/datafx/internal/domain"

// Derive computes the engagement ratios of a single item. View counts below 1
// are treated as 1 for the division only; the embedded RawItem is unchanged.
func Derive(item domain.RawItem) domain.DerivedItem {
	view := float64(item.View)
	if item.View < 1 {
		view = 1
	}

	return domain.DerivedItem{
		RawItem:         item,
		LikeRate:        float64(item.Like) / view,
		CoinRate:        float64(item.Coin) / view,
		FavRate:         float64(item.Favorite) / view,
		InteractionRate: float64(item.Like+item.Coin+item.Favorite) / view,
	}
}

// DeriveAll maps every item through Derive, preserving order.
func DeriveAll(items []domain.RawItem) []domain.DerivedItem {
	derived := make([]domain.DerivedItem, len(items))
	for i, item := range items {
		derived[i] = Derive(item)
	}
	return derived
}
