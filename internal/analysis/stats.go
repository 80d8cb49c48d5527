package analysis

import (
	"math"
	"slices"

	"github.com/atri1011/datafx/internal/domain"
)

// SummaryFields is the fixed field list the pipeline summarizes.
var SummaryFields = []string{
	domain.FieldView,
	domain.FieldLike,
	domain.FieldCoin,
	domain.FieldFavorite,
	domain.FieldDanmaku,
	domain.FieldReply,
	domain.FieldInteractionRate,
	domain.FieldLikeRate,
	domain.FieldCoinRate,
	domain.FieldFavRate,
}

// Summarize computes descriptive statistics for each requested field.
// Unknown field names are skipped. An empty collection yields zero values.
func Summarize(items []domain.DerivedItem, fields []string) map[string]domain.FieldStatistics {
	result := make(map[string]domain.FieldStatistics, len(fields))
	for _, field := range fields {
		values, ok := metricValues(items, field)
		if !ok {
			continue
		}
		result[field] = describe(values)
	}
	return result
}

// metricValues extracts field from every item. ok is false for unknown fields.
func metricValues(items []domain.DerivedItem, field string) ([]float64, bool) {
	if _, ok := (domain.DerivedItem{}).Metric(field); !ok {
		return nil, false
	}
	values := make([]float64, len(items))
	for i, item := range items {
		values[i], _ = item.Metric(field)
	}
	return values, true
}

func describe(values []float64) domain.FieldStatistics {
	n := len(values)
	if n == 0 {
		return domain.FieldStatistics{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	avg := mean(values)

	var sumSquares float64
	for _, v := range values {
		d := v - avg
		sumSquares += d * d
	}

	return domain.FieldStatistics{
		Mean: avg,
		// upper-middle for even n: sorted[n/2], not the average of the two middles
		Median: sorted[n/2],
		StdDev: math.Sqrt(sumSquares / float64(n)),
		Min:    sorted[0],
		Max:    sorted[n-1],
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
