package analysis

import (
	"math"

	"github.com/atri1011/datafx/internal/domain"
)

// OutlierFields are the metrics screened by FindOutliers.
var OutlierFields = []string{domain.FieldView, domain.FieldInteractionRate}

// FindOutliers reports items whose value for any of fields sits at least
// threshold population standard deviations away from the field mean. An item
// can appear once per field. Fields with zero spread produce nothing.
func FindOutliers(items []domain.DerivedItem, stats map[string]domain.FieldStatistics, fields []string, threshold float64) []domain.OutlierVideo {
	outliers := make([]domain.OutlierVideo, 0)

	for _, field := range fields {
		fs, ok := stats[field]
		if !ok || fs.StdDev == 0 {
			continue
		}
		for _, item := range items {
			value, _ := item.Metric(field)
			z := (value - fs.Mean) / fs.StdDev
			if math.Abs(z) < threshold {
				continue
			}
			outliers = append(outliers, domain.OutlierVideo{
				BVID:   item.BVID,
				Title:  item.Title,
				Field:  field,
				Value:  value,
				ZScore: z,
			})
		}
	}

	return outliers
}
