package analysis

import (
	"math"

	"github.com/atri1011/datafx/internal/domain"
)

// Correlate builds the Pearson correlation matrix over fields. A pair where
// either side has zero variance correlates at 0.
func Correlate(items []domain.DerivedItem, fields []string) domain.CorrelationMatrix {
	columns := make(map[string][]float64, len(fields))
	known := make([]string, 0, len(fields))
	for _, field := range fields {
		values, ok := metricValues(items, field)
		if !ok {
			continue
		}
		columns[field] = values
		known = append(known, field)
	}

	matrix := make(domain.CorrelationMatrix, len(known))
	for _, a := range known {
		row := make(map[string]float64, len(known))
		for _, b := range known {
			row[b] = pearson(columns[a], columns[b])
		}
		matrix[a] = row
	}
	return matrix
}

func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0
	}

	mx, my := mean(xs), mean(ys)

	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		dy := ys[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}

	if vx == 0 || vy == 0 {
		return 0
	}

	r := cov / math.Sqrt(vx*vy)
	// clamp float drift
	return math.Max(-1, math.Min(1, r))
}
