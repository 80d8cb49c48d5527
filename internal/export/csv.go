package export

import (
	"encoding/csv"
	"io"

	"github.com/atri1011/datafx/internal/domain"
)

// WriteCSV writes one header row then one row per item.
func WriteCSV(w io.Writer, items []domain.DerivedItem) error {
	if len(items) == 0 {
		return ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}

	record := make([]string, len(columns))
	for _, item := range items {
		for i, v := range rowValues(item) {
			record[i] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
