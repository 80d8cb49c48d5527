// Package export serializes analysis results to CSV, JSON and XLSX.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/atri1011/datafx/internal/domain"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

var (
	// ErrNoData is returned by the tabular writers for an empty video list.
	ErrNoData = errors.New("没有可导出的数据")
	// ErrUnknownFormat is returned for anything other than csv, json or xlsx.
	ErrUnknownFormat = errors.New("unknown export format")
)

var columns = []string{
	domain.FieldBVID, domain.FieldTitle, domain.FieldAuthor,
	domain.FieldView, domain.FieldDanmaku, domain.FieldReply, domain.FieldFavorite,
	domain.FieldCoin, domain.FieldShare, domain.FieldLike,
	"pubdate", domain.FieldPic,
	domain.FieldLikeRate, domain.FieldCoinRate, domain.FieldFavRate, domain.FieldInteractionRate,
}

// Columns returns the tabular header shared by CSV and XLSX.
func Columns() []string {
	return append([]string(nil), columns...)
}

// rowValues returns one item in column order with native types.
func rowValues(d domain.DerivedItem) []any {
	return []any{
		d.BVID, d.Title, d.Author,
		d.View, d.Danmaku, d.Reply, d.Favorite,
		d.Coin, d.Share, d.Like,
		d.PubDate, d.Pic,
		d.LikeRate, d.CoinRate, d.FavRate, d.InteractionRate,
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// WriteJSON writes the whole result as two-space indented JSON.
func WriteJSON(w io.Writer, result *domain.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}

// Write dispatches on format.
func Write(w io.Writer, format string, result *domain.AnalysisResult) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, result.VideoDetails)
	case FormatJSON:
		return WriteJSON(w, result)
	case FormatXLSX:
		return WriteXLSX(w, result.VideoDetails)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ContentType is the MIME type served for format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// IsSupported reports whether format has a writer.
func IsSupported(format string) bool {
	switch format {
	case FormatCSV, FormatJSON, FormatXLSX:
		return true
	}
	return false
}
