package adapter

import (
	"fmt"
	"strings"

	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/internal/util"
)

// reportFields are the statistics rows shown in a text report, in order.
var reportFields = []struct {
	field string
	label string
	rate  bool
}{
	{domain.FieldView, "播放", false},
	{domain.FieldLike, "点赞", false},
	{domain.FieldCoin, "投币", false},
	{domain.FieldFavorite, "收藏", false},
	{domain.FieldInteractionRate, "互动率", true},
}

// ReportFormatter renders an analysis result as a plain-text report.
type ReportFormatter struct {
	maxAuthors  int
	maxWords    int
	maxOutliers int
}

// NewReportFormatter creates a formatter; non-positive limits fall back to defaults.
func NewReportFormatter(maxAuthors, maxWords int) *ReportFormatter {
	if maxAuthors <= 0 {
		maxAuthors = 5
	}
	if maxWords <= 0 {
		maxWords = 10
	}
	return &ReportFormatter{maxAuthors: maxAuthors, maxWords: maxWords, maxOutliers: 5}
}

type statRow struct {
	Label  string
	Mean   string
	Median string
	StdDev string
}

type authorRow struct {
	Author     string
	VideoCount int
	Views      string
}

type reportView struct {
	GeneratedAt string
	VideoCount  int
	Stats       []statRow
	Authors     []authorRow
	Words       []domain.WordFrequencyEntry
	Outliers    []domain.OutlierVideo
	AISummary   string
	Paths       []string
}

// FormatReport renders result followed by the written file paths.
func (f *ReportFormatter) FormatReport(result *domain.AnalysisResult, paths []string) string {
	if result == nil {
		return "❌ 暂无分析结果"
	}

	view := reportView{
		GeneratedAt: util.FormatUnixCST(result.GeneratedAt.Unix()),
		VideoCount:  len(result.VideoDetails),
		AISummary:   strings.TrimSpace(result.AISummary),
		Paths:       paths,
	}

	if view.VideoCount > 0 {
		for _, rf := range reportFields {
			s, ok := result.DescriptiveStats[rf.field]
			if !ok {
				continue
			}
			format := formatCount
			if rf.rate {
				format = formatPercent
			}
			view.Stats = append(view.Stats, statRow{
				Label:  rf.label,
				Mean:   format(s.Mean),
				Median: format(s.Median),
				StdDev: format(s.StdDev),
			})
		}
	}

	for i, a := range result.AuthorAggregate {
		if i >= f.maxAuthors {
			break
		}
		view.Authors = append(view.Authors, authorRow{
			Author:     a.Author,
			VideoCount: a.VideoCount,
			Views:      formatCount(float64(a.TotalViews)),
		})
	}

	words := result.WordCloudData
	if len(words) > f.maxWords {
		words = words[:f.maxWords]
	}
	view.Words = words

	outliers := result.OutlierVideos
	if len(outliers) > f.maxOutliers {
		outliers = outliers[:f.maxOutliers]
	}
	view.Outliers = outliers

	rendered, err := executeFormatterTemplate("report", view)
	if err != nil {
		return fmt.Sprintf("❌ 报告生成失败: %v", err)
	}
	return rendered
}

// formatCount shortens large counts with the 万/亿 units used on Bilibili.
func formatCount(v float64) string {
	switch {
	case v >= 1e8:
		return fmt.Sprintf("%.2f亿", v/1e8)
	case v >= 1e4:
		return fmt.Sprintf("%.1f万", v/1e4)
	case v == float64(int64(v)):
		return fmt.Sprintf("%d", int64(v))
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
