// Package render turns analysis results into chart options for the dashboard.
package render

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/internal/util"
	"go.uber.org/zap"
)

const radarHeadroom = 1.2

// Legend names of the two radar series.
const (
	SeriesMean   = "平均指标"
	SeriesMedian = "中位数指标"
)

var radarIndicatorNames = []string{"点赞率", "投币率", "收藏率", "互动率", "弹幕/播放"}

type RadarIndicator struct {
	Name string  `json:"name"`
	Max  float64 `json:"max"`
}

type RadarSeries struct {
	Name  string    `json:"name"`
	Value []float64 `json:"value"`
}

type RadarChart struct {
	Title      string           `json:"title"`
	Legend     []string         `json:"legend"`
	Indicators []RadarIndicator `json:"indicator"`
	Series     []RadarSeries    `json:"series"`
}

type WordCloudChart struct {
	Title string                      `json:"title"`
	Shape string                      `json:"shape"`
	Data  []domain.WordFrequencyEntry `json:"data"`
}

// TimeSeriesChart buckets videos by Beijing-time publish hour.
type TimeSeriesChart struct {
	Title      string   `json:"title"`
	Hours      []string `json:"hours"`
	Counts     []int    `json:"counts"`
	TotalViews []int64  `json:"total_views"`
}

// HeatmapChart renders the correlation matrix; cells are [x, y, value].
type HeatmapChart struct {
	Title  string       `json:"title"`
	Fields []string     `json:"fields"`
	Cells  [][3]float64 `json:"cells"`
}

type Charts struct {
	Radar      RadarChart      `json:"radar"`
	WordCloud  WordCloudChart  `json:"word_cloud"`
	TimeSeries TimeSeriesChart `json:"time_series"`
	Heatmap    HeatmapChart    `json:"heatmap"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ChartContext owns the current chart options. Update replaces them as a
// whole; options are never mutated afterwards, so snapshots may share slices.
type ChartContext struct {
	mu     sync.RWMutex
	charts Charts
	ready  bool
	logger *zap.Logger
}

func NewChartContext(logger *zap.Logger) *ChartContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChartContext{logger: logger}
}

// Update rebuilds every chart from result. A nil result is ignored.
func (c *ChartContext) Update(result *domain.AnalysisResult) {
	if result == nil {
		c.logger.Warn("Chart update skipped: no result")
		return
	}

	charts := Charts{
		Radar:      BuildRadar(result.DescriptiveStats),
		WordCloud:  BuildWordCloud(result.WordCloudData),
		TimeSeries: BuildTimeSeries(result.VideoDetails),
		Heatmap:    BuildHeatmap(result.CorrelationMatrix),
		UpdatedAt:  result.GeneratedAt,
	}

	c.mu.Lock()
	c.charts = charts
	c.ready = true
	c.mu.Unlock()

	c.logger.Debug("Charts updated", zap.Int("words", len(charts.WordCloud.Data)))
}

// Snapshot returns the current options; ok is false before the first Update.
func (c *ChartContext) Snapshot() (Charts, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.charts, c.ready
}

func BuildRadar(stats map[string]domain.FieldStatistics) RadarChart {
	mean := func(f string) float64 { return stats[f].Mean }
	median := func(f string) float64 { return stats[f].Median }

	meanData := []float64{
		mean(domain.FieldLikeRate),
		mean(domain.FieldCoinRate),
		mean(domain.FieldFavRate),
		mean(domain.FieldInteractionRate),
		safeRatio(mean(domain.FieldDanmaku), mean(domain.FieldView)),
	}
	medianData := []float64{
		median(domain.FieldLikeRate),
		median(domain.FieldCoinRate),
		median(domain.FieldFavRate),
		median(domain.FieldInteractionRate),
		safeRatio(median(domain.FieldDanmaku), median(domain.FieldView)),
	}

	top := max(slices.Max(meanData), slices.Max(medianData)) * radarHeadroom
	if top <= 0 {
		top = 1
	}

	indicators := make([]RadarIndicator, len(radarIndicatorNames))
	for i, name := range radarIndicatorNames {
		indicators[i] = RadarIndicator{Name: name, Max: top}
	}

	return RadarChart{
		Title:      "综合指标雷达图",
		Legend:     []string{SeriesMean, SeriesMedian},
		Indicators: indicators,
		Series: []RadarSeries{
			{Name: SeriesMean, Value: meanData},
			{Name: SeriesMedian, Value: medianData},
		},
	}
}

func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func BuildWordCloud(words []domain.WordFrequencyEntry) WordCloudChart {
	if words == nil {
		words = []domain.WordFrequencyEntry{}
	}
	return WordCloudChart{
		Title: "热门视频标题词云",
		Shape: "circle",
		Data:  words,
	}
}

func BuildTimeSeries(items []domain.DerivedItem) TimeSeriesChart {
	const hours = 24
	chart := TimeSeriesChart{
		Title:      "发布时间分布",
		Hours:      make([]string, hours),
		Counts:     make([]int, hours),
		TotalViews: make([]int64, hours),
	}

	for _, item := range items {
		h := util.HourCST(item.PubDate)
		chart.Counts[h]++
		chart.TotalViews[h] += item.View
	}

	for h := range hours {
		chart.Hours[h] = fmt.Sprintf("%02d:00", h)
	}
	return chart
}

// BuildHeatmap lays out matrix with fields in sorted order.
func BuildHeatmap(matrix domain.CorrelationMatrix) HeatmapChart {
	fields := make([]string, 0, len(matrix))
	for f := range matrix {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	cells := make([][3]float64, 0, len(fields)*len(fields))
	for x, fx := range fields {
		for y, fy := range fields {
			cells = append(cells, [3]float64{float64(x), float64(y), matrix[fx][fy]})
		}
	}

	return HeatmapChart{
		Title:  "指标相关性热力图",
		Fields: fields,
		Cells:  cells,
	}
}
