package domain

import "time"

type FieldStatistics struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// AuthorAggregate is the per-group rollup. Author holds the grouping key value.
type AuthorAggregate struct {
	Author     string `json:"author"`
	VideoCount int    `json:"videoCount"`
	TotalViews int64  `json:"totalViews"`
	TotalLikes int64  `json:"totalLikes"`
}

// WordFrequencyEntry uses name/value tags so the slice feeds a word cloud as-is.
type WordFrequencyEntry struct {
	Token string `json:"name"`
	Count int    `json:"value"`
}

type OutlierVideo struct {
	BVID   string  `json:"bvid"`
	Title  string  `json:"title"`
	Field  string  `json:"field"`
	Value  float64 `json:"value"`
	ZScore float64 `json:"z_score"`
}

// CorrelationMatrix maps field -> field -> Pearson coefficient.
type CorrelationMatrix map[string]map[string]float64

// AnalysisResult is the complete output of one pipeline run. A refresh
// replaces it wholesale.
type AnalysisResult struct {
	VideoDetails      []DerivedItem              `json:"video_details"`
	DescriptiveStats  map[string]FieldStatistics `json:"descriptive_stats"`
	AuthorAggregate   []AuthorAggregate          `json:"up_aggregate"`
	WordCloudData     []WordFrequencyEntry       `json:"word_cloud_data"`
	OutlierVideos     []OutlierVideo             `json:"outlier_videos"`
	CorrelationMatrix CorrelationMatrix          `json:"correlation_matrix"`
	AISummary         string                     `json:"ai_summary"`
	GeneratedAt       time.Time                  `json:"generated_at"`
}

// AnalysisRun is the stored summary row of one finished refresh.
type AnalysisRun struct {
	ID                  int64     `json:"id"`
	GeneratedAt         time.Time `json:"generated_at"`
	VideoCount          int       `json:"video_count"`
	MeanViews           float64   `json:"mean_views"`
	MeanInteractionRate float64   `json:"mean_interaction_rate"`
	TopAuthor           string    `json:"top_author"`
	AISummary           string    `json:"ai_summary"`
}
