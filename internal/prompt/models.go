package prompt

type TrendSummaryData struct {
	Titles   string
	MaxRunes int
}
