package prompt

import (
	"strings"

	"github.com/atri1011/datafx/internal/constants"
)

// titleSeparator matches the comma join the summary prompt has always used.
const titleSeparator = ", "

// BuildTrendSummaryPrompt embeds every title into the trend summary request.
func BuildTrendSummaryPrompt(titles []string) (string, error) {
	return DefaultPromptBuilder().Render(TemplateTrendSummary, TrendSummaryData{
		Titles:   strings.Join(titles, titleSeparator),
		MaxRunes: constants.AnalysisConfig.SummaryMaxRunes,
	})
}
