package constants

import "time"

var CacheTTL = struct {
	PopularVideos time.Duration
	LatestResult  time.Duration
}{
	PopularVideos: 2 * time.Minute, // 2 minutes, popular list
	LatestResult:  0,               // no expiry, replaced on every refresh
}

var CacheKeys = struct {
	PopularPrefix string
	LatestResult  string
	UserConfig    string
}{
	PopularPrefix: "bili:popular:",
	LatestResult:  "bili:analysis:latest",
	UserConfig:    "BiliAnalytics_Config",
}

var RetryConfig = struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	Jitter:      250 * time.Millisecond,
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}{
	FailureThreshold: 3,                // 3 consecutive failures open the circuit
	ResetTimeout:     30 * time.Second, // 30s before a half-open probe
}

var APIConfig = struct {
	BilibiliBaseURL   string
	BilibiliTimeout   time.Duration
	BilibiliUserAgent string
	BilibiliReferer   string
	AIRequestTimeout  time.Duration
}{
	BilibiliBaseURL:   "https://api.bilibili.com",
	BilibiliTimeout:   10 * time.Second,
	BilibiliUserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36",
	BilibiliReferer:   "https://www.bilibili.com/",
	AIRequestTimeout:  60 * time.Second,
}

var AnalysisConfig = struct {
	TopWordsLimit   int
	OutlierZScore   float64
	DefaultLimit    int
	MaxVideoLimit   int
	SummaryMaxRunes int
}{
	TopWordsLimit:   50,
	OutlierZScore:   2,
	DefaultLimit:    20,
	MaxVideoLimit:   50,
	SummaryMaxRunes: 150,
}

var AIModels = struct {
	DefaultOpenAI string
	DefaultGemini string
}{
	DefaultOpenAI: "gpt-4.1",
	DefaultGemini: "gemini-2.5-flash",
}
