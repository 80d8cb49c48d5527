package domain

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"
)

// UserConfig is the persisted per-user settings blob.
type UserConfig struct {
	AIAPIURL               string `json:"aiApiUrl"`
	AIAPIKey               string `json:"aiApiKey"`
	RefreshIntervalMinutes int    `json:"refresh_interval"`
	Theme                  string `json:"theme"`
	VideoLimit             int    `json:"videoLimit"`
}

// DefaultUserConfig returns a fresh copy of the defaults.
func DefaultUserConfig() UserConfig {
	return UserConfig{
		AIAPIURL:               "https://api.newapi.com/v1/chat/completions",
		AIAPIKey:               "",
		RefreshIntervalMinutes: 0,
		Theme:                  ThemeAuto,
		VideoLimit:             20,
	}
}

// AIEnabled reports whether both AI credentials are present.
func (c UserConfig) AIEnabled() bool {
	return c.AIAPIURL != "" && c.AIAPIKey != ""
}

// Masked returns a copy safe to show to clients.
func (c UserConfig) Masked() UserConfig {
	if c.AIAPIKey == "" {
		return c
	}
	runes := []rune(c.AIAPIKey)
	if len(runes) <= 8 {
		c.AIAPIKey = "****"
		return c
	}
	c.AIAPIKey = string(runes[:4]) + "****" + string(runes[len(runes)-4:])
	return c
}

// UserConfigPatch is a partial update; nil fields are left unchanged.
type UserConfigPatch struct {
	AIAPIURL               *string `json:"aiApiUrl,omitempty"`
	AIAPIKey               *string `json:"aiApiKey,omitempty"`
	RefreshIntervalMinutes *int    `json:"refresh_interval,omitempty"`
	Theme                  *string `json:"theme,omitempty"`
	VideoLimit             *int    `json:"videoLimit,omitempty"`
}

// Apply returns cfg with every non-nil patch field written over it.
func (p UserConfigPatch) Apply(cfg UserConfig) UserConfig {
	if p.AIAPIURL != nil {
		cfg.AIAPIURL = *p.AIAPIURL
	}
	if p.AIAPIKey != nil {
		cfg.AIAPIKey = *p.AIAPIKey
	}
	if p.RefreshIntervalMinutes != nil {
		cfg.RefreshIntervalMinutes = *p.RefreshIntervalMinutes
	}
	if p.Theme != nil {
		cfg.Theme = *p.Theme
	}
	if p.VideoLimit != nil {
		cfg.VideoLimit = *p.VideoLimit
	}
	return cfg
}
