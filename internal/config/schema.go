package config

// Config holds galley configuration.
// Stored at: ~/.galley/config.yaml
type Config struct {
	Providers map[string]ProviderCfg `mapstructure:"providers" yaml:"providers"`
	Models    ModelsCfg              `mapstructure:"models" yaml:"models"`
	Pipeline  PipelineCfg            `mapstructure:"pipeline" yaml:"pipeline"`
	OCR       OCRCfg                 `mapstructure:"ocr" yaml:"ocr"`
	Cache     CacheCfg               `mapstructure:"cache" yaml:"cache"`
}

// ProviderCfg configures one LLM provider.
type ProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`             // "openrouter", "openai"
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`       // supports ${ENV_VAR} syntax
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url"`     // override, empty means provider default
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per minute
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// ModelsCfg selects the provider and model for each LLM role.
type ModelsCfg struct {
	Provider     string `mapstructure:"provider" yaml:"provider"`         // default provider name
	Quality      string `mapstructure:"quality" yaml:"quality"`           // OCR quality scoring
	Vision       string `mapstructure:"vision" yaml:"vision"`             // image-to-text extraction
	Segmentation string `mapstructure:"segmentation" yaml:"segmentation"` // recipe boundary detection
	Parsing      string `mapstructure:"parsing" yaml:"parsing"`           // structured field parsing
}

// PipelineCfg tunes the extraction run.
type PipelineCfg struct {
	Workers               int    `mapstructure:"workers" yaml:"workers"`
	QualityThreshold      int    `mapstructure:"quality_threshold" yaml:"quality_threshold"`
	VisionMode            string `mapstructure:"vision_mode" yaml:"vision_mode"` // "single_shot" or "two_step"
	PageTimeoutSeconds    int    `mapstructure:"page_timeout_seconds" yaml:"page_timeout_seconds"`
	SegmentTimeoutSeconds int    `mapstructure:"segment_timeout_seconds" yaml:"segment_timeout_seconds"`
}

// OCRCfg configures the local OCR engine.
type OCRCfg struct {
	Language string `mapstructure:"language" yaml:"language"`
	DPI      int    `mapstructure:"dpi" yaml:"dpi"`
}

// CacheCfg configures the response cache.
type CacheCfg struct {
	TTLDays int `mapstructure:"ttl_days" yaml:"ttl_days"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderCfg{
			"openrouter": {
				Type:      "openrouter",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 150,
				Enabled:   true,
			},
			"openai": {
				Type:      "openai",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 60,
				Enabled:   false,
			},
		},
		Models: ModelsCfg{
			Provider:     "openrouter",
			Quality:      "anthropic/claude-3.5-haiku",
			Vision:       "anthropic/claude-sonnet-4",
			Segmentation: "anthropic/claude-sonnet-4",
			Parsing:      "anthropic/claude-3.5-haiku",
		},
		Pipeline: PipelineCfg{
			Workers:               4,
			QualityThreshold:      6,
			VisionMode:            "single_shot",
			PageTimeoutSeconds:    120,
			SegmentTimeoutSeconds: 120,
		},
		OCR: OCRCfg{
			Language: "eng",
		},
		Cache: CacheCfg{
			TTLDays: 30,
		},
	}
}

// GetProvider returns a provider config by name.
func (c *Config) GetProvider(name string) (ProviderCfg, bool) {
	cfg, ok := c.Providers[name]
	return cfg, ok
}

// EnabledProviders returns all enabled providers.
func (c *Config) EnabledProviders() map[string]ProviderCfg {
	result := make(map[string]ProviderCfg)
	for name, cfg := range c.Providers {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
