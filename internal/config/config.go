package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Prune    PruneConfig    `yaml:"prune" mapstructure:"prune"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Oracle   OracleConfig   `yaml:"oracle" mapstructure:"oracle"`
	Diy      DiyConfig      `yaml:"diy" mapstructure:"diy"`
	Kiwi     KiwiConfig     `yaml:"kiwi" mapstructure:"kiwi"`
	Amadeus  AmadeusConfig  `yaml:"amadeus" mapstructure:"amadeus"`
	Validate ValidateConfig `yaml:"validate" mapstructure:"validate"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// PruneConfig configures the value-score pruning and shortlist stages.
type PruneConfig struct {
	Percentile     float64 `yaml:"percentile" mapstructure:"percentile"`
	Shortlist      int     `yaml:"shortlist" mapstructure:"shortlist"`
	FuzzyDedupe    bool    `yaml:"fuzzy_dedupe" mapstructure:"fuzzy_dedupe"`
	FuzzyThreshold int     `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
}

// FetchConfig configures the evidence fetcher.
type FetchConfig struct {
	Parallel         int    `yaml:"parallel" mapstructure:"parallel"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries       int    `yaml:"max_retries" mapstructure:"max_retries"`
	CachePages       bool   `yaml:"cache_pages" mapstructure:"cache_pages"`
	CacheDir         string `yaml:"cache_dir" mapstructure:"cache_dir"`
	MaxBodyBytes     int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	EvidenceMaxChars int    `yaml:"evidence_max_chars" mapstructure:"evidence_max_chars"`
	UserAgent        string `yaml:"user_agent" mapstructure:"user_agent"`
}

// OracleConfig configures the ranking oracle client.
type OracleConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	PaceMillis  int    `yaml:"pace_millis" mapstructure:"pace_millis"`
}

// DiyConfig configures the independent flight+hotel cost estimator.
type DiyConfig struct {
	BaseCurrency  string `yaml:"base_currency" mapstructure:"base_currency"`
	OriginAirport string `yaml:"origin_airport" mapstructure:"origin_airport"`
	LeadDays      int    `yaml:"lead_days" mapstructure:"lead_days"`
}

// KiwiConfig holds Kiwi Tequila flight-search API settings. The flight
// pricing adapter is enabled only when Key is set.
type KiwiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AmadeusConfig holds Amadeus hotel-search API settings. The hotel pricing
// adapter is enabled only when both Key and Secret are set.
type AmadeusConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Secret  string `yaml:"secret" mapstructure:"secret"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ValidateConfig holds minimum per-field coverage thresholds (percent).
type ValidateConfig struct {
	MinPricePct        float64 `yaml:"min_price_pct" mapstructure:"min_price_pct"`
	MinDurationPct     float64 `yaml:"min_duration_pct" mapstructure:"min_duration_pct"`
	MinDestinationsPct float64 `yaml:"min_destinations_pct" mapstructure:"min_destinations_pct"`
}

// ReportConfig configures run artifact output.
type ReportConfig struct {
	TopN   int    `yaml:"top_n" mapstructure:"top_n"`
	OutDir string `yaml:"out_dir" mapstructure:"out_dir"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the report viewer server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("prune.percentile", 35.0)
	v.SetDefault("prune.shortlist", 25)
	v.SetDefault("prune.fuzzy_dedupe", false)
	v.SetDefault("prune.fuzzy_threshold", 92)
	v.SetDefault("fetch.parallel", 12)
	v.SetDefault("fetch.timeout_secs", 20)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.cache_pages", true)
	v.SetDefault("fetch.cache_dir", ".cache/pages")
	v.SetDefault("fetch.max_body_bytes", 2*1024*1024)
	v.SetDefault("fetch.evidence_max_chars", 3500)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("oracle.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("oracle.max_tokens", 2048)
	v.SetDefault("oracle.max_attempts", 3)
	v.SetDefault("oracle.pace_millis", 250)
	v.SetDefault("diy.base_currency", "AUD")
	v.SetDefault("diy.origin_airport", "SYD")
	v.SetDefault("diy.lead_days", 45)
	v.SetDefault("kiwi.base_url", "https://api.tequila.kiwi.com")
	v.SetDefault("amadeus.base_url", "https://test.api.amadeus.com")
	v.SetDefault("validate.min_price_pct", 90.0)
	v.SetDefault("validate.min_duration_pct", 80.0)
	v.SetDefault("validate.min_destinations_pct", 60.0)
	v.SetDefault("report.top_n", 10)
	v.SetDefault("report.out_dir", "runs")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "deals.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
