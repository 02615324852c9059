// Package config loads application configuration from config.yaml and
// FMRCLI_* environment variables, and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Calc    CalcConfig    `yaml:"calc" mapstructure:"calc"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// CacheConfig configures the optional Redis response cache.
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	YearTTL   time.Duration `yaml:"year_ttl" mapstructure:"year_ttl"`
}

// CalcConfig configures the investment calculator.
type CalcConfig struct {
	PresetsPath string `yaml:"presets_path" mapstructure:"presets_path"`
}

// IngestConfig configures the HUD data ingest pipeline.
type IngestConfig struct {
	TempDir       string `yaml:"temp_dir" mapstructure:"temp_dir"`
	Year          int    `yaml:"year" mapstructure:"year"`
	FREDKey       string `yaml:"fred_api_key" mapstructure:"fred_api_key"`
	FMRURL        string `yaml:"fmr_url" mapstructure:"fmr_url"`
	SAFMRURL      string `yaml:"safmr_url" mapstructure:"safmr_url"`
	CrosswalkURL  string `yaml:"crosswalk_url" mapstructure:"crosswalk_url"`
	MarketRentURL string `yaml:"market_rent_url" mapstructure:"market_rent_url"`
	TaxRateURL    string `yaml:"tax_rate_url" mapstructure:"tax_rate_url"`

	// FMRArchiveURL is an ftp:// template with a %d year placeholder for
	// prior-year zipped FMR releases.
	FMRArchiveURL string `yaml:"fmr_archive_url" mapstructure:"fmr_archive_url"`
	ArchiveYears  int    `yaml:"archive_years" mapstructure:"archive_years"`
}

// GeocodeConfig configures the Census geocoder client.
type GeocodeConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
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
	v.SetEnvPrefix("FMRCLI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.year_ttl", "1h")
	v.SetDefault("ingest.temp_dir", "/tmp/fmr-ingest")
	v.SetDefault("ingest.fmr_url", "https://www.huduser.gov/portal/datasets/fmr/fmr2025/FY25_FMRs_revised.xlsx")
	v.SetDefault("ingest.safmr_url", "https://www.huduser.gov/portal/datasets/fmr/fmr2025/fy2025_safmrs_revised.xlsx")
	v.SetDefault("ingest.crosswalk_url", "https://www.huduser.gov/portal/datasets/usps/ZIP_COUNTY_032025.xlsx")
	v.SetDefault("ingest.archive_years", 3)
	v.SetDefault("geocode.base_url", "https://geocoding.geo.census.gov")

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

// Validate checks that the configuration required for the given mode is
// present. Modes: "serve", "ingest", "lookup", "calc".
func (c *Config) Validate(mode string) error {
	var missing []string

	requireStore := func() {
		if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
			missing = append(missing, "store.driver must be postgres or sqlite")
		}
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
	}

	switch mode {
	case "serve":
		requireStore()
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			missing = append(missing, "server.port must be > 0")
		}
	case "ingest":
		if c.Store.Driver != "postgres" {
			missing = append(missing, "ingest requires store.driver = postgres")
		}
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
		if c.Ingest.TempDir == "" {
			missing = append(missing, "ingest.temp_dir is required")
		}
	case "lookup", "calc":
		requireStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(missing, "; "))
	}
	return nil
}
