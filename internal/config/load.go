// Package config defines environment configuration structs and loaders.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	LogEnvConfig
	CDSEnvConfig
	RedisEnvConfig
	AnalysisEnvConfig
	PlotEnvConfig
}

// LoadConfig reads an optional .env file from the working directory and then
// parses the process environment.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogEnvConfig selects the log level.
type LogEnvConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"prod"`
	LogLevel    string `env:"LOG_LEVEL"`
}

// CDSEnvConfig holds Climate Data Store credentials and client tuning.
type CDSEnvConfig struct {
	CDSURL              string        `env:"CDSAPI_URL" envDefault:"https://cds.climate.copernicus.eu/api"`
	CDSKey              string        `env:"CDSAPI_KEY"`
	ClientTimeout       time.Duration `env:"CDS_CLIENT_TIMEOUT" envDefault:"60s"`
	PollInterval        time.Duration `env:"CDS_POLL_INTERVAL" envDefault:"10s"`
	RetryMax            int           `env:"CDS_RETRY_MAX" envDefault:"5"`
	RetryWait           time.Duration `env:"CDS_RETRY_WAIT" envDefault:"1s"`
	DownloadConcurrency int           `env:"CDS_DOWNLOAD_CONCURRENCY" envDefault:"2"`
	DataDir             string        `env:"DATA_DIR" envDefault:"."`
}

// RedisEnvConfig configures the Redis-backed download ledger.
type RedisEnvConfig struct {
	LedgerEnabled bool          `env:"LEDGER_REDIS" envDefault:"false"`
	RedisHost     string        `env:"REDIS_HOST" envDefault:"127.0.0.1"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisUsername string        `env:"REDIS_USERNAME"`
	LedgerPrefix  string        `env:"LEDGER_PREFIX" envDefault:"eofkit:download:"`
	LedgerTTL     time.Duration `env:"LEDGER_TTL" envDefault:"0s"`
}

// AnalysisEnvConfig holds EOF analysis defaults; command-line flags override them.
type AnalysisEnvConfig struct {
	Modes               int     `env:"EOF_MODES" envDefault:"4"`
	Method              string  `env:"EOF_METHOD" envDefault:"svd"`
	Standardize         bool    `env:"EOF_STANDARDIZE" envDefault:"false"`
	EffectiveSampleSize float64 `env:"EOF_NEFF" envDefault:"0"`
}

// PlotEnvConfig configures figure output.
type PlotEnvConfig struct {
	PlotWidthCm   float64 `env:"PLOT_WIDTH_CM" envDefault:"20"`
	PlotHeightCm  float64 `env:"PLOT_HEIGHT_CM" envDefault:"12"`
	ContourLevels int     `env:"PLOT_CONTOUR_LEVELS" envDefault:"11"`
	PlotFormat    string  `env:"PLOT_FORMAT" envDefault:"png"`
	ColorMapCPT   string  `env:"PLOT_CPT"`
	FrameDelayMs  int     `env:"PLOT_FRAME_DELAY_MS" envDefault:"50"`
}

// Normalized returns the method name in lower case with surrounding space removed.
func (c AnalysisEnvConfig) Normalized() string {
	return strings.ToLower(strings.TrimSpace(c.Method))
}
