package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Cron       CronConfig       `mapstructure:"cron"`
	Gamma      GammaConfig      `mapstructure:"gamma"`
	Clob       ClobConfig       `mapstructure:"clob"`
	Client     ClientConfig     `mapstructure:"client"`
	Capture    CaptureConfig    `mapstructure:"capture"`
	Downsample DownsampleConfig `mapstructure:"downsample"`
	TagSync    TagSyncConfig    `mapstructure:"tag_sync"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ProcessPending string `mapstructure:"process_pending"`
	TagSync        string `mapstructure:"tag_sync"`
}

type GammaConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ClobConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ClientConfig tunes the shared retry/backoff behavior for upstream calls.
type ClientConfig struct {
	MaxRetries   int           `mapstructure:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	RatePerSec   float64       `mapstructure:"rate_per_sec"`
}

type CaptureConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	APIDelay        time.Duration `mapstructure:"api_delay"`
	ClobDelay       time.Duration `mapstructure:"clob_delay"`
	ChunkMaxDays    int           `mapstructure:"chunk_max_days"`
	Fidelity        int           `mapstructure:"fidelity"`
	StuckTimeout    time.Duration `mapstructure:"stuck_timeout"`
	DefaultLimit    int           `mapstructure:"default_limit"`
	MarketPageLimit int           `mapstructure:"market_page_limit"`
	EventPageLimit  int           `mapstructure:"event_page_limit"`
	DeleteBatchSize int           `mapstructure:"delete_batch_size"`
}

type DownsampleConfig struct {
	ToleranceMinutes int `mapstructure:"tolerance_minutes"`
}

type TagSyncConfig struct {
	PageLimit int           `mapstructure:"page_limit"`
	PageDelay time.Duration `mapstructure:"page_delay"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.process_pending", "@every 30s")
	v.SetDefault("cron.tag_sync", "@daily")
	v.SetDefault("gamma.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("gamma.timeout", "15s")
	v.SetDefault("clob.base_url", "https://clob.polymarket.com")
	v.SetDefault("clob.timeout", "15s")
	v.SetDefault("client.max_retries", 5)
	v.SetDefault("client.initial_delay", "1s")
	v.SetDefault("client.max_delay", "30s")
	v.SetDefault("client.rate_per_sec", 10)
	v.SetDefault("capture.batch_size", 10)
	v.SetDefault("capture.api_delay", "100ms")
	v.SetDefault("capture.clob_delay", "50ms")
	v.SetDefault("capture.chunk_max_days", 14)
	v.SetDefault("capture.fidelity", 60)
	v.SetDefault("capture.stuck_timeout", "5m")
	v.SetDefault("capture.default_limit", 100)
	v.SetDefault("capture.market_page_limit", 100)
	v.SetDefault("capture.event_page_limit", 50)
	v.SetDefault("capture.delete_batch_size", 500)
	v.SetDefault("downsample.tolerance_minutes", 180)
	v.SetDefault("tag_sync.page_limit", 100)
	v.SetDefault("tag_sync.page_delay", "100ms")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
