package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"basis-spread-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Exchanges  []string         `mapstructure:"exchanges"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Sampling   SamplingConfig   `mapstructure:"sampling"`
	Recorder   RecorderConfig   `mapstructure:"recorder"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	RunName     string `mapstructure:"run_name"`
}

// ThresholdsConfig 收益率的两档阈值：入账下限与推送阈值。
type ThresholdsConfig struct {
	LowestProfitFraction   float64       `mapstructure:"lowest_profit_fraction"`
	RequiredProfitFraction float64       `mapstructure:"required_profit_fraction"`
	OnlyCurrentPeriod      bool          `mapstructure:"only_current_period"`
	PeriodHorizon          time.Duration `mapstructure:"period_horizon"`
}

// SamplingConfig governs candle retrieval and pacing.
type SamplingConfig struct {
	Timeframe      string        `mapstructure:"timeframe"`
	CandleLimit    int           `mapstructure:"candle_limit"`
	Pause          time.Duration `mapstructure:"pause"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RecorderConfig locates the append-only observation log.
type RecorderConfig struct {
	CSVPath string `mapstructure:"csv_path"`
}

// DatabaseConfig encapsulates optional PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs the run-loop cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Mixin   MixinConfig `mapstructure:"mixin"`
}

// MixinConfig 描述 Mixin webhook 推送参数。
type MixinConfig struct {
	Token   string        `mapstructure:"token"`
	APIBase string        `mapstructure:"api_base"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BASISWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "basiswatcher")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.run_name", "basiswatcher")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("exchanges", []string{"binance", "okx"})

	v.SetDefault("thresholds.lowest_profit_fraction", 0.02)
	v.SetDefault("thresholds.required_profit_fraction", 0.02)
	v.SetDefault("thresholds.only_current_period", true)
	v.SetDefault("thresholds.period_horizon", "2160h")

	v.SetDefault("sampling.timeframe", "1m")
	v.SetDefault("sampling.candle_limit", 5)
	v.SetDefault("sampling.pause", "50ms")
	v.SetDefault("sampling.request_timeout", "10s")

	v.SetDefault("recorder.csv_path", "data/observations.csv")

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x62617369))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.mixin.api_base", "https://webhook.exinwork.com")
	v.SetDefault("alerting.mixin.timeout", "2s")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("exchanges must list at least one exchange id")
	}
	if c.Thresholds.LowestProfitFraction < 0 {
		return fmt.Errorf("thresholds.lowest_profit_fraction cannot be negative")
	}
	if c.Thresholds.RequiredProfitFraction < 0 {
		return fmt.Errorf("thresholds.required_profit_fraction cannot be negative")
	}
	if c.Thresholds.OnlyCurrentPeriod && c.Thresholds.PeriodHorizon <= 0 {
		return fmt.Errorf("thresholds.period_horizon must be greater than zero when only_current_period is set")
	}
	if c.Sampling.CandleLimit < 2 {
		return fmt.Errorf("sampling.candle_limit must be at least 2 to skip the open candle")
	}
	if c.Sampling.Pause < 0 {
		return fmt.Errorf("sampling.pause cannot be negative")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Enabled && c.Alerting.Mixin.Token == "" {
		return fmt.Errorf("alerting.mixin.token 必须配置")
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
