package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/meanin2/ac-automation/internal/policy"
	"github.com/meanin2/ac-automation/internal/schedule"
)

// Config is the full daemon configuration, read from configs/config.yml with
// secrets overridable from the environment.
type Config struct {
	Port     string     `mapstructure:"port"`
	LogLevel string     `mapstructure:"log_level"`
	Timezone string     `mapstructure:"timezone"`
	DB       DBConfig   `mapstructure:"db"`
	Sensibo  APIConfig  `mapstructure:"sensibo"`
	Monitor  Monitor    `mapstructure:"monitor"`
	History  Retention  `mapstructure:"history"`
	Fallback Fallback   `mapstructure:"fallback"`
	Auth     AuthConfig `mapstructure:"auth"`
	Windows  []Window   `mapstructure:"windows"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// APIConfig configures the vendor API client. APIKey is required and comes
// from SENSIBO_API_KEY; PodID is optional (discovery runs when empty).
type APIConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	PodID      string `mapstructure:"pod_id"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
	Retries    int    `mapstructure:"retries"`
}

type Monitor struct {
	IntervalMin  int `mapstructure:"interval_min"`
	CacheTTLSec  int `mapstructure:"cache_ttl_sec"`
	StalenessSec int `mapstructure:"staleness_sec"`
}

type Retention struct {
	MaxSamples int `mapstructure:"max_samples"`
	MaxAgeMin  int `mapstructure:"max_age_min"`
}

type Fallback struct {
	HighTempC      float64 `mapstructure:"high_temp_c"`
	CooldownMin    int     `mapstructure:"cooldown_min"`
	Trend          string  `mapstructure:"trend"` // delta | rising
	DeltaWindowMin int     `mapstructure:"delta_window_min"`
	MinDeltaC      float64 `mapstructure:"min_delta_c"`
	RisingWindow   int     `mapstructure:"rising_window"`
}

type AuthConfig struct {
	SigningKey string `mapstructure:"signing_key"`
}

// Window is the raw window table entry; BuildWindows converts it to the
// validated schedule form.
type Window struct {
	Name     string   `mapstructure:"name"`
	Days     []string `mapstructure:"days"`
	Start    string   `mapstructure:"start"`
	End      string   `mapstructure:"end"`
	Fallback bool     `mapstructure:"fallback"`
}

// Load reads config.yml from dir, applies defaults and env overrides, and
// validates. Configuration errors here are fatal at startup by design.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Secrets come from the environment, overriding the file.
	_ = v.BindEnv("sensibo.api_key", "SENSIBO_API_KEY")
	_ = v.BindEnv("sensibo.pod_id", "SENSIBO_POD_ID")
	_ = v.BindEnv("auth.signing_key", "AUTH_SIGNING_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", logLevelDefault)
	v.SetDefault("timezone", "UTC")
	v.SetDefault("db.path", "acfallback.db")
	v.SetDefault("sensibo.base_url", "https://home.sensibo.com/api/v2")
	v.SetDefault("sensibo.timeout_sec", 10)
	v.SetDefault("sensibo.retries", 3)
	v.SetDefault("monitor.interval_min", 5)
	v.SetDefault("monitor.cache_ttl_sec", 600)
	v.SetDefault("monitor.staleness_sec", 600)
	v.SetDefault("history.max_samples", 24)
	v.SetDefault("history.max_age_min", 120)
	v.SetDefault("fallback.high_temp_c", 24.5)
	v.SetDefault("fallback.cooldown_min", 15)
	v.SetDefault("fallback.trend", string(policy.TrendDelta))
	v.SetDefault("fallback.delta_window_min", 30)
	v.SetDefault("fallback.min_delta_c", 0.3)
	v.SetDefault("fallback.rising_window", 3)
}

const logLevelDefault = "info"

func (c *Config) validate() error {
	if c.Sensibo.APIKey == "" {
		return errors.New("SENSIBO_API_KEY env var missing")
	}
	if len(c.Windows) == 0 {
		return errors.New("no windows configured")
	}
	switch policy.TrendMode(c.Fallback.Trend) {
	case policy.TrendDelta, policy.TrendRising:
	default:
		return fmt.Errorf("fallback.trend must be %q or %q, got %q",
			policy.TrendDelta, policy.TrendRising, c.Fallback.Trend)
	}
	if c.Fallback.CooldownMin <= 0 {
		return errors.New("fallback.cooldown_min must be positive")
	}
	if c.Monitor.IntervalMin <= 0 {
		return errors.New("monitor.interval_min must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// BuildWindows converts the raw table into validated schedule windows.
func (c *Config) BuildWindows() ([]schedule.Window, error) {
	out := make([]schedule.Window, 0, len(c.Windows))
	for _, w := range c.Windows {
		days, err := schedule.ParseDays(w.Days)
		if err != nil {
			return nil, fmt.Errorf("window %q: %w", w.Name, err)
		}
		start, err := schedule.ParseClock(w.Start)
		if err != nil {
			return nil, fmt.Errorf("window %q: %w", w.Name, err)
		}
		end, err := schedule.ParseClock(w.End)
		if err != nil {
			return nil, fmt.Errorf("window %q: %w", w.Name, err)
		}
		out = append(out, schedule.Window{
			Name:     w.Name,
			Days:     days,
			Start:    start,
			End:      end,
			Fallback: w.Fallback,
		})
	}
	return out, nil
}

// PolicyConfig converts fallback settings to the policy package form.
func (c *Config) PolicyConfig() policy.Config {
	return policy.Config{
		HighTempC:    c.Fallback.HighTempC,
		Cooldown:     time.Duration(c.Fallback.CooldownMin) * time.Minute,
		Trend:        policy.TrendMode(c.Fallback.Trend),
		DeltaWindow:  time.Duration(c.Fallback.DeltaWindowMin) * time.Minute,
		MinDeltaC:    c.Fallback.MinDeltaC,
		RisingWindow: c.Fallback.RisingWindow,
	}
}
