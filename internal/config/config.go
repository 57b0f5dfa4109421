// Package config loads riptide's typed configuration via viper, binding the
// RIPTIDE_* environment variables spec.md §6 names and rejecting unknown
// keys at validation time (spec §9 "Dynamic config").
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Resource   ResourceConfig   `mapstructure:"resource"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	WASM       WASMConfig       `mapstructure:"wasm"`
	Spider     SpiderConfig     `mapstructure:"spider"`
	CacheWarm  CacheWarmConfig  `mapstructure:"cache_warming"`
	SearchBackend string        `mapstructure:"search_backend"`
}

// ServerConfig controls the HTTP API surface.
type ServerConfig struct {
	Addr            string `mapstructure:"addr"`
	RedisURL        string `mapstructure:"redis_url"`
	StreamKeepAlive int    `mapstructure:"stream_keepalive_secs"`
}

// LoggingConfig holds the logging settings as viper reads them. Rotation
// settings sit in a nested block under their own names; cmd/riptide copies
// them into internal/logging.Config field by field.
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// ResourceConfig bounds memory/CPU consumption across the browser and WASM
// pools, ported from the teacher's resource safety thresholds.
type ResourceConfig struct {
	SafetyReserveMemoryMB int `mapstructure:"safety_reserve_memory_mb"`
	SafetyThresholdMB     int `mapstructure:"safety_threshold_mb"`
	CPULoadThresholdPct   int `mapstructure:"cpu_load_threshold_pct"`
}

func (r *ResourceConfig) Validate() error {
	if r.SafetyReserveMemoryMB < 256 {
		return fmt.Errorf("resource.safety_reserve_memory_mb must be >= 256, got %d", r.SafetyReserveMemoryMB)
	}
	if r.SafetyThresholdMB < 64 {
		return fmt.Errorf("resource.safety_threshold_mb must be >= 64, got %d", r.SafetyThresholdMB)
	}
	if r.CPULoadThresholdPct < 10 || r.CPULoadThresholdPct > 999 {
		return fmt.Errorf("resource.cpu_load_threshold_pct must be in [10,999], got %d", r.CPULoadThresholdPct)
	}
	return nil
}

// BrowserConfig parameterizes the headless browser pool (spec §4.2).
type BrowserConfig struct {
	MinInstances     int      `mapstructure:"min_instances"`
	MaxInstances     int      `mapstructure:"max_instances"`
	CheckoutTimeoutMs int     `mapstructure:"checkout_timeout_ms"`
	MaxLifetimeSecs  int      `mapstructure:"max_lifetime_secs"`
	MemoryThresholdMB int     `mapstructure:"memory_threshold_mb"`
	HybridMode       bool     `mapstructure:"hybrid_mode"`
	ChromeFlags      []string `mapstructure:"chrome_flags"`
	Headless         bool     `mapstructure:"headless"`
}

// WASMConfig parameterizes the extractor pool (spec §4.3).
type WASMConfig struct {
	ExtractorPath    string `mapstructure:"extractor_path"`
	PoolCapacity     int    `mapstructure:"pool_capacity"`
	MemoryLimitPages int    `mapstructure:"memory_limit_pages"`
	CircuitThreshold int    `mapstructure:"circuit_failure_threshold"`
	CircuitCooldownSecs int `mapstructure:"circuit_cooldown_secs"`
}

// SpiderConfig parameterizes the frontier/scheduler (spec §4.4).
type SpiderConfig struct {
	Enable            bool    `mapstructure:"enable"`
	DefaultStrategy   string  `mapstructure:"default_strategy"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	RobotsTTLSecs     int     `mapstructure:"robots_ttl_secs"`
}

// CacheWarmConfig binds the RIPTIDE_CACHE_WARMING_ENABLED family of env vars.
type CacheWarmConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	WarmPoolSize      int  `mapstructure:"warm_pool_size"`
	MinWarmInstances  int  `mapstructure:"min_warm_instances"`
	MaxWarmInstances  int  `mapstructure:"max_warm_instances"`
	WarmingIntervalSecs int `mapstructure:"warming_interval_secs"`
	CacheHitTarget    float64 `mapstructure:"cache_hit_target"`
	EnablePrefetching bool `mapstructure:"enable_prefetching"`
}

// Load reads configuration from configPath (or the default search path),
// applies defaults, binds the RIPTIDE_* environment prefix, and validates.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".riptide"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix("RIPTIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvAliases(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Resource.Validate(); err != nil {
		return nil, fmt.Errorf("validating resource config: %w", err)
	}

	return &cfg, nil
}

// bindEnvAliases wires the handful of env vars spec.md §6 names that do not
// follow the RIPTIDE_ prefix convention.
func bindEnvAliases(v *viper.Viper) {
	_ = v.BindEnv("search_backend", "SEARCH_BACKEND")
	_ = v.BindEnv("wasm.extractor_path", "WASM_EXTRACTOR_PATH")
	_ = v.BindEnv("browser.chrome_flags", "CHROME_FLAGS")
	_ = v.BindEnv("spider.enable", "SPIDER_ENABLE")
	_ = v.BindEnv("cache_warming.enabled", "RIPTIDE_CACHE_WARMING_ENABLED")
	_ = v.BindEnv("cache_warming.warm_pool_size", "RIPTIDE_WARM_POOL_SIZE")
	_ = v.BindEnv("cache_warming.min_warm_instances", "RIPTIDE_MIN_WARM_INSTANCES")
	_ = v.BindEnv("cache_warming.max_warm_instances", "RIPTIDE_MAX_WARM_INSTANCES")
	_ = v.BindEnv("cache_warming.warming_interval_secs", "RIPTIDE_WARMING_INTERVAL_SECS")
	_ = v.BindEnv("cache_warming.cache_hit_target", "RIPTIDE_CACHE_HIT_TARGET")
	_ = v.BindEnv("cache_warming.enable_prefetching", "RIPTIDE_ENABLE_PREFETCHING")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.stream_keepalive_secs", 30)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 100)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("resource.safety_reserve_memory_mb", 1024)
	v.SetDefault("resource.safety_threshold_mb", 500)
	v.SetDefault("resource.cpu_load_threshold_pct", 80)

	v.SetDefault("browser.min_instances", 1)
	v.SetDefault("browser.max_instances", 8)
	v.SetDefault("browser.checkout_timeout_ms", 5000)
	v.SetDefault("browser.max_lifetime_secs", 1800)
	v.SetDefault("browser.memory_threshold_mb", 512)
	v.SetDefault("browser.hybrid_mode", false)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.chrome_flags", []string{})

	v.SetDefault("wasm.extractor_path", "")
	v.SetDefault("wasm.pool_capacity", 4)
	v.SetDefault("wasm.memory_limit_pages", 4096)
	v.SetDefault("wasm.circuit_failure_threshold", 5)
	v.SetDefault("wasm.circuit_cooldown_secs", 30)

	v.SetDefault("spider.enable", false)
	v.SetDefault("spider.default_strategy", "breadth_first")
	v.SetDefault("spider.requests_per_second", 2.0)
	v.SetDefault("spider.robots_ttl_secs", 3600)

	v.SetDefault("cache_warming.enabled", false)
	v.SetDefault("cache_warming.warm_pool_size", 4)
	v.SetDefault("cache_warming.min_warm_instances", 1)
	v.SetDefault("cache_warming.max_warm_instances", 8)
	v.SetDefault("cache_warming.warming_interval_secs", 60)
	v.SetDefault("cache_warming.cache_hit_target", 0.7)
	v.SetDefault("cache_warming.enable_prefetching", false)

	v.SetDefault("search_backend", "none")
}
