// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Layout() LayoutConfig
	Timers() TimersConfig
	Script() ScriptConfig

	// Layout Setters
	SetLayoutViewport(width, height float64)
	SetLayoutDirection(dir string)

	// Script Setters
	SetScriptTimeout(d time.Duration)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg LoggerConfig `mapstructure:"logger" yaml:"logger"`
	LayoutCfg LayoutConfig `mapstructure:"layout" yaml:"layout"`
	TimersCfg TimersConfig `mapstructure:"timers" yaml:"timers"`
	ScriptCfg ScriptConfig `mapstructure:"script" yaml:"script"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig { return c.LoggerCfg }
func (c *Config) Layout() LayoutConfig { return c.LayoutCfg }
func (c *Config) Timers() TimersConfig { return c.TimersCfg }
func (c *Config) Script() ScriptConfig { return c.ScriptCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetLayoutViewport(width, height float64) {
	c.LayoutCfg.ViewportWidth = width
	c.LayoutCfg.ViewportHeight = height
}
func (c *Config) SetLayoutDirection(dir string) {
	c.LayoutCfg.Direction = strings.ToLower(strings.TrimSpace(dir))
}
func (c *Config) SetScriptTimeout(d time.Duration) { c.ScriptCfg.Timeout = d }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LayoutConfig sizes the initial containing block and bounds the flush.
type LayoutConfig struct {
	ViewportWidth  float64 `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight float64 `mapstructure:"viewport_height" yaml:"viewport_height"`
	// Direction of the root element, "ltr" or "rtl".
	Direction string `mapstructure:"direction" yaml:"direction"`
	// MaxRevisits is how often one box may be laid out again within a flush
	// before the flush fails with a cyclic dependency.
	MaxRevisits int `mapstructure:"max_revisits" yaml:"max_revisits"`
}

// TimersConfig drives the virtual clock.
type TimersConfig struct {
	FrameInterval time.Duration `mapstructure:"frame_interval" yaml:"frame_interval"`
	IdleLimit     time.Duration `mapstructure:"idle_limit" yaml:"idle_limit"`
}

// ScriptConfig bounds script execution. Timeout is wall-clock time, PromiseLimit
// is virtual time spent waiting for a returned promise.
type ScriptConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PromiseLimit time.Duration `mapstructure:"promise_limit" yaml:"promise_limit"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "abspos")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Layout --
	v.SetDefault("layout.viewport_width", 800)
	v.SetDefault("layout.viewport_height", 600)
	v.SetDefault("layout.direction", "ltr")
	v.SetDefault("layout.max_revisits", 1)

	// -- Timers --
	v.SetDefault("timers.frame_interval", "16ms")
	v.SetDefault("timers.idle_limit", "10s")

	// -- Script --
	v.SetDefault("script.timeout", "30s")
	v.SetDefault("script.promise_limit", "1m")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
// Environment variables prefixed with ABSPOS_ override file values, with
// dots in keys replaced by underscores (ABSPOS_LAYOUT_VIEWPORT_WIDTH).
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.SetEnvPrefix("ABSPOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.LayoutCfg.Direction = strings.ToLower(strings.TrimSpace(cfg.LayoutCfg.Direction))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.LayoutCfg.Validate(); err != nil {
		return fmt.Errorf("layout configuration invalid: %w", err)
	}
	if c.TimersCfg.FrameInterval <= 0 {
		return fmt.Errorf("timers.frame_interval must be positive")
	}
	if c.TimersCfg.IdleLimit <= 0 {
		return fmt.Errorf("timers.idle_limit must be positive")
	}
	if c.ScriptCfg.Timeout <= 0 {
		return fmt.Errorf("script.timeout must be positive")
	}
	if c.ScriptCfg.PromiseLimit < 0 {
		return fmt.Errorf("script.promise_limit must not be negative")
	}
	return nil
}

// Validate checks the layout configuration.
func (l *LayoutConfig) Validate() error {
	if l.ViewportWidth <= 0 || l.ViewportHeight <= 0 {
		return fmt.Errorf("viewport must have a positive size, got %vx%v", l.ViewportWidth, l.ViewportHeight)
	}
	switch l.Direction {
	case "ltr", "rtl":
	default:
		return fmt.Errorf("direction must be \"ltr\" or \"rtl\", got %q", l.Direction)
	}
	if l.MaxRevisits < 0 {
		return fmt.Errorf("max_revisits must not be negative")
	}
	return nil
}
