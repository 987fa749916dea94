// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Supported values for browser.name and browser.engine. Kept as plain strings
// here so the config package stays free of browser imports.
var (
	supportedBrowsers = []string{"chrome", "edge", "firefox", "safari"}
	supportedEngines  = []string{"webdriver", "cdp", "rod"}
	// chromiumOnly lists engines that speak the DevTools protocol and can
	// therefore only drive Chromium based browsers.
	chromiumOnly = map[string]bool{"cdp": true, "rod": true}
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Wait() WaitConfig

	SetBrowserName(name string)
	SetBrowserHeadless(bool)
	SetWaitTimeout(d time.Duration)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" json:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" json:"browser"`
	WaitCfg    WaitConfig    `mapstructure:"wait" json:"wait"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Wait() WaitConfig       { return c.WaitCfg }

func (c *Config) SetBrowserName(name string)     { c.BrowserCfg.Name = name }
func (c *Config) SetBrowserHeadless(b bool)      { c.BrowserCfg.Headless = b }
func (c *Config) SetWaitTimeout(d time.Duration) { c.WaitCfg.Timeout = d }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" json:"level"`
	Format      string `mapstructure:"format" json:"format"`
	AddSource   bool   `mapstructure:"add_source" json:"add_source"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	// InfoLogFile receives records below warning level.
	InfoLogFile string `mapstructure:"info_log_file" json:"info_log_file"`
	// WarnLogFile receives warnings and errors.
	WarnLogFile string      `mapstructure:"warn_log_file" json:"warn_log_file"`
	MaxSize     int         `mapstructure:"max_size" json:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" json:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" json:"max_age"`
	Compress    bool        `mapstructure:"compress" json:"compress"`
	Colors      ColorConfig `mapstructure:"colors" json:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" json:"debug"`
	Info   string `mapstructure:"info" json:"info"`
	Warn   string `mapstructure:"warn" json:"warn"`
	Error  string `mapstructure:"error" json:"error"`
	DPanic string `mapstructure:"dpanic" json:"dpanic"`
	Panic  string `mapstructure:"panic" json:"panic"`
	Fatal  string `mapstructure:"fatal" json:"fatal"`
}

// BrowserConfig selects the browser, the automation engine that drives it,
// and how the driver process is started.
type BrowserConfig struct {
	Name     string `mapstructure:"name" json:"name"`
	Engine   string `mapstructure:"engine" json:"engine"`
	Headless bool   `mapstructure:"headless" json:"headless"`
	// DriverPath points at chromedriver, msedgedriver, geckodriver or
	// safaridriver. Empty means look it up on PATH.
	DriverPath string `mapstructure:"driver_path" json:"driver_path"`
	// DriverPort is the local port for the driver service; 0 picks a free one.
	DriverPort int `mapstructure:"driver_port" json:"driver_port"`
	// RemoteURL, when set, is used instead of spawning a driver service.
	RemoteURL string `mapstructure:"remote_url" json:"remote_url"`
	// BinaryPath is the browser executable used by the cdp and rod engines.
	BinaryPath string   `mapstructure:"binary_path" json:"binary_path"`
	Args       []string `mapstructure:"args" json:"args"`
}

// WaitConfig holds the preset timeouts applied around every interaction.
type WaitConfig struct {
	Timeout         time.Duration `mapstructure:"timeout" json:"timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval" json:"poll_interval"`
	AlertTimeout    time.Duration `mapstructure:"alert_timeout" json:"alert_timeout"`
	KeyPressDelay   time.Duration `mapstructure:"key_press_delay" json:"key_press_delay"`
	KeyReleaseDelay time.Duration `mapstructure:"key_release_delay" json:"key_release_delay"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "debug")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "w3automaton")
	v.SetDefault("logger.info_log_file", "logs/debug_info.log")
	v.SetDefault("logger.warn_log_file", "logs/warning_error.log")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.name", "chrome")
	v.SetDefault("browser.engine", "webdriver")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.driver_path", "")
	v.SetDefault("browser.driver_port", 0)
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.binary_path", "")
	v.SetDefault("browser.args", []string{})

	// -- Wait --
	v.SetDefault("wait.timeout", "20s")
	v.SetDefault("wait.poll_interval", "500ms")
	v.SetDefault("wait.alert_timeout", "200ms")
	v.SetDefault("wait.key_press_delay", "200ms")
	v.SetDefault("wait.key_release_delay", "100ms")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// normalize lowercases enum-like fields and expands home-relative paths.
func (c *Config) normalize() {
	c.BrowserCfg.Name = strings.ToLower(strings.TrimSpace(c.BrowserCfg.Name))
	c.BrowserCfg.Engine = strings.ToLower(strings.TrimSpace(c.BrowserCfg.Engine))
	c.BrowserCfg.DriverPath = ExpandPath(c.BrowserCfg.DriverPath)
	c.BrowserCfg.BinaryPath = ExpandPath(c.BrowserCfg.BinaryPath)
	c.LoggerCfg.InfoLogFile = ExpandPath(c.LoggerCfg.InfoLogFile)
	c.LoggerCfg.WarnLogFile = ExpandPath(c.LoggerCfg.WarnLogFile)
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.WaitCfg.Validate(); err != nil {
		return fmt.Errorf("wait configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the browser selection.
func (b *BrowserConfig) Validate() error {
	name := strings.ToLower(b.Name)
	engine := strings.ToLower(b.Engine)
	if !contains(supportedBrowsers, name) {
		return fmt.Errorf("unsupported browser %q (expected one of %s)", b.Name, strings.Join(supportedBrowsers, ", "))
	}
	if !contains(supportedEngines, engine) {
		return fmt.Errorf("unsupported engine %q (expected one of %s)", b.Engine, strings.Join(supportedEngines, ", "))
	}
	if chromiumOnly[engine] && name != "chrome" && name != "edge" {
		return fmt.Errorf("engine %q can only drive chrome or edge, not %q", engine, name)
	}
	if b.DriverPort < 0 || b.DriverPort > 65535 {
		return fmt.Errorf("driver_port must be between 0 and 65535")
	}
	return nil
}

// Validate checks the WaitConfig settings.
func (w *WaitConfig) Validate() error {
	if w.Timeout <= 0 {
		return fmt.Errorf("timeout must be a positive duration")
	}
	if w.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if w.AlertTimeout <= 0 {
		return fmt.Errorf("alert_timeout must be a positive duration")
	}
	if w.KeyPressDelay < 0 || w.KeyReleaseDelay < 0 {
		return fmt.Errorf("key delays must not be negative")
	}
	return nil
}

// LoadJSON reads the JSON document at path into out.
func LoadJSON(path string, out any) error {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// ExpandPath resolves a leading "~" to the user's home directory. Paths that
// cannot be expanded are returned unchanged.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
