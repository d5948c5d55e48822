// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (e.g. AUTOPERMIT_DISCORD_BOT_TOKEN).
const EnvPrefix = "AUTOPERMIT"

// DefaultPortalURL is the visitor page of the permit portal.
const DefaultPortalURL = "https://rpm2park.com/visitors/"

// Config holds the settings for a single permit run. It is loaded once at
// process start and passed by pointer to every component; nothing mutates it
// after NewConfigFromViper returns.
type Config struct {
	// Timeout is the per-element wait, in seconds.
	Timeout          int    `mapstructure:"timeout" yaml:"timeout" validate:"gte=1"`
	PortalURL        string `mapstructure:"portal_url" yaml:"portal_url" validate:"required,url"`
	PropertyLocation string `mapstructure:"property_location" yaml:"property_location" validate:"required"`
	ApartmentNumber  string `mapstructure:"apartment_number_str" yaml:"apartment_number_str" validate:"required"`
	PlateNumber      string `mapstructure:"plate_number" yaml:"plate_number" validate:"required"`
	VehicleMake      string `mapstructure:"vehicle_make" yaml:"vehicle_make" validate:"required"`
	VehicleModel     string `mapstructure:"vehicle_model" yaml:"vehicle_model" validate:"required"`
	VehicleColor     string `mapstructure:"vehicle_color" yaml:"vehicle_color" validate:"required"`

	ScreenshotFolder       string `mapstructure:"screenshot_folder" yaml:"screenshot_folder" validate:"required_if=SaveScreenshotOfPermit true,required_if=SendScreenshotInDiscord true"`
	SaveScreenshotOfPermit bool   `mapstructure:"save_screenshot_of_permit" yaml:"save_screenshot_of_permit"`

	SendScreenshotInDiscord bool   `mapstructure:"send_screenshot_in_discord" yaml:"send_screenshot_in_discord"`
	DiscordBotToken         string `mapstructure:"discord_bot_token" yaml:"-" validate:"required_if=SendScreenshotInDiscord true"`
	// DiscordChannelID is kept as a string so 64-bit snowflakes survive YAML decoding.
	DiscordChannelID string `mapstructure:"discord_channel_id" yaml:"discord_channel_id" validate:"required_if=SendScreenshotInDiscord true"`
	// NotifyTimeout bounds one screenshot delivery, from login to logoff, in seconds.
	NotifyTimeout int `mapstructure:"notify_timeout" yaml:"notify_timeout" validate:"gte=1"`

	AutomaticallyRenewPermit bool `mapstructure:"automatically_renew_permit" yaml:"automatically_renew_permit"`
	IReadTheConfigWarning    bool `mapstructure:"i_read_the_config_warning" yaml:"i_read_the_config_warning"`

	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
}

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

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chrome instance that drives the portal.
type BrowserConfig struct {
	Headless   bool           `mapstructure:"headless" yaml:"headless"`
	DisableGPU bool           `mapstructure:"disable_gpu" yaml:"disable_gpu"`
	ExecPath   string         `mapstructure:"exec_path" yaml:"exec_path"`
	Args       []string       `mapstructure:"args" yaml:"args"`
	Viewport   map[string]int `mapstructure:"viewport" yaml:"viewport"`
}

// ElementTimeout returns the per-element wait as a duration.
func (c *Config) ElementTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// NotificationTimeout returns the bound on one screenshot delivery.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.NotifyTimeout) * time.Second
}

// ConfigurationError reports a config file or field problem. No side effects
// have been attempted when one is returned.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ErrWarningNotAcknowledged is returned when i_read_the_config_warning is not true.
var ErrWarningNotAcknowledged = errors.New("i_read_the_config_warning is not set to true")

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("timeout", 30)
	v.SetDefault("portal_url", DefaultPortalURL)
	v.SetDefault("screenshot_folder", ".")
	v.SetDefault("save_screenshot_of_permit", false)
	v.SetDefault("send_screenshot_in_discord", false)
	v.SetDefault("notify_timeout", 60)
	v.SetDefault("automatically_renew_permit", false)
	v.SetDefault("i_read_the_config_warning", false)

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "autopermit")
	v.SetDefault("logger.log_file", "debug.log")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", false)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.disable_gpu", true)
}

// DefaultLoggerConfig returns the logger settings used before a config file
// has been read, or when reading it failed.
func DefaultLoggerConfig() LoggerConfig {
	v := viper.New()
	SetDefaults(v)
	var lc LoggerConfig
	_ = v.UnmarshalKey("logger", &lc)
	return lc
}

// CheckConfigFile verifies that path names an existing regular file with a YAML extension.
func CheckConfigFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ConfigurationError{Reason: fmt.Sprintf("config file %s does not exist", path)}
		}
		return &ConfigurationError{Reason: fmt.Sprintf("cannot stat config file %s", path), Err: err}
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !info.Mode().IsRegular() || (ext != ".yaml" && ext != ".yml") {
		return &ConfigurationError{Reason: fmt.Sprintf("%s is not a valid YAML file", path)}
	}
	return nil
}

// Load reads the YAML file at path into a fresh viper instance and returns the
// validated configuration.
func Load(path string) (*Config, error) {
	if err := CheckConfigFile(path); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigurationError{Reason: "error parsing YAML file", Err: err}
	}
	return NewConfigFromViper(v)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Secrets are usually supplied through the environment rather than the file.
	_ = v.BindEnv("discord_bot_token", EnvPrefix+"_DISCORD_BOT_TOKEN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigurationError{Reason: "error unmarshaling config", Err: err}
	}

	if cfg.ScreenshotFolder != "" {
		folder, err := homedir.Expand(cfg.ScreenshotFolder)
		if err != nil {
			return nil, &ConfigurationError{Reason: "cannot expand screenshot_folder", Err: err}
		}
		cfg.ScreenshotFolder = folder
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

// newValidator reports field errors by their config key rather than the Go field name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the configuration for required fields and sane values.
// Fields belonging to a disabled feature are not required.
func (c *Config) Validate() error {
	if !c.IReadTheConfigWarning {
		return &ConfigurationError{Reason: "read the config warning and then set the bool under it to true", Err: ErrWarningNotAcknowledged}
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigurationError{
				Reason: fmt.Sprintf("field %s failed %q validation", fe.Field(), fe.Tag()),
				Err:    err,
			}
		}
		return &ConfigurationError{Reason: "invalid configuration", Err: err}
	}
	if c.DiscordChannelID != "" {
		if err := validate.Var(c.DiscordChannelID, "numeric"); err != nil {
			return &ConfigurationError{Reason: "discord_channel_id must be a numeric channel ID", Err: err}
		}
	}
	return nil
}
