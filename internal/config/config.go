// Package config loads breeze-kiosk's runtime configuration: the handful of
// tunables the RFB session engine and its bootstrapping state machine need
// beyond what's given on the command line (§6.5).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config holds all kiosk configuration. Spec-mandated constants (the 5
// minute ping period, the 3 second connect timeout, ...) are the defaults
// below; they exist as fields so a panel can be tuned without a rebuild.
type Config struct {
	// Device paths
	FramebufferDevice string `mapstructure:"framebuffer_device"`
	TouchDevice       string `mapstructure:"touch_device"`
	ConsoleDevice     string `mapstructure:"console_device"`

	// Query identity (§6.3). Validated as non-empty; the query client always
	// sends query.FormFactor and does not read this field.
	FormFactor string `mapstructure:"form_factor"`

	// Timeouts and intervals (§4.1, §5)
	ResolveTimeout     time.Duration `mapstructure:"resolve_timeout"`
	ConnectTimeout     time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout       time.Duration `mapstructure:"query_timeout"`
	QueryAttempts      int           `mapstructure:"query_attempts"`
	DirectRetryDelay   time.Duration `mapstructure:"direct_retry_delay"`
	PingInterval       time.Duration `mapstructure:"ping_interval"`
	DiscoveryWindow    time.Duration `mapstructure:"discovery_window"`
	DiscoveryFirstWait time.Duration `mapstructure:"discovery_first_wait"`

	// Outbound channel (§3)
	OutboundChannelCapacity int `mapstructure:"outbound_channel_capacity"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	LogFile   string `mapstructure:"log_file"`
}

// Default returns configuration with the protocol's literal default
// values, so the module behaves correctly with zero configuration present.
func Default() *Config {
	return &Config{
		FramebufferDevice:       "/dev/fb0",
		TouchDevice:             "/dev/input/event0",
		ConsoleDevice:           "/dev/console",
		FormFactor:              "InWallPanel",
		ResolveTimeout:          5 * time.Second,
		ConnectTimeout:          3 * time.Second,
		QueryTimeout:            3 * time.Second,
		QueryAttempts:           3,
		DirectRetryDelay:        3 * time.Second,
		PingInterval:            5 * time.Minute,
		DiscoveryWindow:         200 * time.Millisecond,
		DiscoveryFirstWait:      400 * time.Millisecond,
		OutboundChannelCapacity: 10,
		LogLevel:                "info",
		LogFormat:               "text",
	}
}

// Load reads configuration from file and environment, falling back to
// Default() for anything unset. cfgFile, if non-empty, is used verbatim
// instead of the search path.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("kiosk")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("BREEZE_KIOSK")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	result := cfg.ValidateTiered()
	for _, err := range result.Warnings {
		log.Warn("config validation", "error", err)
	}
	if result.HasFatals() {
		return nil, fmt.Errorf("config has fatal validation errors: %v", result.Fatals[0])
	}

	return cfg, nil
}

// configDir returns the platform-specific config directory.
func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "BreezeKiosk")
	case "darwin":
		return "/Library/Application Support/BreezeKiosk"
	default:
		return "/etc/breeze-kiosk"
	}
}
