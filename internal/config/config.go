// Package config loads agent settings from a YAML file and LUMENCAST_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	// Monitor selects the physical output to capture (0 = primary).
	Monitor int `mapstructure:"monitor"`

	// CaptureCursor overlays the OS cursor on the captured output.
	CaptureCursor bool `mapstructure:"capture_cursor"`

	ListenAddr  string `mapstructure:"listen_addr"`
	FPS         int    `mapstructure:"fps"`
	JPEGQuality int    `mapstructure:"jpeg_quality"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

func Default() *Config {
	return &Config{
		Monitor:       0,
		CaptureCursor: true,
		ListenAddr:    "127.0.0.1:8420",
		FPS:           15,
		JPEGQuality:   70,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("lumencast")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("LUMENCAST")
	v.AutomaticEnv()

	for key, val := range map[string]any{
		"monitor":        cfg.Monitor,
		"capture_cursor": cfg.CaptureCursor,
		"listen_addr":    cfg.ListenAddr,
		"fps":            cfg.FPS,
		"jpeg_quality":   cfg.JPEGQuality,
		"log_level":      cfg.LogLevel,
		"log_format":     cfg.LogFormat,
	} {
		v.SetDefault(key, val)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// An explicit --config path that doesn't exist is also a
			// hard error; only the search-path miss is tolerated.
			if cfgFile != "" || !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Monitor < 0 {
		return fmt.Errorf("monitor must be >= 0, got %d", c.Monitor)
	}
	if c.FPS < 1 || c.FPS > 60 {
		return fmt.Errorf("fps must be in [1,60], got %d", c.FPS)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be in [1,100], got %d", c.JPEGQuality)
	}
	return nil
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Lumencast")
	case "darwin":
		return "/Library/Application Support/Lumencast"
	default:
		return "/etc/lumencast"
	}
}
