package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// cliConfig holds everything the interactive surface needs to reach the
// data-file API and shape the presentation.
type cliConfig struct {
	APIURL    string `mapstructure:"api-url"`
	Token     string `mapstructure:"token"`
	Tenant    string `mapstructure:"tenant"`
	Dashboard string `mapstructure:"dashboard"`

	SlideSeconds   int `mapstructure:"slide-seconds"`
	RefreshSeconds int `mapstructure:"refresh-seconds"`
	CacheTTLSecs   int `mapstructure:"cache-ttl-seconds"`

	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("MARQUEE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("api-url", "http://127.0.0.1:8750")
	v.SetDefault("token", "")
	v.SetDefault("tenant", "")
	v.SetDefault("dashboard", "main")
	v.SetDefault("slide-seconds", 0)
	v.SetDefault("refresh-seconds", 0)
	v.SetDefault("cache-ttl-seconds", 0)
	v.SetDefault("request-timeout", 15*time.Second)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "marquee", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
