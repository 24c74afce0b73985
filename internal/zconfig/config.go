// Copyright the Zola authors.
// Use of this source code is governed by an Apache-2.0
// license that can be found in the LICENSE file.

// Package zconfig loads zolad's server configuration via viper, the same
// layered defaults/file/env approach this corpus's config packages use.
package zconfig

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the fully-resolved configuration for one zolad process.
type Config struct {
	// DataDir is the catalog root: one subdirectory per table.
	DataDir string `mapstructure:"data_dir"`

	// ListenAddr is the TCP address the wire server binds.
	ListenAddr string `mapstructure:"listen_addr"`

	// MetricsAddr is the HTTP address /metrics is served on. Empty disables it.
	MetricsAddr string `mapstructure:"metrics_addr"`

	// RateLimit is the maximum sustained connections accepted per second;
	// Burst is the token-bucket burst size. Zero RateLimit disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("listen_addr", ":7878")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("rate_limit", 100.0)
	v.SetDefault("burst", 200)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load resolves configuration from (in ascending priority) built-in
// defaults, an optional config file at path (if non-empty), and ZOLA_*
// environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("zola")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}
