// File: config/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package config is the ambient typed configuration loader: reactor limits,
// server listen addresses, cluster worker topology, and logging level, read
// from a file (YAML/TOML/JSON/env, anything viper supports) and environment
// overrides under the CORENET_ prefix, then mapstructure-decoded into Config.

package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ReactorConfig bounds the event reactor (component B).
type ReactorConfig struct {
	MaxItems int `mapstructure:"max_items"`
}

// ServerConfig configures the HTTP/1.1 + HTTP/2 listener.
type ServerConfig struct {
	ListenAddr  string        `mapstructure:"listen_addr"`
	ReadMax     int           `mapstructure:"read_max"`
	WriteMax    int           `mapstructure:"write_max"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	TLSCertFile string        `mapstructure:"tls_cert_file"`
	TLSKeyFile  string        `mapstructure:"tls_key_file"`
}

// ClusterConfig configures the worker pool (component H). Field names
// mirror cluster.Config; Transfer stays a string here so config files
// don't need to spell the numeric enum (cmd/corenetd maps it to
// cluster.Transfer).
type ClusterConfig struct {
	Name                      string        `mapstructure:"name"`
	Workers                   int           `mapstructure:"workers"`
	Transfer                  string        `mapstructure:"transfer"` // "pipe" or "ipc"
	AutoRestart               bool          `mapstructure:"auto_restart"`
	YoungChildThreshold       time.Duration `mapstructure:"young_child_threshold"`
	RestartBackoff            time.Duration `mapstructure:"restart_backoff"`
	MaxConsecutiveYoungDeaths int           `mapstructure:"max_consecutive_young_deaths"`
}

// LoggingConfig configures the logging adapter.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig configures the Prometheus recorder and its scrape surface.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Namespace  string `mapstructure:"namespace"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// Config is the full typed configuration tree for a corenetd process.
type Config struct {
	Reactor ReactorConfig `mapstructure:"reactor"`
	Server  ServerConfig  `mapstructure:"server"`
	Cluster ClusterConfig `mapstructure:"cluster"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// setDefaults mirrors the defaults each owning package already applies
// (reactor.New's caller-supplied maxItems, cluster.DefaultConfig, etc.) so a
// config file only needs to override what differs.
func setDefaults(v *viper.Viper) {
	v.SetDefault("reactor.max_items", 4096)

	v.SetDefault("server.listen_addr", ":8443")
	v.SetDefault("server.read_max", 64*1024)
	v.SetDefault("server.write_max", 64*1024)
	v.SetDefault("server.idle_timeout", 90*time.Second)

	v.SetDefault("cluster.name", "corenet")
	v.SetDefault("cluster.workers", 1)
	v.SetDefault("cluster.transfer", "ipc")
	v.SetDefault("cluster.auto_restart", true)
	v.SetDefault("cluster.young_child_threshold", 180*time.Second)
	v.SetDefault("cluster.restart_backoff", time.Second)
	v.SetDefault("cluster.max_consecutive_young_deaths", 5)

	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "corenet")
	v.SetDefault("metrics.listen_addr", ":9090")
}

// Load reads path (if non-empty) plus CORENET_-prefixed environment
// overrides into a Config. An empty path relies entirely on defaults and
// the environment, matching viper's documented zero-config-file mode.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CORENET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
