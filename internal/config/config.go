// Package config handles application configuration using Viper.
// Defaults, an optional YAML file, and ICONSYNC_-prefixed environment
// variables are merged in priority order and loaded into structs.
package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration struct. Nested structs organize related
// settings; `mapstructure` tags tell Viper how to map YAML/env keys to fields.
type Config struct {
	Device DeviceConfig `mapstructure:"device"`
	Icons  IconsConfig  `mapstructure:"icons"`
	Sim    SimConfig    `mapstructure:"sim"`
	Log    LogConfig    `mapstructure:"log"`
}

// DeviceConfig describes the AWTRIX device target.
type DeviceConfig struct {
	// Address is the device IP or hostname. Empty means the CLI will prompt.
	Address string        `mapstructure:"address"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// IconsConfig describes the icon host and fetch behavior.
type IconsConfig struct {
	// BaseURL is the icon thumbnail root; {id}.{gif|png} is appended.
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// RatePerSecond and Burst bound how fast we hit the icon host.
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// SimConfig configures the local device simulator.
type SimConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	DataDir      string `mapstructure:"data_dir"`
	DatabasePath string `mapstructure:"database_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
// A missing config file is fine — defaults plus env are enough.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("device.address", "")
	v.SetDefault("device.timeout", "10s")
	v.SetDefault("icons.base_url", "https://developer.lametric.com/content/apps/icon_thumbs")
	v.SetDefault("icons.timeout", "10s")
	v.SetDefault("icons.rate_per_second", 4.0)
	v.SetDefault("icons.burst", 2)
	v.SetDefault("sim.host", "0.0.0.0")
	v.SetDefault("sim.port", 8090)
	v.SetDefault("sim.data_dir", "./storage/sim")
	v.SetDefault("sim.database_path", "./storage/devicesim.db")
	v.SetDefault("log.level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Environment variables override everything.
	// ICONSYNC_ prefix + nested keys: ICONSYNC_DEVICE_ADDRESS=192.168.1.50
	v.SetEnvPrefix("ICONSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Address returns the simulator listen address like "0.0.0.0:8090".
func (s SimConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// hostnamePattern matches RFC 952-style hostnames, allowing single-character
// labels (e.g. "awtrix", "awtrix.local", "a").
var hostnamePattern = regexp.MustCompile(
	`^[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?)*$`)

// ValidateDeviceAddress checks that addr looks like an IP address or hostname
// a device could actually live at. It rejects empty strings, out-of-range
// IPv4 octets, and names with characters hostnames cannot contain.
func ValidateDeviceAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("device address is empty")
	}
	if addr == "localhost" {
		return nil
	}
	if ip := net.ParseIP(addr); ip != nil {
		return nil
	}
	// Dotted-quad shapes that net.ParseIP rejected have out-of-range octets;
	// report that precisely instead of falling through to hostname rules.
	if looksLikeIPv4(addr) {
		return fmt.Errorf("%q is not a valid IPv4 address", addr)
	}
	if !hostnamePattern.MatchString(addr) {
		return fmt.Errorf("%q is not a valid IP address or hostname", addr)
	}
	return nil
}

func looksLikeIPv4(addr string) bool {
	parts := strings.Split(addr, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return false
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}
