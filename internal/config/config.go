// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the commcat configuration file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the commcat configuration.
type Config struct {
	Transport string `yaml:"transport"`
	Addr      string `yaml:"addr"`
	Framing   string `yaml:"framing"`
	LogLevel  string `yaml:"log_level"`
	// PollInterval and ReadTimeout keep the transport's defaults when zero.
	PollInterval time.Duration `yaml:"poll_interval"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	Serial       Serial        `yaml:"serial"`
}

// Serial holds the serial line settings.
type Serial struct {
	PortName string `yaml:"port_name"`
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"`
	StopBits string `yaml:"stop_bits"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Transport: "udp",
		Addr:      "127.0.0.1:1234",
		Framing:   "auto",
		LogLevel:  "info",
		Serial: Serial{
			BaudRate: 9600,
			DataBits: 8,
			Parity:   "none",
			StopBits: "1",
		},
	}
}

// DefaultPath returns the default config file path: ~/.commcat/config.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".commcat", "config.yaml")
	}
	return filepath.Join(home, ".commcat", "config.yaml")
}

// Load reads the configuration from the given YAML file path. Keys absent
// from the file keep their defaults. If the file does not exist, it returns
// Default() with no error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks the fields that have a closed set of values.
func (c *Config) Validate() error {
	switch c.Transport {
	case "udp", "tcp", "serial":
	default:
		return errors.Errorf("config: unknown transport %q", c.Transport)
	}
	switch c.Framing {
	case "", "auto", "cobs", "transparent":
	default:
		return errors.Errorf("config: unknown framing %q", c.Framing)
	}
	if c.Transport == "serial" && c.Serial.PortName == "" {
		return errors.New("config: serial transport needs serial.port_name")
	}
	return nil
}
