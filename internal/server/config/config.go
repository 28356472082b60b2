// Package config holds the settings of the reference owner registry server:
// defaults, an optional JSON overlay, and flag values applied by
// cmd/registry.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/havengate/internal/timex"
)

// Config holds runtime settings for the registry server.
//
// DatabaseDSN selects the Postgres claims store; when empty, claims live in
// memory and vanish on restart. TokenSecret signs owner tokens; when empty,
// successful claims carry no token.
type Config struct {
	ListenAddr      string
	DatabaseDSN     string
	TokenSecret     string
	TokenTTL        time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	LogJSON         bool
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8088"
	c.TokenTTL = 15 * time.Minute
	c.ReadTimeout = 10 * time.Second
	c.WriteTimeout = 10 * time.Second
	c.ShutdownTimeout = 15 * time.Second
	c.LogLevel = "info"
	c.LogJSON = true
}

// JsonConfig is the DTO for JSON config files. Zero values leave the current
// setting untouched.
type JsonConfig struct {
	ListenAddr      string         `json:"listen_addr"`
	DatabaseDSN     string         `json:"database_dsn"`
	TokenSecret     string         `json:"token_secret"`
	TokenTTL        timex.Duration `json:"token_ttl"`
	ReadTimeout     timex.Duration `json:"read_timeout"`
	WriteTimeout    timex.Duration `json:"write_timeout"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`
	LogLevel        string         `json:"log_level"`
	LogJSON         *bool          `json:"log_json"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}

func (j *JsonConfig) apply(c *Config) {
	setString(&c.ListenAddr, j.ListenAddr)
	setString(&c.DatabaseDSN, j.DatabaseDSN)
	setString(&c.TokenSecret, j.TokenSecret)
	setDuration(&c.TokenTTL, j.TokenTTL)
	setDuration(&c.ReadTimeout, j.ReadTimeout)
	setDuration(&c.WriteTimeout, j.WriteTimeout)
	setDuration(&c.ShutdownTimeout, j.ShutdownTimeout)
	setString(&c.LogLevel, j.LogLevel)
	if j.LogJSON != nil {
		c.LogJSON = *j.LogJSON
	}
}

// LoadJSON overlays c with the file at path. An empty path is a no-op.
func (c *Config) LoadJSON(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var j JsonConfig
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("parse json config %s: %w", path, err)
	}
	j.apply(c)
	return nil
}

// Overrides carries values given on the command line. Nil fields were not
// set.
type Overrides struct {
	ListenAddr  *string
	DatabaseDSN *string
	TokenSecret *string
	TokenTTL    *time.Duration
	LogLevel    *string
	LogJSON     *bool
}

// ApplyFlags overlays c with explicitly set command-line values.
func (c *Config) ApplyFlags(o Overrides) {
	if o.ListenAddr != nil {
		c.ListenAddr = *o.ListenAddr
	}
	if o.DatabaseDSN != nil {
		c.DatabaseDSN = *o.DatabaseDSN
	}
	if o.TokenSecret != nil {
		c.TokenSecret = *o.TokenSecret
	}
	if o.TokenTTL != nil {
		c.TokenTTL = *o.TokenTTL
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.LogJSON != nil {
		c.LogJSON = *o.LogJSON
	}
}

// Load applies defaults, the JSON file at path and then o.
func Load(path string, o Overrides) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := cfg.LoadJSON(path); err != nil {
		return nil, err
	}
	cfg.ApplyFlags(o)
	return cfg, nil
}
