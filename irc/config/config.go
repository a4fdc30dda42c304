package config

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the server configuration
type Config struct {
	Server    ServerConfig      `yaml:"server" toml:"server" json:"server"`
	Limits    LimitsConfig      `yaml:"limits" toml:"limits" json:"limits"`
	Admin     AdminConfig       `yaml:"admin" toml:"admin" json:"admin"`
	Templates map[string]string `yaml:"templates" toml:"templates" json:"templates"`
	Debug     bool              `yaml:"debug" toml:"debug" json:"debug" env:"IRCD_DEBUG"`

	// Configuration source for reloading
	Source string `yaml:"-" toml:"-" json:"-"`
}

// ServerConfig identifies the server and where it listens.
type ServerConfig struct {
	Name    string   `yaml:"name" toml:"name" json:"name" env:"IRCD_SERVER_NAME" validate:"required"`
	Network string   `yaml:"network" toml:"network" json:"network" env:"IRCD_NETWORK" validate:"required"`
	Version string   `yaml:"version" toml:"version" json:"version" env:"IRCD_VERSION" validate:"required"`
	Listen  []string `yaml:"listen" toml:"listen" json:"listen" env:"IRCD_LISTEN" validate:"required,min=1,dive,listen_addr"`

	// PasswordHash is a bcrypt hash; when set, clients must send a
	// matching PASS before registering.
	PasswordHash string `yaml:"password_hash" toml:"password_hash" json:"password_hash" env:"IRCD_PASSWORD_HASH"`
}

// LimitsConfig bounds per-connection resources.
type LimitsConfig struct {
	MailboxCapacity     int           `yaml:"mailbox_capacity" toml:"mailbox_capacity" json:"mailbox_capacity" env:"IRCD_MAILBOX_CAPACITY" validate:"min=1"`
	MailboxOverflow     string        `yaml:"mailbox_overflow" toml:"mailbox_overflow" json:"mailbox_overflow" env:"IRCD_MAILBOX_OVERFLOW" validate:"oneof=disconnect drop block"`
	MailboxBlockTimeout time.Duration `yaml:"mailbox_block_timeout" toml:"mailbox_block_timeout" json:"mailbox_block_timeout" env:"IRCD_MAILBOX_BLOCK_TIMEOUT" validate:"gt=0"`
	RegistrationTimeout time.Duration `yaml:"registration_timeout" toml:"registration_timeout" json:"registration_timeout" env:"IRCD_REGISTRATION_TIMEOUT" validate:"gt=0"`
	WriteTimeout        time.Duration `yaml:"write_timeout" toml:"write_timeout" json:"write_timeout" env:"IRCD_WRITE_TIMEOUT" validate:"gt=0"`
	FloodRate           float64       `yaml:"flood_rate" toml:"flood_rate" json:"flood_rate" env:"IRCD_FLOOD_RATE" validate:"gte=0"`
	FloodBurst          int           `yaml:"flood_burst" toml:"flood_burst" json:"flood_burst" env:"IRCD_FLOOD_BURST" validate:"min=1"`
}

// AdminConfig controls the debug/status HTTP endpoint.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled" env:"IRCD_ADMIN_ENABLED"`
	Listen  string `yaml:"listen" toml:"listen" json:"listen" env:"IRCD_ADMIN_LISTEN" validate:"required_if=Enabled true,omitempty,listen_addr"`
}

// Default returns the configuration used when no source is given.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "localhost"
	}
	c.Server.Name = name
	c.Server.Network = "IRC Network"
	c.Server.Version = "1.0"
	c.Server.Listen = []string{"0.0.0.0:6667"}

	c.Limits.MailboxCapacity = 10
	c.Limits.MailboxOverflow = "disconnect"
	c.Limits.MailboxBlockTimeout = 5 * time.Second
	c.Limits.RegistrationTimeout = 60 * time.Second
	c.Limits.WriteTimeout = 30 * time.Second
	c.Limits.FloodBurst = 10

	c.Admin.Listen = "0.0.0.0:8080"
}

// Load loads configuration from a file or URL. An empty source yields the
// defaults with environment overrides applied.
func Load(source string) (*Config, error) {
	cfg := Default()
	if err := cfg.load(source); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Reload re-reads the original source. The current configuration is only
// replaced when the new one loads and validates.
func (c *Config) Reload() error {
	newCfg := Default()
	if err := newCfg.load(c.Source); err != nil {
		return err
	}
	*c = *newCfg
	return nil
}

func (c *Config) load(source string) error {
	if source != "" {
		if err := c.loadFromSource(source); err != nil {
			return err
		}
	}

	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return c.Validate()
}

// loadFromSource loads configuration from a file or URL
func (c *Config) loadFromSource(source string) error {
	var data []byte
	var err error

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return fmt.Errorf("failed to load config from URL: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("failed to load config from URL, status: %s", resp.Status)
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read config from URL: %w", err)
		}
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Determine the format based on file extension
	switch {
	case strings.HasSuffix(source, ".toml"):
		err = toml.Unmarshal(data, c)
	case strings.HasSuffix(source, ".json"):
		err = json.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	c.Source = source
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("listen_addr", func(fl validator.FieldLevel) bool {
		_, port, err := net.SplitHostPort(fl.Field().String())
		return err == nil && port != ""
	})
	return v
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ListenAddresses returns the addresses the IRC listener binds.
func (c *Config) ListenAddresses() []string {
	return c.Server.Listen
}
