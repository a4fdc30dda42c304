package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotEmpty(t, cfg.Server.Name)
	assert.Equal(t, "IRC Network", cfg.Server.Network)
	assert.Equal(t, "1.0", cfg.Server.Version)
	assert.Equal(t, []string{"0.0.0.0:6667"}, cfg.ListenAddresses())
	assert.Equal(t, 10, cfg.Limits.MailboxCapacity)
	assert.Equal(t, "disconnect", cfg.Limits.MailboxOverflow)
	assert.Equal(t, 5*time.Second, cfg.Limits.MailboxBlockTimeout)
	assert.Equal(t, 60*time.Second, cfg.Limits.RegistrationTimeout)
	assert.Equal(t, 30*time.Second, cfg.Limits.WriteTimeout)
	assert.False(t, cfg.Admin.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "ircd.yaml", `
server:
  name: irc.example.org
  network: ExampleNet
  listen:
    - 127.0.0.1:6667
    - "[::1]:6697"
limits:
  mailbox_capacity: 32
  mailbox_overflow: drop
  registration_timeout: 5s
templates:
  welcome: "Hi {{nickname}}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "irc.example.org", cfg.Server.Name)
	assert.Equal(t, "ExampleNet", cfg.Server.Network)
	assert.Equal(t, "1.0", cfg.Server.Version, "unset fields keep defaults")
	assert.Equal(t, []string{"127.0.0.1:6667", "[::1]:6697"}, cfg.Server.Listen)
	assert.Equal(t, 32, cfg.Limits.MailboxCapacity)
	assert.Equal(t, "drop", cfg.Limits.MailboxOverflow)
	assert.Equal(t, 5*time.Second, cfg.Limits.RegistrationTimeout)
	assert.Equal(t, "Hi {{nickname}}", cfg.Templates["welcome"])
	assert.Equal(t, path, cfg.Source)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "ircd.toml", `
debug = true

[server]
name = "toml.example.org"
listen = ["127.0.0.1:7000"]

[admin]
enabled = true
listen = "127.0.0.1:9000"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "toml.example.org", cfg.Server.Name)
	assert.Equal(t, []string{"127.0.0.1:7000"}, cfg.Server.Listen)
	assert.True(t, cfg.Admin.Enabled)
	assert.Equal(t, "127.0.0.1:9000", cfg.Admin.Listen)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "ircd.json", `{"server": {"network": "JSONNet"}, "limits": {"flood_rate": 2.5}}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "JSONNet", cfg.Server.Network)
	assert.Equal(t, 2.5, cfg.Limits.FloodRate)
}

func TestLoadFromURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("server:\n  network: RemoteNet\n"))
	}))
	defer ts.Close()

	cfg, err := Load(ts.URL + "/ircd.yaml")
	require.NoError(t, err)
	assert.Equal(t, "RemoteNet", cfg.Server.Network)

	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	_, err = Load(missing.URL)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("IRCD_NETWORK", "EnvNet")
	t.Setenv("IRCD_LISTEN", "127.0.0.1:1,127.0.0.1:2")
	t.Setenv("IRCD_MAILBOX_CAPACITY", "64")
	t.Setenv("IRCD_WRITE_TIMEOUT", "2s")
	t.Setenv("IRCD_DEBUG", "true")

	path := writeFile(t, "ircd.yaml", "server:\n  network: FileNet\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "EnvNet", cfg.Server.Network, "environment wins over the file")
	assert.Equal(t, []string{"127.0.0.1:1", "127.0.0.1:2"}, cfg.Server.Listen)
	assert.Equal(t, 64, cfg.Limits.MailboxCapacity)
	assert.Equal(t, 2*time.Second, cfg.Limits.WriteTimeout)
	assert.True(t, cfg.Debug)
}

func TestLoadEmptySource(t *testing.T) {
	t.Setenv("IRCD_SERVER_NAME", "env.example.org")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env.example.org", cfg.Server.Name)
	assert.Empty(t, cfg.Source)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "server: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen", func(c *Config) { c.Server.Listen = nil }},
		{"bad listen address", func(c *Config) { c.Server.Listen = []string{"localhost"} }},
		{"zero mailbox", func(c *Config) { c.Limits.MailboxCapacity = 0 }},
		{"unknown overflow policy", func(c *Config) { c.Limits.MailboxOverflow = "explode" }},
		{"negative flood rate", func(c *Config) { c.Limits.FloodRate = -1 }},
		{"no registration timeout", func(c *Config) { c.Limits.RegistrationTimeout = 0 }},
		{"admin without address", func(c *Config) {
			c.Admin.Enabled = true
			c.Admin.Listen = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestReload(t *testing.T) {
	path := writeFile(t, "ircd.yaml", "server:\n  network: Before\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  network: After\n"), 0o600))
	require.NoError(t, cfg.Reload())
	assert.Equal(t, "After", cfg.Server.Network)
	assert.Equal(t, path, cfg.Source)

	require.NoError(t, os.WriteFile(path, []byte("limits:\n  mailbox_overflow: explode\n"), 0o600))
	assert.Error(t, cfg.Reload())
	assert.Equal(t, "After", cfg.Server.Network, "a failed reload keeps the old config")
}
