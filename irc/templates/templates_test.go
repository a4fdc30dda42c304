package templates

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDefaults(t *testing.T) {
	e, err := New(nil)
	require.NoError(t, err)

	out, err := e.Render(Welcome, map[string]string{"network_name": "TestNet", "nick": "alice"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to the TestNet IRC Network alice", out)

	out, err = e.Render(YourHost, map[string]string{"hostname": "irc.test", "version": "1.0"})
	require.NoError(t, err)
	assert.Equal(t, "Your host is irc.test, running version 1.0", out)

	out, err = e.Render(Created, map[string]string{"created": "today"})
	require.NoError(t, err)
	assert.Equal(t, "This server was created today", out)

	assert.Equal(t, []string{Created, Welcome, YourHost}, e.Names())
}

func TestOverrides(t *testing.T) {
	e, err := New(map[string]string{
		"WELCOME": "Hi {{ nick }}, this is {{network_name}}",
		"motd":    "No MOTD",
	})
	require.NoError(t, err)

	out, err := e.Render(Welcome, map[string]string{"network_name": "TestNet", "nick": "bob"})
	require.NoError(t, err)
	assert.Equal(t, "Hi bob, this is TestNet", out)

	out, err = e.Render("motd", nil)
	require.NoError(t, err)
	assert.Equal(t, "No MOTD", out)
}

func TestRenderErrors(t *testing.T) {
	e, err := New(nil)
	require.NoError(t, err)

	_, err = e.Render("nope", nil)
	assert.True(t, errors.Is(err, ErrUnknownTemplate))

	_, err = e.Render(Welcome, map[string]string{"nick": "alice"})
	assert.True(t, errors.Is(err, ErrMissingField))
}

func TestUnterminatedTag(t *testing.T) {
	_, err := New(map[string]string{Welcome: "Hello {{nick"})
	assert.Error(t, err)
}
