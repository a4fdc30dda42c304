package server

import (
	"errors"
	"testing"

	"github.com/presbrey/ircd/irc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCasefold(t *testing.T) {
	assert.Equal(t, "alice", Casefold("ALICE"))
	assert.Equal(t, "{foo}|^", Casefold("[Foo]\\~"))
	assert.Equal(t, Casefold("#Chan[1]"), Casefold("#chan{1}"))
}

func TestIsValidNickname(t *testing.T) {
	for _, nick := range []string{"alice", "A", "bob_", "[away]", "x-1", "w`x", "^caret"} {
		assert.True(t, IsValidNickname(nick), nick)
	}
	for _, nick := range []string{"", "1abc", "-dash", "has space", "a!b", "toolongtoolongtoolongtoolongtoo"} {
		assert.False(t, IsValidNickname(nick), nick)
	}
}

func TestChannelNames(t *testing.T) {
	assert.True(t, IsChannelName("#go"))
	assert.True(t, IsChannelName("&local"))
	assert.False(t, IsChannelName("alice"))
	assert.False(t, IsChannelName(""))

	assert.True(t, IsValidChannelName("#go"))
	assert.False(t, IsValidChannelName("#"))
	assert.False(t, IsValidChannelName("#a,b"))
	assert.False(t, IsValidChannelName("#a b"))
	assert.False(t, IsValidChannelName("#bell\x07"))
	assert.False(t, IsValidChannelName("go"))
}

func TestIsValidChannelKey(t *testing.T) {
	for _, key := range []string{"sesame", "hunter2", "p@ss:word"} {
		assert.True(t, IsValidChannelKey(key), key)
	}
	for _, key := range []string{"", "two words", "a,b", ":colon", "nul\x00", "waytoolongforachannelkey"} {
		assert.False(t, IsValidChannelKey(key), key)
	}
}

func TestNormalizeMask(t *testing.T) {
	for mask, want := range map[string]string{
		"bob":        "bob!*@*",
		"*@evil.org": "*!*@evil.org",
		"bob!b":      "bob!b@*",
		"!b@h":       "*!b@h",
		"bob!*@*":    "bob!*@*",
		"a!b@c.d":    "a!b@c.d",
	} {
		assert.Equal(t, want, NormalizeMask(mask), mask)
	}
}

func TestMatchMask(t *testing.T) {
	tests := []struct {
		mask, s string
		want    bool
	}{
		{"*!*@*", "alice!al@host", true},
		{"alice!*@*", "ALICE!al@host", true},
		{"*!*@*.example.org", "bob!b@irc.example.org", true},
		{"*!*@*.example.org", "bob!b@example.com", false},
		{"b?b!*@*", "bob!b@host", true},
		{"b?b!*@*", "bb!b@host", false},
		{"[x]!*@*", "{X}!u@h", true},
		{"*", "", true},
		{"", "a", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchMask(tt.mask, tt.s), "%s vs %s", tt.mask, tt.s)
	}
}

func TestParseUserModeString(t *testing.T) {
	changes, err := ParseUserModeString("+i-w")
	require.NoError(t, err)
	assert.Equal(t, []ModeChange{{Add: true, Mode: 'i'}, {Add: false, Mode: 'w'}}, changes)

	for _, bad := range []string{"", "i", "+", "+x", "+ix", "-+"} {
		_, err := ParseUserModeString(bad)
		assert.True(t, errors.Is(err, ErrUnknownModeFlag), bad)
	}
}

func TestUserModesApply(t *testing.T) {
	var modes UserModes
	applied := modes.Apply([]ModeChange{
		{Add: true, Mode: 'i'},
		{Add: true, Mode: 'o'},
		{Add: true, Mode: 'w'},
	})

	assert.Equal(t, []ModeChange{{Add: true, Mode: 'i'}, {Add: true, Mode: 'w'}}, applied)
	assert.Equal(t, "+iw", modes.String())
	assert.True(t, modes.HasMode('i'))
	assert.False(t, modes.HasMode('o'), "clients cannot grant themselves operator")

	modes.Operator = true
	modes.Apply([]ModeChange{{Add: false, Mode: 'o'}, {Add: false, Mode: 'i'}})
	assert.Equal(t, "+w", modes.String())
	assert.Contains(t, modes.Description(), "+w (receives wallops)")

	assert.Equal(t, "+", UserModes{}.String())
	assert.Equal(t, "No modes set", UserModes{}.Description())
	assert.Equal(t, "iosw", UserModeFlags())
}

func TestFormatModeChanges(t *testing.T) {
	modes, params := FormatModeChanges([]ModeChange{
		{Add: true, Mode: 'o', Param: "bob"},
		{Add: true, Mode: 'k', Param: "secret"},
		{Add: false, Mode: 'b', Param: "*!*@bad"},
	})
	assert.Equal(t, "+ok-b", modes)
	assert.Equal(t, []string{"bob", "secret", "*!*@bad"}, params)
}

func TestParseChannelModeString(t *testing.T) {
	changes, listBans, err := ParseChannelModeString("+kb-o", []string{"key", "*!*@h", "bob"})
	require.NoError(t, err)
	assert.False(t, listBans)
	assert.Equal(t, []ModeChange{
		{Add: true, Mode: 'k', Param: "key"},
		{Add: true, Mode: 'b', Param: "*!*@h"},
		{Add: false, Mode: 'o', Param: "bob"},
	}, changes)

	changes, listBans, err = ParseChannelModeString("+b", nil)
	require.NoError(t, err)
	assert.True(t, listBans)
	assert.Empty(t, changes)

	changes, _, err = ParseChannelModeString("-k", nil)
	require.NoError(t, err)
	assert.Equal(t, []ModeChange{{Add: false, Mode: 'k'}}, changes)

	_, _, err = ParseChannelModeString("+o", nil)
	assert.True(t, errors.Is(err, irc.ErrNeedMoreParams))

	_, _, err = ParseChannelModeString("+kz", []string{"key"})
	var modeErr *ModeError
	require.True(t, errors.As(err, &modeErr))
	assert.Equal(t, 'z', modeErr.Mode)
	assert.True(t, errors.Is(err, ErrUnknownModeFlag))
}
