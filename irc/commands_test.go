package irc_test

import (
	"testing"

	"github.com/presbrey/ircd/irc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, line string) *irc.Message {
	t.Helper()
	msg, err := irc.Parse(line + "\r\n")
	require.NoError(t, err, line)
	return msg
}

func TestParseCaseInsensitiveCommands(t *testing.T) {
	for _, line := range []string{"nick alice", "Nick alice", "NICK alice"} {
		nick, ok := parse(t, line).Command.(*irc.Nick)
		require.True(t, ok, line)
		assert.Equal(t, "alice", nick.Nickname)
	}
}

func TestParseUnknownCommand(t *testing.T) {
	for _, line := range []string{"hello world", "CAP LS 302", "999 x :y"} {
		_, err := irc.Parse(line + "\r\n")
		assert.ErrorIs(t, err, irc.ErrUnknownCommand, line)
	}
}

func TestParseUser(t *testing.T) {
	user := parse(t, "USER al 0 * :Alice Liddell").Command.(*irc.User)
	assert.Equal(t, &irc.User{Username: "al", Mode: "0", Unused: "*", Realname: "Alice Liddell"}, user)

	_, err := irc.Parse("USER al 0 *\r\n")
	assert.ErrorIs(t, err, irc.ErrNeedMoreParams)

	_, err = irc.Parse("USER al 0 * Alice Liddell\r\n")
	assert.ErrorIs(t, err, irc.ErrTooManyParams)
}

func TestParseNeedMoreParams(t *testing.T) {
	for _, line := range []string{
		"NICK",
		"PASS",
		"JOIN",
		"PART",
		"MODE",
		"PRIVMSG bob",
		"PRIVMSG bob :",
		"NOTICE",
		"PING",
		"KICK #go",
		"OPER alice",
		"SERVER irc.example.com 1",
	} {
		_, err := irc.Parse(line + "\r\n")
		assert.ErrorIs(t, err, irc.ErrNeedMoreParams, line)
	}
}

func TestParseBadInteger(t *testing.T) {
	for _, line := range []string{
		"SERVER irc.example.com one :info",
		":lazau CONNECT server server2 :server 3 5 6",
		"WHOWAS bob many",
	} {
		_, err := irc.Parse(line + "\r\n")
		assert.ErrorIs(t, err, irc.ErrBadInteger, line)
	}

	srv := parse(t, "SERVER irc.example.com 2 :An IRC server").Command.(*irc.Server)
	assert.Equal(t, uint64(2), srv.Hopcount)
	assert.Equal(t, "An IRC server", srv.Info)

	conn := parse(t, "CONNECT irc.example.com 6667").Command.(*irc.Connect)
	assert.Equal(t, uint32(6667), conn.Port)
}

func TestParseJoinVariants(t *testing.T) {
	all := parse(t, "JOIN 0").Command.(*irc.Join)
	assert.True(t, all.All)
	assert.Empty(t, all.Channels)

	plain := parse(t, "JOIN #a,#b").Command.(*irc.Join)
	assert.False(t, plain.All)
	assert.Equal(t, []string{"#a", "#b"}, plain.Channels)
	assert.Empty(t, plain.Keys)

	keyed := parse(t, "JOIN #a,#b,#c ka,kb").Command.(*irc.Join)
	assert.Equal(t, []string{"#a", "#b", "#c"}, keyed.Channels)
	key, ok := keyed.Key(1)
	assert.True(t, ok)
	assert.Equal(t, "kb", key)
	_, ok = keyed.Key(2)
	assert.False(t, ok, "channels beyond the key list have no key")

	_, err := irc.Parse("JOIN #a k1,k2\r\n")
	assert.ErrorIs(t, err, irc.ErrTooManyParams)
}

func TestParsePartAndPrivmsgLists(t *testing.T) {
	part := parse(t, "PART #a,#b :later").Command.(*irc.Part)
	assert.Equal(t, []string{"#a", "#b"}, part.Channels)
	assert.Equal(t, "later", part.Message)

	pm := parse(t, "PRIVMSG bob,#go :hi all").Command.(*irc.Privmsg)
	assert.Equal(t, []string{"bob", "#go"}, pm.Targets)
	assert.Equal(t, "hi all", pm.Text)
}

func TestParseMode(t *testing.T) {
	mode := parse(t, "MODE #go +kb secret *!*@bad").Command.(*irc.Mode)
	assert.Equal(t, "#go", mode.Target)
	assert.Equal(t, "+kb", mode.Modes)
	assert.Equal(t, []string{"secret", "*!*@bad"}, mode.Params)

	query := parse(t, "MODE alice").Command.(*irc.Mode)
	assert.Empty(t, query.Modes)
}

func TestParseTopic(t *testing.T) {
	query := parse(t, "TOPIC #go").Command.(*irc.Topic)
	assert.False(t, query.Set)

	set := parse(t, "TOPIC #go :Go talk").Command.(*irc.Topic)
	assert.True(t, set.Set)
	assert.Equal(t, "Go talk", set.Text)
}

func TestParsePingPong(t *testing.T) {
	ping := parse(t, "PING :LAG123").Command.(*irc.Ping)
	assert.Equal(t, "LAG123", ping.Origin)
	assert.Empty(t, ping.Target)

	pong := parse(t, "PONG srv :LAG123").Command.(*irc.Pong)
	assert.Equal(t, "srv", pong.Origin)
	assert.Equal(t, "LAG123", pong.Target)
}

func TestParseNumericByCodeAndName(t *testing.T) {
	byCode := parse(t, ":srv 433 * alice :Nickname is already in use").Command.(*irc.Reply)
	byName := parse(t, ":srv ERR_NICKNAMEINUSE * alice :Nickname is already in use").Command.(*irc.Reply)
	assert.Equal(t, byCode, byName)
	assert.Equal(t, irc.ERR_NICKNAMEINUSE, byCode.Code)
	assert.Equal(t, []string{"*", "alice"}, byCode.Params)

	out, err := (&irc.Message{Prefix: "srv", Command: byName}).Serialize()
	require.NoError(t, err)
	assert.Equal(t, ":srv 433 * alice :Nickname is already in use", out, "replies serialize as numerics")

	lower := parse(t, "rpl_welcome alice :hi").Command.(*irc.Reply)
	assert.Equal(t, irc.RPL_WELCOME, lower.Code)
}

func TestReplyCodeString(t *testing.T) {
	assert.Equal(t, "ERR_NICKNAMEINUSE", irc.ERR_NICKNAMEINUSE.String())
	assert.Equal(t, "RPL_ENDOFNAMES", irc.RPL_ENDOFNAMES.String())
	assert.Equal(t, "999", irc.ReplyCode(999).String())

	code, ok := irc.LookupReply("001")
	assert.True(t, ok)
	assert.Equal(t, irc.RPL_WELCOME, code)

	_, ok = irc.LookupReply("998")
	assert.False(t, ok)
}

func TestParseEveryRequestWord(t *testing.T) {
	for line, want := range map[string]irc.Command{
		"SQUIT tolsun.oulu.fi :Bad Link": &irc.Squit{Server: "tolsun.oulu.fi", Comment: "Bad Link"},
		"QUIT":                           &irc.Quit{},
		"NAMES #a,#b":                    &irc.Names{Channels: []string{"#a", "#b"}},
		"LIST":                           &irc.List{},
		"INVITE bob #go":                 &irc.Invite{Nickname: "bob", Channel: "#go"},
		"KICK #go bob :flood":            &irc.Kick{Channels: []string{"#go"}, Users: []string{"bob"}, Comment: "flood"},
		"VERSION":                        &irc.Version{},
		"STATS m srv":                    &irc.Stats{Query: "m", Target: "srv"},
		"LINKS *.edu":                    &irc.Links{Mask: "*.edu"},
		"TIME srv":                       &irc.Time{Target: "srv"},
		"TRACE":                          &irc.Trace{},
		"ADMIN":                          &irc.Admin{},
		"INFO":                           &irc.Info{},
		"WHO #go o":                      &irc.Who{Mask: "#go", Operators: true},
		"WHOIS srv bob,carol":            &irc.Whois{Target: "srv", Masks: []string{"bob", "carol"}},
		"WHOWAS bob 3":                   &irc.Whowas{Nicknames: []string{"bob"}, Count: 3},
		"KILL bob :spam":                 &irc.Kill{Nickname: "bob", Comment: "spam"},
		"ERROR :bye":                     &irc.ErrorMessage{Message: "bye"},
		"AWAY :lunch":                    &irc.Away{Message: "lunch"},
		"REHASH":                         &irc.Rehash{},
		"RESTART":                        &irc.Restart{},
		"SUMMON bob":                     &irc.Summon{User: "bob"},
		"USERS":                          &irc.Users{},
		"WALLOPS :hey":                   &irc.Wallops{Text: "hey"},
		"USERHOST a b":                   &irc.Userhost{Nicknames: []string{"a", "b"}},
		"ISON a b c":                     &irc.Ison{Nicknames: []string{"a", "b", "c"}},
		"OPER alice secret":              &irc.Oper{Name: "alice", Password: "secret"},
		"PASS secret":                    &irc.Pass{Password: "secret"},
	} {
		assert.Equal(t, want, parse(t, line).Command, line)
	}
}
