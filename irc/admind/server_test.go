package admind

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/presbrey/ircd/irc"
	"github.com/presbrey/ircd/irc/config"
	"github.com/presbrey/ircd/irc/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdmin(t *testing.T) (*Server, *server.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Name = "irc.test"
	cfg.Server.Network = "TestNet"
	ircd, err := server.NewServer(cfg)
	require.NoError(t, err)
	return New(ircd), ircd
}

func addUser(t *testing.T, ircd *server.Server, nick string, channels ...string) (server.UserIdentifier, *server.Mailbox) {
	t.Helper()
	id := server.UserIdentifier{Nickname: nick, Username: nick, Realname: nick, Hostname: "10.0.0.1"}
	mailbox := server.NewMailbox(16, server.OverflowDrop)
	require.NoError(t, ircd.Registry().AddUser(id, mailbox))

	var reqs []server.JoinRequest
	for _, ch := range channels {
		reqs = append(reqs, server.JoinRequest{Channel: ch})
	}
	if len(reqs) > 0 {
		results, err := ircd.Registry().Join(id, reqs)
		require.NoError(t, err)
		for _, r := range results {
			require.NoError(t, r.Err)
		}
	}
	return id, mailbox
}

func drain(mailbox *server.Mailbox) []*irc.Message {
	var out []*irc.Message
	for {
		select {
		case ev := <-mailbox.Events():
			out = append(out, ev.Messages...)
		default:
			return out
		}
	}
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	s, ircd := newTestAdmin(t)
	addUser(t, ircd, "alice", "#go")

	rec := do(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "irc.test", status.Server)
	assert.Equal(t, "TestNet", status.Network)
	assert.Equal(t, "1.0", status.Version)
	assert.Equal(t, 1, status.Users)
	assert.Equal(t, 1, status.Channels)
	assert.Equal(t, 0, status.Connections)
	assert.False(t, status.Created.IsZero())
}

func TestChannels(t *testing.T) {
	s, ircd := newTestAdmin(t)
	addUser(t, ircd, "alice", "#go", "#rust")
	addUser(t, ircd, "bob", "#go")

	rec := do(t, s, http.MethodGet, "/api/channels", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var channels []server.ChannelInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &channels))
	require.Len(t, channels, 2)
	assert.Equal(t, "#go", channels[0].Name)
	assert.Equal(t, "#rust", channels[1].Name)

	for _, target := range []string{"/api/channels/go", "/api/channels/%23go", "/api/channels/%23GO"} {
		rec = do(t, s, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, target)

		var info server.ChannelInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		assert.Equal(t, "#go", info.Name, target)
		assert.Equal(t, []server.Member{{Nickname: "alice", Operator: true}, {Nickname: "bob"}}, info.Members, target)
	}

	rec = do(t, s, http.MethodGet, "/api/channels/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsers(t *testing.T) {
	s, ircd := newTestAdmin(t)
	addUser(t, ircd, "bob", "#go")
	addUser(t, ircd, "Alice")

	rec := do(t, s, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var users []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0]["nickname"])
	assert.Equal(t, "bob", users[1]["nickname"])
	assert.Equal(t, "10.0.0.1", users[1]["hostname"])
	assert.Equal(t, []any{"#go"}, users[1]["channels"])
	assert.Equal(t, "No modes set", users[1]["mode_description"])

	_, err := ircd.Registry().SetUserModes(server.UserIdentifier{Nickname: "bob"}, []server.ModeChange{{Add: true, Mode: 'i'}})
	require.NoError(t, err)

	for _, target := range []string{"/api/users/bob", "/api/users/BOB", "/api/users/%62ob"} {
		rec = do(t, s, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, target)

		var user server.UserInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, "bob", user.Nickname, target)
		assert.Equal(t, "+i", user.Modes, target)
		assert.Equal(t, "+i (invisible - hidden from NAMES queried by non-members)", user.ModeDescription, target)
	}

	rec = do(t, s, http.MethodGet, "/api/users/nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConnectionsEmpty(t *testing.T) {
	s, _ := newTestAdmin(t)

	rec := do(t, s, http.MethodGet, "/api/connections", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "null", rec.Body.String())
}

func TestNotice(t *testing.T) {
	s, ircd := newTestAdmin(t)
	_, alice := addUser(t, ircd, "alice", "#go")
	_, bob := addUser(t, ircd, "bob", "#go")
	drain(alice)
	drain(bob)

	rec := do(t, s, http.MethodPost, "/api/channels/go/notice", `{"text":"maintenance at noon"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp NoticeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, NoticeResponse{Channel: "#go", Delivered: 2}, resp)

	for _, mailbox := range []*server.Mailbox{alice, bob} {
		msgs := drain(mailbox)
		require.Len(t, msgs, 1)
		line, err := msgs[0].Serialize()
		require.NoError(t, err)
		assert.Equal(t, ":irc.test NOTICE #go :maintenance at noon", line)
	}
}

func TestNoticeRejected(t *testing.T) {
	s, ircd := newTestAdmin(t)
	addUser(t, ircd, "alice", "#go")

	tests := []struct {
		name   string
		target string
		body   string
		code   int
	}{
		{"missing text", "/api/channels/go/notice", `{}`, http.StatusBadRequest},
		{"line break", "/api/channels/go/notice", `{"text":"a\nPRIVMSG #go :b"}`, http.StatusBadRequest},
		{"too long", "/api/channels/go/notice", `{"text":"` + strings.Repeat("x", 401) + `"}`, http.StatusBadRequest},
		{"malformed", "/api/channels/go/notice", `{"text":`, http.StatusBadRequest},
		{"unknown channel", "/api/channels/nowhere/notice", `{"text":"hi"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}

func TestMetrics(t *testing.T) {
	s, ircd := newTestAdmin(t)
	addUser(t, ircd, "alice", "#go")

	do(t, s, http.MethodGet, "/api/status", "")

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "ircd_users 1")
	assert.Contains(t, body, "ircd_channels 1")
	assert.Contains(t, body, `ircd_admin_requests_total{code="200",method="GET",path="/api/status"} 1`)
}

func TestStartStop(t *testing.T) {
	s, _ := newTestAdmin(t)
	assert.Nil(t, s.Addr())

	require.NoError(t, s.Start("127.0.0.1:0"))
	assert.Error(t, s.Start("127.0.0.1:0"), "second start is refused")

	addr := s.Addr()
	require.NotNil(t, addr)

	resp, err := http.Get("http://" + addr.String() + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	_, err = http.Get("http://" + addr.String() + "/api/status")
	assert.Error(t, err)
}
