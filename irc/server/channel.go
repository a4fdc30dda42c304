package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/presbrey/ircd/irc"
)

// Channel represents an IRC channel. It is only touched while the registry
// lock is held.
type Channel struct {
	name      string
	topic     string
	topicBy   string
	topicTime time.Time
	key       string
	bans      []string
	members   []*member // insertion order
	index     map[string]*member
	created   time.Time
}

// member is one user's membership of a channel.
type member struct {
	user     *User
	operator bool
}

// Member is a point-in-time view of a channel member.
type Member struct {
	Nickname string `json:"nickname"`
	Operator bool   `json:"operator"`
}

// String returns the NAMES form of the member, "@nick" for operators.
func (m Member) String() string {
	if m.Operator {
		return "@" + m.Nickname
	}
	return m.Nickname
}

func newChannel(name string) *Channel {
	return &Channel{
		name:    name,
		index:   make(map[string]*member),
		created: time.Now(),
	}
}

func (c *Channel) addMember(u *User, operator bool) {
	m := &member{user: u, operator: operator}
	c.members = append(c.members, m)
	c.index[u.id.key()] = m
}

func (c *Channel) removeMember(key string) bool {
	if _, ok := c.index[key]; !ok {
		return false
	}
	delete(c.index, key)
	for i, m := range c.members {
		if m.user.id.key() == key {
			c.members = append(c.members[:i], c.members[i+1:]...)
			break
		}
	}
	return true
}

func (c *Channel) member(key string) (*member, bool) {
	m, ok := c.index[key]
	return m, ok
}

// rekey moves a membership after its user changed nickname.
func (c *Channel) rekey(oldKey, newKey string) {
	if m, ok := c.index[oldKey]; ok {
		delete(c.index, oldKey)
		c.index[newKey] = m
	}
}

func (c *Channel) memberList() []Member {
	out := make([]Member, 0, len(c.members))
	for _, m := range c.members {
		out = append(out, Member{Nickname: m.user.id.Nickname, Operator: m.operator})
	}
	return out
}

func (c *Channel) isBanned(prefix string) bool {
	for _, mask := range c.bans {
		if MatchMask(mask, prefix) {
			return true
		}
	}
	return false
}

func (c *Channel) addBan(mask string) bool {
	for _, b := range c.bans {
		if Casefold(b) == Casefold(mask) {
			return false
		}
	}
	c.bans = append(c.bans, mask)
	return true
}

func (c *Channel) removeBan(mask string) bool {
	for i, b := range c.bans {
		if Casefold(b) == Casefold(mask) {
			c.bans = append(c.bans[:i], c.bans[i+1:]...)
			return true
		}
	}
	return false
}

// modeString renders the channel flags; the key is included only when
// showKey is set.
func (c *Channel) modeString(showKey bool) (string, []string) {
	var sb strings.Builder
	var params []string
	sb.WriteByte('+')
	if c.key != "" {
		sb.WriteByte('k')
		if showKey {
			params = append(params, c.key)
		}
	}
	return sb.String(), params
}

// ChannelInfo is a point-in-time copy of a channel.
type ChannelInfo struct {
	Name    string    `json:"name"`
	Topic   string    `json:"topic,omitempty"`
	Keyed   bool      `json:"keyed"`
	Bans    []string  `json:"bans,omitempty"`
	Members []Member  `json:"members"`
	Created time.Time `json:"created"`
}

func (c *Channel) info() ChannelInfo {
	return ChannelInfo{
		Name:    c.name,
		Topic:   c.topic,
		Keyed:   c.key != "",
		Bans:    append([]string(nil), c.bans...),
		Members: c.memberList(),
		Created: c.created,
	}
}

// ChannelModeFlags are the channel modes the server implements.
const ChannelModeFlags = "bko"

// ModeError reports the flag a mode string was rejected for.
type ModeError struct {
	Mode rune
	Err  error
}

func (e *ModeError) Error() string {
	return fmt.Sprintf("mode '%c': %v", e.Mode, e.Err)
}

func (e *ModeError) Unwrap() error {
	return e.Err
}

// ParseChannelModeString parses a channel mode string and assigns params to
// the flags that take one. A "+b" without a mask is a request for the ban
// list and is reported through listBans instead of a change.
func ParseChannelModeString(modes string, params []string) (changes []ModeChange, listBans bool, err error) {
	add := true
	next := func() (string, bool) {
		if len(params) == 0 {
			return "", false
		}
		p := params[0]
		params = params[1:]
		return p, true
	}

	for _, ch := range modes {
		switch ch {
		case '+':
			add = true
		case '-':
			add = false
		case 'k':
			key, ok := next()
			if add && !ok {
				return nil, false, &ModeError{Mode: ch, Err: irc.ErrNeedMoreParams}
			}
			changes = append(changes, ModeChange{Add: add, Mode: ch, Param: key})
		case 'b':
			mask, ok := next()
			if !ok {
				listBans = true
				continue
			}
			changes = append(changes, ModeChange{Add: add, Mode: ch, Param: mask})
		case 'o':
			nick, ok := next()
			if !ok {
				return nil, false, &ModeError{Mode: ch, Err: irc.ErrNeedMoreParams}
			}
			changes = append(changes, ModeChange{Add: add, Mode: ch, Param: nick})
		default:
			return nil, false, &ModeError{Mode: ch, Err: ErrUnknownModeFlag}
		}
	}
	return changes, listBans, nil
}
