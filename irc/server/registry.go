package server

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/presbrey/ircd/irc"
)

// Registry is the single source of truth for registered users and
// channels. Every method is atomic with respect to both maps; deliveries to
// other connections' mailboxes happen after the lock is released.
type Registry struct {
	mu       sync.Mutex
	hostname string
	created  time.Time
	users    map[string]*User    // casefolded nickname -> user
	channels map[string]*Channel // casefolded name -> channel
	metrics  *Metrics
}

// NewRegistry creates an empty registry for the named server.
func NewRegistry(hostname string) *Registry {
	return &Registry{
		hostname: hostname,
		created:  time.Now(),
		users:    make(map[string]*User),
		channels: make(map[string]*Channel),
	}
}

// Hostname returns the server name used as the prefix of server messages.
func (r *Registry) Hostname() string {
	return r.hostname
}

// Created returns when the registry was created.
func (r *Registry) Created() time.Time {
	return r.created
}

type delivery struct {
	to  *Mailbox
	msg *irc.Message
}

// outbox collects deliveries made under the lock.
type outbox []delivery

func (o *outbox) add(u *User, msg *irc.Message) {
	if u.mailbox != nil {
		*o = append(*o, delivery{to: u.mailbox, msg: msg})
	}
}

func (o *outbox) flush() {
	for _, d := range *o {
		d.to.Deliver(Event{Messages: []*irc.Message{d.msg}})
	}
}

// peers returns every user sharing a channel with u, each once, in a
// stable order.
func (r *Registry) peers(u *User) []*User {
	seen := map[*User]bool{u: true}
	var out []*User
	for _, key := range u.channels {
		ch, ok := r.channels[key]
		if !ok {
			continue
		}
		for _, m := range ch.members {
			if !seen[m.user] {
				seen[m.user] = true
				out = append(out, m.user)
			}
		}
	}
	return out
}

func (r *Registry) updateGauges() {
	r.metrics.setRegistryCounts(len(r.users), len(r.channels))
}

// lookup returns the registry's record for a caller that believes it is
// registered. A miss means the caller's state and the registry disagree.
func (r *Registry) lookup(id UserIdentifier) (*User, error) {
	u, ok := r.users[id.key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not registered", ErrInternal, id.Nickname)
	}
	return u, nil
}

// AddUser claims id.Nickname for a new user reachable through mailbox.
func (r *Registry) AddUser(id UserIdentifier, mailbox *Mailbox) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := id.key()
	if _, exists := r.users[key]; exists {
		return fmt.Errorf("%w: %s", ErrNicknameInUse, id.Nickname)
	}
	r.users[key] = newUser(id, mailbox)
	r.updateGauges()
	return nil
}

// RemoveUser drops the user and every membership it held. Users sharing a
// channel receive a QUIT with reason.
func (r *Registry) RemoveUser(id UserIdentifier, reason string) error {
	var out outbox
	defer out.flush()

	r.mu.Lock()
	defer r.mu.Unlock()

	key := id.key()
	u, ok := r.users[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchNick, id.Nickname)
	}

	quit := &irc.Message{Prefix: u.id.Prefix(), Command: &irc.Quit{Message: reason}}
	for _, peer := range r.peers(u) {
		out.add(peer, quit)
	}

	for _, chKey := range u.channels {
		ch, ok := r.channels[chKey]
		if !ok {
			continue
		}
		ch.removeMember(key)
		if len(ch.members) == 0 {
			delete(r.channels, chKey)
		}
	}
	u.channels = nil
	delete(r.users, key)
	r.updateGauges()
	return nil
}

// ChangeNick renames a registered user and announces the change to every
// user sharing a channel. It returns the updated identifier.
func (r *Registry) ChangeNick(id UserIdentifier, nickname string) (UserIdentifier, error) {
	var out outbox
	defer out.flush()

	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.lookup(id)
	if err != nil {
		return id, err
	}
	oldKey, newKey := u.id.key(), Casefold(nickname)
	if other, exists := r.users[newKey]; exists && other != u {
		return u.id, fmt.Errorf("%w: %s", ErrNicknameInUse, nickname)
	}

	msg := &irc.Message{Prefix: u.id.Prefix(), Command: &irc.Nick{Nickname: nickname}}
	for _, peer := range r.peers(u) {
		out.add(peer, msg)
	}

	for _, chKey := range u.channels {
		if ch, ok := r.channels[chKey]; ok {
			ch.rekey(oldKey, newKey)
		}
	}
	delete(r.users, oldKey)
	u.id.Nickname = nickname
	r.users[newKey] = u
	return u.id, nil
}

// JoinRequest names a channel and the key supplied for it.
type JoinRequest struct {
	Channel string
	Key     string
}

// JoinResult is the outcome of one JoinRequest. On success Members is the
// member list as it stood right after the caller was added.
type JoinResult struct {
	Channel string
	Topic   string
	Members []Member
	Err     error
}

// Join adds the user to each requested channel, creating missing channels
// with the user as their operator.
func (r *Registry) Join(id UserIdentifier, reqs []JoinRequest) ([]JoinResult, error) {
	var out outbox
	defer out.flush()

	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	results := make([]JoinResult, 0, len(reqs))
	for _, req := range reqs {
		results = append(results, r.join(u, req, &out))
	}
	r.updateGauges()
	return results, nil
}

func (r *Registry) join(u *User, req JoinRequest, out *outbox) JoinResult {
	res := JoinResult{Channel: req.Channel}
	if !IsValidChannelName(req.Channel) {
		res.Err = fmt.Errorf("%w: %s", ErrInvalidChannelName, req.Channel)
		return res
	}

	chKey := Casefold(req.Channel)
	ch, exists := r.channels[chKey]
	if !exists {
		ch = newChannel(req.Channel)
		r.channels[chKey] = ch
		ch.addMember(u, true)
		u.addChannel(chKey)
		res.Members = ch.memberList()
		return res
	}

	res.Channel = ch.name
	if ch.key != "" && req.Key != ch.key {
		res.Err = ErrBadChannelKey
		return res
	}
	if ch.isBanned(u.id.Prefix()) {
		res.Err = ErrBannedFromChannel
		return res
	}
	if _, ok := ch.member(u.id.key()); ok {
		res.Err = ErrAlreadyOnChannel
		return res
	}

	msg := &irc.Message{Prefix: u.id.Prefix(), Command: &irc.Join{Channels: []string{ch.name}}}
	for _, m := range ch.members {
		out.add(m.user, msg)
	}

	ch.addMember(u, false)
	u.addChannel(chKey)
	res.Topic = ch.topic
	res.Members = ch.memberList()
	return res
}

// PartResult is the outcome of leaving one channel.
type PartResult struct {
	Channel string
	Err     error
}

// Part removes the user from each channel, deleting channels that become
// empty. Remaining members receive the PART.
func (r *Registry) Part(id UserIdentifier, channels []string, message string) ([]PartResult, error) {
	var out outbox
	defer out.flush()

	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	results := make([]PartResult, 0, len(channels))
	for _, name := range channels {
		results = append(results, r.part(u, name, message, &out))
	}
	r.updateGauges()
	return results, nil
}

// PartAll leaves every channel the user is on, in join order.
func (r *Registry) PartAll(id UserIdentifier, message string) ([]PartResult, error) {
	var out outbox
	defer out.flush()

	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, key := range u.channels {
		if ch, ok := r.channels[key]; ok {
			names = append(names, ch.name)
		}
	}

	results := make([]PartResult, 0, len(names))
	for _, name := range names {
		results = append(results, r.part(u, name, message, &out))
	}
	r.updateGauges()
	return results, nil
}

func (r *Registry) part(u *User, name, message string, out *outbox) PartResult {
	res := PartResult{Channel: name}
	chKey := Casefold(name)
	ch, ok := r.channels[chKey]
	if !ok {
		res.Err = ErrNoSuchChannel
		return res
	}
	res.Channel = ch.name

	userKey := u.id.key()
	if _, ok := ch.member(userKey); !ok {
		res.Err = ErrNotOnChannel
		return res
	}

	msg := &irc.Message{
		Prefix:  u.id.Prefix(),
		Command: &irc.Part{Channels: []string{ch.name}, Message: message},
	}
	for _, m := range ch.members {
		if m.user != u {
			out.add(m.user, msg)
		}
	}

	ch.removeMember(userKey)
	if !u.removeChannel(chKey) {
		res.Err = fmt.Errorf("%w: %s missing from %s membership", ErrInternal, ch.name, u.id.Nickname)
	}
	if len(ch.members) == 0 {
		delete(r.channels, chKey)
	}
	return res
}

// Send routes text to a nickname or to every member of a channel except
// the sender. notice selects NOTICE instead of PRIVMSG.
func (r *Registry) Send(from UserIdentifier, target, text string, notice bool) error {
	var out outbox
	defer out.flush()

	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.lookup(from)
	if err != nil {
		return err
	}

	build := func(to string) *irc.Message {
		var cmd irc.Command = &irc.Privmsg{Targets: []string{to}, Text: text}
		if notice {
			cmd = &irc.Notice{Targets: []string{to}, Text: text}
		}
		return &irc.Message{Prefix: u.id.Prefix(), Command: cmd}
	}

	if IsChannelName(target) {
		ch, ok := r.channels[Casefold(target)]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoSuchNick, target)
		}
		msg := build(ch.name)
		for _, m := range ch.members {
			if m.user != u {
				out.add(m.user, msg)
			}
		}
		return nil
	}

	dest, ok := r.users[Casefold(target)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchNick, target)
	}
	out.add(dest, build(dest.id.Nickname))
	return nil
}

// Announce sends a server NOTICE to every member of a channel and returns
// how many members it was queued for.
func (r *Registry) Announce(channel, text string) (int, error) {
	var out outbox
	defer out.flush()

	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[Casefold(channel)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchChannel, channel)
	}
	msg := &irc.Message{
		Prefix:  r.hostname,
		Command: &irc.Notice{Targets: []string{ch.name}, Text: text},
	}
	for _, m := range ch.members {
		out.add(m.user, msg)
	}
	return len(ch.members), nil
}

// SetUserModes applies user mode changes and returns the applied ones.
func (r *Registry) SetUserModes(id UserIdentifier, changes []ModeChange) ([]ModeChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return u.modes.Apply(changes), nil
}

// UserModes returns the current modes of a user.
func (r *Registry) UserModes(id UserIdentifier) (UserModes, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.lookup(id)
	if err != nil {
		return UserModes{}, err
	}
	return u.modes, nil
}

// Topic returns the channel's canonical name and topic.
func (r *Registry) Topic(channel string) (name, topic string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[Casefold(channel)]
	if !ok {
		return channel, "", fmt.Errorf("%w: %s", ErrNoSuchChannel, channel)
	}
	return ch.name, ch.topic, nil
}

// SetTopic changes the topic. Only channel operators may do so; the other
// members receive the TOPIC.
func (r *Registry) SetTopic(id UserIdentifier, channel, text string) (string, error) {
	var out outbox
	defer out.flush()

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ch, err := r.operatorOf(id, channel)
	if err != nil {
		return channel, err
	}

	ch.topic = text
	ch.topicBy = u.id.Prefix()
	ch.topicTime = time.Now()

	msg := &irc.Message{
		Prefix:  u.id.Prefix(),
		Command: &irc.Topic{Channel: ch.name, Text: text, Set: true},
	}
	for _, m := range ch.members {
		if m.user != u {
			out.add(m.user, msg)
		}
	}
	return ch.name, nil
}

// operatorOf resolves the caller and a channel it must operate.
func (r *Registry) operatorOf(id UserIdentifier, channel string) (*User, *Channel, error) {
	u, err := r.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	ch, ok := r.channels[Casefold(channel)]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoSuchChannel, channel)
	}
	m, ok := ch.member(u.id.key())
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotOnChannel, ch.name)
	}
	if !m.operator {
		return nil, nil, fmt.Errorf("%w: %s", ErrChanOpPrivsNeeded, ch.name)
	}
	return u, ch, nil
}

// Names returns the channel's canonical name and the members visible to
// id in join order. Invisible (+i) users are only listed to fellow members.
func (r *Registry) Names(id UserIdentifier, channel string) (string, []Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[Casefold(channel)]
	if !ok {
		return channel, nil, fmt.Errorf("%w: %s", ErrNoSuchChannel, channel)
	}
	if _, member := ch.member(id.key()); member {
		return ch.name, ch.memberList(), nil
	}

	out := make([]Member, 0, len(ch.members))
	for _, m := range ch.members {
		if !m.user.modes.HasMode('i') {
			out = append(out, Member{Nickname: m.user.id.Nickname, Operator: m.operator})
		}
	}
	return ch.name, out, nil
}

// ChannelModes returns the channel's mode string; the key is only shown to
// members.
func (r *Registry) ChannelModes(id UserIdentifier, channel string) (string, string, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[Casefold(channel)]
	if !ok {
		return channel, "", nil, fmt.Errorf("%w: %s", ErrNoSuchChannel, channel)
	}
	_, member := ch.member(id.key())
	modes, params := ch.modeString(member)
	return ch.name, modes, params, nil
}

// Bans returns the ban masks of a channel.
func (r *Registry) Bans(channel string) (string, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[Casefold(channel)]
	if !ok {
		return channel, nil, fmt.Errorf("%w: %s", ErrNoSuchChannel, channel)
	}
	return ch.name, append([]string(nil), ch.bans...), nil
}

// ChangeChannelModes applies k, b and o changes made by a channel operator
// and returns the ones that took effect. The other members receive the
// resulting MODE.
func (r *Registry) ChangeChannelModes(id UserIdentifier, channel string, changes []ModeChange) (string, []ModeChange, error) {
	var out outbox
	defer out.flush()

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ch, err := r.operatorOf(id, channel)
	if err != nil {
		return channel, nil, err
	}

	var applied []ModeChange
	for _, c := range changes {
		switch c.Mode {
		case 'k':
			if c.Add {
				if !IsValidChannelKey(c.Param) {
					continue
				}
				ch.key = c.Param
			} else {
				if ch.key == "" {
					continue
				}
				c.Param = "*"
				ch.key = ""
			}
		case 'b':
			if c.Param == "" {
				continue
			}
			c.Param = NormalizeMask(c.Param)
			if c.Add && !ch.addBan(c.Param) {
				continue
			}
			if !c.Add && !ch.removeBan(c.Param) {
				continue
			}
		case 'o':
			m, ok := ch.member(Casefold(c.Param))
			if !ok || m.operator == c.Add {
				continue
			}
			m.operator = c.Add
			c.Param = m.user.id.Nickname
		default:
			continue
		}
		applied = append(applied, c)
	}

	if len(applied) > 0 {
		modes, params := FormatModeChanges(applied)
		msg := &irc.Message{
			Prefix:  u.id.Prefix(),
			Command: &irc.Mode{Target: ch.name, Modes: modes, Params: params},
		}
		for _, m := range ch.members {
			if m.user != u {
				out.add(m.user, msg)
			}
		}
	}
	return ch.name, applied, nil
}

// Lookup returns a copy of the user registered under nickname.
func (r *Registry) Lookup(nickname string) (UserInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[Casefold(nickname)]
	if !ok {
		return UserInfo{}, false
	}
	return r.userInfo(u), true
}

func (r *Registry) userInfo(u *User) UserInfo {
	info := UserInfo{
		UserIdentifier:  u.id,
		Modes:           u.modes.String(),
		ModeDescription: u.modes.Description(),
	}
	for _, key := range u.channels {
		if ch, ok := r.channels[key]; ok {
			info.Channels = append(info.Channels, ch.name)
		}
	}
	return info
}

// Users returns every registered user sorted by nickname.
func (r *Registry) Users() []UserInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]UserInfo, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, r.userInfo(u))
	}
	sort.Slice(out, func(i, j int) bool {
		return Casefold(out[i].Nickname) < Casefold(out[j].Nickname)
	})
	return out
}

// Channels returns every channel sorted by name.
func (r *Registry) Channels() []ChannelInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ChannelInfo, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch.info())
	}
	sort.Slice(out, func(i, j int) bool {
		return Casefold(out[i].Name) < Casefold(out[j].Name)
	})
	return out
}

// Channel returns a copy of one channel.
func (r *Registry) Channel(name string) (ChannelInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[Casefold(name)]
	if !ok {
		return ChannelInfo{}, false
	}
	return ch.info(), true
}

// UserCount returns the number of registered users.
func (r *Registry) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// ChannelCount returns the number of channels.
func (r *Registry) ChannelCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}
