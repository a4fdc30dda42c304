package irc

import (
	"fmt"
	"strconv"
	"strings"
)

type parseFunc func(verb string, p []string) (Command, error)

// requests maps each command word to its parameter parser.
var requests = map[string]parseFunc{
	"NICK":     parseNick,
	"PASS":     parsePass,
	"USER":     parseUser,
	"SERVER":   parseServer,
	"OPER":     parseOper,
	"QUIT":     parseQuit,
	"SQUIT":    parseSquit,
	"JOIN":     parseJoin,
	"PART":     parsePart,
	"MODE":     parseMode,
	"TOPIC":    parseTopic,
	"NAMES":    parseNames,
	"LIST":     parseList,
	"INVITE":   parseInvite,
	"KICK":     parseKick,
	"VERSION":  targetOnly(func(t string) Command { return &Version{Target: t} }),
	"STATS":    parseStats,
	"LINKS":    parseLinks,
	"TIME":     targetOnly(func(t string) Command { return &Time{Target: t} }),
	"CONNECT":  parseConnect,
	"TRACE":    targetOnly(func(t string) Command { return &Trace{Target: t} }),
	"ADMIN":    targetOnly(func(t string) Command { return &Admin{Target: t} }),
	"INFO":     targetOnly(func(t string) Command { return &Info{Target: t} }),
	"PRIVMSG":  parsePrivmsg,
	"NOTICE":   parseNotice,
	"WHO":      parseWho,
	"WHOIS":    parseWhois,
	"WHOWAS":   parseWhowas,
	"KILL":     parseKill,
	"PING":     parsePing,
	"PONG":     parsePong,
	"ERROR":    parseError,
	"AWAY":     parseAway,
	"REHASH":   noParams(func() Command { return &Rehash{} }),
	"RESTART":  noParams(func() Command { return &Restart{} }),
	"SUMMON":   parseSummon,
	"USERS":    targetOnly(func(t string) Command { return &Users{Target: t} }),
	"WALLOPS":  parseWallops,
	"USERHOST": parseUserhost,
	"ISON":     parseIson,
}

// resolve maps a raw message onto the typed catalog.
func resolve(raw *RawMessage) (Command, error) {
	if code, ok := LookupReply(raw.Command); ok {
		return parseReply(code, raw)
	}
	verb := strings.ToUpper(raw.Command)
	parse, ok := requests[verb]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, raw.Command)
	}
	return parse(verb, raw.Params)
}

func need(verb string, p []string, n int) error {
	if len(p) < n {
		return fmt.Errorf("%w: %s needs %d, got %d", ErrNeedMoreParams, verb, n, len(p))
	}
	return nil
}

func at(p []string, i int) string {
	if i < len(p) {
		return p[i]
	}
	return ""
}

func list(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func parseInt(verb, field, s string, bits int) (int64, error) {
	n, err := strconv.ParseInt(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s %q", ErrBadInteger, verb, field, s)
	}
	return n, nil
}

func parseUint(verb, field, s string, bits int) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s %q", ErrBadInteger, verb, field, s)
	}
	return n, nil
}

func targetOnly(build func(target string) Command) parseFunc {
	return func(_ string, p []string) (Command, error) {
		return build(at(p, 0)), nil
	}
}

func noParams(build func() Command) parseFunc {
	return func(_ string, _ []string) (Command, error) {
		return build(), nil
	}
}

// receiveOnly marks commands the server accepts but never emits.
type receiveOnly struct{}

func (receiveOnly) Args() (Args, error) {
	return Args{}, ErrNotSerializable
}

// Nick sets or changes a nickname. A server-supplied hopcount is ignored.
type Nick struct {
	Nickname string
}

func parseNick(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	return &Nick{Nickname: p[0]}, nil
}

func (*Nick) Verb() string { return "NICK" }

func (c *Nick) Args() (Args, error) {
	return middle(c.Nickname), nil
}

// Pass supplies the connection password.
type Pass struct {
	Password string
}

func parsePass(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	return &Pass{Password: p[0]}, nil
}

func (*Pass) Verb() string { return "PASS" }

func (c *Pass) Args() (Args, error) {
	return middle(c.Password), nil
}

// User carries the username and realname of a registering client.
type User struct {
	Username string
	Mode     string
	Unused   string
	Realname string
}

func parseUser(verb string, p []string) (Command, error) {
	if err := need(verb, p, 4); err != nil {
		return nil, err
	}
	if len(p) > 4 {
		return nil, fmt.Errorf("%w: %s takes 4, got %d", ErrTooManyParams, verb, len(p))
	}
	return &User{Username: p[0], Mode: p[1], Unused: p[2], Realname: p[3]}, nil
}

func (*User) Verb() string { return "USER" }

func (c *User) Args() (Args, error) {
	return withText(c.Realname, c.Username, c.Mode, c.Unused), nil
}

// Server introduces a server link. Linking is not implemented; the command
// is parsed so that it can be refused cleanly.
type Server struct {
	receiveOnly
	Name     string
	Hopcount uint64
	Token    uint64
	Info     string
}

func parseServer(verb string, p []string) (Command, error) {
	if err := need(verb, p, 3); err != nil {
		return nil, err
	}
	hop, err := parseUint(verb, "hopcount", p[1], 64)
	if err != nil {
		return nil, err
	}
	s := &Server{Name: p[0], Hopcount: hop, Info: p[len(p)-1]}
	if len(p) > 3 {
		if s.Token, err = parseUint(verb, "token", p[2], 64); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (*Server) Verb() string { return "SERVER" }

type Oper struct {
	receiveOnly
	Name     string
	Password string
}

func parseOper(verb string, p []string) (Command, error) {
	if err := need(verb, p, 2); err != nil {
		return nil, err
	}
	return &Oper{Name: p[0], Password: p[1]}, nil
}

func (*Oper) Verb() string { return "OPER" }

type Quit struct {
	Message string
}

func parseQuit(_ string, p []string) (Command, error) {
	return &Quit{Message: at(p, 0)}, nil
}

func (*Quit) Verb() string { return "QUIT" }

func (c *Quit) Args() (Args, error) {
	if c.Message == "" {
		return Args{}, nil
	}
	return withText(c.Message), nil
}

type Squit struct {
	receiveOnly
	Server  string
	Comment string
}

func parseSquit(verb string, p []string) (Command, error) {
	if err := need(verb, p, 2); err != nil {
		return nil, err
	}
	return &Squit{Server: p[0], Comment: p[1]}, nil
}

func (*Squit) Verb() string { return "SQUIT" }

// Join is either a join request for one or more channels, with optional
// keys matched by position, or the "JOIN 0" request to leave every channel.
type Join struct {
	All      bool
	Channels []string
	Keys     []string
}

func parseJoin(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	if p[0] == "0" {
		return &Join{All: true}, nil
	}
	j := &Join{Channels: list(p[0]), Keys: list(at(p, 1))}
	if len(j.Channels) == 0 {
		return nil, fmt.Errorf("%w: %s channel list is empty", ErrNeedMoreParams, verb)
	}
	if len(j.Keys) > len(j.Channels) {
		return nil, fmt.Errorf("%w: %s has %d keys for %d channels", ErrTooManyParams, verb, len(j.Keys), len(j.Channels))
	}
	return j, nil
}

// Key returns the key supplied for the i-th channel.
func (c *Join) Key(i int) (string, bool) {
	if i < len(c.Keys) && c.Keys[i] != "" {
		return c.Keys[i], true
	}
	return "", false
}

func (*Join) Verb() string { return "JOIN" }

// Args only supports a single unkeyed channel, the shape used for echoes.
func (c *Join) Args() (Args, error) {
	if c.All || len(c.Keys) > 0 || len(c.Channels) != 1 {
		return Args{}, fmt.Errorf("%w: JOIN must name exactly one unkeyed channel", ErrNotSerializable)
	}
	return middle(c.Channels[0]), nil
}

type Part struct {
	Channels []string
	Message  string
}

func parsePart(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	channels := list(p[0])
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: %s channel list is empty", ErrNeedMoreParams, verb)
	}
	return &Part{Channels: channels, Message: at(p, 1)}, nil
}

func (*Part) Verb() string { return "PART" }

func (c *Part) Args() (Args, error) {
	if len(c.Channels) != 1 {
		return Args{}, fmt.Errorf("%w: PART must name exactly one channel, got %d", ErrNotSerializable, len(c.Channels))
	}
	if c.Message == "" {
		return middle(c.Channels[0]), nil
	}
	return withText(c.Message, c.Channels[0]), nil
}

// Mode queries or changes user or channel modes.
type Mode struct {
	Target string
	Modes  string
	Params []string
}

func parseMode(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	m := &Mode{Target: p[0], Modes: at(p, 1)}
	if len(p) > 2 {
		m.Params = append([]string(nil), p[2:]...)
	}
	return m, nil
}

func (*Mode) Verb() string { return "MODE" }

func (c *Mode) Args() (Args, error) {
	if c.Modes == "" {
		if len(c.Params) > 0 {
			return Args{}, fmt.Errorf("%w: MODE parameters without a mode string", ErrNotSerializable)
		}
		return middle(c.Target), nil
	}
	values := append([]string{c.Target, c.Modes}, c.Params...)
	return middle(values...), nil
}

// Topic queries a channel topic, or sets it when Set is true.
type Topic struct {
	Channel string
	Text    string
	Set     bool
}

func parseTopic(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	return &Topic{Channel: p[0], Text: at(p, 1), Set: len(p) > 1}, nil
}

func (*Topic) Verb() string { return "TOPIC" }

func (c *Topic) Args() (Args, error) {
	if !c.Set {
		return middle(c.Channel), nil
	}
	if c.Text == "" {
		return Args{}, fmt.Errorf("%w: TOPIC with empty text", ErrNotSerializable)
	}
	return withText(c.Text, c.Channel), nil
}

type Names struct {
	receiveOnly
	Channels []string
	Target   string
}

func parseNames(_ string, p []string) (Command, error) {
	return &Names{Channels: list(at(p, 0)), Target: at(p, 1)}, nil
}

func (*Names) Verb() string { return "NAMES" }

type List struct {
	receiveOnly
	Channels []string
	Target   string
}

func parseList(_ string, p []string) (Command, error) {
	return &List{Channels: list(at(p, 0)), Target: at(p, 1)}, nil
}

func (*List) Verb() string { return "LIST" }

type Invite struct {
	Nickname string
	Channel  string
}

func parseInvite(verb string, p []string) (Command, error) {
	if err := need(verb, p, 2); err != nil {
		return nil, err
	}
	return &Invite{Nickname: p[0], Channel: p[1]}, nil
}

func (*Invite) Verb() string { return "INVITE" }

func (c *Invite) Args() (Args, error) {
	return middle(c.Nickname, c.Channel), nil
}

type Kick struct {
	Channels []string
	Users    []string
	Comment  string
}

func parseKick(verb string, p []string) (Command, error) {
	if err := need(verb, p, 2); err != nil {
		return nil, err
	}
	return &Kick{Channels: list(p[0]), Users: list(p[1]), Comment: at(p, 2)}, nil
}

func (*Kick) Verb() string { return "KICK" }

func (c *Kick) Args() (Args, error) {
	if len(c.Channels) != 1 || len(c.Users) != 1 {
		return Args{}, fmt.Errorf("%w: KICK must name one channel and one user", ErrNotSerializable)
	}
	if c.Comment == "" {
		return middle(c.Channels[0], c.Users[0]), nil
	}
	return withText(c.Comment, c.Channels[0], c.Users[0]), nil
}

type Version struct {
	receiveOnly
	Target string
}

func (*Version) Verb() string { return "VERSION" }

// Stats requests a statistics report; Query is the single letter selector.
type Stats struct {
	receiveOnly
	Query  string
	Target string
}

func parseStats(_ string, p []string) (Command, error) {
	return &Stats{Query: at(p, 0), Target: at(p, 1)}, nil
}

func (*Stats) Verb() string { return "STATS" }

type Links struct {
	receiveOnly
	Remote string
	Mask   string
}

func parseLinks(_ string, p []string) (Command, error) {
	switch len(p) {
	case 0:
		return &Links{}, nil
	case 1:
		return &Links{Mask: p[0]}, nil
	default:
		return &Links{Remote: p[0], Mask: p[1]}, nil
	}
}

func (*Links) Verb() string { return "LINKS" }

type Time struct {
	receiveOnly
	Target string
}

func (*Time) Verb() string { return "TIME" }

type Connect struct {
	receiveOnly
	Target string
	Port   uint32
	Remote string
}

func parseConnect(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	c := &Connect{Target: p[0], Remote: at(p, 2)}
	if len(p) > 1 {
		port, err := parseUint(verb, "port", p[1], 32)
		if err != nil {
			return nil, err
		}
		c.Port = uint32(port)
	}
	return c, nil
}

func (*Connect) Verb() string { return "CONNECT" }

type Trace struct {
	receiveOnly
	Target string
}

func (*Trace) Verb() string { return "TRACE" }

type Admin struct {
	receiveOnly
	Target string
}

func (*Admin) Verb() string { return "ADMIN" }

type Info struct {
	receiveOnly
	Target string
}

func (*Info) Verb() string { return "INFO" }

// Privmsg delivers text to nicknames or channels.
type Privmsg struct {
	Targets []string
	Text    string
}

func parsePrivmsg(verb string, p []string) (Command, error) {
	if err := need(verb, p, 2); err != nil {
		return nil, err
	}
	return &Privmsg{Targets: list(p[0]), Text: p[1]}, nil
}

func (*Privmsg) Verb() string { return "PRIVMSG" }

func (c *Privmsg) Args() (Args, error) {
	return textToOne("PRIVMSG", c.Targets, c.Text)
}

// Notice is PRIVMSG without automatic replies.
type Notice struct {
	Targets []string
	Text    string
}

func parseNotice(verb string, p []string) (Command, error) {
	if err := need(verb, p, 2); err != nil {
		return nil, err
	}
	return &Notice{Targets: list(p[0]), Text: p[1]}, nil
}

func (*Notice) Verb() string { return "NOTICE" }

func (c *Notice) Args() (Args, error) {
	return textToOne("NOTICE", c.Targets, c.Text)
}

func textToOne(verb string, targets []string, text string) (Args, error) {
	if len(targets) != 1 {
		return Args{}, fmt.Errorf("%w: %s must name exactly one target, got %d", ErrNotSerializable, verb, len(targets))
	}
	return withText(text, targets[0]), nil
}

type Who struct {
	receiveOnly
	Mask      string
	Operators bool
}

func parseWho(_ string, p []string) (Command, error) {
	return &Who{Mask: at(p, 0), Operators: at(p, 1) == "o"}, nil
}

func (*Who) Verb() string { return "WHO" }

type Whois struct {
	receiveOnly
	Target string
	Masks  []string
}

func parseWhois(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	if len(p) == 1 {
		return &Whois{Masks: list(p[0])}, nil
	}
	return &Whois{Target: p[0], Masks: list(p[1])}, nil
}

func (*Whois) Verb() string { return "WHOIS" }

type Whowas struct {
	receiveOnly
	Nicknames []string
	Count     int64
	Target    string
}

func parseWhowas(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	w := &Whowas{Nicknames: list(p[0]), Target: at(p, 2)}
	if len(p) > 1 {
		n, err := parseInt(verb, "count", p[1], 64)
		if err != nil {
			return nil, err
		}
		w.Count = n
	}
	return w, nil
}

func (*Whowas) Verb() string { return "WHOWAS" }

type Kill struct {
	receiveOnly
	Nickname string
	Comment  string
}

func parseKill(verb string, p []string) (Command, error) {
	if err := need(verb, p, 2); err != nil {
		return nil, err
	}
	return &Kill{Nickname: p[0], Comment: p[1]}, nil
}

func (*Kill) Verb() string { return "KILL" }

// Ping asks Target (or the receiving server) to answer with Origin.
type Ping struct {
	Origin string
	Target string
}

func parsePing(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	return &Ping{Origin: p[0], Target: at(p, 1)}, nil
}

func (*Ping) Verb() string { return "PING" }

func (c *Ping) Args() (Args, error) {
	if c.Target == "" {
		return middle(c.Origin), nil
	}
	return middle(c.Origin, c.Target), nil
}

type Pong struct {
	Origin string
	Target string
}

func parsePong(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	return &Pong{Origin: p[0], Target: at(p, 1)}, nil
}

func (*Pong) Verb() string { return "PONG" }

func (c *Pong) Args() (Args, error) {
	if c.Target == "" {
		return middle(c.Origin), nil
	}
	return withText(c.Target, c.Origin), nil
}

// ErrorMessage is the ERROR command servers send before closing a link.
type ErrorMessage struct {
	Message string
}

func parseError(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	return &ErrorMessage{Message: p[0]}, nil
}

func (*ErrorMessage) Verb() string { return "ERROR" }

func (c *ErrorMessage) Args() (Args, error) {
	return withText(c.Message), nil
}

type Away struct {
	receiveOnly
	Message string
}

func parseAway(_ string, p []string) (Command, error) {
	return &Away{Message: at(p, 0)}, nil
}

func (*Away) Verb() string { return "AWAY" }

type Rehash struct{ receiveOnly }

func (*Rehash) Verb() string { return "REHASH" }

type Restart struct{ receiveOnly }

func (*Restart) Verb() string { return "RESTART" }

type Summon struct {
	receiveOnly
	User    string
	Target  string
	Channel string
}

func parseSummon(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	return &Summon{User: p[0], Target: at(p, 1), Channel: at(p, 2)}, nil
}

func (*Summon) Verb() string { return "SUMMON" }

type Users struct {
	receiveOnly
	Target string
}

func (*Users) Verb() string { return "USERS" }

type Wallops struct {
	receiveOnly
	Text string
}

func parseWallops(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	return &Wallops{Text: p[0]}, nil
}

func (*Wallops) Verb() string { return "WALLOPS" }

// Userhost asks for up to five nicknames.
type Userhost struct {
	receiveOnly
	Nicknames []string
}

func parseUserhost(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	if len(p) > 5 {
		return nil, fmt.Errorf("%w: %s takes at most 5 nicknames", ErrTooManyParams, verb)
	}
	return &Userhost{Nicknames: append([]string(nil), p...)}, nil
}

func (*Userhost) Verb() string { return "USERHOST" }

type Ison struct {
	receiveOnly
	Nicknames []string
}

func parseIson(verb string, p []string) (Command, error) {
	if err := need(verb, p, 1); err != nil {
		return nil, err
	}
	return &Ison{Nicknames: append([]string(nil), p...)}, nil
}

func (*Ison) Verb() string { return "ISON" }
