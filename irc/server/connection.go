package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/presbrey/ircd/irc"
	"github.com/presbrey/ircd/irc/templates"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

type connState int

const (
	stateRegistering connState = iota
	stateClient
)

// ConnectionIdentity keys a live connection by its two endpoints.
type ConnectionIdentity struct {
	Local  string `json:"local"`
	Remote string `json:"remote"`
}

// registration collects NICK, USER and PASS until all required fields are
// present.
type registration struct {
	nickname string
	username string
	realname string
	password string
	hasPass  bool
}

// Connection is one client link. All fields are owned by the goroutine
// running serve; other connections reach it only through its mailbox.
type Connection struct {
	ID       string
	identity ConnectionIdentity
	hostname string
	conn     net.Conn
	server   *Server
	mailbox  *Mailbox
	limiter  *rate.Limiter

	state       connState
	reg         registration
	user        UserIdentifier
	closing     bool
	quitMessage string
}

func (s *Server) newConnection(identity ConnectionIdentity, conn net.Conn) *Connection {
	host, _, err := net.SplitHostPort(identity.Remote)
	if err != nil {
		host = identity.Remote
	}

	limit := rate.Inf
	if s.config.Limits.FloodRate > 0 {
		limit = rate.Limit(s.config.Limits.FloodRate)
	}

	mailbox := NewMailbox(s.config.Limits.MailboxCapacity, s.policy)
	mailbox.onOverflow = func() {
		s.metrics.mailboxOverflow(s.policy)
	}
	mailbox.blockTimeout = s.config.Limits.MailboxBlockTimeout
	mailbox.abort = s.ctx.Done()

	return &Connection{
		ID:       uuid.NewString(),
		identity: identity,
		hostname: host,
		conn:     conn,
		server:   s,
		mailbox:  mailbox,
		limiter:  rate.NewLimiter(limit, s.config.Limits.FloodBurst),
	}
}

// name is the log prefix: the nickname once registered, else the peer host.
func (c *Connection) name() string {
	if c.state == stateClient {
		return c.user.Nickname
	}
	return c.hostname
}

// target is the first parameter of numeric replies.
func (c *Connection) target() string {
	if c.state == stateClient {
		return c.user.Nickname
	}
	return "*"
}

func (c *Connection) event(kind EventKind, msg *irc.Message) *HookEvent {
	return &HookEvent{
		Kind:     kind,
		ConnID:   c.ID,
		Identity: c.identity,
		User:     c.user,
		Message:  msg,
	}
}

type inbound struct {
	line string
	err  error
}

func (c *Connection) readLoop(lines chan<- inbound, done <-chan struct{}) {
	defer close(lines)

	reader := irc.NewLineReader(c.conn)
	for {
		line, err := reader.ReadLine()
		select {
		case lines <- inbound{line: line, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// serve runs the connection until the peer leaves, a fatal framing error
// occurs or ctx is cancelled.
func (c *Connection) serve(ctx context.Context) {
	reason := "Connection closed"
	defer func() {
		c.close(reason)
	}()

	done := make(chan struct{})
	defer close(done)

	lines := make(chan inbound)
	go c.readLoop(lines, done)

	c.server.hooks.Run(c.event(EventConnect, nil))
	log.Printf("[%s] Connection accepted (%s)", c.hostname, c.ID)

	timeout := time.NewTimer(c.server.config.Limits.RegistrationTimeout)
	defer timeout.Stop()

	for {
		select {
		case in, ok := <-lines:
			if !ok {
				return
			}
			if in.err != nil {
				if !errors.Is(in.err, io.EOF) && !errors.Is(in.err, net.ErrClosed) {
					log.Printf("[%s] Read error: %v", c.name(), in.err)
				}
				return
			}
			if err := c.limiter.Wait(ctx); err != nil {
				continue
			}
			if !c.handleLine(in.line) {
				if c.quitMessage != "" {
					reason = c.quitMessage
				}
				return
			}

		case ev := <-c.mailbox.Events():
			if err := c.write(ev.Messages...); err != nil {
				log.Printf("[%s] Write error: %v", c.name(), err)
				return
			}

		case <-c.mailbox.Overflowed():
			log.Printf("[%s] Warning: mailbox overflow, disconnecting", c.name())
			c.write(errorMessage("Closing Link: " + c.hostname + " (mailbox overflow)"))
			reason = "Mailbox overflow"
			return

		case <-timeout.C:
			if c.state == stateRegistering {
				log.Printf("[%s] Registration timeout", c.name())
				c.write(errorMessage("Closing Link: registration timeout"))
				return
			}

		case <-ctx.Done():
			c.write(errorMessage("Server shutting down"))
			reason = "Server shutting down"
			return
		}
	}
}

// handleLine parses and processes one inbound line and reports whether the
// connection should stay open.
func (c *Connection) handleLine(line string) bool {
	c.server.metrics.lineIn()
	if len(line) > 5 && strings.EqualFold(line[:5], "PASS ") {
		log.Printf("[%s] <= PASS ***", c.name())
	} else {
		log.Printf("[%s] <= %s", c.name(), line)
	}

	msg, err := irc.ParseFrame(line)
	if err != nil {
		c.server.metrics.parseError()
		log.Printf("[%s] Warning: dropping line: %v", c.name(), err)
		return true
	}

	if err := c.write(c.Process(msg)...); err != nil {
		log.Printf("[%s] Write error: %v", c.name(), err)
		return false
	}
	return !c.closing
}

// encode stamps and serializes messages into wire form. Messages that
// cannot be serialized are logged and skipped.
func (c *Connection) encode(msgs []*irc.Message) ([]byte, int) {
	var buf []byte
	n := 0
	for _, m := range msgs {
		if m.Prefix == "" {
			stamped := *m
			stamped.Prefix = c.server.registry.Hostname()
			m = &stamped
		}
		line, err := m.Serialize()
		if err != nil {
			log.Printf("[%s] Warning: cannot send %s: %v", c.name(), m.Command.Verb(), err)
			continue
		}
		if c.server.config.Debug {
			log.Printf("[%s] => %s", c.name(), line)
		}
		buf = irc.Encode(buf, line)
		n++
	}
	return buf, n
}

// write flushes messages in one write.
func (c *Connection) write(msgs ...*irc.Message) error {
	buf, n := c.encode(msgs)
	if n == 0 {
		return nil
	}

	if timeout := c.server.config.Limits.WriteTimeout; timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	_, err := c.conn.Write(buf)
	c.server.metrics.linesOut(n)
	return err
}

// close releases everything the connection holds. Registered users leave
// the registry so no membership is left behind.
func (c *Connection) close(reason string) {
	if c.state == stateClient {
		if err := c.server.registry.RemoveUser(c.user, reason); err != nil {
			log.Printf("[%s] Warning: removing user: %v", c.name(), err)
		}
	}
	c.mailbox.Close()
	c.conn.Close()
	c.server.conns.Delete(c.identity)
	c.server.metrics.connectionClosed()
	c.server.hooks.Run(c.event(EventDisconnect, nil))
	log.Printf("[%s] Connection closed: %s", c.name(), reason)
}

// Process runs one parsed message through the state machine and returns
// the replies for this connection. Panics are answered with
// ERR_UNKNOWNERROR.
func (c *Connection) Process(msg *irc.Message) (replies []*irc.Message) {
	verb := msg.Command.Verb()
	c.server.metrics.command(verb)
	c.server.hooks.Run(c.event(EventCommand, msg))

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[%s] PANIC handling %s: %v\n%s", c.name(), verb, r, debug.Stack())
			replies = []*irc.Message{c.numeric(irc.ERR_UNKNOWNERROR, "Internal error", verb)}
		}
	}()

	if c.state == stateClient {
		return c.processClient(msg)
	}
	return c.processRegistering(msg)
}

func (c *Connection) processRegistering(msg *irc.Message) []*irc.Message {
	switch cmd := msg.Command.(type) {
	case *irc.Nick:
		if !IsValidNickname(cmd.Nickname) {
			return c.reply(c.numeric(irc.ERR_ERRONEUSNICKNAME, "Erroneous nickname", cmd.Nickname))
		}
		c.reg.nickname = cmd.Nickname
		return c.tryRegister()
	case *irc.User:
		c.reg.username = cmd.Username
		c.reg.realname = cmd.Realname
		return c.tryRegister()
	case *irc.Pass:
		c.reg.password = cmd.Password
		c.reg.hasPass = true
		return c.tryRegister()
	case *irc.Ping:
		return c.handlePing(cmd)
	case *irc.Pong:
		return nil
	case *irc.Quit:
		return c.handleQuit(cmd)
	case *irc.Reply:
		log.Printf("[%s] Warning: ignoring numeric %s from client", c.name(), cmd.Verb())
		return nil
	}
	return c.reply(c.numeric(irc.ERR_NOTREGISTERED, "You have not registered"))
}

// tryRegister claims the nickname once NICK and USER have both arrived.
func (c *Connection) tryRegister() []*irc.Message {
	if c.reg.nickname == "" || c.reg.username == "" || c.reg.realname == "" {
		return nil
	}

	if hash := c.server.config.Server.PasswordHash; hash != "" {
		if !c.reg.hasPass || bcrypt.CompareHashAndPassword([]byte(hash), []byte(c.reg.password)) != nil {
			c.server.metrics.registration("bad_password")
			return c.reply(c.numeric(irc.ERR_PASSWDMISMATCH, "Password incorrect"))
		}
	}

	id := UserIdentifier{
		Nickname: c.reg.nickname,
		Username: c.reg.username,
		Realname: c.reg.realname,
		Hostname: c.hostname,
	}

	burst, err := c.welcomeBurst(id.Nickname)
	if err != nil {
		return c.internalError("USER", err)
	}

	if err := c.server.registry.AddUser(id, c.mailbox); err != nil {
		if errors.Is(err, ErrNicknameInUse) {
			c.server.metrics.registration("nickname_in_use")
			return c.reply(c.numeric(irc.ERR_NICKNAMEINUSE, "Nickname is already in use", id.Nickname))
		}
		return c.internalError("USER", err)
	}

	c.state = stateClient
	c.user = id
	c.server.metrics.registration("ok")
	c.server.hooks.Run(c.event(EventRegister, nil))
	log.Printf("[%s] Registered as %s", c.hostname, id.Prefix())
	return burst
}

// welcomeBurst renders WELCOME, YOURHOST, CREATED and MYINFO.
func (c *Connection) welcomeBurst(nick string) ([]*irc.Message, error) {
	cfg := c.server.config
	host := c.server.registry.Hostname()

	render := func(name string, fields map[string]string) (string, error) {
		return c.server.templates.Load().Render(name, fields)
	}

	welcome, err := render(templates.Welcome, map[string]string{
		"network_name": cfg.Server.Network,
		"nick":         nick,
	})
	if err != nil {
		return nil, err
	}
	yourHost, err := render(templates.YourHost, map[string]string{
		"hostname": host,
		"version":  cfg.Server.Version,
	})
	if err != nil {
		return nil, err
	}
	created, err := render(templates.Created, map[string]string{
		"created": c.server.registry.Created().Format(time.RFC1123),
	})
	if err != nil {
		return nil, err
	}

	return []*irc.Message{
		irc.NewMessage(irc.NewReply(irc.RPL_WELCOME, nick, welcome)),
		irc.NewMessage(irc.NewReply(irc.RPL_YOURHOST, nick, yourHost)),
		irc.NewMessage(irc.NewReply(irc.RPL_CREATED, nick, created)),
		irc.NewMessage(irc.NewReply(irc.RPL_MYINFO, nick, "", host, cfg.Server.Version, UserModeFlags(), ChannelModeFlags)),
	}, nil
}

func (c *Connection) processClient(msg *irc.Message) []*irc.Message {
	switch cmd := msg.Command.(type) {
	case *irc.Nick:
		return c.handleNick(cmd)
	case *irc.User, *irc.Pass:
		return c.reply(c.numeric(irc.ERR_ALREADYREGISTRED, "You may not reregister"))
	case *irc.Join:
		return c.handleJoin(cmd)
	case *irc.Part:
		return c.handlePart(cmd)
	case *irc.Mode:
		return c.handleMode(cmd)
	case *irc.Topic:
		return c.handleTopic(cmd)
	case *irc.Names:
		return c.handleNames(cmd)
	case *irc.Privmsg:
		return c.handleMessage(cmd.Targets, cmd.Text, false)
	case *irc.Notice:
		return c.handleMessage(cmd.Targets, cmd.Text, true)
	case *irc.Ping:
		return c.handlePing(cmd)
	case *irc.Pong:
		return nil
	case *irc.Quit:
		return c.handleQuit(cmd)
	case *irc.Reply:
		log.Printf("[%s] Warning: ignoring numeric %s from client", c.name(), cmd.Verb())
		return nil
	}
	log.Printf("[%s] %s is not implemented", c.name(), msg.Command.Verb())
	return nil
}

func (c *Connection) reply(msgs ...*irc.Message) []*irc.Message {
	return msgs
}

func (c *Connection) numeric(code irc.ReplyCode, text string, params ...string) *irc.Message {
	return irc.NewMessage(irc.NewReply(code, c.target(), text, params...))
}

// fromSelf returns cmd prefixed with the connection's own user.
func (c *Connection) fromSelf(cmd irc.Command) *irc.Message {
	return &irc.Message{Prefix: c.user.Prefix(), Command: cmd}
}

func (c *Connection) internalError(verb string, err error) []*irc.Message {
	log.Printf("[%s] Warning: %s: %v", c.name(), verb, err)
	return c.reply(c.numeric(irc.ERR_UNKNOWNERROR, "Internal error", verb))
}

func errorMessage(text string) *irc.Message {
	return irc.NewMessage(&irc.ErrorMessage{Message: text})
}
