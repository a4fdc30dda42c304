package server

import (
	"errors"
	"log"
	"strings"

	"github.com/presbrey/ircd/irc"
)

// handleNick renames a registered user.
func (c *Connection) handleNick(cmd *irc.Nick) []*irc.Message {
	if !IsValidNickname(cmd.Nickname) {
		return c.reply(c.numeric(irc.ERR_ERRONEUSNICKNAME, "Erroneous nickname", cmd.Nickname))
	}
	if cmd.Nickname == c.user.Nickname {
		return nil
	}

	oldPrefix := c.user.Prefix()
	id, err := c.server.registry.ChangeNick(c.user, cmd.Nickname)
	if errors.Is(err, ErrNicknameInUse) {
		return c.reply(c.numeric(irc.ERR_NICKNAMEINUSE, "Nickname is already in use", cmd.Nickname))
	}
	if err != nil {
		return c.internalError("NICK", err)
	}

	log.Printf("[%s] Nickname changed to %s", c.user.Nickname, id.Nickname)
	c.user = id
	return c.reply(&irc.Message{Prefix: oldPrefix, Command: &irc.Nick{Nickname: id.Nickname}})
}

// handleJoin joins each requested channel and answers with the echo, the
// topic if one is set and the member list.
func (c *Connection) handleJoin(cmd *irc.Join) []*irc.Message {
	if cmd.All {
		results, err := c.server.registry.PartAll(c.user, "")
		if err != nil {
			return c.internalError("JOIN", err)
		}
		return c.partReplies(results, "")
	}

	reqs := make([]JoinRequest, 0, len(cmd.Channels))
	for i, name := range cmd.Channels {
		key, _ := cmd.Key(i)
		reqs = append(reqs, JoinRequest{Channel: name, Key: key})
	}

	results, err := c.server.registry.Join(c.user, reqs)
	if err != nil {
		return c.internalError("JOIN", err)
	}

	var out []*irc.Message
	for _, res := range results {
		switch {
		case res.Err == nil:
			out = append(out, c.fromSelf(&irc.Join{Channels: []string{res.Channel}}))
			if res.Topic != "" {
				out = append(out, c.numeric(irc.RPL_TOPIC, res.Topic, res.Channel))
			}
			out = append(out, c.namesReplies(res.Channel, res.Members)...)
		case errors.Is(res.Err, ErrAlreadyOnChannel):
			log.Printf("[%s] Already on %s", c.name(), res.Channel)
		case errors.Is(res.Err, ErrBadChannelKey):
			out = append(out, c.numeric(irc.ERR_BADCHANNELKEY, "Cannot join channel (+k)", res.Channel))
		case errors.Is(res.Err, ErrBannedFromChannel):
			out = append(out, c.numeric(irc.ERR_BANNEDFROMCHAN, "Cannot join channel (+b)", res.Channel))
		case errors.Is(res.Err, ErrInvalidChannelName):
			out = append(out, c.numeric(irc.ERR_NOSUCHCHANNEL, "No such channel", res.Channel))
		default:
			out = append(out, c.internalError("JOIN", res.Err)...)
		}
	}
	return out
}

// namesReplies renders RPL_NAMREPLY lines, splitting the member list so
// each line fits in irc.MaxLineLength, followed by RPL_ENDOFNAMES.
func (c *Connection) namesReplies(channel string, members []Member) []*irc.Message {
	// :host 353 nick = #channel :names\r\n
	overhead := len(":"+c.server.registry.Hostname()) + len(" 353 ") + len(c.target()) +
		len(" = ") + len(channel) + len(" :") + len(irc.CRLF)

	var out []*irc.Message
	var names []string
	size := 0
	flush := func() {
		if len(names) > 0 {
			out = append(out, c.numeric(irc.RPL_NAMREPLY, strings.Join(names, " "), "=", channel))
			names, size = nil, 0
		}
	}

	for _, m := range members {
		name := m.String()
		extra := len(name)
		if len(names) > 0 {
			extra++
		}
		if overhead+size+extra > irc.MaxLineLength {
			flush()
			extra = len(name)
		}
		names = append(names, name)
		size += extra
	}
	flush()

	return append(out, c.numeric(irc.RPL_ENDOFNAMES, "End of /NAMES list", channel))
}

func (c *Connection) handlePart(cmd *irc.Part) []*irc.Message {
	results, err := c.server.registry.Part(c.user, cmd.Channels, cmd.Message)
	if err != nil {
		return c.internalError("PART", err)
	}
	return c.partReplies(results, cmd.Message)
}

func (c *Connection) partReplies(results []PartResult, message string) []*irc.Message {
	var out []*irc.Message
	for _, res := range results {
		switch {
		case res.Err == nil:
			out = append(out, c.fromSelf(&irc.Part{Channels: []string{res.Channel}, Message: message}))
		case errors.Is(res.Err, ErrNoSuchChannel):
			out = append(out, c.numeric(irc.ERR_NOSUCHCHANNEL, "No such channel", res.Channel))
		case errors.Is(res.Err, ErrNotOnChannel):
			out = append(out, c.numeric(irc.ERR_NOTONCHANNEL, "You're not on that channel", res.Channel))
		default:
			out = append(out, c.internalError("PART", res.Err)...)
		}
	}
	return out
}

// handleMode handles user modes on the caller's own nickname and channel
// modes.
func (c *Connection) handleMode(cmd *irc.Mode) []*irc.Message {
	if IsChannelName(cmd.Target) {
		return c.handleChannelMode(cmd)
	}

	if Casefold(cmd.Target) != Casefold(c.user.Nickname) {
		return c.reply(c.numeric(irc.ERR_USERSDONTMATCH, "Cant change mode for other users"))
	}

	if cmd.Modes == "" {
		modes, err := c.server.registry.UserModes(c.user)
		if err != nil {
			return c.internalError("MODE", err)
		}
		return c.reply(c.numeric(irc.RPL_UMODEIS, "", modes.String()))
	}

	changes, err := ParseUserModeString(cmd.Modes)
	if err != nil {
		return c.reply(c.numeric(irc.ERR_UMODEUNKNOWNFLAG, "Unknown MODE flag"))
	}

	applied, err := c.server.registry.SetUserModes(c.user, changes)
	if err != nil {
		return c.internalError("MODE", err)
	}
	if len(applied) == 0 {
		return nil
	}

	modes, _ := FormatModeChanges(applied)
	return c.reply(c.fromSelf(&irc.Mode{Target: c.user.Nickname, Modes: modes}))
}

func (c *Connection) handleChannelMode(cmd *irc.Mode) []*irc.Message {
	registry := c.server.registry

	if cmd.Modes == "" {
		name, modes, params, err := registry.ChannelModes(c.user, cmd.Target)
		if err != nil {
			return c.channelError("MODE", cmd.Target, err)
		}
		return c.reply(c.numeric(irc.RPL_CHANNELMODEIS, "", append([]string{name, modes}, params...)...))
	}

	changes, listBans, err := ParseChannelModeString(cmd.Modes, cmd.Params)
	var modeErr *ModeError
	if errors.As(err, &modeErr) {
		if errors.Is(err, ErrUnknownModeFlag) {
			return c.reply(c.numeric(irc.ERR_UNKNOWNMODE, "is unknown mode char to me", string(modeErr.Mode)))
		}
		return c.reply(c.numeric(irc.ERR_NEEDMOREPARAMS, "Not enough parameters", "MODE"))
	}

	var out []*irc.Message
	if len(changes) > 0 {
		name, applied, err := registry.ChangeChannelModes(c.user, cmd.Target, changes)
		if err != nil {
			return c.channelError("MODE", cmd.Target, err)
		}
		if len(applied) > 0 {
			modes, params := FormatModeChanges(applied)
			out = append(out, c.fromSelf(&irc.Mode{Target: name, Modes: modes, Params: params}))
		}
	}

	if listBans {
		name, bans, err := registry.Bans(cmd.Target)
		if err != nil {
			return c.channelError("MODE", cmd.Target, err)
		}
		for _, mask := range bans {
			out = append(out, c.numeric(irc.RPL_BANLIST, "", name, mask))
		}
		out = append(out, c.numeric(irc.RPL_ENDOFBANLIST, "End of channel ban list", name))
	}
	return out
}

// channelError maps registry channel errors onto numeric replies.
func (c *Connection) channelError(verb, channel string, err error) []*irc.Message {
	switch {
	case errors.Is(err, ErrNoSuchChannel):
		return c.reply(c.numeric(irc.ERR_NOSUCHCHANNEL, "No such channel", channel))
	case errors.Is(err, ErrNotOnChannel):
		return c.reply(c.numeric(irc.ERR_NOTONCHANNEL, "You're not on that channel", channel))
	case errors.Is(err, ErrChanOpPrivsNeeded):
		return c.reply(c.numeric(irc.ERR_CHANOPRIVSNEEDED, "You're not channel operator", channel))
	}
	return c.internalError(verb, err)
}

func (c *Connection) handleTopic(cmd *irc.Topic) []*irc.Message {
	registry := c.server.registry

	if !cmd.Set {
		name, topic, err := registry.Topic(cmd.Channel)
		if err != nil {
			return c.channelError("TOPIC", cmd.Channel, err)
		}
		if topic == "" {
			return c.reply(c.numeric(irc.RPL_NOTOPIC, "No topic is set", name))
		}
		return c.reply(c.numeric(irc.RPL_TOPIC, topic, name))
	}

	name, err := registry.SetTopic(c.user, cmd.Channel, cmd.Text)
	if err != nil {
		return c.channelError("TOPIC", cmd.Channel, err)
	}
	return c.reply(c.fromSelf(&irc.Topic{Channel: name, Text: cmd.Text, Set: true}))
}

func (c *Connection) handleNames(cmd *irc.Names) []*irc.Message {
	if len(cmd.Channels) == 0 {
		return c.reply(c.numeric(irc.RPL_ENDOFNAMES, "End of /NAMES list", "*"))
	}

	var out []*irc.Message
	for _, channel := range cmd.Channels {
		name, members, err := c.server.registry.Names(c.user, channel)
		if err != nil {
			out = append(out, c.numeric(irc.RPL_ENDOFNAMES, "End of /NAMES list", channel))
			continue
		}
		out = append(out, c.namesReplies(name, members)...)
	}
	return out
}

// handleMessage routes PRIVMSG and NOTICE. NOTICE never produces replies.
func (c *Connection) handleMessage(targets []string, text string, notice bool) []*irc.Message {
	if len(targets) > 1 {
		if notice {
			return nil
		}
		return c.reply(c.numeric(irc.ERR_TOOMANYTARGETS, "Too many targets", strings.Join(targets, ",")))
	}

	target := targets[0]
	err := c.server.registry.Send(c.user, target, text, notice)
	switch {
	case err == nil, notice:
		if err != nil {
			log.Printf("[%s] Warning: NOTICE to %s: %v", c.name(), target, err)
		}
		return nil
	case errors.Is(err, ErrNoSuchNick):
		return c.reply(c.numeric(irc.ERR_NOSUCHNICK, "No such nick/channel", target))
	}
	return c.internalError("PRIVMSG", err)
}

func (c *Connection) handlePing(cmd *irc.Ping) []*irc.Message {
	host := c.server.registry.Hostname()
	if cmd.Target != "" && Casefold(cmd.Target) != Casefold(host) {
		return c.reply(c.numeric(irc.ERR_NOSUCHSERVER, "No such server", cmd.Target))
	}
	return c.reply(irc.NewMessage(&irc.Pong{Origin: host, Target: cmd.Origin}))
}

func (c *Connection) handleQuit(cmd *irc.Quit) []*irc.Message {
	c.quitMessage = cmd.Message
	if c.quitMessage == "" {
		c.quitMessage = "Client Quit"
	}
	c.closing = true
	return c.reply(errorMessage("Closing Link: " + c.hostname + " (" + c.quitMessage + ")"))
}
