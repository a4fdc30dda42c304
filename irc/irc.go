/*
Package irc implements the RFC 1459 wire protocol used by the ircd server:
line framing, the message grammar and the typed command and numeric reply
catalog.

# Framing

A Decoder turns a growing byte buffer into CRLF-terminated lines and never
discards a partial line. Lines that are not valid UTF-8, or a stream that
ends in the middle of a line, are reported as errors. Encode appends CRLF to
outbound lines without escaping.

# Grammar

	[":" prefix SP] command {SP param} [SP ":" trailing]

Lines are 2 to 512 bytes including the terminator. ParseRaw splits a line
without interpreting the command. Empty parameters produced by repeated
spaces and an empty trailing parameter are dropped with a warning.

# Catalog

Parse resolves the command token against the request table (NICK, PASS,
USER, SERVER, OPER, QUIT, SQUIT, JOIN, PART, MODE, TOPIC, NAMES, LIST,
INVITE, KICK, VERSION, STATS, LINKS, TIME, CONNECT, TRACE, ADMIN, INFO,
PRIVMSG, NOTICE, WHO, WHOIS, WHOWAS, KILL, PING, PONG, ERROR, AWAY, REHASH,
RESTART, SUMMON, USERS, WALLOPS, USERHOST, ISON) or the numeric reply table.
Command words are case-insensitive and numeric replies may be written either
as their three-digit code or their symbolic name (433 or ERR_NICKNAMEINUSE).

Each command validates its own arity. Serialization is partial: commands
the server never emits return ErrNotSerializable, and emitted commands
reject shapes that would produce a non-compliant line, such as a PART
naming more than one channel.

# Usage

	msg, err := irc.ParseFrame("PRIVMSG #go :hello")
	if err != nil {
	    log.Printf("dropping line: %v", err)
	    return
	}
	if pm, ok := msg.Command.(*irc.Privmsg); ok {
	    log.Printf("%s says %q", msg.Prefix, pm.Text)
	}
*/
package irc
