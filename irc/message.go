package irc

import (
	"fmt"
	"log"
	"strings"
)

// MaxLineLength is the longest permitted line, terminator included.
const MaxLineLength = 512

// RawMessage is a line split into its grammar parts without any knowledge
// of the command catalog.
type RawMessage struct {
	Prefix  string
	Command string
	Params  []string
	// Trailing is set when the last parameter uses the ":" form.
	Trailing bool
}

// ParseRaw splits a CRLF-terminated line into prefix, command and params.
func ParseRaw(line string) (*RawMessage, error) {
	if len(line) < 2 || len(line) > MaxLineLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrLineLength, len(line))
	}
	if !strings.HasSuffix(line, CRLF) {
		return nil, ErrMissingCRLF
	}
	rest := line[:len(line)-len(CRLF)]

	msg := &RawMessage{}
	if strings.HasPrefix(rest, ":") {
		var prefix string
		prefix, rest = nextToken(rest)
		if rest == "" {
			return nil, ErrOnlyPrefix
		}
		if len(prefix) == 1 {
			return nil, ErrEmptyPrefix
		}
		msg.Prefix = prefix[1:]
	}

	rest = strings.TrimLeft(rest, " ")
	msg.Command, rest = nextToken(rest)
	if msg.Command == "" {
		return nil, ErrNoCommand
	}

	for rest != "" {
		if rest[0] == ':' {
			if len(rest) == 1 {
				log.Printf("Warning: dropping empty trailing parameter in %q", line)
				break
			}
			msg.Params = append(msg.Params, rest[1:])
			msg.Trailing = true
			break
		}

		var tok string
		tok, rest = nextToken(rest)
		if tok == "" {
			log.Printf("Warning: skipping empty parameter in %q", line)
			continue
		}
		msg.Params = append(msg.Params, tok)
	}

	return msg, nil
}

// nextToken returns the text before the first space and the text after it.
func nextToken(s string) (string, string) {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// Serialize renders the message without its terminator. Middle parameters
// must be non-empty, space free and must not start with ':'.
func (m *RawMessage) Serialize() (string, error) {
	var sb strings.Builder

	if m.Prefix != "" {
		if strings.ContainsAny(m.Prefix, " \r\n\x00") {
			return "", fmt.Errorf("%w: prefix %q", ErrInvalidParam, m.Prefix)
		}
		sb.WriteString(":")
		sb.WriteString(m.Prefix)
		sb.WriteString(" ")
	}

	if m.Command == "" || strings.ContainsAny(m.Command, " :\r\n\x00") {
		return "", fmt.Errorf("%w: command %q", ErrInvalidParam, m.Command)
	}
	sb.WriteString(m.Command)

	for i, p := range m.Params {
		sb.WriteString(" ")
		if m.Trailing && i == len(m.Params)-1 {
			if strings.ContainsAny(p, "\r\n\x00") {
				return "", fmt.Errorf("%w: trailing %q", ErrInvalidParam, p)
			}
			sb.WriteString(":")
			sb.WriteString(p)
			break
		}
		if p == "" || p[0] == ':' || strings.ContainsAny(p, " \r\n\x00") {
			return "", fmt.Errorf("%w: %q", ErrInvalidParam, p)
		}
		sb.WriteString(p)
	}

	if sb.Len()+len(CRLF) > MaxLineLength {
		return "", fmt.Errorf("%w: %d bytes", ErrLineLength, sb.Len()+len(CRLF))
	}
	return sb.String(), nil
}

// Command is one variant of the closed request/reply catalog.
type Command interface {
	// Verb is the wire token: the command word for requests, the
	// three-digit code for numeric replies.
	Verb() string
	// Args returns the wire parameters, or ErrNotSerializable for commands
	// or shapes this server never emits.
	Args() (Args, error)
}

// Args is the wire form of a command's parameters.
type Args struct {
	Values []string
	// Trailing marks the last value for the ":" form.
	Trailing bool
}

func middle(values ...string) Args {
	return Args{Values: values}
}

func withText(text string, values ...string) Args {
	out := make([]string, 0, len(values)+1)
	out = append(out, values...)
	return Args{Values: append(out, text), Trailing: true}
}

// Message is a parsed or outbound protocol message.
type Message struct {
	Prefix  string
	Command Command
}

// NewMessage returns a message without a prefix.
func NewMessage(cmd Command) *Message {
	return &Message{Command: cmd}
}

// Parse parses a CRLF-terminated line into a typed message.
func Parse(line string) (*Message, error) {
	raw, err := ParseRaw(line)
	if err != nil {
		return nil, err
	}
	cmd, err := resolve(raw)
	if err != nil {
		return nil, err
	}
	return &Message{Prefix: raw.Prefix, Command: cmd}, nil
}

// ParseFrame parses a line whose terminator was already removed by a Decoder.
func ParseFrame(frame string) (*Message, error) {
	return Parse(frame + CRLF)
}

// Serialize renders the message without its terminator.
func (m *Message) Serialize() (string, error) {
	if m.Command == nil {
		return "", ErrNoCommand
	}
	args, err := m.Command.Args()
	if err != nil {
		return "", fmt.Errorf("%s: %w", m.Command.Verb(), err)
	}
	raw := RawMessage{
		Prefix:   m.Prefix,
		Command:  m.Command.Verb(),
		Params:   args.Values,
		Trailing: args.Trailing,
	}
	return raw.Serialize()
}

// String renders the message for logs; unserializable messages fall back
// to a Go representation.
func (m *Message) String() string {
	s, err := m.Serialize()
	if err != nil {
		return fmt.Sprintf("%#v", m.Command)
	}
	return s
}

// ParseHostmask splits nick!user@host.
func ParseHostmask(mask string) (nick, user, host string) {
	if i := strings.IndexByte(mask, '@'); i >= 0 {
		host = mask[i+1:]
		mask = mask[:i]
	}
	if i := strings.IndexByte(mask, '!'); i >= 0 {
		user = mask[i+1:]
		mask = mask[:i]
	}
	return mask, user, host
}

// FormatHostmask joins nick, user and host into nick!user@host.
func FormatHostmask(nick, user, host string) string {
	return nick + "!" + user + "@" + host
}
