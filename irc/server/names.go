package server

import (
	"strings"

	"github.com/presbrey/ircd/irc"
)

// Casefold maps a nickname or channel name to its registry key using the
// RFC 1459 casemapping, where []\~ are the upper-case forms of {}|^.
func Casefold(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			ch += 'a' - 'A'
		case ch == '[':
			ch = '{'
		case ch == ']':
			ch = '}'
		case ch == '\\':
			ch = '|'
		case ch == '~':
			ch = '^'
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}

// IsValidNickname checks length and the RFC character classes.
func IsValidNickname(nick string) bool {
	if len(nick) < 1 || len(nick) > 30 {
		return false
	}

	for i, ch := range nick {
		// First character can't be a digit or a dash
		if i == 0 && ((ch >= '0' && ch <= '9') || ch == '-') {
			return false
		}

		if !((ch >= 'A' && ch <= 'Z') ||
			(ch >= 'a' && ch <= 'z') ||
			(ch >= '0' && ch <= '9') ||
			strings.ContainsRune("-_[]{}|\\^`", ch)) {
			return false
		}
	}

	return true
}

// IsChannelName reports whether a target names a channel rather than a user.
func IsChannelName(name string) bool {
	return len(name) > 0 && (name[0] == '#' || name[0] == '&')
}

// IsValidChannelName checks the prefix, length and forbidden characters.
func IsValidChannelName(name string) bool {
	if len(name) < 2 || len(name) > 50 || !IsChannelName(name) {
		return false
	}

	// Can't contain spaces, ASCII 7 (bell), commas, colons, or NULL bytes
	return !strings.ContainsAny(name, " ,:\x00\x07")
}

// IsValidChannelKey reports whether key can be carried as a single middle
// parameter of MODE and JOIN.
func IsValidChannelKey(key string) bool {
	if key == "" || len(key) > 23 || key[0] == ':' {
		return false
	}
	return !strings.ContainsAny(key, " ,\x00\r\n")
}

// NormalizeMask completes a partial hostmask with wildcards, so "bob"
// becomes "bob!*@*" and "*@host" becomes "*!*@host".
func NormalizeMask(mask string) string {
	nick, user, host := irc.ParseHostmask(mask)
	if nick == "" {
		nick = "*"
	}
	if user == "" {
		user = "*"
	}
	if host == "" {
		host = "*"
	}
	return irc.FormatHostmask(nick, user, host)
}

// MatchMask matches s against a mask where '*' matches any run of
// characters and '?' matches exactly one. Both sides are casefolded.
func MatchMask(mask, s string) bool {
	mask, s = Casefold(mask), Casefold(s)

	// Iterative glob with single-star backtracking.
	var mi, si int
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case mi < len(mask) && (mask[mi] == '?' || mask[mi] == s[si]):
			mi++
			si++
		case mi < len(mask) && mask[mi] == '*':
			star = mi
			mark = si
			mi++
		case star >= 0:
			mi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for mi < len(mask) && mask[mi] == '*' {
		mi++
	}
	return mi == len(mask)
}
