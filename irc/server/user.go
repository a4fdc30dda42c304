package server

import (
	"github.com/presbrey/ircd/irc"
)

// UserIdentifier holds the four registration fields of a client.
type UserIdentifier struct {
	Nickname string `json:"nickname"`
	Username string `json:"username"`
	Realname string `json:"realname"`
	Hostname string `json:"hostname"`
}

// Prefix returns nick!user@host.
func (u UserIdentifier) Prefix() string {
	return irc.FormatHostmask(u.Nickname, u.Username, u.Hostname)
}

// key is the registry key for the nickname.
func (u UserIdentifier) key() string {
	return Casefold(u.Nickname)
}

// User is the registry record of a registered client. It is only touched
// while the registry lock is held.
type User struct {
	id       UserIdentifier
	modes    UserModes
	channels []string // channel keys, in join order
	mailbox  *Mailbox
}

func newUser(id UserIdentifier, mailbox *Mailbox) *User {
	return &User{id: id, mailbox: mailbox}
}

func (u *User) addChannel(key string) {
	u.channels = append(u.channels, key)
}

func (u *User) removeChannel(key string) bool {
	for i, k := range u.channels {
		if k == key {
			u.channels = append(u.channels[:i], u.channels[i+1:]...)
			return true
		}
	}
	return false
}

// UserInfo is a point-in-time copy of a User for callers outside the registry.
type UserInfo struct {
	UserIdentifier
	Modes           string   `json:"modes"`
	ModeDescription string   `json:"mode_description"`
	Channels        []string `json:"channels"`
}
