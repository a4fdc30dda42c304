package server

import "errors"

// Registry errors. Connections map them onto numeric replies.
var (
	ErrNicknameInUse      = errors.New("nickname is already in use")
	ErrNoSuchNick         = errors.New("no such nick/channel")
	ErrNoSuchChannel      = errors.New("no such channel")
	ErrNotOnChannel       = errors.New("not on channel")
	ErrBadChannelKey      = errors.New("bad channel key")
	ErrBannedFromChannel  = errors.New("banned from channel")
	ErrAlreadyOnChannel   = errors.New("already on channel")
	ErrChanOpPrivsNeeded  = errors.New("channel operator privileges needed")
	ErrInternal           = errors.New("internal error")
	ErrConnectionExists   = errors.New("connection identity already registered")
	ErrUnknownModeFlag    = errors.New("unknown mode flag")
	ErrInvalidChannelName = errors.New("invalid channel name")
)
