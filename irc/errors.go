package irc

import "errors"

// Parse and serialization errors. Callers match them with errors.Is; the
// returned errors wrap these with the offending command or value.
var (
	ErrLineLength      = errors.New("line length out of range")
	ErrMissingCRLF     = errors.New("line is not CRLF terminated")
	ErrOnlyPrefix      = errors.New("only prefix given")
	ErrEmptyPrefix     = errors.New("empty prefix")
	ErrNoCommand       = errors.New("no command given")
	ErrUnknownCommand  = errors.New("unrecognized command")
	ErrNeedMoreParams  = errors.New("not enough parameters")
	ErrTooManyParams   = errors.New("too many parameters")
	ErrBadInteger      = errors.New("bad integer")
	ErrNotSerializable = errors.New("command cannot be serialized")
	ErrInvalidParam    = errors.New("invalid parameter")
)
