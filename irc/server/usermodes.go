package server

import (
	"fmt"
	"reflect"
	"strings"
)

// UserModes represents the user modes for a client
type UserModes struct {
	Invisible     bool `mode:"i" desc:"invisible - hidden from NAMES queried by non-members"`
	Operator      bool `mode:"o" desc:"IRC operator - set by server"`
	ServerNotices bool `mode:"s" desc:"receives server notices"`
	Wallops       bool `mode:"w" desc:"receives wallops"`
}

// ModeChange is one flag of a mode string, with its parameter for channel
// modes that take one.
type ModeChange struct {
	Add   bool
	Mode  rune
	Param string
}

// UserModeFlags returns every recognized user mode letter.
func UserModeFlags() string {
	var sb strings.Builder
	typ := reflect.TypeOf(UserModes{})
	for i := 0; i < typ.NumField(); i++ {
		sb.WriteString(typ.Field(i).Tag.Get("mode"))
	}
	return sb.String()
}

// ParseUserModeString parses "+i-w" style strings. The string must start
// with a sign and every flag must be known, otherwise nothing is returned.
func ParseUserModeString(modeString string) ([]ModeChange, error) {
	if len(modeString) < 2 || (modeString[0] != '+' && modeString[0] != '-') {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModeFlag, modeString)
	}

	known := UserModeFlags()
	var changes []ModeChange
	add := true
	for _, ch := range modeString {
		switch {
		case ch == '+':
			add = true
		case ch == '-':
			add = false
		case strings.ContainsRune(known, ch):
			changes = append(changes, ModeChange{Add: add, Mode: ch})
		default:
			return nil, fmt.Errorf("%w: '%c' in %q", ErrUnknownModeFlag, ch, modeString)
		}
	}

	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: no flags in %q", ErrUnknownModeFlag, modeString)
	}
	return changes, nil
}

// Apply applies changes and returns the ones that were honored. Clients
// cannot grant themselves +o.
func (m *UserModes) Apply(changes []ModeChange) []ModeChange {
	var applied []ModeChange
	for _, c := range changes {
		if c.Mode == 'o' && c.Add {
			continue
		}
		if err := m.setModeByChar(c.Mode, c.Add); err != nil {
			continue
		}
		applied = append(applied, c)
	}
	return applied
}

// setModeByChar sets the field tagged with the given mode letter.
func (m *UserModes) setModeByChar(mode rune, value bool) error {
	val := reflect.ValueOf(m).Elem()
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		if typ.Field(i).Tag.Get("mode") == string(mode) {
			val.Field(i).SetBool(value)
			return nil
		}
	}

	return fmt.Errorf("no field found for mode %c", mode)
}

// HasMode checks if a specific mode is set
func (m UserModes) HasMode(mode rune) bool {
	val := reflect.ValueOf(m)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		if typ.Field(i).Tag.Get("mode") == string(mode) {
			return val.Field(i).Bool()
		}
	}

	return false
}

// String returns the compact mode string, e.g. "+iw", or "+" when empty.
func (m UserModes) String() string {
	modeStr := "+"
	val := reflect.ValueOf(m)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		if val.Field(i).Bool() {
			modeStr += typ.Field(i).Tag.Get("mode")
		}
	}

	return modeStr
}

// Description returns a human-readable description of all set modes
func (m UserModes) Description() string {
	var descriptions []string
	val := reflect.ValueOf(m)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		if !val.Field(i).Bool() {
			continue
		}
		field := typ.Field(i)
		descriptions = append(descriptions, fmt.Sprintf("+%s (%s)", field.Tag.Get("mode"), field.Tag.Get("desc")))
	}

	if len(descriptions) == 0 {
		return "No modes set"
	}

	return strings.Join(descriptions, ", ")
}

// FormatModeChanges renders changes as a mode string followed by the
// parameters of the flags that carry one.
func FormatModeChanges(changes []ModeChange) (string, []string) {
	var sb strings.Builder
	var params []string
	sign := byte(0)
	for _, c := range changes {
		want := byte('-')
		if c.Add {
			want = '+'
		}
		if want != sign {
			sb.WriteByte(want)
			sign = want
		}
		sb.WriteRune(c.Mode)
		if c.Param != "" {
			params = append(params, c.Param)
		}
	}
	return sb.String(), params
}
