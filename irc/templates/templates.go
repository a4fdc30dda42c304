// Package templates renders the human-readable bodies of the registration
// replies. Templates use {{tag}} placeholders and may be overridden from
// configuration.
package templates

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/valyala/fasttemplate"
)

// Template names
const (
	Welcome  = "welcome"
	YourHost = "yourhost"
	Created  = "created"
)

// Defaults are the built-in template bodies.
var Defaults = map[string]string{
	Welcome:  "Welcome to the {{network_name}} IRC Network {{nick}}",
	YourHost: "Your host is {{hostname}}, running version {{version}}",
	Created:  "This server was created {{created}}",
}

var (
	ErrUnknownTemplate = errors.New("unknown template")
	ErrMissingField    = errors.New("missing template field")
)

// Engine holds parsed templates. It is safe for concurrent use once built.
type Engine struct {
	templates map[string]*fasttemplate.Template
}

// New parses the default templates with overrides applied on top.
func New(overrides map[string]string) (*Engine, error) {
	e := &Engine{templates: make(map[string]*fasttemplate.Template)}

	sources := make(map[string]string, len(Defaults)+len(overrides))
	for name, body := range Defaults {
		sources[name] = body
	}
	for name, body := range overrides {
		sources[strings.ToLower(name)] = body
	}

	for name, body := range sources {
		t, err := fasttemplate.NewTemplate(body, "{{", "}}")
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", name, err)
		}
		e.templates[name] = t
	}
	return e, nil
}

// Render executes the named template. Every tag must be present in fields.
func (e *Engine) Render(name string, fields map[string]string) (string, error) {
	t, ok := e.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	return t.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		value, ok := fields[strings.TrimSpace(tag)]
		if !ok {
			return 0, fmt.Errorf("%w: %q in %s", ErrMissingField, tag, name)
		}
		return w.Write([]byte(value))
	})
}

// Names returns the names of every loaded template.
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
