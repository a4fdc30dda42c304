package server

import (
	"fmt"
	"log"
	"reflect"
	"runtime"
	"sort"
	"sync"

	"github.com/presbrey/ircd/irc"
)

// EventKind identifies a connection lifecycle event.
type EventKind int

const (
	EventConnect EventKind = iota
	EventRegister
	EventCommand
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventRegister:
		return "register"
	case EventCommand:
		return "command"
	case EventDisconnect:
		return "disconnect"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// HookEvent is passed to every hook registered for its Kind.
type HookEvent struct {
	Kind     EventKind
	ConnID   string
	Identity ConnectionIdentity
	User     UserIdentifier // zero until registration completes
	Message  *irc.Message   // EventCommand only
}

// Hook observes lifecycle events. Errors and panics are logged and never
// affect the connection.
type Hook func(ev *HookEvent) error

type hookInfo struct {
	name     string
	hook     Hook
	priority int64
}

// Hooks holds the registered hooks per event kind.
type Hooks struct {
	mu    sync.RWMutex
	hooks map[EventKind][]hookInfo
}

// NewHooks creates an empty hook set.
func NewHooks() *Hooks {
	return &Hooks{hooks: make(map[EventKind][]hookInfo)}
}

// Register adds a hook with default priority (0)
func (h *Hooks) Register(kind EventKind, hook Hook) {
	h.RegisterWithPriority(kind, hook, 0)
}

// RegisterWithPriority adds a hook; lower priorities run first.
func (h *Hooks) RegisterWithPriority(kind EventKind, hook Hook, priority int64) {
	name := runtime.FuncForPC(reflect.ValueOf(hook).Pointer()).Name()

	h.mu.Lock()
	defer h.mu.Unlock()

	list := append(h.hooks[kind], hookInfo{name: name, hook: hook, priority: priority})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].priority < list[j].priority
	})
	h.hooks[kind] = list
}

// Count returns the number of hooks registered for kind.
func (h *Hooks) Count(kind EventKind) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.hooks[kind])
}

// Run executes the hooks for ev.Kind in priority order and returns the
// errors keyed by hook name, or nil.
func (h *Hooks) Run(ev *HookEvent) map[string]error {
	if h == nil {
		return nil
	}

	h.mu.RLock()
	list := make([]hookInfo, len(h.hooks[ev.Kind]))
	copy(list, h.hooks[ev.Kind])
	h.mu.RUnlock()

	var errs map[string]error
	for _, info := range list {
		if err := runHook(info, ev); err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[info.name] = err
			log.Printf("Warning: %s hook %s: %v", ev.Kind, info.name, err)
		}
	}
	return errs
}

func runHook(info hookInfo, ev *HookEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in hook %s: %v", info.name, r)
		}
	}()
	return info.hook(ev)
}
