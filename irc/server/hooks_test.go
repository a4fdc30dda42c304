package server

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooksPriority(t *testing.T) {
	h := NewHooks()
	var order []string

	h.RegisterWithPriority(EventRegister, func(ev *HookEvent) error {
		order = append(order, "late")
		return nil
	}, 10)
	h.RegisterWithPriority(EventRegister, func(ev *HookEvent) error {
		order = append(order, "early")
		return nil
	}, -5)
	h.Register(EventRegister, func(ev *HookEvent) error {
		order = append(order, "default")
		return nil
	})

	assert.Nil(t, h.Run(&HookEvent{Kind: EventRegister}))
	assert.Equal(t, []string{"early", "default", "late"}, order)
	assert.Equal(t, 3, h.Count(EventRegister))
	assert.Equal(t, 0, h.Count(EventConnect))
}

func TestHooksErrorsAndPanics(t *testing.T) {
	h := NewHooks()
	ran := false

	h.Register(EventCommand, func(ev *HookEvent) error {
		return errors.New("rejected")
	})
	h.Register(EventCommand, func(ev *HookEvent) error {
		panic("boom")
	})
	h.Register(EventCommand, func(ev *HookEvent) error {
		ran = true
		return nil
	})

	errs := h.Run(&HookEvent{Kind: EventCommand})
	require.Len(t, errs, 2)
	assert.True(t, ran, "later hooks still run")

	var messages []string
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	assert.Contains(t, messages, "rejected")
	assert.Contains(t, messages[0]+messages[1], "panic in hook")
}

func TestHooksNil(t *testing.T) {
	var h *Hooks
	assert.Nil(t, h.Run(&HookEvent{Kind: EventConnect}))
	assert.Equal(t, "disconnect", EventDisconnect.String())
	assert.Equal(t, "event(9)", EventKind(9).String())
}
