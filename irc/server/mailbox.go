package server

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/presbrey/ircd/irc"
)

// OverflowPolicy decides what happens when a mailbox is full.
type OverflowPolicy int

const (
	// OverflowDisconnect marks the mailbox overflowed so its connection
	// closes the link. Nothing further is queued.
	OverflowDisconnect OverflowPolicy = iota
	// OverflowDrop discards the event and counts it.
	OverflowDrop
	// OverflowBlock waits for room, up to the block timeout. A mailbox
	// still full after that is marked overflowed like OverflowDisconnect.
	OverflowBlock
)

// DefaultBlockTimeout bounds how long OverflowBlock waits for room.
const DefaultBlockTimeout = 5 * time.Second

// ParseOverflowPolicy accepts "disconnect", "drop" or "block".
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(s) {
	case "disconnect", "":
		return OverflowDisconnect, nil
	case "drop":
		return OverflowDrop, nil
	case "block":
		return OverflowBlock, nil
	}
	return 0, fmt.Errorf("unknown mailbox overflow policy %q", s)
}

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowDrop:
		return "drop"
	case OverflowBlock:
		return "block"
	default:
		return "disconnect"
	}
}

// Event is a unit of asynchronous delivery to a connection.
type Event struct {
	Messages []*irc.Message
}

// Mailbox is a bounded multi-producer, single-consumer queue of events.
type Mailbox struct {
	events     chan Event
	policy     OverflowPolicy
	closed     chan struct{}
	overflowed chan struct{}
	closeOnce  sync.Once
	overOnce   sync.Once
	dropped    atomic.Int64
	onOverflow func()

	blockTimeout time.Duration
	abort        <-chan struct{} // releases blocked senders on shutdown
}

// NewMailbox returns a mailbox holding up to capacity events.
func NewMailbox(capacity int, policy OverflowPolicy) *Mailbox {
	if capacity < 1 {
		capacity = 1
	}
	return &Mailbox{
		events:       make(chan Event, capacity),
		policy:       policy,
		closed:       make(chan struct{}),
		overflowed:   make(chan struct{}),
		blockTimeout: DefaultBlockTimeout,
	}
}

// Deliver queues ev according to the overflow policy and reports whether
// it was queued. It must not be called while holding the registry lock.
func (m *Mailbox) Deliver(ev Event) bool {
	select {
	case <-m.closed:
		return false
	case <-m.overflowed:
		return false
	default:
	}

	select {
	case m.events <- ev:
		return true
	default:
	}

	switch m.policy {
	case OverflowBlock:
		return m.deliverBlocking(ev)
	case OverflowDrop:
		m.dropped.Add(1)
		if m.onOverflow != nil {
			m.onOverflow()
		}
		return false
	default:
		m.overflow()
		return false
	}
}

// deliverBlocking waits for room until the block timeout expires or the
// mailbox is closed or aborted.
func (m *Mailbox) deliverBlocking(ev Event) bool {
	timer := time.NewTimer(m.blockTimeout)
	defer timer.Stop()

	select {
	case m.events <- ev:
		return true
	case <-m.closed:
		return false
	case <-m.overflowed:
		return false
	case <-m.abort:
		return false
	case <-timer.C:
		m.overflow()
		return false
	}
}

func (m *Mailbox) overflow() {
	m.overOnce.Do(func() {
		close(m.overflowed)
		if m.onOverflow != nil {
			m.onOverflow()
		}
	})
}

// Events is the receive side, read only by the owning connection.
func (m *Mailbox) Events() <-chan Event {
	return m.events
}

// Overflowed is closed once a disconnect-policy mailbox has overflowed or
// a block-policy sender gave up waiting.
func (m *Mailbox) Overflowed() <-chan struct{} {
	return m.overflowed
}

// Dropped returns how many events a drop-policy mailbox discarded.
func (m *Mailbox) Dropped() int64 {
	return m.dropped.Load()
}

// Close stops further deliveries and releases blocked senders.
func (m *Mailbox) Close() {
	m.closeOnce.Do(func() {
		close(m.closed)
	})
}

// Len returns the number of queued events.
func (m *Mailbox) Len() int {
	return len(m.events)
}
