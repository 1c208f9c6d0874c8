// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify provides transient, non-blocking notifications.
//
// Notifications auto-dismiss after a per-kind duration and never interrupt
// input. The Center keeps the newest few for presentation layers to render;
// Writer prints them as lines for non-interactive commands.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// =============================================================================
// NOTIFICATION TYPES
// =============================================================================

// Kind classifies a notification.
type Kind int

const (
	// KindInfo is informational.
	KindInfo Kind = iota
	// KindError reports a failed operation.
	KindError
	// KindWarning reports something degraded but usable.
	KindWarning
	// KindSuccess confirms a completed operation.
	KindSuccess
)

// String returns the kind's lowercase name.
func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindWarning:
		return "warning"
	case KindSuccess:
		return "success"
	default:
		return "info"
	}
}

// Default auto-dismiss durations. Errors stay longest so they can be read.
const (
	InfoDuration    = 4 * time.Second
	WarningDuration = 6 * time.Second
	ErrorDuration   = 8 * time.Second
)

// MaxVisible is how many notifications the Center keeps at once.
const MaxVisible = 5

// DurationFor returns the default lifetime of a kind.
func DurationFor(k Kind) time.Duration {
	switch k {
	case KindError:
		return ErrorDuration
	case KindWarning:
		return WarningDuration
	default:
		return InfoDuration
	}
}

// Notification is one transient message.
type Notification struct {
	ID        int
	Kind      Kind
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// Expired reports whether n should no longer be shown at now.
func (n Notification) Expired(now time.Time) bool {
	return now.Sub(n.CreatedAt) >= n.Duration
}

// Remaining returns how long n stays visible after now.
func (n Notification) Remaining(now time.Time) time.Duration {
	if d := n.Duration - now.Sub(n.CreatedAt); d > 0 {
		return d
	}
	return 0
}

// Notifier receives notifications.
type Notifier interface {
	Notify(kind Kind, message string)
}

// Discard is a Notifier that drops everything.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Kind, string) {}

// =============================================================================
// CENTER
// =============================================================================

// Center holds the active notifications, newest first.
type Center struct {
	mu       sync.Mutex
	items    []Notification
	nextID   int
	now      func() time.Time
	duration func(Kind) time.Duration
}

// CenterOption configures a Center.
type CenterOption func(*Center)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CenterOption {
	return func(c *Center) { c.now = now }
}

// WithErrorDuration overrides how long error notifications stay up.
func WithErrorDuration(d time.Duration) CenterOption {
	return func(c *Center) {
		if d <= 0 {
			return
		}
		c.duration = func(k Kind) time.Duration {
			if k == KindError {
				return d
			}
			return DurationFor(k)
		}
	}
}

// NewCenter creates an empty center.
func NewCenter(opts ...CenterOption) *Center {
	c := &Center{
		nextID:   1,
		now:      time.Now,
		duration: DurationFor,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify implements Notifier.
func (c *Center) Notify(kind Kind, message string) {
	c.Add(kind, message)
}

// Add records a notification and returns its ID.
func (c *Center) Add(kind Kind, message string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := Notification{
		ID:        c.nextID,
		Kind:      kind,
		Message:   message,
		CreatedAt: c.now(),
		Duration:  c.duration(kind),
	}
	c.nextID++

	c.items = append([]Notification{n}, c.items...)
	if len(c.items) > MaxVisible {
		c.items = c.items[:MaxVisible]
	}
	return n.ID
}

// Dismiss removes a notification early.
func (c *Center) Dismiss(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Active prunes expired notifications and returns a copy of the rest.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	kept := c.items[:0]
	for _, n := range c.items {
		if !n.Expired(now) {
			kept = append(kept, n)
		}
	}
	c.items = kept

	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Latest returns the newest notification without pruning.
func (c *Center) Latest() (Notification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return Notification{}, false
	}
	return c.items[0], true
}

// Clear removes everything.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// =============================================================================
// WRITER
// =============================================================================

// Writer prints each notification as one line, e.g. "error: Vector store
// unavailable".
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter creates a Writer on out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Notify implements Notifier.
func (w *Writer) Notify(kind Kind, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s: %s\n", kind, message)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(kind Kind, message string) {
	for _, n := range m {
		n.Notify(kind, message)
	}
}
