// Package notify delivers short user-facing messages (toasts).
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// Variant selects how a notification is presented
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a single toast
type Notification struct {
	Title       string
	Description string
	Variant     Variant
}

// Notifier shows notifications. Notify never blocks on user interaction.
type Notifier interface {
	Notify(n Notification)
}

// Info builds a default notification
func Info(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDefault}
}

// Error builds a destructive notification
func Error(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDestructive}
}

// Console writes notifications to a terminal, red for destructive ones.
type Console struct {
	mu    sync.Mutex
	out   io.Writer
	title *color.Color
	err   *color.Color
}

// NewConsole creates a console notifier writing to out (stderr when nil)
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stderr
	}
	return &Console{
		out:   out,
		title: color.New(color.FgGreen, color.Bold),
		err:   color.New(color.FgRed, color.Bold),
	}
}

// Notify prints n, in red when destructive
func (c *Console) Notify(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	head := c.title
	if n.Variant == VariantDestructive {
		head = c.err
	}
	head.Fprint(c.out, n.Title)
	if n.Description != "" {
		fmt.Fprintf(c.out, ": %s", n.Description)
	}
	fmt.Fprintln(c.out)
}

// LogNotifier forwards notifications to a zerolog logger
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that writes to logger
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs n at warn level when destructive, info otherwise
func (l *LogNotifier) Notify(n Notification) {
	ev := l.logger.Info()
	if n.Variant == VariantDestructive {
		ev = l.logger.Warn()
	}
	ev.Str("title", n.Title).Msg(n.Description)
}

// Recorder keeps every notification in memory
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify records n
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Last returns the most recent notification, if any
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Multi fans a notification out to several notifiers
type Multi []Notifier

// Notify fans n out to every notifier in order
func (m Multi) Notify(n Notification) {
	for _, notifier := range m {
		notifier.Notify(n)
	}
}
