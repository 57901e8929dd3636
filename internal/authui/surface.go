// Package authui is the view model behind the sign-in screen: it combines the
// connection status with the form state and gates submission on both.
package authui

import (
	"context"
	"errors"
	"sync"

	"github.com/Rrens/chat-archive/internal/connection"
	"github.com/rs/zerolog"
)

// ErrFormDisabled is returned by Submit while the form cannot be used
var ErrFormDisabled = errors.New("form is disabled")

// Mode selects between signing in and creating an account
type Mode string

const (
	ModeSignIn Mode = "signin"
	ModeSignUp Mode = "signup"
)

// ViewState is everything the screen needs to render
type ViewState struct {
	Status      connection.Status
	Message     string
	Headline    string
	Title       string
	SubmitLabel string
	ToggleLabel string
	FormEnabled bool
	Submitting  bool
	ShowRetry   bool
	RetryLabel  string
	Mode        Mode
	RetryCount  int
}

// Machine is the connection machine as seen by the surface
type Machine interface {
	Start(ctx context.Context)
	Stop()
	State() connection.State
	Subscribe(fn func(connection.State)) (unsubscribe func())
	Retry()
}

// Authenticator performs the form's submit action
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string) error
}

// Surface tracks the sign-in screen. It may be opened and closed repeatedly;
// every Open starts a fresh connection test.
type Surface struct {
	machine Machine
	auth    Authenticator
	logger  zerolog.Logger

	mu         sync.Mutex
	mode       Mode
	submitting bool
	opened     bool
	unsub      func()
	subs       map[int]func(ViewState)
	nextSub    int
}

// NewSurface creates a closed surface in sign-in mode
func NewSurface(machine Machine, auth Authenticator, logger zerolog.Logger) *Surface {
	return &Surface{
		machine: machine,
		auth:    auth,
		logger:  logger,
		mode:    ModeSignIn,
		subs:    make(map[int]func(ViewState)),
	}
}

// Open starts connection testing for the lifetime of the screen
func (s *Surface) Open(ctx context.Context) {
	s.mu.Lock()
	if s.opened {
		s.mu.Unlock()
		return
	}
	s.opened = true
	s.mu.Unlock()

	unsub := s.machine.Subscribe(func(connection.State) { s.emit() })
	s.mu.Lock()
	s.unsub = unsub
	s.mu.Unlock()

	s.machine.Start(ctx)
}

// Close stops connection testing and detaches from the machine. The machine
// stays usable for the next Open.
func (s *Surface) Close() {
	s.mu.Lock()
	if !s.opened {
		s.mu.Unlock()
		return
	}
	s.opened = false
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.machine.Stop()
}

// View returns the current render state
func (s *Surface) View() ViewState {
	state := s.machine.State()

	s.mu.Lock()
	mode, submitting := s.mode, s.submitting
	s.mu.Unlock()

	v := ViewState{
		Status:      state.Status,
		Message:     state.Message,
		Mode:        mode,
		Submitting:  submitting,
		FormEnabled: state.Status != connection.StatusDisconnected && !submitting,
		ShowRetry:   state.Status != connection.StatusConnected,
		RetryLabel:  "Retry",
		RetryCount:  state.RetryCount,
	}

	switch state.Status {
	case connection.StatusConnected:
		v.Headline = "Connected to server"
	case connection.StatusPartial:
		v.Headline = orDefault(state.Message, "Partial connection to services")
	case connection.StatusTesting:
		v.Headline = "Testing connection..."
		v.RetryLabel = "Cancel"
	default:
		v.Headline = orDefault(state.Message, "Not connected to server")
	}

	if mode == ModeSignUp {
		v.Title = "Create an account"
		v.SubmitLabel = "Sign up"
		v.ToggleLabel = "Already have an account? Sign in"
		if submitting {
			v.SubmitLabel = "Creating account..."
		}
	} else {
		v.Title = "Sign in"
		v.SubmitLabel = "Sign in"
		v.ToggleLabel = "Don't have an account? Sign up"
		if submitting {
			v.SubmitLabel = "Signing in..."
		}
	}
	return v
}

// Subscribe registers fn for every view change
func (s *Surface) Subscribe(fn func(ViewState)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Submit signs in or signs up depending on the mode. It refuses while the
// connection is down or another submission is running.
func (s *Surface) Submit(ctx context.Context, email, password string) error {
	status := s.machine.State().Status

	s.mu.Lock()
	if s.submitting || status == connection.StatusDisconnected {
		s.mu.Unlock()
		return ErrFormDisabled
	}
	s.submitting = true
	mode := s.mode
	s.mu.Unlock()
	s.emit()

	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
		s.emit()
	}()

	s.logger.Debug().Str("mode", string(mode)).Msg("Submitting auth form")
	if mode == ModeSignUp {
		return s.auth.SignUp(ctx, email, password)
	}
	return s.auth.SignIn(ctx, email, password)
}

// ToggleMode switches between sign-in and sign-up. It is ignored while a
// submission is running.
func (s *Surface) ToggleMode() Mode {
	s.mu.Lock()
	if !s.submitting {
		if s.mode == ModeSignIn {
			s.mode = ModeSignUp
		} else {
			s.mode = ModeSignIn
		}
	}
	mode := s.mode
	s.mu.Unlock()

	s.emit()
	return mode
}

// SetMode selects the mode directly
func (s *Surface) SetMode(mode Mode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	s.emit()
}

// Retry cancels a running connection test or starts a new one
func (s *Surface) Retry() {
	s.machine.Retry()
}

func (s *Surface) emit() {
	v := s.View()

	s.mu.Lock()
	subs := make([]func(ViewState), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
