// Package connection tracks whether the backend is usable and keeps that
// status current as the network changes.
package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Status is the aggregate connection status
type Status string

const (
	StatusTesting      Status = "testing"
	StatusConnected    Status = "connected"
	StatusPartial      Status = "partial"
	StatusDisconnected Status = "disconnected"
)

// State is a snapshot of the machine. Message is empty when connected.
type State struct {
	Status     Status
	Message    string
	RetryCount int
	Generation uint64
	UpdatedAt  time.Time
}

// Config holds the machine timings
type Config struct {
	ProbeTimeout    time.Duration
	CheckTimeout    time.Duration
	CycleTimeout    time.Duration
	RecheckInterval time.Duration
}

// DefaultConfig returns the timings used when a Config field is zero
func DefaultConfig() Config {
	return Config{
		ProbeTimeout:    3 * time.Second,
		CheckTimeout:    10 * time.Second,
		CycleTimeout:    15 * time.Second,
		RecheckInterval: 15 * time.Second,
	}
}

// Machine owns the connection status. Each test cycle runs under a
// generation number; a cycle may only write state while its generation is
// current, so starting a new cycle, going offline, canceling or closing
// all discard the results of older cycles.
type Machine struct {
	cfg     Config
	network NetworkStatus
	prober  Prober
	checker Checker
	logger  zerolog.Logger
	now     func() time.Time

	// lifecycle serializes Start, Stop and Close
	lifecycle sync.Mutex

	mu          sync.Mutex
	state       State
	gen         uint64
	aborted     bool
	started     bool
	closed      bool
	baseCtx     context.Context
	baseCancel  context.CancelFunc
	cycleCancel context.CancelFunc
	unsubNet    func()
	subs        map[int]func(State)
	nextSub     int
	wg          sync.WaitGroup
}

// NewMachine creates a machine in the testing state. Zero timings fall back
// to DefaultConfig and a nil network is treated as always online.
func NewMachine(cfg Config, network NetworkStatus, prober Prober, checker Checker, logger zerolog.Logger) *Machine {
	def := DefaultConfig()
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = def.CheckTimeout
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = def.CycleTimeout
	}
	if cfg.RecheckInterval <= 0 {
		cfg.RecheckInterval = def.RecheckInterval
	}
	if network == nil {
		network = NewStaticNetwork(true)
	}

	return &Machine{
		cfg:     cfg,
		network: network,
		prober:  prober,
		checker: checker,
		logger:  logger,
		now:     time.Now,
		state:   State{Status: StatusTesting, UpdatedAt: time.Now()},
		subs:    make(map[int]func(State)),
	}
}

// Start subscribes to network events, starts the recheck timer and runs the
// first test cycle. It is a no-op on a started or closed machine; a stopped
// machine starts again.
func (m *Machine) Start(ctx context.Context) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.baseCtx, m.baseCancel = context.WithCancel(ctx)
	base := m.baseCtx
	m.mu.Unlock()

	unsub := m.network.Subscribe(m.onNetworkChange)

	m.mu.Lock()
	m.unsubNet = unsub
	m.wg.Add(1)
	m.mu.Unlock()
	go m.recheckLoop(base)

	m.Test()
}

// Stop halts the cycle in flight, the recheck timer and the network
// subscription, and waits for them to finish. The last state is kept and
// a later Start resumes testing.
func (m *Machine) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.halt(false)
}

// Close stops every background activity and waits for it to finish.
// State is frozen afterwards.
func (m *Machine) Close() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.halt(true)
}

func (m *Machine) halt(closing bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if closing {
		m.closed = true
	}
	m.started = false
	m.gen++
	if m.cycleCancel != nil {
		m.cycleCancel()
		m.cycleCancel = nil
	}
	if m.baseCancel != nil {
		m.baseCancel()
		m.baseCancel = nil
	}
	unsub := m.unsubNet
	m.unsubNet = nil
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	m.wg.Wait()
}

// State returns the current snapshot
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for every state change. fn runs outside the
// machine's lock and may call State.
func (m *Machine) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Test starts a new cycle, superseding any cycle in flight.
func (m *Machine) Test() {
	m.mu.Lock()
	if m.closed || !m.started {
		m.mu.Unlock()
		return
	}
	m.gen++
	gen := m.gen
	if m.cycleCancel != nil {
		m.cycleCancel()
	}
	ctx, cancel := context.WithTimeout(m.baseCtx, m.cfg.CycleTimeout)
	m.cycleCancel = cancel
	m.aborted = false
	snap := m.setLocked(StatusTesting, "")
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Debug().Uint64("generation", gen).Msg("Connection test started")
	m.emit(snap)
	go m.runCycle(ctx, cancel, gen)
}

// Retry cancels the cycle in flight, or starts a new one when idle.
func (m *Machine) Retry() {
	m.mu.Lock()
	if m.closed || !m.started {
		m.mu.Unlock()
		return
	}
	if m.state.Status == StatusTesting {
		m.gen++
		if m.cycleCancel != nil {
			m.cycleCancel()
		}
		m.aborted = true
		snap := m.setLocked(StatusDisconnected, MsgCanceled)
		m.mu.Unlock()

		m.logger.Info().Msg("Connection test canceled")
		m.emit(snap)
		return
	}
	m.state.RetryCount++
	m.mu.Unlock()

	m.Test()
}

// MarkDisconnected forces the disconnected state, typically after a
// request failed for network reasons.
func (m *Machine) MarkDisconnected(message string) {
	if message == "" {
		message = MsgNetwork
	}
	m.forceDisconnected(message)
}

// Precheck is the gate run before talking to the backend. It does not
// change state.
func (m *Machine) Precheck(ctx context.Context) (bool, string) {
	if !m.network.Online() {
		return false, MsgOffline
	}
	if !m.prober.Probe(ctx, m.cfg.ProbeTimeout) {
		return false, MsgUnreachable
	}
	return true, ""
}

// WaitSettled blocks until the machine leaves the testing state or ctx is done.
func (m *Machine) WaitSettled(ctx context.Context) (State, error) {
	changed := make(chan struct{}, 1)
	unsub := m.Subscribe(func(State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsub()

	for {
		if s := m.State(); s.Status != StatusTesting {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return m.State(), ctx.Err()
		case <-changed:
		}
	}
}

func (m *Machine) onNetworkChange(online bool) {
	if !online {
		m.logger.Warn().Msg("Device went offline")
		m.forceDisconnected(MsgOffline)
		return
	}

	m.mu.Lock()
	retest := !m.closed && m.state.Status == StatusDisconnected
	m.mu.Unlock()

	if retest {
		m.logger.Info().Msg("Device back online, retesting connection")
		m.Test()
	}
}

func (m *Machine) forceDisconnected(message string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.gen++
	if m.cycleCancel != nil {
		m.cycleCancel()
	}
	snap := m.setLocked(StatusDisconnected, message)
	m.mu.Unlock()

	m.emit(snap)
}

func (m *Machine) recheckLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.RecheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.Lock()
			due := !m.closed && !m.aborted &&
				(m.state.Status == StatusPartial || m.state.Status == StatusDisconnected)
			m.mu.Unlock()

			if due {
				m.logger.Debug().Msg("Rechecking connection")
				m.Test()
			}
		}
	}
}

type outcome struct {
	status  Status
	message string
}

func (m *Machine) runCycle(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer m.wg.Done()
	defer cancel()

	done := make(chan outcome, 1)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		done <- m.cycle(ctx)
	}()

	select {
	case out := <-done:
		m.apply(gen, out.status, out.message)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			m.logger.Warn().Uint64("generation", gen).Msg("Connection test stalled")
			m.apply(gen, StatusDisconnected, MsgCycleTimeout)
		}
	}
}

func (m *Machine) cycle(ctx context.Context) outcome {
	if !m.prober.Probe(ctx, m.cfg.ProbeTimeout) {
		if !m.network.Online() {
			return outcome{StatusDisconnected, MsgOffline}
		}
		return outcome{StatusDisconnected, MsgUnreachable}
	}

	checkCtx, cancel := context.WithTimeout(ctx, m.cfg.CheckTimeout)
	defer cancel()

	res := m.checker.Check(checkCtx)
	switch {
	case res.Connected && !res.Partial:
		return outcome{StatusConnected, ""}
	case res.Partial:
		msg := res.Message
		if msg == "" {
			msg = MsgLimited
		}
		return outcome{StatusPartial, msg}
	default:
		return outcome{StatusDisconnected, res.Message}
	}
}

func (m *Machine) apply(gen uint64, status Status, message string) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		m.logger.Debug().Uint64("generation", gen).Msg("Discarding stale connection result")
		return
	}
	snap := m.setLocked(status, message)
	m.mu.Unlock()

	m.logger.Info().Str("status", string(status)).Str("message", message).Msg("Connection status changed")
	m.emit(snap)
}

func (m *Machine) setLocked(status Status, message string) State {
	if status == StatusConnected {
		message = ""
	}
	m.state.Status = status
	m.state.Message = message
	m.state.Generation = m.gen
	m.state.UpdatedAt = m.now()
	return m.state
}

func (m *Machine) emit(s State) {
	m.mu.Lock()
	subs := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
