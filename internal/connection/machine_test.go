package connection

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcProber func(ctx context.Context, timeout time.Duration) bool

func (f funcProber) Probe(ctx context.Context, timeout time.Duration) bool { return f(ctx, timeout) }

type funcChecker func(ctx context.Context) CheckResult

func (f funcChecker) Check(ctx context.Context) CheckResult { return f(ctx) }

func reachable() funcProber {
	return func(context.Context, time.Duration) bool { return true }
}

func unreachable() funcProber {
	return func(context.Context, time.Duration) bool { return false }
}

func healthy() funcChecker {
	return func(context.Context) CheckResult { return CheckResult{Connected: true, Reason: ReasonOK} }
}

func testConfig() Config {
	return Config{
		ProbeTimeout:    50 * time.Millisecond,
		CheckTimeout:    time.Second,
		CycleTimeout:    2 * time.Second,
		RecheckInterval: time.Hour,
	}
}

func newTestMachine(t *testing.T, cfg Config, net NetworkStatus, p Prober, c Checker) *Machine {
	t.Helper()
	m := NewMachine(cfg, net, p, c, zerolog.Nop())
	t.Cleanup(m.Close)
	return m
}

func settle(t *testing.T, m *Machine) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	s, err := m.WaitSettled(ctx)
	require.NoError(t, err)
	return s
}

func TestMachine_Connected(t *testing.T) {
	m := newTestMachine(t, testConfig(), NewStaticNetwork(true), reachable(), healthy())
	m.Start(context.Background())

	s := settle(t, m)
	assert.Equal(t, StatusConnected, s.Status)
	assert.Empty(t, s.Message)
}

func TestMachine_ProbeFailureSkipsHealthCheck(t *testing.T) {
	var checked atomic.Bool
	checker := funcChecker(func(context.Context) CheckResult {
		checked.Store(true)
		return CheckResult{Connected: true}
	})

	m := newTestMachine(t, testConfig(), NewStaticNetwork(true), unreachable(), checker)
	m.Start(context.Background())

	s := settle(t, m)
	assert.Equal(t, StatusDisconnected, s.Status)
	assert.Equal(t, MsgUnreachable, s.Message)
	assert.False(t, checked.Load())
}

func TestMachine_OfflineAtStart(t *testing.T) {
	prober := funcProber(func(context.Context, time.Duration) bool { return false })
	m := newTestMachine(t, testConfig(), NewStaticNetwork(false), prober, healthy())
	m.Start(context.Background())

	s := settle(t, m)
	assert.Equal(t, StatusDisconnected, s.Status)
	assert.Equal(t, MsgOffline, s.Message)
}

func TestMachine_PartialResult(t *testing.T) {
	checker := funcChecker(func(context.Context) CheckResult {
		return CheckResult{Partial: true, Message: MsgDegraded, Reason: ReasonDegraded}
	})
	m := newTestMachine(t, testConfig(), NewStaticNetwork(true), reachable(), checker)
	m.Start(context.Background())

	s := settle(t, m)
	assert.Equal(t, StatusPartial, s.Status)
	assert.Equal(t, MsgDegraded, s.Message)
}

func TestMachine_HardFailure(t *testing.T) {
	checker := funcChecker(func(context.Context) CheckResult {
		return CheckResult{Message: "Invalid API key", Reason: ReasonBackend}
	})
	m := newTestMachine(t, testConfig(), NewStaticNetwork(true), reachable(), checker)
	m.Start(context.Background())

	s := settle(t, m)
	assert.Equal(t, StatusDisconnected, s.Status)
	assert.Equal(t, "Invalid API key", s.Message)
}

func TestMachine_RetryWhileTestingCancels(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	checker := funcChecker(func(context.Context) CheckResult {
		<-release
		return CheckResult{Connected: true}
	})
	m := newTestMachine(t, testConfig(), NewStaticNetwork(true), reachable(), checker)
	m.Start(context.Background())
	require.Equal(t, StatusTesting, m.State().Status)

	m.Retry()

	s := m.State()
	assert.Equal(t, StatusDisconnected, s.Status)
	assert.Equal(t, MsgCanceled, s.Message)
	assert.Equal(t, 0, s.RetryCount)

	release <- struct{}{}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, MsgCanceled, m.State().Message)
}

func TestMachine_RetryWhenIdleStartsNewCycle(t *testing.T) {
	var calls atomic.Int32
	checker := funcChecker(func(context.Context) CheckResult {
		if calls.Add(1) == 1 {
			return CheckResult{Message: "down", Reason: ReasonBackend}
		}
		return CheckResult{Connected: true}
	})
	m := newTestMachine(t, testConfig(), NewStaticNetwork(true), reachable(), checker)
	m.Start(context.Background())
	require.Equal(t, StatusDisconnected, settle(t, m).Status)

	m.Retry()

	s := settle(t, m)
	assert.Equal(t, StatusConnected, s.Status)
	assert.Equal(t, 1, s.RetryCount)
}

func TestMachine_OfflineEventPreemptsCycle(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	network := NewStaticNetwork(true)
	var calls atomic.Int32
	checker := funcChecker(func(context.Context) CheckResult {
		if calls.Add(1) == 1 {
			<-release
		}
		return CheckResult{Connected: true}
	})
	m := newTestMachine(t, testConfig(), network, reachable(), checker)
	m.Start(context.Background())

	network.Set(false)
	s := m.State()
	assert.Equal(t, StatusDisconnected, s.Status)
	assert.Equal(t, MsgOffline, s.Message)

	release <- struct{}{}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StatusDisconnected, m.State().Status)

	network.Set(true)
	assert.Eventually(t, func() bool {
		return m.State().Status == StatusConnected
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMachine_StallGuard(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	checker := funcChecker(func(context.Context) CheckResult {
		<-release
		return CheckResult{Connected: true}
	})
	cfg := testConfig()
	cfg.CycleTimeout = 30 * time.Millisecond
	m := newTestMachine(t, cfg, NewStaticNetwork(true), reachable(), checker)
	m.Start(context.Background())

	s := settle(t, m)
	assert.Equal(t, StatusDisconnected, s.Status)
	assert.Equal(t, MsgCycleTimeout, s.Message)
}

func TestMachine_RecheckRecovers(t *testing.T) {
	var calls atomic.Int32
	checker := funcChecker(func(context.Context) CheckResult {
		if calls.Add(1) < 3 {
			return CheckResult{Partial: true, Message: MsgSlow, Reason: ReasonTimeout}
		}
		return CheckResult{Connected: true}
	})
	cfg := testConfig()
	cfg.RecheckInterval = 10 * time.Millisecond
	m := newTestMachine(t, cfg, NewStaticNetwork(true), reachable(), checker)
	m.Start(context.Background())

	assert.Eventually(t, func() bool {
		return m.State().Status == StatusConnected
	}, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestMachine_NoRecheckAfterCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	var calls atomic.Int32
	checker := funcChecker(func(context.Context) CheckResult {
		calls.Add(1)
		<-release
		return CheckResult{Connected: true}
	})
	cfg := testConfig()
	cfg.RecheckInterval = 10 * time.Millisecond
	m := newTestMachine(t, cfg, NewStaticNetwork(true), reachable(), checker)
	m.Start(context.Background())
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	m.Retry()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, MsgCanceled, m.State().Message)
}

func TestMachine_MarkDisconnectedDiscardsInflight(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	checker := funcChecker(func(context.Context) CheckResult {
		<-release
		return CheckResult{Connected: true}
	})
	m := newTestMachine(t, testConfig(), NewStaticNetwork(true), reachable(), checker)
	m.Start(context.Background())

	m.MarkDisconnected("")
	release <- struct{}{}
	time.Sleep(20 * time.Millisecond)

	s := m.State()
	assert.Equal(t, StatusDisconnected, s.Status)
	assert.Equal(t, MsgNetwork, s.Message)
}

func TestMachine_CloseFreezesState(t *testing.T) {
	m := newTestMachine(t, testConfig(), NewStaticNetwork(true), reachable(), healthy())
	m.Start(context.Background())
	settle(t, m)

	m.Close()
	m.MarkDisconnected("late")
	m.Test()
	m.Close()

	assert.Equal(t, StatusConnected, m.State().Status)
}

func TestMachine_StopThenStartRetests(t *testing.T) {
	var down atomic.Bool
	checker := funcChecker(func(context.Context) CheckResult {
		if down.Load() {
			return CheckResult{Reason: ReasonBackend, Message: "backend down"}
		}
		return CheckResult{Connected: true, Reason: ReasonOK}
	})
	network := NewStaticNetwork(true)
	m := newTestMachine(t, testConfig(), network, reachable(), checker)

	m.Start(context.Background())
	assert.Equal(t, StatusConnected, settle(t, m).Status)

	m.Stop()
	down.Store(true)
	m.Retry()
	network.Set(false)
	network.Set(true)
	assert.Equal(t, StatusConnected, m.State().Status, "stopped machine ignores retries and network events")

	m.Start(context.Background())
	s := settle(t, m)
	assert.Equal(t, StatusDisconnected, s.Status)
	assert.Equal(t, "backend down", s.Message)
}

func TestMachine_CloseWaitsForCheck(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	checker := funcChecker(func(ctx context.Context) CheckResult {
		close(started)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return CheckResult{}
	})
	m := newTestMachine(t, testConfig(), NewStaticNetwork(true), reachable(), checker)
	m.Start(context.Background())
	<-started

	m.Close()
	assert.True(t, finished.Load())
}

func TestMachine_Subscribe(t *testing.T) {
	m := newTestMachine(t, testConfig(), NewStaticNetwork(true), reachable(), healthy())

	seen := make(chan Status, 8)
	unsub := m.Subscribe(func(s State) { seen <- s.Status })
	m.Start(context.Background())
	settle(t, m)
	unsub()

	assert.Equal(t, StatusTesting, <-seen)
	assert.Equal(t, StatusConnected, <-seen)
}

func TestMachine_Precheck(t *testing.T) {
	network := NewStaticNetwork(true)
	m := newTestMachine(t, testConfig(), network, reachable(), healthy())

	ok, msg := m.Precheck(context.Background())
	assert.True(t, ok)
	assert.Empty(t, msg)

	network.Set(false)
	ok, msg = m.Precheck(context.Background())
	assert.False(t, ok)
	assert.Equal(t, MsgOffline, msg)

	m2 := newTestMachine(t, testConfig(), NewStaticNetwork(true), unreachable(), healthy())
	ok, msg = m2.Precheck(context.Background())
	assert.False(t, ok)
	assert.Equal(t, MsgUnreachable, msg)
}
