package connection

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// NetworkStatus reports whether the device has a usable network link and
// announces changes.
type NetworkStatus interface {
	Online() bool
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// StaticNetwork is a NetworkStatus whose value is set explicitly.
type StaticNetwork struct {
	mu     sync.Mutex
	online bool
	subs   map[int]func(bool)
	nextID int
}

// NewStaticNetwork creates a network source reporting online
func NewStaticNetwork(online bool) *StaticNetwork {
	return &StaticNetwork{online: online, subs: make(map[int]func(bool))}
}

// Online reports the current value
func (s *StaticNetwork) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Set changes the status and notifies subscribers when it differs.
func (s *StaticNetwork) Set(online bool) {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return
	}
	s.online = online
	subs := make([]func(bool), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers fn for changes made through Set
func (s *StaticNetwork) Subscribe(fn func(online bool)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
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

// InterfaceMonitor polls the host's network interfaces and reports the
// device online while any non-loopback interface is up with an address.
type InterfaceMonitor struct {
	*StaticNetwork
	interval time.Duration
	logger   zerolog.Logger
	detect   func() bool
}

// NewInterfaceMonitor creates a monitor polling every interval. Run starts it.
func NewInterfaceMonitor(interval time.Duration, logger zerolog.Logger) *InterfaceMonitor {
	m := &InterfaceMonitor{
		interval: interval,
		logger:   logger,
		detect:   hasActiveInterface,
	}
	m.StaticNetwork = NewStaticNetwork(m.detect())
	return m
}

// Run polls until ctx is done.
func (m *InterfaceMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			online := m.detect()
			if online != m.Online() {
				m.logger.Info().Bool("online", online).Msg("Network status changed")
			}
			m.Set(online)
		}
	}
}

func hasActiveInterface() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
