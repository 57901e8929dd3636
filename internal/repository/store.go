// Package repository groups the row stores used by the backend server.
package repository

import (
	"context"

	"github.com/Rrens/chat-archive/internal/domain"
)

// Store bundles the repositories of one storage driver
type Store struct {
	Driver   string
	Users    domain.UserRepository
	Profiles domain.ProfileRepository
	Services domain.ServiceConnectionRepository
	Chats    domain.ChatRepository
	Counter  domain.RowCounter

	ping  func(ctx context.Context) error
	close func()
}

// NewStore assembles a Store; ping and close belong to the underlying pool.
func NewStore(driver string, ping func(ctx context.Context) error, close func()) *Store {
	return &Store{Driver: driver, ping: ping, close: close}
}

// Ping verifies storage connectivity
func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the underlying pool
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}
