package backend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/Rrens/chat-archive/internal/security"
)

// SessionStore persists the signed-in session between runs
type SessionStore interface {
	Load() (*domain.AuthSession, error)
	Save(session *domain.AuthSession) error
	Clear() error
}

// FileSessionStore keeps the session in an AES-GCM sealed file
type FileSessionStore struct {
	path      string
	encryptor *security.Encryptor
}

// NewFileSessionStore creates a store that keeps the session encrypted at path
func NewFileSessionStore(path string, encryptor *security.Encryptor) *FileSessionStore {
	return &FileSessionStore{path: path, encryptor: encryptor}
}

// Load returns nil without error when no session was saved
func (s *FileSessionStore) Load() (*domain.AuthSession, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session domain.AuthSession
	if err := s.encryptor.DecryptJSON(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decrypt session: %w", err)
	}
	return &session, nil
}

// Save encrypts and writes the session with owner-only permissions
func (s *FileSessionStore) Save(session *domain.AuthSession) error {
	data, err := s.encryptor.EncryptJSON(session)
	if err != nil {
		return fmt.Errorf("failed to encrypt session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the session file
func (s *FileSessionStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// MemorySessionStore keeps the session in memory only
type MemorySessionStore struct {
	mu      sync.Mutex
	session *domain.AuthSession
}

func (s *MemorySessionStore) Load() (*domain.AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, nil
}

func (s *MemorySessionStore) Save(session *domain.AuthSession) error {
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Clear() error {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
	return nil
}
