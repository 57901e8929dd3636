package archive

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Rrens/chat-archive/internal/browser"
	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/Rrens/chat-archive/internal/notify"
)

const (
	TitleServiceUpdated = "Service updated"
	TitleServiceError   = "Error"

	MsgServiceUpdated = "Your service connection has been updated successfully."
	MsgServiceFailed  = "Failed to update service connection"
)

// ServiceStore persists per-user provider connection flags
type ServiceStore interface {
	ListServices(ctx context.Context) ([]domain.AIService, error)
	UpsertService(ctx context.Context, name domain.ServiceName, connected bool) (*domain.ServiceConnection, error)
}

// ServiceSettings is the provider list shown in settings. Changes are
// applied locally first and rolled back when the store rejects them.
type ServiceSettings struct {
	store    ServiceStore
	notifier notify.Notifier
	opener   browser.Opener
	links    *ConnectLinks
	logger   zerolog.Logger

	mu       sync.Mutex
	services []domain.AIService
}

// NewServiceSettings creates settings holding every known service, all
// disconnected until Load.
func NewServiceSettings(store ServiceStore, notifier notify.Notifier, opener browser.Opener, links *ConnectLinks, logger zerolog.Logger) *ServiceSettings {
	return &ServiceSettings{
		store:    store,
		notifier: notifier,
		opener:   opener,
		links:    links,
		logger:   logger,
		services: domain.DefaultAIServices(),
	}
}

// Services returns a copy of the local state
func (s *ServiceSettings) Services() []domain.AIService {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AIService(nil), s.services...)
}

// Load replaces the local state with the persisted one
func (s *ServiceSettings) Load(ctx context.Context) error {
	remote, err := s.store.ListServices(ctx)
	if err != nil {
		return fmt.Errorf("failed to load services: %w", err)
	}

	services := domain.DefaultAIServices()
	for _, r := range remote {
		for i := range services {
			if services[i].Name == r.Name {
				services[i].IsConnected = r.IsConnected
			}
		}
	}

	s.mu.Lock()
	s.services = services
	s.mu.Unlock()
	return nil
}

// Toggle flips the connection flag of name
func (s *ServiceSettings) Toggle(ctx context.Context, name domain.ServiceName) (domain.AIService, error) {
	current, err := s.get(name)
	if err != nil {
		return domain.AIService{}, err
	}
	return s.set(ctx, name, !current.IsConnected)
}

// Connect opens the provider's sign-in page and marks the service
// connected. A browser failure is logged and does not stop the update.
func (s *ServiceSettings) Connect(ctx context.Context, name domain.ServiceName) (domain.AIService, error) {
	if _, err := s.get(name); err != nil {
		return domain.AIService{}, err
	}

	if s.links != nil && s.opener != nil {
		url, err := s.links.URL(name)
		if err != nil {
			return domain.AIService{}, err
		}
		if err := s.opener.Open(url); err != nil {
			s.logger.Warn().Err(err).Str("service", string(name)).Msg("Failed to open provider page")
		}
	}

	return s.set(ctx, name, true)
}

func (s *ServiceSettings) set(ctx context.Context, name domain.ServiceName, connected bool) (domain.AIService, error) {
	prev, next := s.swap(name, connected)

	if _, err := s.store.UpsertService(ctx, name, connected); err != nil {
		s.rollback(name, next.IsConnected, prev.IsConnected)

		msg := err.Error()
		if msg == "" {
			msg = MsgServiceFailed
		}
		s.logger.Warn().Err(err).Str("service", string(name)).Msg("Failed to update service connection")
		s.notifier.Notify(notify.Error(TitleServiceError, msg))
		return prev, fmt.Errorf("failed to update service: %w", err)
	}

	s.logger.Info().Str("service", string(name)).Bool("connected", connected).Msg("Service connection updated")
	s.notifier.Notify(notify.Info(TitleServiceUpdated, MsgServiceUpdated))
	return next, nil
}

func (s *ServiceSettings) get(name domain.ServiceName) (domain.AIService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, svc := range s.services {
		if svc.Name == name {
			return svc, nil
		}
	}
	return domain.AIService{}, domain.ErrUnknownService.WithMessage("Unknown AI service: " + string(name))
}

func (s *ServiceSettings) swap(name domain.ServiceName, connected bool) (prev, next domain.AIService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.services {
		if s.services[i].Name == name {
			prev = s.services[i]
			s.services[i].IsConnected = connected
			return prev, s.services[i]
		}
	}
	return prev, prev
}

// rollback restores from unless another change already replaced to
func (s *ServiceSettings) rollback(name domain.ServiceName, to, from bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.services {
		if s.services[i].Name == name && s.services[i].IsConnected == to {
			s.services[i].IsConnected = from
		}
	}
}
