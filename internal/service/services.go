package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/google/uuid"
)

// ServiceConnectionService manages the per-user AI service flags
type ServiceConnectionService struct {
	repo domain.ServiceConnectionRepository
}

// NewServiceConnectionService creates a new service connection service
func NewServiceConnectionService(repo domain.ServiceConnectionRepository) *ServiceConnectionService {
	return &ServiceConnectionService{repo: repo}
}

// List returns every provider with the caller's flag; providers without a
// stored row are disconnected.
func (s *ServiceConnectionService) List(ctx context.Context, userID uuid.UUID) ([]domain.AIService, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return domain.MergeServiceConnections(rows), nil
}

// Set stores the flag for one provider
func (s *ServiceConnectionService) Set(ctx context.Context, userID uuid.UUID, rawName string, connected bool) (*domain.ServiceConnection, error) {
	name, err := domain.ParseServiceName(rawName)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	conn := &domain.ServiceConnection{
		ID:          uuid.New(),
		UserID:      userID,
		ServiceName: name,
		IsConnected: connected,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Upsert(ctx, conn); err != nil {
		return nil, fmt.Errorf("failed to update service: %w", err)
	}
	return conn, nil
}
