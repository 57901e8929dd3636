package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/google/uuid"
)

// ProfileService handles profile operations
type ProfileService struct {
	profiles domain.ProfileRepository
}

// NewProfileService creates a new profile service
func NewProfileService(profiles domain.ProfileRepository) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// Get returns the caller's profile, creating an empty one for accounts that
// predate profiles
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	now := time.Now().UTC()
	profile = &domain.Profile{ID: uuid.New(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

// Update applies the non-nil fields and returns the stored profile
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, update *domain.ProfileUpdate) (*domain.Profile, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.profiles.Update(ctx, userID, update); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.profiles.GetByUserID(ctx, userID)
}
