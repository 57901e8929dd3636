package redis

import (
	"context"
	"fmt"
	"time"
)

const revokedPrefix = "revoked:"

// RevocationStore remembers signed-out access tokens by their jti until
// they would have expired anyway.
type RevocationStore struct {
	client *Client
}

// NewRevocationStore creates a new revocation store
func NewRevocationStore(client *Client) *RevocationStore {
	return &RevocationStore{client: client}
}

// Revoke marks jti as revoked for ttl. Non-positive ttl is a no-op since the
// token is already expired.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.rdb.Set(ctx, revokedPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.rdb.Exists(ctx, revokedPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}
