package postgres

import (
	"context"
	"fmt"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/google/uuid"
)

// ServiceConnectionRepository handles per-user AI service flags
type ServiceConnectionRepository struct {
	db *DB
}

// NewServiceConnectionRepository creates a new service connection repository
func NewServiceConnectionRepository(db *DB) *ServiceConnectionRepository {
	return &ServiceConnectionRepository{db: db}
}

// ListByUser returns the stored rows of a user
func (r *ServiceConnectionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ServiceConnection, error) {
	query := `
		SELECT id, user_id, service_name, is_connected, created_at, updated_at
		FROM service_connections
		WHERE user_id = $1
		ORDER BY service_name
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list service connections: %w", err)
	}
	defer rows.Close()

	var conns []domain.ServiceConnection
	for rows.Next() {
		var c domain.ServiceConnection
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.ServiceName,
			&c.IsConnected,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan service connection: %w", err)
		}
		conns = append(conns, c)
	}

	return conns, rows.Err()
}

// Upsert writes the flag for (user, service), keeping a single row per pair.
// conn is updated with the stored row.
func (r *ServiceConnectionRepository) Upsert(ctx context.Context, conn *domain.ServiceConnection) error {
	query := `
		INSERT INTO service_connections (id, user_id, service_name, is_connected, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, service_name)
		DO UPDATE SET is_connected = EXCLUDED.is_connected, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		conn.ID,
		conn.UserID,
		conn.ServiceName,
		conn.IsConnected,
		conn.CreatedAt,
		conn.UpdatedAt,
	).Scan(&conn.ID, &conn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert service connection: %w", err)
	}

	return nil
}
