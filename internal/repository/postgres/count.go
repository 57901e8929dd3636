package postgres

import (
	"context"
	"fmt"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/google/uuid"
)

// RowCounter counts rows in whitelisted tables
type RowCounter struct {
	db *DB
}

// NewRowCounter creates a new row counter
func NewRowCounter(db *DB) *RowCounter {
	return &RowCounter{db: db}
}

// CountRows counts the caller's rows. Anonymous callers see no rows but the
// query still runs, so a success proves the table is readable.
func (r *RowCounter) CountRows(ctx context.Context, table string, userID *uuid.UUID) (int64, error) {
	if !domain.CountableTables[table] {
		return 0, domain.ErrUnknownTable.WithMessage("Unknown table: " + table)
	}

	owner := uuid.Nil
	if userID != nil {
		owner = *userID
	}

	// table is whitelisted above
	var count int64
	if err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table+" WHERE user_id = $1", owner).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}
