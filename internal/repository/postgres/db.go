package postgres

import (
	"context"
	"fmt"

	"github.com/Rrens/chat-archive/internal/config"
	"github.com/Rrens/chat-archive/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the database connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB creates a new database connection pool
func NewDB(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping verifies database connectivity
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Store exposes the Postgres repositories as a repository.Store
func (db *DB) Store() *repository.Store {
	s := repository.NewStore("postgres", db.Ping, db.Close)
	s.Users = NewUserRepository(db)
	s.Profiles = NewProfileRepository(db)
	s.Services = NewServiceConnectionRepository(db)
	s.Chats = NewChatRepository(db)
	s.Counter = NewRowCounter(db)
	return s
}
