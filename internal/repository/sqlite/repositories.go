package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/chat-archive/internal/domain"
	"github.com/google/uuid"
)

// UserRepository handles user data access
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, email_confirmed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, strings.ToLower(user.Email), user.PasswordHash, user.EmailConfirmedAt, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = ?", strings.ToLower(email))
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	var user domain.User
	err := r.db.SQL.QueryRowContext(ctx, `
		SELECT id, email, password_hash, email_confirmed_at, created_at, updated_at
		FROM users WHERE `+where, arg,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.EmailConfirmedAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// EmailExists checks if an email is already registered
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.SQL.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, strings.ToLower(email),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// ConfirmEmail marks the user's email as confirmed
func (r *UserRepository) ConfirmEmail(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.SQL.ExecContext(ctx,
		`UPDATE users SET email_confirmed_at = COALESCE(email_confirmed_at, ?), updated_at = ? WHERE id = ?`,
		at, at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}
	return requireRow(res)
}

// ProfileRepository handles profile data access
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	_, err := r.db.SQL.ExecContext(ctx, `
		INSERT INTO profiles (id, user_id, full_name, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.FullName, p.AvatarURL, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetByUserID retrieves the profile of a user
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.SQL.QueryRowContext(ctx, `
		SELECT id, user_id, full_name, avatar_url, created_at, updated_at
		FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.ID, &p.UserID, &p.FullName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (r *ProfileRepository) Update(ctx context.Context, userID uuid.UUID, update *domain.ProfileUpdate) error {
	res, err := r.db.SQL.ExecContext(ctx, `
		UPDATE profiles
		SET full_name = COALESCE(?, full_name), avatar_url = COALESCE(?, avatar_url), updated_at = ?
		WHERE user_id = ?`,
		update.FullName, update.AvatarURL, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return requireRow(res)
}

// ServiceConnectionRepository handles per-user AI service flags
type ServiceConnectionRepository struct {
	db *DB
}

// NewServiceConnectionRepository creates a new service connection repository
func NewServiceConnectionRepository(db *DB) *ServiceConnectionRepository {
	return &ServiceConnectionRepository{db: db}
}

// ListByUser returns every service row of a user
func (r *ServiceConnectionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ServiceConnection, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, user_id, service_name, is_connected, created_at, updated_at
		FROM service_connections WHERE user_id = ? ORDER BY service_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list service connections: %w", err)
	}
	defer rows.Close()

	var conns []domain.ServiceConnection
	for rows.Next() {
		var c domain.ServiceConnection
		if err := rows.Scan(&c.ID, &c.UserID, &c.ServiceName, &c.IsConnected, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan service connection: %w", err)
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// Upsert creates or updates the row for (user, service)
func (r *ServiceConnectionRepository) Upsert(ctx context.Context, conn *domain.ServiceConnection) error {
	err := r.db.SQL.QueryRowContext(ctx, `
		INSERT INTO service_connections (id, user_id, service_name, is_connected, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, service_name)
		DO UPDATE SET is_connected = excluded.is_connected, updated_at = excluded.updated_at
		RETURNING id, created_at`,
		conn.ID, conn.UserID, conn.ServiceName, conn.IsConnected, conn.CreatedAt, conn.UpdatedAt,
	).Scan(&conn.ID, &conn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert service connection: %w", err)
	}
	return nil
}

// ChatRepository handles archived chat data access. Tags are stored as JSON.
type ChatRepository struct {
	db *DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create inserts a chat
func (r *ChatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	tags := chat.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = r.db.SQL.ExecContext(ctx, `
		INSERT INTO chats (id, user_id, title, preview, chat_date, source, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		chat.ID, chat.UserID, chat.Title, chat.Preview, chat.Date, chat.Source, string(encoded), chat.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

// ListByUser returns a user's chats, newest first
func (r *ChatRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Chat, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
		SELECT id, user_id, title, preview, chat_date, source, tags, created_at
		FROM chats WHERE user_id = ?
		ORDER BY chat_date DESC, created_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	var chats []domain.Chat
	for rows.Next() {
		var c domain.Chat
		var tags string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Preview, &c.Date, &c.Source, &tags, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// RowCounter counts rows in whitelisted tables
type RowCounter struct {
	db *DB
}

// NewRowCounter creates a new row counter
func NewRowCounter(db *DB) *RowCounter {
	return &RowCounter{db: db}
}

// CountRows counts rows of a whitelisted table, scoped to userID when set
func (r *RowCounter) CountRows(ctx context.Context, table string, userID *uuid.UUID) (int64, error) {
	if !domain.CountableTables[table] {
		return 0, domain.ErrUnknownTable.WithMessage("Unknown table: " + table)
	}

	owner := uuid.Nil
	if userID != nil {
		owner = *userID
	}

	var count int64
	if err := r.db.SQL.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE user_id = ?", owner).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
