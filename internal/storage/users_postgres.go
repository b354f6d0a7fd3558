package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryTimeout is applied to every database query.
const queryTimeout = 5 * time.Second

// pgUsersRepository is the pgx-backed implementation of UsersRepository.
type pgUsersRepository struct {
	pool *pgxpool.Pool
}

// NewUsersRepository creates a UsersRepository backed by the given connection pool.
func NewUsersRepository(pool *pgxpool.Pool) UsersRepository {
	return &pgUsersRepository{pool: pool}
}

func (r *pgUsersRepository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = `
		SELECT id, username, password_hash, full_name, role, active, created_at
		FROM users
		WHERE username = $1
		  AND active`

	u, err := scanUser(r.pool.QueryRow(ctx, q, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: GetUserByUsername: %w", err)
	}
	return u, nil
}

func (r *pgUsersRepository) GetUserByID(ctx context.Context, id int32) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = `
		SELECT id, username, password_hash, full_name, role, active, created_at
		FROM users
		WHERE id = $1
		  AND active`

	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: GetUserByID: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// pgRefreshTokensRepository is the pgx-backed implementation of RefreshTokensRepository.
type pgRefreshTokensRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshTokensRepository creates a RefreshTokensRepository backed by the given pool.
func NewRefreshTokensRepository(pool *pgxpool.Pool) RefreshTokensRepository {
	return &pgRefreshTokensRepository{pool: pool}
}

func (r *pgRefreshTokensRepository) StoreRefreshToken(ctx context.Context, tokenHash string, userID int32, expiresAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = `
		INSERT INTO refresh_tokens (token_hash, user_id, expires_at, revoked)
		VALUES ($1, $2, $3, FALSE)`

	if _, err := r.pool.Exec(ctx, q, tokenHash, userID, expiresAt); err != nil {
		return fmt.Errorf("storage: StoreRefreshToken: %w", err)
	}
	return nil
}

func (r *pgRefreshTokensRepository) GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = `
		SELECT token_hash, user_id, expires_at, revoked
		FROM refresh_tokens
		WHERE token_hash = $1`

	var t RefreshToken
	err := r.pool.QueryRow(ctx, q, tokenHash).Scan(&t.TokenHash, &t.UserID, &t.ExpiresAt, &t.Revoked)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: GetRefreshToken: %w", err)
	}
	return &t, nil
}

func (r *pgRefreshTokensRepository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE token_hash = $1`

	if _, err := r.pool.Exec(ctx, q, tokenHash); err != nil {
		return fmt.Errorf("storage: RevokeRefreshToken: %w", err)
	}
	return nil
}
