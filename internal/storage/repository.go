// Package storage provides PostgreSQL-backed repository implementations.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is an account that can sign in. Role is either "driver" or "manager".
type User struct {
	ID           int32
	Username     string
	PasswordHash string
	FullName     string
	Role         string
	Active       bool
	CreatedAt    time.Time
}

// RefreshToken is a stored (hashed) refresh token.
type RefreshToken struct {
	TokenHash string
	UserID    int32
	ExpiresAt time.Time
	Revoked   bool
}

// Expense statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Expense is one submitted mileage expense record.
type Expense struct {
	ID           uuid.UUID
	UserID       int32
	EmployeeName string
	Date         time.Time
	Type         string // e.g. "fuel", "maintenance"
	Amount       float64
	Mileage      float64
	Status       string
	CreatedAt    time.Time
}

// UsersRepository defines operations on the users table.
type UsersRepository interface {
	// GetUserByUsername returns an active user, or (nil, nil) when absent.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserByID returns an active user by ID, or (nil, nil) when absent.
	GetUserByID(ctx context.Context, id int32) (*User, error)
}

// RefreshTokensRepository defines operations on stored refresh tokens.
type RefreshTokensRepository interface {
	StoreRefreshToken(ctx context.Context, tokenHash string, userID int32, expiresAt time.Time) error

	// GetRefreshToken returns the stored token, or (nil, nil) when absent.
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)

	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

// ExpensesRepository defines operations on the expenses table.
type ExpensesRepository interface {
	// CreateExpense inserts the expense and returns it with server-side
	// fields (CreatedAt) populated.
	CreateExpense(ctx context.Context, e *Expense) (*Expense, error)

	// GetExpense returns one expense, or (nil, nil) when absent.
	GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error)

	// ListExpenses returns all expenses, newest first.
	ListExpenses(ctx context.Context) ([]Expense, error)

	// ListExpensesByUser returns one user's expenses, newest first.
	ListExpensesByUser(ctx context.Context, userID int32) ([]Expense, error)

	// UpdateExpenseStatus transitions the expense to the given status.
	// Returns (nil, nil) when the expense does not exist.
	UpdateExpenseStatus(ctx context.Context, id uuid.UUID, status string) (*Expense, error)
}
