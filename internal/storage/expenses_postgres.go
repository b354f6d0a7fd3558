package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgExpensesRepository is the pgx-backed implementation of ExpensesRepository.
type pgExpensesRepository struct {
	pool *pgxpool.Pool
}

// NewExpensesRepository creates an ExpensesRepository backed by the given pool.
func NewExpensesRepository(pool *pgxpool.Pool) ExpensesRepository {
	return &pgExpensesRepository{pool: pool}
}

func (r *pgExpensesRepository) CreateExpense(ctx context.Context, e *Expense) (*Expense, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = StatusPending
	}

	const q = `
		INSERT INTO expenses (id, user_id, employee_name, expense_date, expense_type, amount, mileage, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, q,
		e.ID, e.UserID, e.EmployeeName, e.Date, e.Type, e.Amount, e.Mileage, e.Status,
	).Scan(&e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("storage: CreateExpense: %w", err)
	}
	return e, nil
}

func (r *pgExpensesRepository) GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = expenseSelect + ` WHERE id = $1`

	e, err := scanExpense(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: GetExpense: %w", err)
	}
	return e, nil
}

func (r *pgExpensesRepository) ListExpenses(ctx context.Context) ([]Expense, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = expenseSelect + ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("storage: ListExpenses: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

func (r *pgExpensesRepository) ListExpensesByUser(ctx context.Context, userID int32) ([]Expense, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = expenseSelect + ` WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("storage: ListExpensesByUser: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

func (r *pgExpensesRepository) UpdateExpenseStatus(ctx context.Context, id uuid.UUID, status string) (*Expense, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const q = `
		UPDATE expenses
		SET status = $2
		WHERE id = $1
		RETURNING id, user_id, employee_name, expense_date, expense_type, amount, mileage, status, created_at`

	e, err := scanExpense(r.pool.QueryRow(ctx, q, id, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: UpdateExpenseStatus: %w", err)
	}
	return e, nil
}

const expenseSelect = `
	SELECT id, user_id, employee_name, expense_date, expense_type, amount, mileage, status, created_at
	FROM expenses`

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.UserID, &e.EmployeeName, &e.Date, &e.Type, &e.Amount, &e.Mileage, &e.Status, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectExpenses(rows pgx.Rows) ([]Expense, error) {
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan expense: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate expenses: %w", err)
	}
	return out, nil
}
