package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/openfleet/mileage-api/internal/storage"
)

// Cost model constants for trip cost estimation.
const (
	gasPricePerGallon      = 2.96
	milesPerGallon         = 24.0
	maintenancePer100Miles = 1.0
)

// Sentinel errors for the expense service.
var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrInvalidStatus   = errors.New("invalid expense status")
	ErrInvalidExpense  = errors.New("invalid expense")
)

// CostBreakdown itemizes the estimated cost of driving a given distance.
type CostBreakdown struct {
	Miles       float64 `json:"miles"`
	Gas         float64 `json:"gas"`
	Maintenance float64 `json:"maintenance"`
	Insurance   float64 `json:"insurance"`
	Total       float64 `json:"total"`
}

// ExpenseService manages mileage expense records and cost estimates.
type ExpenseService struct {
	repo storage.ExpensesRepository
}

// NewExpenseService creates an ExpenseService.
func NewExpenseService(repo storage.ExpensesRepository) *ExpenseService {
	return &ExpenseService{repo: repo}
}

// Submit records a new expense in pending status.
func (s *ExpenseService) Submit(ctx context.Context, e *storage.Expense) (*storage.Expense, error) {
	if strings.TrimSpace(e.EmployeeName) == "" {
		return nil, fmt.Errorf("%w: employee name is required", ErrInvalidExpense)
	}
	if e.Amount < 0 || e.Mileage < 0 {
		return nil, fmt.Errorf("%w: amount and mileage must be non-negative", ErrInvalidExpense)
	}

	e.Status = storage.StatusPending
	created, err := s.repo.CreateExpense(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("expense: submit: %w", err)
	}
	return created, nil
}

// Get returns one expense.
func (s *ExpenseService) Get(ctx context.Context, id uuid.UUID) (*storage.Expense, error) {
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("expense: get %s: %w", id, err)
	}
	if e == nil {
		return nil, fmt.Errorf("expense %s: %w", id, ErrExpenseNotFound)
	}
	return e, nil
}

// ListAll returns every expense, newest first. Manager view.
func (s *ExpenseService) ListAll(ctx context.Context) ([]storage.Expense, error) {
	out, err := s.repo.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("expense: list all: %w", err)
	}
	return out, nil
}

// ListForUser returns one user's expenses, newest first. Driver view.
func (s *ExpenseService) ListForUser(ctx context.Context, userID int32) ([]storage.Expense, error) {
	out, err := s.repo.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("expense: list for user %d: %w", userID, err)
	}
	return out, nil
}

// SetStatus transitions an expense to approved or rejected.
func (s *ExpenseService) SetStatus(ctx context.Context, id uuid.UUID, status string) (*storage.Expense, error) {
	if status != storage.StatusApproved && status != storage.StatusRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	e, err := s.repo.UpdateExpenseStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("expense: set status: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("expense %s: %w", id, ErrExpenseNotFound)
	}
	return e, nil
}

// EstimateCost itemizes driving cost for a distance: fuel at the configured
// price and consumption, maintenance per 100 miles, plus a flat insurance
// amount supplied by the caller.
func EstimateCost(miles, insurance float64) CostBreakdown {
	gas := (miles / milesPerGallon) * gasPricePerGallon
	maintenance := (miles / 100.0) * maintenancePer100Miles
	return CostBreakdown{
		Miles:       miles,
		Gas:         gas,
		Maintenance: maintenance,
		Insurance:   insurance,
		Total:       gas + maintenance + insurance,
	}
}
