package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openfleet/mileage-api/internal/middleware"
	"github.com/openfleet/mileage-api/internal/service"
	"github.com/openfleet/mileage-api/internal/storage"
)

// authUserID extracts the authenticated user's ID from the gin context.
// Returns 0 and sends a 401 if the value is missing.
func authUserID(c *gin.Context) (int32, bool) {
	uid, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return 0, false
	}
	id, ok := uid.(int32)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid auth context"})
		return 0, false
	}
	return id, true
}

// authRole returns the authenticated user's role, or "" when absent.
func authRole(c *gin.Context) string {
	return c.GetString(middleware.ContextKeyRole)
}

type submitExpenseRequest struct {
	EmployeeName string  `json:"employee_name" binding:"required"`
	Date         string  `json:"date" binding:"required"` // YYYY-MM-DD
	Type         string  `json:"type" binding:"required"`
	Amount       float64 `json:"amount"`
	Mileage      float64 `json:"mileage"`
}

// SubmitExpense handles POST /api/v1/expenses
//
// Request body:
//
//	{"employee_name":"Dana","date":"2026-08-30","type":"fuel","amount":42.5,"mileage":240}
//
// The expense is created in pending status regardless of the body.
//
// Response 201: the created expense.
// Response 400: malformed body, bad date, or invalid fields.
func (h *Handler) SubmitExpense(c *gin.Context) {
	userID, ok := authUserID(c)
	if !ok {
		return
	}

	var req submitExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "employee_name, date, and type are required"})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be formatted YYYY-MM-DD"})
		return
	}

	created, err := h.expenseService.Submit(c.Request.Context(), &storage.Expense{
		UserID:       userID,
		EmployeeName: req.EmployeeName,
		Date:         date,
		Type:         req.Type,
		Amount:       req.Amount,
		Mileage:      req.Mileage,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidExpense) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record expense"})
		return
	}

	c.JSON(http.StatusCreated, expenseJSON(created))
}

// ListExpenses handles GET /api/v1/expenses
//
// Managers see every expense; drivers see only their own.
func (h *Handler) ListExpenses(c *gin.Context) {
	userID, ok := authUserID(c)
	if !ok {
		return
	}

	var (
		expenses []storage.Expense
		err      error
	)
	if authRole(c) == "manager" {
		expenses, err = h.expenseService.ListAll(c.Request.Context())
	} else {
		expenses, err = h.expenseService.ListForUser(c.Request.Context(), userID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list expenses"})
		return
	}

	out := make([]gin.H, 0, len(expenses))
	for i := range expenses {
		out = append(out, expenseJSON(&expenses[i]))
	}
	c.JSON(http.StatusOK, gin.H{"expenses": out})
}

// GetExpense handles GET /api/v1/expenses/:id
//
// Drivers may only fetch their own expenses; managers may fetch any.
func (h *Handler) GetExpense(c *gin.Context) {
	userID, ok := authUserID(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a UUID"})
		return
	}

	expense, err := h.expenseService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrExpenseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch expense"})
		return
	}

	if authRole(c) != "manager" && expense.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return
	}

	c.JSON(http.StatusOK, expenseJSON(expense))
}

type setExpenseStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetExpenseStatus handles PUT /api/v1/expenses/:id/status (manager only,
// enforced by route middleware).
//
// Request body:
//
//	{"status":"approved"}   // or "rejected"
func (h *Handler) SetExpenseStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a UUID"})
		return
	}

	var req setExpenseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	expense, err := h.expenseService.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be 'approved' or 'rejected'"})
		case errors.Is(err, service.ErrExpenseNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "expense not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update expense"})
		}
		return
	}

	c.JSON(http.StatusOK, expenseJSON(expense))
}

// EstimateCost handles GET /api/v1/expenses/estimate
//
// Query params:
//   - miles     (required) trip distance in miles
//   - insurance (optional) flat insurance amount to include, default 0
//
// Response 200:
//
//	{"miles":240,"gas":29.6,"maintenance":2.4,"insurance":50,"total":82}
func (h *Handler) EstimateCost(c *gin.Context) {
	miles, ok := parseRequiredFloat(c, "miles")
	if !ok {
		return
	}
	if miles < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "miles must be non-negative"})
		return
	}

	insurance := 0.0
	if raw := c.Query("insurance"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "insurance must be a non-negative number"})
			return
		}
		insurance = v
	}

	c.JSON(http.StatusOK, service.EstimateCost(miles, insurance))
}

// expenseJSON shapes one expense for API responses.
func expenseJSON(e *storage.Expense) gin.H {
	return gin.H{
		"id":            e.ID,
		"user_id":       e.UserID,
		"employee_name": e.EmployeeName,
		"date":          e.Date.Format("2006-01-02"),
		"type":          e.Type,
		"amount":        e.Amount,
		"mileage":       e.Mileage,
		"status":        e.Status,
		"created_at":    e.CreatedAt,
	}
}
