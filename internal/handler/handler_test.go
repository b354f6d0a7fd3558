package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openfleet/mileage-api/internal/geo"
	"github.com/openfleet/mileage-api/internal/geocode"
	"github.com/openfleet/mileage-api/internal/middleware"
	"github.com/openfleet/mileage-api/internal/routing"
	"github.com/openfleet/mileage-api/internal/service"
	"github.com/openfleet/mileage-api/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	nyc = geo.Coordinate{Lat: 40.7128, Lon: -74.0060}
	la  = geo.Coordinate{Lat: 34.0522, Lon: -118.2437}
)

// fakeGeocoder serves canned candidate lists keyed by normalized query.
type fakeGeocoder struct {
	byQuery map[string][]geocode.Candidate
}

func (g *fakeGeocoder) Candidates(_ context.Context, query string) ([]geocode.Candidate, error) {
	return g.byQuery[geocode.Normalize(query)], nil
}

// fakeResolver maps endpoint text to a coordinate, or reports no match.
type fakeResolver struct {
	known map[string]geo.Coordinate
}

func (r *fakeResolver) ResolveSingle(_ context.Context, address string) (geo.Coordinate, error) {
	c, ok := r.known[geocode.Normalize(address)]
	if !ok {
		return geo.Coordinate{}, fmt.Errorf("resolve %q: %w", address, geocode.ErrNotFound)
	}
	return c, nil
}

// fakeRouter returns a fixed result or a fixed error.
type fakeRouter struct {
	result *routing.Result
	err    error
}

func (r *fakeRouter) Route(context.Context, routing.Request) (*routing.Result, error) {
	return r.result, r.err
}

// memExpenses is an in-memory ExpensesRepository.
type memExpenses struct {
	items map[uuid.UUID]*storage.Expense
}

func newMemExpenses() *memExpenses {
	return &memExpenses{items: make(map[uuid.UUID]*storage.Expense)}
}

func (m *memExpenses) CreateExpense(_ context.Context, e *storage.Expense) (*storage.Expense, error) {
	cp := *e
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	cp.CreatedAt = time.Now()
	m.items[cp.ID] = &cp
	return &cp, nil
}

func (m *memExpenses) GetExpense(_ context.Context, id uuid.UUID) (*storage.Expense, error) {
	return m.items[id], nil
}

func (m *memExpenses) ListExpenses(_ context.Context) ([]storage.Expense, error) {
	out := make([]storage.Expense, 0, len(m.items))
	for _, e := range m.items {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memExpenses) ListExpensesByUser(_ context.Context, userID int32) ([]storage.Expense, error) {
	all, _ := m.ListExpenses(context.Background())
	out := all[:0]
	for _, e := range all {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memExpenses) UpdateExpenseStatus(_ context.Context, id uuid.UUID, status string) (*storage.Expense, error) {
	e, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	e.Status = status
	cp := *e
	return &cp, nil
}

// stubAuth injects auth context values the way JWTAuth would.
func stubAuth(userID int32, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID)
		c.Set(middleware.ContextKeyUsername, "test")
		c.Set(middleware.ContextKeyRole, role)
		c.Next()
	}
}

type fixture struct {
	handler  *Handler
	expenses *memExpenses
	router   *fakeRouter
}

func newFixture() *fixture {
	fr := &fakeRouter{result: &routing.Result{
		DistanceM: 16093.4,
		Geometry:  [][2]float64{{-74.0060, 40.7128}, {-118.2437, 34.0522}},
	}}
	resolver := &fakeResolver{known: map[string]geo.Coordinate{
		"new york":    nyc,
		"los angeles": la,
	}}
	gc := &fakeGeocoder{byQuery: map[string][]geocode.Candidate{
		"paris": {{Label: "Paris, TX", Coordinate: geo.Coordinate{Lat: 33.66, Lon: -95.55}, CountryCode: "US"}},
		"springfield": {
			{Label: "Springfield, IL", CountryCode: "US"},
			{Label: "Springfield, MA", CountryCode: "US"},
			{Label: "Springfield, MO", CountryCode: "US"},
		},
	}}
	expenses := newMemExpenses()

	h := New(
		gc,
		service.NewTripService(resolver, fr),
		service.NewExpenseService(expenses),
		10*time.Millisecond,
	)
	return &fixture{handler: h, expenses: expenses, router: fr}
}

func (f *fixture) engine(userID int32, role string) *gin.Engine {
	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/geocode", f.handler.Geocode)
	api.GET("/trips/route", f.handler.ComputeTrip)

	authed := api.Group("")
	authed.Use(stubAuth(userID, role))
	authed.POST("/expenses", f.handler.SubmitExpense)
	authed.GET("/expenses", f.handler.ListExpenses)
	authed.GET("/expenses/estimate", f.handler.EstimateCost)
	authed.GET("/expenses/:id", f.handler.GetExpense)
	authed.PUT("/expenses/:id/status", middleware.RequireRole("manager"), f.handler.SetExpenseStatus)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, decoded
}

func TestComputeTripRouted(t *testing.T) {
	f := newFixture()
	r := f.engine(1, "driver")

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/trips/route?origin=New+York&destination=Los+Angeles", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %v", w.Code, body)
	}
	if got := body["source"]; got != "routed" {
		t.Errorf("source = %v, want routed", got)
	}
	miles, _ := body["distance_miles"].(float64)
	if miles < 9.99 || miles > 10.01 {
		t.Errorf("distance_miles = %v, want ~10", miles)
	}
	path, _ := body["path"].([]any)
	if len(path) != 2 {
		t.Errorf("path length = %d, want 2", len(path))
	}
}

func TestComputeTripFallback(t *testing.T) {
	f := newFixture()
	f.router.result = nil
	f.router.err = routing.ErrRouteUnavailable
	r := f.engine(1, "driver")

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/trips/route?origin=New+York&destination=Los+Angeles", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %v", w.Code, body)
	}
	if got := body["source"]; got != "estimated" {
		t.Errorf("source = %v, want estimated", got)
	}
	miles, _ := body["distance_miles"].(float64)
	if miles < 2444.6 || miles > 2446.6 {
		t.Errorf("distance_miles = %v, want ~2445.6", miles)
	}
}

func TestComputeTripErrors(t *testing.T) {
	f := newFixture()
	r := f.engine(1, "driver")

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing both", "/api/v1/trips/route", http.StatusBadRequest},
		{"missing destination", "/api/v1/trips/route?origin=New+York", http.StatusBadRequest},
		{"unknown origin", "/api/v1/trips/route?origin=Atlantis&destination=Los+Angeles", http.StatusNotFound},
		{"unknown destination", "/api/v1/trips/route?origin=New+York&destination=Atlantis", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := doJSON(t, r, http.MethodGet, tt.path, nil)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestGeocodeEndpoint(t *testing.T) {
	f := newFixture()
	r := f.engine(1, "driver")

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/geocode?q=Paris", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	cands, _ := body["candidates"].([]any)
	if len(cands) != 1 {
		t.Fatalf("candidates = %v, want 1 entry", body["candidates"])
	}

	// Unknown query yields an empty list, not null and not an error.
	w, body = doJSON(t, r, http.MethodGet, "/api/v1/geocode?q=nowhere", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if cands, ok := body["candidates"].([]any); !ok || len(cands) != 0 {
		t.Errorf("candidates = %v, want empty list", body["candidates"])
	}

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/geocode?q=+", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank q: status = %d, want 400", w.Code)
	}
}

func TestGeocodeLimit(t *testing.T) {
	f := newFixture()
	r := f.engine(1, "driver")

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/geocode?q=Springfield&limit=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := len(body["candidates"].([]any)); got != 2 {
		t.Errorf("candidates = %d, want 2", got)
	}

	for _, bad := range []string{"0", "11", "two"} {
		w, _ := doJSON(t, r, http.MethodGet, "/api/v1/geocode?q=Springfield&limit="+bad, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", bad, w.Code)
		}
	}
}

func TestSubmitAndGetExpense(t *testing.T) {
	f := newFixture()
	r := f.engine(7, "driver")

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/expenses", gin.H{
		"employee_name": "Dana",
		"date":          "2026-08-30",
		"type":          "fuel",
		"amount":        42.5,
		"mileage":       240.0,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %v", w.Code, body)
	}
	if got := body["status"]; got != storage.StatusPending {
		t.Errorf("status field = %v, want pending", got)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatal("response has no id")
	}

	w, body = doJSON(t, r, http.MethodGet, "/api/v1/expenses/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: status = %d, want 200; body %v", w.Code, body)
	}
	if got := body["employee_name"]; got != "Dana" {
		t.Errorf("employee_name = %v, want Dana", got)
	}
}

func TestSubmitExpenseValidation(t *testing.T) {
	f := newFixture()
	r := f.engine(7, "driver")

	tests := []struct {
		name string
		body gin.H
	}{
		{"missing fields", gin.H{"amount": 10.0}},
		{"bad date", gin.H{"employee_name": "Dana", "date": "30/08/2026", "type": "fuel"}},
		{"negative amount", gin.H{"employee_name": "Dana", "date": "2026-08-30", "type": "fuel", "amount": -5.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := doJSON(t, r, http.MethodPost, "/api/v1/expenses", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestListExpensesByRole(t *testing.T) {
	f := newFixture()

	seed := func(userID int32) {
		_, err := f.expenses.CreateExpense(context.Background(), &storage.Expense{
			UserID:       userID,
			EmployeeName: fmt.Sprintf("user-%d", userID),
			Date:         time.Now(),
			Type:         "fuel",
			Status:       storage.StatusPending,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	seed(1)
	seed(1)
	seed(2)

	w, body := doJSON(t, f.engine(1, "driver"), http.MethodGet, "/api/v1/expenses", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("driver list: status = %d", w.Code)
	}
	if got := len(body["expenses"].([]any)); got != 2 {
		t.Errorf("driver sees %d expenses, want 2", got)
	}

	w, body = doJSON(t, f.engine(9, "manager"), http.MethodGet, "/api/v1/expenses", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("manager list: status = %d", w.Code)
	}
	if got := len(body["expenses"].([]any)); got != 3 {
		t.Errorf("manager sees %d expenses, want 3", got)
	}
}

func TestGetExpenseOwnership(t *testing.T) {
	f := newFixture()
	created, err := f.expenses.CreateExpense(context.Background(), &storage.Expense{
		UserID:       1,
		EmployeeName: "Dana",
		Date:         time.Now(),
		Type:         "fuel",
		Status:       storage.StatusPending,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	path := "/api/v1/expenses/" + created.ID.String()

	w, _ := doJSON(t, f.engine(2, "driver"), http.MethodGet, path, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("other driver: status = %d, want 403", w.Code)
	}

	w, _ = doJSON(t, f.engine(9, "manager"), http.MethodGet, path, nil)
	if w.Code != http.StatusOK {
		t.Errorf("manager: status = %d, want 200", w.Code)
	}
}

func TestSetExpenseStatus(t *testing.T) {
	f := newFixture()
	created, err := f.expenses.CreateExpense(context.Background(), &storage.Expense{
		UserID:       1,
		EmployeeName: "Dana",
		Date:         time.Now(),
		Type:         "fuel",
		Status:       storage.StatusPending,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	path := "/api/v1/expenses/" + created.ID.String() + "/status"

	w, _ := doJSON(t, f.engine(1, "driver"), http.MethodPut, path, gin.H{"status": "approved"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("driver: status = %d, want 403", w.Code)
	}

	mgr := f.engine(9, "manager")

	w, body := doJSON(t, mgr, http.MethodPut, path, gin.H{"status": "approved"})
	if w.Code != http.StatusOK {
		t.Fatalf("manager: status = %d, want 200; body %v", w.Code, body)
	}
	if got := body["status"]; got != storage.StatusApproved {
		t.Errorf("status field = %v, want approved", got)
	}

	w, _ = doJSON(t, mgr, http.MethodPut, path, gin.H{"status": "pending"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status: status = %d, want 400", w.Code)
	}

	w, _ = doJSON(t, mgr, http.MethodPut, "/api/v1/expenses/"+uuid.NewString()+"/status", gin.H{"status": "approved"})
	if w.Code != http.StatusNotFound {
		t.Errorf("missing expense: status = %d, want 404", w.Code)
	}
}

func TestEstimateCost(t *testing.T) {
	f := newFixture()
	r := f.engine(1, "driver")

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/expenses/estimate?miles=240&insurance=50", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %v", w.Code, body)
	}
	if got := body["gas"].(float64); got < 29.59 || got > 29.61 {
		t.Errorf("gas = %v, want 29.60", got)
	}
	if got := body["total"].(float64); got < 81.99 || got > 82.01 {
		t.Errorf("total = %v, want 82.00", got)
	}

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/expenses/estimate?insurance=50", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing miles: status = %d, want 400", w.Code)
	}
	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/expenses/estimate?miles=-1", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative miles: status = %d, want 400", w.Code)
	}
}
