// Package app wires the application together: database pool, migrations,
// geocoding and routing clients, services, and the HTTP engine.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openfleet/mileage-api/internal/config"
	"github.com/openfleet/mileage-api/internal/geocode"
	"github.com/openfleet/mileage-api/internal/handler"
	"github.com/openfleet/mileage-api/internal/middleware"
	"github.com/openfleet/mileage-api/internal/migrations"
	"github.com/openfleet/mileage-api/internal/routing"
	"github.com/openfleet/mileage-api/internal/service"
	"github.com/openfleet/mileage-api/internal/storage"
)

// DBError represents a database-related error.
type DBError struct {
	Op  string
	Err error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("db error during %q: %v", e.Op, e.Err)
}

func (e *DBError) Unwrap() error { return e.Err }

// App holds the application-level dependencies.
type App struct {
	DB     *pgxpool.Pool
	Router *gin.Engine
	cfg    *config.Config
}

// New initializes the application: connects to PostgreSQL, runs migrations,
// wires all domain dependencies, and configures the HTTP engine with routes.
func New(cfg *config.Config) (*App, error) {
	// --- Database pool ---
	poolCfg, err := pgxpool.ParseConfig(cfg.DBDSN)
	if err != nil {
		return nil, &DBError{Op: "parse_dsn", Err: err}
	}

	poolCfg.MaxConns = 20
	poolCfg.MaxConnLifetime = 30 * time.Second
	poolCfg.MaxConnIdleTime = 10 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &DBError{Op: "connect", Err: err}
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, &DBError{Op: "ping", Err: err}
	}

	log.Println("database connection pool established")

	// --- Migrations ---
	if err := migrations.Run(context.Background(), pool); err != nil {
		return nil, fmt.Errorf("app: run migrations: %w", err)
	}

	// --- Geocoding and routing clients ---
	geocoder := geocode.NewCachedGeocoder(
		geocode.NewPhotonGeocoder(cfg.PhotonBaseURL, cfg.CountryFilter), 0,
	)
	resolver := geocode.NewNominatimResolver(cfg.NominatimBaseURL)
	router := routing.NewMemoRouter(routing.NewOSRMRouter(cfg.OSRMBaseURL))

	// --- Domain services ---
	tripService := service.NewTripService(resolver, router)

	expensesRepo := storage.NewExpensesRepository(pool)
	expenseService := service.NewExpenseService(expensesRepo)

	usersRepo := storage.NewUsersRepository(pool)
	tokensRepo := storage.NewRefreshTokensRepository(pool)
	authService := service.NewAuthService(
		usersRepo, tokensRepo,
		cfg.JWTSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)

	// --- HTTP engine ---
	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := handler.New(geocoder, tripService, expenseService, cfg.SuggestWindow)
	ah := handler.NewAuthHandler(authService)

	// The suggest stream is a long-lived websocket; it must not inherit the
	// request deadline, so it is registered outside the Timeout group.
	engine.GET("/api/v1/geocode/suggest", h.SuggestStream)

	api := engine.Group("/api/v1")
	api.Use(middleware.Timeout(10 * time.Second))
	{
		// Geocoding and trips (no auth required).
		api.GET("/geocode", h.Geocode)
		api.GET("/trips/route", h.ComputeTrip)

		// Auth endpoints (no auth required to call these).
		auth := api.Group("/auth")
		{
			auth.POST("/login", ah.Login)
			auth.POST("/refresh", ah.Refresh)
			auth.POST("/logout", ah.Logout)
		}

		// Expenses: any authenticated user; status changes need manager role.
		expenses := api.Group("/expenses")
		expenses.Use(middleware.JWTAuth(authService))
		{
			expenses.POST("", h.SubmitExpense)
			expenses.GET("", h.ListExpenses)
			expenses.GET("/estimate", h.EstimateCost)
			expenses.GET("/:id", h.GetExpense)
			expenses.PUT("/:id/status", middleware.RequireRole("manager"), h.SetExpenseStatus)
		}
	}

	return &App{
		DB:     pool,
		Router: engine,
		cfg:    cfg,
	}, nil
}

// Shutdown gracefully closes the database pool.
func (a *App) Shutdown() {
	if a.DB != nil {
		a.DB.Close()
		log.Println("database connection pool closed")
	}
}
