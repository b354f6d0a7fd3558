// Package handler contains the gin HTTP handlers for the API surface.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openfleet/mileage-api/internal/geocode"
	"github.com/openfleet/mileage-api/internal/service"
)

// Handler holds the domain dependencies for all HTTP handlers.
// A single Handler is shared across all route groups; individual methods are
// registered as gin handler functions.
type Handler struct {
	geocoder       geocode.Geocoder
	tripService    *service.TripService
	expenseService *service.ExpenseService
	suggestWindow  time.Duration
}

// New creates a Handler with the given dependencies. suggestWindow is the
// debounce interval for the streaming suggestion endpoint; zero selects the
// default.
func New(
	geocoder geocode.Geocoder,
	tripService *service.TripService,
	expenseService *service.ExpenseService,
	suggestWindow time.Duration,
) *Handler {
	return &Handler{
		geocoder:       geocoder,
		tripService:    tripService,
		expenseService: expenseService,
		suggestWindow:  suggestWindow,
	}
}

// parseRequiredFloat reads a required float64 query parameter. On failure it
// writes a 400 response and returns ok=false.
func parseRequiredFloat(c *gin.Context, name string) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " query parameter is required"})
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be a valid number"})
		return 0, false
	}
	return v, true
}
