package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/openfleet/mileage-api/internal/geocode"
)

// Geocode handles GET /api/v1/geocode
//
// Query params:
//   - q     (required) free-text address to look up
//   - limit (optional) maximum candidates to return, 1..10; default all
//
// Response 200:
//
//	{"query":"paris","candidates":[{"label":"...","coordinate":{"lat":..,"lon":..},"country_code":"US"},...]}
//
// An empty candidate list is a normal response, not an error; lookup failures
// upstream also surface as an empty list.
//
// Response 400: missing q or invalid limit.
func (h *Handler) Geocode(c *gin.Context) {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q query parameter is required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 10 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 10"})
			return
		}
		limit = v
	}

	cands, err := h.geocoder.Candidates(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "geocoding failed"})
		return
	}

	if cands == nil {
		cands = []geocode.Candidate{}
	}
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"query":      q,
		"candidates": cands,
	})
}
