package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openfleet/mileage-api/internal/service"
)

// ComputeTrip handles GET /api/v1/trips/route
//
// Query params:
//   - origin      (required) free-text origin address
//   - destination (required) free-text destination address
//
// Response 200:
//
//	{"origin":{"lat":..,"lon":..},"destination":{..},"distance_miles":10.0,
//	 "source":"routed","path":[{"lat":..,"lon":..},...]}
//
// "source" is "routed" when the distance came from the routing service and
// "estimated" when it is a straight-line approximation (path is empty then).
//
// Response 400: missing query parameters.
// Response 404: origin or destination could not be resolved; the body says which.
// Response 502: trip could not be computed for any other reason.
func (h *Handler) ComputeTrip(c *gin.Context) {
	origin := c.Query("origin")
	destination := c.Query("destination")

	result, err := h.tripService.ComputeTrip(c.Request.Context(), origin, destination)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "origin and destination query parameters are required"})
		case errors.Is(err, service.ErrOriginNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "origin address could not be resolved"})
		case errors.Is(err, service.ErrDestinationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "destination address could not be resolved"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to compute trip"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
