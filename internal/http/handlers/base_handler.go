// README: Base handler utilities (JSON helpers, error mapping, query parsing).
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"moto/internal/apperr"
	"moto/internal/http/middleware"
	"moto/internal/modules/ride"
	"moto/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

type partialResponse struct {
	Error  string     `json:"error"`
	Failed []string   `json:"failed"`
	Ride   *ride.Ride `json:"ride"`
}

// isValidID ensures IDs are alphanumeric and at most 32 chars (matches the ID generator).
func isValidID(v string) bool {
	if v == "" || len(v) > 32 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeServiceError maps an error kind onto an HTTP status. Unclassified
// errors are attached to the context for the access log and hidden from the client.
func writeServiceError(c *gin.Context, err error) {
	var partial *ride.PartialUpdateError
	if errors.As(err, &partial) {
		_ = c.Error(err)
		writeJSON(c, http.StatusInternalServerError, partialResponse{
			Error:  "ride updated but related records failed",
			Failed: partial.Failed,
			Ride:   partial.Ride,
		})
		return
	}
	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		writeError(c, http.StatusBadRequest, err.Error())
	case apperr.ErrUnauthorized:
		writeError(c, http.StatusUnauthorized, err.Error())
	case apperr.ErrForbidden:
		writeError(c, http.StatusForbidden, err.Error())
	case apperr.ErrNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	case apperr.ErrConflict:
		writeError(c, http.StatusConflict, err.Error())
	case apperr.ErrPrecondition:
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// bindOptionalJSON is bindJSON for endpoints whose body may be absent. An
// empty body, chunked or not, leaves dst untouched.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(c, http.StatusBadRequest, "invalid json")
	return false
}

func principal(c *gin.Context) types.Principal {
	p, _ := middleware.CallerPrincipal(c)
	return p
}

func pathID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid ride id")
		return "", false
	}
	return types.ID(id), true
}

// queryPoint reads a lng/lat pair. present is false when both are absent.
func queryPoint(c *gin.Context, lngKey, latKey string) (p types.Point, present bool, err error) {
	lngRaw, latRaw := c.Query(lngKey), c.Query(latKey)
	if lngRaw == "" && latRaw == "" {
		return types.Point{}, false, nil
	}
	lng, errLng := strconv.ParseFloat(lngRaw, 64)
	lat, errLat := strconv.ParseFloat(latRaw, 64)
	if errLng != nil || errLat != nil {
		return types.Point{}, true, apperr.Validation(lngKey + " and " + latKey + " must be numbers")
	}
	return types.Point{Lat: lat, Lng: lng}, true, nil
}

// queryMetersAsKm reads a distance in meters and converts it to km.
func queryMetersAsKm(c *gin.Context, key string, defMeters float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return defMeters / 1000, nil
	}
	m, err := strconv.ParseFloat(raw, 64)
	if err != nil || m <= 0 {
		return 0, apperr.Validation(key + " must be a positive number of meters")
	}
	return m / 1000, nil
}

// coordinatesPoint converts a GeoJSON style [lng, lat] pair.
func coordinatesPoint(coords []float64) (types.Point, bool) {
	if len(coords) != 2 {
		return types.Point{}, false
	}
	p := types.Point{Lat: coords[1], Lng: coords[0]}
	return p, p.Valid()
}
