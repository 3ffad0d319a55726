// README: Driver handlers for profile, availability, location and nearby search.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moto/internal/modules/account"
	"moto/internal/modules/location"
	"moto/internal/types"
)

const defaultNearbyMeters = 5000

type DriverHandler struct {
	accounts *account.Service
	location *location.Service
}

func NewDriverHandler(accounts *account.Service, locationSvc *location.Service) *DriverHandler {
	return &DriverHandler{accounts: accounts, location: locationSvc}
}

type coordinatesReq struct {
	Coordinates []float64 `json:"coordinates"`
}

type availabilityReq struct {
	IsAvailable *bool           `json:"is_available"`
	Location    *coordinatesReq `json:"location"`
}

func (h *DriverHandler) Profile(c *gin.Context) {
	d, err := h.accounts.GetDriver(c.Request.Context(), principal(c).ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"driver": d})
}

func (h *DriverHandler) SetAvailability(c *gin.Context) {
	var req availabilityReq
	if !bindJSON(c, &req) {
		return
	}
	if req.IsAvailable == nil {
		writeError(c, http.StatusBadRequest, "is_available is required")
		return
	}
	var loc *types.Point
	if req.Location != nil {
		p, ok := coordinatesPoint(req.Location.Coordinates)
		if !ok {
			writeError(c, http.StatusBadRequest, "valid coordinates [longitude, latitude] are required")
			return
		}
		loc = &p
	}
	d, err := h.location.SetAvailability(c.Request.Context(), principal(c).ID, *req.IsAvailable, loc)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"driver": d})
}

func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	var req coordinatesReq
	if !bindJSON(c, &req) {
		return
	}
	p, ok := coordinatesPoint(req.Coordinates)
	if !ok {
		writeError(c, http.StatusBadRequest, "valid coordinates [longitude, latitude] are required")
		return
	}
	d, err := h.location.UpdateDriverLocation(c.Request.Context(), principal(c).ID, p)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"driver": d})
}

func (h *DriverHandler) Nearby(c *gin.Context) {
	p, present, err := queryPoint(c, "longitude", "latitude")
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !present {
		writeError(c, http.StatusBadRequest, "longitude and latitude are required")
		return
	}
	radiusKm, err := queryMetersAsKm(c, "max_distance", defaultNearbyMeters)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	drivers, err := h.location.NearbyDrivers(c.Request.Context(), p, radiusKm)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"drivers": drivers})
}
