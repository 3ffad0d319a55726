// README: Ride handlers: estimate, request, lifecycle transitions, rating and history.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moto/internal/modules/ride"
)

const defaultAvailableMeters = 10000

type RideHandler struct {
	rides *ride.Service
}

func NewRideHandler(rides *ride.Service) *RideHandler {
	return &RideHandler{rides: rides}
}

type requestRideReq struct {
	Pickup        ride.Location      `json:"pickup_location"`
	Destination   ride.Location      `json:"destination"`
	PaymentMethod ride.PaymentMethod `json:"payment_method"`
}

type completeRideReq struct {
	ActualFare *float64 `json:"actual_fare"`
}

type rateRideReq struct {
	Rating *float64 `json:"rating"`
}

func (h *RideHandler) Estimate(c *gin.Context) {
	pickup, okPickup, err := queryPoint(c, "pickup_lng", "pickup_lat")
	if err != nil {
		writeServiceError(c, err)
		return
	}
	dest, okDest, err := queryPoint(c, "dest_lng", "dest_lat")
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if !okPickup || !okDest {
		writeError(c, http.StatusBadRequest, "pickup and destination coordinates are required")
		return
	}
	quote, err := h.rides.Estimate(pickup, dest)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, quote)
}

func (h *RideHandler) Request(c *gin.Context) {
	var req requestRideReq
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.rides.Create(c.Request.Context(), ride.CreateCommand{
		RiderID:       principal(c).ID,
		Pickup:        req.Pickup,
		Destination:   req.Destination,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"ride": r})
}

func (h *RideHandler) Available(c *gin.Context) {
	origin, present, err := queryPoint(c, "longitude", "latitude")
	if err != nil {
		writeServiceError(c, err)
		return
	}
	radiusKm, err := queryMetersAsKm(c, "max_distance", defaultAvailableMeters)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	var rides []*ride.Ride
	if present {
		rides, err = h.rides.ListAvailable(c.Request.Context(), &origin, radiusKm)
	} else {
		rides, err = h.rides.ListAvailable(c.Request.Context(), nil, 0)
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rides": rides})
}

func (h *RideHandler) Accept(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.rides.Accept(c.Request.Context(), id, principal(c).ID)
	h.respond(c, r, err)
}

func (h *RideHandler) Start(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.rides.Start(c.Request.Context(), id, principal(c).ID)
	h.respond(c, r, err)
}

func (h *RideHandler) Complete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req completeRideReq
	if !bindOptionalJSON(c, &req) {
		return
	}
	r, err := h.rides.Complete(c.Request.Context(), ride.CompleteCommand{
		RideID:     id,
		DriverID:   principal(c).ID,
		ActualFare: req.ActualFare,
	})
	h.respond(c, r, err)
}

func (h *RideHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.rides.Cancel(c.Request.Context(), id, principal(c))
	h.respond(c, r, err)
}

func (h *RideHandler) Rate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req rateRideReq
	if !bindJSON(c, &req) {
		return
	}
	if req.Rating == nil {
		writeError(c, http.StatusBadRequest, "rating is required")
		return
	}
	r, err := h.rides.RateRide(c.Request.Context(), id, principal(c), *req.Rating)
	h.respond(c, r, err)
}

func (h *RideHandler) History(c *gin.Context) {
	rides, err := h.rides.History(c.Request.Context(), principal(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rides": rides})
}

func (h *RideHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.rides.Get(c.Request.Context(), id, principal(c))
	h.respond(c, r, err)
}

func (h *RideHandler) respond(c *gin.Context, r *ride.Ride, err error) {
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"ride": r})
}
