// README: Registration and login handlers for riders and drivers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moto/internal/modules/identity"
	"moto/internal/types"
)

type AuthHandler struct {
	identity *identity.Service
}

func NewAuthHandler(svc *identity.Service) *AuthHandler {
	return &AuthHandler{identity: svc}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) RegisterRider(c *gin.Context) {
	var req identity.RegisterRiderInput
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.identity.RegisterRider(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, sess)
}

func (h *AuthHandler) RegisterDriver(c *gin.Context) {
	var req identity.RegisterDriverInput
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.identity.RegisterDriver(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, sess)
}

func (h *AuthHandler) LoginRider(c *gin.Context) { h.login(c, types.RoleRider) }

func (h *AuthHandler) LoginDriver(c *gin.Context) { h.login(c, types.RoleDriver) }

func (h *AuthHandler) login(c *gin.Context, role types.Role) {
	var req loginReq
	if !bindJSON(c, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(c, http.StatusBadRequest, "email and password are required")
		return
	}
	sess, err := h.identity.Login(c.Request.Context(), role, req.Email, req.Password)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, sess)
}
