// README: Rider profile handler.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moto/internal/modules/account"
)

type RiderHandler struct {
	accounts *account.Service
}

func NewRiderHandler(accounts *account.Service) *RiderHandler {
	return &RiderHandler{accounts: accounts}
}

func (h *RiderHandler) Profile(c *gin.Context) {
	r, err := h.accounts.GetRider(c.Request.Context(), principal(c).ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"rider": r})
}
