package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AdminDashboard(c *gin.Context) {
	d, err := h.Admin.GetDashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) UserDashboard(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	u, err := h.Auth.Profile(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           u.ID,
		"display_name": u.DisplayName,
		"email":        u.Email,
		"coins":        u.Coins,
		"role":         u.Role,
	})
}
