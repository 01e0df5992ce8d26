package handlers

import (
	"net/http"
	"strconv"

	"photoquest/internal/domain"

	"github.com/gin-gonic/gin"
)

// AuditLog lists recent entries, filtered by ?user_id= or ?category=
// (default topup).
func (h *Handler) AuditLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	ctx := c.Request.Context()

	if v := c.Query("user_id"); v != "" {
		uid, err := strconv.ParseInt(v, 10, 64)
		if err != nil || uid <= 0 {
			badRequest(c, "invalid user_id")
			return
		}
		logs, err := h.Audit.ForUser(ctx, uid, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs})
		return
	}

	category := c.DefaultQuery("category", domain.AuditCategoryTopup)
	switch category {
	case domain.AuditCategoryAuth, domain.AuditCategoryTopup, domain.AuditCategoryQuest,
		domain.AuditCategoryPackage, domain.AuditCategoryPhoto:
	default:
		badRequest(c, "unknown category %q", category)
		return
	}

	logs, err := h.Audit.Recent(ctx, category, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
