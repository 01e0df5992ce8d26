package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SubmitTopup takes multipart package_id and the slip image.
func (h *Handler) SubmitTopup(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	packageID, err := strconv.ParseInt(c.PostForm("package_id"), 10, 64)
	if err != nil || packageID <= 0 {
		badRequest(c, "invalid package_id")
		return
	}
	slip, err := h.formFile(c, "slip")
	if err != nil {
		respondError(c, err)
		return
	}
	if slip == nil {
		badRequest(c, "slip file is required")
		return
	}

	t, err := h.Topups.Submit(c.Request.Context(), p.UserID, packageID, slip.Data, slip.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction_id": t.ID, "transaction": t})
}

func (h *Handler) ListPendingTopups(c *gin.Context) {
	pending, err := h.Topups.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": pending})
}

func (h *Handler) ApproveTopup(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.Approvals.Approve(c.Request.Context(), id, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) RejectTopup(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	t, err := h.Approvals.Reject(c.Request.Context(), id, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": t})
}

func (h *Handler) UserTransactions(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	txs, err := h.Topups.ListForUser(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
