package handlers

import (
	"encoding/json"
	"net/http"

	"photoquest/internal/domain"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListQuests(c *gin.Context) {
	quests, err := h.Quests.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quests": quests})
}

func (h *Handler) ListActiveQuests(c *gin.Context) {
	quests, err := h.Quests.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quests": quests})
}

func (h *Handler) ListJoinedQuests(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	quests, err := h.Quests.ListJoined(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quests": quests})
}

// GetQuest also reports whether the caller has joined.
func (h *Handler) GetQuest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	q, err := h.Quests.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	joined, err := h.Quests.IsParticipant(ctx, id, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": q, "joined": joined})
}

func (h *Handler) CreateQuest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var n domain.NewQuest
	if err := decodeStrict(c, &n); err != nil {
		respondError(c, err)
		return
	}

	q, err := h.Quests.Create(c.Request.Context(), p.UserID, n)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"quest": q})
}

func (h *Handler) UpdateQuest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var u domain.QuestUpdate
	if err := decodeStrict(c, &u); err != nil {
		respondError(c, err)
		return
	}

	q, err := h.Quests.Update(c.Request.Context(), p.UserID, id, u)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": q})
}

func (h *Handler) DeleteQuest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Quests.Delete(c.Request.Context(), p.UserID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) SetQuestStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status domain.QuestStatus `json:"status"`
	}
	if err := decodeStrict(c, &req); err != nil {
		respondError(c, err)
		return
	}

	q, err := h.Quests.SetStatus(c.Request.Context(), p.UserID, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": q})
}

func (h *Handler) JoinQuest(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.Quests.Join(c.Request.Context(), id, p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyJoined {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// decodeStrict decodes a JSON body and rejects unknown fields.
func decodeStrict(c *gin.Context, v any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Validation("invalid request body: %v", err)
	}
	return nil
}
