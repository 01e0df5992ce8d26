package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"photoquest/internal/service"

	"github.com/gin-gonic/gin"
)

// UploadPhoto takes multipart title, description, optional quest_id and
// the photo file.
func (h *Handler) UploadPhoto(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	n := service.NewPhoto{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: strings.TrimSpace(c.PostForm("description")),
	}
	if v := c.PostForm("quest_id"); v != "" {
		qid, err := strconv.ParseInt(v, 10, 64)
		if err != nil || qid <= 0 {
			badRequest(c, "invalid quest_id")
			return
		}
		n.QuestID = &qid
	}

	file, err := h.formFile(c, "photo")
	if err != nil {
		respondError(c, err)
		return
	}
	if file == nil {
		badRequest(c, "photo file is required")
		return
	}

	photo, err := h.Photos.Upload(c.Request.Context(), p.UserID, n, *file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"photo": photo})
}

func (h *Handler) ListPhotos(c *gin.Context) {
	var questID *int64
	if v := c.Query("quest_id"); v != "" {
		qid, err := strconv.ParseInt(v, 10, 64)
		if err != nil || qid <= 0 {
			badRequest(c, "invalid quest_id")
			return
		}
		questID = &qid
	}

	photos, err := h.Photos.List(c.Request.Context(), questID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": photos})
}

func (h *Handler) GetPhoto(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	photo, err := h.Photos.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo": photo})
}

func (h *Handler) MyPhotos(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	photos, err := h.Photos.ListByUser(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": photos})
}

func (h *Handler) DeletePhoto(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Photos.Delete(c.Request.Context(), p, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) ToggleLike(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	liked, count, err := h.Photos.ToggleLike(c.Request.Context(), p.UserID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "likes": count})
}

func (h *Handler) LikeCount(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	count, err := h.Photos.LikeCount(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo_id": id, "likes": count})
}

func (h *Handler) AddComment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	comment, err := h.Photos.AddComment(c.Request.Context(), p.UserID, id, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

func (h *Handler) ListComments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	comments, err := h.Photos.ListComments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}
