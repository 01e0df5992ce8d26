package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"photoquest/internal/domain"
	"photoquest/internal/http/middleware"
	"photoquest/internal/logger"
	"photoquest/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler serves the REST API on top of the services.
type Handler struct {
	Auth      *service.AuthService
	Admin     *service.AdminService
	Approvals *service.ApprovalService
	Topups    *service.TopupService
	Packages  *service.PackageService
	Quests    *service.QuestService
	Photos    *service.PhotoService
	Audit     *service.AuditService

	// MaxUploadBytes caps every multipart file read.
	MaxUploadBytes int64
}

var kindStatus = map[domain.Kind]int{
	domain.KindValidation:        http.StatusBadRequest,
	domain.KindInsufficientFunds: http.StatusBadRequest,
	domain.KindUnauthorized:      http.StatusUnauthorized,
	domain.KindForbidden:         http.StatusForbidden,
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindAlreadyProcessed:  http.StatusConflict,
	domain.KindAmountMismatch:    http.StatusConflict,
	domain.KindInvalidState:      http.StatusConflict,
	domain.KindConflict:          http.StatusConflict,
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.Kind) int {
	if code, ok := kindStatus[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// respondError writes {"error", "kind"}. Internal errors are logged and
// their details withheld.
func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "kind": string(kind)})
}

func badRequest(c *gin.Context, format string, args ...any) {
	respondError(c, domain.Validation(format, args...))
}

// principal returns the caller set by middleware.JWT.
func principal(c *gin.Context) (domain.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		respondError(c, domain.Unauthorized("authentication required"))
	}
	return p, ok
}

// paramID parses a positive int64 path parameter.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid %s", name)
		return 0, false
	}
	return id, true
}

// formFile reads a multipart file. Reading stops one byte past the upload
// limit so the blob store can reject oversize files without buffering them.
func (h *Handler) formFile(c *gin.Context, field string) (*service.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, domain.Validation("invalid multipart form: %v", err)
	}
	return h.readFile(fh)
}

func (h *Handler) readFile(fh *multipart.FileHeader) (*service.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	return &service.Upload{Data: data, ContentType: fh.Header.Get("Content-Type")}, nil
}
