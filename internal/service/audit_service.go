package service

import (
	"context"

	"photoquest/internal/domain"
	"photoquest/internal/logger"
	"photoquest/internal/repository"

	"github.com/jackc/pgx/v5"
)

// AuditService handles audit logging
type AuditService struct {
	repo *repository.AuditRepository
}

// NewAuditService creates a new audit service
func NewAuditService(repo *repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Log records an entry outside any transaction. Failures are logged only.
func (s *AuditService) Log(ctx context.Context, userID int64, action, category string, details map[string]interface{}) {
	entry := &domain.AuditLog{
		UserID:   userID,
		Action:   action,
		Category: category,
		Details:  details,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogWithTx records an entry inside tx; an error aborts the caller's unit.
func (s *AuditService) LogWithTx(ctx context.Context, tx pgx.Tx, userID int64, action, category string, details map[string]interface{}) error {
	return s.repo.CreateWithTx(ctx, tx, &domain.AuditLog{
		UserID:   userID,
		Action:   action,
		Category: category,
		Details:  details,
	})
}

// Recent returns the latest entries of a category.
func (s *AuditService) Recent(ctx context.Context, category string, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByCategory(ctx, category, limit)
}

// ForUser returns the latest entries recorded for one user.
func (s *AuditService) ForUser(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByUserID(ctx, userID, limit)
}
