package service

import (
	"context"
	"errors"

	"photoquest/internal/domain"
	"photoquest/internal/events"
	"photoquest/internal/logger"
	"photoquest/internal/metrics"
	"photoquest/internal/repository"
	"photoquest/internal/storage"
)

// TopupService accepts payment slips and lists top-up requests.
type TopupService struct {
	transactions *repository.TransactionRepository
	packages     *repository.PackageRepository
	blobs        storage.BlobStore
	audit        *AuditService
	events       events.Publisher
}

func NewTopupService(
	transactions *repository.TransactionRepository,
	packages *repository.PackageRepository,
	blobs storage.BlobStore,
	audit *AuditService,
	publisher events.Publisher,
) *TopupService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &TopupService{
		transactions: transactions,
		packages:     packages,
		blobs:        blobs,
		audit:        audit,
		events:       publisher,
	}
}

// Submit stores the slip and records a pending top-up quoting the package's
// current coins and price. A rejected slip never produces a transaction.
func (s *TopupService) Submit(ctx context.Context, userID, packageID int64, slip []byte, contentType string) (*domain.Transaction, error) {
	pkg, err := s.packages.GetByID(ctx, packageID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Validation("package %d not found", packageID)
	}
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive() {
		return nil, domain.Validation("package %d is not active", packageID)
	}

	url, err := s.blobs.Store(ctx, storage.KindSlip, slip, contentType)
	if err != nil {
		return nil, err
	}

	t := &domain.Transaction{
		UserID:    userID,
		PackageID: pkg.ID,
		Amount:    pkg.Coins,
		Money:     pkg.Price,
		SlipURL:   url,
	}
	if err := s.transactions.Create(ctx, t); err != nil {
		if derr := s.blobs.Delete(context.WithoutCancel(ctx), url); derr != nil {
			logger.WithContext(ctx).Warn("failed to remove orphaned slip", "url", url, "error", derr)
		}
		return nil, err
	}

	metrics.TopupSubmissions.Inc()
	s.audit.Log(ctx, userID, domain.AuditActionTopupSubmit, domain.AuditCategoryTopup, map[string]interface{}{
		"transaction_id": t.ID,
		"package_id":     pkg.ID,
	})
	logger.WithContext(ctx).Info("topup submitted", "transaction_id", t.ID, "user_id", userID, "package_id", pkg.ID)

	e := events.New(events.TopupSubmitted)
	e.TransactionID, e.UserID = t.ID, userID
	e.Coins, e.Money, e.SlipURL = t.Amount, t.Money, t.SlipURL
	events.PublishCommitted(ctx, s.events, e)

	return t, nil
}

func (s *TopupService) ListPending(ctx context.Context) ([]*domain.PendingTopup, error) {
	return s.transactions.ListPending(ctx)
}

func (s *TopupService) ListForUser(ctx context.Context, userID int64) ([]*domain.UserTransaction, error) {
	return s.transactions.ListByUser(ctx, userID)
}

func (s *TopupService) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	return s.transactions.GetByID(ctx, id)
}
