package service

import (
	"context"
	"errors"

	"photoquest/internal/db"
	"photoquest/internal/domain"
	"photoquest/internal/events"
	"photoquest/internal/logger"
	"photoquest/internal/metrics"
	"photoquest/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApprovalService settles pending top-ups. Approving credits the user,
// stamps the transaction and grows the admin wallet in one unit of work.
type ApprovalService struct {
	db           *pgxpool.Pool
	transactions *repository.TransactionRepository
	packages     *repository.PackageRepository
	ledger       *LedgerService
	audit        *AuditService
	events       events.Publisher
}

func NewApprovalService(
	db *pgxpool.Pool,
	transactions *repository.TransactionRepository,
	packages *repository.PackageRepository,
	ledger *LedgerService,
	audit *AuditService,
	publisher events.Publisher,
) *ApprovalService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ApprovalService{
		db:           db,
		transactions: transactions,
		packages:     packages,
		ledger:       ledger,
		audit:        audit,
		events:       publisher,
	}
}

// ApprovalResult is what the admin sees after a successful approval.
type ApprovalResult struct {
	Transaction *domain.Transaction `json:"transaction"`
	UserBalance int64               `json:"user_balance"`
	Wallet      *domain.AdminWallet `json:"wallet"`
}

func (s *ApprovalService) Approve(ctx context.Context, transactionID, adminID int64) (*ApprovalResult, error) {
	var res ApprovalResult

	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		t, err := s.lockPending(ctx, tx, transactionID)
		if err != nil {
			return err
		}

		pkg, err := s.packages.GetForShareWithTx(ctx, tx, t.PackageID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Validation("package %d of transaction %d no longer exists", t.PackageID, t.ID)
		}
		if err != nil {
			return err
		}
		if !t.Money.Equal(pkg.Price) {
			return domain.AmountMismatch("transaction %d paid %s but package %d costs %s",
				t.ID, t.Money.StringFixed(2), pkg.ID, pkg.Price.StringFixed(2))
		}

		if res.UserBalance, err = s.ledger.CreditUserWithTx(ctx, tx, t.UserID, t.Amount); err != nil {
			return err
		}
		if res.Transaction, err = s.settle(ctx, tx, t.ID, domain.TransactionStatusApproved, adminID); err != nil {
			return err
		}
		if res.Wallet, err = s.ledger.IncrementWalletWithTx(ctx, tx, t.Amount, t.Money); err != nil {
			return err
		}

		return s.audit.LogWithTx(ctx, tx, adminID, domain.AuditActionTopupApprove, domain.AuditCategoryTopup, map[string]interface{}{
			"transaction_id": t.ID,
			"user_id":        t.UserID,
			"coins":          t.Amount,
			"money":          t.Money.StringFixed(2),
		})
	})
	if err != nil {
		s.recordFailure(ctx, "approve", transactionID, adminID, err)
		return nil, err
	}

	t := res.Transaction
	metrics.TopupDecisions.WithLabelValues("approve", "ok").Inc()
	metrics.CoinsCredited.Add(float64(t.Amount))
	logger.WithContext(ctx).Info("topup approved",
		"transaction_id", t.ID, "user_id", t.UserID, "admin_id", adminID,
		"coins", t.Amount, "money", t.Money.StringFixed(2), "user_balance", res.UserBalance)

	e := events.New(events.TopupApproved)
	e.TransactionID, e.UserID, e.AdminID = t.ID, t.UserID, adminID
	e.Coins, e.Money = t.Amount, t.Money
	events.PublishCommitted(ctx, s.events, e)

	return &res, nil
}

func (s *ApprovalService) Reject(ctx context.Context, transactionID, adminID int64) (*domain.Transaction, error) {
	var out *domain.Transaction

	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		t, err := s.lockPending(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if out, err = s.settle(ctx, tx, t.ID, domain.TransactionStatusRejected, adminID); err != nil {
			return err
		}
		return s.audit.LogWithTx(ctx, tx, adminID, domain.AuditActionTopupReject, domain.AuditCategoryTopup, map[string]interface{}{
			"transaction_id": t.ID,
			"user_id":        t.UserID,
		})
	})
	if err != nil {
		s.recordFailure(ctx, "reject", transactionID, adminID, err)
		return nil, err
	}

	metrics.TopupDecisions.WithLabelValues("reject", "ok").Inc()
	logger.WithContext(ctx).Info("topup rejected", "transaction_id", out.ID, "user_id", out.UserID, "admin_id", adminID)

	e := events.New(events.TopupRejected)
	e.TransactionID, e.UserID, e.AdminID = out.ID, out.UserID, adminID
	e.Coins, e.Money = out.Amount, out.Money
	events.PublishCommitted(ctx, s.events, e)

	return out, nil
}

// lockPending row-locks the transaction so that concurrent decisions on the
// same id run one after another; later ones see the terminal status.
func (s *ApprovalService) lockPending(ctx context.Context, tx pgx.Tx, id int64) (*domain.Transaction, error) {
	t, err := s.transactions.GetForUpdateWithTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsPending() {
		return nil, domain.AlreadyProcessed("transaction %d is already %s", id, t.Status)
	}
	return t, nil
}

// settle applies the guarded status change. Losing the pending guard means
// another decision committed first.
func (s *ApprovalService) settle(ctx context.Context, tx pgx.Tx, id int64, status domain.TransactionStatus, adminID int64) (*domain.Transaction, error) {
	t, err := s.transactions.SetStatusWithTx(ctx, tx, id, status, adminID)
	if errors.Is(err, domain.ErrInvalidState) {
		return nil, domain.AlreadyProcessed("transaction %d was decided concurrently", id)
	}
	return t, err
}

func (s *ApprovalService) recordFailure(ctx context.Context, decision string, id, adminID int64, err error) {
	kind := domain.KindOf(err)
	metrics.TopupDecisions.WithLabelValues(decision, string(kind)).Inc()

	l := logger.WithContext(ctx).With("transaction_id", id, "admin_id", adminID, "kind", kind, "error", err)
	if kind == domain.KindInternal {
		l.Error("topup " + decision + " failed")
		return
	}
	l.Warn("topup " + decision + " refused")
}
