package service

import (
	"context"
	"time"

	"photoquest/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// AdminService provides the admin dashboard figures
type AdminService struct {
	db     *pgxpool.Pool
	ledger *LedgerService
}

// NewAdminService creates a new admin service
func NewAdminService(db *pgxpool.Pool, ledger *LedgerService) *AdminService {
	return &AdminService{db: db, ledger: ledger}
}

// Dashboard is the admin overview.
type Dashboard struct {
	Wallet          *domain.AdminWallet `json:"wallet"`
	PendingTopups   int64               `json:"pending_topups"`
	ApprovedToday   int64               `json:"approved_today"`
	TotalUsers      int64               `json:"total_users"`
	CoinsInAccounts int64               `json:"coins_in_accounts"`
	OpenQuests      int64               `json:"open_quests"`
}

// GetDashboard returns platform statistics
func (s *AdminService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{}
	today := time.Now().UTC().Truncate(24 * time.Hour)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Wallet, err = s.ledger.GetWallet(gctx)
		return err
	})
	g.Go(func() error {
		return s.db.QueryRow(gctx, `SELECT COUNT(*) FROM transactions WHERE status = 'pending'`).Scan(&d.PendingTopups)
	})
	g.Go(func() error {
		return s.db.QueryRow(gctx,
			`SELECT COUNT(*) FROM transactions WHERE status = 'approved' AND approved_at >= $1`, today,
		).Scan(&d.ApprovedToday)
	})
	g.Go(func() error {
		return s.db.QueryRow(gctx, `SELECT COUNT(*), COALESCE(SUM(coins), 0)::bigint FROM users`).
			Scan(&d.TotalUsers, &d.CoinsInAccounts)
	})
	g.Go(func() error {
		return s.db.QueryRow(gctx, `SELECT COUNT(*) FROM quests WHERE status = 'open'`).Scan(&d.OpenQuests)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}
