package repository

import (
	"context"
	"fmt"

	"photoquest/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// AdminWalletRepository stores the singleton aggregate of approved top-ups.
type AdminWalletRepository struct {
	db *pgxpool.Pool
	id int
}

func NewAdminWalletRepository(db *pgxpool.Pool) *AdminWalletRepository {
	return &AdminWalletRepository{db: db, id: domain.AdminWalletID}
}

// Get returns the wallet, or a zero wallet before the first approval.
func (r *AdminWalletRepository) Get(ctx context.Context) (*domain.AdminWallet, error) {
	return r.get(ctx, r.db)
}

func (r *AdminWalletRepository) GetWithTx(ctx context.Context, tx pgx.Tx) (*domain.AdminWallet, error) {
	return r.get(ctx, tx)
}

func (r *AdminWalletRepository) get(ctx context.Context, q Querier) (*domain.AdminWallet, error) {
	var w domain.AdminWallet
	err := q.QueryRow(ctx,
		`SELECT total_coins, total_revenue, updated_at FROM admin_wallet WHERE id = $1`, r.id,
	).Scan(&w.TotalCoins, &w.TotalRevenue, &w.UpdatedAt)
	if isNoRows(err) {
		return &domain.AdminWallet{TotalRevenue: decimal.Zero}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read admin wallet: %w", err)
	}
	return &w, nil
}

// IncrementWithTx adds to both totals in one upsert. The row is created on
// first use and row-locked for the rest of tx.
func (r *AdminWalletRepository) IncrementWithTx(ctx context.Context, tx pgx.Tx, coins int64, money decimal.Decimal) (*domain.AdminWallet, error) {
	var w domain.AdminWallet
	err := tx.QueryRow(ctx,
		`INSERT INTO admin_wallet (id, total_coins, total_revenue, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (id) DO UPDATE SET
		     total_coins = admin_wallet.total_coins + EXCLUDED.total_coins,
		     total_revenue = admin_wallet.total_revenue + EXCLUDED.total_revenue,
		     updated_at = now()
		 RETURNING total_coins, total_revenue, updated_at`,
		r.id, coins, money,
	).Scan(&w.TotalCoins, &w.TotalRevenue, &w.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("increment admin wallet: %w", err)
	}
	return &w, nil
}
