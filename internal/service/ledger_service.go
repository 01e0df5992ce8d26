package service

import (
	"context"

	"photoquest/internal/db"
	"photoquest/internal/domain"
	"photoquest/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerService is the only writer of user balances and the admin wallet.
// The WithTx variants join a caller's unit of work; the others run alone.
type LedgerService struct {
	db     *pgxpool.Pool
	users  *repository.UserRepository
	wallet *repository.AdminWalletRepository
}

func NewLedgerService(db *pgxpool.Pool, users *repository.UserRepository, wallet *repository.AdminWalletRepository) *LedgerService {
	return &LedgerService{db: db, users: users, wallet: wallet}
}

// CreditUser adds coins to a user and returns the new balance.
func (s *LedgerService) CreditUser(ctx context.Context, userID, coins int64) (balance int64, err error) {
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		balance, err = s.CreditUserWithTx(ctx, tx, userID, coins)
		return err
	})
	return balance, err
}

func (s *LedgerService) CreditUserWithTx(ctx context.Context, tx pgx.Tx, userID, coins int64) (int64, error) {
	if coins <= 0 {
		return 0, domain.Validation("credit amount must be positive, got %d", coins)
	}
	return s.users.AddCoinsWithTx(ctx, tx, userID, coins)
}

// DebitUser removes coins from a user. It fails with InsufficientFunds,
// changing nothing, when the balance is too low.
func (s *LedgerService) DebitUser(ctx context.Context, userID, coins int64) (balance int64, err error) {
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		balance, err = s.DebitUserWithTx(ctx, tx, userID, coins)
		return err
	})
	return balance, err
}

func (s *LedgerService) DebitUserWithTx(ctx context.Context, tx pgx.Tx, userID, coins int64) (int64, error) {
	if coins <= 0 {
		return 0, domain.Validation("debit amount must be positive, got %d", coins)
	}
	return s.users.SubtractCoinsWithTx(ctx, tx, userID, coins)
}

// IncrementWallet adds to the admin wallet totals.
func (s *LedgerService) IncrementWallet(ctx context.Context, coins int64, money decimal.Decimal) (w *domain.AdminWallet, err error) {
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		w, err = s.IncrementWalletWithTx(ctx, tx, coins, money)
		return err
	})
	return w, err
}

func (s *LedgerService) IncrementWalletWithTx(ctx context.Context, tx pgx.Tx, coins int64, money decimal.Decimal) (*domain.AdminWallet, error) {
	if coins < 0 || money.IsNegative() {
		return nil, domain.Validation("wallet increments must not be negative")
	}
	return s.wallet.IncrementWithTx(ctx, tx, coins, money)
}

func (s *LedgerService) GetUserBalance(ctx context.Context, userID int64) (int64, error) {
	return s.users.GetCoins(ctx, userID)
}

func (s *LedgerService) GetWallet(ctx context.Context) (*domain.AdminWallet, error) {
	return s.wallet.Get(ctx)
}
