package repository

import (
	"context"
	"fmt"

	"photoquest/internal/db"
	"photoquest/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `t.id, t.user_id, t.package_id, t.type, t.amount, t.money, t.slip_url,
	t.status, t.approved_by, t.approved_at, t.created_at`

// TransactionRepository persists top-up transactions. Rows are never deleted.
type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a pending top-up. The insert only happens if the package
// exists, is active and still quotes exactly t.Amount coins for t.Money.
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	t.Type = domain.TransactionTypeTopup
	t.Status = domain.TransactionStatusPending

	err := r.db.QueryRow(ctx,
		`INSERT INTO transactions (user_id, package_id, type, amount, money, slip_url, status)
		 SELECT $1::bigint, p.id, 'topup', p.coins, p.price, $5::text, 'pending'
		 FROM packages p
		 WHERE p.id = $2 AND p.status = 'active' AND p.coins = $3::bigint AND p.price = $4::numeric
		 RETURNING id, created_at`,
		t.UserID, t.PackageID, t.Amount, t.Money, t.SlipURL,
	).Scan(&t.ID, &t.CreatedAt)
	if err == nil {
		return nil
	}
	if db.PgCode(err) == db.CodeForeignKeyViolation {
		return domain.Validation("user %d does not exist", t.UserID)
	}
	if !isNoRows(err) {
		return fmt.Errorf("create transaction: %w", err)
	}
	return r.explainRejectedQuote(ctx, t)
}

func (r *TransactionRepository) explainRejectedQuote(ctx context.Context, t *domain.Transaction) error {
	var p domain.Package
	err := r.db.QueryRow(ctx, `SELECT coins, price, status FROM packages WHERE id = $1`, t.PackageID).
		Scan(&p.Coins, &p.Price, &p.Status)
	switch {
	case isNoRows(err):
		return domain.Validation("package %d not found", t.PackageID)
	case err != nil:
		return fmt.Errorf("load package %d: %w", t.PackageID, err)
	case !p.IsActive():
		return domain.Validation("package %d is not active", t.PackageID)
	}
	return domain.Validation("quote %d coins for %s does not match package (%d coins for %s)",
		t.Amount, t.Money.StringFixed(2), p.Coins, p.Price.StringFixed(2))
}

// GetByID retrieves a transaction by id
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	return r.get(ctx, r.db, `SELECT `+transactionColumns+` FROM transactions t WHERE t.id = $1`, id)
}

// GetForUpdateWithTx locks the transaction row; concurrent deciders queue here.
func (r *TransactionRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Transaction, error) {
	return r.get(ctx, tx, `SELECT `+transactionColumns+` FROM transactions t WHERE t.id = $1 FOR UPDATE`, id)
}

func (r *TransactionRepository) get(ctx context.Context, q Querier, sql string, id int64) (*domain.Transaction, error) {
	t, err := scanTransaction(q.QueryRow(ctx, sql, id))
	if isNoRows(err) {
		return nil, domain.NotFound("transaction %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// SetStatusWithTx moves a pending transaction to a terminal status.
func (r *TransactionRepository) SetStatusWithTx(ctx context.Context, tx pgx.Tx, id int64, status domain.TransactionStatus, adminID int64) (*domain.Transaction, error) {
	if status != domain.TransactionStatusApproved && status != domain.TransactionStatusRejected {
		return nil, domain.Validation("cannot set status %q", status)
	}

	t, err := scanTransaction(tx.QueryRow(ctx,
		`UPDATE transactions t
		 SET status = $2, approved_by = $3, approved_at = now()
		 WHERE t.id = $1 AND t.status = 'pending'
		 RETURNING `+transactionColumns,
		id, status, adminID,
	))
	if err == nil {
		return t, nil
	}
	if !isNoRows(err) {
		return nil, fmt.Errorf("set status of transaction %d: %w", id, err)
	}

	current, err := r.get(ctx, tx, `SELECT `+transactionColumns+` FROM transactions t WHERE t.id = $1`, id)
	if err != nil {
		return nil, err
	}
	return nil, domain.InvalidState("transaction %d is %s", id, current.Status)
}

// ListPending returns pending top-ups with submitter and package, newest first.
func (r *TransactionRepository) ListPending(ctx context.Context) ([]*domain.PendingTopup, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+`, u.display_name, u.email, p.name
		 FROM transactions t
		 JOIN users u ON u.id = t.user_id
		 JOIN packages p ON p.id = t.package_id
		 WHERE t.status = 'pending'
		 ORDER BY t.created_at DESC, t.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*domain.PendingTopup{}
	for rows.Next() {
		var p domain.PendingTopup
		dest := append(transactionDest(&p.Transaction), &p.DisplayName, &p.Email, &p.PackageName)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		res = append(res, &p)
	}
	return res, rows.Err()
}

// ListByUser returns a user's transactions with package details, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.UserTransaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+`, p.name, p.coins
		 FROM transactions t
		 JOIN packages p ON p.id = t.package_id
		 WHERE t.user_id = $1
		 ORDER BY t.created_at DESC, t.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*domain.UserTransaction{}
	for rows.Next() {
		var ut domain.UserTransaction
		dest := append(transactionDest(&ut.Transaction), &ut.PackageName, &ut.PackageCoins)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		res = append(res, &ut)
	}
	return res, rows.Err()
}

func transactionDest(t *domain.Transaction) []any {
	return []any{&t.ID, &t.UserID, &t.PackageID, &t.Type, &t.Amount, &t.Money, &t.SlipURL,
		&t.Status, &t.ApprovedBy, &t.ApprovedAt, &t.CreatedAt}
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := row.Scan(transactionDest(&t)...); err != nil {
		return nil, err
	}
	return &t, nil
}
