package repository

import (
	"context"
	"fmt"

	"photoquest/internal/db"
	"photoquest/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, display_name, role, coins, created_at`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts u and fills its id, coins and created_at.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, display_name, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, coins, created_at`,
		u.Email, u.PasswordHash, u.DisplayName, u.Role,
	).Scan(&u.ID, &u.Coins, &u.CreatedAt)
	if db.PgCode(err) == db.CodeUniqueViolation {
		return domain.Conflict("email %s is already registered", u.Email)
	}
	return err
}

// UpsertAdmin creates an admin account or promotes and re-keys an existing one.
func (r *UserRepository) UpsertAdmin(ctx context.Context, email, passwordHash, displayName string) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, display_name, role)
		 VALUES ($1, $2, $3, 'admin')
		 ON CONFLICT (email) DO UPDATE
		 SET password_hash = EXCLUDED.password_hash, role = 'admin'
		 RETURNING `+userColumns,
		email, passwordHash, displayName,
	)
	return scanUser(row)
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, domain.NotFound("user %d not found", id)
	}
	return u, err
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if isNoRows(err) {
		return nil, domain.NotFound("user %s not found", email)
	}
	return u, err
}

// GetCoins returns user's coins balance
func (r *UserRepository) GetCoins(ctx context.Context, userID int64) (int64, error) {
	var coins int64
	err := r.db.QueryRow(ctx, `SELECT coins FROM users WHERE id = $1`, userID).Scan(&coins)
	if isNoRows(err) {
		return 0, domain.NotFound("user %d not found", userID)
	}
	return coins, err
}

// AddCoinsWithTx credits coins and returns the new balance.
func (r *UserRepository) AddCoinsWithTx(ctx context.Context, tx pgx.Tx, userID, coins int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`UPDATE users SET coins = coins + $1 WHERE id = $2 RETURNING coins`,
		coins, userID,
	).Scan(&balance)
	if isNoRows(err) {
		return 0, domain.NotFound("user %d not found", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("credit user %d: %w", userID, err)
	}
	return balance, nil
}

// SubtractCoinsWithTx debits coins only if the balance covers them.
// The check and the decrement are a single statement, so concurrent
// debits can never take the balance below zero.
func (r *UserRepository) SubtractCoinsWithTx(ctx context.Context, tx pgx.Tx, userID, coins int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`UPDATE users SET coins = coins - $1 WHERE id = $2 AND coins >= $1 RETURNING coins`,
		coins, userID,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !isNoRows(err) {
		return 0, fmt.Errorf("debit user %d: %w", userID, err)
	}

	var current int64
	err = tx.QueryRow(ctx, `SELECT coins FROM users WHERE id = $1`, userID).Scan(&current)
	if isNoRows(err) {
		return 0, domain.NotFound("user %d not found", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("read balance of user %d: %w", userID, err)
	}
	return 0, domain.InsufficientFunds("balance %d is less than %d", current, coins)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Role, &u.Coins, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
