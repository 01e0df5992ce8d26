package repository

import (
	"context"
	"fmt"

	"photoquest/internal/db"
	"photoquest/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const packageColumns = `id, name, coins, price, qr_url, status, created_at, updated_at`

type PackageRepository struct {
	db *pgxpool.Pool
}

func NewPackageRepository(db *pgxpool.Pool) *PackageRepository {
	return &PackageRepository{db: db}
}

func (r *PackageRepository) Create(ctx context.Context, p *domain.Package) error {
	if p.Status == "" {
		p.Status = domain.PackageStatusActive
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO packages (name, coins, price, qr_url, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.Coins, p.Price, p.QRURL, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID retrieves a package by id
func (r *PackageRepository) GetByID(ctx context.Context, id int64) (*domain.Package, error) {
	return r.get(ctx, r.db, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id)
}

func (r *PackageRepository) GetByIDWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Package, error) {
	return r.get(ctx, tx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id)
}

// GetForUpdateWithTx locks the package row for the rest of tx.
func (r *PackageRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Package, error) {
	return r.get(ctx, tx, `SELECT `+packageColumns+` FROM packages WHERE id = $1 FOR UPDATE`, id)
}

// GetForShareWithTx reads the package and blocks quote changes until tx ends.
func (r *PackageRepository) GetForShareWithTx(ctx context.Context, tx pgx.Tx, id int64) (*domain.Package, error) {
	return r.get(ctx, tx, `SELECT `+packageColumns+` FROM packages WHERE id = $1 FOR SHARE`, id)
}

func (r *PackageRepository) get(ctx context.Context, q Querier, sql string, id int64) (*domain.Package, error) {
	p, err := scanPackage(q.QueryRow(ctx, sql, id))
	if isNoRows(err) {
		return nil, domain.NotFound("package %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get package %d: %w", id, err)
	}
	return p, nil
}

// ListActive returns purchasable packages, cheapest first.
func (r *PackageRepository) ListActive(ctx context.Context) ([]*domain.Package, error) {
	return r.list(ctx, `SELECT `+packageColumns+` FROM packages WHERE status = 'active' ORDER BY price, id`)
}

// ListAll returns every package, newest first.
func (r *PackageRepository) ListAll(ctx context.Context) ([]*domain.Package, error) {
	return r.list(ctx, `SELECT `+packageColumns+` FROM packages ORDER BY created_at DESC, id DESC`)
}

func (r *PackageRepository) list(ctx context.Context, sql string) ([]*domain.Package, error) {
	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []*domain.Package{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// HasApprovedWithTx reports whether an approved transaction references the package.
func (r *PackageRepository) HasApprovedWithTx(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE package_id = $1 AND status = 'approved')`, id,
	).Scan(&exists)
	return exists, err
}

// UpdateWithTx writes the non-nil fields of u.
func (r *PackageRepository) UpdateWithTx(ctx context.Context, tx pgx.Tx, id int64, u domain.PackageUpdate) (*domain.Package, error) {
	var set updateSet
	if u.Name != nil {
		set.add("name", *u.Name)
	}
	if u.Coins != nil {
		set.add("coins", *u.Coins)
	}
	if u.Price != nil {
		set.add("price", *u.Price)
	}
	if u.QRURL != nil {
		set.add("qr_url", *u.QRURL)
	}
	if u.Status != nil {
		set.add("status", *u.Status)
	}
	if set.empty() {
		return r.GetByIDWithTx(ctx, tx, id)
	}

	sql, args := set.sql("packages", id)
	p, err := scanPackage(tx.QueryRow(ctx, sql+` RETURNING `+packageColumns, args...))
	if isNoRows(err) {
		return nil, domain.NotFound("package %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("update package %d: %w", id, err)
	}
	return p, nil
}

// ToggleStatus flips active/inactive.
func (r *PackageRepository) ToggleStatus(ctx context.Context, id int64) (*domain.Package, error) {
	p, err := scanPackage(r.db.QueryRow(ctx,
		`UPDATE packages
		 SET status = CASE WHEN status = 'active' THEN 'inactive' ELSE 'active' END,
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+packageColumns, id))
	if isNoRows(err) {
		return nil, domain.NotFound("package %d not found", id)
	}
	return p, err
}

// Delete removes a package. Packages referenced by any transaction are kept.
func (r *PackageRepository) Delete(ctx context.Context, id int64) (*domain.Package, error) {
	p, err := scanPackage(r.db.QueryRow(ctx, `DELETE FROM packages WHERE id = $1 RETURNING `+packageColumns, id))
	switch {
	case isNoRows(err):
		return nil, domain.NotFound("package %d not found", id)
	case db.PgCode(err) == db.CodeForeignKeyViolation:
		return nil, domain.InvalidState("package %d is referenced by transactions", id)
	case err != nil:
		return nil, fmt.Errorf("delete package %d: %w", id, err)
	}
	return p, nil
}

func scanPackage(row pgx.Row) (*domain.Package, error) {
	var p domain.Package
	if err := row.Scan(&p.ID, &p.Name, &p.Coins, &p.Price, &p.QRURL, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
