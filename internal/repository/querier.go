package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx, so each query can run
// either standalone or inside a caller's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// updateSet accumulates "column = $n" fragments for partial updates.
// Column names come from code, never from input.
type updateSet struct {
	cols []string
	args []any
}

func (u *updateSet) add(col string, v any) {
	u.args = append(u.args, v)
	u.cols = append(u.cols, fmt.Sprintf("%s = $%d", col, len(u.args)))
}

func (u *updateSet) empty() bool {
	return len(u.cols) == 0
}

// sql renders "UPDATE table SET ... , updated_at = now() WHERE id = $n".
func (u *updateSet) sql(table string, id int64) (string, []any) {
	args := append(u.args, id)
	return fmt.Sprintf("UPDATE %s SET %s, updated_at = now() WHERE id = $%d",
		table, strings.Join(u.cols, ", "), len(args)), args
}
