package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"photoquest/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// TestDatabase is a migrated PostgreSQL container with an open pool.
type TestDatabase struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	URL       string
}

// SetupTestDatabase starts a container and applies the embedded migrations.
// Skipped under -short.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("photoquest_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.CustomizeRequest(testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Labels: map[string]string{
					"test":      "photoquest",
					"test-name": t.Name(),
					"timestamp": time.Now().Format("20060102-150405"),
				},
			},
		}),
	)
	require.NoError(t, err)

	td := &TestDatabase{Container: container}
	t.Cleanup(func() { td.cleanup(t) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.MigrateUp(connStr))

	pool, err := db.Open(ctx, connStr)
	require.NoError(t, err)

	td.Pool = pool
	td.URL = connStr
	return td
}

func (td *TestDatabase) cleanup(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Logf("panic during container cleanup (recovered): %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if td.Pool != nil {
		td.Pool.Close()
	}
	if td.Container != nil {
		if err := td.Container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate test container: %v", err)
		}
	}
}

var seq atomic.Int64

// CreateUser inserts a user with the given role and balance.
func (td *TestDatabase) CreateUser(t *testing.T, role string, coins int64) int64 {
	t.Helper()
	n := seq.Add(1)
	var id int64
	err := td.Pool.QueryRow(context.Background(), `
		INSERT INTO users (email, password_hash, display_name, role, coins)
		VALUES ($1, 'x', $2, $3, $4) RETURNING id`,
		fmt.Sprintf("user%d@test.local", n), fmt.Sprintf("User %d", n), role, coins,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreatePackage inserts an active package.
func (td *TestDatabase) CreatePackage(t *testing.T, coins int64, price string) int64 {
	t.Helper()
	var id int64
	err := td.Pool.QueryRow(context.Background(), `
		INSERT INTO packages (name, coins, price) VALUES ($1, $2, $3::numeric) RETURNING id`,
		fmt.Sprintf("Pack %d", seq.Add(1)), coins, price,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreatePendingTopup inserts a pending top-up quoting the package as it is now.
func (td *TestDatabase) CreatePendingTopup(t *testing.T, userID, packageID int64) int64 {
	t.Helper()
	var id int64
	err := td.Pool.QueryRow(context.Background(), `
		INSERT INTO transactions (user_id, package_id, amount, money, slip_url)
		SELECT $1, p.id, p.coins, p.price, '/uploads/slips/test.png' FROM packages p WHERE p.id = $2
		RETURNING id`,
		userID, packageID,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// CreateQuest inserts a quest with the given fee and status.
func (td *TestDatabase) CreateQuest(t *testing.T, entryFee int64, status string) int64 {
	t.Helper()
	var id int64
	err := td.Pool.QueryRow(context.Background(), `
		INSERT INTO quests (title, entry_fee, status) VALUES ($1, $2, $3) RETURNING id`,
		fmt.Sprintf("Quest %d", seq.Add(1)), entryFee, status,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// Coins returns a user's balance.
func (td *TestDatabase) Coins(t *testing.T, userID int64) int64 {
	t.Helper()
	var coins int64
	require.NoError(t, td.Pool.QueryRow(context.Background(), `SELECT coins FROM users WHERE id = $1`, userID).Scan(&coins))
	return coins
}

// Wallet returns the admin wallet totals, zero when the row is absent.
func (td *TestDatabase) Wallet(t *testing.T) (int64, decimal.Decimal) {
	t.Helper()
	var coins int64
	var revenue decimal.Decimal
	err := td.Pool.QueryRow(context.Background(),
		`SELECT COALESCE(SUM(total_coins), 0)::bigint, COALESCE(SUM(total_revenue), 0) FROM admin_wallet`,
	).Scan(&coins, &revenue)
	require.NoError(t, err)
	return coins, revenue
}

// Count runs a COUNT(*) query.
func (td *TestDatabase) Count(t *testing.T, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, td.Pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}
