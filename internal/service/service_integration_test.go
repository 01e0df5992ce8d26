package service_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"photoquest/internal/domain"
	"photoquest/internal/events"
	"photoquest/internal/repository"
	"photoquest/internal/service"
	"photoquest/internal/storage"
	"photoquest/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) count(t events.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fixture struct {
	db        *testutil.TestDatabase
	events    *recorder
	ledger    *service.LedgerService
	approvals *service.ApprovalService
	quests    *service.QuestService
	topups    *service.TopupService
	packages  *service.PackageService
	adminID   int64
}

func newFixture(t *testing.T) *fixture {
	td := testutil.SetupTestDatabase(t)
	pool := td.Pool

	rec := &recorder{}
	blobs, err := storage.NewDiskStore(t.TempDir(), "/uploads", 1<<20)
	require.NoError(t, err)

	users := repository.NewUserRepository(pool)
	pkgs := repository.NewPackageRepository(pool)
	txs := repository.NewTransactionRepository(pool)
	quests := repository.NewQuestRepository(pool)
	audit := service.NewAuditService(repository.NewAuditRepository(pool))
	ledger := service.NewLedgerService(pool, users, repository.NewAdminWalletRepository(pool))

	return &fixture{
		db:        td,
		events:    rec,
		ledger:    ledger,
		approvals: service.NewApprovalService(pool, txs, pkgs, ledger, audit, rec),
		quests:    service.NewQuestService(pool, quests, ledger, audit, rec),
		topups:    service.NewTopupService(txs, pkgs, blobs, audit, rec),
		packages:  service.NewPackageService(pool, pkgs, blobs, audit),
		adminID:   td.CreateUser(t, "admin", 0),
	}
}

func TestApproveCreditsAndGrowsWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := f.db.CreateUser(t, "user", 5)
	pkgID := f.db.CreatePackage(t, 100, "9.99")
	txID := f.db.CreatePendingTopup(t, userID, pkgID)

	res, err := f.approvals.Approve(ctx, txID, f.adminID)
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionStatusApproved, res.Transaction.Status)
	require.NotNil(t, res.Transaction.ApprovedBy)
	assert.Equal(t, f.adminID, *res.Transaction.ApprovedBy)
	assert.NotNil(t, res.Transaction.ApprovedAt)
	assert.Equal(t, int64(105), res.UserBalance)
	assert.Equal(t, int64(105), f.db.Coins(t, userID))

	coins, revenue := f.db.Wallet(t)
	assert.Equal(t, int64(100), coins)
	assert.True(t, revenue.Equal(decimal.RequireFromString("9.99")), revenue.String())

	assert.Equal(t, 1, f.events.count(events.TopupApproved))
	assert.EqualValues(t, 1, f.db.Count(t,
		`SELECT COUNT(*) FROM audit_logs WHERE action = $1`, domain.AuditActionTopupApprove))
}

func TestApproveTwiceIsAlreadyProcessed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := f.db.CreateUser(t, "user", 0)
	pkgID := f.db.CreatePackage(t, 50, "5.00")
	txID := f.db.CreatePendingTopup(t, userID, pkgID)

	_, err := f.approvals.Approve(ctx, txID, f.adminID)
	require.NoError(t, err)

	_, err = f.approvals.Approve(ctx, txID, f.adminID)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	_, err = f.approvals.Reject(ctx, txID, f.adminID)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	assert.Equal(t, int64(50), f.db.Coins(t, userID))
	assert.Equal(t, 1, f.events.count(events.TopupApproved))
	assert.Equal(t, 0, f.events.count(events.TopupRejected))
}

func TestApproveUnknownTransaction(t *testing.T) {
	f := newFixture(t)

	_, err := f.approvals.Approve(context.Background(), 999999, f.adminID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentDecisionsApplyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := f.db.CreateUser(t, "user", 0)
	pkgID := f.db.CreatePackage(t, 70, "7.00")
	txID := f.db.CreatePendingTopup(t, userID, pkgID)

	const workers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		approved  int
		rejected  int
		processed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = f.approvals.Approve(ctx, txID, f.adminID)
			} else {
				_, err = f.approvals.Reject(ctx, txID, f.adminID)
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && i%2 == 0:
				approved++
			case err == nil:
				rejected++
			case errors.Is(err, domain.ErrAlreadyProcessed):
				processed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, approved+rejected)
	assert.Equal(t, workers-1, processed)

	coins, _ := f.db.Wallet(t)
	if approved == 1 {
		assert.Equal(t, int64(70), f.db.Coins(t, userID))
		assert.Equal(t, int64(70), coins)
	} else {
		assert.Equal(t, int64(0), f.db.Coins(t, userID))
		assert.Equal(t, int64(0), coins)
	}
}

func TestApproveAfterPriceChangeIsAmountMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := f.db.CreateUser(t, "user", 0)
	pkgID := f.db.CreatePackage(t, 100, "10.00")
	txID := f.db.CreatePendingTopup(t, userID, pkgID)

	// No approved transaction yet, so the quote may still change.
	price := decimal.RequireFromString("12.50")
	_, err := f.packages.Update(ctx, f.adminID, pkgID, domain.PackageUpdate{Price: &price}, nil)
	require.NoError(t, err)

	_, err = f.approvals.Approve(ctx, txID, f.adminID)
	assert.ErrorIs(t, err, domain.ErrAmountMismatch)

	assert.Equal(t, int64(0), f.db.Coins(t, userID))
	assert.EqualValues(t, 1, f.db.Count(t, `SELECT COUNT(*) FROM transactions WHERE id = $1 AND status = 'pending'`, txID))

	// The admin can still reject it.
	_, err = f.approvals.Reject(ctx, txID, f.adminID)
	require.NoError(t, err)
}

func TestPackageQuoteFrozenAfterApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := f.db.CreateUser(t, "user", 0)
	pkgID := f.db.CreatePackage(t, 100, "10.00")
	txID := f.db.CreatePendingTopup(t, userID, pkgID)
	_, err := f.approvals.Approve(ctx, txID, f.adminID)
	require.NoError(t, err)

	coins := int64(200)
	_, err = f.packages.Update(ctx, f.adminID, pkgID, domain.PackageUpdate{Coins: &coins}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	err = f.packages.Delete(ctx, f.adminID, pkgID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestApproveRacingPriceChangeKeepsQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for round := 0; round < 10; round++ {
		pkgID := f.db.CreatePackage(t, 100, "10.00")
		var ids []int64
		for i := 0; i < 4; i++ {
			ids = append(ids, f.db.CreatePendingTopup(t, f.db.CreateUser(t, "user", 0), pkgID))
		}

		price := decimal.RequireFromString("12.50")
		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				_, err := f.approvals.Approve(ctx, id, f.adminID)
				if err != nil && !errors.Is(err, domain.ErrAmountMismatch) {
					t.Errorf("approve %d: %v", id, err)
				}
			}(id)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.packages.Update(ctx, f.adminID, pkgID, domain.PackageUpdate{Price: &price}, nil)
			if err != nil && !errors.Is(err, domain.ErrInvalidState) {
				t.Errorf("update package %d: %v", pkgID, err)
			}
		}()
		wg.Wait()

		assert.Zero(t, f.db.Count(t, `
			SELECT COUNT(*) FROM transactions t JOIN packages p ON p.id = t.package_id
			WHERE t.package_id = $1 AND t.status = 'approved' AND t.money <> p.price`, pkgID),
			"round %d: approved top-up settled at a stale price", round)
	}
}

func TestWalletMatchesApprovedTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pkgA := f.db.CreatePackage(t, 100, "9.99")
	pkgB := f.db.CreatePackage(t, 250, "19.90")

	var ids []int64
	for i := 0; i < 20; i++ {
		userID := f.db.CreateUser(t, "user", 0)
		pkg := pkgA
		if i%3 == 0 {
			pkg = pkgB
		}
		ids = append(ids, f.db.CreatePendingTopup(t, userID, pkg))
	}

	rng := rand.New(rand.NewSource(7))
	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		id := ids[rng.Intn(len(ids))]
		approve := rng.Intn(3) > 0
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			if approve {
				_, err = f.approvals.Approve(ctx, id, f.adminID)
			} else {
				_, err = f.approvals.Reject(ctx, id, f.adminID)
			}
			if err != nil && !errors.Is(err, domain.ErrAlreadyProcessed) {
				t.Errorf("decision on %d: %v", id, err)
			}
		}()
	}
	wg.Wait()

	var wantCoins int64
	var wantRevenue decimal.Decimal
	err := f.db.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::bigint, COALESCE(SUM(money), 0)
		FROM transactions WHERE status = 'approved'`).Scan(&wantCoins, &wantRevenue)
	require.NoError(t, err)

	coins, revenue := f.db.Wallet(t)
	assert.Equal(t, wantCoins, coins)
	assert.True(t, wantRevenue.Equal(revenue), "want %s got %s", wantRevenue, revenue)

	var userCoins int64
	require.NoError(t, f.db.Pool.QueryRow(ctx, `SELECT COALESCE(SUM(coins), 0)::bigint FROM users`).Scan(&userCoins))
	assert.Equal(t, wantCoins, userCoins)
}

func TestJoinChargesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := f.db.CreateUser(t, "user", 100)
	questID := f.db.CreateQuest(t, 30, "open")

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]*service.JoinResult, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.quests.Join(ctx, questID, userID)
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := range results {
		require.NoError(t, errs[i])
		if !results[i].AlreadyJoined {
			fresh++
			assert.Equal(t, int64(30), results[i].Charged)
		} else {
			assert.Zero(t, results[i].Charged)
		}
	}
	assert.Equal(t, 1, fresh)

	assert.Equal(t, int64(70), f.db.Coins(t, userID))
	assert.EqualValues(t, 1, f.db.Count(t,
		`SELECT COUNT(*) FROM quest_participants WHERE quest_id = $1 AND user_id = $2`, questID, userID))
	assert.EqualValues(t, 30, f.db.Count(t, `SELECT total_pool FROM quests WHERE id = $1`, questID))
	assert.Equal(t, 1, f.events.count(events.QuestJoined))
}

func TestJoinInsufficientFundsLeavesNoMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := f.db.CreateUser(t, "user", 10)
	questID := f.db.CreateQuest(t, 30, "open")

	_, err := f.quests.Join(ctx, questID, userID)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(10), f.db.Coins(t, userID))
	assert.Zero(t, f.db.Count(t, `SELECT COUNT(*) FROM quest_participants WHERE quest_id = $1`, questID))
	assert.Zero(t, f.db.Count(t, `SELECT total_pool FROM quests WHERE id = $1`, questID))
}

func TestJoinRejectsClosedAndMissingQuests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := f.db.CreateUser(t, "user", 100)
	closed := f.db.CreateQuest(t, 10, "closed")

	_, err := f.quests.Join(ctx, closed, userID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.quests.Join(ctx, 999999, userID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, int64(100), f.db.Coins(t, userID))
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := f.db.CreateUser(t, "user", 100)
	var quests []int64
	for i := 0; i < 10; i++ {
		quests = append(quests, f.db.CreateQuest(t, 30, "open"))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	joined := 0
	for _, q := range quests {
		wg.Add(1)
		go func(q int64) {
			defer wg.Done()
			_, err := f.quests.Join(ctx, q, userID)
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
				return
			}
			mu.Lock()
			joined++
			mu.Unlock()
		}(q)
	}
	wg.Wait()

	assert.Equal(t, 3, joined)
	assert.Equal(t, int64(10), f.db.Coins(t, userID))
	assert.EqualValues(t, 3, f.db.Count(t, `SELECT COUNT(*) FROM quest_participants WHERE user_id = $1`, userID))
}

func TestSubmitTopupValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	userID := f.db.CreateUser(t, "user", 0)
	pkgID := f.db.CreatePackage(t, 100, "9.99")

	_, err := f.topups.Submit(ctx, userID, pkgID, nil, "image/png")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.topups.Submit(ctx, userID, pkgID, []byte("%PDF-1.4 not an image"), "application/pdf")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.topups.Submit(ctx, userID, 999999, testutil.PNG(t), "image/png")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.False(t, errors.Is(err, domain.ErrNotFound))

	assert.Zero(t, f.db.Count(t, `SELECT COUNT(*) FROM transactions`))

	tx, err := f.topups.Submit(ctx, userID, pkgID, testutil.PNG(t), "image/png")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, tx.Status)
	assert.Equal(t, int64(100), tx.Amount)
	assert.True(t, tx.Money.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, 1, f.events.count(events.TopupSubmitted))

	pending, err := f.topups.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, tx.ID, pending[0].ID)
}

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.db.CreateUser(t, "user", 10)

	_, err := f.ledger.CreditUser(ctx, userID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.ledger.DebitUser(ctx, userID, -5)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.ledger.DebitUser(ctx, userID, 11)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	_, err = f.ledger.DebitUser(ctx, 999999, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	bal, err := f.ledger.DebitUser(ctx, userID, 10)
	require.NoError(t, err)
	assert.Zero(t, bal)
}
