package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Service {
	t.Helper()

	svc, err := NewService(context.Background(), models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
		PingTimeout:     time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	tariff := &models.Tariff{Id: "okx", Name: "OKX", DailyPercent: decimal.RequireFromString("3.2"),
		MinAmount: decimal.NewFromInt(100), MaxAmount: decimal.NewFromInt(10000), IsActive: true, SortOrder: 1}
	require.NoError(t, svc.UpsertTariff(context.Background(), tariff))
	return svc
}

func insertUser(t *testing.T, svc *Service, tgId int64, balance string) *models.User {
	t.Helper()

	user := &models.User{Id: uuid.New().String(), TgId: tgId, FirstName: "Test User", Balance: decimal.RequireFromString(balance)}
	require.NoError(t, svc.CreateUser(context.Background(), user))
	return user
}

func TestNewService_RejectsInvalidConfig(t *testing.T) {
	_, err := NewService(context.Background(), models.DatabaseConfig{Path: "", MaxOpenConns: 1, PingTimeout: time.Second})
	assert.Error(t, err)

	_, err = NewService(context.Background(), models.DatabaseConfig{Path: "x.db", MaxOpenConns: 0, PingTimeout: time.Second})
	assert.Error(t, err)
}

func TestNewService_InMemory(t *testing.T) {
	svc, err := NewService(context.Background(), models.DatabaseConfig{Path: ":memory:", MaxOpenConns: 10, PingTimeout: time.Second})
	require.NoError(t, err)
	defer svc.Close()

	// Schema must survive across calls on the single pinned connection
	user := insertUser(t, svc, 1, "10")
	got, err := svc.GetUser(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, user.TgId, got.TgId)
}

func TestUser_RoundTripAndOptimisticLock(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()

	user := insertUser(t, svc, 42, "150.25")

	loaded, err := svc.GetUserByTgId(ctx, 42)
	require.NoError(t, err)
	assert.True(t, loaded.Balance.Equal(decimal.RequireFromString("150.25")))
	assert.Equal(t, int64(1), loaded.Version)
	assert.Empty(t, loaded.ReferrerId)

	stale := *loaded
	loaded.Balance = loaded.Balance.Sub(decimal.NewFromInt(50))
	loaded.CurrentTariffId = "okx"
	require.NoError(t, svc.UpdateUser(ctx, loaded))
	assert.Equal(t, int64(2), loaded.Version)

	stale.Balance = decimal.Zero
	err = svc.UpdateUser(ctx, &stale)
	require.ErrorIs(t, err, store.ErrConcurrentModification)

	reloaded, err := svc.GetUser(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, "100.25", reloaded.Balance.String())
	assert.Equal(t, "okx", reloaded.CurrentTariffId)
}

func TestUser_NotFoundAndDuplicate(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()

	_, err := svc.GetUser(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	insertUser(t, svc, 7, "0")
	err = svc.CreateUser(ctx, &models.User{Id: uuid.New().String(), TgId: 7})
	require.ErrorIs(t, err, store.ErrDuplicate)
}

func TestUser_NegativeBalanceRejectedBySchema(t *testing.T) {
	svc := setupTestDB(t)
	user := insertUser(t, svc, 9, "5")

	user.Balance = decimal.NewFromInt(-1)
	assert.Error(t, svc.UpdateUser(context.Background(), user))
}

func TestDeposit_OneActivePerUser(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()
	user := insertUser(t, svc, 1, "0")

	now := time.Now().UTC()
	first := &models.Deposit{Id: uuid.New().String(), UserId: user.Id, TariffId: "okx",
		Amount: decimal.NewFromInt(500), Status: models.DepositActive, StartedAt: &now}
	require.NoError(t, svc.CreateDeposit(ctx, first))

	second := &models.Deposit{Id: uuid.New().String(), UserId: user.Id, TariffId: "okx",
		Amount: decimal.NewFromInt(200), Status: models.DepositPending}
	require.NoError(t, svc.CreateDeposit(ctx, second))

	second.Status = models.DepositActive
	err := svc.UpdateDeposit(ctx, second)
	require.ErrorIs(t, err, store.ErrDuplicate)

	active, err := svc.GetActiveDeposit(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, first.Id, active.Id)
	require.NotNil(t, active.StartedAt)
	assert.True(t, active.StartedAt.Equal(now))
}

func TestDeposit_ListDueOrdersByNextPayout(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	early, late, future := now.Add(-2*time.Hour), now.Add(-time.Minute), now.Add(time.Hour)
	for i, next := range []time.Time{late, future, early} {
		user := insertUser(t, svc, int64(100+i), "0")
		next := next
		deposit := &models.Deposit{Id: uuid.New().String(), UserId: user.Id, TariffId: "okx",
			Amount: decimal.NewFromInt(1000), Status: models.DepositActive, NextPayoutAt: &next}
		require.NoError(t, svc.CreateDeposit(ctx, deposit))
	}

	due, err := svc.ListDueDeposits(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.True(t, due[0].NextPayoutAt.Equal(early))
	assert.True(t, due[1].NextPayoutAt.Equal(late))
}

func TestTransaction_FilterAndStatusTransition(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()
	user := insertUser(t, svc, 1, "0")

	withdraw := &models.Transaction{Id: uuid.New().String(), UserId: user.Id, Type: models.TxWithdraw,
		Amount: decimal.NewFromInt(-50), Status: models.TxPending, IsVisible: true}
	fake := &models.Transaction{Id: uuid.New().String(), UserId: user.Id, Type: models.TxDeposit,
		Amount: decimal.NewFromInt(900), Status: models.TxCompleted, IsVisible: true, IsFake: true}
	hidden := &models.Transaction{Id: uuid.New().String(), UserId: user.Id, Type: models.TxReferral,
		Amount: decimal.NewFromInt(20), Status: models.TxCompleted}
	for _, tx := range []*models.Transaction{withdraw, fake, hidden} {
		require.NoError(t, svc.InsertTransaction(ctx, tx))
	}

	nonFake, err := svc.ListTransactions(ctx, store.TransactionFilter{UserId: user.Id})
	require.NoError(t, err)
	assert.Len(t, nonFake, 2)

	visible, err := svc.CountTransactions(ctx, store.TransactionFilter{UserId: user.Id, IncludeFake: true, VisibleOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 2, visible)

	feedRows, err := svc.ListTransactions(ctx, store.TransactionFilter{
		Types: []models.TransactionType{models.TxDeposit, models.TxWithdraw}, IncludeFake: true, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, feedRows, 2)

	require.NoError(t, svc.UpdateTransactionStatus(ctx, withdraw.Id, models.TxPending, models.TxCompleted))
	err = svc.UpdateTransactionStatus(ctx, withdraw.Id, models.TxPending, models.TxRejected)
	require.ErrorIs(t, err, store.ErrConcurrentModification)

	loaded, err := svc.GetTransaction(ctx, withdraw.Id)
	require.NoError(t, err)
	assert.Equal(t, models.TxCompleted, loaded.Status)
	assert.Equal(t, "-50", loaded.Amount.String())
}

func TestReferral_DuplicateEdgeAndEarnings(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()
	referrer := insertUser(t, svc, 1, "0")
	referred := insertUser(t, svc, 2, "0")

	edge := &models.Referral{Id: uuid.New().String(), ReferrerId: referrer.Id, ReferredId: referred.Id, Level: 1}
	require.NoError(t, svc.InsertReferral(ctx, edge))

	dup := &models.Referral{Id: uuid.New().String(), ReferrerId: referrer.Id, ReferredId: referred.Id, Level: 1}
	require.ErrorIs(t, svc.InsertReferral(ctx, dup), store.ErrDuplicate)

	require.NoError(t, svc.AddReferralEarnings(ctx, edge.Id, decimal.RequireFromString("20.5")))
	require.NoError(t, svc.AddReferralEarnings(ctx, edge.Id, decimal.RequireFromString("0.1")))

	edges, err := svc.ListReferralsByReferred(ctx, referred.Id)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "20.6", edges[0].TotalEarned.String())
}

func TestPromoCode_CaseInsensitiveLookupAndCounts(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()
	user := insertUser(t, svc, 1, "0")

	promo := &models.PromoCode{Id: uuid.New().String(), Code: "WELCOME", Amount: decimal.NewFromInt(100), IsActive: true, MaxUsesPerUser: 1}
	require.NoError(t, svc.CreatePromoCode(ctx, promo))

	found, err := svc.GetPromoCodeByCode(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, promo.Id, found.Id)
	assert.Nil(t, found.ValidTo)

	require.NoError(t, svc.InsertPromoRedemption(ctx, &models.PromoRedemption{Id: uuid.New().String(),
		PromoCodeId: promo.Id, UserId: user.Id, Amount: promo.Amount}))

	total, err := svc.CountPromoRedemptions(ctx, promo.Id, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	mine, err := svc.CountPromoRedemptions(ctx, promo.Id, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, 0, mine)
}

func TestWithTx_RollbackDiscardsWritesAndHooks(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()
	user := insertUser(t, svc, 1, "100")

	hookRan := false
	boom := errors.New("boom")
	err := svc.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(ctx, user.Id)
		if err != nil {
			return err
		}
		u.Balance = decimal.Zero
		if err := tx.UpdateUser(ctx, u); err != nil {
			return err
		}
		tx.AfterCommit(func() { hookRan = true })
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, hookRan)

	reloaded, err := svc.GetUser(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, "100", reloaded.Balance.String())
}

func TestWithTx_SavepointIsolatesFailure(t *testing.T) {
	svc := setupTestDB(t)
	ctx := context.Background()
	first := insertUser(t, svc, 1, "100")
	second := insertUser(t, svc, 2, "100")

	var hooks []string
	err := svc.WithTx(ctx, func(tx store.Tx) error {
		for _, id := range []string{first.Id, second.Id} {
			id := id
			spErr := tx.Savepoint(ctx, func(tx store.Tx) error {
				u, err := tx.GetUser(ctx, id)
				if err != nil {
					return err
				}
				u.Balance = u.Balance.Add(decimal.NewFromInt(10))
				if err := tx.UpdateUser(ctx, u); err != nil {
					return err
				}
				tx.AfterCommit(func() { hooks = append(hooks, id) })
				if id == second.Id {
					return errors.New("second fails")
				}
				return nil
			})
			if spErr != nil {
				assert.Equal(t, second.Id, id)
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{first.Id}, hooks)

	assert.Equal(t, "110", mustUser(t, svc, first.Id).Balance.String())
	assert.Equal(t, "100", mustUser(t, svc, second.Id).Balance.String())
}

func mustUser(t *testing.T, svc *Service, id string) *models.User {
	t.Helper()
	u, err := svc.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func TestWithTx_CommitFailureSkipsHooks(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	svc := newServiceWithDB(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	hookRan := false
	err = svc.WithTx(context.Background(), func(tx store.Tx) error {
		tx.AfterCommit(func() { hookRan = true })
		return tx.InsertTransaction(context.Background(), &models.Transaction{Id: "t1", UserId: "u1",
			Type: models.TxBonus, Amount: decimal.NewFromInt(100), Status: models.TxCompleted})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	assert.False(t, hookRan)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSavepoint_RollsBackAndReleasesOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	svc := newServiceWithDB(db)

	mock.ExpectBegin()
	mock.ExpectExec("SAVEPOINT sp_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ROLLBACK TO sp_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RELEASE sp_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var inner error
	err = svc.WithTx(context.Background(), func(tx store.Tx) error {
		inner = tx.Savepoint(context.Background(), func(tx store.Tx) error {
			return tx.UpdateUser(context.Background(), &models.User{Id: "u1", Version: 3})
		})
		return nil
	})
	require.NoError(t, err)
	require.ErrorIs(t, inner, store.ErrConcurrentModification)
	assert.NoError(t, mock.ExpectationsWereMet())
}
