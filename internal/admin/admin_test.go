package admin

import (
	"context"
	"testing"
	"time"

	"invest-engine-go/internal/account"
	"invest-engine-go/internal/auth"
	"invest-engine-go/internal/database"
	"invest-engine-go/internal/deposit"
	"invest-engine-go/internal/ledger"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/payout"
	"invest-engine-go/internal/referral"
	"invest-engine-go/internal/store"
	"invest-engine-go/internal/tariff"
	"invest-engine-go/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminTgId  int64 = 1000
	investorId int64 = 1
)

type fixture struct {
	svc      *database.Service
	admin    *Service
	deposits *deposit.Manager
	now      time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()

	svc := testutil.NewStore(t)
	testutil.SeedTariffs(t, svc)
	testutil.CreateUser(t, svc, adminTgId, "0", "")

	f := &fixture{svc: svc, now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }

	tariffs := tariff.NewService()
	recorder := ledger.NewRecorder(nil, nil)
	referrals := referral.NewService(recorder, nil, "")
	f.deposits = deposit.NewManager(svc, tariffs, referrals, recorder, nil, deposit.Config{}, deposit.WithClock(clock))
	policy := auth.NewPolicy(svc)
	_, err := policy.Bootstrap(context.Background(), []int64{adminTgId})
	require.NoError(t, err)

	accounts := account.NewService(svc, tariffs, referrals, recorder, f.deposits, policy, account.WithClock(clock))
	engine := payout.NewEngine(svc, tariffs, recorder, nil, payout.WithClock(clock))
	f.admin = NewService(svc, policy, f.deposits, accounts, engine)
	return f
}

func TestNonAdminIsForbidden(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	investor := testutil.CreateUser(t, f.svc, investorId, "0", "")

	_, err := f.admin.AddBalance(ctx, investorId, investor.Id, decimal.NewFromInt(100))
	require.ErrorIs(t, err, models.ErrForbidden)
	_, err = f.admin.TriggerPayouts(ctx, investorId)
	require.ErrorIs(t, err, models.ErrForbidden)
	_, err = f.admin.PendingDeposits(ctx, investorId)
	require.ErrorIs(t, err, models.ErrForbidden)

	assert.True(t, testutil.MustUser(t, f.svc, investor.Id).Balance.IsZero())
}

func TestAddBalanceThenApproveDeposit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	investor := testutil.CreateUser(t, f.svc, investorId, "0", "")

	updated, err := f.admin.AddBalance(ctx, adminTgId, investor.Id, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "1000", updated.Balance.String())
	assert.True(t, updated.TotalDeposit.IsZero())

	pending, err := f.deposits.Create(ctx, deposit.CreateParams{UserId: investor.Id, Amount: decimal.NewFromInt(600)})
	require.NoError(t, err)
	rejectMe, err := f.deposits.Create(ctx, deposit.CreateParams{UserId: investor.Id, Amount: decimal.NewFromInt(100)})
	require.NoError(t, err)

	listed, err := f.admin.PendingDeposits(ctx, adminTgId)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	activated, err := f.admin.ApproveDeposit(ctx, adminTgId, pending.Id)
	require.NoError(t, err)
	assert.Equal(t, models.DepositActive, activated.Status)

	cancelled, err := f.admin.RejectDeposit(ctx, adminTgId, rejectMe.Id)
	require.NoError(t, err)
	assert.Equal(t, models.DepositCancelled, cancelled.Status)

	assert.Equal(t, "400", testutil.MustUser(t, f.svc, investor.Id).Balance.String())
}

func TestTriggerPayouts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	investor := testutil.CreateUser(t, f.svc, investorId, "5000", "")
	_, err := f.deposits.Create(ctx, deposit.CreateParams{UserId: investor.Id, Amount: decimal.NewFromInt(5000), AutoActivate: true})
	require.NoError(t, err)

	f.now = f.now.Add(24 * time.Hour)
	processed, err := f.admin.TriggerPayouts(ctx, adminTgId)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, "160", testutil.MustUser(t, f.svc, investor.Id).Accumulated.String())
}

func TestWithdrawalDecisions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	investor := testutil.CreateUser(t, f.svc, investorId, "0", "")
	_, err := f.admin.AddBalance(ctx, adminTgId, investor.Id, decimal.NewFromInt(300))
	require.NoError(t, err)

	accounts := f.admin.accounts
	request, _, err := accounts.RequestWithdrawal(ctx, investor.Id, decimal.NewFromInt(300))
	require.NoError(t, err)

	_, err = f.admin.ApproveWithdrawal(ctx, investorId, request.Id)
	require.ErrorIs(t, err, models.ErrForbidden)

	pending, err := f.admin.PendingWithdrawals(ctx, adminTgId)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	rejected, err := f.admin.RejectWithdrawal(ctx, adminTgId, request.Id)
	require.NoError(t, err)
	assert.Equal(t, models.TxRejected, rejected.Status)
	assert.Equal(t, "300", testutil.MustUser(t, f.svc, investor.Id).Balance.String())

	request, _, err = accounts.RequestWithdrawal(ctx, investor.Id, decimal.NewFromInt(300))
	require.NoError(t, err)
	approved, err := f.admin.ApproveWithdrawal(ctx, adminTgId, request.Id)
	require.NoError(t, err)
	assert.Equal(t, models.TxCompleted, approved.Status)
	assert.True(t, testutil.MustUser(t, f.svc, investor.Id).Balance.IsZero())
}

func TestCreatePromoAndBan(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	investor := testutil.CreateUser(t, f.svc, investorId, "0", "")

	_, err := f.admin.CreatePromo(ctx, adminTgId, PromoParams{Code: " ", Amount: decimal.NewFromInt(10)})
	require.ErrorIs(t, err, models.ErrValidation)

	promo, err := f.admin.CreatePromo(ctx, adminTgId, PromoParams{Code: "launch", Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Equal(t, "LAUNCH", promo.Code)
	assert.Equal(t, 1, promo.MaxUsesPerUser)

	_, _, err = f.admin.accounts.RedeemPromo(ctx, investor.Id, "Launch")
	require.NoError(t, err)

	banned, err := f.admin.SetBanned(ctx, adminTgId, investor.Id, true)
	require.NoError(t, err)
	assert.True(t, banned.IsBanned)

	_, err = f.deposits.Create(ctx, deposit.CreateParams{UserId: investor.Id, Amount: decimal.NewFromInt(100)})
	require.ErrorIs(t, err, models.ErrUserBanned)

	transactions, err := f.svc.ListTransactions(ctx, store.TransactionFilter{UserId: investor.Id, Type: models.TxBonus})
	require.NoError(t, err)
	assert.Len(t, transactions, 1)
}
