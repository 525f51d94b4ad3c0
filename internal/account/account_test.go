package account

import (
	"context"
	"testing"
	"time"

	"invest-engine-go/internal/auth"
	"invest-engine-go/internal/database"
	"invest-engine-go/internal/deposit"
	"invest-engine-go/internal/ledger"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/referral"
	"invest-engine-go/internal/store"
	"invest-engine-go/internal/tariff"
	"invest-engine-go/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *database.Service
	deposits *deposit.Manager
	accounts *Service
	policy   *auth.Policy
}

func setup(t *testing.T) *fixture {
	t.Helper()

	svc := testutil.NewStore(t)
	testutil.SeedTariffs(t, svc)

	now := func() time.Time { return epoch }
	tariffs := tariff.NewService()
	recorder := ledger.NewRecorder(nil, nil)
	referrals := referral.NewService(recorder, nil, "invest_bot")
	deposits := deposit.NewManager(svc, tariffs, referrals, recorder, nil, deposit.Config{}, deposit.WithClock(now))
	policy := auth.NewPolicy(svc)

	return &fixture{
		svc:      svc,
		deposits: deposits,
		accounts: NewService(svc, tariffs, referrals, recorder, deposits, policy, WithClock(now)),
		policy:   policy,
	}
}

func TestRegister_BuildsReferralChain(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var users []*models.User
	for i := int64(1); i <= 5; i++ {
		user, created, err := f.accounts.Register(ctx, RegisterParams{TgId: i, FirstName: "U", ReferrerTgId: i - 1})
		require.NoError(t, err)
		require.True(t, created)
		users = append(users, user)
	}
	assert.Empty(t, users[0].ReferrerId)
	assert.Equal(t, users[3].Id, users[4].ReferrerId)

	edges, err := f.svc.ListReferralsByReferred(ctx, users[4].Id)
	require.NoError(t, err)
	require.Len(t, edges, 3)
	levels := map[int]string{}
	for _, edge := range edges {
		levels[edge.Level] = edge.ReferrerId
	}
	assert.Equal(t, users[3].Id, levels[1])
	assert.Equal(t, users[2].Id, levels[2])
	assert.Equal(t, users[1].Id, levels[3])
}

func TestRegister_ExistingUserAndEdgeCases(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.accounts.Register(ctx, RegisterParams{})
	require.ErrorIs(t, err, models.ErrValidation)

	self, created, err := f.accounts.Register(ctx, RegisterParams{TgId: 7, ReferrerTgId: 7})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, self.ReferrerId)

	orphan, _, err := f.accounts.Register(ctx, RegisterParams{TgId: 8, ReferrerTgId: 404})
	require.NoError(t, err)
	assert.Empty(t, orphan.ReferrerId)

	again, created, err := f.accounts.Register(ctx, RegisterParams{TgId: 7, Username: "seven"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, self.Id, again.Id)
	assert.Equal(t, "seven", testutil.MustUser(t, f.svc, self.Id).Username)
}

func TestRegister_AllowlistedAdmin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.policy.Bootstrap(ctx, []int64{42})
	require.NoError(t, err)

	admin, _, err := f.accounts.Register(ctx, RegisterParams{TgId: 42})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)

	_, err = f.policy.Authorize(ctx, 42, auth.ApproveDeposits)
	require.NoError(t, err)
}

func TestCreditBonus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.svc, 1, "0", "")

	_, err := f.accounts.CreditBonus(ctx, user.Id, decimal.Zero, "")
	require.ErrorIs(t, err, models.ErrNonPositiveAmount)

	updated, err := f.accounts.CreditBonus(ctx, user.Id, decimal.NewFromInt(100), "Welcome bonus")
	require.NoError(t, err)
	assert.Equal(t, "100", updated.Balance.String())

	reloaded := testutil.MustUser(t, f.svc, user.Id)
	assert.Equal(t, "100", reloaded.Balance.String())
	assert.True(t, reloaded.TotalDeposit.IsZero())

	transactions, err := f.svc.ListTransactions(ctx, store.TransactionFilter{UserId: user.Id})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, models.TxBonus, transactions[0].Type)
	assert.Equal(t, "100", transactions[0].Amount.String())
}

func TestRedeemPromo(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, f.svc, 1, "0", "")
	bob := testutil.CreateUser(t, f.svc, 2, "0", "")
	carol := testutil.CreateUser(t, f.svc, 3, "0", "")

	expired := epoch.Add(-time.Hour)
	require.NoError(t, f.svc.CreatePromoCode(ctx, &models.PromoCode{
		Id: "p1", Code: "Spring25", Amount: decimal.NewFromInt(25), IsActive: true, MaxUsesTotal: 2, MaxUsesPerUser: 1,
	}))
	require.NoError(t, f.svc.CreatePromoCode(ctx, &models.PromoCode{
		Id: "p2", Code: "OLD", Amount: decimal.NewFromInt(10), IsActive: true, ValidTo: &expired,
	}))
	require.NoError(t, f.svc.CreatePromoCode(ctx, &models.PromoCode{
		Id: "p3", Code: "OFF", Amount: decimal.NewFromInt(10), IsActive: false,
	}))

	promo, user, err := f.accounts.RedeemPromo(ctx, alice.Id, "  spring25 ")
	require.NoError(t, err)
	assert.Equal(t, "p1", promo.Id)
	assert.Equal(t, "25", user.Balance.String())

	_, _, err = f.accounts.RedeemPromo(ctx, alice.Id, "SPRING25")
	require.ErrorIs(t, err, models.ErrPromoExhausted)

	_, _, err = f.accounts.RedeemPromo(ctx, bob.Id, "SPRING25")
	require.NoError(t, err)

	_, _, err = f.accounts.RedeemPromo(ctx, carol.Id, "SPRING25")
	require.ErrorIs(t, err, models.ErrPromoExhausted)

	for _, code := range []string{"", "OLD", "OFF", "MISSING"} {
		_, _, err = f.accounts.RedeemPromo(ctx, carol.Id, code)
		require.ErrorIs(t, err, models.ErrPromoInvalid, "code %q", code)
	}
	assert.True(t, testutil.MustUser(t, f.svc, carol.Id).Balance.IsZero())
}

func TestWithdrawalLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.svc, 1, "1000", "")

	_, _, err := f.accounts.RequestWithdrawal(ctx, user.Id, decimal.NewFromInt(100))
	require.ErrorIs(t, err, models.ErrWithdrawalNotAllowed)

	_, err = f.deposits.Create(ctx, deposit.CreateParams{UserId: user.Id, Amount: decimal.NewFromInt(500), AutoActivate: true})
	require.NoError(t, err)

	_, _, err = f.accounts.RequestWithdrawal(ctx, user.Id, decimal.NewFromInt(501))
	require.ErrorIs(t, err, models.ErrInsufficientBalance)

	first, updated, err := f.accounts.RequestWithdrawal(ctx, user.Id, decimal.NewFromInt(200))
	require.NoError(t, err)
	assert.Equal(t, "300", updated.Balance.String())
	assert.Equal(t, models.TxPending, first.Status)
	assert.Equal(t, "-200", first.Amount.String())

	second, _, err := f.accounts.RequestWithdrawal(ctx, user.Id, decimal.NewFromInt(100))
	require.NoError(t, err)

	pending, err := f.accounts.PendingWithdrawals(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	approved, err := f.accounts.ApproveWithdrawal(ctx, first.Id)
	require.NoError(t, err)
	assert.Equal(t, models.TxCompleted, approved.Status)

	rejected, err := f.accounts.RejectWithdrawal(ctx, second.Id)
	require.NoError(t, err)
	assert.Equal(t, models.TxRejected, rejected.Status)
	assert.Equal(t, "300", testutil.MustUser(t, f.svc, user.Id).Balance.String(), "rejection refunds the request")

	_, err = f.accounts.RejectWithdrawal(ctx, first.Id)
	require.ErrorIs(t, err, models.ErrTransactionNotPending)

	deposits, err := f.svc.ListTransactions(ctx, store.TransactionFilter{UserId: user.Id, Type: models.TxDeposit})
	require.NoError(t, err)
	require.NotEmpty(t, deposits)
	_, err = f.accounts.ApproveWithdrawal(ctx, deposits[0].Id)
	require.ErrorIs(t, err, models.ErrNotWithdrawal)
}

func TestWithdrawalAllowedAfterPastDeposit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.svc, 1, "1000", "")

	_, err := f.deposits.Create(ctx, deposit.CreateParams{UserId: user.Id, Amount: decimal.NewFromInt(500), AutoActivate: true})
	require.NoError(t, err)
	_, err = f.deposits.Withdraw(ctx, user.Id)
	require.NoError(t, err)

	_, updated, err := f.accounts.RequestWithdrawal(ctx, user.Id, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, updated.Balance.IsZero())
}

func TestGame(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.svc, 1, "50", "")

	_, err := f.accounts.GameBet(ctx, user.Id, decimal.NewFromInt(60))
	require.ErrorIs(t, err, models.ErrInsufficientBalance)

	updated, err := f.accounts.GameBet(ctx, user.Id, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, updated.Balance.IsZero())

	updated, err = f.accounts.GamePayout(ctx, user.Id, decimal.NewFromInt(90))
	require.NoError(t, err)
	assert.Equal(t, "90", updated.Balance.String())

	transactions, err := f.svc.ListTransactions(ctx, store.TransactionFilter{UserId: user.Id})
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	for _, tx := range transactions {
		assert.False(t, tx.IsVisible, "game transactions stay off the live feed")
	}
}

func TestSetAutoReinvest_AppliesToActiveDeposit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.svc, 1, "1000", "")

	updated, err := f.accounts.SetAutoReinvest(ctx, user.Id, true)
	require.NoError(t, err)
	assert.True(t, updated.AutoReinvest)

	d, err := f.deposits.Create(ctx, deposit.CreateParams{UserId: user.Id, Amount: decimal.NewFromInt(500), AutoActivate: true})
	require.NoError(t, err)
	assert.False(t, d.AutoReinvest)

	_, err = f.accounts.SetAutoReinvest(ctx, user.Id, true)
	require.NoError(t, err)
	reloaded, err := f.svc.GetDeposit(ctx, d.Id)
	require.NoError(t, err)
	assert.True(t, reloaded.AutoReinvest)
}

func TestStats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	referrer, _, err := f.accounts.Register(ctx, RegisterParams{TgId: 1})
	require.NoError(t, err)
	user, _, err := f.accounts.Register(ctx, RegisterParams{TgId: 2, ReferrerTgId: 1})
	require.NoError(t, err)

	_, err = f.accounts.CreditBonus(ctx, user.Id, decimal.NewFromInt(6000), "")
	require.NoError(t, err)
	_, err = f.deposits.Create(ctx, deposit.CreateParams{UserId: user.Id, Amount: decimal.NewFromInt(4000), AutoActivate: true})
	require.NoError(t, err)

	stats, err := f.accounts.Stats(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, "2000", stats.Balance.String())
	assert.Equal(t, "OKX", stats.CurrentTariffName)
	assert.Equal(t, "3.2", stats.CurrentTariffPercent.String())
	assert.Equal(t, "Bybit", stats.NextTariffName)
	require.NotNil(t, stats.AmountToNextTariff)
	assert.Equal(t, "6000", stats.AmountToNextTariff.String())
	require.NotNil(t, stats.SecondsToNextPayout)
	assert.Equal(t, int64(24*60*60), *stats.SecondsToNextPayout)

	referrerStats, err := f.accounts.Stats(ctx, referrer.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, referrerStats.PartnersCount)
	assert.Equal(t, 1, referrerStats.ActivePartnersCount)
	assert.Equal(t, "800", referrerStats.Balance.String())
	assert.Nil(t, referrerStats.SecondsToNextPayout)

	link, err := f.accounts.ReferralStats(ctx, referrer.Id)
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/invest_bot?start=1", link.ReferralLink)
}
