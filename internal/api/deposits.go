package api

import (
	"context"

	"invest-engine-go/internal/deposit"
	"invest-engine-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateDeposit opens and activates a deposit funded from balance, or tops
// up the active one
func (s *Service) CreateDeposit(ctx context.Context, userId string, amount decimal.Decimal, autoReinvest bool) (*models.OperationResult, error) {
	ctx = withOrigin(ctx, userId)

	d, err := s.deposits.Create(ctx, deposit.CreateParams{
		UserId:       userId,
		Amount:       amount,
		AutoReinvest: autoReinvest,
		AutoActivate: true,
	})
	if err != nil {
		return rejected("create deposit", userId, err)
	}
	return s.resultFor(ctx, userId, amount, d.Id)
}

// Reinvest folds accumulated profit into the active deposit
func (s *Service) Reinvest(ctx context.Context, userId string) (*models.OperationResult, error) {
	ctx = withOrigin(ctx, userId)

	before, err := s.store.GetUser(ctx, userId)
	if err != nil {
		return rejected("reinvest", userId, err)
	}
	d, err := s.deposits.Reinvest(ctx, userId)
	if err != nil {
		return rejected("reinvest", userId, err)
	}
	return s.resultFor(ctx, userId, before.Accumulated, d.Id)
}

// WithdrawDeposit closes the active deposit and returns its funds to balance
func (s *Service) WithdrawDeposit(ctx context.Context, userId string) (*models.OperationResult, error) {
	ctx = withOrigin(ctx, userId)

	principal, err := s.deposits.Withdraw(ctx, userId)
	if err != nil {
		return rejected("withdraw deposit", userId, err)
	}
	return s.resultFor(ctx, userId, principal, "")
}

// Collect moves accumulated profit to balance
func (s *Service) Collect(ctx context.Context, userId string) (*models.OperationResult, error) {
	ctx = withOrigin(ctx, userId)

	collected, err := s.deposits.Collect(ctx, userId)
	if err != nil {
		return rejected("collect", userId, err)
	}
	return s.resultFor(ctx, userId, collected, "")
}

// ActiveDeposit returns the user's active deposit, or nil
func (s *Service) ActiveDeposit(ctx context.Context, userId string) (*models.DepositView, error) {
	d, err := s.deposits.ActiveDeposit(ctx, userId)
	if err != nil || d == nil {
		return nil, err
	}
	view := s.view(ctx, *d)
	return &view, nil
}

// DepositHistory returns every deposit of the user, newest first
func (s *Service) DepositHistory(ctx context.Context, userId string) ([]models.DepositView, error) {
	deposits, err := s.deposits.UserDeposits(ctx, userId)
	if err != nil {
		return nil, err
	}

	views := make([]models.DepositView, len(deposits))
	for i, d := range deposits {
		views[i] = s.view(ctx, d)
	}
	return views, nil
}

// DueDeposits lists active deposits waiting for a payout
func (s *Service) DueDeposits(ctx context.Context) ([]models.Deposit, error) {
	return s.deposits.DueDeposits(ctx, s.now())
}

// TriggerPayouts runs a sweep for operational recovery
func (s *Service) TriggerPayouts(ctx context.Context) (int, error) {
	ctx = models.WithOrigin(ctx, models.Origin{Source: "api"})
	return s.sweeper.Sweep(ctx)
}

func (s *Service) view(ctx context.Context, d models.Deposit) models.DepositView {
	view := models.DepositView{
		Id:           d.Id,
		Amount:       d.Amount,
		Earned:       d.Earned,
		Status:       string(d.Status),
		IsReinvest:   d.IsReinvest,
		AutoReinvest: d.AutoReinvest,
		StartedAt:    d.StartedAt,
		NextPayoutAt: d.NextPayoutAt,
		CreatedAt:    d.CreatedAt,
	}
	if tr, err := s.store.GetTariff(ctx, d.TariffId); err == nil {
		view.TariffName = tr.Name
		view.TariffPercent = tr.DailyPercent
	} else {
		zap.L().Warn("Tariff lookup failed for deposit", zap.String("deposit_id", d.Id), zap.Error(err))
	}
	return view
}

func (s *Service) resultFor(ctx context.Context, userId string, amount decimal.Decimal, depositId string) (*models.OperationResult, error) {
	user, err := s.store.GetUser(ctx, userId)
	if err != nil {
		zap.L().Error("User lookup failed after operation", zap.String("user_id", userId), zap.Error(err))
		return &models.OperationResult{
			Success:   true,
			UserId:    userId,
			Amount:    amount,
			DepositId: depositId,
		}, nil
	}
	return &models.OperationResult{
		Success:    true,
		UserId:     userId,
		Amount:     amount,
		NewBalance: user.Balance,
		DepositId:  depositId,
	}, nil
}
