package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"invest-engine-go/internal/ledger"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreditBonus adds amount to the user's balance as a bonus. Bonuses are not
// principal and leave TotalDeposit alone.
func (s *Service) CreditBonus(ctx context.Context, userId string, amount decimal.Decimal, description string) (*models.User, error) {
	if !amount.IsPositive() {
		return nil, models.ErrNonPositiveAmount
	}
	if description == "" {
		description = fmt.Sprintf("Bonus +%s", amount.String())
	}

	var user *models.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = s.credit(ctx, tx, userId, models.TxBonus, amount, description, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RedeemPromo applies a promo code to the user. Codes match case-insensitively.
func (s *Service) RedeemPromo(ctx context.Context, userId, code string) (*models.PromoCode, *models.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil, fmt.Errorf("%w: empty code", models.ErrPromoInvalid)
	}

	var promo *models.PromoCode
	var user *models.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		promo, err = tx.GetPromoCodeByCode(ctx, code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s not found", models.ErrPromoInvalid, code)
			}
			return err
		}
		if err := s.checkPromo(ctx, tx, promo, userId); err != nil {
			return err
		}

		user, err = s.credit(ctx, tx, userId, models.TxBonus, promo.Amount,
			fmt.Sprintf("Promo code %s (+%s)", promo.Code, promo.Amount.String()), true)
		if err != nil {
			return err
		}
		return tx.InsertPromoRedemption(ctx, &models.PromoRedemption{
			Id:          uuid.New().String(),
			PromoCodeId: promo.Id,
			UserId:      userId,
			Amount:      promo.Amount,
			RedeemedAt:  s.now().UTC(),
		})
	})
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("Promo code redeemed",
		zap.String("code", promo.Code),
		zap.String("user_id", userId),
		zap.String("amount", promo.Amount.String()))
	return promo, user, nil
}

func (s *Service) checkPromo(ctx context.Context, q store.Queries, promo *models.PromoCode, userId string) error {
	if !promo.IsActive {
		return fmt.Errorf("%w: %s is inactive", models.ErrPromoInvalid, promo.Code)
	}
	now := s.now().UTC()
	if promo.ValidFrom != nil && now.Before(*promo.ValidFrom) {
		return fmt.Errorf("%w: %s is not active yet", models.ErrPromoInvalid, promo.Code)
	}
	if promo.ValidTo != nil && now.After(*promo.ValidTo) {
		return fmt.Errorf("%w: %s has expired", models.ErrPromoInvalid, promo.Code)
	}
	if !promo.Amount.IsPositive() {
		return fmt.Errorf("%w: %s has no amount", models.ErrPromoInvalid, promo.Code)
	}

	if promo.MaxUsesTotal > 0 {
		used, err := q.CountPromoRedemptions(ctx, promo.Id, "")
		if err != nil {
			return err
		}
		if used >= promo.MaxUsesTotal {
			return models.ErrPromoExhausted
		}
	}
	if promo.MaxUsesPerUser > 0 {
		used, err := q.CountPromoRedemptions(ctx, promo.Id, userId)
		if err != nil {
			return err
		}
		if used >= promo.MaxUsesPerUser {
			return fmt.Errorf("%w: already used", models.ErrPromoExhausted)
		}
	}
	return nil
}

// GameBet takes a mini-game stake from the balance
func (s *Service) GameBet(ctx context.Context, userId string, amount decimal.Decimal) (*models.User, error) {
	if !amount.IsPositive() {
		return nil, models.ErrNonPositiveAmount
	}

	var user *models.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = s.debit(ctx, tx, userId, models.TxGameBet, models.TxCompleted, amount,
			fmt.Sprintf("Mini-game bet %s", amount.String()), false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GamePayout credits mini-game winnings
func (s *Service) GamePayout(ctx context.Context, userId string, amount decimal.Decimal) (*models.User, error) {
	if !amount.IsPositive() {
		return nil, models.ErrNonPositiveAmount
	}

	var user *models.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = s.credit(ctx, tx, userId, models.TxGamePayout, amount,
			fmt.Sprintf("Mini-game win %s", amount.String()), false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) credit(ctx context.Context, tx store.Tx, userId string, txType models.TransactionType,
	amount decimal.Decimal, description string, visible bool) (*models.User, error) {
	user, err := tx.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	user.Balance = user.Balance.Add(amount)
	if err := tx.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	if _, err := s.recorder.Record(ctx, tx, ledger.RecordParams{
		UserId:      user.Id,
		Type:        txType,
		Amount:      amount,
		Status:      models.TxCompleted,
		Description: description,
		IsVisible:   visible,
	}); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) debit(ctx context.Context, tx store.Tx, userId string, txType models.TransactionType,
	status models.TransactionStatus, amount decimal.Decimal, description string, visible bool) (*models.User, error) {
	user, err := tx.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user.Balance.LessThan(amount) {
		return nil, models.ErrInsufficientBalance
	}
	user.Balance = user.Balance.Sub(amount)
	if err := tx.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	if _, err := s.recorder.Record(ctx, tx, ledger.RecordParams{
		UserId:      user.Id,
		Type:        txType,
		Amount:      amount.Neg(),
		Status:      status,
		Description: description,
		IsVisible:   visible,
	}); err != nil {
		return nil, err
	}
	return user, nil
}

// AddFunds credits an external payment to the balance. It is recorded as a
// completed deposit, which also unlocks withdrawals.
func (s *Service) AddFunds(ctx context.Context, userId string, amount decimal.Decimal, description string) (*models.User, error) {
	if !amount.IsPositive() {
		return nil, models.ErrNonPositiveAmount
	}
	if description == "" {
		description = fmt.Sprintf("Balance top-up %s", amount.String())
	}

	var user *models.User
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		user, err = s.credit(ctx, tx, userId, models.TxDeposit, amount, description, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Funds added",
		zap.String("user_id", userId),
		zap.String("amount", amount.String()),
		zap.String("origin", models.OriginFrom(ctx).Source))
	return user, nil
}
