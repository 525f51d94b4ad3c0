package account

import (
	"context"
	"errors"
	"fmt"

	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"
)

// Stats builds the dashboard aggregates for a user
func (s *Service) Stats(ctx context.Context, userId string) (*models.UserStats, error) {
	user, err := s.store.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}

	stats := &models.UserStats{
		Balance:        user.Balance,
		TotalDeposit:   user.TotalDeposit,
		TotalEarned:    user.TotalEarned,
		Accumulated:    user.Accumulated,
		ReferralEarned: user.ReferralEarned,
	}

	if user.CurrentTariffId != "" {
		current, err := s.store.GetTariff(ctx, user.CurrentTariffId)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		if current != nil {
			stats.CurrentTariffName = current.Name
			stats.CurrentTariffPercent = current.DailyPercent
		}
	}

	next, err := s.tariffs.NextTariff(ctx, s.store, user.TotalDeposit)
	if err != nil {
		return nil, err
	}
	if next != nil {
		stats.NextTariffName = next.Name
		gap := next.MinAmount.Sub(user.TotalDeposit)
		stats.AmountToNextTariff = &gap
	}

	active, err := s.deposits.ActiveDeposit(ctx, userId)
	if err != nil {
		return nil, err
	}
	if active != nil {
		var seconds int64
		if active.NextPayoutAt != nil {
			seconds = max(0, int64(active.NextPayoutAt.Sub(s.now()).Seconds()))
		}
		stats.SecondsToNextPayout = &seconds
	}

	partners, err := s.referrals.Stats(ctx, s.store, user)
	if err != nil {
		return nil, fmt.Errorf("failed to load referral stats: %w", err)
	}
	stats.PartnersCount = partners.TotalPartners
	stats.ActivePartnersCount = partners.ActivePartners
	return stats, nil
}

// ReferralStats returns the user's partner summary and referral link
func (s *Service) ReferralStats(ctx context.Context, userId string) (*models.ReferralStats, error) {
	user, err := s.store.GetUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	return s.referrals.Stats(ctx, s.store, user)
}

// Partners lists the users invited by userId
func (s *Service) Partners(ctx context.Context, userId string) ([]models.PartnerView, error) {
	return s.referrals.Partners(ctx, s.store, userId)
}
