// Package auth decides which users may run admin operations. The users
// table is the only source of truth; the configured allowlist is folded
// into it at boot and at registration.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"go.uber.org/zap"
)

type Capability string

const (
	ApproveDeposits    Capability = "approve_deposits"
	ApproveWithdrawals Capability = "approve_withdrawals"
	AdjustBalance      Capability = "adjust_balance"
	TriggerPayouts     Capability = "trigger_payouts"
	ManagePromos       Capability = "manage_promos"
	ManageUsers        Capability = "manage_users"
)

func (c Capability) Valid() bool {
	switch c {
	case ApproveDeposits, ApproveWithdrawals, AdjustBalance, TriggerPayouts, ManagePromos, ManageUsers:
		return true
	}
	return false
}

type Policy struct {
	store store.Store

	mu        sync.RWMutex
	allowlist []int64
}

func NewPolicy(st store.Store) *Policy {
	return &Policy{store: st}
}

// Bootstrap remembers the allowlist and promotes every allowlisted user that
// already exists. It returns the number of users promoted.
func (p *Policy) Bootstrap(ctx context.Context, allowlist []int64) (int, error) {
	p.mu.Lock()
	p.allowlist = slices.Clone(allowlist)
	p.mu.Unlock()

	promoted := 0
	err := p.store.WithTx(ctx, func(tx store.Tx) error {
		promoted = 0
		for _, tgId := range allowlist {
			user, err := tx.GetUserByTgId(ctx, tgId)
			if errors.Is(err, store.ErrNotFound) {
				zap.L().Debug("Allowlisted admin not registered yet", zap.Int64("tg_id", tgId))
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to load admin %d: %w", tgId, err)
			}
			if user.IsAdmin {
				continue
			}

			user.IsAdmin = true
			if err := tx.UpdateUser(ctx, user); err != nil {
				return fmt.Errorf("failed to promote admin %d: %w", tgId, err)
			}
			promoted++
			zap.L().Info("User promoted to admin", zap.Int64("tg_id", tgId), zap.String("user_id", user.Id))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return promoted, nil
}

// Allowlisted reports whether tgId should be created as an admin
func (p *Policy) Allowlisted(tgId int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Contains(p.allowlist, tgId)
}

// Authorize returns the acting user when they may use capability, and an
// error wrapping models.ErrForbidden otherwise.
func (p *Policy) Authorize(ctx context.Context, actorTgId int64, capability Capability) (*models.User, error) {
	if !capability.Valid() {
		return nil, fmt.Errorf("%w: unknown capability %q", models.ErrForbidden, capability)
	}

	user, err := p.store.GetUserByTgId(ctx, actorTgId)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, p.deny(actorTgId, capability, "unknown user")
		}
		return nil, fmt.Errorf("failed to load actor: %w", err)
	}
	if user.IsBanned {
		return nil, p.deny(actorTgId, capability, "banned")
	}
	if !user.IsAdmin {
		return nil, p.deny(actorTgId, capability, "not an admin")
	}
	return user, nil
}

func (p *Policy) deny(tgId int64, capability Capability, reason string) error {
	zap.L().Warn("Admin access denied",
		zap.Int64("tg_id", tgId),
		zap.String("capability", string(capability)),
		zap.String("reason", reason))
	return fmt.Errorf("%w: %s", models.ErrForbidden, reason)
}
