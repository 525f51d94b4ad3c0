package common

import (
	"context"
	"fmt"

	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"go.uber.org/zap"
)

// SelectUsers retrieves users based on an optional telegram id filter.
// A zero filter returns all users.
func SelectUsers(ctx context.Context, q store.Queries, tgIdFilter int64) ([]models.User, error) {
	if tgIdFilter != 0 {
		zap.L().Info("Looking up user by telegram id", zap.Int64("tg_id", tgIdFilter))
		user, err := q.GetUserByTgId(ctx, tgIdFilter)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return []models.User{*user}, nil
	}

	users, err := q.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
