package payout

import (
	"context"
	"testing"
	"time"

	"invest-engine-go/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_RejectsBadSchedule(t *testing.T) {
	f := setup(t, nil)

	_, err := NewScheduler(f.engine, "every minute please", time.Second)
	require.Error(t, err)

	s, err := NewScheduler(f.engine, "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, s.schedule)
}

func TestScheduler_TriggerAndStop(t *testing.T) {
	f := setup(t, nil)
	user := testutil.CreateUser(t, f.svc, 1, "1000", "")
	f.invest(t, user, 1000)

	s, err := NewScheduler(f.engine, "@every 1h", time.Minute)
	require.NoError(t, err)
	s.Start(context.Background())

	f.clock.Advance(24 * time.Hour)
	processed, err := s.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_TickRunsSweep(t *testing.T) {
	f := setup(t, nil)
	user := testutil.CreateUser(t, f.svc, 1, "1000", "")
	f.invest(t, user, 1000)
	f.clock.Advance(24 * time.Hour)

	s, err := NewScheduler(f.engine, "", time.Minute)
	require.NoError(t, err)
	s.tick()

	assert.Equal(t, "32", testutil.MustUser(t, f.svc, user.Id).Accumulated.String())
}
