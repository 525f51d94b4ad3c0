package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"invest-engine-go/internal/ledger"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"
	"invest-engine-go/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFanOut struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

func (r *recordingFanOut) Publish(ctx context.Context, channel string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *recordingFanOut) events(t *testing.T) []Event {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, payload := range r.payloads {
		var event Event
		require.NoError(t, json.Unmarshal(payload, &event))
		out = append(out, event)
	}
	return out
}

func TestSnapshot_SeedsOnFirstAccess(t *testing.T) {
	svc := testutil.NewStore(t)
	p := NewPublisher(svc, nil, nil, Config{})

	snapshot := p.Snapshot(context.Background())
	assert.Equal(t, EventInit, snapshot.Type)
	assert.Len(t, snapshot.LiveTransactions, LiveSize)
	assert.Len(t, snapshot.TopStrip, TopSize)
	for _, item := range snapshot.LiveTransactions {
		assert.True(t, item.IsFake)
		if item.Type == string(models.TxWithdraw) {
			assert.True(t, item.Amount.IsNegative())
		} else {
			assert.True(t, item.Amount.IsPositive())
		}
		assert.Len(t, item.Time, 5)
	}

	again := p.Snapshot(context.Background())
	assert.Equal(t, snapshot.TopStrip, again.TopStrip, "seeding happens once")
}

func TestSnapshot_MixesRealTransactions(t *testing.T) {
	svc := testutil.NewStore(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, svc, 1, "0", "")

	recorder := ledger.NewRecorder(nil, nil)
	require.NoError(t, svc.WithTx(ctx, func(tx store.Tx) error {
		if _, err := recorder.Record(ctx, tx, ledger.RecordParams{
			UserId: user.Id, Type: models.TxDeposit, Amount: decimal.NewFromInt(500),
			Status: models.TxCompleted, IsVisible: true,
		}); err != nil {
			return err
		}
		// Neither of these is eligible
		if _, err := recorder.Record(ctx, tx, ledger.RecordParams{
			UserId: user.Id, Type: models.TxReferral, Amount: decimal.NewFromInt(100),
			Status: models.TxCompleted,
		}); err != nil {
			return err
		}
		_, err := recorder.Record(ctx, tx, ledger.RecordParams{
			UserId: user.Id, Type: models.TxWithdraw, Amount: decimal.NewFromInt(-50),
			Status: models.TxPending, IsVisible: true,
		})
		return err
	}))

	p := NewPublisher(svc, nil, nil, Config{})
	snapshot := p.Snapshot(ctx)
	require.Len(t, snapshot.LiveTransactions, LiveSize)

	var genuine []Item
	for _, item := range snapshot.LiveTransactions {
		if !item.IsFake {
			genuine = append(genuine, item)
		}
	}
	require.Len(t, genuine, 1)
	assert.Equal(t, "Investor", genuine[0].UserName)
	assert.Equal(t, "Deposit", genuine[0].Title)
	assert.Equal(t, "500", genuine[0].Amount.String())
}

func TestPublish_PushesAndFansOut(t *testing.T) {
	svc := testutil.NewStore(t)
	user := testutil.CreateUser(t, svc, 1, "0", "")
	fanout := &recordingFanOut{}
	p := NewPublisher(svc, fanout, nil, Config{Channel: "test"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, time.Hour) }()

	p.Publish(context.Background(), models.Transaction{
		Id: "tx-1", UserId: user.Id, Type: models.TxDeposit, Amount: decimal.NewFromInt(300),
		HashCode: "Ha$h: 1234", IsVisible: true,
		CreatedAt: time.Date(2025, 3, 1, 9, 5, 0, 0, time.UTC),
	})
	p.Publish(context.Background(), models.Transaction{Id: "fake", UserId: user.Id, Type: models.TxDeposit, IsVisible: true, IsFake: true})

	require.Eventually(t, func() bool { return len(fanout.events(t)) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	events := fanout.events(t)
	assert.Equal(t, EventLiveItem, events[0].Type)
	item := events[0].Item.(map[string]any)
	assert.Equal(t, "tx-1", item["id"])
	assert.Equal(t, "09:05", item["time"])
	assert.Equal(t, "300", item["amount"])

	assert.Equal(t, "tx-1", p.Snapshot(context.Background()).LiveTransactions[0].Id)
}

func TestPublish_DropsWhenQueueFull(t *testing.T) {
	svc := testutil.NewStore(t)
	p := NewPublisher(svc, &recordingFanOut{}, nil, Config{QueueSize: 1})

	for i := 0; i < 3; i++ {
		p.Publish(context.Background(), models.Transaction{Id: "tx", UserId: "missing", Type: models.TxDeposit, IsVisible: true})
	}
	assert.Len(t, p.queue, 1)
	assert.Equal(t, LiveSize, p.live.Len())
	assert.Equal(t, "User_missing", p.live.Items()[0].UserName)
}

func TestTick_SurvivesFanOutErrors(t *testing.T) {
	svc := testutil.NewStore(t)
	p := NewPublisher(svc, &recordingFanOut{err: errors.New("connection refused")}, nil, Config{})
	p.Snapshot(context.Background())

	p.Tick(context.Background())
	assert.Equal(t, LiveSize, p.live.Len())
	assert.Equal(t, TopSize, p.top.Len())
}

func TestRecorderPublishesAfterCommit(t *testing.T) {
	svc := testutil.NewStore(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, svc, 1, "0", "")
	p := NewPublisher(svc, nil, nil, Config{})
	recorder := ledger.NewRecorder(p, nil)

	_ = svc.WithTx(ctx, func(tx store.Tx) error {
		_, err := recorder.Record(ctx, tx, ledger.RecordParams{
			UserId: user.Id, Type: models.TxDeposit, Amount: decimal.NewFromInt(100),
			Status: models.TxCompleted, IsVisible: true,
		})
		require.NoError(t, err)
		return errors.New("rolled back")
	})
	assert.Zero(t, p.live.Len(), "rolled back transactions are not published")

	var committed *models.Transaction
	require.NoError(t, svc.WithTx(ctx, func(tx store.Tx) error {
		var err error
		committed, err = recorder.Record(ctx, tx, ledger.RecordParams{
			UserId: user.Id, Type: models.TxDeposit, Amount: decimal.NewFromInt(100),
			Status: models.TxCompleted, IsVisible: true,
		})
		return err
	}))

	items := p.live.Items()
	require.Len(t, items, LiveSize)
	assert.Equal(t, committed.Id, items[0].Id)
}

func TestPublish_SeedsBeforeFirstSnapshot(t *testing.T) {
	svc := testutil.NewStore(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, svc, 1, "0", "")
	p := NewPublisher(svc, nil, nil, Config{})

	transaction := &models.Transaction{
		Id: "tx-seeded", UserId: user.Id, Type: models.TxDeposit, Amount: decimal.NewFromInt(700),
		Status: models.TxCompleted, HashCode: "Ha$h: 4321", IsVisible: true,
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, svc.InsertTransaction(ctx, transaction))

	p.Publish(ctx, *transaction)

	snapshot := p.Snapshot(ctx)
	require.Len(t, snapshot.LiveTransactions, LiveSize)
	assert.Equal(t, "tx-seeded", snapshot.LiveTransactions[0].Id)
	assert.Equal(t, "12:00", snapshot.LiveTransactions[0].Time)

	occurrences := 0
	for _, item := range snapshot.LiveTransactions {
		if item.Id == "tx-seeded" {
			occurrences++
		}
	}
	assert.Equal(t, 1, occurrences, "published transaction must not also appear in the seed")
	assert.Len(t, snapshot.TopStrip, TopSize)
}
