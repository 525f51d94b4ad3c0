/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package feed maintains the cosmetic live feed: the last transactions and a
// strip of top balances, mixing real entries with synthetic filler, and fans
// updates out to whatever serves WebSocket clients.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"invest-engine-go/internal/metrics"
	"invest-engine-go/internal/models"
	"invest-engine-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	LiveSize = 10
	TopSize  = 12

	DefaultChannel   = "invest:live"
	DefaultQueueSize = 256
	DefaultInterval  = 5 * time.Second

	EventInit     = "live_init"
	EventLiveItem = "live_tx_item"
	EventTopItem  = "top_strip_item"

	lookupTimeout = 2 * time.Second
)

var (
	fillerNames = []string{
		"Александр", "Максим", "Дмитрий", "Иван", "Артём", "Никита", "Михаил", "Даниил",
		"Егор", "Андрей", "Кирилл", "Илья", "Алексей", "Роман", "Сергей", "Владимир",
		"Тимофей", "Матвей", "Арсений", "Денис", "Константин", "Витек", "Олег", "Павел",
	}
	fillerAmounts = []int64{50, 71, 100, 108, 150, 200, 300, 500, 716, 1000, 2000, 5000}
	topBalances   = []int64{1200, 2500, 4800, 10200, 15700, 23800, 51400, 78300, 120500, 205000}
)

// Item is one row of the live transaction list
type Item struct {
	Id       string          `json:"id"`
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	UserName string          `json:"user_name"`
	Amount   decimal.Decimal `json:"amount"`
	HashCode string          `json:"hash_code"`
	Time     string          `json:"time"`
	IsFake   bool            `json:"is_fake"`
}

// TopItem is one entry of the top balances strip
type TopItem struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

// Snapshot is sent to clients when they connect
type Snapshot struct {
	Type             string    `json:"type"`
	LiveTransactions []Item    `json:"live_transactions"`
	TopStrip         []TopItem `json:"top_strip"`
}

// Event is an incremental update
type Event struct {
	Type string `json:"type"`
	Item any    `json:"item"`
}

// FanOut delivers encoded events to connected clients
type FanOut interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type Config struct {
	Channel   string
	QueueSize int
}

type Publisher struct {
	queries store.Queries
	fanout  FanOut
	metrics *metrics.Collector
	channel string
	now     func() time.Time

	live  *Ring[Item]
	top   *Ring[TopItem]
	queue chan Event

	seedMu sync.Mutex
}

// NewPublisher creates a publisher. fanout may be nil, in which case events
// only update the in-process rings.
func NewPublisher(queries store.Queries, fanout FanOut, collector *metrics.Collector, cfg Config) *Publisher {
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	return &Publisher{
		queries: queries,
		fanout:  fanout,
		metrics: collector,
		channel: cfg.Channel,
		now:     time.Now,
		live:    NewRing[Item](LiveSize),
		top:     NewRing[TopItem](TopSize),
		queue:   make(chan Event, cfg.QueueSize),
	}
}

// Publish adds a committed transaction to the live ring, seeding the ring
// first when this is its first access, and queues it for fan-out. It never
// blocks on delivery.
func (p *Publisher) Publish(ctx context.Context, transaction models.Transaction) {
	if transaction.IsFake || !transaction.IsVisible {
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	// The transaction is already committed, so keep it out of the seed and
	// push it on top instead.
	p.ensureSeeded(lookupCtx, transaction.Id)

	item := p.itemFor(lookupCtx, transaction)
	p.live.Push(item)
	p.enqueue(Event{Type: EventLiveItem, Item: item})
}

// Snapshot returns both rings, seeding them on first access
func (p *Publisher) Snapshot(ctx context.Context) Snapshot {
	p.ensureSeeded(ctx, "")
	return Snapshot{
		Type:             EventInit,
		LiveTransactions: p.live.Items(),
		TopStrip:         p.top.Items(),
	}
}

// Run delivers queued events and adds a filler live item and a top strip
// item every interval until ctx is done.
func (p *Publisher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p.ensureSeeded(ctx, "")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	zap.L().Info("Live feed started", zap.Duration("interval", interval), zap.String("channel", p.channel))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Live feed stopped")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case event := <-p.queue:
			p.deliver(ctx, event)
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick pushes one synthetic live item and one top strip item
func (p *Publisher) Tick(ctx context.Context) {
	item := p.fillerItem()
	p.live.Push(item)
	p.deliver(ctx, Event{Type: EventLiveItem, Item: item})

	top := p.topItem(fmt.Sprintf("top_%d_%d", p.now().UnixMilli(), rand.IntN(10000)))
	p.top.Push(top)
	p.deliver(ctx, Event{Type: EventTopItem, Item: top})
}

func (p *Publisher) enqueue(event Event) {
	select {
	case p.queue <- event:
		p.metrics.RecordFeedEvent("queued")
	default:
		p.metrics.RecordFeedEvent("dropped")
		zap.L().Warn("Live feed queue full, dropping event", zap.String("type", event.Type))
	}
}

func (p *Publisher) deliver(ctx context.Context, event Event) {
	if p.fanout == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("Failed to encode feed event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	if err := p.fanout.Publish(ctx, p.channel, payload); err != nil {
		p.metrics.RecordFeedEvent("fanout_error")
		zap.L().Warn("Failed to fan out feed event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	p.metrics.RecordFeedEvent("published")
}

// ensureSeeded fills empty rings on first access. excludeId keeps one real
// transaction out of the live seed.
func (p *Publisher) ensureSeeded(ctx context.Context, excludeId string) {
	p.seedMu.Lock()
	defer p.seedMu.Unlock()

	if p.top.Len() == 0 {
		items := make([]TopItem, 0, TopSize)
		for i := 0; i < TopSize; i++ {
			items = append(items, p.topItem(fmt.Sprintf("top_%d", i)))
		}
		p.top.Fill(items)
	}

	if p.live.Len() == 0 {
		p.live.Fill(p.seedLive(ctx, excludeId))
	}
}

// seedLive mixes up to half a ring of recent real deposits and withdrawals
// with filler, shuffled
func (p *Publisher) seedLive(ctx context.Context, excludeId string) []Item {
	transactions, err := p.queries.ListTransactions(ctx, store.TransactionFilter{
		Types:       []models.TransactionType{models.TxDeposit, models.TxWithdraw},
		Status:      models.TxCompleted,
		VisibleOnly: true,
		Limit:       LiveSize / 2,
	})
	if err != nil {
		zap.L().Warn("Failed to load transactions for live feed seed", zap.Error(err))
	}

	items := make([]Item, 0, LiveSize)
	for _, transaction := range transactions {
		if transaction.Id == excludeId {
			continue
		}
		items = append(items, p.itemFor(ctx, transaction))
	}
	for len(items) < LiveSize {
		items = append(items, p.fillerItem())
	}
	rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	return items
}

func (p *Publisher) itemFor(ctx context.Context, transaction models.Transaction) Item {
	name := "User_" + transaction.UserId
	if user, err := p.queries.GetUser(ctx, transaction.UserId); err == nil {
		name = user.DisplayName()
	} else {
		zap.L().Debug("Feed user lookup failed", zap.String("user_id", transaction.UserId), zap.Error(err))
	}

	return Item{
		Id:       transaction.Id,
		Type:     string(transaction.Type),
		Title:    transaction.Type.Title(),
		UserName: name,
		Amount:   transaction.Amount,
		HashCode: transaction.HashCode,
		Time:     transaction.CreatedAt.UTC().Format("15:04"),
	}
}

func (p *Publisher) fillerItem() Item {
	txType := models.TxDeposit
	amount := decimal.NewFromInt(fillerAmounts[rand.IntN(len(fillerAmounts))])
	if rand.IntN(2) == 0 {
		txType = models.TxWithdraw
		amount = amount.Neg()
	}

	minutesAgo := time.Duration(1+rand.IntN(60)) * time.Minute
	return Item{
		Id:       "fake_" + uuid.New().String(),
		Type:     string(txType),
		Title:    txType.Title(),
		UserName: fillerNames[rand.IntN(len(fillerNames))],
		Amount:   amount,
		HashCode: fmt.Sprintf("Ha$h: %d", 1000+rand.IntN(9000)),
		Time:     p.now().UTC().Add(-minutesAgo).Format("15:04"),
		IsFake:   true,
	}
}

func (p *Publisher) topItem(id string) TopItem {
	return TopItem{
		Id:      id,
		Name:    fillerNames[rand.IntN(len(fillerNames))],
		Balance: topBalances[rand.IntN(len(topBalances))],
	}
}
