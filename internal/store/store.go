package store

import (
	"context"
	"errors"
	"time"

	"invest-engine-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("record not found")
	ErrDuplicate              = errors.New("duplicate record")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// TransactionFilter narrows a transaction listing. Zero values match everything.
type TransactionFilter struct {
	UserId      string
	Type        models.TransactionType
	Status      models.TransactionStatus
	IncludeFake bool
	VisibleOnly bool
	Types       []models.TransactionType
	Limit       int
}

// Queries is the set of reads and writes available both on the store and
// inside a unit of work.
type Queries interface {
	// --- Users ---
	GetUser(ctx context.Context, userId string) (*models.User, error)
	GetUserByTgId(ctx context.Context, tgId int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	// UpdateUser persists every mutable column when user.Version still matches
	// and bumps user.Version on success.
	UpdateUser(ctx context.Context, user *models.User) error

	// --- Tariffs ---
	ListTariffs(ctx context.Context, activeOnly bool) ([]models.Tariff, error)
	GetTariff(ctx context.Context, tariffId string) (*models.Tariff, error)
	UpsertTariff(ctx context.Context, tariff *models.Tariff) error

	// --- Deposits ---
	GetDeposit(ctx context.Context, depositId string) (*models.Deposit, error)
	GetActiveDeposit(ctx context.Context, userId string) (*models.Deposit, error)
	ListUserDeposits(ctx context.Context, userId string) ([]models.Deposit, error)
	ListDepositsByStatus(ctx context.Context, status models.DepositStatus) ([]models.Deposit, error)
	ListDueDeposits(ctx context.Context, now time.Time) ([]models.Deposit, error)
	CreateDeposit(ctx context.Context, deposit *models.Deposit) error
	UpdateDeposit(ctx context.Context, deposit *models.Deposit) error

	// --- Transactions ---
	InsertTransaction(ctx context.Context, transaction *models.Transaction) error
	GetTransaction(ctx context.Context, transactionId string) (*models.Transaction, error)
	// UpdateTransactionStatus moves a transaction from one status to another and
	// returns ErrConcurrentModification when it is no longer in the from status.
	UpdateTransactionStatus(ctx context.Context, transactionId string, from, to models.TransactionStatus) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
	CountTransactions(ctx context.Context, filter TransactionFilter) (int, error)

	// --- Referrals ---
	InsertReferral(ctx context.Context, referral *models.Referral) error
	ListReferralsByReferred(ctx context.Context, referredId string) ([]models.Referral, error)
	ListReferralsByReferrer(ctx context.Context, referrerId string) ([]models.Referral, error)
	AddReferralEarnings(ctx context.Context, referralId string, amount decimal.Decimal) error

	// --- Promo codes ---
	CreatePromoCode(ctx context.Context, promo *models.PromoCode) error
	GetPromoCodeByCode(ctx context.Context, code string) (*models.PromoCode, error)
	CountPromoRedemptions(ctx context.Context, promoCodeId, userId string) (int, error)
	InsertPromoRedemption(ctx context.Context, redemption *models.PromoRedemption) error
}

// Tx is a unit of work. Writes become visible to other readers only when the
// function passed to Store.WithTx returns nil.
type Tx interface {
	Queries

	// AfterCommit registers fn to run once the outermost transaction commits.
	// Hooks registered inside a savepoint that rolls back are discarded.
	AfterCommit(fn func())

	// Savepoint runs fn in a nested scope; when fn fails only its writes are
	// undone and the error is returned to the caller.
	Savepoint(ctx context.Context, fn func(tx Tx) error) error
}

// Store defines the contract that every backend must satisfy.
type Store interface {
	Queries

	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error

	// --- Lifecycle ---
	Close()
}
