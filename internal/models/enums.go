package models

import "fmt"

// DepositStatus is the lifecycle state of a deposit
type DepositStatus string

const (
	DepositPending   DepositStatus = "pending"
	DepositActive    DepositStatus = "active"
	DepositCompleted DepositStatus = "completed"
	DepositCancelled DepositStatus = "cancelled"
)

func (s DepositStatus) Valid() bool {
	switch s {
	case DepositPending, DepositActive, DepositCompleted, DepositCancelled:
		return true
	}
	return false
}

// ParseDepositStatus rejects anything outside the closed set, including legacy spellings
func ParseDepositStatus(s string) (DepositStatus, error) {
	status := DepositStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown deposit status %q", s)
	}
	return status, nil
}

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"
	TxWithdraw   TransactionType = "withdraw"
	TxProfit     TransactionType = "profit"
	TxReinvest   TransactionType = "reinvest"
	TxReferral   TransactionType = "referral"
	TxBonus      TransactionType = "bonus"
	TxGameBet    TransactionType = "game_bet"
	TxGamePayout TransactionType = "game_payout"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdraw, TxProfit, TxReinvest, TxReferral, TxBonus, TxGameBet, TxGamePayout:
		return true
	}
	return false
}

// Title is the human label used by the live feed
func (t TransactionType) Title() string {
	switch t {
	case TxDeposit:
		return "Deposit"
	case TxWithdraw:
		return "Withdrawal"
	case TxProfit:
		return "Profit accrual"
	case TxReinvest:
		return "Reinvest"
	case TxReferral:
		return "Referral bonus"
	case TxBonus:
		return "Bonus"
	case TxGameBet:
		return "Game bet"
	case TxGamePayout:
		return "Game payout"
	}
	return string(t)
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return t, nil
}

// TransactionStatus is the settlement state of a ledger entry
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxCancelled TransactionStatus = "cancelled"
	TxRejected  TransactionStatus = "rejected"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TxPending, TxCompleted, TxCancelled, TxRejected:
		return true
	}
	return false
}

func ParseTransactionStatus(s string) (TransactionStatus, error) {
	status := TransactionStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown transaction status %q", s)
	}
	return status, nil
}
