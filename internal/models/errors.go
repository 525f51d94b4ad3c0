package models

import "errors"

// Error kinds. Every domain error wraps exactly one of these so callers can
// classify with errors.Is.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrInvalidState  = errors.New("invalid state")
	ErrForbidden     = errors.New("access denied")
)

var (
	ErrNonPositiveAmount     = newKindError(ErrValidation, "amount must be positive")
	ErrBelowMinimumDeposit   = newKindError(ErrValidation, "amount is below the minimum deposit")
	ErrInsufficientBalance   = newKindError(ErrValidation, "insufficient balance")
	ErrNoActiveDeposit       = newKindError(ErrValidation, "no active deposit found")
	ErrNoAccumulatedProfit   = newKindError(ErrValidation, "no accumulated profit")
	ErrActiveDepositExists   = newKindError(ErrValidation, "user already has an active deposit")
	ErrWithdrawalNotAllowed  = newKindError(ErrValidation, "withdrawal is available only after a real deposit or with an active deposit")
	ErrNotWithdrawal         = newKindError(ErrValidation, "not a withdrawal transaction")
	ErrPromoInvalid          = newKindError(ErrValidation, "promo code is not valid")
	ErrPromoExhausted        = newKindError(ErrValidation, "promo code usage limit reached")
	ErrUserBanned            = newKindError(ErrValidation, "user is banned")
	ErrDepositNotPending     = newKindError(ErrInvalidState, "deposit is not pending")
	ErrTransactionNotPending = newKindError(ErrInvalidState, "transaction is not pending")
	ErrNoActiveTariff        = newKindError(ErrConfiguration, "no active tariff configured")
)

type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// IsValidation reports whether err should be surfaced to the caller as a
// rejected operation rather than a service failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidState) || errors.Is(err, ErrForbidden)
}
