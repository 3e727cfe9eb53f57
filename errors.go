package ledger

import "errors"

var (
	// ErrAccountNotFound is returned when an account id does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNoOpenPeriod is returned when an account has no open period.
	ErrNoOpenPeriod = errors.New("no open period")
	// ErrAmbiguousOpenPeriod is returned when an account has more than one
	// open period. Closing discipline makes it impossible, it is checked anyway.
	ErrAmbiguousOpenPeriod = errors.New("ambiguous open period")
	// ErrMissingPriceData marks a valuation that used no price for a security.
	ErrMissingPriceData = errors.New("missing price data")
	// ErrMissingFxRate marks a valuation that used the identity rate for lack of data.
	ErrMissingFxRate = errors.New("missing fx rate")

	ErrPeriodClosed     = errors.New("period is closed")
	ErrInactiveAccount  = errors.New("account is not active")
	ErrUnknownSecurity  = errors.New("unknown security")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrKindMismatch     = errors.New("transaction kind does not match account kind")
	ErrDuplicate        = errors.New("already exists")
	ErrBrokenContinuity = errors.New("broken period continuity")
)
