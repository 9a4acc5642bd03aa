package domain

import "errors"

var (
	// ErrNetwork covers transport-level failures and timeouts talking to an
	// external endpoint. Recoverable: the scheduler skips the cycle.
	ErrNetwork = errors.New("network failure")

	// ErrMalformedResponse means a payload could not be parsed into the
	// expected shape. Recoverable, but worth an operator's attention.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrUnauthorized is a signature or credential rejection (HTTP 401/403).
	// Repeated occurrences indicate a configuration defect and halt the
	// scheduler rather than spin silently.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExchangeRejected is a business-level order rejection (insufficient
	// balance, invalid pair). The exchange's error body is preserved in the
	// wrapping message.
	ErrExchangeRejected = errors.New("order rejected by exchange")

	// ErrRateLimited is an HTTP 429 from the exchange.
	ErrRateLimited = errors.New("rate limited")

	// ErrBudgetUnavailable means the external daily budget could not be
	// obtained or was not a sane number this cycle.
	ErrBudgetUnavailable = errors.New("daily budget unavailable")

	// ErrLockHeld means another scheduler instance holds the pair lock.
	ErrLockHeld = errors.New("lock already held")

	ErrNotFound = errors.New("not found")
)
