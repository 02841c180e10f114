package domain

import "github.com/pkg/errors"

// Market data failures. The client recovers from all of these locally via
// the cache/fallback/jitter chain; they surface to callers only when no
// fallback data exists at all.
var (
	// ErrRateLimited the provider returned 429, or its cooldown is still active.
	ErrRateLimited = errors.New("rate limited by market data provider")
	// ErrTimeout the request exceeded the fixed transport timeout.
	ErrTimeout = errors.New("market data request timed out")
	// ErrUpstream the provider answered with a non-2xx status other than 429.
	ErrUpstream = errors.New("market data provider unavailable")
	// ErrNotFound the instrument id could not be resolved from the provider,
	// the cache or the seeded fallback set.
	ErrNotFound = errors.New("instrument not found")
)

// Ledger precondition failures. These are never silently recovered: they
// reach the caller before any state is mutated.
var (
	ErrInsufficientBalance = errors.New("insufficient chips balance")
	ErrInsufficientHolding = errors.New("insufficient holding amount")
)
