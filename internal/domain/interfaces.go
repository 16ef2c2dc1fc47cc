package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the gateway depends on them.

// LedgerStore abstracts durable account and credit-balance storage.
// AdjustBalance must be atomic with respect to concurrent adjustments on
// the same account: no lost updates and no observable negative balance.
type LedgerStore interface {
	CreateAccount(username, passwordHash string, startingCredits int64) (*Account, error)
	GetAccount(username string) (*Account, error)
	GetBalance(username string) (int64, error)

	// AdjustBalance applies delta and returns the new balance. It fails with
	// ErrInsufficientCredits when the result would be negative, leaving the
	// balance untouched.
	AdjustBalance(username string, delta int64, tx TransactionType, description string) (int64, error)
}

// Identity verifies credentials and binds bearer tokens to accounts.
type Identity interface {
	Register(username, password string) (*Account, error)
	Authenticate(username, password string) (token string, err error)
	Resolve(token string) (*Account, error)
}

// Adapter wraps one external generative provider. Implementations normalize
// the provider's request/response shape and failure modes; any failure is
// reported as a *provider.Error so the gateway can map it to a status.
type Adapter interface {
	Kind() GenerationKind
	Execute(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}
