package domain

import "time"

// ─── Credit Types ───────────────────────────────────────────────────────────
// These live in domain because they represent core business rules.
// A credit is the integer unit of usage entitlement: one generation
// consumes exactly one, and only after the provider call succeeds.

// TransactionType represents the business reason for a credit operation.
type TransactionType string

const (
	TxGrant    TransactionType = "GRANT"    // starting balance at registration
	TxPurchase TransactionType = "PURCHASE" // buy_credits top-up
	TxSpend    TransactionType = "SPEND"    // successful generation
)

// LedgerEntry is a single row in the credit journal. The journal is
// append-only; the account row holds the authoritative balance and the
// journal records how it got there.
type LedgerEntry struct {
	ID          int64           `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        TransactionType `json:"type"`
	Account     string          `json:"account"`
	Delta       int64           `json:"delta"`
	Description string          `json:"description,omitempty"`
	Balance     int64           `json:"balance"`
}
