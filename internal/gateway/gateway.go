// Package gateway orchestrates one credit-gated generation request.
//
// Per request the gateway walks a fixed sequence of states:
//
//	Authenticating → Authorizing → Dispatching → Settling → Responding
//
// Authorizing never runs without a resolved account, Dispatching never runs
// without a positive balance, and Settling runs only on adapter success.
// The central business invariant: a credit is debited exactly once per
// successful generation and never for a failed one.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/reminisce-ai/reminisce/internal/domain"
	"github.com/reminisce-ai/reminisce/internal/infra/observability"
)

// Gateway authenticates, authorizes, dispatches, and settles generation
// requests. It holds no cross-request state beyond its collaborators, so
// any number of requests may be in flight concurrently.
type Gateway struct {
	identity domain.Identity
	ledger   domain.LedgerStore
	adapters map[domain.GenerationKind]domain.Adapter
	log      zerolog.Logger
}

// New creates a gateway over the given collaborators.
func New(identity domain.Identity, ledger domain.LedgerStore, log zerolog.Logger, adapters ...domain.Adapter) (*Gateway, error) {
	if identity == nil {
		return nil, fmt.Errorf("gateway: identity is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("gateway: ledger is required")
	}
	m := make(map[domain.GenerationKind]domain.Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Kind()] = a
	}
	return &Gateway{identity: identity, ledger: ledger, adapters: m, log: log}, nil
}

// Generate runs the full request state machine and returns the normalized
// result, or an error the transport boundary maps to a status.
func (g *Gateway) Generate(ctx context.Context, token string, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	// Authenticating
	acc, err := g.identity.Resolve(token)
	if err != nil {
		g.count(req.Kind, "unauthorized")
		return nil, err
	}
	log := g.log.With().Str("user", acc.Username).Str("kind", string(req.Kind)).Logger()

	adapter, ok := g.adapters[req.Kind]
	if !ok {
		g.count(req.Kind, "internal_error")
		return nil, fmt.Errorf("%w: unknown generation kind %q", domain.ErrInvalidInput, req.Kind)
	}

	// Authorizing: fail fast before any outbound I/O.
	balance, err := g.ledger.GetBalance(acc.Username)
	if err != nil {
		g.count(req.Kind, "internal_error")
		return nil, err
	}
	if balance < 1 {
		log.Info().Int64("balance", balance).Msg("generation refused: insufficient credits")
		g.count(req.Kind, "insufficient_credits")
		return nil, domain.ErrInsufficientCredits
	}

	// Dispatching: the only state doing outbound I/O. The call is detached
	// from the caller's context so a dropped client neither cancels the
	// provider mid-flight nor leaves the outcome unknown; the adapter's own
	// timeout still bounds it.
	start := time.Now()
	result, err := adapter.Execute(context.WithoutCancel(ctx), req)
	observability.ObserveDispatch(string(req.Kind), time.Since(start))
	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("provider call failed; no credit debited")
		g.count(req.Kind, "provider_error")
		return nil, err
	}

	// Settling: debit exactly one credit, only now that success is known.
	// The conditional decrement serializes per account; a racer that spent
	// the last credit elsewhere loses here and is not charged.
	newBalance, err := g.ledger.AdjustBalance(acc.Username, -1, domain.TxSpend, string(req.Kind))
	if err != nil {
		log.Warn().Err(err).Msg("settlement failed after provider success")
		if errors.Is(err, domain.ErrInsufficientCredits) {
			g.count(req.Kind, "insufficient_credits")
		} else {
			g.count(req.Kind, "internal_error")
		}
		return nil, err
	}
	observability.CreditsSpent.Inc()
	g.count(req.Kind, "success")
	log.Info().Int64("balance", newBalance).Dur("elapsed", time.Since(start)).Msg("generation settled")

	return result, nil
}

func (g *Gateway) count(kind domain.GenerationKind, outcome string) {
	observability.GenerationRequests.WithLabelValues(string(kind), outcome).Inc()
}
