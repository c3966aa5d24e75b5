package ports

import (
	"context"

	"github.com/vulpemventures/chaincase/internal/core/domain"
)

// TransactionProcessor is the wallet component that applies new mempool data
// (coin discovery, spend detection).
type TransactionProcessor interface {
	Process(ctx context.Context, update domain.MempoolUpdate) error
}

// HeaderChain summarizes the state of the local header chain compared to the
// one of the backend.
type HeaderChain interface {
	// HashesLeft returns how many headers are missing to reach the server tip.
	HashesLeft() uint32
	// UpdateServerTip records the latest mature header of the backend.
	UpdateServerTip(header domain.BlockHeader)
	// ServerTip returns the last recorded backend header, if any.
	ServerTip() *domain.BlockHeader
	// SetLocalTip records the height the wallet has processed headers up to.
	SetLocalTip(height uint32)
}

// FilterMatcher tells which mempool sub filters are relevant for the wallet.
type FilterMatcher interface {
	MatchFilters(ctx context.Context, filters map[string]string) ([]string, error)
}

// ScriptProvider returns the output scripts the wallet is interested in.
type ScriptProvider interface {
	WatchedScripts(ctx context.Context) ([][]byte, error)
}

// RoundStateProvider is the abstraction of the external coinjoin client,
// exposing the most advanced round it takes part in.
type RoundStateProvider interface {
	// CurrentRoundState returns nil if no round is known yet.
	CurrentRoundState() *domain.RoundState
	// RoundStateUpdates returns the channel where every state change is sent.
	RoundStateUpdates() <-chan domain.RoundState
}
