package ports

import (
	"context"

	"github.com/btcsuite/btcd/wire"
	"github.com/vulpemventures/chaincase/internal/core/domain"
)

// BackendClient is the abstraction for any kind of service giving access to
// the chaincase backend API.
type BackendClient interface {
	// GetLatestMatureHeader returns the latest mature header known by the
	// backend, or nil if it has none yet.
	GetLatestMatureHeader(ctx context.Context) (*domain.BlockHeader, error)
	// RegisterNotificationToken registers the device token and returns the
	// backend ack.
	RegisterNotificationToken(
		ctx context.Context, token domain.DeviceToken,
	) (string, error)
	// GetMempoolRootFilter returns the current root mempool filter, or nil if
	// the backend has none.
	GetMempoolRootFilter(ctx context.Context) (*domain.MempoolFilter, error)
	// GetMempoolSubFilters returns all sub filters by key.
	GetMempoolSubFilters(ctx context.Context) (map[string]string, error)
	// GetMempoolTransactionBuckets returns the parsed txs of the buckets
	// identified by the given sub filter keys.
	GetMempoolTransactionBuckets(
		ctx context.Context, keys []string,
	) (map[string][]*wire.MsgTx, error)
}
