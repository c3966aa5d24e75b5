package application

import (
	"time"

	"github.com/vulpemventures/chaincase/internal/core/domain"
	"github.com/vulpemventures/chaincase/pkg/periodic"
)

const (
	eventChannelSize = 64
)

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// SyncStatus is a snapshot of the state of the synchronization.
type SyncStatus struct {
	Network string
	State   periodic.State
	// ServerTip is the latest mature header fetched from the backend.
	ServerTip     *domain.BlockHeader
	LastHeaderAt  time.Time
	HashesLeft    uint32
	LastRootKey   string
	LastMempoolAt time.Time
	LastError     error
	// IsHeaderStale is true if no header was fetched within the max age of
	// the sync policy.
	IsHeaderStale bool
}

// IsSynced returns whether the synchronizer is running with a fresh header
// and the local chain is close enough to the backend one.
func (s SyncStatus) IsSynced() bool {
	return s.State == periodic.Running && !s.IsHeaderStale &&
		s.HashesLeft <= MaxHashesLeft
}
