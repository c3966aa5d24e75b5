package headerchain

import (
	"sync"

	"github.com/vulpemventures/chaincase/internal/core/domain"
)

// HeaderChain is an in-memory tracker of the local header chain compared to
// the backend one. When the wallet has no local tip, the first server tip is
// taken as the starting point so that a fresh wallet is immediately
// considered in sync. The local tip then moves forward with SetLocalTip as
// headers get processed.
type HeaderChain struct {
	serverTip   *domain.BlockHeader
	localHeight uint32
	hasLocalTip bool
	lock        *sync.RWMutex
}

func NewHeaderChain() *HeaderChain {
	return &HeaderChain{lock: &sync.RWMutex{}}
}

// NewHeaderChainFromHeight returns a chain whose local tip is at the given
// height, ie. the height the wallet was synced to the last time.
func NewHeaderChainFromHeight(height uint32) *HeaderChain {
	return &HeaderChain{
		localHeight: height,
		hasLocalTip: true,
		lock:        &sync.RWMutex{},
	}
}

func (c *HeaderChain) HashesLeft() uint32 {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.serverTip == nil || c.serverTip.Height <= c.localHeight {
		return 0
	}
	return c.serverTip.Height - c.localHeight
}

func (c *HeaderChain) UpdateServerTip(header domain.BlockHeader) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.serverTip = &header
	if !c.hasLocalTip {
		c.localHeight = header.Height
		c.hasLocalTip = true
	}
}

func (c *HeaderChain) ServerTip() *domain.BlockHeader {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.serverTip == nil {
		return nil
	}
	tip := *c.serverTip
	return &tip
}

// SetLocalTip records the height the local chain has been synced to.
func (c *HeaderChain) SetLocalTip(height uint32) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.localHeight = height
	c.hasLocalTip = true
}

// LocalHeight returns the height of the local tip.
func (c *HeaderChain) LocalHeight() uint32 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.localHeight
}
