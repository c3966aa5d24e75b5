package watchlist

import (
	"context"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// Provider is a static list of watched addresses, turned into output
// scripts.
type Provider struct {
	params  *chaincfg.Params
	scripts map[string][]byte
	lock    *sync.RWMutex
}

func NewProvider(params *chaincfg.Params, addresses []string) (*Provider, error) {
	if params == nil {
		return nil, fmt.Errorf("missing network params")
	}
	p := &Provider{
		params:  params,
		scripts: make(map[string][]byte),
		lock:    &sync.RWMutex{},
	}
	if err := p.AddAddresses(addresses...); err != nil {
		return nil, err
	}
	return p, nil
}

// AddAddresses adds the given addresses to the watch list. Nothing is added
// if any of them is invalid for the network.
func (p *Provider) AddAddresses(addresses ...string) error {
	scripts := make(map[string][]byte, len(addresses))
	for _, addr := range addresses {
		decoded, err := btcutil.DecodeAddress(addr, p.params)
		if err != nil {
			return fmt.Errorf("invalid address %s: %w", addr, err)
		}
		if !decoded.IsForNet(p.params) {
			return fmt.Errorf("address %s is not for network %s", addr, p.params.Name)
		}
		script, err := txscript.PayToAddrScript(decoded)
		if err != nil {
			return fmt.Errorf("failed to build script for %s: %w", addr, err)
		}
		scripts[addr] = script
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	for addr, script := range scripts {
		p.scripts[addr] = script
	}
	return nil
}

func (p *Provider) WatchedScripts(_ context.Context) ([][]byte, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	scripts := make([][]byte, 0, len(p.scripts))
	for _, script := range p.scripts {
		scripts = append(scripts, append([]byte{}, script...))
	}
	return scripts, nil
}

// IsWatched returns whether the given output script belongs to the watch
// list.
func (p *Provider) IsWatched(script []byte) bool {
	p.lock.RLock()
	defer p.lock.RUnlock()

	for _, s := range p.scripts {
		if string(s) == string(script) {
			return true
		}
	}
	return false
}
