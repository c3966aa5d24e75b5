package txprocessor

import (
	"context"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/chaincase/internal/core/domain"
)

// ScriptWatcher tells whether an output script belongs to the wallet.
type ScriptWatcher interface {
	IsWatched(script []byte) bool
}

// Processor is an in-memory index of the unconfirmed txs received from the
// backend. Txs paying to a watched script are reported as relevant.
type Processor struct {
	watcher ScriptWatcher

	txs      map[chainhash.Hash]*wire.MsgTx
	relevant map[chainhash.Hash]struct{}
	rootKey  string
	lock     *sync.RWMutex

	log func(format string, a ...interface{})
}

// NewProcessor returns a new processor. The watcher is optional, without one
// no tx is ever relevant.
func NewProcessor(watcher ScriptWatcher) *Processor {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("tx processor: %s", format)
		log.Debugf(format, a...)
	}
	return &Processor{
		watcher:  watcher,
		txs:      make(map[chainhash.Hash]*wire.MsgTx),
		relevant: make(map[chainhash.Hash]struct{}),
		lock:     &sync.RWMutex{},
		log:      logFn,
	}
}

func (p *Processor) Process(_ context.Context, update domain.MempoolUpdate) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	count := 0
	for _, tx := range update.Transactions() {
		txid := tx.TxHash()
		if _, ok := p.txs[txid]; ok {
			continue
		}
		p.txs[txid] = tx
		count++

		if p.isRelevant(tx) {
			p.relevant[txid] = struct{}{}
			log.Infof("tx processor: found relevant mempool tx %s", txid)
		}
	}
	p.rootKey = update.Root.Key

	p.log("indexed %d new txs for root filter %s", count, update.Root.Key)
	return nil
}

// Transaction returns the indexed tx with the given hash, if any.
func (p *Processor) Transaction(txid chainhash.Hash) (*wire.MsgTx, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	tx, ok := p.txs[txid]
	return tx, ok
}

// RelevantTransactions returns the hashes of the txs paying to the wallet.
func (p *Processor) RelevantTransactions() []chainhash.Hash {
	p.lock.RLock()
	defer p.lock.RUnlock()

	hashes := make([]chainhash.Hash, 0, len(p.relevant))
	for hash := range p.relevant {
		hashes = append(hashes, hash)
	}
	return hashes
}

// Count returns the number of indexed txs.
func (p *Processor) Count() int {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return len(p.txs)
}

// RootKey returns the key of the last processed root filter.
func (p *Processor) RootKey() string {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.rootKey
}

func (p *Processor) isRelevant(tx *wire.MsgTx) bool {
	if p.watcher == nil {
		return false
	}
	for _, out := range tx.TxOut {
		if p.watcher.IsWatched(out.PkScript) {
			return true
		}
	}
	return false
}
