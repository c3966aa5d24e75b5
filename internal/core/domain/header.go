package domain

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BlockHeader is the latest mature header known by the backend, together
// with the best (possibly not yet mature) one.
type BlockHeader struct {
	Height     uint32
	Hash       chainhash.Hash
	BestHeight uint32
	BestHash   chainhash.Hash
}

// DeviceToken is the push notification token of a device, registered to the
// backend to get woken up on relevant events.
type DeviceToken struct {
	Token   string `json:"token"`
	IsDebug bool   `json:"isDebug"`
}
