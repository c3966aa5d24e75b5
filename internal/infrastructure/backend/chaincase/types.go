package chaincase

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/vulpemventures/chaincase/internal/core/domain"
)

type latestMatureHeaderResponse struct {
	MatureHeight     uint32 `json:"matureHeight"`
	MatureHeaderHash string `json:"matureHeaderHash"`
	BestHeight       uint32 `json:"bestHeight"`
	BestHeaderHash   string `json:"bestHeaderHash"`
}

func (r latestMatureHeaderResponse) toDomain() (*domain.BlockHeader, error) {
	hash, err := chainhash.NewHashFromStr(r.MatureHeaderHash)
	if err != nil {
		return nil, err
	}
	header := &domain.BlockHeader{
		Height:     r.MatureHeight,
		Hash:       *hash,
		BestHeight: r.BestHeight,
	}
	if len(r.BestHeaderHash) > 0 {
		bestHash, err := chainhash.NewHashFromStr(r.BestHeaderHash)
		if err != nil {
			return nil, err
		}
		header.BestHash = *bestHash
	}
	if header.BestHeight < header.Height {
		header.BestHeight = header.Height
	}
	return header, nil
}

type versionsResponse struct {
	ClientVersion       string `json:"clientVersion"`
	BackendMajorVersion string `json:"backendMajorVersion"`
}
