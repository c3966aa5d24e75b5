package application

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/chaincase/internal/core/domain"
	"github.com/vulpemventures/chaincase/internal/core/ports"
)

// HeaderSynchronizer keeps the header chain informed about the latest mature
// header of the backend.
type HeaderSynchronizer struct {
	backend ports.BackendClient
	chain   ports.HeaderChain

	log func(format string, a ...interface{})
}

func NewHeaderSynchronizer(
	backend ports.BackendClient, chain ports.HeaderChain,
) *HeaderSynchronizer {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("header sync: %s", format)
		log.Debugf(format, a...)
	}
	return &HeaderSynchronizer{backend, chain, logFn}
}

// Sync fetches the latest mature header and records it as the new server
// tip and as the height the local chain is processed up to. It returns nil if
// the backend has no header yet.
func (s *HeaderSynchronizer) Sync(ctx context.Context) (*domain.BlockHeader, error) {
	header, err := s.backend.GetLatestMatureHeader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest mature header: %w", err)
	}
	if header == nil {
		s.log("backend has no mature header yet")
		return nil, nil
	}

	s.chain.UpdateServerTip(*header)
	s.chain.SetLocalTip(header.Height)
	serverTipHeight.Set(float64(header.Height))
	s.log(
		"server tip %d %s, %d hashes left",
		header.Height, header.Hash, s.chain.HashesLeft(),
	)
	return header, nil
}
