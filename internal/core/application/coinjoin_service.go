package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/chaincase/internal/core/domain"
	"github.com/vulpemventures/chaincase/internal/core/ports"
)

// RoundInfo is what gets shown about the current coinjoin round.
type RoundInfo struct {
	domain.RoundState
	TimeLeft time.Duration
}

// CoinJoinService exposes the state of the coinjoin round the wallet takes
// part in, as reported by the external coinjoin client. It's read-only.
type CoinJoinService struct {
	provider ports.RoundStateProvider
	now      func() time.Time

	lastState *domain.RoundState
	lock      *sync.RWMutex

	log func(format string, a ...interface{})
}

func NewCoinJoinService(provider ports.RoundStateProvider) *CoinJoinService {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("coinjoin: %s", format)
		log.Debugf(format, a...)
	}
	return &CoinJoinService{
		provider: provider,
		now:      time.Now,
		lock:     &sync.RWMutex{},
		log:      logFn,
	}
}

// GetRoundState returns the current round state, or the default one if no
// round is known yet.
func (cs *CoinJoinService) GetRoundState(_ context.Context) RoundInfo {
	now := cs.now()
	state := cs.currentState(now)
	return RoundInfo{
		RoundState: state,
		TimeLeft:   state.TimeLeft(now),
	}
}

// GetCoordinatorFee returns the fee charged by the coordinator of the current
// round to mix the given amount.
func (cs *CoinJoinService) GetCoordinatorFee(
	_ context.Context, amount btcutil.Amount,
) btcutil.Amount {
	return cs.currentState(cs.now()).CoordinatorFee(amount)
}

// GetRoundStateChannel relays the round state updates of the coinjoin client
// until the given context is done or the client closes its channel.
func (cs *CoinJoinService) GetRoundStateChannel(
	ctx context.Context,
) <-chan domain.SyncEvent {
	out := make(chan domain.SyncEvent)
	if cs.provider == nil {
		close(out)
		return out
	}

	updates := cs.provider.RoundStateUpdates()
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case state, ok := <-updates:
				if !ok {
					return
				}
				cs.setLastState(state)
				cs.log("round phase %s, %d/%d peers", state.Phase, state.PeersRegistered, state.PeersNeeded)

				event := domain.SyncEvent{
					EventType: domain.RoundStateUpdated,
					Timestamp: cs.now(),
					Round:     &state,
				}
				select {
				case <-ctx.Done():
					return
				case out <- event:
				}
			}
		}
	}()
	return out
}

func (cs *CoinJoinService) currentState(now time.Time) domain.RoundState {
	if cs.provider != nil {
		if state := cs.provider.CurrentRoundState(); state != nil {
			return *state
		}
	}

	cs.lock.RLock()
	defer cs.lock.RUnlock()
	if cs.lastState != nil {
		return *cs.lastState
	}
	return domain.DefaultRoundState(now)
}

func (cs *CoinJoinService) setLastState(state domain.RoundState) {
	cs.lock.Lock()
	defer cs.lock.Unlock()
	cs.lastState = &state
}
