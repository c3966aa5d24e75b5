package domain

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
)

const (
	RoundPhaseInputRegistration RoundPhase = iota
	RoundPhaseConnectionConfirmation
	RoundPhaseOutputRegistration
	RoundPhaseSigning
)

const (
	defaultPeersNeeded    = 100
	defaultRequiredAmount = btcutil.Amount(1000000)
)

var (
	roundPhaseString = map[RoundPhase]string{
		RoundPhaseInputRegistration:      "InputRegistration",
		RoundPhaseConnectionConfirmation: "ConnectionConfirmation",
		RoundPhaseOutputRegistration:     "OutputRegistration",
		RoundPhaseSigning:                "Signing",
	}

	defaultCoordinatorFeePercent = decimal.RequireFromString("0.003")
)

type RoundPhase int

func (p RoundPhase) String() string {
	if s, ok := roundPhaseString[p]; ok {
		return s
	}
	return "Unknown"
}

// RoundState is a read-only projection of the most advanced coinjoin round
// the wallet takes part in. It's owned by the external coinjoin client.
type RoundState struct {
	Phase                 RoundPhase
	InErrorState          bool
	PeersRegistered       int
	PeersQueued           int
	PeersNeeded           int
	Timeout               time.Time
	RequiredAmount        btcutil.Amount
	CoordinatorFeePercent decimal.Decimal
}

// DefaultRoundState returns the state shown when the coinjoin client doesn't
// know about any round yet.
func DefaultRoundState(now time.Time) RoundState {
	return RoundState{
		Phase:                 RoundPhaseInputRegistration,
		PeersNeeded:           defaultPeersNeeded,
		Timeout:               now,
		RequiredAmount:        defaultRequiredAmount,
		CoordinatorFeePercent: defaultCoordinatorFeePercent,
	}
}

// TimeLeft returns the time left until the round times out, never negative.
// Only the input registration phase has a meaningful timeout.
func (s RoundState) TimeLeft(now time.Time) time.Duration {
	if s.Phase != RoundPhaseInputRegistration {
		return 0
	}
	left := s.Timeout.Sub(now)
	if left < 0 {
		return 0
	}
	return left.Truncate(time.Second)
}

// CoordinatorFee returns the fee charged by the coordinator for mixing the
// given amount.
func (s RoundState) CoordinatorFee(amount btcutil.Amount) btcutil.Amount {
	fee := decimal.NewFromInt(int64(amount)).Mul(s.CoordinatorFeePercent).Div(decimal.NewFromInt(100))
	return btcutil.Amount(fee.Ceil().IntPart())
}
