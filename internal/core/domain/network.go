package domain

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
)

const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
	NetworkRegtest = "regtest"
)

var (
	ErrUnknownNetwork = fmt.Errorf("unknown network")

	paramsByNetwork = map[string]*chaincfg.Params{
		NetworkMainnet: &chaincfg.MainNetParams,
		NetworkTestnet: &chaincfg.TestNet3Params,
		NetworkRegtest: &chaincfg.RegressionNetParams,
	}
	// labels are the ones used by the mobile app to qualify secure storage
	// entries, they must not change.
	labelByNetwork = map[string]string{
		NetworkMainnet: "Main",
		NetworkTestnet: "TestNet",
		NetworkRegtest: "RegTest",
	}
	policyByNetwork = map[string]SyncPolicy{
		NetworkMainnet: {Interval: 30 * time.Second, MaxAge: 5 * time.Minute, MaxFilterFetch: 1000},
		NetworkTestnet: {Interval: 30 * time.Second, MaxAge: 5 * time.Minute, MaxFilterFetch: 10000},
		NetworkRegtest: {Interval: 5 * time.Second, MaxAge: 5 * time.Minute, MaxFilterFetch: 10},
	}
)

// SyncPolicy groups the synchronization knobs that depend on the target
// network:
//   - Interval - time between two consecutive sync ticks.
//   - MaxAge - after this time without a successful header fetch the
//     synchronizer is considered stale.
//   - MaxFilterFetch - max number of items fetched with a single request.
type SyncPolicy struct {
	Interval       time.Duration
	MaxAge         time.Duration
	MaxFilterFetch int
}

// SupportedNetworks returns the list of supported network names.
func SupportedNetworks() []string {
	return []string{NetworkMainnet, NetworkTestnet, NetworkRegtest}
}

// NetworkParams returns the chain params for the given network name.
func NetworkParams(network string) (*chaincfg.Params, error) {
	params, ok := paramsByNetwork[network]
	if !ok {
		return nil, ErrUnknownNetwork
	}
	return params, nil
}

// NetworkLabel returns the label used to qualify persisted entries for the
// given network.
func NetworkLabel(network string) (string, error) {
	label, ok := labelByNetwork[network]
	if !ok {
		return "", ErrUnknownNetwork
	}
	return label, nil
}

// SyncPolicyForNetwork returns the default sync policy for the given network.
// Unknown networks get the testnet policy.
func SyncPolicyForNetwork(network string) SyncPolicy {
	if policy, ok := policyByNetwork[network]; ok {
		return policy
	}
	return policyByNetwork[NetworkTestnet]
}
