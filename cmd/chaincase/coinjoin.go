package main

import (
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/cobra"
)

var (
	coinjoinRoundCmd = &cobra.Command{
		Use:   "round",
		Short: "get the current round state",
		Long: "this command returns the state of the coinjoin round the " +
			"wallet takes part in",
		RunE: coinjoinRound,
	}
	coinjoinFeeCmd = &cobra.Command{
		Use:   "fee [amount]",
		Short: "get the coordinator fee",
		Long: "this command returns the fee charged by the coordinator to mix " +
			"the given amount of sats",
		Args: cobra.ExactArgs(1),
		RunE: coinjoinFee,
	}
	coinjoinCmd = &cobra.Command{
		Use:   "coinjoin",
		Short: "get info about coinjoin rounds",
		Long:  "this command lets you inspect the current coinjoin round",
	}
)

func init() {
	coinjoinCmd.AddCommand(coinjoinRoundCmd, coinjoinFeeCmd)
}

func coinjoinRound(cmd *cobra.Command, _ []string) error {
	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	info := appCfg.CoinJoinService().GetRoundState(cmd.Context())
	return printJSON(map[string]interface{}{
		"phase":                   info.Phase.String(),
		"in_error_state":          info.InErrorState,
		"peers_registered":        info.PeersRegistered,
		"peers_queued":            info.PeersQueued,
		"peers_needed":            info.PeersNeeded,
		"time_left":               info.TimeLeft.String(),
		"required_amount":         info.RequiredAmount.String(),
		"coordinator_fee_percent": info.CoordinatorFeePercent.String(),
	})
}

func coinjoinFee(cmd *cobra.Command, args []string) error {
	sats, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || sats < 0 {
		return fmt.Errorf("amount must be a non negative number of sats")
	}

	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	fee := appCfg.CoinJoinService().GetCoordinatorFee(
		cmd.Context(), btcutil.Amount(sats),
	)
	return printJSON(map[string]interface{}{
		"amount": sats,
		"fee":    int64(fee),
	})
}
