package main

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	deviceToken string
	isDebug     bool

	backendHeaderCmd = &cobra.Command{
		Use:   "header",
		Short: "get the latest mature block header",
		Long:  "this command returns the latest mature block header known by the backend",
		RunE:  backendHeader,
	}
	backendRootCmd = &cobra.Command{
		Use:   "root",
		Short: "get the mempool root filter",
		Long:  "this command returns the current mempool root filter",
		RunE:  backendRoot,
	}
	backendSubCmd = &cobra.Command{
		Use:   "sub",
		Short: "get the mempool sub filters",
		Long:  "this command returns all mempool sub filters by key",
		RunE:  backendSub,
	}
	backendBucketsCmd = &cobra.Command{
		Use:   "buckets [key...]",
		Short: "get mempool transaction buckets",
		Long: "this command returns the raw txs of the mempool buckets " +
			"identified by the given sub filter keys",
		Args: cobra.MinimumNArgs(1),
		RunE: backendBuckets,
	}
	backendRegisterCmd = &cobra.Command{
		Use:   "register",
		Short: "register a push notification token",
		Long: "this command registers the given device token to receive " +
			"push notifications from the backend",
		RunE: backendRegister,
	}
	backendVersionCmd = &cobra.Command{
		Use:   "version",
		Short: "get the backend api major version",
		Long: "this command returns the major version of the backend api and " +
			"whether it's the one supported by this client",
		RunE: backendVersion,
	}
	backendCmd = &cobra.Command{
		Use:   "backend",
		Short: "interact with the chaincase backend",
		Long: "this command lets you query the chaincase backend, through Tor " +
			"unless CHAINCASE_USE_TOR is false",
	}
)

func init() {
	backendRegisterCmd.Flags().StringVar(&deviceToken, "token", "", "device token")
	backendRegisterCmd.Flags().BoolVar(&isDebug, "debug", false, "whether the token is for a debug build")
	backendRegisterCmd.MarkFlagRequired("token")

	backendCmd.AddCommand(
		backendHeaderCmd, backendRootCmd, backendSubCmd, backendBucketsCmd,
		backendRegisterCmd, backendVersionCmd,
	)
}

func backendHeader(cmd *cobra.Command, _ []string) error {
	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	header, err := appCfg.BackendClient().GetLatestMatureHeader(cmd.Context())
	if err != nil {
		printErr(err)
		return nil
	}
	if header == nil {
		fmt.Println("backend has no mature header yet")
		return nil
	}
	return printJSON(map[string]interface{}{
		"height":      header.Height,
		"hash":        header.Hash.String(),
		"best_height": header.BestHeight,
		"best_hash":   header.BestHash.String(),
	})
}

func backendRoot(cmd *cobra.Command, _ []string) error {
	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	root, err := appCfg.BackendClient().GetMempoolRootFilter(cmd.Context())
	if err != nil {
		printErr(err)
		return nil
	}
	if root == nil {
		fmt.Println("backend has no mempool filter")
		return nil
	}
	return printJSON(map[string]string{root.Key: root.Value})
}

func backendSub(cmd *cobra.Command, _ []string) error {
	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	filters, err := appCfg.BackendClient().GetMempoolSubFilters(cmd.Context())
	if err != nil {
		printErr(err)
		return nil
	}
	return printJSON(filters)
}

func backendBuckets(cmd *cobra.Command, args []string) error {
	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	buckets, err := appCfg.BackendClient().GetMempoolTransactionBuckets(
		cmd.Context(), args,
	)
	if err != nil {
		printErr(err)
		return nil
	}

	out := make(map[string][]string, len(buckets))
	for key, txs := range buckets {
		rawTxs := make([]string, 0, len(txs))
		for _, tx := range txs {
			buf := bytes.NewBuffer(make([]byte, 0, tx.SerializeSize()))
			if err := tx.Serialize(buf); err != nil {
				return err
			}
			rawTxs = append(rawTxs, hex.EncodeToString(buf.Bytes()))
		}
		out[key] = rawTxs
	}
	return printJSON(out)
}

func backendRegister(cmd *cobra.Command, _ []string) error {
	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	ack, err := appCfg.NotificationService().RegisterDeviceToken(
		cmd.Context(), deviceToken, isDebug,
	)
	if err != nil {
		printErr(err)
		return nil
	}
	return printJSON(map[string]string{"ack": ack})
}

func backendVersion(cmd *cobra.Command, _ []string) error {
	appCfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	client := appCfg.BackendClient()
	backendVersion, err := client.GetBackendMajorVersion(cmd.Context())
	if err != nil {
		printErr(err)
		return nil
	}
	return printJSON(map[string]interface{}{
		"backend_major_version": backendVersion,
		"client_api_version":    client.APIVersion(),
		"compatible":            backendVersion == client.APIVersion(),
	})
}
