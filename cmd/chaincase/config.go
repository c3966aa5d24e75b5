package main

import (
	"github.com/spf13/cobra"
	"github.com/vulpemventures/chaincase/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "print the current configuration",
	Long: "this command prints the configuration resolved from the " +
		"CHAINCASE_* environment variables",
	RunE: configPrint,
}

func configPrint(_ *cobra.Command, _ []string) error {
	return printJSON(map[string]interface{}{
		"datadir":              config.GetDatadir(),
		"network":              config.GetNetwork(),
		"use_tor":              config.GetBool(config.UseTorKey),
		"tor_socks5_addr":      config.GetTorSocks5Addr(),
		"backend_uri":          config.GetBackendURI(),
		"onion_backend_uri":    config.GetOnionBackendURI(),
		"fallback_backend_uri": config.GetFallbackBackendURI(),
		"api_version":          config.GetInt(config.APIVersionKey),
		"max_retries":          config.GetInt(config.MaxRetriesKey),
		"sync_interval":        config.GetSyncPolicy().Interval.String(),
		"secure_store_type":    config.GetString(config.SecureStoreTypeKey),
		"watch_addresses":      config.GetStringSlice(config.WatchAddressesKey),
	})
}
