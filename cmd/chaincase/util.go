package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	appconfig "github.com/vulpemventures/chaincase/internal/app-config"
	"github.com/vulpemventures/chaincase/internal/config"
	"github.com/vulpemventures/chaincase/internal/infrastructure/transport/tor"
)

var colorRed = string("\033[31m")

// getAppConfig builds the services in-process from the env config.
func getAppConfig() (*appconfig.AppConfig, func(), error) {
	appCfg := &appconfig.AppConfig{
		Version:           version,
		Commit:            commit,
		Date:              date,
		Network:           config.GetNetwork(),
		SyncPolicy:        config.GetSyncPolicy(),
		SecureStoreType:   config.GetString(config.SecureStoreTypeKey),
		SecureStoreConfig: filepath.Join(config.GetDatadir(), config.DbLocation),
		BackendURI:        config.GetBackendURI,
		TransportOpts: tor.ClientOpts{
			Socks5Addr:   config.GetTorSocks5Addr(),
			IsolationTag: "chaincase-cli",
		},
		APIVersion:     config.GetInt(config.APIVersionKey),
		MaxRetries:     config.GetInt(config.MaxRetriesKey),
		WatchAddresses: config.GetStringSlice(config.WatchAddressesKey),
	}
	if err := appCfg.Validate(); err != nil {
		return nil, nil, err
	}
	return appCfg, appCfg.Close, nil
}

func printJSON(v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "   ")
	if err != nil {
		return fmt.Errorf("failed to marshal response: %s", err)
	}
	fmt.Println(string(buf))
	return nil
}

func printErr(err error) {
	msg := fmt.Sprintf("%s%s", colorRed, capitalize(err.Error()))
	fmt.Fprintln(os.Stderr, msg)
}

func capitalize(s string) string {
	if len(s) <= 0 {
		return s
	}
	ss := strings.ToUpper(s[0:1])
	ss += s[1:]
	return ss
}

func formatVersion() string {
	return fmt.Sprintf(
		"\nVersion: %s\nCommit: %s\nDate: %s", version, commit, date,
	)
}
