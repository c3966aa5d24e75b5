package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/spf13/viper"
	"github.com/vulpemventures/chaincase/internal/core/domain"
)

const (
	// DatadirKey is the key to customize the chaincase datadir.
	DatadirKey = "DATADIR"
	// NetworkKey is the key to customize the Bitcoin network.
	NetworkKey = "NETWORK"
	// LogLevelKey is the key to customize the log level to catch more specific
	// or more high level logs.
	LogLevelKey = "LOG_LEVEL"
	// UseTorKey is the key to route every backend request through Tor.
	UseTorKey = "USE_TOR"
	// TorSocks5AddrKey is the key to customize the address of the Tor SOCKS5
	// proxy.
	TorSocks5AddrKey = "TOR_SOCKS5_ADDR"
	// BackendURIKey is the key to customize the (onion) uri of the backend,
	// used when Tor is enabled.
	BackendURIKey = "BACKEND_URI"
	// FallbackBackendURIKey is the key to customize the clearnet uri of the
	// backend, used when Tor is disabled.
	FallbackBackendURIKey = "FALLBACK_BACKEND_URI"
	// APIVersionKey is the key to customize the major version of the backend
	// api.
	APIVersionKey = "API_VERSION"
	// MaxRetriesKey is the key to customize how many times a request failing
	// for transient reasons is retried.
	MaxRetriesKey = "MAX_RETRIES"
	// SyncIntervalKey is the key to customize the time between two sync ticks.
	// Zero means the network default.
	SyncIntervalKey = "SYNC_INTERVAL_IN_SECONDS"
	// SecureStoreTypeKey is the key to customize the type of secure store.
	SecureStoreTypeKey = "SECURE_STORE_TYPE"
	// WatchAddressesKey is the key to set the list of addresses whose mempool
	// txs are relevant.
	WatchAddressesKey = "WATCH_ADDRESSES"
	// NoProfilerKey is the key to disable Prometheus profiling.
	NoProfilerKey = "NO_PROFILER"
	// ProfilerPortKey is the key to customize the port where the profiler will
	// be listening to.
	ProfilerPortKey = "PROFILER_PORT"
	// StatsIntervalKey is the key to customize the interval for the profiler
	// to gather profiling stats.
	StatsIntervalKey = "STATS_INTERVAL"

	// DbLocation is the folder inside the datadir containing db files.
	DbLocation = "db"
	// ProfilerLocation is the folder inside the datadir containing profiler
	// stats files.
	ProfilerLocation = "stats"
)

var (
	vip *viper.Viper

	defaultDatadir         = btcutil.AppDataDir("chaincase", false)
	defaultNetwork         = domain.NetworkMainnet
	defaultLogLevel        = 4
	defaultTorSocks5Addr   = "127.0.0.1:9050"
	defaultAPIVersion      = 4
	defaultMaxRetries      = 2
	defaultSecureStoreType = "badger"
	defaultProfilerPort    = 18011
	defaultStatsInterval   = 600 // 10 minutes

	onionURIByNetwork = map[string]string{
		domain.NetworkMainnet: "http://wasabiukrxmkdgve5kynjztuovbg43uxcbcxn6y2okcrsg7gb6jdmbad.onion/",
		domain.NetworkTestnet: "http://testwnp3fugjln6vh5vpj7mvq3lkqqwjj3c2aafyu7laxz42kgwh2rad.onion/",
		domain.NetworkRegtest: "http://localhost:37127/",
	}
	fallbackURIByNetwork = map[string]string{
		domain.NetworkMainnet: "https://wasabiwallet.io/",
		domain.NetworkTestnet: "https://wasabiwallet.co/",
		domain.NetworkRegtest: "http://localhost:37127/",
	}

	SupportedSecureStores = supportedType{
		"badger":   {},
		"inmemory": {},
	}
)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("CHAINCASE")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(NetworkKey, defaultNetwork)
	vip.SetDefault(LogLevelKey, defaultLogLevel)
	vip.SetDefault(UseTorKey, true)
	vip.SetDefault(TorSocks5AddrKey, defaultTorSocks5Addr)
	vip.SetDefault(APIVersionKey, defaultAPIVersion)
	vip.SetDefault(MaxRetriesKey, defaultMaxRetries)
	vip.SetDefault(SyncIntervalKey, 0)
	vip.SetDefault(SecureStoreTypeKey, defaultSecureStoreType)
	vip.SetDefault(NoProfilerKey, false)
	vip.SetDefault(ProfilerPortKey, defaultProfilerPort)
	vip.SetDefault(StatsIntervalKey, defaultStatsInterval)

	if err := validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	if err := initDatadir(); err != nil {
		log.Fatalf("config: error while creating datadir: %s", err)
	}
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	network := GetString(NetworkKey)
	if len(network) == 0 {
		return fmt.Errorf("network must not be null")
	}
	if _, err := domain.NetworkParams(network); err != nil {
		return fmt.Errorf(
			"unknown network, must be one of: %v", domain.SupportedNetworks(),
		)
	}

	if GetBool(UseTorKey) {
		if _, _, err := net.SplitHostPort(GetString(TorSocks5AddrKey)); err != nil {
			return fmt.Errorf("invalid tor socks5 address: %s", err)
		}
	}

	for _, key := range []string{BackendURIKey, FallbackBackendURIKey} {
		if uri := GetString(key); len(uri) > 0 {
			if err := validateURI(uri); err != nil {
				return fmt.Errorf("invalid %s: %s", strings.ToLower(key), err)
			}
		}
	}

	if GetInt(APIVersionKey) <= 0 {
		return fmt.Errorf("api version must be a positive number")
	}
	if GetInt(MaxRetriesKey) < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if GetInt(SyncIntervalKey) < 0 {
		return fmt.Errorf("sync interval must not be negative")
	}

	storeType := GetString(SecureStoreTypeKey)
	if _, ok := SupportedSecureStores[storeType]; !ok {
		return fmt.Errorf(
			"unsupported secure store type, must be one of %s", SupportedSecureStores,
		)
	}

	return nil
}

func GetDatadir() string {
	return filepath.Join(GetString(DatadirKey), GetString(NetworkKey))
}

func GetNetwork() string {
	return GetString(NetworkKey)
}

func GetNetworkParams() *chaincfg.Params {
	params, _ := domain.NetworkParams(GetNetwork())
	return params
}

// GetSyncPolicy returns the sync policy of the configured network, with the
// interval overridden if customized.
func GetSyncPolicy() domain.SyncPolicy {
	policy := domain.SyncPolicyForNetwork(GetNetwork())
	if interval := GetInt(SyncIntervalKey); interval > 0 {
		policy.Interval = time.Duration(interval) * time.Second
	}
	return policy
}

// GetBackendURI returns the uri of the backend to connect to, depending on
// whether Tor is enabled. It's meant to be called for every request since
// the config can change at runtime.
func GetBackendURI() string {
	if GetBool(UseTorKey) {
		return GetOnionBackendURI()
	}
	return GetFallbackBackendURI()
}

func GetOnionBackendURI() string {
	if uri := GetString(BackendURIKey); len(uri) > 0 {
		return uri
	}
	return onionURIByNetwork[GetNetwork()]
}

func GetFallbackBackendURI() string {
	if uri := GetString(FallbackBackendURIKey); len(uri) > 0 {
		return uri
	}
	return fallbackURIByNetwork[GetNetwork()]
}

// GetTorSocks5Addr returns the address of the Tor proxy, or an empty string
// if Tor is disabled.
func GetTorSocks5Addr() string {
	if !GetBool(UseTorKey) {
		return ""
	}
	return GetString(TorSocks5AddrKey)
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetStringSlice(key string) []string {
	return vip.GetStringSlice(key)
}

func Set(key string, val interface{}) {
	vip.Set(key, val)
}

func Unset(key string) {
	vip.Set(key, nil)
}

func IsSet(key string) bool {
	return vip.IsSet(key)
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}

	noProfiler := GetBool(NoProfilerKey)
	if !noProfiler {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func validateURI(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if len(u.Host) <= 0 {
		return fmt.Errorf("missing host")
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}
