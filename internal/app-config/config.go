package appconfig

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/chaincase/internal/config"
	"github.com/vulpemventures/chaincase/internal/core/application"
	"github.com/vulpemventures/chaincase/internal/core/domain"
	"github.com/vulpemventures/chaincase/internal/core/ports"
	"github.com/vulpemventures/chaincase/internal/infrastructure/backend/chaincase"
	gcsmatcher "github.com/vulpemventures/chaincase/internal/infrastructure/filter-matcher/gcs"
	headerchain "github.com/vulpemventures/chaincase/internal/infrastructure/header-chain/inmemory"
	"github.com/vulpemventures/chaincase/internal/infrastructure/script-provider/watchlist"
	"github.com/vulpemventures/chaincase/internal/infrastructure/secret-cypher/aesgcm"
	badgerstore "github.com/vulpemventures/chaincase/internal/infrastructure/secure-store/badger"
	inmemorystore "github.com/vulpemventures/chaincase/internal/infrastructure/secure-store/inmemory"
	"github.com/vulpemventures/chaincase/internal/infrastructure/transport/tor"
	txprocessor "github.com/vulpemventures/chaincase/internal/infrastructure/tx-processor/inmemory"
)

// AppConfig is the struct holding all configuration options for
// every application service (sync, secret, notification and coinjoin).
// This data structure acts also as a factory of the mentioned application
// services and the portable services used by them.
// Public config args:
//   - Network - (required) The Bitcoin network (mainnet, testnet, regtest).
//   - SyncPolicy - (optional) Custom sync policy, defaults to the network one.
//   - SecureStoreType - (required) One of the supported secure store types.
//   - SecureStoreConfig - (optional) Custom config args for the secure store based on its type.
//   - BackendURI - (required) Function returning the uri of the backend for every request.
//   - TransportOpts - (optional) Tor proxy, timeout and retry options.
//   - APIVersion - (optional) Major version of the backend api, defaults to 4.
//   - MaxRetries - (optional) How many times transient failures are retried.
//   - WatchAddresses - (optional) Addresses whose mempool txs are relevant.
//   - RoundStateProvider - (optional) The external coinjoin client.
type AppConfig struct {
	Version string
	Commit  string
	Date    string

	Network    string
	SyncPolicy domain.SyncPolicy

	SecureStoreType   string
	SecureStoreConfig interface{}

	BackendURI     func() string
	TransportOpts  tor.ClientOpts
	APIVersion     int
	MaxRetries     int
	WatchAddresses []string

	RoundStateProvider ports.RoundStateProvider

	store     ports.SecureStore
	transport *tor.Client
	backend   *chaincase.Client
	chain     *headerchain.HeaderChain
	scripts   *watchlist.Provider
	matcher   *gcsmatcher.Matcher
	processor *txprocessor.Processor

	syncSvc     *application.SyncService
	secretSvc   *application.SecretService
	notifySvc   *application.NotificationService
	coinjoinSvc *application.CoinJoinService
}

func (c *AppConfig) Validate() error {
	if _, err := domain.NetworkParams(c.Network); err != nil {
		return err
	}
	if c.SyncPolicy == (domain.SyncPolicy{}) {
		c.SyncPolicy = domain.SyncPolicyForNetwork(c.Network)
	}
	if len(c.SecureStoreType) == 0 {
		return fmt.Errorf("missing secure store type")
	}
	if _, ok := config.SupportedSecureStores[c.SecureStoreType]; !ok {
		return fmt.Errorf(
			"secure store type not supported, must be one of: %s",
			config.SupportedSecureStores,
		)
	}
	if c.BackendURI == nil {
		return fmt.Errorf("missing backend uri")
	}
	if c.APIVersion == 0 {
		c.APIVersion = chaincase.DefaultAPIVersion
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if _, err := c.secureStore(); err != nil {
		return err
	}
	if _, err := c.backendClient(); err != nil {
		return err
	}
	if _, err := c.scriptProvider(); err != nil {
		return err
	}
	if _, err := c.syncService(); err != nil {
		return err
	}
	if _, err := c.secretService(); err != nil {
		return err
	}
	return nil
}

func (c *AppConfig) SecureStore() ports.SecureStore {
	return c.store
}

func (c *AppConfig) BackendClient() *chaincase.Client {
	return c.backend
}

func (c *AppConfig) HeaderChain() *headerchain.HeaderChain {
	return c.headerChain()
}

func (c *AppConfig) WatchList() *watchlist.Provider {
	return c.scripts
}

func (c *AppConfig) TransactionProcessor() *txprocessor.Processor {
	return c.txProcessor()
}

func (c *AppConfig) SyncService() *application.SyncService {
	return c.syncSvc
}

func (c *AppConfig) SecretService() *application.SecretService {
	return c.secretSvc
}

func (c *AppConfig) NotificationService() *application.NotificationService {
	return c.notificationService()
}

func (c *AppConfig) CoinJoinService() *application.CoinJoinService {
	return c.coinjoinService()
}

func (c *AppConfig) BuildInfo() application.BuildInfo {
	version := "dev"
	if c.Version != "" {
		version = c.Version
	}
	commit := "none"
	if c.Commit != "" {
		commit = c.Commit
	}
	date := "unknown"
	if c.Date != "" {
		date = c.Date
	}
	return application.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}
}

// Close stops the sync service and releases the secure store.
func (c *AppConfig) Close() {
	if c.syncSvc != nil {
		c.syncSvc.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

func (c *AppConfig) secureStore() (ports.SecureStore, error) {
	if c.store != nil {
		return c.store, nil
	}

	switch c.SecureStoreType {
	case "inmemory":
		c.store = inmemorystore.NewSecureStore()
		return c.store, nil
	case "badger":
		if c.SecureStoreConfig == nil {
			return nil, fmt.Errorf("missing secure store config args")
		}
		datadir, ok := c.SecureStoreConfig.(string)
		if !ok {
			return nil, fmt.Errorf("invalid secure store config type, must be string")
		}
		store, err := badgerstore.NewSecureStore(datadir, log.New())
		if err != nil {
			return nil, err
		}
		c.store = store
		return c.store, nil
	default:
		return nil, fmt.Errorf("unknown secure store type")
	}
}

func (c *AppConfig) torClient() (*tor.Client, error) {
	if c.transport != nil {
		return c.transport, nil
	}

	client, err := tor.NewClient(c.BackendURI, c.TransportOpts)
	if err != nil {
		return nil, err
	}
	c.transport = client
	return c.transport, nil
}

func (c *AppConfig) backendClient() (*chaincase.Client, error) {
	if c.backend != nil {
		return c.backend, nil
	}

	transport, err := c.torClient()
	if err != nil {
		return nil, err
	}
	client, err := chaincase.NewClient(transport, c.APIVersion, c.MaxRetries)
	if err != nil {
		return nil, err
	}
	c.backend = client
	return c.backend, nil
}

func (c *AppConfig) headerChain() *headerchain.HeaderChain {
	if c.chain == nil {
		c.chain = headerchain.NewHeaderChain()
	}
	return c.chain
}

func (c *AppConfig) scriptProvider() (*watchlist.Provider, error) {
	if c.scripts != nil {
		return c.scripts, nil
	}

	params, err := domain.NetworkParams(c.Network)
	if err != nil {
		return nil, err
	}
	provider, err := watchlist.NewProvider(params, c.WatchAddresses)
	if err != nil {
		return nil, err
	}
	c.scripts = provider
	return c.scripts, nil
}

func (c *AppConfig) filterMatcher() (*gcsmatcher.Matcher, error) {
	if c.matcher != nil {
		return c.matcher, nil
	}

	scripts, err := c.scriptProvider()
	if err != nil {
		return nil, err
	}
	matcher, err := gcsmatcher.NewMatcher(scripts)
	if err != nil {
		return nil, err
	}
	c.matcher = matcher
	return c.matcher, nil
}

func (c *AppConfig) txProcessor() *txprocessor.Processor {
	if c.processor != nil {
		return c.processor
	}

	var watcher txprocessor.ScriptWatcher
	if scripts, _ := c.scriptProvider(); scripts != nil {
		watcher = scripts
	}
	c.processor = txprocessor.NewProcessor(watcher)
	return c.processor
}

func (c *AppConfig) syncService() (*application.SyncService, error) {
	if c.syncSvc != nil {
		return c.syncSvc, nil
	}

	backend, err := c.backendClient()
	if err != nil {
		return nil, err
	}
	matcher, err := c.filterMatcher()
	if err != nil {
		return nil, err
	}
	svc, err := application.NewSyncService(application.SyncServiceArgs{
		Network:   c.Network,
		Policy:    c.SyncPolicy,
		Backend:   backend,
		Chain:     c.headerChain(),
		Matcher:   matcher,
		Processor: c.txProcessor(),
	})
	if err != nil {
		return nil, err
	}
	c.syncSvc = svc
	return c.syncSvc, nil
}

func (c *AppConfig) secretService() (*application.SecretService, error) {
	if c.secretSvc != nil {
		return c.secretSvc, nil
	}

	store, err := c.secureStore()
	if err != nil {
		return nil, err
	}
	svc, err := application.NewSecretService(store, aesgcm.NewSecretCypher, c.Network)
	if err != nil {
		return nil, err
	}
	c.secretSvc = svc
	return c.secretSvc, nil
}

func (c *AppConfig) notificationService() *application.NotificationService {
	if c.notifySvc != nil {
		return c.notifySvc
	}

	backend, _ := c.backendClient()
	syncSvc, _ := c.syncService()
	c.notifySvc = application.NewNotificationService(backend, syncSvc)
	return c.notifySvc
}

func (c *AppConfig) coinjoinService() *application.CoinJoinService {
	if c.coinjoinSvc == nil {
		c.coinjoinSvc = application.NewCoinJoinService(c.RoundStateProvider)
	}
	return c.coinjoinSvc
}
