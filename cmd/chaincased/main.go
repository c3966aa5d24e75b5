package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	appconfig "github.com/vulpemventures/chaincase/internal/app-config"
	"github.com/vulpemventures/chaincase/internal/config"
	"github.com/vulpemventures/chaincase/internal/core/application"
	"github.com/vulpemventures/chaincase/internal/core/domain"
	"github.com/vulpemventures/chaincase/internal/infrastructure/transport/tor"
	"github.com/vulpemventures/chaincase/pkg/profiler"
)

var (
	// Build info.
	version string
	commit  string
	date    string

	// Config from env vars.
	storeType      = config.GetString(config.SecureStoreTypeKey)
	logLevel       = config.GetInt(config.LogLevelKey)
	datadir        = config.GetDatadir()
	profilerPort   = config.GetInt(config.ProfilerPortKey)
	network        = config.GetNetwork()
	noProfiler     = config.GetBool(config.NoProfilerKey)
	dbDir          = filepath.Join(datadir, config.DbLocation)
	profilerDir    = filepath.Join(datadir, config.ProfilerLocation)
	statsInterval  = time.Duration(config.GetInt(config.StatsIntervalKey)) * time.Second
	syncPolicy     = config.GetSyncPolicy()
	apiVersion     = config.GetInt(config.APIVersionKey)
	maxRetries     = config.GetInt(config.MaxRetriesKey)
	socks5Addr     = config.GetTorSocks5Addr()
	watchAddresses = config.GetStringSlice(config.WatchAddressesKey)
)

func main() {
	log.SetLevel(log.Level(logLevel))

	if profilerEnabled := !noProfiler; profilerEnabled {
		profilerSvc, err := profiler.NewService(profiler.ServiceOpts{
			Port:          profilerPort,
			StatsInterval: statsInterval,
			Datadir:       profilerDir,
			Collectors: append(
				application.Collectors(), tor.Collectors()...,
			),
		})
		if err != nil {
			log.WithError(err).Fatal("profiler: error while initializing")
		}

		if err := profilerSvc.Start(); err != nil {
			log.WithError(err).Fatal("profiler: error while starting")
		}
		defer func() {
			profilerSvc.Stop()
		}()
	}

	appCfg := &appconfig.AppConfig{
		Version:           version,
		Commit:            commit,
		Date:              date,
		Network:           network,
		SyncPolicy:        syncPolicy,
		SecureStoreType:   storeType,
		SecureStoreConfig: dbDir,
		BackendURI:        config.GetBackendURI,
		TransportOpts: tor.ClientOpts{
			Socks5Addr:   socks5Addr,
			IsolationTag: "chaincased",
		},
		APIVersion:     apiVersion,
		MaxRetries:     maxRetries,
		WatchAddresses: watchAddresses,
	}
	if err := appCfg.Validate(); err != nil {
		log.WithError(err).Fatal("service: error while initializing")
	}
	defer appCfg.Close()

	info := appCfg.BuildInfo()
	log.Infof(
		"chaincased %s (commit %s, %s) on %s, backend %s",
		info.Version, info.Commit, info.Date, network, config.GetBackendURI(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checkBackendVersion(ctx, appCfg)

	syncSvc := appCfg.SyncService()
	go logSyncEvents(syncSvc.GetEventChannel())
	go logRoundEvents(appCfg.CoinJoinService().GetRoundStateChannel(ctx))

	if err := syncSvc.Start(ctx); err != nil {
		log.WithError(err).Fatal("sync: error while starting")
	}
	log.Info("sync: started")

	// SIGUSR1 and SIGUSR2 mimic the app going in background and foreground.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(
		sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR1, syscall.SIGUSR2,
	)
	for sig := range sigChan {
		switch sig {
		case syscall.SIGUSR1:
			syncSvc.Stop()
			log.Info("sync: stopped")
		case syscall.SIGUSR2:
			if err := syncSvc.HandleRemoteNotification(ctx); err != nil {
				log.WithError(err).Warn("sync: error while resuming")
				continue
			}
			log.Info("sync: resumed")
		default:
			log.Info("shutting down")
			return
		}
	}
}

func checkBackendVersion(ctx context.Context, appCfg *appconfig.AppConfig) {
	client := appCfg.BackendClient()
	backendVersion, err := client.GetBackendMajorVersion(ctx)
	if err != nil {
		log.WithError(err).Warn("backend: failed to get api version")
		return
	}
	if backendVersion != client.APIVersion() {
		log.Warnf(
			"backend: api version mismatch, backend is v%d, client is v%d",
			backendVersion, client.APIVersion(),
		)
	}
}

func logSyncEvents(events <-chan domain.SyncEvent) {
	for event := range events {
		switch event.EventType {
		case domain.HeaderUpdated:
			log.Infof(
				"sync: new mature header %d %s, best height %d",
				event.Header.Height, event.Header.Hash, event.Header.BestHeight,
			)
		case domain.MempoolUpdated:
			log.Infof(
				"sync: new mempool root %s, %d buckets, %d txs",
				event.Mempool.Root.Key, len(event.Mempool.Buckets),
				len(event.Mempool.Transactions()),
			)
		case domain.SyncFailed:
			log.WithError(event.Err).Warn("sync: tick failed")
		}
	}
}

func logRoundEvents(events <-chan domain.SyncEvent) {
	for event := range events {
		if event.Round == nil {
			continue
		}
		log.Infof(
			"coinjoin: round in phase %s, %d/%d peers",
			event.Round.Phase, event.Round.PeersRegistered, event.Round.PeersNeeded,
		)
	}
}
