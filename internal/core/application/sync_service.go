package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vulpemventures/chaincase/internal/core/domain"
	"github.com/vulpemventures/chaincase/internal/core/ports"
	"github.com/vulpemventures/chaincase/pkg/periodic"
)

var ErrServiceClosed = fmt.Errorf("service is closed")

// SyncService periodically synchronizes the wallet with the backend. Every
// tick fetches the latest mature header first and then the mempool state.
//
// The service can be stopped and resumed any number of times, for example
// when the app goes in background and foreground. Results are published to
// the event channel, that must be consumed for the events not to be dropped.
type SyncService struct {
	network string
	policy  domain.SyncPolicy
	chain   ports.HeaderChain
	header  *HeaderSynchronizer
	mempool *MempoolSynchronizer
	runner  *periodic.Runner

	lastHeader    *domain.BlockHeader
	lastHeaderAt  time.Time
	lastMempoolAt time.Time
	lastErr       error
	lock          *sync.RWMutex

	eventCh chan domain.SyncEvent
	// runLock serializes the runner transitions with Close, so that the loop
	// can't be started once the event channel is closed.
	runLock *sync.Mutex
	closed  bool

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

type SyncServiceArgs struct {
	Network   string
	Policy    domain.SyncPolicy
	Backend   ports.BackendClient
	Chain     ports.HeaderChain
	Matcher   ports.FilterMatcher
	Processor ports.TransactionProcessor
}

func (a SyncServiceArgs) validate() error {
	if _, err := domain.NetworkParams(a.Network); err != nil {
		return err
	}
	if a.Policy.Interval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	if a.Policy.MaxAge <= 0 {
		return fmt.Errorf("sync max age must be positive")
	}
	if a.Backend == nil {
		return fmt.Errorf("missing backend client")
	}
	if a.Chain == nil {
		return fmt.Errorf("missing header chain")
	}
	if a.Processor == nil {
		return fmt.Errorf("missing transaction processor")
	}
	return nil
}

func NewSyncService(args SyncServiceArgs) (*SyncService, error) {
	if err := args.validate(); err != nil {
		return nil, err
	}

	mempool, err := NewMempoolSynchronizer(
		args.Backend, args.Chain, args.Matcher, args.Processor,
		args.Policy.MaxFilterFetch,
	)
	if err != nil {
		return nil, err
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("sync: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("sync: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	svc := &SyncService{
		network:   args.Network,
		policy:    args.Policy,
		chain:     args.Chain,
		header:    NewHeaderSynchronizer(args.Backend, args.Chain),
		mempool:   mempool,
		lock:      &sync.RWMutex{},
		eventCh:   make(chan domain.SyncEvent, eventChannelSize),
		runLock:   &sync.Mutex{},
		log:       logFn,
		warn:      warnFn,
	}
	svc.runner = periodic.New("sync", svc.tick, args.Policy.Interval)
	return svc, nil
}

// Start starts synchronizing with the default interval of the sync policy.
func (s *SyncService) Start(ctx context.Context) error {
	s.runLock.Lock()
	defer s.runLock.Unlock()

	if s.closed {
		return ErrServiceClosed
	}
	return s.runner.Start(ctx, 0)
}

// Stop pauses the synchronization and blocks until the ongoing tick, if any,
// is completed.
func (s *SyncService) Stop() {
	s.runner.Stop()
}

// Resume restarts a stopped synchronization. A zero interval means the
// default one.
func (s *SyncService) Resume(ctx context.Context, interval time.Duration) error {
	s.runLock.Lock()
	defer s.runLock.Unlock()

	if s.closed {
		return ErrServiceClosed
	}
	return s.runner.Resume(ctx, interval)
}

// HandleRemoteNotification is called when the device gets woken up by a push
// notification. It makes sure the synchronization is running.
func (s *SyncService) HandleRemoteNotification(ctx context.Context) error {
	s.runLock.Lock()
	defer s.runLock.Unlock()

	if s.closed {
		return ErrServiceClosed
	}

	switch state := s.runner.State(); state {
	case periodic.NotStarted:
		return s.runner.Start(ctx, 0)
	case periodic.Stopped:
		return s.runner.Resume(ctx, 0)
	case periodic.Stopping:
		s.runner.Stop()
		return s.runner.Resume(ctx, 0)
	default:
		s.log("remote notification received while running")
		return nil
	}
}

func (s *SyncService) Status() SyncStatus {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var tip *domain.BlockHeader
	if s.lastHeader != nil {
		h := *s.lastHeader
		tip = &h
	}
	return SyncStatus{
		Network:       s.network,
		State:         s.runner.State(),
		ServerTip:     tip,
		LastHeaderAt:  s.lastHeaderAt,
		HashesLeft:    s.chain.HashesLeft(),
		LastRootKey:   s.mempool.LastRootKey(),
		LastMempoolAt: s.lastMempoolAt,
		LastError:     s.lastErr,
		IsHeaderStale: s.lastHeaderAt.IsZero() ||
			time.Since(s.lastHeaderAt) > s.policy.MaxAge,
	}
}

// GetEventChannel returns the channel where sync events are published.
func (s *SyncService) GetEventChannel() <-chan domain.SyncEvent {
	return s.eventCh
}

// Close stops the synchronization and closes the event channel. The service
// can't be used anymore afterwards.
func (s *SyncService) Close() {
	s.runLock.Lock()
	defer s.runLock.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.runner.Stop()
	close(s.eventCh)
}

func (s *SyncService) tick(ctx context.Context) error {
	headerErr := s.syncHeader(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	mempoolErr := s.syncMempool(ctx)

	err := errors.Join(headerErr, mempoolErr)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		syncTicks.WithLabelValues("error").Inc()
	} else {
		syncTicks.WithLabelValues("ok").Inc()
	}

	s.lock.Lock()
	s.lastErr = err
	s.lock.Unlock()
	return err
}

func (s *SyncService) syncHeader(ctx context.Context) error {
	header, err := s.header.Sync(ctx)
	if err != nil {
		s.publishFailure(ctx, err)
		return err
	}
	if header == nil {
		return nil
	}

	s.lock.Lock()
	changed := s.lastHeader == nil || s.lastHeader.Hash != header.Hash
	s.lastHeader = header
	s.lastHeaderAt = time.Now()
	s.lock.Unlock()

	if changed {
		s.publishEvent(domain.SyncEvent{
			EventType: domain.HeaderUpdated,
			Timestamp: time.Now(),
			Header:    header,
		})
	}
	return nil
}

func (s *SyncService) syncMempool(ctx context.Context) error {
	update, err := s.mempool.Sync(ctx)
	if err != nil {
		s.publishFailure(ctx, err)
		return err
	}
	if update == nil {
		return nil
	}

	s.lock.Lock()
	s.lastMempoolAt = time.Now()
	s.lock.Unlock()

	s.publishEvent(domain.SyncEvent{
		EventType: domain.MempoolUpdated,
		Timestamp: time.Now(),
		Mempool:   update,
	})
	return nil
}

func (s *SyncService) publishFailure(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	s.publishEvent(domain.SyncEvent{
		EventType: domain.SyncFailed,
		Timestamp: time.Now(),
		Err:       err,
	})
}

// publishEvent never blocks the sync loop, events are dropped if the channel
// is full.
func (s *SyncService) publishEvent(event domain.SyncEvent) {
	select {
	case s.eventCh <- event:
	default:
		droppedEvents.Inc()
		s.log("event channel is full, dropped %s event", event.EventType)
	}
}
