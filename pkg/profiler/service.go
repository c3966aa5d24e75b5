package profiler

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	log "github.com/sirupsen/logrus"
)

const (
	minPort = 1024
	maxPort = 49151

	megabyte = 1 << 20
)

// ServiceOpts holds configuration options for the profiler service.
// Collectors are registered in a registry of the profiler, together with the
// go runtime and process ones.
type ServiceOpts struct {
	Port          int
	StatsInterval time.Duration
	Datadir       string
	Collectors    []prometheus.Collector
}

func (o ServiceOpts) validate() error {
	if len(o.Datadir) == 0 {
		return fmt.Errorf("missing profiler datadir")
	}
	if o.Port < minPort || o.Port > maxPort {
		return fmt.Errorf("port must be in range [%d, %d]", minPort, maxPort)
	}
	if o.StatsInterval <= 0 {
		return fmt.Errorf("stats interval must be positive")
	}
	return nil
}

// Service serves pprof under /debug/pprof/ and the registered metrics under
// /metrics. While running, it periodically logs runtime stats and, when
// stopped, it dumps a snapshot of the metrics into the datadir.
type Service struct {
	opts     ServiceOpts
	registry *prometheus.Registry
	server   *http.Server

	cancel context.CancelFunc
	wg     *sync.WaitGroup

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

func NewService(opts ServiceOpts) (*Service, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	all := append([]prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}, opts.Collectors...)
	for _, c := range all {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("profiler: %s", format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("profiler: %s", format)
		log.WithError(err).Warnf(format, a...)
	}

	return &Service{
		opts:     opts,
		registry: registry,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		wg:   &sync.WaitGroup{},
		log:  logFn,
		warn: warnFn,
	}, nil
}

// Start binds the port synchronously, so that a busy one is reported here,
// then serves in background.
func (s *Service) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	runtime.SetBlockProfileRate(1)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.warn(err, "server stopped unexpectedly")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.logStats(ctx)

	s.log("start at url http://localhost:%d/debug/pprof/", s.opts.Port)
	return nil
}

func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}
	s.server.Shutdown(context.Background())

	if err := s.dumpMetrics(); err != nil {
		s.warn(err, "failed to dump metrics")
	}
	s.log("stop")
}

func (s *Service) logStats(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			s.log(
				"heap %.1fMB, total allocated %.1fMB, live objects %d, "+
					"go routines %d, gc cycles %d",
				float64(m.HeapAlloc)/megabyte, float64(m.TotalAlloc)/megabyte,
				m.Mallocs-m.Frees, runtime.NumGoroutine(), m.NumGC,
			)
		}
	}
}

// dumpMetrics writes the current value of every registered metric, in the
// Prometheus text format, into a new file of the datadir.
func (s *Service) dumpMetrics() error {
	families, err := s.registry.Gather()
	if err != nil {
		return err
	}

	name := fmt.Sprintf("metrics-%s.prom", time.Now().UTC().Format("20060102T150405Z"))
	file, err := os.Create(filepath.Join(s.opts.Datadir, name))
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return w.Flush()
}
