package profiler_test

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/chaincase/pkg/profiler"
)

func TestNewService(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_duplicated_total", Help: "test",
	})

	tests := []struct {
		name string
		opts profiler.ServiceOpts
	}{
		{
			name: "missing datadir",
			opts: profiler.ServiceOpts{Port: 18011, StatsInterval: time.Minute},
		},
		{
			name: "port too low",
			opts: profiler.ServiceOpts{Port: 80, StatsInterval: time.Minute, Datadir: "stats"},
		},
		{
			name: "port too high",
			opts: profiler.ServiceOpts{Port: 50000, StatsInterval: time.Minute, Datadir: "stats"},
		},
		{
			name: "missing stats interval",
			opts: profiler.ServiceOpts{Port: 18011, Datadir: "stats"},
		},
		{
			name: "duplicated collector",
			opts: profiler.ServiceOpts{
				Port: 18011, StatsInterval: time.Minute, Datadir: "stats",
				Collectors: []prometheus.Collector{counter, counter},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc, err := profiler.NewService(tt.opts)
			require.Error(t, err)
			require.Nil(t, svc)
		})
	}
}

func TestProfilerService(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chaincase",
		Subsystem: "test",
		Name:      "events_total",
		Help:      "Number of test events.",
	})
	counter.Add(3)

	datadir := t.TempDir()
	port := freePort(t)
	svc, err := profiler.NewService(profiler.ServiceOpts{
		Port:          port,
		StatsInterval: 10 * time.Millisecond,
		Datadir:       datadir,
		Collectors:    []prometheus.Collector{counter},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Start())

	url := fmt.Sprintf("http://localhost:%d/metrics", port)
	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		body, err = io.ReadAll(resp.Body)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	require.Contains(t, string(body), "go_goroutines")
	require.Contains(t, string(body), "chaincase_test_events_total 3")

	svc.Stop()

	files, err := os.ReadDir(datadir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	dump, err := os.ReadFile(filepath.Join(datadir, files[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(dump), "chaincase_test_events_total 3")
}

func TestProfilerServicePortBusy(t *testing.T) {
	port := freePort(t)
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	require.NoError(t, err)
	defer l.Close()

	svc, err := profiler.NewService(profiler.ServiceOpts{
		Port:          port,
		StatsInterval: time.Minute,
		Datadir:       t.TempDir(),
	})
	require.NoError(t, err)
	require.Error(t, svc.Start())
}

// freePort returns an unused port in the range accepted by the profiler.
func freePort(t *testing.T) int {
	for port := 21000; port < 49151; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			continue
		}
		l.Close()
		return port
	}
	t.Fatal("no free port available")
	return 0
}
