package periodic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// State is the lifecycle state of a Runner.
type State int32

const (
	NotStarted State = iota
	Running
	Stopping
	Stopped
)

// StopPollInterval is how often Stop checks whether the loop has exited.
const StopPollInterval = 50 * time.Millisecond

var ErrInvalidState = fmt.Errorf("runner is not in a valid state for the operation")

func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// WorkFunc is the unit of work executed at every tick.
type WorkFunc func(ctx context.Context) error

// Runner executes a WorkFunc periodically in a background goroutine.
//
// The lifecycle is NotStarted -> Running -> Stopping -> Stopped, and Resume
// brings a Stopped runner back to Running. Every transition is done with a
// compare-and-swap so that concurrent callers never observe a torn state.
type Runner struct {
	name            string
	work            WorkFunc
	defaultInterval time.Duration

	state  int32
	lock   *sync.Mutex
	cancel context.CancelFunc

	log  func(format string, a ...interface{})
	warn func(err error, format string, a ...interface{})
}

// New returns a runner in NotStarted state.
func New(name string, work WorkFunc, defaultInterval time.Duration) *Runner {
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("%s: %s", name, format)
		log.Debugf(format, a...)
	}
	warnFn := func(err error, format string, a ...interface{}) {
		format = fmt.Sprintf("%s: %s", name, format)
		log.WithError(err).Warnf(format, a...)
	}
	return &Runner{
		name:            name,
		work:            work,
		defaultInterval: defaultInterval,
		state:           int32(NotStarted),
		lock:            &sync.Mutex{},
		log:             logFn,
		warn:            warnFn,
	}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	return State(atomic.LoadInt32(&r.state))
}

// Start moves the runner from NotStarted to Running and spawns the loop.
// A zero interval means the default one. The loop runs the work immediately
// and then once every interval until stopped or until ctx is done.
func (r *Runner) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = r.defaultInterval
	}
	if interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	loopCtx, cancel := context.WithCancel(ctx)

	r.lock.Lock()
	if !atomic.CompareAndSwapInt32(&r.state, int32(NotStarted), int32(Running)) {
		r.lock.Unlock()
		cancel()
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidState, r.State())
	}
	r.cancel = cancel
	r.lock.Unlock()

	go r.loop(loopCtx, interval)

	r.log("started with interval %s", interval)
	return nil
}

// Stop asks a running loop to exit and blocks until it reaches Stopped.
// It's a no-op if the runner was never started or is already stopped. If
// another caller is already stopping the runner, Stop waits along.
func (r *Runner) Stop() {
	r.lock.Lock()
	if atomic.CompareAndSwapInt32(&r.state, int32(Running), int32(Stopping)) {
		if r.cancel != nil {
			r.cancel()
		}
	}
	r.lock.Unlock()

	for {
		state := r.State()
		if state == NotStarted || state == Stopped {
			break
		}
		time.Sleep(StopPollInterval)
	}
	r.log("stopped")
}

// Resume moves a Stopped runner back to NotStarted and starts it again.
func (r *Runner) Resume(ctx context.Context, interval time.Duration) error {
	if !atomic.CompareAndSwapInt32(&r.state, int32(Stopped), int32(NotStarted)) {
		return fmt.Errorf("%w: cannot resume from %s", ErrInvalidState, r.State())
	}
	return r.Start(ctx, interval)
}

func (r *Runner) loop(ctx context.Context, interval time.Duration) {
	defer r.exit()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.runOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := r.work(ctx); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return
		}
		r.warn(err, "error while running periodic work")
	}
}

func (r *Runner) exit() {
	r.lock.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.lock.Unlock()

	// The loop can also exit because the parent context is done, in which
	// case nobody moved the runner to Stopping.
	if !atomic.CompareAndSwapInt32(&r.state, int32(Stopping), int32(Stopped)) {
		atomic.CompareAndSwapInt32(&r.state, int32(Running), int32(Stopped))
	}
}
