package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"k8s.io/utils/clock"

	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/topology"
)

// Polling defaults.
const (
	DefaultInterval  = 5 * time.Second
	DefaultMaxErrors = 3
)

// FetchFunc fetches one full snapshot.
type FetchFunc func(ctx context.Context) (topology.Snapshot, error)

// PollConfig configures a polling stream.
type PollConfig struct {
	Interval  time.Duration    // defaults to DefaultInterval
	MaxErrors int              // consecutive failures before giving up, defaults to DefaultMaxErrors
	Clock     clock.WithTicker // defaults to the real clock
	Logger    *log.Logger
}

// Poll returns a stream that fetches immediately and then every interval.
//
// A failed first fetch emits INITIAL_CONNECTION_FAILED and ends the stream.
// Later failures emit FETCH_ERROR; after MaxErrors consecutive failures a
// MAX_ERRORS_REACHED event follows and the stream ends. A success resets the
// failure count.
func Poll(ctx context.Context, fetch FetchFunc, cfg PollConfig) Stream {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = DefaultMaxErrors
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &pollStream{
		events: make(chan Event),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx, fetch, cfg)
	return s
}

type pollStream struct {
	events    chan Event
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func (s *pollStream) Events() <-chan Event { return s.events }

func (s *pollStream) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}

func (s *pollStream) run(ctx context.Context, fetch FetchFunc, cfg PollConfig) {
	defer close(s.done)
	defer close(s.events)

	snap, err := fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		cfg.Logger.Error("initial fetch failed", "err", err)
		s.send(ctx, ErrorEvent(errors.ErrCodeInitialConnectionFailed, errors.UserMessage(err)))
		return
	}
	if !s.send(ctx, TopologyEvent(snap)) {
		return
	}

	ticker := cfg.Clock.NewTicker(cfg.Interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		snap, err := fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			failures = 0
			if !s.send(ctx, TopologyEvent(snap)) {
				return
			}
			continue
		}

		failures++
		cfg.Logger.Warn("fetch failed", "attempt", failures, "max", cfg.MaxErrors, "err", err)
		if !s.send(ctx, ErrorEvent(errors.ErrCodeFetch, errors.UserMessage(err))) {
			return
		}
		if failures >= cfg.MaxErrors {
			cfg.Logger.Error("max consecutive errors reached, closing stream")
			s.send(ctx, ErrorEvent(errors.ErrCodeMaxErrorsReached,
				fmt.Sprintf("stream closed after %d consecutive errors: %s", cfg.MaxErrors, errors.UserMessage(err))))
			return
		}
	}
}

// send delivers ev unless the stream is being closed.
func (s *pollStream) send(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
