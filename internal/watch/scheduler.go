// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Scheduler states.
const (
	// StateIdle waits for a relevant event.
	StateIdle State = iota
	// StatePendingRebuild has the debounce timer armed.
	StatePendingRebuild
	// StateRunning is executing a rebuild. The watch handle is closed.
	StateRunning
)

// ErrAlreadyStarted is returned by a second call to Scheduler.Run.
var ErrAlreadyStarted = errors.New("watch: Run called more than once")

type (
	// State is a Scheduler state.
	State int32

	// RebuildFunc runs one full rebuild. changed lists the BaseDir-relative
	// paths that triggered it, sorted.
	RebuildFunc func(ctx context.Context, changed []string) error

	// Scheduler debounces relevant file changes into rebuilds, one at a time.
	Scheduler struct {
		cfg      Config
		rebuild  RebuildFunc
		debounce time.Duration
		logger   *log.Logger

		// OnStateChange, if set, is called on the Scheduler's goroutine for
		// every transition.
		OnStateChange func(from, to State)

		// newWatcher opens a watch handle; replaced in tests.
		newWatcher func(Config) (*Watcher, error)

		state    atomic.Int32
		running  atomic.Bool
		started  atomic.Bool
		rebuilds atomic.Int64
	}
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingRebuild:
		return "pending"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// NewScheduler creates a Scheduler that calls rebuild after each debounced
// burst of relevant changes. Patterns are validated eagerly.
func NewScheduler(cfg Config, rebuild RebuildFunc) (*Scheduler, error) {
	if rebuild == nil {
		return nil, errors.New("watch: nil rebuild func")
	}
	if err := validatePatterns(cfg.Patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore, "ignore"); err != nil {
		return nil, err
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Scheduler{
		cfg:        cfg,
		rebuild:    rebuild,
		debounce:   debounce,
		logger:     logger,
		newWatcher: New,
	}, nil
}

// State returns the current state. Safe to call from any goroutine.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Rebuilds returns the number of rebuilds started so far.
func (s *Scheduler) Rebuilds() int64 {
	return s.rebuilds.Load()
}

// Run blocks until ctx is cancelled (returning nil), a rebuild fails
// (returning its error) or the watch handle fails fatally. It must be called
// once.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	w, err := s.newWatcher(s.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if w == nil {
			return
		}
		if closeErr := w.Close(); closeErr != nil {
			s.logger.Warn("watch: close handle", "err", closeErr)
		}
	}()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.Events():
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			rel, relevant := w.Relevant(evt)
			if !relevant {
				continue
			}
			s.logger.Debug("watch: change", "path", rel, "op", evt.Op.String())

			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(s.debounce)
			} else {
				timer.Reset(s.debounce)
			}
			timerC = timer.C
			s.setState(StatePendingRebuild)

		case err, ok := <-w.Errors():
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			// isFatalFsnotifyError is platform-specific (see watcher_fatal_*.go).
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			s.logger.Warn("watch: fsnotify error", "err", err)

		case <-timerC:
			timerC = nil
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)

			if !s.running.CompareAndSwap(false, true) {
				// Unreachable while rebuilds run on this goroutine.
				continue
			}
			s.setState(StateRunning)

			if closeErr := w.Close(); closeErr != nil {
				s.logger.Warn("watch: close handle", "err", closeErr)
			}
			w = nil

			s.rebuilds.Add(1)
			rebuildErr := s.rebuild(ctx, changed)
			s.running.Store(false)
			if rebuildErr != nil {
				s.setState(StateIdle)
				if ctx.Err() != nil {
					return nil
				}
				return rebuildErr
			}

			w, err = s.newWatcher(s.cfg)
			if err != nil {
				s.setState(StateIdle)
				return err
			}
			s.setState(StateIdle)
		}
	}
}

func (s *Scheduler) setState(to State) {
	from := State(s.state.Swap(int32(to)))
	if from == to {
		return
	}
	if s.OnStateChange != nil {
		s.OnStateChange(from, to)
	}
}
