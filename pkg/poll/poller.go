// Package poll observes an upload session until it reaches a terminal
// status. The loop is an explicit timer-driven state machine with an
// attempt counter and two terminal exits (resolved, timed out), so
// cancellation and max-attempt semantics are testable in isolation.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kickstorm/workspacectl/pkg/api"
	"github.com/kickstorm/workspacectl/pkg/notify"
	"github.com/kickstorm/workspacectl/pkg/session"
)

const (
	// DefaultInterval is the fixed delay between poll ticks.
	DefaultInterval = 2 * time.Second

	// DefaultMaxAttempts bounds the poll loop; with the default
	// interval this is two minutes of observation.
	DefaultMaxAttempts = 60

	// vanishedAttempts is how many ticks a session may be missing from
	// the authoritative list before the poller gives up on it.
	vanishedAttempts = 5
)

// Config configures a Poller.
type Config struct {
	// Interval between ticks. Defaults to DefaultInterval.
	Interval time.Duration

	// MaxAttempts before the poller reports a timeout. Defaults to
	// DefaultMaxAttempts.
	MaxAttempts int

	// Refresh performs a best-effort authoritative status refresh that
	// feeds the store. Refresh errors do not stop the loop.
	Refresh func(ctx context.Context)

	// Store is consulted after each refresh for the observed session.
	Store *session.Store

	// Notify receives the single terminal notification per run.
	Notify notify.Sink

	// OnSynced runs after a session completes successfully, e.g. to
	// refresh the file tree.
	OnSynced func(ctx context.Context)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Poller runs at most one polling loop at a time. Starting a new loop
// deterministically cancels the previous one. Stopping is idempotent
// and purely local; it never cancels server-side synchronization
// work.
type Poller struct {
	cfg Config

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
	outcome error
}

// New creates a Poller, applying interval and attempt defaults.
func New(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Poller{cfg: cfg}
}

// Running reports whether a polling loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start begins observing the session, replacing any loop already
// running.
func (p *Poller) Start(ctx context.Context, sessionID string) {
	p.mu.Lock()
	if p.stop != nil {
		close(p.stop)
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	p.stop = stop
	p.done = done
	p.running = true
	p.outcome = nil
	p.mu.Unlock()

	go func() {
		defer close(done)
		p.run(ctx, sessionID, stop)
	}()
}

// Wait blocks until the current loop resolves or the context ends,
// and returns the loop's outcome: nil on a terminal status, a
// polling-timeout error when attempts ran out. Without a running loop
// it returns immediately.
func (p *Poller) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.outcome
	}
}

func (p *Poller) setOutcome(err error) {
	p.mu.Lock()
	p.outcome = err
	p.mu.Unlock()
}

// Stop halts the current loop. It is safe to call at any time, any
// number of times.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.running = false
}

// finish marks the loop stopped unless another loop has already
// superseded it.
func (p *Poller) finish(stop chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop == stop {
		p.stop = nil
		p.running = false
	}
}

func (p *Poller) run(ctx context.Context, sessionID string, stop chan struct{}) {
	defer p.finish(stop)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	attempt := 0
	missing := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
		}

		attempt++
		if p.cfg.Refresh != nil {
			p.cfg.Refresh(ctx)
		}

		sess, found := p.cfg.Store.Get(sessionID)
		if !found {
			missing++
			if missing > vanishedAttempts {
				p.cfg.Logger.Warn("poll: session vanished from authoritative state",
					"session_id", sessionID, "attempts", attempt)
				p.notify(notify.LevelWarning,
					"Synchronization session is no longer reported by the server")
				p.cfg.Store.ClearPlaceholders()
				return
			}
			continue
		}
		missing = 0

		if sess.Status.Terminal() {
			p.cfg.Store.ClearPlaceholders()
			if sess.Status == session.StatusCompleted {
				p.notify(notify.LevelSuccess, "GitHub synchronization completed")
				if p.cfg.OnSynced != nil {
					p.cfg.OnSynced(ctx)
				}
			} else {
				message := sess.Error
				if message == "" {
					message = "unknown error"
				}
				p.notify(notify.LevelError, fmt.Sprintf("Synchronization failed: %s", message))
			}
			return
		}

		if attempt >= p.cfg.MaxAttempts {
			// A reporting timeout, not a cancellation: server-side
			// work may still finish later.
			p.cfg.Logger.Warn("poll: timed out waiting for terminal status",
				"session_id", sessionID, "attempts", attempt)
			p.notify(notify.LevelWarning,
				"Timed out waiting for synchronization (check again later)")
			p.cfg.Store.ClearPlaceholders()
			p.setOutcome(api.NewError(api.KindPollingTimeout,
				fmt.Sprintf("no terminal status after %d attempts", attempt)))
			return
		}
	}
}

func (p *Poller) notify(level notify.Level, message string) {
	if p.cfg.Notify != nil {
		p.cfg.Notify.Notify(level, message)
	}
}
