// Package workspace wires the upload, polling, file tree, preview and
// history components into a single orchestrator behind the client
// configuration. All remote state flows through the session store; the
// panels re-render on every store mutation.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/kickstorm/workspacectl/pkg/api"
	"github.com/kickstorm/workspacectl/pkg/config"
	"github.com/kickstorm/workspacectl/pkg/history"
	"github.com/kickstorm/workspacectl/pkg/notify"
	"github.com/kickstorm/workspacectl/pkg/poll"
	"github.com/kickstorm/workspacectl/pkg/preview"
	"github.com/kickstorm/workspacectl/pkg/session"
	"github.com/kickstorm/workspacectl/pkg/tree"
	"github.com/kickstorm/workspacectl/pkg/upload"
	"github.com/kickstorm/workspacectl/pkg/view"
)

// Options configures an Orchestrator beyond the file configuration.
type Options struct {
	Config *config.Config

	// Notify receives user-facing notifications. Defaults to a
	// console sink on stderr.
	Notify notify.Sink

	// Renderer receives panel updates. Defaults to a console renderer
	// on stdout.
	Renderer view.Renderer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Orchestrator owns the client-side workspace state and drives every
// operation against the remote workspace API.
type Orchestrator struct {
	cfg      *config.Config
	client   *api.Client
	store    *session.Store
	sink     notify.Sink
	renderer view.Renderer
	poller   *poll.Poller
	uploads  *upload.Controller
	trees    *tree.Service
	previews *preview.Service
	cache    *history.Store
	logger   *slog.Logger

	mu         sync.Mutex
	history    []session.HistoryEntry
	repository *api.RepositoryInfo
}

// New builds the fully wired orchestrator from configuration.
func New(opts Options) (*Orchestrator, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("workspace: configuration is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sink := opts.Notify
	if sink == nil {
		sink = notify.NewConsoleSink(os.Stderr)
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = view.NewConsole(os.Stdout)
	}

	client, err := api.New(api.Config{
		Endpoints:  cfg.Workspace.Endpoints,
		CSRFToken:  cfg.Workspace.CSRFToken,
		HTTPClient: &http.Client{Timeout: cfg.Workspace.Timeout},
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:      cfg,
		client:   client,
		store:    session.NewStore(),
		sink:     sink,
		renderer: renderer,
		logger:   logger,
	}

	o.poller = poll.New(poll.Config{
		Interval:    cfg.Poll.Interval,
		MaxAttempts: cfg.Poll.MaxAttempts,
		Refresh:     o.Refresh,
		Store:       o.store,
		Notify:      sink,
		OnSynced:    o.afterSync,
		Logger:      logger,
	})
	o.uploads = upload.New(upload.Config{
		Client: client,
		Store:  o.store,
		Notify: sink,
		View:   renderer,
		Poller: o.poller,
		Limits: upload.Limits{
			ZipMB:  cfg.Upload.ZipLimitMB,
			FileMB: cfg.Upload.FileLimitMB,
		},
		ProgressGrace: cfg.Upload.ProgressGrace,
		Refresh:       o.Refresh,
		OnUploaded:    o.afterSync,
		Logger:        logger,
	})
	o.trees = tree.NewService(client, renderer, logger)
	o.previews = preview.NewService(preview.Config{
		Client:      client,
		Renderer:    renderer,
		MaxBytes:    cfg.Preview.MaxBytes,
		ModelViewer: cfg.Preview.ModelViewer,
		Logger:      logger,
	})

	if cfg.History.Path != "" {
		cache, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		o.cache = cache
	}

	o.store.Subscribe(o.renderPanels)
	return o, nil
}

// Close releases the local history cache.
func (o *Orchestrator) Close() error {
	if o.cache == nil {
		return nil
	}
	return o.cache.Close()
}

// Store exposes the session store, primarily for subscriptions.
func (o *Orchestrator) Store() *session.Store {
	return o.store
}

// Repository returns the repository info from the latest refresh, or
// nil when the server has not reported one.
func (o *Orchestrator) Repository() *api.RepositoryInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.repository
}

// Refresh pulls the authoritative workspace status into the store.
// It is best-effort: failures are logged and leave the previous state
// standing, so callers may invoke it freely from any path.
func (o *Orchestrator) Refresh(ctx context.Context) {
	seq := o.store.NextSeq()
	result, err := o.client.Status(ctx, "")
	if err != nil {
		o.logger.Warn("workspace: status refresh failed", "error", err)
		return
	}
	if !o.store.Replace(seq, result.Sessions) {
		// A newer refresh already landed; this result is stale for
		// history and repository state too.
		return
	}

	o.mu.Lock()
	o.history = result.History
	if result.Repository != nil {
		o.repository = result.Repository
	}
	o.mu.Unlock()

	if o.cache != nil {
		if err := o.cache.RecordSessions(result.Sessions); err != nil {
			o.logger.Warn("workspace: recording history failed", "error", err)
		}
	}
}

// afterSync reloads the file tree after any successful upload or
// completed synchronization.
func (o *Orchestrator) afterSync(ctx context.Context) {
	_, _ = o.trees.Load(ctx)
}

// Watch starts the poller on the session and blocks until it resolves
// or the context ends.
func (o *Orchestrator) Watch(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		active, err := o.singleActive(ctx)
		if err != nil {
			return err
		}
		sessionID = active.ID
	}
	o.poller.Start(ctx, sessionID)
	return o.poller.Wait(ctx)
}

// singleActive refreshes and returns the only active session, erroring
// when there is none or the id is ambiguous.
func (o *Orchestrator) singleActive(ctx context.Context) (session.Session, error) {
	o.Refresh(ctx)
	active := o.store.Active()
	switch len(active) {
	case 0:
		return session.Session{}, api.NewError(api.KindUnknown, "no active upload session")
	case 1:
		return active[0], nil
	default:
		return session.Session{}, api.NewError(api.KindUnknown,
			fmt.Sprintf("%d active sessions, pass an explicit session id", len(active)))
	}
}
