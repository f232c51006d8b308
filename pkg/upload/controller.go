// Package upload drives workspace upload sessions: it enforces the
// single-active-session lock, streams multipart uploads with progress,
// and interprets the server's synchronization outcome.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/kickstorm/workspacectl/pkg/api"
	"github.com/kickstorm/workspacectl/pkg/notify"
	"github.com/kickstorm/workspacectl/pkg/poll"
	"github.com/kickstorm/workspacectl/pkg/session"
	"github.com/kickstorm/workspacectl/pkg/view"
)

// Kind selects the upload mode.
type Kind string

// Upload kinds.
const (
	KindZip  Kind = "zip"
	KindFile Kind = "file"
)

// Limits mirrors the server-side size ceilings in megabytes. Zero
// means the ceiling is unknown and cannot be named in error messages.
type Limits struct {
	ZipMB  int
	FileMB int
}

// Config configures a Controller.
type Config struct {
	Client *api.Client
	Store  *session.Store
	Notify notify.Sink
	View   view.Renderer

	// Poller observes asynchronous synchronization after an upload
	// that reports github_sync.async. Optional.
	Poller *poll.Poller

	Limits Limits

	// ProgressGrace keeps the completed progress bar visible briefly
	// before hiding it. Cosmetic only.
	ProgressGrace time.Duration

	// Refresh performs a best-effort authoritative status refresh
	// feeding the store. Required: the lock decision is never trusted
	// from the local cache alone.
	Refresh func(ctx context.Context)

	// OnUploaded runs after a successful upload, e.g. to reload the
	// file tree.
	OnUploaded func(ctx context.Context)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Controller performs uploads. Only one upload may be in flight per
// controller; a concurrent attempt is rejected synchronously before
// any network call.
type Controller struct {
	cfg      Config
	inFlight atomic.Bool
}

// New creates an upload controller.
func New(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.View == nil {
		cfg.View = view.Discard{}
	}
	return &Controller{cfg: cfg}
}

// Payload describes the file being uploaded. Body must be seekable so
// the content digest can be computed before streaming.
type Payload struct {
	Kind Kind

	// Name is the multipart filename.
	Name string

	// RelativePath is the workspace destination for single-file
	// uploads; ignored for archives.
	RelativePath string

	Body io.ReadSeeker
}

// Upload runs one upload attempt end to end. Every exit path releases
// the lock placeholder (unless the poller took ownership of it) and
// hides the progress bar after the configured grace delay.
func (c *Controller) Upload(ctx context.Context, payload Payload) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return c.reject(api.NewError(api.KindSessionLocked,
			"An upload is already in flight. Wait for it to finish."))
	}
	defer c.inFlight.Store(false)

	// Authoritative pre-flight check: a second tab or another client
	// may have opened a session since the last refresh.
	c.cfg.Refresh(ctx)
	if c.cfg.Store.Locked() {
		return c.reject(api.NewError(api.KindSessionLocked,
			"An upload session is already active. Complete or cancel it before uploading again."))
	}

	placeholderID := session.PlaceholderZipID
	endpoint := c.cfg.Client.Endpoints().UploadZip
	fields := map[string]string{}
	label := fmt.Sprintf("ZIP • %s", payload.Name)
	if payload.Kind == KindFile {
		placeholderID = session.PlaceholderFileID
		endpoint = c.cfg.Client.Endpoints().UploadFile
		fields["relative_path"] = payload.RelativePath
		label = fmt.Sprintf("File • %s", payload.RelativePath)
	}

	c.cfg.Store.SetPlaceholder(placeholderID)
	defer func() {
		// The poller keeps the lock while it observes an async sync.
		if c.cfg.Poller == nil || !c.cfg.Poller.Running() {
			c.cfg.Store.ClearPlaceholders()
		}
		// Completion and failure paths alike resynchronize with the
		// server before handing control back.
		c.cfg.Refresh(ctx)
		c.hideProgressAfterGrace()
	}()

	digest, err := contentDigest(payload.Body)
	if err != nil {
		c.cfg.Notify.Notify(notify.LevelError, "Could not read the file to upload")
		return api.WrapError(api.KindUploadRejected, "reading upload payload", err)
	}

	c.showProgress(label)
	progress := newProgressView(c.cfg.View, label)

	status, response, err := c.cfg.Client.Upload(ctx, api.UploadRequest{
		URL:      endpoint,
		Fields:   fields,
		FileName: payload.Name,
		Body:     payload.Body,
		Digest:   digest,
		Progress: progress.update,
	})
	if err != nil {
		c.cfg.Notify.Notify(notify.LevelError, err.Error())
		return err
	}

	if err := c.checkUploadResponse(payload.Kind, status, response); err != nil {
		c.cfg.Notify.Notify(notify.LevelError, err.Error())
		return err
	}

	sessionID, _ := response["session_id"].(string)
	c.announce(ctx, payload, response, sessionID)
	c.hydrateSession(ctx, payload, response, sessionID)

	if c.cfg.OnUploaded != nil {
		c.cfg.OnUploaded(ctx)
	}
	return nil
}

// reject emits the single notification for a locked attempt. No
// network request has been made at this point.
func (c *Controller) reject(err *api.Error) error {
	c.cfg.Notify.Notify(notify.LevelWarning, err.Message)
	return err
}

// checkUploadResponse interprets the transport status together with
// the domain success flag.
func (c *Controller) checkUploadResponse(kind Kind, status int, response map[string]any) error {
	if status == http.StatusRequestEntityTooLarge {
		if limit := c.limitFor(kind); limit > 0 {
			noun := "file"
			if kind == KindZip {
				noun = "ZIP file"
			}
			return api.NewError(api.KindPayloadTooLarge,
				fmt.Sprintf("The %s exceeds the allowed limit (%d MB).", noun, limit))
		}
		return api.NewError(api.KindPayloadTooLarge, "The file exceeds the allowed size limit.")
	}

	success, _ := response["success"].(bool)
	if status < http.StatusOK || status >= http.StatusMultipleChoices || !success {
		if message, _ := response["error"].(string); message != "" {
			return api.NewError(api.KindUploadRejected, message)
		}
		return api.NewError(api.KindUploadRejected, fmt.Sprintf("Upload failed (status %d)", status))
	}
	return nil
}

func (c *Controller) limitFor(kind Kind) int {
	if kind == KindZip {
		return c.cfg.Limits.ZipMB
	}
	return c.cfg.Limits.FileMB
}

// announce emits the single success notification. The message varies
// by synchronization outcome: synchronous, asynchronous (which also
// starts the poller), or failed-but-non-fatal.
func (c *Controller) announce(ctx context.Context, payload Payload, response map[string]any, sessionID string) {
	if payload.Kind == KindFile {
		c.cfg.Notify.Notify(notify.LevelInfo, fmt.Sprintf("File uploaded: %s", payload.RelativePath))
		return
	}

	fileCount := 0
	if v, ok := response["file_count"].(float64); ok {
		fileCount = int(v)
	}
	message := fmt.Sprintf("ZIP uploaded (%d files)", fileCount)

	sync, _ := response["github_sync"].(map[string]any)
	switch {
	case sync == nil:
		// No synchronization attempted; the plain summary stands.
	case boolValue(sync, "async"):
		message += " • synchronization running in background"
		if c.cfg.Poller != nil && sessionID != "" {
			c.cfg.Poller.Start(ctx, sessionID)
		}
	case boolValue(sync, "success"):
		method := "GitHub"
		if m, _ := sync["method"].(string); m == api.SyncMethodGit {
			method = "Git"
		}
		synced := 0
		if v, ok := sync["files_synced"].(float64); ok {
			synced = int(v)
		}
		message += fmt.Sprintf(" • synchronized to GitHub via %s (%d files)", method, synced)
		if commitURL, _ := sync["commit_url"].(string); commitURL != "" {
			message += " • " + commitURL
		}
	default:
		reason, _ := sync["error"].(string)
		if reason == "" {
			reason, _ = sync["message"].(string)
		}
		message += fmt.Sprintf(" • GitHub sync failed: %s", reason)
	}

	c.cfg.Notify.Notify(notify.LevelSuccess, message)
}

// hydrateSession merges the freshest per-session metadata into the
// store, falling back to the upload response when the scoped status
// query fails.
func (c *Controller) hydrateSession(ctx context.Context, payload Payload, response map[string]any, sessionID string) {
	if sessionID == "" {
		return
	}

	fallbackStatus := session.StatusExtracted
	if payload.Kind == KindFile {
		fallbackStatus = session.StatusInProgress
	}

	if result, err := c.cfg.Client.Status(ctx, sessionID); err == nil && result.Metadata != nil {
		c.cfg.Store.UpsertFront(*result.Metadata)
		return
	} else if err != nil {
		c.cfg.Logger.Warn("upload: scoped session refresh failed", "session_id", sessionID, "error", err)
	}

	fallback := map[string]any{
		"session_id": sessionID,
		"status":     string(fallbackStatus),
		"type":       string(payload.Kind),
		"file_count": response["file_count"],
		"total_size": response["total_size"],
	}
	if sess := session.Normalize(fallback); sess != nil {
		c.cfg.Store.UpsertFront(*sess)
	}
}

func (c *Controller) showProgress(label string) {
	c.cfg.View.Render(view.SlotProgress, label+" • 0%")
}

func (c *Controller) hideProgressAfterGrace() {
	grace := c.cfg.ProgressGrace
	if grace <= 0 {
		c.cfg.View.Clear(view.SlotProgress)
		return
	}
	renderer := c.cfg.View
	time.AfterFunc(grace, func() {
		renderer.Clear(view.SlotProgress)
	})
}

func boolValue(raw map[string]any, key string) bool {
	v, _ := raw[key].(bool)
	return v
}

// progressView renders progress monotonically even when the transport
// signal regresses.
type progressView struct {
	renderer view.Renderer
	label    string
	best     float64
}

func newProgressView(renderer view.Renderer, label string) *progressView {
	return &progressView{renderer: renderer, label: label}
}

func (p *progressView) update(fraction float64) {
	if fraction < p.best {
		return
	}
	p.best = fraction
	p.renderer.Render(view.SlotProgress, fmt.Sprintf("%s • %.0f%%", p.label, fraction*100))
}
