package workspace

import (
	"context"
	"fmt"

	"github.com/kickstorm/workspacectl/pkg/api"
	"github.com/kickstorm/workspacectl/pkg/notify"
	"github.com/kickstorm/workspacectl/pkg/session"
)

// Finalize marks the session ready and starts synchronization. With an
// empty id the single active session is finalized. The notification
// depends on the server's strategy: a synchronous sync reports its
// outcome immediately, an asynchronous one hands off to the poller.
func (o *Orchestrator) Finalize(ctx context.Context, sessionID string) error {
	sess, err := o.resolve(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.Finalizable() {
		return api.NewError(api.KindUnknown,
			fmt.Sprintf("session %s cannot be finalized from status %q", sess.ID, sess.Status))
	}

	result, err := o.client.Finalize(ctx, sess.ID)
	if err != nil {
		o.sink.Notify(notify.LevelError, err.Error())
		return err
	}

	switch {
	case result.Status == session.StatusSyncing:
		o.sink.Notify(notify.LevelInfo, "Synchronization started in the background")
		o.poller.Start(ctx, result.SessionID)
	case result.Status == session.StatusCompleted:
		message := fmt.Sprintf("Synchronized %d files to GitHub", result.FilesSynced)
		if result.CommitURL != "" {
			message += " • " + result.CommitURL
		}
		o.sink.Notify(notify.LevelSuccess, message)
	case result.Status == session.StatusError:
		message := result.Message
		if message == "" {
			message = "synchronization failed"
		}
		o.sink.Notify(notify.LevelError, message)
	default:
		o.sink.Notify(notify.LevelInfo,
			fmt.Sprintf("Session %s is now %s", result.SessionID, result.Status))
	}

	o.Refresh(ctx)
	return nil
}

// Cancel aborts the session after the confirm callback approves it.
// The store is refreshed from the server afterward regardless of
// outcome, so the lock always reflects the authoritative state.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID string, confirm func(session.Session) bool) error {
	sess, err := o.resolve(ctx, sessionID)
	if err != nil {
		return err
	}
	if !sess.Cancelable() {
		return api.NewError(api.KindUnknown,
			fmt.Sprintf("session %s cannot be canceled while %s", sess.ID, sess.Status))
	}
	if confirm != nil && !confirm(sess) {
		return nil
	}

	err = o.client.Cancel(ctx, sess.ID)
	o.Refresh(ctx)
	if err != nil {
		o.sink.Notify(notify.LevelError, err.Error())
		return err
	}
	o.sink.Notify(notify.LevelInfo, fmt.Sprintf("Upload session %s canceled", sess.ID))
	return nil
}

// resolve maps an optional session id to a concrete session from the
// authoritative state.
func (o *Orchestrator) resolve(ctx context.Context, sessionID string) (session.Session, error) {
	if sessionID == "" {
		return o.singleActive(ctx)
	}
	o.Refresh(ctx)
	sess, ok := o.store.Get(sessionID)
	if !ok {
		return session.Session{}, api.NewError(api.KindUnknown,
			fmt.Sprintf("session %s not found", sessionID))
	}
	return sess, nil
}

// History returns synchronization history, preferring the server's
// explicit records, then terminal sessions, then the local cache.
func (o *Orchestrator) History(ctx context.Context, limit int) ([]session.HistoryEntry, error) {
	o.Refresh(ctx)

	o.mu.Lock()
	remote := append([]session.HistoryEntry(nil), o.history...)
	o.mu.Unlock()

	entries := session.HistorySource(remote, o.store.Sessions())
	if len(entries) == 0 && o.cache != nil {
		cached, err := o.cache.Entries(limit)
		if err != nil {
			return nil, err
		}
		entries = cached
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
