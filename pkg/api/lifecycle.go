package api

import (
	"context"
	"net/http"

	"github.com/kickstorm/workspacectl/pkg/session"
)

// Sync methods reported by the finalize endpoint.
const (
	SyncMethodGit   = "git"
	SyncMethodAsync = "celery"
)

// FinalizeResult is the parsed finalize response. A synchronous
// strategy reports a terminal status immediately; the asynchronous
// strategy reports StatusSyncing, which callers observe with a poller.
type FinalizeResult struct {
	SessionID   string
	Status      session.Status
	Method      string
	Message     string
	FilesSynced int
	CommitURL   string
}

// Finalize marks an upload session ready and starts synchronization.
func (c *Client) Finalize(ctx context.Context, sessionID string) (*FinalizeResult, error) {
	status, payload, err := c.doJSON(ctx, http.MethodPost, c.endpoints.Finalize, map[string]string{
		"session_id": sessionID,
	})
	if err != nil {
		return nil, err
	}
	if err := envelopeError(KindUploadRejected, status, payload, "finalize failed"); err != nil {
		return nil, err
	}

	result := &FinalizeResult{
		SessionID: stringValue(payload, "session_id"),
		Status:    session.Status(stringValue(payload, "status")),
		Method:    stringValue(payload, "method"),
		Message:   stringValue(payload, "message"),
		CommitURL: stringValue(payload, "commit_url"),
	}
	if v, ok := payload["files_synced"].(float64); ok {
		result.FilesSynced = int(v)
	}
	if result.SessionID == "" {
		result.SessionID = sessionID
	}
	return result, nil
}

// Cancel deletes an upload session via the templated per-session URL.
// It reports only what the server decided; callers refresh state
// afterward rather than guessing the outcome locally.
func (c *Client) Cancel(ctx context.Context, sessionID string) error {
	cancelURL, err := c.CancelURL(sessionID)
	if err != nil {
		return err
	}
	status, payload, err := c.doJSON(ctx, http.MethodDelete, cancelURL, nil)
	if err != nil {
		return err
	}
	return envelopeError(KindUploadRejected, status, payload, "could not cancel the session")
}

// SignToken requests a short-lived signed token authorizing downloads
// of the given workspace path.
func (c *Client) SignToken(ctx context.Context, relativePath string) (string, error) {
	status, payload, err := c.doJSON(ctx, http.MethodPost, c.endpoints.Sign, map[string]string{
		"path": relativePath,
	})
	if err != nil {
		return "", err
	}
	if err := envelopeError(KindTokenRequestFailed, status, payload, "could not generate a file token"); err != nil {
		return "", err
	}
	token := stringValue(payload, "token")
	if token == "" {
		return "", NewError(KindTokenRequestFailed, "server returned an empty token")
	}
	return token, nil
}
