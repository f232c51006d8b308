package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kickstorm/workspacectl/pkg/session"
)

// RepositoryInfo describes the repository linked to the workspace, as
// reported by the status endpoint. It is informational and may be
// absent.
type RepositoryInfo struct {
	Provider   string `json:"provider"`
	RepoName   string `json:"repo_name"`
	Status     string `json:"status"`
	LastSyncAt string `json:"last_sync_at"`
}

// StatusResult is the parsed status response. Sessions and History are
// normalized; Metadata is present only for single-session queries.
type StatusResult struct {
	Sessions   []session.Session
	History    []session.HistoryEntry
	Metadata   *session.Session
	Repository *RepositoryInfo
}

// Status fetches the workspace synchronization status, optionally
// scoped to one session.
func (c *Client) Status(ctx context.Context, sessionID string) (*StatusResult, error) {
	statusURL := c.endpoints.Status
	if sessionID != "" {
		u, err := url.Parse(statusURL)
		if err != nil {
			return nil, WrapError(KindNetworkFailure, "invalid status endpoint", err)
		}
		q := u.Query()
		q.Set("session_id", sessionID)
		u.RawQuery = q.Encode()
		statusURL = u.String()
	}

	status, payload, err := c.doJSON(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, err
	}
	if err := envelopeError(KindUploadRejected, status, payload, "workspace status update failed"); err != nil {
		return nil, err
	}

	result := &StatusResult{}
	if raw, ok := payload["sessions"].([]any); ok {
		for _, entry := range raw {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if sess := session.Normalize(m); sess != nil {
				result.Sessions = append(result.Sessions, *sess)
			}
		}
	}
	if raw, ok := payload["history"].([]any); ok {
		for _, entry := range raw {
			if m, ok := entry.(map[string]any); ok {
				result.History = append(result.History, session.NormalizeHistoryEntry(m))
			}
		}
	}
	if raw, ok := payload["metadata"].(map[string]any); ok {
		result.Metadata = session.Normalize(raw)
	}
	if raw, ok := payload["repository"].(map[string]any); ok {
		result.Repository = &RepositoryInfo{
			Provider:   stringValue(raw, "provider"),
			RepoName:   stringValue(raw, "repo_name"),
			Status:     stringValue(raw, "status"),
			LastSyncAt: stringValue(raw, "last_sync_at"),
		}
	}
	return result, nil
}

func stringValue(raw map[string]any, key string) string {
	v, _ := raw[key].(string)
	return v
}
