package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCSRF      = "csrf-token-value"
	testSessionID = "a1b2c3d4"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		Endpoints: Endpoints{
			UploadZip:      server.URL + "/upload-zip",
			UploadFile:     server.URL + "/files",
			Finalize:       server.URL + "/finalize-upload",
			CancelTemplate: server.URL + "/sessions/{session_id}",
			Status:         server.URL + "/sync-status",
			Tree:           server.URL + "/files/tree",
			Sign:           server.URL + "/files/sign",
			DownloadBase:   server.URL + "/files",
		},
		CSRFToken: testCSRF,
	})
	require.NoError(t, err)
	return client, server
}

func TestNew_RequiresStatusEndpoint(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestCancelURL_ExpandsTemplate(t *testing.T) {
	client, server := testClient(t, http.NotFoundHandler())

	got, err := client.CancelURL("abc 123")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/sessions/abc%20123", got)
}

func TestDownloadURL_EncodesPerSegment(t *testing.T) {
	client, server := testClient(t, http.NotFoundHandler())

	got := client.DownloadURL("docs/è report.pdf", "tok+en")
	assert.True(t, strings.HasPrefix(got, server.URL+"/files/docs/"), got)
	assert.Contains(t, got, "%C3%A8%20report.pdf")
	assert.Contains(t, got, "?token=tok%2Ben")
	assert.NotContains(t, got, "docs%2F", "path separators must survive encoding")
}

func TestStatus_ParsesSessionsHistoryRepository(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sync-status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"sessions": [
				{"session_id": "s1", "status": "syncing", "file_count": 4},
				{"no_id": true}
			],
			"history": [{"status": "completed", "file_count": 9, "completed_at": "2026-08-30T12:00:00Z"}],
			"repository": {"provider": "github", "repo_name": "org/repo", "status": "active"}
		}`))
	}))

	result, err := client.Status(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, result.Sessions, 1, "records without a session_id are dropped")
	assert.Equal(t, "s1", result.Sessions[0].ID)
	assert.Equal(t, 4, result.Sessions[0].FileCount)

	require.Len(t, result.History, 1)
	assert.Equal(t, 9, result.History[0].FileCount)

	require.NotNil(t, result.Repository)
	assert.Equal(t, "org/repo", result.Repository.RepoName)
}

func TestStatus_ScopedQueryCarriesSessionID(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testSessionID, r.URL.Query().Get("session_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "metadata": {"session_id": "a1b2c3d4", "status": "extracted"}}`))
	}))

	result, err := client.Status(context.Background(), testSessionID)
	require.NoError(t, err)
	require.NotNil(t, result.Metadata)
	assert.Equal(t, testSessionID, result.Metadata.ID)
}

// A 2xx transport status with a false success flag is still a domain
// failure: both signals are checked independently.
func TestStatus_DomainFailureOn2xx(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false, "error": "workspace unavailable"}`))
	}))

	_, err := client.Status(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workspace unavailable")
}

// Malformed JSON never propagates a parse error; it degrades to an
// empty payload and therefore a generic status-coded failure.
func TestStatus_MalformedResponseAbsorbed(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>definitely not json`))
	}))

	_, err := client.Status(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 200")
}

func TestFinalize_SynchronousOutcome(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, testCSRF, r.Header.Get("X-CSRF-Token"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true, "session_id": "a1b2c3d4", "status": "completed",
			"method": "git", "files_synced": 12, "commit_url": "https://example.com/c/1"
		}`))
	}))

	result, err := client.Finalize(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Equal(t, SyncMethodGit, result.Method)
	assert.Equal(t, 12, result.FilesSynced)
	assert.Equal(t, "https://example.com/c/1", result.CommitURL)
}

func TestFinalize_ServerError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success": false, "error": "session not found"}`))
	}))

	_, err := client.Finalize(context.Background(), testSessionID)
	require.Error(t, err)
	assert.Equal(t, "session not found", err.Error())
}

func TestCancel_UsesTemplatedDelete(t *testing.T) {
	var gotPath, gotMethod string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true}`))
	}))

	require.NoError(t, client.Cancel(context.Background(), testSessionID))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/sessions/"+testSessionID, gotPath)
}

func TestSignToken_FailureKind(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success": false, "error": "file not found"}`))
	}))

	_, err := client.SignToken(context.Background(), "missing.txt")
	require.Error(t, err)
	assert.Equal(t, KindTokenRequestFailed, KindOf(err))
}

func TestFileTree_ParsesFiles(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "files": [
			{"path": "src/main.go", "size": 2048, "mime": "text/plain"},
			{"size": 1}
		]}`))
	}))

	files, err := client.FileTree(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1, "entries without a path are dropped")
	assert.Equal(t, "src/main.go", files[0].Path)
	assert.Equal(t, int64(2048), files[0].Size)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindSessionLocked, KindOf(NewError(KindSessionLocked, "locked")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	wrapped := WrapError(KindTimeout, "timed out", context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
}
