package preview

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kickstorm/workspacectl/pkg/api"
	"github.com/kickstorm/workspacectl/pkg/view"
)

const previewTestLimit = 2 * 1024 * 1024

type previewServer struct {
	server    *httptest.Server
	signHits  atomic.Int64
	fetchHits atomic.Int64
	content   string
	token     string
}

func newPreviewServer(t *testing.T) *previewServer {
	t.Helper()
	ps := &previewServer{content: "hello workspace", token: "tok-1"}

	mux := http.NewServeMux()
	mux.HandleFunc("/files/sign", func(w http.ResponseWriter, r *http.Request) {
		ps.signHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "token": ps.token})
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		ps.fetchHits.Add(1)
		if r.URL.Query().Get("token") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(ps.content))
	})
	ps.server = httptest.NewServer(mux)
	t.Cleanup(ps.server.Close)
	return ps
}

func (ps *previewServer) service(t *testing.T, renderer view.Renderer, modelViewer bool) *Service {
	t.Helper()
	client, err := api.New(api.Config{Endpoints: api.Endpoints{
		Status:       ps.server.URL + "/sync-status",
		Sign:         ps.server.URL + "/files/sign",
		DownloadBase: ps.server.URL + "/files",
	}})
	require.NoError(t, err)
	return NewService(Config{
		Client:      client,
		Renderer:    renderer,
		MaxBytes:    previewTestLimit,
		ModelViewer: modelViewer,
	})
}

func TestPreviewOversizedSkipsFetch(t *testing.T) {
	ps := newPreviewServer(t)
	service := ps.service(t, nil, false)

	result, err := service.Preview(context.Background(), api.FileInfo{
		Path: "big/dataset.txt",
		Size: previewTestLimit + 1,
	})
	require.NoError(t, err)

	assert.True(t, result.TooLarge)
	assert.Equal(t, KindDownload, result.Kind)
	assert.Contains(t, result.HTML, "Download")
	assert.Zero(t, ps.fetchHits.Load(), "oversized files are never fetched")
}

func TestPreviewTextFetchesAndEscapes(t *testing.T) {
	ps := newPreviewServer(t)
	ps.content = "select * from users; <script>alert(1)</script>"
	service := ps.service(t, nil, false)

	result, err := service.Preview(context.Background(), api.FileInfo{Path: "notes.txt", Size: 64})
	require.NoError(t, err)

	assert.Equal(t, KindText, result.Kind)
	assert.NotContains(t, result.HTML, "<script>")
	assert.Contains(t, result.HTML, "&lt;script&gt;")
	assert.Equal(t, int64(1), ps.fetchHits.Load())
}

func TestPreviewMarkdown(t *testing.T) {
	ps := newPreviewServer(t)
	ps.content = "# Title\n\nSome *emphasis*."
	service := ps.service(t, nil, false)

	result, err := service.Preview(context.Background(), api.FileInfo{Path: "README.md", Size: 64})
	require.NoError(t, err)

	assert.Equal(t, KindMarkdown, result.Kind)
	assert.Contains(t, result.HTML, "<h1")
	assert.Contains(t, result.HTML, "<em>emphasis</em>")
}

func TestPreviewCodeHighlights(t *testing.T) {
	ps := newPreviewServer(t)
	ps.content = "package main\n\nfunc main() {}\n"
	service := ps.service(t, nil, false)

	result, err := service.Preview(context.Background(), api.FileInfo{Path: "cmd/main.go", Size: 64})
	require.NoError(t, err)

	assert.Equal(t, KindCode, result.Kind)
	assert.Contains(t, result.HTML, "<pre")
	assert.Contains(t, result.HTML, "main")
}

func TestPreviewImageUsesSignedURL(t *testing.T) {
	ps := newPreviewServer(t)
	service := ps.service(t, nil, false)

	result, err := service.Preview(context.Background(), api.FileInfo{Path: "assets/logo.png", Size: 100})
	require.NoError(t, err)

	assert.Equal(t, KindImage, result.Kind)
	assert.Contains(t, result.HTML, "<img")
	assert.Contains(t, result.HTML, "token=tok-1")
	assert.Zero(t, ps.fetchHits.Load(), "images embed the URL without fetching")
}

func TestPreviewModelRequiresCapability(t *testing.T) {
	ps := newPreviewServer(t)

	disabled, err := ps.service(t, nil, false).Preview(context.Background(),
		api.FileInfo{Path: "scene.glb", Size: 100})
	require.NoError(t, err)
	assert.Equal(t, KindDownload, disabled.Kind)

	enabled, err := ps.service(t, nil, true).Preview(context.Background(),
		api.FileInfo{Path: "scene.glb", Size: 100})
	require.NoError(t, err)
	assert.Equal(t, KindModel, enabled.Kind)
	assert.Contains(t, enabled.HTML, "<model-viewer")
}

func TestPreviewTokenCachedPerPath(t *testing.T) {
	ps := newPreviewServer(t)
	service := ps.service(t, nil, false)

	for i := 0; i < 3; i++ {
		_, err := service.Preview(context.Background(), api.FileInfo{Path: "notes.txt", Size: 10})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), ps.signHits.Load(), "token reused until expiry")

	_, err := service.Preview(context.Background(), api.FileInfo{Path: "other.txt", Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), ps.signHits.Load(), "tokens are scoped per path")
}

func TestShowRendersViewerSlots(t *testing.T) {
	ps := newPreviewServer(t)
	memory := view.NewMemory()
	service := ps.service(t, memory, false)

	result, err := service.Show(context.Background(), api.FileInfo{Path: "notes.txt", Size: 15})
	require.NoError(t, err)
	assert.Equal(t, KindText, result.Kind)

	assert.Contains(t, memory.Get(view.SlotViewerTitle), "notes.txt")
	assert.Contains(t, memory.Get(view.SlotViewerActions), "Download")
	assert.Contains(t, memory.Get(view.SlotViewerBody), "hello workspace")
}

func TestTokenExpiryFromJWT(t *testing.T) {
	expires := time.Now().Add(5 * time.Minute)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"path": "notes.txt",
		"exp":  expires.Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	cache := newTokenCache(nil)
	got := cache.tokenExpiry(signed)
	assert.WithinDuration(t, expires.Add(-expiryMargin), got, time.Second)

	opaque := cache.tokenExpiry("not-a-jwt")
	assert.WithinDuration(t, time.Now().Add(fallbackTokenTTL), opaque, time.Second)
}

func TestTokenCacheExpiryForcesResign(t *testing.T) {
	var hits int
	cache := newTokenCache(func(ctx context.Context, path string) (string, error) {
		hits++
		return "opaque", nil
	})
	current := time.Now()
	cache.now = func() time.Time { return current }

	_, err := cache.get(context.Background(), "a.txt")
	require.NoError(t, err)
	_, err = cache.get(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	current = current.Add(fallbackTokenTTL + time.Second)
	_, err = cache.get(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindText, classify("archive.bin", ""), "unknown types degrade to text")
	assert.Equal(t, KindCode, classify("app/models.py", ""))
	assert.Equal(t, KindPDF, classify("x.pdf", ""))
	assert.Equal(t, KindImage, classify("shot.raw", "image/x-raw"), "declared image mime wins")
	assert.Equal(t, KindMarkdown, classify("NOTES", "text/markdown"), "declared markdown mime wins")
}

// A small file matching no dedicated branch is still fetched and
// rendered as escaped text, never reduced to a bare download link.
func TestPreviewUnknownTypeRendersText(t *testing.T) {
	ps := newPreviewServer(t)
	ps.content = "opaque <data>"
	service := ps.service(t, nil, false)

	result, err := service.Preview(context.Background(), api.FileInfo{Path: "notes.unknownext", Size: 64})
	require.NoError(t, err)

	assert.Equal(t, KindText, result.Kind)
	assert.Equal(t, int64(1), ps.fetchHits.Load(), "content fetch expected for small unknown-type file")
	assert.Contains(t, result.HTML, "&lt;data&gt;")
}
