// Package tree loads and renders the workspace file listing.
package tree

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/kickstorm/workspacectl/pkg/api"
	"github.com/kickstorm/workspacectl/pkg/view"
)

// iconByExt maps a lowercased file extension to its display icon.
// Unknown extensions fall through to iconDefault.
var iconByExt = map[string]string{
	"jpg":  "image",
	"jpeg": "image",
	"png":  "image",
	"gif":  "image",
	"webp": "image",
	"svg":  "image",
	"pdf":  "picture_as_pdf",
	"glb":  "view_in_ar",
	"gltf": "view_in_ar",
	"obj":  "view_in_ar",
	"stl":  "view_in_ar",
	"md":   "description",
	"txt":  "description",
}

const iconDefault = "article"

// Icon returns the display icon for a workspace path. The mapping is
// total: every path yields an icon.
func Icon(filePath string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filePath)), ".")
	if icon, ok := iconByExt[ext]; ok {
		return icon
	}
	return iconDefault
}

// Service fetches the file tree and renders it into the view.
type Service struct {
	client   *api.Client
	renderer view.Renderer
	logger   *slog.Logger
}

// NewService creates a file tree service.
func NewService(client *api.Client, renderer view.Renderer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if renderer == nil {
		renderer = view.Discard{}
	}
	return &Service{client: client, renderer: renderer, logger: logger}
}

// Load fetches the listing and renders it. A failure renders an inline
// message in the tree slot and leaves every other slot untouched.
func (s *Service) Load(ctx context.Context) ([]api.FileInfo, error) {
	files, err := s.client.FileTree(ctx)
	if err != nil {
		s.logger.Warn("tree: listing failed", "error", err)
		s.renderer.Render(view.SlotFileTree, "Could not load the file tree. Retry to refresh.")
		return nil, err
	}

	s.renderer.Render(view.SlotFileTree, Render(files))
	return files, nil
}

// Render formats a listing with one line per file, sorted by path so
// consecutive refreshes are directly comparable.
func Render(files []api.FileInfo) string {
	if len(files) == 0 {
		return "The workspace is empty. Upload files to get started."
	}

	sorted := append([]api.FileInfo(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var b strings.Builder
	for _, file := range sorted {
		fmt.Fprintf(&b, "[%s] %s (%s)\n", Icon(file.Path), file.Path, byteSize(file.Size))
	}
	return strings.TrimRight(b.String(), "\n")
}

// byteSize formats a server-declared size, clamping negatives to zero
// rather than reinterpreting them as huge unsigned values.
func byteSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
