// Package preview builds HTML viewer fragments for workspace files.
// Content is fetched through short-lived signed download URLs; the
// signing tokens are cached per path until their expiry.
package preview

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"path"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/kickstorm/workspacectl/pkg/api"
	"github.com/kickstorm/workspacectl/pkg/view"
)

// RenderKind identifies the branch that produced a preview fragment.
type RenderKind string

// Render kinds.
const (
	KindImage    RenderKind = "image"
	KindPDF      RenderKind = "pdf"
	KindModel    RenderKind = "model"
	KindMarkdown RenderKind = "markdown"
	KindCode     RenderKind = "code"
	KindText     RenderKind = "text"
	KindDownload RenderKind = "download"
)

// Config configures the preview service.
type Config struct {
	Client *api.Client

	// Renderer receives the viewer slots. Optional.
	Renderer view.Renderer

	// MaxBytes is the hard content ceiling. Files above it are never
	// fetched and degrade to a download link.
	MaxBytes int64

	// ModelViewer enables inline 3D model rendering. Without it model
	// files degrade to a download link.
	ModelViewer bool

	Logger *slog.Logger
}

// Service previews workspace files.
type Service struct {
	cfg    Config
	tokens *tokenCache
}

// Result is a rendered preview.
type Result struct {
	Path        string
	Kind        RenderKind
	HTML        string
	DownloadURL string

	// TooLarge is set when the size ceiling suppressed the content
	// fetch.
	TooLarge bool
}

// NewService creates a preview service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Renderer == nil {
		cfg.Renderer = view.Discard{}
	}
	return &Service{cfg: cfg, tokens: newTokenCache(cfg.Client.SignToken)}
}

// Preview signs a download URL for the file and renders the fragment
// matching its type. Oversized files short-circuit to a download link
// without any content request.
func (s *Service) Preview(ctx context.Context, file api.FileInfo) (*Result, error) {
	token, err := s.tokens.get(ctx, file.Path)
	if err != nil {
		return nil, err
	}
	downloadURL := s.cfg.Client.DownloadURL(file.Path, token)

	result := &Result{Path: file.Path, DownloadURL: downloadURL}

	if s.cfg.MaxBytes > 0 && file.Size > s.cfg.MaxBytes {
		result.Kind = KindDownload
		result.TooLarge = true
		result.HTML = downloadFragment(downloadURL, fmt.Sprintf(
			"This file is %s, above the %s preview ceiling.",
			byteSize(file.Size), byteSize(s.cfg.MaxBytes)))
		return result, nil
	}

	switch kind := classify(file.Path, file.Mime); kind {
	case KindImage:
		result.Kind = KindImage
		result.HTML = fmt.Sprintf(`<img src="%s" alt="%s">`,
			html.EscapeString(downloadURL), html.EscapeString(path.Base(file.Path)))
	case KindPDF:
		result.Kind = KindPDF
		result.HTML = fmt.Sprintf(`<iframe src="%s" title="%s"></iframe>`,
			html.EscapeString(downloadURL), html.EscapeString(path.Base(file.Path)))
	case KindModel:
		if !s.cfg.ModelViewer {
			result.Kind = KindDownload
			result.HTML = downloadFragment(downloadURL, "3D preview is disabled.")
			return result, nil
		}
		result.Kind = KindModel
		result.HTML = fmt.Sprintf(`<model-viewer src="%s" camera-controls auto-rotate></model-viewer>`,
			html.EscapeString(downloadURL))
	default:
		// Markdown, source code, and anything else small enough:
		// fetch the content and render it as text.
		content, err := s.cfg.Client.FetchContent(ctx, downloadURL, s.cfg.MaxBytes)
		if err != nil {
			return nil, err
		}
		result.Kind = kind
		result.HTML = s.renderText(kind, file.Path, content)
	}
	return result, nil
}

// Show previews the file and renders it into the viewer slots. Only
// the viewer slots change; on failure an inline message replaces the
// body.
func (s *Service) Show(ctx context.Context, file api.FileInfo) (*Result, error) {
	result, err := s.Preview(ctx, file)
	if err != nil {
		s.cfg.Logger.Warn("preview: rendering failed", "path", file.Path, "error", err)
		s.cfg.Renderer.Render(view.SlotViewerBody,
			"Could not preview "+html.EscapeString(file.Path))
		return nil, err
	}

	s.cfg.Renderer.Render(view.SlotViewerTitle, fmt.Sprintf("%s (%s)",
		file.Path, byteSize(file.Size)))
	s.cfg.Renderer.Render(view.SlotViewerActions,
		downloadFragment(result.DownloadURL, ""))
	s.cfg.Renderer.Render(view.SlotViewerBody, result.HTML)
	return result, nil
}

func (s *Service) renderText(kind RenderKind, filePath string, content []byte) string {
	switch kind {
	case KindMarkdown:
		if fragment, err := renderMarkdown(content); err == nil {
			return fragment
		} else {
			s.cfg.Logger.Warn("preview: markdown rendering failed", "path", filePath, "error", err)
		}
	case KindCode:
		if fragment, err := renderCode(filePath, content); err == nil {
			return fragment
		} else {
			s.cfg.Logger.Warn("preview: highlighting failed", "path", filePath, "error", err)
		}
	}
	return "<pre>" + html.EscapeString(string(content)) + "</pre>"
}

// byteSize formats a server-declared size, clamping negatives to zero
// rather than reinterpreting them as huge unsigned values.
func byteSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func downloadFragment(downloadURL, note string) string {
	fragment := fmt.Sprintf(`<a href="%s" download>Download</a>`, html.EscapeString(downloadURL))
	if note != "" {
		fragment = "<p>" + html.EscapeString(note) + "</p>" + fragment
	}
	return fragment
}

// classify picks the render branch. The declared mime decides the
// image and markdown branches, the extension decides the rest, and
// everything unmatched degrades to escaped generic text.
func classify(filePath, mime string) RenderKind {
	if strings.HasPrefix(mime, "image/") {
		return KindImage
	}
	switch ext := strings.TrimPrefix(strings.ToLower(path.Ext(filePath)), "."); ext {
	case "jpg", "jpeg", "png", "gif", "webp", "svg":
		return KindImage
	case "pdf":
		return KindPDF
	case "glb", "gltf", "obj", "stl":
		return KindModel
	case "md", "markdown":
		return KindMarkdown
	default:
		if mime == "text/markdown" {
			return KindMarkdown
		}
		if _, ok := languageByExt[ext]; ok {
			return KindCode
		}
		return KindText
	}
}
