package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// FileInfo describes one synchronized workspace file. Size and Mime
// are server-declared and must be treated as untrusted hints.
type FileInfo struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	Mime string `json:"mime"`
}

// FileTree fetches the synchronized file listing.
func (c *Client) FileTree(ctx context.Context) ([]FileInfo, error) {
	status, payload, err := c.doJSON(ctx, http.MethodGet, c.endpoints.Tree, nil)
	if err != nil {
		return nil, err
	}
	if err := envelopeError(KindUploadRejected, status, payload, "could not load the file list"); err != nil {
		return nil, err
	}

	raw, _ := payload["files"].([]any)
	files := make([]FileInfo, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		info := FileInfo{
			Path: stringValue(m, "path"),
			Mime: stringValue(m, "mime"),
		}
		if v, ok := m["size"].(float64); ok {
			info.Size = int64(v)
		}
		if info.Path != "" {
			files = append(files, info)
		}
	}
	return files, nil
}

// FetchContent downloads file content from a signed URL, reading at
// most limit bytes. A zero limit means unbounded.
func (c *Client) FetchContent(ctx context.Context, signedURL string, limit int64) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("api: building download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, NewError(KindUploadRejected, fmt.Sprintf("download failed (status %d)", resp.StatusCode))
	}

	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, transportError(err)
	}
	return data, nil
}
