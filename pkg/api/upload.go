package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"sync/atomic"
)

// digestHeader carries the client-computed content digest of the
// uploaded file so the server can verify integrity.
const digestHeader = "X-Content-Digest"

// UploadRequest describes a multipart file upload.
type UploadRequest struct {
	// URL is the upload endpoint.
	URL string

	// Fields holds extra form fields (e.g. relative_path).
	Fields map[string]string

	// FileName is the multipart filename for the "file" part.
	FileName string

	// Body supplies the file content.
	Body io.Reader

	// Digest, when set, is sent as X-Content-Digest.
	Digest string

	// Progress receives upload fractions in [0,1]. The transport
	// signal need not be monotonic; values are clamped before
	// delivery.
	Progress func(float64)
}

// Upload streams a multipart request with incremental progress
// reporting and returns the transport status together with the decoded
// payload. The multipart body is spooled to a temporary file first so
// the total length is known and progress is meaningful.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (int, map[string]any, error) {
	spool, err := os.CreateTemp("", "workspacectl-upload-*")
	if err != nil {
		return 0, nil, fmt.Errorf("api: creating upload spool: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	writer := multipart.NewWriter(spool)
	for key, value := range req.Fields {
		if err := writer.WriteField(key, value); err != nil {
			return 0, nil, fmt.Errorf("api: writing form field %q: %w", key, err)
		}
	}
	part, err := writer.CreateFormFile("file", req.FileName)
	if err != nil {
		return 0, nil, fmt.Errorf("api: creating file part: %w", err)
	}
	if _, err := io.Copy(part, req.Body); err != nil {
		return 0, nil, fmt.Errorf("api: spooling upload body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return 0, nil, fmt.Errorf("api: closing multipart writer: %w", err)
	}

	size, err := spool.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, nil, fmt.Errorf("api: sizing upload spool: %w", err)
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return 0, nil, fmt.Errorf("api: rewinding upload spool: %w", err)
	}

	body := &progressReader{reader: spool, total: size, report: req.Progress}
	httpReq, err := c.newRequest(ctx, http.MethodPost, req.URL, body)
	if err != nil {
		return 0, nil, fmt.Errorf("api: building upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if req.Digest != "" {
		httpReq.Header.Set(digestHeader, req.Digest)
	}
	httpReq.ContentLength = size

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, nil, transportError(err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, c.parseJSON(resp.Body), nil
}

// progressReader reports the fraction of the body consumed by the
// transport. Fractions are clamped to [0,1].
type progressReader struct {
	reader io.Reader
	total  int64
	read   atomic.Int64
	report func(float64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if n > 0 && p.report != nil && p.total > 0 {
		read := p.read.Add(int64(n))
		fraction := float64(read) / float64(p.total)
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
		p.report(fraction)
	}
	return n, err
}
