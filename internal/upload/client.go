// Package upload talks to the file upload collaborator: it accepts a
// file and returns a stable URL reference used as a message
// attachment.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/Imrannnnn/Skillconnect-sub001/internal/chat"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/connectivity"
)

// Client uploads files and shapes the result as a chat attachment.
type Client struct {
	uploadURL  string
	httpClient *http.Client
	monitor    *connectivity.Monitor
}

// NewClient creates an upload client. monitor may be nil in tests.
func NewClient(uploadURL string, timeout time.Duration, monitor *connectivity.Monitor) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		uploadURL:  uploadURL,
		httpClient: &http.Client{Timeout: timeout},
		monitor:    monitor,
	}
}

// Upload posts the file contents and returns the attachment reference
// the backend assigned.
func (c *Client) Upload(ctx context.Context, name string, contents io.Reader) (*chat.Attachment, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, contents); err != nil {
		return nil, fmt.Errorf("buffering file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.monitor != nil {
			c.monitor.ReportFailure()
		}
		return nil, fmt.Errorf("uploading file: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if c.monitor != nil {
		c.monitor.ReportRecovery()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}

	return &chat.Attachment{
		URL:  result.URL,
		Kind: KindForName(name),
		Name: name,
	}, nil
}

// KindForName derives the attachment kind from the file name's
// extension.
func KindForName(name string) chat.AttachmentKind {
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if strings.HasPrefix(contentType, "image/") {
		return chat.AttachmentImage
	}
	return chat.AttachmentFile
}
