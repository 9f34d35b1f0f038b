package transfer

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/hilthontt/studyroom/internal/domain"
	"github.com/hilthontt/studyroom/internal/infrastructure/configs"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	uploadField     = "upload"
	maxErrorBodyLen = 512
)

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	MaxBytes int64
}

func NewConfig(upstream configs.UpstreamConfig, upload configs.UploadConfig) Config {
	return Config{
		BaseURL:  upstream.HTTPBaseURL,
		Timeout:  upload.Timeout,
		MaxBytes: upload.MaxBytes,
	}
}

// Client talks to the room server's file endpoints. Uploads go to
// {base}/upload/{room}/{clientId}; downloads are served from
// {base}/download/{fileId} and only ever linked, never fetched here.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient instruments httpClient's transport with OpenTelemetry. A nil
// httpClient gets a fresh one.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	instrumented := *httpClient
	transport := instrumented.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	instrumented.Transport = otelhttp.NewTransport(transport)

	return &Client{
		cfg:        cfg,
		httpClient: &instrumented,
	}
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.Join(escaped, "/")
}

func (c *Client) DownloadURL(fileID string) string {
	return c.endpoint("download", fileID)
}

// Upload streams the attachment as a multipart form. Any non-2xx response is
// an UploadError.
func (c *Client) Upload(ctx context.Context, roomID, clientID string, att *domain.Attachment) (domain.FileRef, error) {
	if roomID == "" || clientID == "" {
		return domain.FileRef{}, domain.ErrInvalidInput
	}
	if att == nil || att.Content == nil {
		return domain.FileRef{}, domain.ErrNoAttachment
	}
	if c.cfg.MaxBytes > 0 && att.Size > c.cfg.MaxBytes {
		return domain.FileRef{}, fmt.Errorf("%w: %d bytes, limit %d", domain.ErrAttachmentTooLarge, att.Size, c.cfg.MaxBytes)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	body, contentType := c.multipartBody(att)
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("upload", roomID, clientID), body)
	if err != nil {
		return domain.FileRef{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FileRef{}, &domain.UploadError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.FileRef{}, &domain.UploadError{Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.FileRef{}, &domain.UploadError{
			Status: resp.StatusCode,
			Body:   truncate(strings.TrimSpace(string(respBody)), maxErrorBodyLen),
		}
	}

	return parseUploadResponse(respBody, att.Name)
}

// multipartBody streams the attachment through a pipe so large files are not
// buffered in memory.
func (c *Client) multipartBody(att *domain.Attachment) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", multipart.FileContentDisposition(uploadField, att.Name))
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := writer.CreatePart(header)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("failed to create form file: %w", err))
			return
		}

		var src io.Reader = att.Content
		if c.cfg.MaxBytes > 0 {
			src = io.LimitReader(att.Content, c.cfg.MaxBytes+1)
		}
		n, err := io.Copy(part, src)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("failed to write file to form: %w", err))
			return
		}
		if c.cfg.MaxBytes > 0 && n > c.cfg.MaxBytes {
			pw.CloseWithError(domain.ErrAttachmentTooLarge)
			return
		}

		pw.CloseWithError(writer.Close())
	}()

	return pr, writer.FormDataContentType()
}

// parseUploadResponse reads {file_id, filename}. file_id is a number on the
// current server and a string on older ones.
func parseUploadResponse(body []byte, fallbackName string) (domain.FileRef, error) {
	if !gjson.ValidBytes(body) {
		return domain.FileRef{}, &domain.UploadError{Err: fmt.Errorf("invalid upload response: %s", truncate(string(body), maxErrorBodyLen))}
	}

	result := gjson.ParseBytes(body)
	id := result.Get("file_id")
	if !id.Exists() || id.String() == "" {
		return domain.FileRef{}, &domain.UploadError{Err: fmt.Errorf("upload response has no file_id")}
	}

	name := result.Get("filename").String()
	if name == "" {
		name = fallbackName
	}

	return domain.FileRef{ID: id.String(), Name: name}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
