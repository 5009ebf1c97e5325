package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"truvideo/internal/config"
	"truvideo/internal/logging"
	"truvideo/internal/services"
)

const (
	userAgent   = "TruVideo-Go/0.1.0"
	formField   = "file"
	formName    = "video.mp4"
	contentType = "video/mp4"
)

// Client uploads finished videos.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// New builds a client for the configured endpoint.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	return NewClient(cfg.Upload.Endpoint, cfg.UploadTimeout(), logger)
}

// NewClient builds a client for endpoint. A non-positive timeout disables the
// request deadline.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout < 0 {
		timeout = 0
	}
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "upload"),
	}
}

// Endpoint returns the delivery URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Upload sends path as form field "file" named video.mp4. Any status other
// than 200 is a failure.
func (c *Client) Upload(ctx context.Context, path string) error {
	logger := logging.WithContext(ctx, c.logger)

	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrUpload, "upload", "open", path, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return services.Wrap(services.ErrUpload, "upload", "stat", path, err)
	}

	body, writer := io.Pipe()
	form := multipart.NewWriter(writer)
	go func() {
		writer.CloseWithError(writeForm(form, file))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		body.Close()
		return services.Wrap(services.ErrUpload, "upload", "build request", c.endpoint, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", form.FormDataContentType())

	logger.Info("upload started",
		logging.String("path", path),
		logging.Int64("bytes", info.Size()),
		logging.String("endpoint", c.endpoint),
	)
	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		body.Close()
		return services.Wrap(services.ErrUpload, "upload", "post", c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return services.Wrap(services.ErrUpload, "upload", "post",
			fmt.Sprintf("endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.Info("upload accepted",
		logging.String("path", path),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return nil
}

func writeForm(form *multipart.Writer, src io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, formField, formName))
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return form.Close()
}
