package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dvcrn/gcs-stream/internal/apperr"
	"github.com/dvcrn/gcs-stream/internal/config"
	"github.com/dvcrn/gcs-stream/internal/credentials"
	serverhttp "github.com/dvcrn/gcs-stream/internal/http"
	"github.com/dvcrn/gcs-stream/internal/logger"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Client is a client for the Cloud Storage JSON API.
type Client struct {
	httpClient    serverhttp.HTTPClient
	auth          credentials.Authorizer
	baseURL       string
	uploadBaseURL string
	bufferSize    int
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c serverhttp.HTTPClient) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithEndpoints overrides the storage and upload base URLs.
func WithEndpoints(baseURL, uploadBaseURL string) Option {
	return func(cl *Client) {
		cl.baseURL = baseURL
		cl.uploadBaseURL = uploadBaseURL
	}
}

// WithBufferSize sets the size of each of the two streaming buffers.
func WithBufferSize(n int) Option {
	return func(cl *Client) { cl.bufferSize = n }
}

// NewClient creates a new Cloud Storage client.
func NewClient(auth credentials.Authorizer, opts ...Option) *Client {
	c := &Client{
		httpClient:    serverhttp.NewHTTPClient(config.DefaultTimeout),
		auth:          auth,
		baseURL:       config.DefaultStorageBaseURL,
		uploadBaseURL: config.DefaultUploadBaseURL,
		bufferSize:    config.DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload streams src into dst with a single chunked media upload.
func (c *Client) Upload(ctx context.Context, dst ObjectLocator, src io.Reader) error {
	start := time.Now()

	authHeader, err := c.auth.GetAuth(ctx, credentials.ScopeReadWrite)
	if err != nil {
		return err
	}

	query := url.Values{}
	query.Set("uploadType", "media")
	query.Set("name", dst.Key)
	uploadURL := fmt.Sprintf("%s/b/%s/o?%s", c.uploadBaseURL, dst.Bucket, query.Encode())

	// The producer is not joined: it may be blocked reading src after the
	// request fails, and src cannot be interrupted.
	body := newBufferedPipe(c.bufferSize)
	go func() { _ = body.fill(ctx, src) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		body.Close()
		return fmt.Errorf("could not create upload request: %w", err)
	}
	req.ContentLength = -1
	req.Header.Set("Authorization", authHeader)
	req.Header.Set("Content-Type", "application/octet-stream")

	logger.Get().Debug().Str("object", dst.String()).Msg("Starting upload")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		body.Close()
		return apperr.NewRecoverable(fmt.Errorf("upload request execution error: %w", err))
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		respBody, _ := io.ReadAll(resp.Body)
		return apperr.NewRecoverable(fmt.Errorf("failed to upload with status %d: %s", resp.StatusCode, string(respBody)))
	}

	logger.Get().Info().
		Str("object", dst.String()).
		Dur("duration", time.Since(start)).
		Msg("Upload complete")
	return nil
}

// Download streams the object src into dst.
func (c *Client) Download(ctx context.Context, src ObjectLocator, dst io.Writer) (err error) {
	start := time.Now()

	authHeader, err := c.auth.GetAuth(ctx, credentials.ScopeReadOnly)
	if err != nil {
		return err
	}

	downloadURL := fmt.Sprintf("%s/b/%s/o/%s?alt=media", c.baseURL, src.Bucket, src.escapedKey())

	g, gctx := errgroup.WithContext(ctx)

	req, err := http.NewRequestWithContext(gctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("could not create download request: %w", err)
	}
	req.Header.Set("Authorization", authHeader)

	logger.Get().Debug().Str("object", src.String()).Msg("Starting download")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.NewRecoverable(fmt.Errorf("download request execution error: %w", err))
	}
	defer multierr.AppendInvoke(&err, multierr.Close(resp.Body))

	if !isSuccess(resp.StatusCode) {
		respBody, _ := io.ReadAll(resp.Body)
		return apperr.NewRecoverable(fmt.Errorf("failed to download with status %d: %s", resp.StatusCode, string(respBody)))
	}

	pipe := newBufferedPipe(c.bufferSize)
	out := bufio.NewWriterSize(dst, c.bufferSize)
	var written int64

	defer pipe.Close()

	g.Go(func() error {
		return pipe.fill(gctx, resp.Body)
	})
	g.Go(func() error {
		// Uses pipe.WriteTo, so dst only sees full buffer-sized writes.
		n, err := io.Copy(out, pipe)
		written = n
		if err != nil {
			return err
		}
		return out.Flush()
	})
	if err := g.Wait(); err != nil {
		return apperr.NewRecoverable(fmt.Errorf("failed to download %s: %w", src, err))
	}

	logger.Get().Info().
		Str("object", src.String()).
		Int64("bytes", written).
		Dur("duration", time.Since(start)).
		Msg("Download complete")
	return nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
