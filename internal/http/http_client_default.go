package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// ErrReadTimeout is returned when a single read of a response body stalls
// for longer than the client timeout.
var ErrReadTimeout = errors.New("response body read timed out")

// NewHTTPClient creates a client that times out after timeout when
// connecting, waiting for response headers, and whenever a single write to
// the connection or a single read of a response body stalls for longer.
// Time spent between reads or writes is not counted, so long streams and a
// slow producer or consumer are fine.
func NewHTTPClient(timeout time.Duration) HTTPClient {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	return &timeoutClient{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					conn, err := dialer.DialContext(ctx, network, addr)
					if err != nil {
						return nil, err
					}
					return &writeDeadlineConn{Conn: conn, timeout: timeout}, nil
				},
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: time.Second,
				ForceAttemptHTTP2:     true,
			},
		},
		timeout: timeout,
	}
}

type timeoutClient struct {
	client  *http.Client
	timeout time.Duration
}

func (c *timeoutClient) Do(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithCancelCause(req.Context())
	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		cancel(nil)
		return nil, err
	}
	resp.Body = &idleTimeoutBody{ReadCloser: resp.Body, timeout: c.timeout, cancel: cancel}
	return resp, nil
}

// idleTimeoutBody cancels the request when one Read blocks for longer than
// timeout. The clock only runs while a Read is in progress.
type idleTimeoutBody struct {
	io.ReadCloser
	timeout time.Duration
	cancel  context.CancelCauseFunc
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	timer := time.AfterFunc(b.timeout, func() {
		b.cancel(fmt.Errorf("%w after %s", ErrReadTimeout, b.timeout))
	})
	n, err := b.ReadCloser.Read(p)
	if !timer.Stop() {
		return n, fmt.Errorf("%w after %s", ErrReadTimeout, b.timeout)
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel(nil)
	return err
}

// writeDeadlineConn pushes the write deadline forward before every Write.
// Reads get no connection deadline: the transport keeps a read pending on
// every connection for its whole life.
type writeDeadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *writeDeadlineConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}
