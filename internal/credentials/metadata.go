package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	serverhttp "github.com/dvcrn/gcs-stream/internal/http"
	"github.com/dvcrn/gcs-stream/internal/logger"
)

// ProbeStatus is the outcome of asking the metadata server for a token.
type ProbeStatus int

const (
	// ProbeUnavailable means the metadata host does not resolve, so the
	// process is not running on Google Cloud.
	ProbeUnavailable ProbeStatus = iota
	// ProbeToken means a token was obtained.
	ProbeToken
	// ProbeError means the metadata server exists but the request failed.
	ProbeError
)

func (s ProbeStatus) String() string {
	switch s {
	case ProbeUnavailable:
		return "unavailable"
	case ProbeToken:
		return "token"
	default:
		return "error"
	}
}

// ProbeResult carries Token when Status is ProbeToken and Err when Status is
// ProbeError.
type ProbeResult struct {
	Status ProbeStatus
	Token  *AccessToken
	Err    error
}

// MetadataFetcher requests the default service account's token from the
// instance metadata server.
type MetadataFetcher struct {
	httpClient serverhttp.HTTPClient
	tokenURL   string
}

// NewMetadataFetcher creates a fetcher for the metadata token URL.
func NewMetadataFetcher(client serverhttp.HTTPClient, tokenURL string) *MetadataFetcher {
	return &MetadataFetcher{httpClient: client, tokenURL: tokenURL}
}

// Probe asks the metadata server for a token. Only a name resolution failure
// reports ProbeUnavailable; timeouts, refused connections and error statuses
// are ProbeError.
func (m *MetadataFetcher) Probe(ctx context.Context) ProbeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.tokenURL, nil)
	if err != nil {
		return ProbeResult{Status: ProbeError, Err: fmt.Errorf("could not create metadata request: %w", err)}
	}
	req.Header.Set(MetadataFlavorHeader, MetadataFlavorGoogle)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		if isNameResolutionError(err) {
			logger.Get().Debug().Err(err).Str("url", m.tokenURL).Msg("Metadata host does not resolve")
			return ProbeResult{Status: ProbeUnavailable}
		}
		return ProbeResult{Status: ProbeError, Err: fmt.Errorf("metadata request execution error: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ProbeResult{Status: ProbeError, Err: fmt.Errorf("could not read metadata response body: %w", err)}
	}

	if !isSuccess(resp.StatusCode) {
		return ProbeResult{
			Status: ProbeError,
			Err:    fmt.Errorf("failed to get compute metadata token with status %d: %s", resp.StatusCode, string(body)),
		}
	}

	token, err := decodeAccessToken(body)
	if err != nil {
		return ProbeResult{Status: ProbeError, Err: err}
	}
	return ProbeResult{Status: ProbeToken, Token: token}
}

// isNameResolutionError reports whether err is a failed DNS lookup.
func isNameResolutionError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
