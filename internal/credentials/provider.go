package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvcrn/gcs-stream/internal/apperr"
	serverhttp "github.com/dvcrn/gcs-stream/internal/http"
	"github.com/dvcrn/gcs-stream/internal/logger"
)

// ErrNoCredentialStrategy means no key file is configured and the metadata
// server is unreachable by name.
var ErrNoCredentialStrategy = errors.New("no credential strategy available")

// Authorizer defines the interface for obtaining an Authorization header
type Authorizer interface {
	// GetAuth returns "Bearer <token>" for the given scope
	GetAuth(ctx context.Context, scope Scope) (string, error)

	// Name returns the name of the strategy for logging
	Name() string
}

// Options configures a TokenProvider. An empty CredentialsPath selects the
// metadata server.
type Options struct {
	CredentialsPath  string
	TokenURL         string
	ScopeBaseURL     string
	MetadataTokenURL string
	HTTPClient       serverhttp.HTTPClient
}

// TokenProvider resolves a fresh access token on every call. Nothing is
// cached: the tool performs one transfer per process.
type TokenProvider struct {
	opts     Options
	metadata *MetadataFetcher
	now      func() time.Time
}

// NewTokenProvider creates a provider from explicit options.
func NewTokenProvider(opts Options) *TokenProvider {
	return &TokenProvider{
		opts:     opts,
		metadata: NewMetadataFetcher(opts.HTTPClient, opts.MetadataTokenURL),
		now:      time.Now,
	}
}

// GetAuth implements Authorizer.
func (p *TokenProvider) GetAuth(ctx context.Context, scope Scope) (string, error) {
	var (
		token *AccessToken
		err   error
	)
	if p.opts.CredentialsPath != "" {
		token, err = p.serviceAccountToken(ctx, scope)
	} else {
		token, err = p.metadataToken(ctx)
	}
	if err != nil {
		return "", err
	}

	logger.Get().Debug().
		Str("strategy", p.Name()).
		Str("scope", string(scope)).
		Str("token_type", token.TokenType).
		Int("expires_in", token.ExpiresIn).
		Msg("Obtained access token")

	return "Bearer " + token.AccessToken, nil
}

func (p *TokenProvider) serviceAccountToken(ctx context.Context, scope Scope) (*AccessToken, error) {
	account, err := LoadServiceAccount(p.opts.CredentialsPath)
	if err != nil {
		return nil, err
	}

	scopeURL := fmt.Sprintf("%s/%s", p.opts.ScopeBaseURL, scope)
	assertion, err := BuildAssertion(account, scopeURL, p.opts.TokenURL, p.now())
	if err != nil {
		return nil, apperr.NewRecoverable(err)
	}

	token, err := ExchangeAssertion(ctx, p.opts.HTTPClient, p.opts.TokenURL, assertion)
	if err != nil {
		return nil, apperr.NewRecoverable(err)
	}
	return token, nil
}

func (p *TokenProvider) metadataToken(ctx context.Context) (*AccessToken, error) {
	result := p.metadata.Probe(ctx)
	switch result.Status {
	case ProbeToken:
		return result.Token, nil
	case ProbeUnavailable:
		return nil, apperr.NewFatal(fmt.Errorf("%w: GOOGLE_APPLICATION_CREDENTIALS env var must be set to the service-account.json path", ErrNoCredentialStrategy))
	default:
		return nil, apperr.NewRecoverable(result.Err)
	}
}

// Name returns the active strategy
func (p *TokenProvider) Name() string {
	if p.opts.CredentialsPath != "" {
		return fmt.Sprintf("ServiceAccount(%s)", p.opts.CredentialsPath)
	}
	return "ComputeMetadata"
}
