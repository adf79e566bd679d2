package credentials

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvcrn/gcs-stream/internal/apperr"
	serverhttp "github.com/dvcrn/gcs-stream/internal/http"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newCountingServer(t *testing.T, handler http.HandlerFunc) *countingServer {
	t.Helper()
	s := &countingServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func tokenHandler(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(AccessToken{AccessToken: token, ExpiresIn: 3599, TokenType: "Bearer"})
	}
}

func TestGetAuthServiceAccountTakesPrecedence(t *testing.T) {
	pk, pemKey := genRSA(t)
	path := writeServiceAccount(t, testServiceAccount(pemKey))

	var scope string
	tokenSrv := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body tokenRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			parsed, err := jwt.Parse(body.Assertion, func(*jwt.Token) (interface{}, error) { return &pk.PublicKey, nil },
				jwt.WithoutClaimsValidation())
			if assert.NoError(t, err) {
				scope, _ = parsed.Claims.(jwt.MapClaims)["scope"].(string)
			}
		}
		tokenHandler("ya29.service-account")(w, r)
	})
	metadataSrv := newCountingServer(t, tokenHandler("ya29.metadata"))

	provider := NewTokenProvider(Options{
		CredentialsPath:  path,
		TokenURL:         tokenSrv.URL,
		ScopeBaseURL:     "https://www.googleapis.com/auth",
		MetadataTokenURL: metadataSrv.URL,
		HTTPClient:       serverhttp.NewHTTPClient(5 * time.Second),
	})

	header, err := provider.GetAuth(context.Background(), ScopeReadWrite)
	require.NoError(t, err)
	assert.Equal(t, "Bearer ya29.service-account", header)
	assert.Equal(t, "https://www.googleapis.com/auth/devstorage.read_write", scope)
	assert.EqualValues(t, 1, tokenSrv.hits.Load())
	assert.EqualValues(t, 0, metadataSrv.hits.Load(), "metadata server must not be contacted")
}

func TestGetAuthFetchesFreshTokenEachCall(t *testing.T) {
	metadataSrv := newCountingServer(t, tokenHandler("ya29.metadata"))
	provider := NewTokenProvider(Options{
		MetadataTokenURL: metadataSrv.URL,
		HTTPClient:       serverhttp.NewHTTPClient(5 * time.Second),
	})

	for range 3 {
		header, err := provider.GetAuth(context.Background(), ScopeReadOnly)
		require.NoError(t, err)
		assert.Equal(t, "Bearer ya29.metadata", header)
	}
	assert.EqualValues(t, 3, metadataSrv.hits.Load())
	assert.Equal(t, "ComputeMetadata", provider.Name())
}

func TestGetAuthNoStrategyIsFatal(t *testing.T) {
	provider := NewTokenProvider(Options{
		MetadataTokenURL: "http://metadata.google.internal/token",
		HTTPClient:       dnsFailingClient(),
	})

	_, err := provider.GetAuth(context.Background(), ScopeReadOnly)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCredentialStrategy)
	assert.True(t, apperr.IsFatal(err))
	assert.Contains(t, err.Error(), "GOOGLE_APPLICATION_CREDENTIALS")
}

func TestGetAuthMetadataErrorIsRecoverable(t *testing.T) {
	metadataSrv := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "metadata server overloaded", http.StatusServiceUnavailable)
	})
	provider := NewTokenProvider(Options{
		MetadataTokenURL: metadataSrv.URL,
		HTTPClient:       serverhttp.NewHTTPClient(5 * time.Second),
	})

	_, err := provider.GetAuth(context.Background(), ScopeReadOnly)
	require.Error(t, err)
	assert.False(t, apperr.IsFatal(err))
	assert.NotErrorIs(t, err, ErrNoCredentialStrategy)
	assert.Contains(t, err.Error(), "metadata server overloaded")
}

func TestGetAuthExchangeErrorIsRecoverable(t *testing.T) {
	_, pemKey := genRSA(t)
	path := writeServiceAccount(t, testServiceAccount(pemKey))
	tokenSrv := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	})

	provider := NewTokenProvider(Options{
		CredentialsPath: path,
		TokenURL:        tokenSrv.URL,
		ScopeBaseURL:    "https://www.googleapis.com/auth",
		HTTPClient:      serverhttp.NewHTTPClient(5 * time.Second),
	})

	_, err := provider.GetAuth(context.Background(), ScopeReadOnly)
	require.Error(t, err)
	assert.Equal(t, apperr.Recoverable, apperr.KindOf(err))
	assert.Contains(t, err.Error(), `{"error":"invalid_client"}`)
}

func TestGetAuthWrongTypeFailsBeforeNetwork(t *testing.T) {
	_, pemKey := genRSA(t)
	fields := testServiceAccount(pemKey)
	fields["type"] = "external_account"
	path := writeServiceAccount(t, fields)

	tokenSrv := newCountingServer(t, tokenHandler("unused"))
	metadataSrv := newCountingServer(t, tokenHandler("unused"))

	provider := NewTokenProvider(Options{
		CredentialsPath:  path,
		TokenURL:         tokenSrv.URL,
		MetadataTokenURL: metadataSrv.URL,
		HTTPClient:       serverhttp.NewHTTPClient(5 * time.Second),
	})

	_, err := provider.GetAuth(context.Background(), ScopeReadWrite)
	require.Error(t, err)
	assert.True(t, apperr.IsFatal(err))
	assert.ErrorIs(t, err, ErrInvalidServiceAccount)
	assert.EqualValues(t, 0, tokenSrv.hits.Load())
	assert.EqualValues(t, 0, metadataSrv.hits.Load())
}
