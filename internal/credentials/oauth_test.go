package credentials

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	serverhttp "github.com/dvcrn/gcs-stream/internal/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeAssertion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			return
		}
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", body["grant_type"])
		assert.Equal(t, "signed.jwt.value", body["assertion"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"ya29.token","expires_in":3599,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	token, err := ExchangeAssertion(context.Background(), serverhttp.NewHTTPClient(5*time.Second), srv.URL, "signed.jwt.value")
	require.NoError(t, err)
	assert.Equal(t, &AccessToken{AccessToken: "ya29.token", ExpiresIn: 3599, TokenType: "Bearer"}, token)
}

func TestExchangeAssertionErrorCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid JWT Signature."}`))
	}))
	defer srv.Close()

	_, err := ExchangeAssertion(context.Background(), serverhttp.NewHTTPClient(5*time.Second), srv.URL, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), `{"error":"invalid_grant","error_description":"Invalid JWT Signature."}`)
}

func TestExchangeAssertionRejectsMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"expires_in":3599,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	_, err := ExchangeAssertion(context.Background(), serverhttp.NewHTTPClient(5*time.Second), srv.URL, "x")
	assert.ErrorContains(t, err, "no access_token")
}
