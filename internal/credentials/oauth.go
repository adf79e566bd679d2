package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	serverhttp "github.com/dvcrn/gcs-stream/internal/http"
)

// ExchangeAssertion trades a signed assertion for an access token at tokenURL.
func ExchangeAssertion(ctx context.Context, client serverhttp.HTTPClient, tokenURL, assertion string) (*AccessToken, error) {
	body, err := json.Marshal(tokenRequest{
		GrantType: JWTBearerGrantType,
		Assertion: assertion,
	})
	if err != nil {
		return nil, fmt.Errorf("could not marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request execution error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read token response body: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		return nil, fmt.Errorf("failed to authenticate with status %d: %s", resp.StatusCode, string(respBody))
	}

	return decodeAccessToken(respBody)
}

func decodeAccessToken(body []byte) (*AccessToken, error) {
	var token AccessToken
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("could not unmarshal token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}
	return &token, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
