package credentials

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BuildAssertion signs the JWT exchanged for an access token. The assertion
// is valid for AssertionLifetime seconds from now.
func BuildAssertion(account *ServiceAccount, scopeURL, audience string, now time.Time) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(account.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key of %s: %w", account.ClientEmail, err)
	}

	iat := now.Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   account.ClientEmail,
		"scope": scopeURL,
		"aud":   audience,
		"iat":   iat,
		"exp":   iat + AssertionLifetime,
	})
	if account.PrivateKeyID != "" {
		token.Header["kid"] = account.PrivateKeyID
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}
