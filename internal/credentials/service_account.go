package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dvcrn/gcs-stream/internal/apperr"
)

// ErrInvalidServiceAccount marks an unreadable or malformed key file.
var ErrInvalidServiceAccount = errors.New("invalid service account file")

// LoadServiceAccount reads and validates the key file at path. Every failure
// is Fatal: a broken key file is misconfiguration, not something to retry.
func LoadServiceAccount(path string) (*ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.NewFatal(fmt.Errorf("%w: %s file not found: %w", ErrInvalidServiceAccount, path, err))
	}

	account := &ServiceAccount{}
	if err := json.Unmarshal(data, account); err != nil {
		return nil, apperr.NewFatal(fmt.Errorf("%w: %s is not a valid service account file: %w", ErrInvalidServiceAccount, path, err))
	}

	if account.Type != ServiceAccountType {
		return nil, apperr.NewFatal(fmt.Errorf("%w: the service account file %s is invalid, `type` is '%s' but should be '%s'",
			ErrInvalidServiceAccount, path, account.Type, ServiceAccountType))
	}

	if missing := account.missingFields(); len(missing) > 0 {
		return nil, apperr.NewFatal(fmt.Errorf("%w: %s is missing fields %v", ErrInvalidServiceAccount, path, missing))
	}

	return account, nil
}

func (s *ServiceAccount) missingFields() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"project_id", s.ProjectID},
		{"private_key_id", s.PrivateKeyID},
		{"private_key", s.PrivateKey},
		{"client_email", s.ClientEmail},
		{"client_id", s.ClientID},
		{"auth_uri", s.AuthURI},
		{"token_uri", s.TokenURI},
		{"auth_provider_x509_cert_url", s.AuthProviderX509CertURL},
		{"client_x509_cert_url", s.ClientX509CertURL},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
