package credentials

// ServiceAccount is a deserialized service-account key file.
type ServiceAccount struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
}

// AccessToken is the response of both the OAuth token endpoint and the
// metadata server.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// tokenRequest is the JSON body posted to the OAuth token endpoint.
type tokenRequest struct {
	GrantType string `json:"grant_type"`
	Assertion string `json:"assertion"`
}

// Scope is the suffix of a Cloud Storage OAuth scope.
type Scope string

const (
	ScopeReadOnly  Scope = "devstorage.read_only"
	ScopeReadWrite Scope = "devstorage.read_write"
)

const (
	ServiceAccountType = "service_account"
	JWTBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// MetadataFlavorHeader must accompany every metadata server request.
	MetadataFlavorHeader = "Metadata-Flavor"
	MetadataFlavorGoogle = "Google"

	// AssertionLifetime is the longest lifetime the token endpoint accepts.
	AssertionLifetime = 3600
)
