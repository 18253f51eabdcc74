package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/fivetwenty-io/directus-client/pkg/directus"
)

// TokenManager produces the bearer token attached to each outgoing request.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
}

// Refresher is implemented by token managers that can renew on demand.
type Refresher interface {
	ForceRefresh(ctx context.Context) error
}

// StaticTokenManager provides a static token.
type StaticTokenManager struct {
	token string
}

// NewStaticTokenManager creates a token manager that always returns token.
func NewStaticTokenManager(token string) *StaticTokenManager {
	return &StaticTokenManager{token: token}
}

// GetToken returns the configured token without any network call.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	return m.token, nil
}

// ForceRefresh always fails, static tokens have no renewal path.
func (m *StaticTokenManager) ForceRefresh(ctx context.Context) error {
	return directus.ErrStaticTokenCannotRefresh
}

// Option configures a SessionManager.
type Option func(*SessionManager)

// WithHTTPClient sets the client used for the identity endpoints.
func WithHTTPClient(client *http.Client) Option {
	return func(m *SessionManager) {
		m.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger directus.Logger) Option {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPersister hands every new token to persister.
func WithPersister(persister directus.TokenPersister) Option {
	return func(m *SessionManager) {
		m.persister = persister
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *SessionManager) {
		m.now = now
	}
}

// NewTokenManager builds the token manager matching credential.
func NewTokenManager(baseURL string, credential Credential, opts ...Option) (TokenManager, error) {
	if static, ok := credential.(StaticCredential); ok {
		if static.Token == "" {
			return nil, &directus.ConfigurationError{Err: directus.ErrNoCredentials}
		}

		return NewStaticTokenManager(static.Token), nil
	}

	return NewSessionManager(baseURL, credential, opts...)
}
