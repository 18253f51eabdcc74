package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"golang.org/x/sync/singleflight"
)

const (
	operationLogin   = "login"
	operationRefresh = "refresh"

	flightKey = "token"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// Expires is the access token lifetime in milliseconds.
	Expires int64 `json:"expires"`
}

// SessionManager obtains and renews access tokens through the Directus identity
// endpoints. It logs in lazily on the first GetToken call and refreshes once the
// access token has expired. Concurrent callers share one exchange.
type SessionManager struct {
	baseURL    string
	credential Credential
	httpClient *http.Client
	logger     directus.Logger
	persister  directus.TokenPersister
	now        func() time.Time

	mutex sync.RWMutex
	token directus.SessionToken

	group singleflight.Group
}

// NewSessionManager creates a session manager for a password or resumed session credential.
func NewSessionManager(baseURL string, credential Credential, opts ...Option) (*SessionManager, error) {
	manager := &SessionManager{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		credential: credential,
		logger:     directus.NopLogger{},
		now:        time.Now,
	}

	switch cred := credential.(type) {
	case PasswordCredential:
		if cred.Email == "" || cred.Password == "" {
			return nil, &directus.ConfigurationError{Err: directus.ErrIncompleteCredentials}
		}
	case SessionCredential:
		if cred.Token.RefreshToken == "" && cred.Token.AccessToken == "" {
			return nil, &directus.ConfigurationError{Err: directus.ErrNoCredentials}
		}

		manager.token = cred.Token
	default:
		return nil, &directus.ConfigurationError{Err: directus.ErrNoCredentials}
	}

	for _, opt := range opts {
		opt(manager)
	}

	if manager.httpClient == nil {
		manager.httpClient = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}

	return manager, nil
}

// GetToken returns a valid access token, logging in or refreshing if necessary.
func (m *SessionManager) GetToken(ctx context.Context) (string, error) {
	now := m.now()

	m.mutex.RLock()
	token := m.token
	m.mutex.RUnlock()

	if !token.Expired(now) {
		return token.AccessToken, nil
	}

	return m.await(ctx, now, false)
}

// ForceRefresh renews the session even if the access token is still valid.
// Without any session yet it logs in.
func (m *SessionManager) ForceRefresh(ctx context.Context) error {
	_, err := m.await(ctx, m.now(), true)

	return err
}

// await joins the shared exchange. The exchange runs detached from the caller
// that started it, and each caller stops waiting when its own context is done.
func (m *SessionManager) await(ctx context.Context, now time.Time, force bool) (string, error) {
	results := m.group.DoChan(flightKey, func() (interface{}, error) {
		return m.renew(context.WithoutCancel(ctx), now, force)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case result := <-results:
		if result.Err != nil {
			return "", result.Err
		}

		accessToken, _ := result.Val.(string)

		return accessToken, nil
	}
}

// Token returns a copy of the current session state.
func (m *SessionManager) Token() directus.SessionToken {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.token
}

func (m *SessionManager) renew(ctx context.Context, now time.Time, force bool) (string, error) {
	m.mutex.RLock()
	current := m.token
	m.mutex.RUnlock()

	// a flight that finished while we were waiting may already have renewed it
	if !force && !current.Expired(now) {
		return current.AccessToken, nil
	}

	var (
		operation string
		payload   interface{}
	)

	password, canLogin := m.credential.(PasswordCredential)

	switch {
	case current.RefreshToken != "" && (current.AccessToken != "" || !canLogin):
		operation = operationRefresh
		payload = refreshRequest{RefreshToken: current.RefreshToken}
	case canLogin:
		operation = operationLogin
		payload = loginRequest{Email: password.Email, Password: password.Password}
	default:
		return "", &directus.AuthenticationError{Operation: operationRefresh, Cause: directus.ErrNoCredentials}
	}

	fresh, err := m.exchange(ctx, operation, payload, now)
	if err != nil {
		m.logger.Warn("Session exchange failed", map[string]interface{}{
			"operation": operation,
			"error":     err.Error(),
		})

		return "", err
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = current.RefreshToken
	}

	m.mutex.Lock()
	m.token = fresh
	m.mutex.Unlock()

	m.logger.Debug("Session renewed", map[string]interface{}{
		"operation":  operation,
		"expires_at": fresh.ExpiresAt().Format(time.RFC3339),
	})

	m.persist(ctx, fresh)

	return fresh.AccessToken, nil
}

func (m *SessionManager) exchange(ctx context.Context, operation string, payload interface{}, now time.Time) (directus.SessionToken, error) {
	endpoint := m.baseURL + "/auth/" + operation

	body, err := json.Marshal(payload)
	if err != nil {
		return directus.SessionToken{}, fmt.Errorf("marshaling %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return directus.SessionToken{}, fmt.Errorf("creating %s request: %w", operation, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return directus.SessionToken{}, &directus.TransportError{Method: http.MethodPost, URL: endpoint, Err: err}
	}

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return directus.SessionToken{}, &directus.TransportError{Method: http.MethodPost, URL: endpoint, Err: err}
	}

	if envelope, ok := directus.ParseErrorEnvelope(raw); ok {
		return directus.SessionToken{}, &directus.AuthenticationError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Errors:     envelope.Errors,
		}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		cause := directus.ErrMissingErrorEnvelope

		var discard json.RawMessage

		err = json.Unmarshal(raw, &discard)
		if err != nil {
			cause = fmt.Errorf("%w: parsing %s response: %w", directus.ErrMissingErrorEnvelope, operation, err)
		}

		return directus.SessionToken{}, &directus.AuthenticationError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Cause:      cause,
		}
	}

	var parsed directus.DataEnvelope[tokenData]

	err = json.Unmarshal(raw, &parsed)
	if err != nil {
		return directus.SessionToken{}, &directus.AuthenticationError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("parsing %s response: %w", operation, err),
		}
	}

	if parsed.Data.AccessToken == "" {
		return directus.SessionToken{}, &directus.AuthenticationError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Cause:      directus.ErrMissingAccessToken,
		}
	}

	return directus.SessionToken{
		AccessToken:  parsed.Data.AccessToken,
		RefreshToken: parsed.Data.RefreshToken,
		IssuedAt:     now,
		ExpiresIn:    time.Duration(parsed.Data.Expires) * time.Millisecond,
	}, nil
}

func (m *SessionManager) persist(ctx context.Context, token directus.SessionToken) {
	if m.persister == nil {
		return
	}

	err := m.persister.PersistToken(ctx, m.baseURL, token)
	if err != nil {
		m.logger.Warn("Failed to persist session token", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
