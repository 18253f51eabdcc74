package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/directus-client/internal/auth"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type identityServer struct {
	*httptest.Server

	logins    atomic.Int32
	refreshes atomic.Int32

	// loginDelay slows the login endpoint down to widen race windows.
	loginDelay time.Duration
	// failRefreshes makes the first n refresh calls fail.
	failRefreshes atomic.Int32

	mu               sync.Mutex
	lastRefreshToken string
}

func newIdentityServer(t *testing.T) *identityServer {
	t.Helper()

	srv := &identityServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body["email"] != "admin@example.com" || body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errors":[{"message":"Invalid user credentials.","extensions":{"code":"INVALID_CREDENTIALS"}}]}`))

			return
		}

		if srv.loginDelay > 0 {
			time.Sleep(srv.loginDelay)
		}

		n := srv.logins.Add(1)
		writeTokens(w, n, 0)
	})

	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		srv.mu.Lock()
		srv.lastRefreshToken = body["refresh_token"]
		srv.mu.Unlock()

		if srv.failRefreshes.Load() > 0 {
			srv.failRefreshes.Add(-1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errors":[{"message":"Invalid token"}]}`))

			return
		}

		n := srv.refreshes.Add(1)
		writeTokens(w, srv.logins.Load(), n)
	})

	srv.Server = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func (s *identityServer) LastRefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastRefreshToken
}

func writeTokens(w http.ResponseWriter, login, refresh int32) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"data": map[string]interface{}{
			"access_token":  fmt.Sprintf("access-%d-%d", login, refresh),
			"refresh_token": fmt.Sprintf("refresh-%d-%d", login, refresh),
			"expires":       900000,
		},
	})
}

func newPasswordManager(t *testing.T, baseURL string, clock *fakeClock, opts ...auth.Option) *auth.SessionManager {
	t.Helper()

	opts = append(opts, auth.WithClock(clock.Now))

	manager, err := auth.NewSessionManager(baseURL, auth.PasswordCredential{
		Email:    "admin@example.com",
		Password: "secret",
	}, opts...)
	require.NoError(t, err)

	return manager
}

func TestSessionManager_LogsInOnceAndCaches(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t)
	clock := newFakeClock()
	manager := newPasswordManager(t, srv.URL, clock)

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1-0", token)

	clock.Advance(14 * time.Minute)

	token, err = manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1-0", token)

	assert.Equal(t, int32(1), srv.logins.Load())
	assert.Equal(t, int32(0), srv.refreshes.Load())

	session := manager.Token()
	assert.Equal(t, "refresh-1-0", session.RefreshToken)
	assert.Equal(t, 15*time.Minute, session.ExpiresIn)
}

func TestSessionManager_RefreshesAtExpiry(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t)
	clock := newFakeClock()
	manager := newPasswordManager(t, srv.URL, clock)

	_, err := manager.GetToken(context.Background())
	require.NoError(t, err)

	// expiry is inclusive
	clock.Advance(15 * time.Minute)

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1-1", token)
	assert.Equal(t, "refresh-1-0", srv.LastRefreshToken())
	assert.Equal(t, int32(1), srv.logins.Load())
	assert.Equal(t, int32(1), srv.refreshes.Load())
	assert.Equal(t, clock.Now(), manager.Token().IssuedAt)
}

func TestSessionManager_RefreshFailureKeepsSession(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t)
	srv.failRefreshes.Store(1)

	clock := newFakeClock()
	manager := newPasswordManager(t, srv.URL, clock)

	_, err := manager.GetToken(context.Background())
	require.NoError(t, err)

	clock.Advance(16 * time.Minute)

	_, err = manager.GetToken(context.Background())
	require.Error(t, err)

	var authErr *directus.AuthenticationError

	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "refresh", authErr.Operation)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	require.Len(t, authErr.Errors, 1)
	assert.Equal(t, "Invalid token", authErr.Errors[0].Message)
	assert.True(t, directus.IsUnauthorized(err))

	// the old session survives and the next call tries to refresh again
	assert.Equal(t, "access-1-0", manager.Token().AccessToken)
	assert.Equal(t, "refresh-1-0", manager.Token().RefreshToken)

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1-1", token)
	assert.Equal(t, int32(1), srv.logins.Load())
}

func TestSessionManager_ConcurrentCallersShareOneLogin(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t)
	srv.loginDelay = 50 * time.Millisecond

	clock := newFakeClock()
	manager := newPasswordManager(t, srv.URL, clock)

	const workers = 20

	var wg sync.WaitGroup

	tokens := make([]string, workers)
	errs := make([]error, workers)

	for i := range workers {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			tokens[i], errs[i] = manager.GetToken(context.Background())
		}(i)
	}

	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, "access-1-0", tokens[i])
	}

	assert.Equal(t, int32(1), srv.logins.Load())
}

func TestSessionManager_ConcurrentCallersShareOneRefresh(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t)
	clock := newFakeClock()
	manager := newPasswordManager(t, srv.URL, clock)

	_, err := manager.GetToken(context.Background())
	require.NoError(t, err)

	clock.Advance(time.Hour)

	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			token, err := manager.GetToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "access-1-1", token)
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), srv.refreshes.Load())
}

func TestSessionManager_LoginErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		message  string
		cause    error
		contains string
	}{
		{
			name:    "errors envelope",
			status:  http.StatusUnauthorized,
			body:    `{"errors":[{"message":"Invalid user credentials."}]}`,
			message: "Invalid user credentials.",
		},
		{
			name:    "errors envelope on success status",
			status:  http.StatusOK,
			body:    `{"errors":[{"message":"Something odd"}]}`,
			message: "Something odd",
		},
		{
			name:     "non JSON failure",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			cause:    directus.ErrMissingErrorEnvelope,
			contains: "parsing login response: invalid character",
		},
		{
			name:   "JSON failure without errors envelope",
			status: http.StatusBadGateway,
			body:   `{"status":"down"}`,
			cause:  directus.ErrMissingErrorEnvelope,
		},
		{
			name:   "missing access token",
			status: http.StatusOK,
			body:   `{"data":{"refresh_token":"r","expires":1000}}`,
			cause:  directus.ErrMissingAccessToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			manager := newPasswordManager(t, server.URL, newFakeClock())

			_, err := manager.GetToken(context.Background())
			require.Error(t, err)

			var authErr *directus.AuthenticationError

			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, "login", authErr.Operation)
			assert.Equal(t, tt.status, authErr.StatusCode)

			if tt.message != "" {
				require.NotEmpty(t, authErr.Errors)
				assert.Equal(t, tt.message, authErr.Errors[0].Message)
			}

			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}

			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestSessionManager_InvalidJSONSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	manager := newPasswordManager(t, server.URL, newFakeClock())

	_, err := manager.GetToken(context.Background())

	var authErr *directus.AuthenticationError

	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "parsing login response")
}

func TestSessionManager_TransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	manager := newPasswordManager(t, baseURL, newFakeClock())

	_, err := manager.GetToken(context.Background())

	var transportErr *directus.TransportError

	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.MethodPost, transportErr.Method)
	assert.Equal(t, baseURL+"/auth/login", transportErr.URL)
}

func TestSessionManager_ResumedSessionRefreshesWithoutLogin(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t)
	clock := newFakeClock()

	manager, err := auth.NewSessionManager(srv.URL, auth.SessionCredential{
		Token: directus.SessionToken{RefreshToken: "persisted-refresh"},
	}, auth.WithClock(clock.Now))
	require.NoError(t, err)

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-0-1", token)
	assert.Equal(t, "persisted-refresh", srv.LastRefreshToken())
	assert.Equal(t, int32(0), srv.logins.Load())
}

func TestSessionManager_ResumedSessionReusesValidAccessToken(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t)
	clock := newFakeClock()

	manager, err := auth.NewSessionManager(srv.URL, auth.SessionCredential{
		Token: directus.SessionToken{
			AccessToken:  "persisted-access",
			RefreshToken: "persisted-refresh",
			IssuedAt:     clock.Now(),
			ExpiresIn:    time.Minute,
		},
	}, auth.WithClock(clock.Now))
	require.NoError(t, err)

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "persisted-access", token)
	assert.Equal(t, int32(0), srv.refreshes.Load())
}

func TestSessionManager_ForceRefresh(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t)
	clock := newFakeClock()
	manager := newPasswordManager(t, srv.URL, clock)

	// without a session, forcing a renewal logs in
	require.NoError(t, manager.ForceRefresh(context.Background()))
	assert.Equal(t, int32(1), srv.logins.Load())

	require.NoError(t, manager.ForceRefresh(context.Background()))
	assert.Equal(t, int32(1), srv.refreshes.Load())
	assert.Equal(t, "access-1-1", manager.Token().AccessToken)
}

func TestSessionManager_RefreshBodyCarriesOnlyRefreshToken(t *testing.T) {
	t.Parallel()

	bodies := make(chan map[string]interface{}, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/refresh", r.URL.Path)

		var body map[string]interface{}

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body

		writeTokens(w, 0, 1)
	}))
	defer server.Close()

	manager, err := auth.NewSessionManager(server.URL, auth.SessionCredential{
		Token: directus.SessionToken{RefreshToken: "persisted-refresh"},
	})
	require.NoError(t, err)

	_, err = manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"refresh_token": "persisted-refresh"}, <-bodies)
}

func TestSessionManager_CancelledCallerDoesNotFailSharedLogin(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t)
	srv.loginDelay = 200 * time.Millisecond

	manager := newPasswordManager(t, srv.URL, newFakeClock())

	var (
		wg       sync.WaitGroup
		shortErr error
		token    string
		err      error
	)

	wg.Add(2)

	go func() {
		defer wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, shortErr = manager.GetToken(ctx)
	}()

	// let the short-lived caller start the exchange
	time.Sleep(10 * time.Millisecond)

	go func() {
		defer wg.Done()

		token, err = manager.GetToken(context.Background())
	}()

	wg.Wait()

	require.ErrorIs(t, shortErr, context.DeadlineExceeded)
	require.NoError(t, err)
	assert.Equal(t, "access-1-0", token)
	assert.Equal(t, int32(1), srv.logins.Load())
}

func TestSessionManager_ForceRefreshHonoursCallerContext(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t)
	srv.loginDelay = 100 * time.Millisecond

	manager := newPasswordManager(t, srv.URL, newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := manager.ForceRefresh(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// the detached exchange still completes and later callers reuse it
	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1-0", token)
	assert.Equal(t, int32(1), srv.logins.Load())
}

type recordingPersister struct {
	mu       sync.Mutex
	hostname string
	tokens   []directus.SessionToken
	err      error
}

func (p *recordingPersister) PersistToken(ctx context.Context, hostname string, token directus.SessionToken) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.hostname = hostname
	p.tokens = append(p.tokens, token)

	return p.err
}

func TestSessionManager_PersistsNewTokens(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t)
	clock := newFakeClock()
	persister := &recordingPersister{}
	manager := newPasswordManager(t, srv.URL+"/", clock, auth.WithPersister(persister))

	_, err := manager.GetToken(context.Background())
	require.NoError(t, err)

	clock.Advance(time.Hour)

	_, err = manager.GetToken(context.Background())
	require.NoError(t, err)

	require.Len(t, persister.tokens, 2)
	assert.Equal(t, srv.URL, persister.hostname)
	assert.Equal(t, "access-1-0", persister.tokens[0].AccessToken)
	assert.Equal(t, "access-1-1", persister.tokens[1].AccessToken)
}

func TestSessionManager_PersistFailureDoesNotFailRequest(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t)
	persister := &recordingPersister{err: errors.New("disk full")}
	manager := newPasswordManager(t, srv.URL, newFakeClock(), auth.WithPersister(persister))

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1-0", token)
}

func TestNewSessionManager_RejectsInvalidCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		credential auth.Credential
	}{
		{name: "missing password", credential: auth.PasswordCredential{Email: "a@example.com"}},
		{name: "empty session", credential: auth.SessionCredential{}},
		{name: "static token", credential: auth.StaticCredential{Token: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := auth.NewSessionManager("https://cms.example.com", tt.credential)

			var configErr *directus.ConfigurationError

			assert.ErrorAs(t, err, &configErr)
		})
	}
}
