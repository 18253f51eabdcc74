package client

import (
	"context"
	"strings"

	"github.com/fivetwenty-io/directus-client/internal/auth"
	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/internal/http"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
)

// Client implements the directus.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	baseURL      string
	logger       directus.Logger

	// Resource clients
	files    directus.FilesClient
	folders  directus.FoldersClient
	activity directus.ActivityClient
}

// validateConfig checks the options that do not depend on credentials.
func validateConfig(config *directus.Config) error {
	if config == nil {
		return &directus.ConfigurationError{Err: directus.ErrConfigRequired}
	}

	if config.Hostname == "" {
		return &directus.ConfigurationError{Err: directus.ErrHostnameRequired}
	}

	return nil
}

// normalizeBaseURL strips trailing slashes and defaults the scheme to https.
func normalizeBaseURL(hostname string) string {
	baseURL := strings.TrimRight(hostname, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = constants.DefaultScheme + baseURL
	}

	return baseURL
}

// authOptions builds the session manager options shared by every credential.
func authOptions(config *directus.Config) []auth.Option {
	opts := []auth.Option{
		auth.WithHTTPClient(http.NewHTTPClient(config.TLSVerify, config.HTTPTimeout)),
	}

	if config.Logger != nil {
		opts = append(opts, auth.WithLogger(config.Logger))
	}

	if config.TokenPersister != nil {
		opts = append(opts, auth.WithPersister(config.TokenPersister))
	}

	return opts
}

// createTokenManager creates the token manager matching the configured credential.
func createTokenManager(config *directus.Config, baseURL string) (auth.TokenManager, error) {
	credential, err := auth.CredentialFromConfig(config.StaticToken, config.Username, config.Password)
	if err != nil {
		return nil, err
	}

	return auth.NewTokenManager(baseURL, credential, authOptions(config)...)
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *directus.Config) []http.Option {
	httpOpts := []http.Option{
		http.WithHTTPClient(http.NewHTTPClient(config.TLSVerify, config.HTTPTimeout)),
	}

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.Interceptors != nil {
		httpOpts = append(httpOpts, http.WithInterceptors(config.Interceptors))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// New creates a new Directus client. No network call is made; the first
// request authenticates when a username and password are configured.
func New(_ context.Context, config *directus.Config) (*Client, error) {
	err := validateConfig(config)
	if err != nil {
		return nil, err
	}

	baseURL := normalizeBaseURL(config.Hostname)

	tokenManager, err := createTokenManager(config, baseURL)
	if err != nil {
		return nil, err
	}

	return newClient(config, baseURL, tokenManager), nil
}

// NewWithSession creates a client that resumes a session persisted by an earlier
// process. Credentials in config are ignored; the session is renewed through /auth/refresh only.
func NewWithSession(_ context.Context, config *directus.Config, token directus.SessionToken) (*Client, error) {
	err := validateConfig(config)
	if err != nil {
		return nil, err
	}

	baseURL := normalizeBaseURL(config.Hostname)

	manager, err := auth.NewSessionManager(baseURL, auth.SessionCredential{Token: token}, authOptions(config)...)
	if err != nil {
		return nil, err
	}

	return newClient(config, baseURL, manager), nil
}

func newClient(config *directus.Config, baseURL string, tokenManager auth.TokenManager) *Client {
	logger := config.Logger
	if logger == nil {
		logger = directus.NopLogger{}
	}

	httpClient := http.NewClient(baseURL, tokenManager, createHTTPClientOptions(config)...)

	return &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		baseURL:      baseURL,
		logger:       logger,
		files:        NewFilesClient(httpClient),
		folders:      NewFoldersClient(httpClient),
		activity:     NewActivityClient(httpClient),
	}
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// GetToken implements directus.Client.GetToken.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	if c.tokenManager == nil {
		return "", directus.ErrNoTokenManagerConfigured
	}

	return c.tokenManager.GetToken(ctx)
}

// RefreshToken renews the session immediately.
func (c *Client) RefreshToken(ctx context.Context) error {
	refresher, ok := c.tokenManager.(auth.Refresher)
	if !ok {
		return directus.ErrNoTokenManagerConfigured
	}

	c.logger.Debug("Refreshing session", map[string]interface{}{
		"base_url": c.baseURL,
	})

	return refresher.ForceRefresh(ctx)
}

// Resource client accessors

// Items implements directus.Client.Items.
func (c *Client) Items(collection string) directus.ItemsClient {
	return NewItemsClient(c.httpClient, collection)
}

// Files implements directus.Client.Files.
func (c *Client) Files() directus.FilesClient {
	return c.files
}

// Folders implements directus.Client.Folders.
func (c *Client) Folders() directus.FoldersClient {
	return c.folders
}

// Activity implements directus.Client.Activity.
func (c *Client) Activity() directus.ActivityClient {
	return c.activity
}

var _ directus.Client = (*Client)(nil)
