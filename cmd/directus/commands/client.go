package commands

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/directus-client/internal/auth"
	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/internal/logging"
	"github.com/fivetwenty-io/directus-client/pkg/dirclient"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// settings are the global options after flags and environment variables
// have been layered over the configuration file.
type settings struct {
	TLSVerify  bool
	RateLimit  float64
	RetryMax   int
	NATSURL    string
	NATSBucket string
	Verbose    bool
}

func effectiveSettings(config *Config) settings {
	result := settings{
		TLSVerify:  config.TLSVerify,
		RateLimit:  config.RateLimit,
		RetryMax:   config.RetryMax,
		NATSURL:    config.NATSURL,
		NATSBucket: config.NATSBucket,
		Verbose:    viper.GetBool("verbose"),
	}

	if viper.IsSet("tls_verify") {
		result.TLSVerify = viper.GetBool("tls_verify")
	}

	if viper.IsSet("rate_limit") {
		result.RateLimit = viper.GetFloat64("rate_limit")
	}

	if viper.IsSet("retry_max") {
		result.RetryMax = viper.GetInt("retry_max")
	}

	if viper.IsSet("nats_url") {
		result.NATSURL = viper.GetString("nats_url")
	}

	if viper.IsSet("nats_bucket") {
		result.NATSBucket = viper.GetString("nats_bucket")
	}

	return result
}

// session is a client bound to one host together with the resources
// opened to build it.
type session struct {
	client  directus.Client
	baseURL string
	store   *auth.NATSTokenStore
}

// Close releases the NATS connection, if any.
func (s *session) Close() {
	if s.store != nil {
		s.store.Close()
	}
}

// newLogger builds the diagnostic logger for cmd, writing to its error stream.
func newLogger(cmd *cobra.Command, opts settings, baseURL string) *logging.Logger {
	logger := logging.New(logging.Options{Output: cmd.ErrOrStderr(), Verbose: opts.Verbose})

	return logger.With(map[string]interface{}{"host": baseURL})
}

// clientConfig builds the library configuration shared by every command.
func clientConfig(logger *logging.Logger, opts settings, baseURL string) (*directus.Config, error) {
	chain := directus.NewInterceptorChain()

	if opts.RateLimit > 0 {
		limiter, err := directus.RateLimitInterceptor(opts.RateLimit, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to configure rate limit: %w", err)
		}

		chain.AddRequestInterceptor(limiter)
	}

	if opts.Verbose {
		metrics := directus.NewMetricsCollector()
		metrics.SetOnChange(func(endpoint string, m directus.Metrics) {
			logger.Debug("endpoint metrics", map[string]interface{}{
				"endpoint": endpoint,
				"requests": m.TotalRequests,
				"errors":   m.TotalErrors,
				"average":  m.AverageLatency.String(),
			})
		})
		metrics.Install(chain)
	}

	return &directus.Config{
		Hostname:     baseURL,
		TLSVerify:    opts.TLSVerify,
		Logger:       logger,
		Debug:        opts.Verbose,
		RetryMax:     opts.RetryMax,
		RetryWaitMin: constants.DefaultRetryWaitMin,
		RetryWaitMax: constants.DefaultRetryWaitMax,
		Interceptors: chain,
	}, nil
}

// openTokenStore connects to the NATS bucket when one is configured.
func openTokenStore(opts settings) (*auth.NATSTokenStore, error) {
	if opts.NATSURL == "" {
		return nil, nil //nolint:nilnil
	}

	store, err := auth.NewNATSTokenStore(&auth.NATSKVConfig{URL: opts.NATSURL, Bucket: opts.NATSBucket})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	return store, nil
}

// sessionPersister writes renewed sessions to the config file and, when
// configured, to the NATS bucket.
func sessionPersister(store *auth.NATSTokenStore) directus.TokenPersister {
	persisters := auth.MultiPersister{auth.NewConfigTokenPersister(NewConfigPersister())}
	if store != nil {
		persisters = append(persisters, store)
	}

	return persisters
}

// resolveSession picks the newest of the saved and shared sessions.
func resolveSession(hostConfig *HostConfig, store *auth.NATSTokenStore, baseURL string) (*directus.SessionToken, error) {
	token := hostConfig.Session

	if store != nil {
		shared, err := store.LoadToken(baseURL)
		if err != nil {
			return nil, err
		}

		if shared != nil && (token == nil || shared.IssuedAt.After(token.IssuedAt)) {
			token = shared
		}
	}

	if token == nil {
		return nil, constants.ErrNotAuthenticated
	}

	if token.RefreshToken == "" {
		return nil, constants.ErrNoRefreshToken
	}

	return token, nil
}

// createClient builds a client for the selected host. --token takes
// precedence over a saved session.
func createClient(ctx context.Context, cmd *cobra.Command) (*session, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}

	baseURL, hostConfig, err := selectHost(config)
	if err != nil {
		return nil, err
	}

	opts := effectiveSettings(config)
	logger := newLogger(cmd, opts, baseURL)

	clientCfg, err := clientConfig(logger, opts, baseURL)
	if err != nil {
		return nil, err
	}

	if token := viper.GetString("token"); token != "" {
		clientCfg.StaticToken = token

		client, err := dirclient.New(ctx, clientCfg)
		if err != nil {
			return nil, err
		}

		return &session{client: client, baseURL: baseURL}, nil
	}

	store, err := openTokenStore(opts)
	if err != nil {
		return nil, err
	}

	result := &session{baseURL: baseURL, store: store}

	token, err := resolveSession(hostConfig, store, baseURL)
	if err != nil {
		result.Close()

		return nil, err
	}

	clientCfg.TokenPersister = sessionPersister(store)

	result.client, err = dirclient.NewWithSession(ctx, clientCfg, *token)
	if err != nil {
		result.Close()

		return nil, err
	}

	return result, nil
}

// commandContext returns the context cobra was executed with.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

// withClient runs fn with a client for the selected host.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, client directus.Client) error) error {
	ctx := commandContext(cmd)

	current, err := createClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer current.Close()

	return fn(ctx, current.client)
}
