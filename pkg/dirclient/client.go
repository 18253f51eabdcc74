package dirclient

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/directus-client/internal/client"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
)

// New creates a new Directus API client. A hostname without scheme defaults to https.
// Password credentials are exchanged lazily, on the first request.
func New(ctx context.Context, config *directus.Config) (directus.Client, error) {
	c, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithToken creates a new client with a hostname and static token.
func NewWithToken(ctx context.Context, hostname, token string) (directus.Client, error) {
	return New(ctx, &directus.Config{
		Hostname:    hostname,
		StaticToken: token,
	})
}

// NewWithPassword creates a new client using e-mail/password authentication.
func NewWithPassword(ctx context.Context, hostname, email, password string) (directus.Client, error) {
	return New(ctx, &directus.Config{
		Hostname: hostname,
		Username: email,
		Password: password,
	})
}

// NewWithSession creates a new client that resumes a persisted session.
// Tokens renewed later are handed to config.TokenPersister when set.
func NewWithSession(ctx context.Context, config *directus.Config, token directus.SessionToken) (directus.Client, error) {
	c, err := client.NewWithSession(ctx, config, token)
	if err != nil {
		return nil, fmt.Errorf("failed to resume session: %w", err)
	}

	return c, nil
}
