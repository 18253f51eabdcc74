package dirclient

import (
	"context"

	"github.com/fivetwenty-io/directus-client/internal/auth"
	"github.com/fivetwenty-io/directus-client/internal/client"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"golang.org/x/oauth2"
)

// TokenSource returns an oauth2.TokenSource backed by the client's session, for
// use with oauth2.NewClient when calling Directus endpoints the client does not
// wrap. Tokens carry an expiry and refresh token when the client manages a
// password or resumed session.
func TokenSource(ctx context.Context, c directus.Client) oauth2.TokenSource {
	if internal, ok := c.(*client.Client); ok {
		return auth.NewTokenSource(ctx, internal.GetTokenManager())
	}

	return auth.NewTokenSource(ctx, c)
}
