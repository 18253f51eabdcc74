package auth

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource adapts a TokenManager to oauth2.TokenSource so the session can
// back an oauth2.Transport or any library that accepts a token source.
type TokenSource struct {
	ctx     context.Context //nolint:containedctx
	manager TokenManager
}

// NewTokenSource creates an oauth2.TokenSource backed by manager.
func NewTokenSource(ctx context.Context, manager TokenManager) *TokenSource {
	return &TokenSource{ctx: ctx, manager: manager}
}

// Token implements oauth2.TokenSource.
func (s *TokenSource) Token() (*oauth2.Token, error) {
	accessToken, err := s.manager.GetToken(s.ctx)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}

	if session, ok := s.manager.(*SessionManager); ok {
		current := session.Token()
		if current.AccessToken == accessToken && current.ExpiresIn > 0 {
			token.Expiry = current.ExpiresAt()
			token.RefreshToken = current.RefreshToken
		}
	}

	return token, nil
}

var _ oauth2.TokenSource = (*TokenSource)(nil)
