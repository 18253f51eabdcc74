package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/fivetwenty-io/directus-client/pkg/directus"
)

// Static errors for err113 compliance.
var (
	ErrNoConfigPersister = errors.New("no config persister configured")
)

// ConfigPersister defines the interface for persisting session changes to a config file.
type ConfigPersister interface {
	UpdateSession(hostname string, token directus.SessionToken) error
}

// ConfigTokenPersister adapts a ConfigPersister to directus.TokenPersister.
type ConfigTokenPersister struct {
	configPersister ConfigPersister
}

// NewConfigTokenPersister creates a new config-backed token persister.
func NewConfigTokenPersister(configPersister ConfigPersister) *ConfigTokenPersister {
	return &ConfigTokenPersister{configPersister: configPersister}
}

// PersistToken saves the token to config.
func (p *ConfigTokenPersister) PersistToken(ctx context.Context, hostname string, token directus.SessionToken) error {
	if p.configPersister == nil {
		return ErrNoConfigPersister
	}

	err := p.configPersister.UpdateSession(hostname, token)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return nil
}

// MultiPersister fans a token out to several persisters. Every persister is
// tried; the first failure is returned.
type MultiPersister []directus.TokenPersister

// PersistToken implements directus.TokenPersister.
func (p MultiPersister) PersistToken(ctx context.Context, hostname string, token directus.SessionToken) error {
	var firstErr error

	for _, persister := range p {
		if persister == nil {
			continue
		}

		err := persister.PersistToken(ctx, hostname, token)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
