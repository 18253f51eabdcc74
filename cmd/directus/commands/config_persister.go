package commands

import (
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/directus-client/internal/auth"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
)

// ConfigPersister implements the auth.ConfigPersister interface.
type ConfigPersister struct {
	mutex sync.Mutex
	now   func() time.Time
}

var _ auth.ConfigPersister = (*ConfigPersister)(nil)

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{now: time.Now}
}

// UpdateSession stores token on the host entry matching hostname.
func (p *ConfigPersister) UpdateSession(hostname string, token directus.SessionToken) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config, err := loadConfig()
	if err != nil {
		return err
	}

	hostConfig, exists := config.Hosts[hostKey(hostname)]
	if !exists {
		return fmt.Errorf("host configuration for '%s': %w", hostname, ErrHostConfigNotFound)
	}

	hostConfig.Session = &token

	now := p.now()
	hostConfig.LastRefreshed = &now

	return saveConfig(config)
}
