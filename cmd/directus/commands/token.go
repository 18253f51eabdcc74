package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fivetwenty-io/directus-client/internal/client"
	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// TokenStatus describes the saved session of a host.
type TokenStatus struct {
	Host          string     `json:"host"                     yaml:"host"`
	Email         string     `json:"email,omitempty"          yaml:"email,omitempty"`
	AccessToken   string     `json:"access_token"             yaml:"access_token"`
	RefreshToken  string     `json:"refresh_token"            yaml:"refresh_token"`
	IssuedAt      time.Time  `json:"issued_at"                yaml:"issued_at"`
	ExpiresAt     time.Time  `json:"expires_at"               yaml:"expires_at"`
	Expired       bool       `json:"expired"                  yaml:"expired"`
	LastRefreshed *time.Time `json:"last_refreshed,omitempty" yaml:"last_refreshed,omitempty"`
}

// NewTokenCommand creates the token command group.
func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the saved session",
		Long:  "Inspect and renew the session saved for the current host",
	}

	cmd.AddCommand(newTokenStatusCommand())
	cmd.AddCommand(newTokenRefreshCommand())

	return cmd
}

func newTokenStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session status",
		Long:  "Display the saved session of the current host with tokens masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			baseURL, hostConfig, err := selectHost(config)
			if err != nil {
				return err
			}

			if hostConfig.Session == nil {
				return fmt.Errorf("%s: %w", baseURL, constants.ErrNotAuthenticated)
			}

			return displayTokenStatus(cmd, buildTokenStatus(baseURL, hostConfig, time.Now()))
		},
	}
}

func newTokenRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Renew the session",
		Long:  "Exchange the saved refresh token for a new session and save it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			config, err := loadConfig()
			if err != nil {
				return err
			}

			baseURL, hostConfig, err := selectHost(config)
			if err != nil {
				return err
			}

			token, err := refreshSession(ctx, cmd, config, baseURL, hostConfig)
			if err != nil {
				return err
			}

			hostConfig.Session = &token

			return displayTokenStatus(cmd, buildTokenStatus(baseURL, hostConfig, time.Now()))
		},
	}
}

// refreshSession forces a refresh of the saved session and stores the result.
func refreshSession(ctx context.Context, cmd *cobra.Command, config *Config, baseURL string,
	hostConfig *HostConfig,
) (directus.SessionToken, error) {
	opts := effectiveSettings(config)

	store, err := openTokenStore(opts)
	if err != nil {
		return directus.SessionToken{}, err
	}

	if store != nil {
		defer store.Close()
	}

	saved, err := resolveSession(hostConfig, store, baseURL)
	if err != nil {
		return directus.SessionToken{}, err
	}

	clientCfg, err := clientConfig(newLogger(cmd, opts, baseURL), opts, baseURL)
	if err != nil {
		return directus.SessionToken{}, err
	}

	directusClient, err := client.NewWithSession(ctx, clientCfg, *saved)
	if err != nil {
		return directus.SessionToken{}, fmt.Errorf("failed to resume session: %w", err)
	}

	err = directusClient.RefreshToken(ctx)
	if err != nil {
		return directus.SessionToken{}, err
	}

	token, err := currentSession(directusClient)
	if err != nil {
		return directus.SessionToken{}, err
	}

	err = NewConfigPersister().UpdateSession(baseURL, token)
	if err != nil {
		return directus.SessionToken{}, err
	}

	if store != nil {
		err = store.PersistToken(ctx, baseURL, token)
		if err != nil {
			return directus.SessionToken{}, err
		}
	}

	return token, nil
}

func buildTokenStatus(baseURL string, hostConfig *HostConfig, now time.Time) TokenStatus {
	token := hostConfig.Session

	return TokenStatus{
		Host:          baseURL,
		Email:         hostConfig.Email,
		AccessToken:   maskToken(token.AccessToken),
		RefreshToken:  maskToken(token.RefreshToken),
		IssuedAt:      token.IssuedAt,
		ExpiresAt:     token.ExpiresAt(),
		Expired:       token.Expired(now),
		LastRefreshed: hostConfig.LastRefreshed,
	}
}

func displayTokenStatus(cmd *cobra.Command, status TokenStatus) error {
	return render(cmd, status, func(table *tablewriter.Table) {
		table.Header("Property", "Value")
		_ = table.Append("Host", status.Host)
		_ = table.Append("Email", stringValue(status.Email))
		_ = table.Append("Access Token", status.AccessToken)
		_ = table.Append("Refresh Token", status.RefreshToken)
		_ = table.Append("Issued At", stringValue(status.IssuedAt))
		_ = table.Append("Expires At", stringValue(status.ExpiresAt))
		_ = table.Append("Expired", strconv.FormatBool(status.Expired))
		_ = table.Append("Last Refreshed", stringValue(status.LastRefreshed))
	})
}
