package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/fivetwenty-io/directus-client/internal/auth"
	"github.com/fivetwenty-io/directus-client/internal/client"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Static errors for err113 compliance.
var (
	ErrEmailRequired    = errors.New("e-mail is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrNoSessionManager = errors.New("client is not using a session")
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to a Directus instance",
		Long:  "Authenticate with e-mail and password and save the session for later commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			baseURL, _, err := selectHost(config)
			if err != nil {
				return err
			}

			reader := bufio.NewReader(cmd.InOrStdin())

			if email == "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), "Email: ")

				email, err = readLine(reader)
				if err != nil || email == "" {
					return ErrEmailRequired
				}
			}

			if password == "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), "Password: ")

				password, err = readPassword(cmd.InOrStdin(), reader)
				if err != nil {
					return err
				}

				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}

			if password == "" {
				return ErrPasswordRequired
			}

			token, err := login(cmd, config, baseURL, email, password)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s as %s (token expires %s)\n",
				baseURL, email, token.ExpiresAt().Format(time.RFC3339))

			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "e-mail address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")

	return cmd
}

// login exchanges the credentials for a session and saves it as the current host.
func login(cmd *cobra.Command, config *Config, baseURL, email, password string) (directus.SessionToken, error) {
	ctx := commandContext(cmd)
	opts := effectiveSettings(config)

	clientCfg, err := clientConfig(newLogger(cmd, opts, baseURL), opts, baseURL)
	if err != nil {
		return directus.SessionToken{}, err
	}

	clientCfg.Username = email
	clientCfg.Password = password

	directusClient, err := client.New(ctx, clientCfg)
	if err != nil {
		return directus.SessionToken{}, fmt.Errorf("failed to create client: %w", err)
	}

	_, err = directusClient.GetToken(ctx)
	if err != nil {
		return directus.SessionToken{}, fmt.Errorf("login failed: %w", err)
	}

	token, err := currentSession(directusClient)
	if err != nil {
		return directus.SessionToken{}, err
	}

	now := time.Now()
	key := hostKey(baseURL)
	config.Hosts[key] = &HostConfig{URL: baseURL, Email: email, Session: &token, LastRefreshed: &now}
	config.CurrentHost = key

	err = saveConfig(config)
	if err != nil {
		return directus.SessionToken{}, err
	}

	err = shareSession(ctx, opts, baseURL, token)
	if err != nil {
		return directus.SessionToken{}, err
	}

	return token, nil
}

func currentSession(directusClient *client.Client) (directus.SessionToken, error) {
	manager, ok := directusClient.GetTokenManager().(*auth.SessionManager)
	if !ok {
		return directus.SessionToken{}, ErrNoSessionManager
	}

	return manager.Token(), nil
}

// shareSession publishes token to the NATS bucket when one is configured.
func shareSession(ctx context.Context, opts settings, baseURL string, token directus.SessionToken) error {
	store, err := openTokenStore(opts)
	if err != nil || store == nil {
		return err
	}
	defer store.Close()

	return store.PersistToken(ctx, baseURL, token)
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// readPassword reads without echo when in is the terminal, or a plain line otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) (string, error) {
	if in == os.Stdin && term.IsTerminal(int(syscall.Stdin)) {
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}

		return string(bytePassword), nil
	}

	return readLine(reader)
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Long:  "Remove the saved session of the current host from the configuration file and the shared session store",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			baseURL, _, err := selectHost(config)
			if err != nil {
				return err
			}

			hostConfig, ok := config.Hosts[hostKey(baseURL)]
			if !ok {
				return fmt.Errorf("host '%s': %w", baseURL, ErrHostConfigNotFound)
			}

			hostConfig.Session = nil
			hostConfig.LastRefreshed = nil

			err = saveConfig(config)
			if err != nil {
				return err
			}

			store, err := openTokenStore(effectiveSettings(config))
			if err != nil {
				return err
			}

			if store != nil {
				defer store.Close()

				err = store.DeleteToken(baseURL)
				if err != nil {
					return err
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged out of %s\n", baseURL)

			return nil
		},
	}
}
