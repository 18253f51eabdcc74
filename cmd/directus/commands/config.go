package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration file.
type Config struct {
	Hosts       map[string]*HostConfig `json:"hosts,omitempty"        yaml:"hosts,omitempty"`
	CurrentHost string                 `json:"current_host,omitempty" yaml:"current_host,omitempty"`

	// Global settings
	Output     string  `json:"output,omitempty"      yaml:"output,omitempty"`
	TLSVerify  bool    `json:"tls_verify"            yaml:"tls_verify"`
	RateLimit  float64 `json:"rate_limit,omitempty"  yaml:"rate_limit,omitempty"`
	RetryMax   int     `json:"retry_max,omitempty"   yaml:"retry_max,omitempty"`
	NATSURL    string  `json:"nats_url,omitempty"    yaml:"nats_url,omitempty"`
	NATSBucket string  `json:"nats_bucket,omitempty" yaml:"nats_bucket,omitempty"`
}

// HostConfig represents one Directus instance the CLI has logged in to.
type HostConfig struct {
	URL           string                 `json:"url"                      yaml:"url"`
	Email         string                 `json:"email,omitempty"          yaml:"email,omitempty"`
	Session       *directus.SessionToken `json:"session,omitempty"        yaml:"session,omitempty"`
	LastRefreshed *time.Time             `json:"last_refreshed,omitempty" yaml:"last_refreshed,omitempty"`
}

// settableKeys are the global keys accepted by config set and unset.
var settableKeys = []string{"current_host", "nats_bucket", "nats_url", "output", "rate_limit", "retry_max", "tls_verify"}

// normalizeHostURL adds the default scheme and drops trailing slashes.
func normalizeHostURL(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host != "" && !strings.Contains(host, "://") {
		host = constants.DefaultScheme + host
	}

	return host
}

// hostKey is the name a host is stored under: its URL without the scheme.
func hostKey(host string) string {
	key := normalizeHostURL(host)
	if idx := strings.Index(key, "://"); idx >= 0 {
		key = key[idx+3:]
	}

	return key
}

func configFilePath() (string, error) {
	if path := viper.GetString("config"); path != "" {
		return path, nil
	}

	if path := viper.ConfigFileUsed(); path != "" {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName, constants.ConfigFileName), nil
}

// loadConfig reads the configuration file. A missing file yields an empty config.
func loadConfig() (*Config, error) {
	path, err := configFilePath()
	if err != nil {
		return nil, err
	}

	config := &Config{}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if len(data) > 0 {
		err = yaml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if config.Hosts == nil {
		config.Hosts = make(map[string]*HostConfig)
	}

	return config, nil
}

func saveConfig(config *Config) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// selectHost resolves the host to talk to: --host or DIRECTUS_HOST first,
// then the current host of the configuration file.
func selectHost(config *Config) (string, *HostConfig, error) {
	host := viper.GetString("host")
	if host == "" {
		host = config.CurrentHost
	}

	if host == "" {
		return "", nil, constants.ErrNoHostConfigured
	}

	if hostConfig, ok := config.Hosts[hostKey(host)]; ok {
		return normalizeHostURL(hostConfig.URL), hostConfig, nil
	}

	baseURL := normalizeHostURL(host)

	return baseURL, &HostConfig{URL: baseURL}, nil
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Display and change the settings stored in the CLI configuration file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the CLI configuration with tokens masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			masked := maskConfig(config)

			return render(cmd, masked, func(table *tablewriter.Table) {
				path, _ := configFilePath()

				table.Header("Property", "Value")
				_ = table.Append("Config File", path)
				_ = table.Append("Current Host", stringValue(masked.CurrentHost))
				_ = table.Append("Output", stringValue(masked.Output))
				_ = table.Append("TLS Verify", strconv.FormatBool(masked.TLSVerify))
				_ = table.Append("Rate Limit", strconv.FormatFloat(masked.RateLimit, 'f', -1, 64))
				_ = table.Append("Retry Max", strconv.Itoa(masked.RetryMax))
				_ = table.Append("NATS URL", stringValue(masked.NATSURL))
				_ = table.Append("NATS Bucket", stringValue(masked.NATSBucket))

				keys := make([]string, 0, len(masked.Hosts))
				for key := range masked.Hosts {
					keys = append(keys, key)
				}

				sort.Strings(keys)

				for _, key := range keys {
					host := masked.Hosts[key]
					status := "logged out"

					if host.Session != nil {
						status = "session " + host.Session.RefreshToken
					}

					_ = table.Append("Host "+key, host.URL+" ("+status+")")
				}
			})
		},
	}
}

// maskConfig returns a copy of config safe to print.
func maskConfig(config *Config) *Config {
	masked := *config
	masked.Hosts = make(map[string]*HostConfig, len(config.Hosts))

	for key, host := range config.Hosts {
		copied := *host

		if host.Session != nil {
			session := *host.Session
			session.AccessToken = maskToken(session.AccessToken)
			session.RefreshToken = maskToken(session.RefreshToken)
			copied.Session = &session
		}

		masked.Hosts[key] = &copied
	}

	return &masked
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a global configuration value. Keys: " + strings.Join(settableKeys, ", "),
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			err = setConfigValue(config, args[0], args[1])
			if err != nil {
				return err
			}

			err = saveConfig(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])

			return nil
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Reset a global configuration value to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			err = unsetConfigValue(config, args[0])
			if err != nil {
				return err
			}

			err = saveConfig(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", args[0])

			return nil
		},
	}
}

func setConfigValue(config *Config, key, value string) error {
	switch key {
	case "current_host":
		if _, ok := config.Hosts[hostKey(value)]; !ok {
			return fmt.Errorf("host '%s': %w", value, ErrHostConfigNotFound)
		}

		config.CurrentHost = hostKey(value)
	case "output":
		switch value {
		case constants.FormatJSON, constants.FormatYAML, constants.FormatTable:
			config.Output = value
		default:
			return fmt.Errorf("'%s': %w", value, ErrInvalidOutputFormat)
		}
	case "tls_verify":
		switch value {
		case constants.BooleanTrue:
			config.TLSVerify = true
		case constants.BooleanFalse:
			config.TLSVerify = false
		default:
			return constants.ErrInvalidBooleanFlag
		}
	case "rate_limit":
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid rate limit: %w", err)
		}

		config.RateLimit = rate
	case "retry_max":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retry count: %w", err)
		}

		config.RetryMax = retries
	case "nats_url":
		config.NATSURL = value
	case "nats_bucket":
		config.NATSBucket = value
	default:
		return fmt.Errorf("'%s': %w", key, constants.ErrUnknownConfigKey)
	}

	return nil
}

func unsetConfigValue(config *Config, key string) error {
	switch key {
	case "current_host":
		config.CurrentHost = ""
	case "output":
		config.Output = ""
	case "tls_verify":
		config.TLSVerify = false
	case "rate_limit":
		config.RateLimit = 0
	case "retry_max":
		config.RetryMax = 0
	case "nats_url":
		config.NATSURL = ""
	case "nats_bucket":
		config.NATSBucket = ""
	default:
		return fmt.Errorf("'%s': %w", key, constants.ErrUnknownConfigKey)
	}

	return nil
}
