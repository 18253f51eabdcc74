//go:build integration

package integration

import (
	"os"
	"strconv"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	URL        string
	Email      string
	Password   string
	Token      string
	Collection string
	Verbose    bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	collection := os.Getenv("DIRECTUS_TEST_COLLECTION")
	if collection == "" {
		collection = "integration_articles"
	}

	verbose, _ := strconv.ParseBool(os.Getenv("DIRECTUS_VERBOSE"))

	return &TestConfig{
		URL:        os.Getenv("DIRECTUS_URL"),
		Email:      os.Getenv("DIRECTUS_EMAIL"),
		Password:   os.Getenv("DIRECTUS_PASSWORD"),
		Token:      os.Getenv("DIRECTUS_TOKEN"),
		Collection: collection,
		Verbose:    verbose,
	}
}

// HasCredentials reports whether password or token credentials were given.
func (c *TestConfig) HasCredentials() bool {
	return c.Token != "" || (c.Email != "" && c.Password != "")
}
