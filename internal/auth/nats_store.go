package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/nats-io/nats.go"
)

// NATSKVConfig configures the NATS key-value bucket used to share sessions.
type NATSKVConfig struct {
	// URL is the NATS server URL
	URL string

	// Bucket is the KV bucket name
	Bucket string

	// TTL bounds how long a stored session is kept. Zero keeps it forever.
	TTL time.Duration
}

// kvBucket is the subset of nats.KeyValue used by the store.
type kvBucket interface {
	Get(key string) (nats.KeyValueEntry, error)
	Put(key string, value []byte) (uint64, error)
	Delete(key string, opts ...nats.DeleteOpt) error
}

// NATSTokenStore keeps session tokens in a NATS JetStream key-value bucket so
// several processes can share one Directus session.
type NATSTokenStore struct {
	kv   kvBucket
	conn *nats.Conn
}

// NewNATSTokenStore connects to NATS and opens, or creates, the bucket.
func NewNATSTokenStore(config *NATSKVConfig) (*NATSTokenStore, error) {
	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	conn, err := nats.Connect(config.URL, nats.Timeout(constants.ShortHTTPTimeout), nats.Name("directus-client"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "Directus session tokens",
			TTL:         config.TTL,
		})
	}

	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening KV bucket %s: %w", bucket, err)
	}

	return &NATSTokenStore{kv: kv, conn: conn}, nil
}

// PersistToken stores token under the key derived from hostname.
func (s *NATSTokenStore) PersistToken(ctx context.Context, hostname string, token directus.SessionToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	_, err = s.kv.Put(sessionKey(hostname), data)
	if err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	return nil
}

// LoadToken returns the stored session for hostname, or nil when none is stored.
func (s *NATSTokenStore) LoadToken(hostname string) (*directus.SessionToken, error) {
	entry, err := s.kv.Get(sessionKey(hostname))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var token directus.SessionToken

	err = json.Unmarshal(entry.Value(), &token)
	if err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}

	return &token, nil
}

// DeleteToken removes the stored session for hostname.
func (s *NATSTokenStore) DeleteToken(hostname string) error {
	err := s.kv.Delete(sessionKey(hostname))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}

	return nil
}

// Close drains the NATS connection.
func (s *NATSTokenStore) Close() {
	if s.conn != nil {
		_ = s.conn.Drain()
	}
}

// sessionKey maps a base URL onto the restricted KV key alphabet.
func sessionKey(hostname string) string {
	host := hostname
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}

	host = strings.TrimSuffix(host, "/")

	key := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.', r == '=':
			return r
		default:
			return '_'
		}
	}, host)

	return "session." + key
}
