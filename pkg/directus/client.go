package directus

import (
	"context"
	"time"
)

// ItemsClient provides CRUD access to the items of a single collection.
type ItemsClient interface {
	List(ctx context.Context, query *Query) ([]Item, error)
	Get(ctx context.Context, id string, query *Query) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, id string, item Item) (Item, error)
	Delete(ctx context.Context, id string) error
}

// FilesClient provides access to file metadata.
type FilesClient interface {
	List(ctx context.Context, query *Query) ([]File, error)
	Get(ctx context.Context, id string, query *Query) (*File, error)
	Create(ctx context.Context, file *FileCreateRequest) (*File, error)
	Update(ctx context.Context, id string, update *FileUpdateRequest) (*File, error)
	Delete(ctx context.Context, id string) error
}

// FoldersClient provides access to virtual folders.
type FoldersClient interface {
	List(ctx context.Context, query *Query) ([]Folder, error)
	Get(ctx context.Context, id string, query *Query) (*Folder, error)
	Create(ctx context.Context, folder *FolderRequest) (*Folder, error)
	Update(ctx context.Context, id string, folder *FolderRequest) (*Folder, error)
	Delete(ctx context.Context, id string) error
}

// ActivityClient provides read access to the activity log.
type ActivityClient interface {
	List(ctx context.Context, query *Query) ([]Activity, error)
	Get(ctx context.Context, id int, query *Query) (*Activity, error)
}

// Client is the Directus API client.
type Client interface {
	Items(collection string) ItemsClient
	Files() FilesClient
	Folders() FoldersClient
	Activity() ActivityClient

	// GetToken returns the bearer token that would be attached to the next request,
	// authenticating first if necessary.
	GetToken(ctx context.Context) (string, error)
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]interface{}) {}
func (NopLogger) Info(string, map[string]interface{})  {}
func (NopLogger) Warn(string, map[string]interface{})  {}
func (NopLogger) Error(string, map[string]interface{}) {}

// SessionToken is the state of a dynamic session obtained from /auth/login or /auth/refresh.
type SessionToken struct {
	AccessToken  string        `json:"access_token"  yaml:"access_token"`
	RefreshToken string        `json:"refresh_token" yaml:"refresh_token"`
	IssuedAt     time.Time     `json:"issued_at"     yaml:"issued_at"`
	ExpiresIn    time.Duration `json:"expires_in"    yaml:"expires_in"`
}

// ExpiresAt returns the instant at which the access token stops being valid.
func (t SessionToken) ExpiresAt() time.Time {
	return t.IssuedAt.Add(t.ExpiresIn)
}

// Expired reports whether the token is unusable at now. A token without an
// access token is always expired, and expiry is inclusive.
func (t SessionToken) Expired(now time.Time) bool {
	if t.AccessToken == "" {
		return true
	}

	return !now.Before(t.ExpiresAt())
}

// TokenPersister receives every token obtained by a successful login or refresh.
// Persist failures are logged and never fail the request that triggered them.
type TokenPersister interface {
	PersistToken(ctx context.Context, hostname string, token SessionToken) error
}

// Config represents client configuration for building a directus.Client.
//
// # Authentication
//
// Exactly one of StaticToken or the Username/Password pair must be provided:
//  1. StaticToken: sent as-is as the Bearer token, never refreshed.
//  2. Username/Password: the first request logs in through /auth/login, later
//     requests reuse the access token until it expires and then renew it
//     through /auth/refresh.
//
// Anything else fails construction with a *ConfigurationError.
//
// # Timeouts, retries, and TLS
//
// Nothing is retried unless RetryMax is set. TLS certificates are not verified
// unless TLSVerify is true.
type Config struct {
	// Hostname is the base URL of the Directus instance. A missing scheme defaults to https.
	Hostname string

	// StaticToken is a pre-provisioned token, mutually exclusive with Username/Password.
	StaticToken string
	// Username is the e-mail address used for /auth/login.
	Username string
	// Password is used with Username.
	Password string

	// TLSVerify enables certificate verification. Off by default.
	TLSVerify bool
	// Logger is an optional diagnostic sink. Defaults to NopLogger.
	Logger Logger
	// Debug enables request/response logging at debug level.
	Debug bool
	// HTTPTimeout bounds every HTTP exchange. Zero means the default.
	HTTPTimeout time.Duration
	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// RetryMax opts into retries of transient failures. Zero disables retries.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// TokenPersister, when set, receives tokens after each login or refresh.
	TokenPersister TokenPersister

	// Interceptors run around every resource request. Identity exchanges are not intercepted.
	Interceptors *InterceptorChain
}
