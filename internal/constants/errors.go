package constants

import "errors"

// Configuration errors.
var (
	ErrNoHostConfigured   = errors.New("no Directus host configured, use 'directus login --host <url>' or set DIRECTUS_HOST")
	ErrNoRefreshToken     = errors.New("no refresh token available for this host, please run 'directus login' again")
	ErrNotAuthenticated   = errors.New("not authenticated, use 'directus login' or --token first")
	ErrUnknownConfigKey   = errors.New("unknown configuration key")
	ErrInvalidBooleanFlag = errors.New("value must be 'true' or 'false'")
)

// Input errors.
var (
	ErrInvalidJSONObject  = errors.New("data must be a JSON object")
	ErrInvalidActivityID  = errors.New("activity id must be an integer")
	ErrNoUpdateFields     = errors.New("no fields to update")
	ErrInvalidFilterValue = errors.New("filter must be a JSON object")
)

// File system errors.
var (
	ErrDirectoryTraversalDetected = errors.New("directory traversal detected in file path")
	ErrNotRegularFile             = errors.New("path is not a regular file")
)
