package directus

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError represents a single entry of the Directus "errors" envelope.
type APIError struct {
	Message    string                 `json:"message"              yaml:"message"`
	Extensions map[string]interface{} `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// Code returns the extensions.code value, if present.
func (e *APIError) Code() string {
	if e.Extensions == nil {
		return ""
	}

	code, _ := e.Extensions["code"].(string)

	return code
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if code := e.Code(); code != "" {
		return fmt.Sprintf("%s (code: %s)", e.Message, code)
	}

	return e.Message
}

// ErrorEnvelope is the body returned by Directus when a call fails.
type ErrorEnvelope struct {
	Errors []APIError `json:"errors"`
}

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired            = errors.New("config is required")
	ErrHostnameRequired          = errors.New("hostname is required")
	ErrMissingErrorEnvelope      = errors.New("response carried no errors envelope")
	ErrNoCredentials             = errors.New("no static token or username and password have been provided")
	ErrAmbiguousCredentials      = errors.New("static token and username/password are mutually exclusive")
	ErrIncompleteCredentials     = errors.New("username and password must both be provided")
	ErrMissingAccessToken        = errors.New("identity response did not contain an access token")
	ErrStaticTokenCannotRefresh  = errors.New("static token cannot be refreshed")
	ErrNoTokenManagerConfigured  = errors.New("no token manager configured")
	ErrUnexpectedResponsePayload = errors.New("unexpected response payload")
)

// ConfigurationError is returned when a client cannot be constructed from the supplied options.
// It is raised before any network activity.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// AuthenticationError is returned when the identity endpoint rejects a login or refresh,
// or answers with a body that cannot be understood.
type AuthenticationError struct {
	// Operation is "login" or "refresh".
	Operation  string
	StatusCode int
	Errors     []APIError
	Cause      error
}

func (e *AuthenticationError) Error() string {
	var b strings.Builder

	b.WriteString("authentication failed")

	if e.Operation != "" {
		b.WriteString(" during " + e.Operation)
	}

	if len(e.Errors) > 0 {
		b.WriteString(": " + joinAPIErrors(e.Errors))
	} else if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}

	return b.String()
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// TransportError wraps a network level failure (DNS, connect, TLS, timeout).
// It is never returned as a Result.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseDecodeError describes a response body that could not be parsed as JSON.
// The transport reports it as a failed result; resource clients raise it when they need the data.
type ResponseDecodeError struct {
	StatusCode int
	Message    string
}

func (e *ResponseDecodeError) Error() string {
	return fmt.Sprintf("decoding response (status %d): %s", e.StatusCode, e.Message)
}

// ResourceError is returned by resource clients when a call completed with a non-2xx status.
type ResourceError struct {
	StatusCode int
	Errors     []APIError
	// Err is set when the failure could not be described by an errors envelope.
	Err error
}

func (e *ResourceError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("directus request failed with status %d: %s", e.StatusCode, joinAPIErrors(e.Errors))
	}

	if e.Err != nil {
		return fmt.Sprintf("directus request failed with status %d: %v", e.StatusCode, e.Err)
	}

	return fmt.Sprintf("directus request failed with status %d", e.StatusCode)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// FirstError returns the first error or nil.
func (e *ResourceError) FirstError() *APIError {
	if len(e.Errors) > 0 {
		return &e.Errors[0]
	}

	return nil
}

// ParseErrorEnvelope parses a Directus error body. ok is false when the body carries no "errors" key.
func ParseErrorEnvelope(data []byte) (*ErrorEnvelope, bool) {
	if len(data) == 0 {
		return nil, false
	}

	var raw map[string]json.RawMessage

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, false
	}

	errs, found := raw["errors"]
	if !found {
		return nil, false
	}

	envelope := &ErrorEnvelope{}

	err = json.Unmarshal(errs, &envelope.Errors)
	if err != nil {
		// errors present but not the usual shape, keep the raw text as the message
		envelope.Errors = []APIError{{Message: string(errs)}}
	}

	return envelope, true
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	authErr := &AuthenticationError{}
	if errors.As(err, &authErr) {
		return true
	}

	return hasStatus(err, http.StatusUnauthorized)
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

func hasStatus(err error, status int) bool {
	resErr := &ResourceError{}
	if errors.As(err, &resErr) {
		return resErr.StatusCode == status
	}

	return false
}

func joinAPIErrors(errs []APIError) string {
	messages := make([]string, 0, len(errs))
	for i := range errs {
		messages = append(messages, errs[i].Error())
	}

	return strings.Join(messages, "; ")
}
