package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fivetwenty-io/directus-client/internal/auth"
	"github.com/fivetwenty-io/directus-client/internal/constants"
	"github.com/fivetwenty-io/directus-client/pkg/directus"
	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

const acceptHeader = "application/json, text/plain, */*"

// Client wraps the HTTP exchange with a Directus instance.
type Client struct {
	baseURL      string
	tokenManager auth.TokenManager
	httpClient   *retryablehttp.Client
	logger       directus.Logger
	debug        bool
	userAgent    string
	interceptors *directus.InterceptorChain
}

// Request represents a single call to a resource endpoint.
type Request struct {
	Method string
	Path   string
	// Params holds query parameters. Structured values are sent as JSON text.
	Params  map[string]interface{}
	Body    interface{}
	Headers map[string]string
}

// Response is the normalized result of a call. Non-2xx statuses and bodies
// that are not JSON are reported here rather than as errors.
type Response struct {
	Success    bool
	StatusCode int
	Message    string
	// Body is nil for 204 responses, null payloads and bodies that failed to
	// parse. An empty body on any other status is a parse failure.
	Body    json.RawMessage
	Headers http.Header
	// DecodeError is set when the body was not valid JSON.
	DecodeError *directus.ResponseDecodeError
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets the underlying *http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient.HTTPClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger directus.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
			c.httpClient.Logger = &leveledLogger{logger: logger}
		}
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithRetryConfig opts into retries of transient failures.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = maxRetries
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithInterceptors runs chain around every request.
func WithInterceptors(chain *directus.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// NewHTTPClient builds the plain client shared by the transport and the identity exchange.
func NewHTTPClient(tlsVerify bool, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	transport := cleanhttp.DefaultPooledTransport()
	if !tlsVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, // #nosec G402 -- verification is opt-in through Config.TLSVerify
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// NewClient creates a new HTTP client. tokenManager may be nil, in which case
// no Authorization header is sent.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = NewHTTPClient(false, constants.DefaultHTTPTimeout)
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		tokenManager: tokenManager,
		httpClient:   retryClient,
		logger:       directus.NopLogger{},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Do performs an HTTP request.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	requestURL, err := c.buildURL(req.Path, req.Params)
	if err != nil {
		return nil, err
	}

	var body io.Reader

	if req.Body != nil {
		payload, err := encodeBody(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}

		body = bytes.NewReader(payload)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", acceptHeader)

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	if c.tokenManager != nil {
		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting auth token: %w", err)
		}

		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	intercepted := &directus.Request{Method: req.Method, Path: req.Path, Headers: httpReq.Header}

	if c.interceptors != nil {
		err = c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
		if err != nil {
			return nil, err
		}

		httpReq.Header = intercepted.Headers
	}

	requestID := uuid.NewString()
	start := time.Now()

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"request_id": requestID,
			"method":     req.Method,
			"url":        requestURL,
		})
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		transportErr := &directus.TransportError{Method: req.Method, URL: requestURL, Err: err}
		_ = c.intercept(ctx, intercepted, &directus.Response{Error: transportErr})

		return nil, transportErr
	}

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &directus.TransportError{Method: req.Method, URL: requestURL, Err: err}
	}

	response := normalize(resp, raw)

	err = c.intercept(ctx, intercepted, &directus.Response{StatusCode: resp.StatusCode, Headers: resp.Header})
	if err != nil {
		return nil, err
	}

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"request_id": requestID,
			"status":     resp.StatusCode,
			"success":    response.Success,
			"duration":   time.Since(start).String(),
		})
	}

	return response, nil
}

func (c *Client) intercept(ctx context.Context, req *directus.Request, resp *directus.Response) error {
	if c.interceptors == nil {
		return nil
	}

	return c.interceptors.ExecuteResponseInterceptors(ctx, req, resp)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, params map[string]interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodGet,
		Path:   path,
		Params: params,
	})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPatch,
		Path:   path,
		Body:   body,
	})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodDelete,
		Path:   path,
	})
}

func (c *Client) buildURL(path string, params map[string]interface{}) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	requestURL := c.baseURL + path

	values, err := EncodeParams(params)
	if err != nil {
		return "", err
	}

	if len(values) > 0 {
		requestURL += "?" + values.Encode()
	}

	return requestURL, nil
}

func encodeBody(body interface{}) ([]byte, error) {
	switch v := body.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(body)
	}
}

func normalize(resp *http.Response, raw []byte) *Response {
	response := &Response{
		Success:    resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices,
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
		Headers:    resp.Header,
	}

	if resp.StatusCode == http.StatusNoContent {
		return response
	}

	var body json.RawMessage

	err := json.Unmarshal(raw, &body)
	if err != nil {
		response.Success = false
		response.Message = err.Error()
		response.DecodeError = &directus.ResponseDecodeError{StatusCode: resp.StatusCode, Message: err.Error()}

		return response
	}

	if string(body) != "null" {
		response.Body = body
	}

	return response
}

// EncodeParams renders query parameters. Strings pass through, string slices
// are comma-joined and numbers or booleans are written as literals. Anything
// else (filters, deep queries, aliases) becomes compact JSON text.
func EncodeParams(params map[string]interface{}) (url.Values, error) {
	values := url.Values{}

	for key, value := range params {
		if value == nil {
			continue
		}

		var text string

		switch v := value.(type) {
		case string:
			text = v
		case []string:
			text = strings.Join(v, ",")
		case json.Number:
			text = v.String()
		case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			text = fmt.Sprint(v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encoding query parameter %s: %w", key, err)
			}

			text = string(encoded)
		}

		values.Set(key, text)
	}

	return values, nil
}
