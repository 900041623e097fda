package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/goliatone/go-publisher/core"
)

const (
	defaultClientTimeout           = 30 * time.Second
	defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

	defaultTokenQueryParam = "access_token"
)

// AuthStyle selects how the access token rides on the request. Facebook's
// Graph API takes the token as a query parameter; everyone else uses a
// bearer header.
type AuthStyle string

const (
	AuthStyleBearerHeader AuthStyle = "bearer-header"
	AuthStyleQueryParam   AuthStyle = "query-param"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrorExtractor pulls the provider-specific code and human message out of a
// decoded error body. Returning empty values triggers the UNKNOWN_ERROR
// fallback.
type ErrorExtractor func(body map[string]any) (code string, message string)

// Config parameterizes the shared REST client for one provider. The same
// request/error/retry contract backs all four providers; only these knobs
// differ.
type Config struct {
	ProviderID           string
	BaseURL              string
	VersionPath          string
	AuthStyle            AuthStyle
	TokenQueryParam      string
	ErrorExtractor       ErrorExtractor
	RetryAllowlist       []string
	HTTPClient           HTTPDoer
	Logger               glog.Logger
	MaxResponseBodyBytes int64
}

type Client struct {
	cfg        Config
	httpClient HTTPDoer
	logger     glog.Logger
	allowlist  map[string]struct{}
}

// Request describes one authenticated call against the provider's API.
// Body, when non-nil, is JSON encoded.
type Request struct {
	Method  string
	Path    string
	Token   string
	Query   map[string]string
	Headers map[string]string
	Body    any
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	RequestID  string
}

func New(cfg Config) (*Client, error) {
	cfg.ProviderID = strings.TrimSpace(strings.ToLower(cfg.ProviderID))
	if cfg.ProviderID == "" {
		return nil, fmt.Errorf("transport: provider id is required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("transport: base url is required for provider %q", cfg.ProviderID)
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("transport: invalid base url for provider %q: %w", cfg.ProviderID, err)
	}
	cfg.VersionPath = strings.Trim(strings.TrimSpace(cfg.VersionPath), "/")
	if cfg.AuthStyle == "" {
		cfg.AuthStyle = AuthStyleBearerHeader
	}
	if cfg.AuthStyle != AuthStyleBearerHeader && cfg.AuthStyle != AuthStyleQueryParam {
		return nil, fmt.Errorf("transport: unsupported auth style %q for provider %q", cfg.AuthStyle, cfg.ProviderID)
	}
	if strings.TrimSpace(cfg.TokenQueryParam) == "" {
		cfg.TokenQueryParam = defaultTokenQueryParam
	}
	if cfg.MaxResponseBodyBytes <= 0 {
		cfg.MaxResponseBodyBytes = defaultResponseBodyLimit
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultClientTimeout}
	}
	_, logger := glog.Resolve("transport."+cfg.ProviderID, nil, cfg.Logger)

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     glog.Ensure(logger),
		allowlist:  core.NormalizeAllowlist(cfg.RetryAllowlist),
	}, nil
}

func (c *Client) ProviderID() string {
	if c == nil {
		return ""
	}
	return c.cfg.ProviderID
}

// Retryable applies the provider's retry predicate to a status/code pair.
func (c *Client) Retryable(statusCode int, code string) bool {
	if c == nil {
		return false
	}
	return core.RetryableStatus(statusCode, code, c.allowlist)
}

// Do issues the request and returns the parsed response. Any non-2xx status
// comes back as a *core.ProviderError carrying the provider's code/message
// and the retry hint; transport-level failures map to NETWORK_ERROR and are
// always retryable since they carry no information about root cause.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	if c == nil || c.httpClient == nil {
		return Response{}, fmt.Errorf("transport: client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	endpoint := "/" + strings.TrimLeft(strings.TrimSpace(req.Path), "/")
	requestID := uuid.NewString()

	requestURL, err := c.buildURL(endpoint, req)
	if err != nil {
		return Response{}, err
	}

	var bodyReader io.Reader
	if req.Body != nil {
		encoded, marshalErr := json.Marshal(req.Body)
		if marshalErr != nil {
			return Response{}, fmt.Errorf("transport: encode request body for %s %s: %w", method, endpoint, marshalErr)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return Response{}, fmt.Errorf("transport: create request for %s %s: %w", method, endpoint, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.cfg.AuthStyle == AuthStyleBearerHeader && strings.TrimSpace(req.Token) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(req.Token))
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	httpRes, err := c.httpClient.Do(httpReq)
	if err != nil {
		networkErr := &core.ProviderError{
			Provider:  c.cfg.ProviderID,
			Code:      core.ErrorCodeNetwork,
			Message:   "request did not complete: " + err.Error(),
			Retryable: true,
			Cause:     err,
		}
		c.logFailure(ctx, requestID, method, endpoint, 0, networkErr)
		return Response{RequestID: requestID}, networkErr
	}
	defer httpRes.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(httpRes.Body, c.cfg.MaxResponseBodyBytes+1))
	if readErr != nil {
		networkErr := &core.ProviderError{
			Provider:   c.cfg.ProviderID,
			Code:       core.ErrorCodeNetwork,
			Message:    "read response body: " + readErr.Error(),
			StatusCode: httpRes.StatusCode,
			Retryable:  true,
			Cause:      readErr,
		}
		c.logFailure(ctx, requestID, method, endpoint, httpRes.StatusCode, networkErr)
		return Response{RequestID: requestID}, networkErr
	}
	if int64(len(body)) > c.cfg.MaxResponseBodyBytes {
		oversizeErr := &core.ProviderError{
			Provider:   c.cfg.ProviderID,
			Code:       core.ErrorCodeInvalidResponse,
			Message:    fmt.Sprintf("response body exceeds limit of %d bytes", c.cfg.MaxResponseBodyBytes),
			StatusCode: httpRes.StatusCode,
			Retryable:  false,
		}
		c.logFailure(ctx, requestID, method, endpoint, httpRes.StatusCode, oversizeErr)
		return Response{RequestID: requestID}, oversizeErr
	}

	response := Response{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       body,
		RequestID:  requestID,
	}

	if httpRes.StatusCode >= http.StatusOK && httpRes.StatusCode < http.StatusMultipleChoices {
		return response, nil
	}

	providerErr := c.errorFromResponse(httpRes.StatusCode, body)
	c.logFailure(ctx, requestID, method, endpoint, httpRes.StatusCode, providerErr)
	return response, providerErr
}

// errorFromResponse always attempts to parse the error body as JSON since
// every provider returns structured error payloads; non-JSON bodies fall
// back to UNKNOWN_ERROR / "HTTP <status>" rather than surfacing a parse
// failure.
func (c *Client) errorFromResponse(statusCode int, body []byte) *core.ProviderError {
	code := ""
	message := ""
	decoded := map[string]any{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &decoded); err == nil && c.cfg.ErrorExtractor != nil {
			code, message = c.cfg.ErrorExtractor(decoded)
		}
	}
	code = strings.TrimSpace(code)
	if code == "" {
		code = core.ErrorCodeUnknown
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = fmt.Sprintf("HTTP %d", statusCode)
	}
	return &core.ProviderError{
		Provider:   c.cfg.ProviderID,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  core.RetryableStatus(statusCode, code, c.allowlist),
	}
}

func (c *Client) buildURL(endpoint string, req Request) (string, error) {
	raw := c.cfg.BaseURL
	if c.cfg.VersionPath != "" {
		raw += "/" + c.cfg.VersionPath
	}
	raw += endpoint

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("transport: invalid request url %q: %w", raw, err)
	}
	query := parsed.Query()
	for key, value := range req.Query {
		if strings.TrimSpace(key) == "" {
			continue
		}
		query.Set(strings.TrimSpace(key), value)
	}
	if c.cfg.AuthStyle == AuthStyleQueryParam && strings.TrimSpace(req.Token) != "" {
		query.Set(c.cfg.TokenQueryParam, strings.TrimSpace(req.Token))
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// logFailure records the failed call for observability. Tokens never make it
// into the fields; the endpoint path carries no credential material because
// query strings are dropped here on purpose.
func (c *Client) logFailure(ctx context.Context, requestID, method, endpoint string, statusCode int, err *core.ProviderError) {
	if c == nil || c.logger == nil || err == nil {
		return
	}
	logger := c.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	fields := core.RedactSensitiveMap(map[string]any{
		"provider_id": c.cfg.ProviderID,
		"request_id":  requestID,
		"method":      method,
		"endpoint":    endpoint,
		"status_code": statusCode,
		"error_code":  err.Code,
		"retryable":   err.Retryable,
	})
	if fieldsLogger, ok := logger.(glog.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(fields)
	}
	logger.Error("provider request failed",
		"provider_id", c.cfg.ProviderID,
		"request_id", requestID,
		"method", method,
		"endpoint", endpoint,
		"status_code", statusCode,
		"error_code", err.Code,
		"retryable", err.Retryable,
	)
}

// DecodeJSON unmarshals a successful response body into target.
func DecodeJSON(res Response, target any) error {
	if target == nil {
		return nil
	}
	if len(bytes.TrimSpace(res.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Body, target); err != nil {
		return fmt.Errorf("transport: decode response body: %w", err)
	}
	return nil
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}
