// Package providers holds the provider clients and the OAuth2 token
// machinery they share. Each provider package wires the parameterized
// transport client with its own base URL, auth style, error extractor, and
// retry allowlist.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-publisher/core"
)

const (
	defaultTokenRequestTimeout       = 30 * time.Second
	maxTokenResponseBodyBytes  int64 = 1 << 20 // 1 MiB
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenConfig parameterizes the refresh/exchange client for one provider's
// OAuth server. Client id and secret are deployment secrets and never appear
// in logs or error messages.
type TokenConfig struct {
	ProviderID          string
	TokenURL            string
	ClientID            string
	ClientSecret        string
	ClientSecretInBody  bool
	TokenRequestTimeout time.Duration
	HTTPClient          HTTPDoer
	Logger              glog.Logger
	Now                 func() time.Time
}

// TokenClient performs OAuth2 grants against a provider-owned token
// endpoint. It is stateless: tokens in and tokens out, nothing retained.
type TokenClient struct {
	cfg        TokenConfig
	httpClient HTTPDoer
	logger     glog.Logger
}

type tokenEndpointPayload struct {
	AccessToken      string
	TokenType        string
	RefreshToken     string
	Scope            string
	ExpiresIn        int64
	ErrorCode        string
	ErrorDescription string
}

func NewTokenClient(cfg TokenConfig) (*TokenClient, error) {
	cfg.ProviderID = strings.TrimSpace(strings.ToLower(cfg.ProviderID))
	if cfg.ProviderID == "" {
		return nil, fmt.Errorf("providers: provider id is required")
	}
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("providers: token url is required for provider %q", cfg.ProviderID)
	}
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("providers: client id is required for provider %q", cfg.ProviderID)
	}
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	if cfg.TokenRequestTimeout <= 0 {
		cfg.TokenRequestTimeout = defaultTokenRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.TokenRequestTimeout}
	}
	_, logger := glog.Resolve("providers."+cfg.ProviderID+".token", nil, cfg.Logger)

	return &TokenClient{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     glog.Ensure(logger),
	}, nil
}

// Refresh exchanges a refresh token for a fresh access token using the
// standard refresh_token grant. The client never stores either token.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (core.Token, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return core.Token{}, fmt.Errorf("providers: refresh token is required")
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.Grant(ctx, form)
}

// Grant posts an arbitrary grant to the token endpoint. Client credentials
// ride in the form body or as basic auth depending on configuration; the
// response is accepted as JSON or form-encoded since providers differ.
func (c *TokenClient) Grant(ctx context.Context, form url.Values) (core.Token, error) {
	if c == nil || c.httpClient == nil {
		return core.Token{}, fmt.Errorf("providers: token client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	values := url.Values{}
	for key, items := range form {
		if strings.TrimSpace(key) == "" {
			continue
		}
		for _, item := range items {
			values.Add(key, strings.TrimSpace(item))
		}
	}
	values.Set("client_id", c.cfg.ClientID)
	if c.cfg.ClientSecretInBody && c.cfg.ClientSecret != "" {
		values.Set("client_secret", c.cfg.ClientSecret)
	}

	requestCtx := ctx
	cancel := func() {}
	if c.cfg.TokenRequestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.cfg.TokenRequestTimeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		c.cfg.TokenURL,
		strings.NewReader(values.Encode()),
	)
	if err != nil {
		return core.Token{}, fmt.Errorf("providers: build token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if !c.cfg.ClientSecretInBody && c.cfg.ClientSecret != "" {
		httpReq.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	}

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.Token{}, c.failure(&core.ProviderError{
			Provider:  c.cfg.ProviderID,
			Code:      core.ErrorCodeNetwork,
			Message:   "token request did not complete: " + err.Error(),
			Retryable: true,
			Cause:     err,
		})
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxTokenResponseBodyBytes+1))
	if readErr != nil {
		return core.Token{}, c.failure(&core.ProviderError{
			Provider:   c.cfg.ProviderID,
			Code:       core.ErrorCodeNetwork,
			Message:    "read token response: " + readErr.Error(),
			StatusCode: response.StatusCode,
			Retryable:  true,
			Cause:      readErr,
		})
	}
	if int64(len(body)) > maxTokenResponseBodyBytes {
		return core.Token{}, c.failure(&core.ProviderError{
			Provider:   c.cfg.ProviderID,
			Code:       core.ErrorCodeInvalidResponse,
			Message:    fmt.Sprintf("token response exceeds %d bytes", maxTokenResponseBodyBytes),
			StatusCode: response.StatusCode,
			Retryable:  false,
		})
	}

	payload := parseTokenPayload(body, response.Header.Get("Content-Type"))
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices || payload.ErrorCode != "" {
		code := strings.TrimSpace(payload.ErrorCode)
		if code == "" {
			code = core.ErrorCodeTokenRefreshFailed
		}
		message := strings.TrimSpace(payload.ErrorDescription)
		if message == "" {
			message = fmt.Sprintf("HTTP %d", response.StatusCode)
		}
		return core.Token{}, c.failure(&core.ProviderError{
			Provider:   c.cfg.ProviderID,
			Code:       code,
			Message:    message,
			StatusCode: response.StatusCode,
			Retryable:  core.RetryableStatus(response.StatusCode, code, nil),
		})
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return core.Token{}, c.failure(&core.ProviderError{
			Provider:   c.cfg.ProviderID,
			Code:       core.ErrorCodeInvalidResponse,
			Message:    "token response missing access token",
			StatusCode: response.StatusCode,
			Retryable:  false,
		})
	}

	token := core.Token{
		AccessToken:  strings.TrimSpace(payload.AccessToken),
		RefreshToken: strings.TrimSpace(payload.RefreshToken),
		TokenType:    normalizeTokenType(payload.TokenType),
		Scope:        strings.TrimSpace(payload.Scope),
		ExpiresIn:    payload.ExpiresIn,
	}
	if payload.ExpiresIn > 0 {
		expiresAt := c.cfg.Now().UTC().Add(time.Duration(payload.ExpiresIn) * time.Second)
		token.ExpiresAt = &expiresAt
	}
	return token, nil
}

func (c *TokenClient) failure(err *core.ProviderError) error {
	if c != nil && c.logger != nil && err != nil {
		c.logger.Error("token grant failed",
			"provider_id", c.cfg.ProviderID,
			"status_code", err.StatusCode,
			"error_code", err.Code,
			"retryable", err.Retryable,
		)
	}
	return err
}

// parseTokenPayload accepts JSON or form-encoded token responses. Decode
// failures yield an empty payload so status-code handling still produces the
// uniform error shape instead of a parse exception.
func parseTokenPayload(body []byte, contentType string) tokenEndpointPayload {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		if payload, err := parseTokenPayloadJSON(body); err == nil {
			return payload
		}
		return tokenEndpointPayload{}
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		if payload, err := parseTokenPayloadForm(body); err == nil {
			return payload
		}
		return tokenEndpointPayload{}
	}
	if payload, err := parseTokenPayloadJSON(body); err == nil {
		return payload
	}
	if payload, err := parseTokenPayloadForm(body); err == nil {
		return payload
	}
	return tokenEndpointPayload{}
}

func parseTokenPayloadJSON(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tokenEndpointPayload{}, err
	}
	return tokenEndpointPayload{
		AccessToken:      readAnyString(decoded["access_token"]),
		TokenType:        readAnyString(decoded["token_type"]),
		RefreshToken:     readAnyString(decoded["refresh_token"]),
		Scope:            readAnyString(decoded["scope"]),
		ExpiresIn:        readAnyInt64(decoded["expires_in"]),
		ErrorCode:        readAnyString(decoded["error"]),
		ErrorDescription: readAnyString(decoded["error_description"]),
	}, nil
}

func parseTokenPayloadForm(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	return tokenEndpointPayload{
		AccessToken:      strings.TrimSpace(values.Get("access_token")),
		TokenType:        strings.TrimSpace(values.Get("token_type")),
		RefreshToken:     strings.TrimSpace(values.Get("refresh_token")),
		Scope:            strings.TrimSpace(values.Get("scope")),
		ExpiresIn:        expiresIn,
		ErrorCode:        strings.TrimSpace(values.Get("error")),
		ErrorDescription: strings.TrimSpace(values.Get("error_description")),
	}, nil
}

func normalizeTokenType(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "bearer"
	}
	return normalized
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case int:
		return int64(typed)
	case int64:
		return typed
	case float64:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err == nil {
			return parsed
		}
		floatParsed, floatErr := typed.Float64()
		if floatErr == nil {
			return int64(floatParsed)
		}
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}
