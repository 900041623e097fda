// Package facebook is the Graph API client: page events, page posts with
// photo upload, Instagram Business publishing, and token exchange. The Graph
// API takes the access token as a query parameter rather than a bearer
// header, and composite post ids require URL synthesis on our side.
package facebook

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-publisher/core"
	"github.com/goliatone/go-publisher/transport"
)

const ProviderID = "facebook"

// Graph transient/throttle codes considered retryable on 4xx responses:
// 1 unknown, 2 service, 4 app throttle, 17 user throttle, 341 app limit.
var retryAllowlist = []string{"1", "2", "4", "17", "341"}

type Config struct {
	AppID           string
	AppSecret       string
	GraphAPIBase    string
	GraphAPIVersion string
	HTTPClient      transport.HTTPDoer
	Logger          glog.Logger
}

// Client is stateless: every method takes the caller's token and forwards
// it; nothing is cached between calls.
type Client struct {
	rest      *transport.Client
	appID     string
	appSecret string
	logger    glog.Logger
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.GraphAPIBase)
	if base == "" {
		base = core.DefaultGraphAPIBase
	}
	version := strings.TrimSpace(cfg.GraphAPIVersion)
	if version == "" {
		version = core.DefaultGraphAPIVersion
	}

	_, logger := glog.Resolve("providers."+ProviderID, nil, cfg.Logger)
	logger = glog.Ensure(logger)

	rest, err := transport.New(transport.Config{
		ProviderID:     ProviderID,
		BaseURL:        base,
		VersionPath:    version,
		AuthStyle:      transport.AuthStyleQueryParam,
		ErrorExtractor: extractGraphError,
		RetryAllowlist: retryAllowlist,
		HTTPClient:     cfg.HTTPClient,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		rest:      rest,
		appID:     strings.TrimSpace(cfg.AppID),
		appSecret: strings.TrimSpace(cfg.AppSecret),
		logger:    logger,
	}, nil
}

// extractGraphError reads the Graph error envelope:
// {"error": {"message": "...", "type": "OAuthException", "code": 190}}.
// The numeric code is preferred; the type string is the fallback.
func extractGraphError(body map[string]any) (string, string) {
	raw, ok := body["error"].(map[string]any)
	if !ok {
		return "", ""
	}
	message := readString(raw["message"])
	code := readString(raw["code"])
	if code == "" {
		code = readString(raw["type"])
	}
	return code, message
}

// GetLongLivedUserToken exchanges a short-lived user token for a long-lived
// one. App id/secret are server-side secrets and ride only in the query of
// this provider-owned endpoint; they are never logged.
func (c *Client) GetLongLivedUserToken(ctx context.Context, shortLivedToken string) (core.Token, error) {
	shortLivedToken = strings.TrimSpace(shortLivedToken)
	if shortLivedToken == "" {
		return core.Token{}, fmt.Errorf("facebook: short-lived token is required")
	}
	if c.appID == "" || c.appSecret == "" {
		return core.Token{}, fmt.Errorf("facebook: app id and app secret are required for token exchange")
	}

	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/oauth/access_token",
		Query: map[string]string{
			"grant_type":        "fb_exchange_token",
			"client_id":         c.appID,
			"client_secret":     c.appSecret,
			"fb_exchange_token": shortLivedToken,
		},
	})
	if err != nil {
		return core.Token{}, err
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := transport.DecodeJSON(res, &payload); err != nil {
		return core.Token{}, err
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return core.Token{}, &core.ProviderError{
			Provider:   ProviderID,
			Code:       core.ErrorCodeInvalidResponse,
			Message:    "token exchange response missing access token",
			StatusCode: res.StatusCode,
			Retryable:  false,
		}
	}
	return core.Token{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		ExpiresIn:   payload.ExpiresIn,
	}, nil
}

// GetPageAccessToken fetches the page-scoped token for a page the user
// administers.
func (c *Client) GetPageAccessToken(ctx context.Context, userToken, pageID string) (string, error) {
	pageID = strings.TrimSpace(pageID)
	if pageID == "" {
		return "", fmt.Errorf("facebook: page id is required")
	}

	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/" + pageID,
		Token:  userToken,
		Query:  map[string]string{"fields": "access_token"},
	})
	if err != nil {
		return "", err
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ID          string `json:"id"`
	}
	if err := transport.DecodeJSON(res, &payload); err != nil {
		return "", err
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return "", &core.ProviderError{
			Provider:   ProviderID,
			Code:       core.ErrorCodeInvalidResponse,
			Message:    "page token response missing access token",
			StatusCode: res.StatusCode,
			Retryable:  false,
		}
	}
	return payload.AccessToken, nil
}

// PageInfo is the read-only page metadata subset the admin UI surfaces.
type PageInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	FanCount int64  `json:"fan_count"`
	Link     string `json:"link"`
}

func (c *Client) GetPageInfo(ctx context.Context, token, pageID string) (PageInfo, error) {
	pageID = strings.TrimSpace(pageID)
	if pageID == "" {
		return PageInfo{}, fmt.Errorf("facebook: page id is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/" + pageID,
		Token:  token,
		Query:  map[string]string{"fields": "id,name,category,fan_count,link"},
	})
	if err != nil {
		return PageInfo{}, err
	}
	var info PageInfo
	if err := transport.DecodeJSON(res, &info); err != nil {
		return PageInfo{}, err
	}
	return info, nil
}

// ValidateToken probes /me and reports liveness. It never returns an error:
// any failure, including network faults, reads as an invalid token.
func (c *Client) ValidateToken(ctx context.Context, token string) bool {
	_, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/me",
		Token:  token,
	})
	if err != nil {
		c.logger.Info("token validation failed", "provider_id", ProviderID, "error", err.Error())
		return false
	}
	return true
}

func readString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return fmt.Sprintf("%.0f", typed)
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}
