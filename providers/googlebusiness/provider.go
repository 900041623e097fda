// Package googlebusiness is the Business Profile client: local posts
// (standard and event-flavored), the account→location→post discovery
// hierarchy, and OAuth refresh against Google's token endpoint.
package googlebusiness

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-publisher/core"
	"github.com/goliatone/go-publisher/providers"
	"github.com/goliatone/go-publisher/transport"
)

const ProviderID = "google_business"

var retryAllowlist = []string{"RESOURCE_EXHAUSTED", "UNAVAILABLE", "DEADLINE_EXCEEDED"}

type Config struct {
	ClientID     string
	ClientSecret string
	APIBase      string
	APIVersion   string
	TokenURL     string
	HTTPClient   transport.HTTPDoer
	Logger       glog.Logger
}

type Client struct {
	rest   *transport.Client
	tokens *providers.TokenClient
	logger glog.Logger
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.APIBase)
	if base == "" {
		base = core.DefaultGBPAPIBase
	}
	version := strings.TrimSpace(cfg.APIVersion)
	if version == "" {
		version = core.DefaultGBPAPIVersion
	}
	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = core.GoogleTokenURL
	}

	_, logger := glog.Resolve("providers."+ProviderID, nil, cfg.Logger)
	logger = glog.Ensure(logger)

	rest, err := transport.New(transport.Config{
		ProviderID:     ProviderID,
		BaseURL:        base,
		VersionPath:    version,
		AuthStyle:      transport.AuthStyleBearerHeader,
		ErrorExtractor: extractGoogleError,
		RetryAllowlist: retryAllowlist,
		HTTPClient:     cfg.HTTPClient,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	var tokens *providers.TokenClient
	if strings.TrimSpace(cfg.ClientID) != "" {
		tokens, err = providers.NewTokenClient(providers.TokenConfig{
			ProviderID:         ProviderID,
			TokenURL:           tokenURL,
			ClientID:           cfg.ClientID,
			ClientSecret:       cfg.ClientSecret,
			ClientSecretInBody: true,
			HTTPClient:         cfg.HTTPClient,
			Logger:             logger,
		})
		if err != nil {
			return nil, err
		}
	}

	return &Client{rest: rest, tokens: tokens, logger: logger}, nil
}

// extractGoogleError reads the standard Google error envelope:
// {"error": {"code": 429, "message": "...", "status": "RESOURCE_EXHAUSTED"}}.
func extractGoogleError(body map[string]any) (string, string) {
	raw, ok := body["error"].(map[string]any)
	if !ok {
		return "", ""
	}
	message, _ := raw["message"].(string)
	status, _ := raw["status"].(string)
	return strings.TrimSpace(status), strings.TrimSpace(message)
}

// LocalPost is the Business Profile local-post shape this layer writes.
// Event posts are the same resource with TopicType "EVENT" and the embedded
// Event block, not a separate endpoint.
type LocalPost struct {
	Summary      string        `json:"summary,omitempty"`
	LanguageCode string        `json:"languageCode,omitempty"`
	TopicType    string        `json:"topicType,omitempty"`
	CallToAction *CallToAction `json:"callToAction,omitempty"`
	Media        []Media       `json:"media,omitempty"`
	Event        *PostEvent    `json:"event,omitempty"`

	// Read-only fields returned by the API.
	Name      string `json:"name,omitempty"`
	State     string `json:"state,omitempty"`
	SearchURL string `json:"searchUrl,omitempty"`
}

type CallToAction struct {
	ActionType string `json:"actionType"`
	URL        string `json:"url,omitempty"`
}

type Media struct {
	MediaFormat string `json:"mediaFormat"`
	SourceURL   string `json:"sourceUrl"`
}

type PostEvent struct {
	Title    string    `json:"title"`
	Schedule *Schedule `json:"schedule,omitempty"`
}

type Schedule struct {
	StartDate *Date      `json:"startDate,omitempty"`
	StartTime *TimeOfDay `json:"startTime,omitempty"`
	EndDate   *Date      `json:"endDate,omitempty"`
	EndTime   *TimeOfDay `json:"endTime,omitempty"`
}

type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type TimeOfDay struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

type Account struct {
	Name        string `json:"name"`
	AccountName string `json:"accountName"`
	Type        string `json:"type"`
}

type Location struct {
	Name         string `json:"name"`
	LocationName string `json:"locationName"`
	StoreCode    string `json:"storeCode,omitempty"`
}

// CreatePost creates a local post under accounts/{accountID}/locations/{locationID}.
// The API returns the resource name and a searchUrl; the normalized result
// uses the trailing id segment.
func (c *Client) CreatePost(ctx context.Context, token, accountID, locationID string, post LocalPost) (core.Result, error) {
	parent, err := locationPath(accountID, locationID)
	if err != nil {
		return core.Result{}, err
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/" + parent + "/localPosts",
		Token:  token,
		Body:   post,
	})
	if err != nil {
		return core.Result{}, err
	}
	var created LocalPost
	if err := transport.DecodeJSON(res, &created); err != nil {
		return core.Result{}, err
	}
	return core.Result{ID: resourceID(created.Name), URL: created.SearchURL}, nil
}

// CreateEventPost is a local post with the embedded event structure; it is
// a sub-type of post, not a separate resource.
func (c *Client) CreateEventPost(ctx context.Context, token, accountID, locationID string, post LocalPost, event PostEvent) (core.Result, error) {
	if strings.TrimSpace(event.Title) == "" {
		return core.Result{}, fmt.Errorf("googlebusiness: event title is required")
	}
	post.TopicType = "EVENT"
	post.Event = &event
	return c.CreatePost(ctx, token, accountID, locationID, post)
}

func (c *Client) UpdatePost(ctx context.Context, token, postName string, post LocalPost, updateMask string) (core.Result, error) {
	postName = strings.Trim(strings.TrimSpace(postName), "/")
	if postName == "" {
		return core.Result{}, fmt.Errorf("googlebusiness: post name is required")
	}
	query := map[string]string{}
	if mask := strings.TrimSpace(updateMask); mask != "" {
		query["updateMask"] = mask
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPatch,
		Path:   "/" + postName,
		Token:  token,
		Query:  query,
		Body:   post,
	})
	if err != nil {
		return core.Result{}, err
	}
	var updated LocalPost
	if err := transport.DecodeJSON(res, &updated); err != nil {
		return core.Result{}, err
	}
	return core.Result{ID: resourceID(updated.Name), URL: updated.SearchURL}, nil
}

func (c *Client) DeletePost(ctx context.Context, token, postName string) error {
	postName = strings.Trim(strings.TrimSpace(postName), "/")
	if postName == "" {
		return fmt.Errorf("googlebusiness: post name is required")
	}
	_, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/" + postName,
		Token:  token,
	})
	return err
}

// GetAccounts is the top of the discovery hierarchy; locations and posts
// are only addressable beneath an account.
func (c *Client) GetAccounts(ctx context.Context, token string) ([]Account, error) {
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/accounts",
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Accounts []Account `json:"accounts"`
	}
	if err := transport.DecodeJSON(res, &payload); err != nil {
		return nil, err
	}
	return payload.Accounts, nil
}

func (c *Client) GetLocations(ctx context.Context, token, accountName string) ([]Location, error) {
	accountName = strings.Trim(strings.TrimSpace(accountName), "/")
	if accountName == "" {
		return nil, fmt.Errorf("googlebusiness: account name is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/" + accountName + "/locations",
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Locations []Location `json:"locations"`
	}
	if err := transport.DecodeJSON(res, &payload); err != nil {
		return nil, err
	}
	return payload.Locations, nil
}

func (c *Client) GetPosts(ctx context.Context, token, locationName string) ([]LocalPost, error) {
	locationName = strings.Trim(strings.TrimSpace(locationName), "/")
	if locationName == "" {
		return nil, fmt.Errorf("googlebusiness: location name is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/" + locationName + "/localPosts",
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	var payload struct {
		LocalPosts []LocalPost `json:"localPosts"`
	}
	if err := transport.DecodeJSON(res, &payload); err != nil {
		return nil, err
	}
	return payload.LocalPosts, nil
}

// RefreshToken runs the OAuth2 refresh-token grant against Google's token
// endpoint.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (core.Token, error) {
	if c.tokens == nil {
		return core.Token{}, fmt.Errorf("googlebusiness: client id and secret are required for token refresh")
	}
	return c.tokens.Refresh(ctx, refreshToken)
}

// ValidateToken probes account discovery and never returns an error.
func (c *Client) ValidateToken(ctx context.Context, token string) bool {
	if _, err := c.GetAccounts(ctx, token); err != nil {
		c.logger.Info("token validation failed", "provider_id", ProviderID, "error", err.Error())
		return false
	}
	return true
}

func locationPath(accountID, locationID string) (string, error) {
	accountID = strings.TrimSpace(accountID)
	locationID = strings.TrimSpace(locationID)
	if accountID == "" || locationID == "" {
		return "", fmt.Errorf("googlebusiness: account id and location id are required")
	}
	return "accounts/" + accountID + "/locations/" + locationID, nil
}

func resourceID(name string) string {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return ""
	}
	parts := strings.Split(name, "/")
	return parts[len(parts)-1]
}
