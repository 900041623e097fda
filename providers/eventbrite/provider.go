// Package eventbrite is the Eventbrite v3 client. Events are created in
// draft and must be explicitly published to become listed; publish and
// unpublish are state transitions with their own endpoints, not fields on
// update.
package eventbrite

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

const ProviderID = "eventbrite"

var retryAllowlist = []string{"HIT_RATE_LIMIT", "INTERNAL_ERROR", "EXPANSION_FAILED"}

type Config struct {
	ClientID     string
	ClientSecret string
	APIBase      string
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
		base = core.EventbriteAPIBase
	}
	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = core.EventbriteTokenURL
	}

	_, logger := glog.Resolve("providers."+ProviderID, nil, cfg.Logger)
	logger = glog.Ensure(logger)

	rest, err := transport.New(transport.Config{
		ProviderID:     ProviderID,
		BaseURL:        base,
		VersionPath:    core.EventbriteAPIVersion,
		AuthStyle:      transport.AuthStyleBearerHeader,
		ErrorExtractor: extractEventbriteError,
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

// extractEventbriteError reads the flat Eventbrite error body:
// {"status_code": 404, "error": "NOT_FOUND", "error_description": "..."}.
func extractEventbriteError(body map[string]any) (string, string) {
	code, _ := body["error"].(string)
	message, _ := body["error_description"].(string)
	return strings.TrimSpace(code), strings.TrimSpace(message)
}

// DateTime is Eventbrite's split timestamp: timezone name plus UTC instant.
type DateTime struct {
	Timezone string `json:"timezone,omitempty"`
	UTC      string `json:"utc"`
}

// Event mirrors the writable subset of the v3 event schema. The API expects
// the payload wrapped under an "event" key; callers pass the bare struct.
type Event struct {
	Name        Text     `json:"name"`
	Description *Text    `json:"description,omitempty"`
	Start       DateTime `json:"start"`
	End         DateTime `json:"end"`
	Currency    string   `json:"currency,omitempty"`
	Capacity    int      `json:"capacity,omitempty"`
	VenueID     string   `json:"venue_id,omitempty"`
	OnlineEvent bool     `json:"online_event,omitempty"`
	Listed      *bool    `json:"listed,omitempty"`
}

type Text struct {
	HTML string `json:"html"`
}

type eventResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// EventDetail is the read shape returned by GetEvent/GetEvents.
type EventDetail struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Status string   `json:"status"`
	Name   Text     `json:"name"`
	Start  DateTime `json:"start"`
	End    DateTime `json:"end"`
}

type Venue struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	Address Address `json:"address"`
}

type Address struct {
	Address1   string `json:"address_1,omitempty"`
	Address2   string `json:"address_2,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// CreateEvent creates a draft event under the organization. Eventbrite hands
// back the browsable URL directly.
func (c *Client) CreateEvent(ctx context.Context, token, organizationID string, event Event) (core.Result, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return core.Result{}, fmt.Errorf("eventbrite: organization id is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/organizations/" + organizationID + "/events/",
		Token:  token,
		Body:   map[string]any{"event": event},
	})
	if err != nil {
		return core.Result{}, err
	}
	var created eventResponse
	if err := transport.DecodeJSON(res, &created); err != nil {
		return core.Result{}, err
	}
	return core.Result{ID: created.ID, URL: created.URL}, nil
}

func (c *Client) UpdateEvent(ctx context.Context, token, eventID string, event Event) (core.Result, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return core.Result{}, fmt.Errorf("eventbrite: event id is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/events/" + eventID + "/",
		Token:  token,
		Body:   map[string]any{"event": event},
	})
	if err != nil {
		return core.Result{}, err
	}
	var updated eventResponse
	if err := transport.DecodeJSON(res, &updated); err != nil {
		return core.Result{}, err
	}
	return core.Result{ID: updated.ID, URL: updated.URL}, nil
}

func (c *Client) GetEvent(ctx context.Context, token, eventID string) (EventDetail, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return EventDetail{}, fmt.Errorf("eventbrite: event id is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/events/" + eventID + "/",
		Token:  token,
	})
	if err != nil {
		return EventDetail{}, err
	}
	var detail EventDetail
	if err := transport.DecodeJSON(res, &detail); err != nil {
		return EventDetail{}, err
	}
	return detail, nil
}

func (c *Client) GetEvents(ctx context.Context, token, organizationID string) ([]EventDetail, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, fmt.Errorf("eventbrite: organization id is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/organizations/" + organizationID + "/events/",
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Events []EventDetail `json:"events"`
	}
	if err := transport.DecodeJSON(res, &payload); err != nil {
		return nil, err
	}
	return payload.Events, nil
}

func (c *Client) DeleteEvent(ctx context.Context, token, eventID string) error {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("eventbrite: event id is required")
	}
	_, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/events/" + eventID + "/",
		Token:  token,
	})
	return err
}

// PublishEvent transitions a draft event to the published state. A missing
// event propagates the provider's not-found error untouched.
func (c *Client) PublishEvent(ctx context.Context, token, eventID string) error {
	return c.transition(ctx, token, eventID, "publish")
}

// UnpublishEvent transitions a published event back to unlisted.
func (c *Client) UnpublishEvent(ctx context.Context, token, eventID string) error {
	return c.transition(ctx, token, eventID, "unpublish")
}

func (c *Client) transition(ctx context.Context, token, eventID, action string) error {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("eventbrite: event id is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/events/" + eventID + "/" + action + "/",
		Token:  token,
	})
	if err != nil {
		return err
	}
	var payload struct {
		Published bool `json:"published"`
	}
	if err := transport.DecodeJSON(res, &payload); err != nil {
		return err
	}
	return nil
}

func (c *Client) CreateVenue(ctx context.Context, token, organizationID string, venue Venue) (Venue, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return Venue{}, fmt.Errorf("eventbrite: organization id is required")
	}
	if strings.TrimSpace(venue.Name) == "" {
		return Venue{}, fmt.Errorf("eventbrite: venue name is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/organizations/" + organizationID + "/venues/",
		Token:  token,
		Body:   map[string]any{"venue": venue},
	})
	if err != nil {
		return Venue{}, err
	}
	var created Venue
	if err := transport.DecodeJSON(res, &created); err != nil {
		return Venue{}, err
	}
	return created, nil
}

func (c *Client) GetVenues(ctx context.Context, token, organizationID string) ([]Venue, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, fmt.Errorf("eventbrite: organization id is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/organizations/" + organizationID + "/venues/",
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Venues []Venue `json:"venues"`
	}
	if err := transport.DecodeJSON(res, &payload); err != nil {
		return nil, err
	}
	return payload.Venues, nil
}

func (c *Client) GetOrganizations(ctx context.Context, token string) ([]Organization, error) {
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/users/me/organizations/",
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Organizations []Organization `json:"organizations"`
	}
	if err := transport.DecodeJSON(res, &payload); err != nil {
		return nil, err
	}
	return payload.Organizations, nil
}

func (c *Client) GetOrganization(ctx context.Context, token, organizationID string) (Organization, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return Organization{}, fmt.Errorf("eventbrite: organization id is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/organizations/" + organizationID + "/",
		Token:  token,
	})
	if err != nil {
		return Organization{}, err
	}
	var org Organization
	if err := transport.DecodeJSON(res, &org); err != nil {
		return Organization{}, err
	}
	return org, nil
}

func (c *Client) GetUser(ctx context.Context, token string) (User, error) {
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/users/me/",
		Token:  token,
	})
	if err != nil {
		return User{}, err
	}
	var user User
	if err := transport.DecodeJSON(res, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// RefreshToken runs the OAuth2 refresh-token grant against Eventbrite's
// token endpoint.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (core.Token, error) {
	if c.tokens == nil {
		return core.Token{}, fmt.Errorf("eventbrite: client id and secret are required for token refresh")
	}
	return c.tokens.Refresh(ctx, refreshToken)
}

// ValidateToken probes the identity endpoint and never returns an error.
func (c *Client) ValidateToken(ctx context.Context, token string) bool {
	if _, err := c.GetUser(ctx, token); err != nil {
		c.logger.Info("token validation failed", "provider_id", ProviderID, "error", err.Error())
		return false
	}
	return true
}
