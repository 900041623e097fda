// Package meetup is the Meetup REST client. Event endpoints address groups
// by their human-readable urlname, not a numeric id. This is also the one
// provider shipping a listing-to-event mapper in this layer (mapper.go).
package meetup

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-publisher/core"
	"github.com/goliatone/go-publisher/providers"
	"github.com/goliatone/go-publisher/transport"
)

const ProviderID = "meetup"

var retryAllowlist = []string{"throttled", "server_error"}

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
		base = core.MeetupAPIBase
	}
	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = core.MeetupTokenURL
	}

	_, logger := glog.Resolve("providers."+ProviderID, nil, cfg.Logger)
	logger = glog.Ensure(logger)

	rest, err := transport.New(transport.Config{
		ProviderID:     ProviderID,
		BaseURL:        base,
		AuthStyle:      transport.AuthStyleBearerHeader,
		ErrorExtractor: extractMeetupError,
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

// extractMeetupError reads either the list form {"errors": [{"code", "message"}]}
// or the flat form {"error": "...", "error_description": "..."}.
func extractMeetupError(body map[string]any) (string, string) {
	if list, ok := body["errors"].([]any); ok && len(list) > 0 {
		if first, ok := list[0].(map[string]any); ok {
			code, _ := first["code"].(string)
			message, _ := first["message"].(string)
			return strings.TrimSpace(code), strings.TrimSpace(message)
		}
	}
	code, _ := body["error"].(string)
	message, _ := body["error_description"].(string)
	return strings.TrimSpace(code), strings.TrimSpace(message)
}

// Event is the writable Meetup event shape. Time and Duration are epoch and
// delta milliseconds as the API expects.
type Event struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Time          int64  `json:"time"`
	Duration      int64  `json:"duration,omitempty"`
	RSVPLimit     int    `json:"rsvp_limit,omitempty"`
	Venue         *Venue `json:"venue,omitempty"`
	HowToFindUs   string `json:"how_to_find_us,omitempty"`
	PublishStatus string `json:"publish_status,omitempty"`
}

type Venue struct {
	Name     string  `json:"name,omitempty"`
	Address1 string  `json:"address_1,omitempty"`
	City     string  `json:"city,omitempty"`
	State    string  `json:"state,omitempty"`
	Zip      string  `json:"zip,omitempty"`
	Country  string  `json:"country,omitempty"`
	Lat      float64 `json:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty"`
}

// EventDetail is the read shape returned by event endpoints.
type EventDetail struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Link     string `json:"link"`
	Status   string `json:"status"`
	Time     int64  `json:"time"`
	Duration int64  `json:"duration"`
}

type Group struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	URLName string `json:"urlname"`
	City    string `json:"city"`
	Country string `json:"country"`
	Members int    `json:"members"`
	Link    string `json:"link"`
}

type Member struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Category struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortname"`
}

// CreateEvent creates an event in the group addressed by urlname. Meetup
// returns the browsable link directly.
func (c *Client) CreateEvent(ctx context.Context, token, urlname string, event Event) (core.Result, error) {
	urlname = strings.TrimSpace(urlname)
	if urlname == "" {
		return core.Result{}, fmt.Errorf("meetup: group urlname is required")
	}
	if strings.TrimSpace(event.Name) == "" {
		return core.Result{}, fmt.Errorf("meetup: event name is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/" + urlname + "/events",
		Token:  token,
		Body:   event,
	})
	if err != nil {
		return core.Result{}, err
	}
	var created EventDetail
	if err := transport.DecodeJSON(res, &created); err != nil {
		return core.Result{}, err
	}
	return core.Result{ID: created.ID, URL: created.Link}, nil
}

func (c *Client) UpdateEvent(ctx context.Context, token, urlname, eventID string, event Event) (core.Result, error) {
	urlname = strings.TrimSpace(urlname)
	eventID = strings.TrimSpace(eventID)
	if urlname == "" || eventID == "" {
		return core.Result{}, fmt.Errorf("meetup: group urlname and event id are required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodPatch,
		Path:   "/" + urlname + "/events/" + eventID,
		Token:  token,
		Body:   event,
	})
	if err != nil {
		return core.Result{}, err
	}
	var updated EventDetail
	if err := transport.DecodeJSON(res, &updated); err != nil {
		return core.Result{}, err
	}
	if strings.TrimSpace(updated.ID) == "" {
		updated.ID = eventID
	}
	return core.Result{ID: updated.ID, URL: updated.Link}, nil
}

func (c *Client) DeleteEvent(ctx context.Context, token, urlname, eventID string) error {
	urlname = strings.TrimSpace(urlname)
	eventID = strings.TrimSpace(eventID)
	if urlname == "" || eventID == "" {
		return fmt.Errorf("meetup: group urlname and event id are required")
	}
	_, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		Path:   "/" + urlname + "/events/" + eventID,
		Token:  token,
	})
	return err
}

func (c *Client) GetEvent(ctx context.Context, token, urlname, eventID string) (EventDetail, error) {
	urlname = strings.TrimSpace(urlname)
	eventID = strings.TrimSpace(eventID)
	if urlname == "" || eventID == "" {
		return EventDetail{}, fmt.Errorf("meetup: group urlname and event id are required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/" + urlname + "/events/" + eventID,
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

func (c *Client) GetEvents(ctx context.Context, token, urlname string) ([]EventDetail, error) {
	urlname = strings.TrimSpace(urlname)
	if urlname == "" {
		return nil, fmt.Errorf("meetup: group urlname is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/" + urlname + "/events",
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	var events []EventDetail
	if err := transport.DecodeJSON(res, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) GetGroup(ctx context.Context, token, urlname string) (Group, error) {
	urlname = strings.TrimSpace(urlname)
	if urlname == "" {
		return Group{}, fmt.Errorf("meetup: group urlname is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/" + urlname,
		Token:  token,
	})
	if err != nil {
		return Group{}, err
	}
	var group Group
	if err := transport.DecodeJSON(res, &group); err != nil {
		return Group{}, err
	}
	return group, nil
}

// GetGroups lists the groups the authenticated member belongs to.
func (c *Client) GetGroups(ctx context.Context, token string) ([]Group, error) {
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/self/groups",
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	var groups []Group
	if err := transport.DecodeJSON(res, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// SearchGroups runs full-text plus location search. Lat/lon are ignored
// when both are zero.
func (c *Client) SearchGroups(ctx context.Context, token, query string, lat, lon float64) ([]Group, error) {
	params := map[string]string{}
	if query = strings.TrimSpace(query); query != "" {
		params["text"] = query
	}
	if lat != 0 || lon != 0 {
		params["lat"] = strconv.FormatFloat(lat, 'f', -1, 64)
		params["lon"] = strconv.FormatFloat(lon, 'f', -1, 64)
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/find/groups",
		Token:  token,
		Query:  params,
	})
	if err != nil {
		return nil, err
	}
	var groups []Group
	if err := transport.DecodeJSON(res, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *Client) GetUser(ctx context.Context, token string) (Member, error) {
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/members/self",
		Token:  token,
	})
	if err != nil {
		return Member{}, err
	}
	var member Member
	if err := transport.DecodeJSON(res, &member); err != nil {
		return Member{}, err
	}
	return member, nil
}

func (c *Client) GetMember(ctx context.Context, token, memberID string) (Member, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return Member{}, fmt.Errorf("meetup: member id is required")
	}
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/members/" + memberID,
		Token:  token,
	})
	if err != nil {
		return Member{}, err
	}
	var member Member
	if err := transport.DecodeJSON(res, &member); err != nil {
		return Member{}, err
	}
	return member, nil
}

func (c *Client) GetCategories(ctx context.Context, token string) ([]Category, error) {
	res, err := c.rest.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/find/topic_categories",
		Token:  token,
	})
	if err != nil {
		return nil, err
	}
	var categories []Category
	if err := transport.DecodeJSON(res, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// RefreshToken runs the OAuth2 refresh-token grant against Meetup's token
// endpoint.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (core.Token, error) {
	if c.tokens == nil {
		return core.Token{}, fmt.Errorf("meetup: client id and secret are required for token refresh")
	}
	return c.tokens.Refresh(ctx, refreshToken)
}

// ValidateToken probes the member identity endpoint and never returns an
// error.
func (c *Client) ValidateToken(ctx context.Context, token string) bool {
	if _, err := c.GetUser(ctx, token); err != nil {
		c.logger.Info("token validation failed", "provider_id", ProviderID, "error", err.Error())
		return false
	}
	return true
}
