// Package publisher wires the provider clients from a single configuration
// tree. Callers that only need one provider can construct it directly from
// its own package; this is the batteries-included entry point.
//
// Provider throttling is the caller's to honor: build a policy with
// NewRateLimitPolicy, consult BeforeCall before issuing a request, and feed
// the response back through AfterCall (see the ratelimit package).
package publisher

import (
	"fmt"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-publisher/core"
	"github.com/goliatone/go-publisher/providers/eventbrite"
	"github.com/goliatone/go-publisher/providers/facebook"
	"github.com/goliatone/go-publisher/providers/googlebusiness"
	"github.com/goliatone/go-publisher/providers/meetup"
	"github.com/goliatone/go-publisher/ratelimit"
	"github.com/goliatone/go-publisher/transport"
)

// Convenience aliases so embedding callers only import this package.
type Config = core.Config

type Result = core.Result
type Token = core.Token
type Listing = core.Listing
type ProviderError = core.ProviderError

type RateLimitKey = ratelimit.Key
type RateLimitPolicy = ratelimit.AdaptivePolicy

var (
	DefaultConfig      = core.DefaultConfig
	AsProviderError    = core.AsProviderError
	IsRetryable        = core.IsRetryable
	FormatListingEvent = meetup.FormatListingEvent

	NewRateLimitPolicy = ratelimit.NewAdaptivePolicy
	NewRateLimitStore  = ratelimit.NewMemoryStateStore
)

// Clients bundles one configured client per provider.
type Clients struct {
	Facebook       *facebook.Client
	GoogleBusiness *googlebusiness.Client
	Eventbrite     *eventbrite.Client
	Meetup         *meetup.Client
}

// Option tweaks construction without widening the Config tree.
type Option func(*settings)

type settings struct {
	httpClient transport.HTTPDoer
	logger     glog.Logger
}

// WithHTTPClient injects a shared HTTP client into every provider, mostly
// for tests and callers with their own transport tuning.
func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}

func WithLogger(logger glog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// New validates the configuration and constructs all four provider clients.
func New(cfg Config, options ...Option) (*Clients, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := settings{}
	for _, option := range options {
		if option != nil {
			option(&s)
		}
	}
	_, logger := glog.Resolve(cfg.ServiceName, nil, s.logger)
	logger = glog.Ensure(logger)

	fb, err := FacebookClient(cfg, s.httpClient, logger)
	if err != nil {
		return nil, err
	}
	gbp, err := GoogleBusinessClient(cfg, s.httpClient, logger)
	if err != nil {
		return nil, err
	}
	eb, err := EventbriteClient(cfg, s.httpClient, logger)
	if err != nil {
		return nil, err
	}
	mu, err := MeetupClient(cfg, s.httpClient, logger)
	if err != nil {
		return nil, err
	}

	return &Clients{
		Facebook:       fb,
		GoogleBusiness: gbp,
		Eventbrite:     eb,
		Meetup:         mu,
	}, nil
}

func FacebookClient(cfg Config, httpClient transport.HTTPDoer, logger glog.Logger) (*facebook.Client, error) {
	client, err := facebook.New(facebook.Config{
		AppID:           cfg.Facebook.AppID,
		AppSecret:       cfg.Facebook.AppSecret,
		GraphAPIBase:    cfg.Facebook.GraphAPIBase,
		GraphAPIVersion: cfg.Facebook.GraphAPIVersion,
		HTTPClient:      httpClient,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("publisher: facebook client: %w", err)
	}
	return client, nil
}

func GoogleBusinessClient(cfg Config, httpClient transport.HTTPDoer, logger glog.Logger) (*googlebusiness.Client, error) {
	client, err := googlebusiness.New(googlebusiness.Config{
		ClientID:     cfg.GoogleBusiness.ClientID,
		ClientSecret: cfg.GoogleBusiness.ClientSecret,
		APIBase:      cfg.GoogleBusiness.APIBase,
		APIVersion:   cfg.GoogleBusiness.APIVersion,
		TokenURL:     cfg.GoogleBusiness.TokenURL,
		HTTPClient:   httpClient,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("publisher: google business client: %w", err)
	}
	return client, nil
}

func EventbriteClient(cfg Config, httpClient transport.HTTPDoer, logger glog.Logger) (*eventbrite.Client, error) {
	client, err := eventbrite.New(eventbrite.Config{
		ClientID:     cfg.Eventbrite.ClientID,
		ClientSecret: cfg.Eventbrite.ClientSecret,
		TokenURL:     cfg.Eventbrite.TokenURL,
		HTTPClient:   httpClient,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("publisher: eventbrite client: %w", err)
	}
	return client, nil
}

func MeetupClient(cfg Config, httpClient transport.HTTPDoer, logger glog.Logger) (*meetup.Client, error) {
	client, err := meetup.New(meetup.Config{
		ClientID:     cfg.Meetup.ClientID,
		ClientSecret: cfg.Meetup.ClientSecret,
		TokenURL:     cfg.Meetup.TokenURL,
		HTTPClient:   httpClient,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("publisher: meetup client: %w", err)
	}
	return client, nil
}
