package core

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultGraphAPIBase    = "https://graph.facebook.com"
	DefaultGraphAPIVersion = "v18.0"

	DefaultGBPAPIBase    = "https://mybusiness.googleapis.com"
	DefaultGBPAPIVersion = "v4"

	EventbriteAPIBase    = "https://www.eventbriteapi.com"
	EventbriteAPIVersion = "v3"
	MeetupAPIBase        = "https://api.meetup.com"

	GoogleTokenURL     = "https://oauth2.googleapis.com/token"
	EventbriteTokenURL = "https://www.eventbrite.com/oauth/token"
	MeetupTokenURL     = "https://secure.meetup.com/oauth2/access"
)

type FacebookConfig struct {
	AppID           string `koanf:"app_id" mapstructure:"app_id"`
	AppSecret       string `koanf:"app_secret" mapstructure:"app_secret"`
	GraphAPIBase    string `koanf:"graph_api_base" mapstructure:"graph_api_base"`
	GraphAPIVersion string `koanf:"graph_api_version" mapstructure:"graph_api_version"`
}

type GoogleBusinessConfig struct {
	ClientID     string `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string `koanf:"client_secret" mapstructure:"client_secret"`
	APIBase      string `koanf:"api_base" mapstructure:"api_base"`
	APIVersion   string `koanf:"api_version" mapstructure:"api_version"`
	TokenURL     string `koanf:"token_url" mapstructure:"token_url"`
}

type EventbriteConfig struct {
	ClientID     string `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string `koanf:"client_secret" mapstructure:"client_secret"`
	TokenURL     string `koanf:"token_url" mapstructure:"token_url"`
}

type MeetupConfig struct {
	ClientID     string `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string `koanf:"client_secret" mapstructure:"client_secret"`
	TokenURL     string `koanf:"token_url" mapstructure:"token_url"`
}

// Config carries the deployment settings for every provider client. Client
// ids and secrets are deployment material: they feed auth flows and must
// never appear in logs (see RedactSensitiveMap).
type Config struct {
	ServiceName    string               `koanf:"service_name" mapstructure:"service_name"`
	Facebook       FacebookConfig       `koanf:"facebook" mapstructure:"facebook"`
	GoogleBusiness GoogleBusinessConfig `koanf:"google_business" mapstructure:"google_business"`
	Eventbrite     EventbriteConfig     `koanf:"eventbrite" mapstructure:"eventbrite"`
	Meetup         MeetupConfig         `koanf:"meetup" mapstructure:"meetup"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "publisher",
		Facebook: FacebookConfig{
			GraphAPIBase:    DefaultGraphAPIBase,
			GraphAPIVersion: DefaultGraphAPIVersion,
		},
		GoogleBusiness: GoogleBusinessConfig{
			APIBase:    DefaultGBPAPIBase,
			APIVersion: DefaultGBPAPIVersion,
			TokenURL:   GoogleTokenURL,
		},
		Eventbrite: EventbriteConfig{
			TokenURL: EventbriteTokenURL,
		},
		Meetup: MeetupConfig{
			TokenURL: MeetupTokenURL,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	for name, base := range map[string]string{
		"facebook.graph_api_base":  c.Facebook.GraphAPIBase,
		"google_business.api_base": c.GoogleBusiness.APIBase,
	} {
		if strings.TrimSpace(base) == "" {
			continue
		}
		if _, err := url.ParseRequestURI(strings.TrimSpace(base)); err != nil {
			return fmt.Errorf("core: %s is not a valid url: %w", name, err)
		}
	}
	return nil
}
