package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// NewStaticRawConfigLoader exists mostly for tests and embedding callers
// that already resolved their configuration tree.
func NewStaticRawConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

// Resolve merges defaults, loaded, and runtime configuration layers in
// increasing precedence, then revalidates the merged result.
func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	facebook := map[string]any{}
	setLayerValue(facebook, "app_id", cfg.Facebook.AppID, includeZero)
	setLayerValue(facebook, "app_secret", cfg.Facebook.AppSecret, includeZero)
	setLayerValue(facebook, "graph_api_base", cfg.Facebook.GraphAPIBase, includeZero)
	setLayerValue(facebook, "graph_api_version", cfg.Facebook.GraphAPIVersion, includeZero)
	if len(facebook) > 0 {
		layer["facebook"] = facebook
	}

	google := map[string]any{}
	setLayerValue(google, "client_id", cfg.GoogleBusiness.ClientID, includeZero)
	setLayerValue(google, "client_secret", cfg.GoogleBusiness.ClientSecret, includeZero)
	setLayerValue(google, "api_base", cfg.GoogleBusiness.APIBase, includeZero)
	setLayerValue(google, "api_version", cfg.GoogleBusiness.APIVersion, includeZero)
	setLayerValue(google, "token_url", cfg.GoogleBusiness.TokenURL, includeZero)
	if len(google) > 0 {
		layer["google_business"] = google
	}

	eventbrite := map[string]any{}
	setLayerValue(eventbrite, "client_id", cfg.Eventbrite.ClientID, includeZero)
	setLayerValue(eventbrite, "client_secret", cfg.Eventbrite.ClientSecret, includeZero)
	setLayerValue(eventbrite, "token_url", cfg.Eventbrite.TokenURL, includeZero)
	if len(eventbrite) > 0 {
		layer["eventbrite"] = eventbrite
	}

	meetup := map[string]any{}
	setLayerValue(meetup, "client_id", cfg.Meetup.ClientID, includeZero)
	setLayerValue(meetup, "client_secret", cfg.Meetup.ClientSecret, includeZero)
	setLayerValue(meetup, "token_url", cfg.Meetup.TokenURL, includeZero)
	if len(meetup) > 0 {
		layer["meetup"] = meetup
	}

	return layer
}

func setLayerValue(layer map[string]any, key string, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		layer[key] = value
	}
}
