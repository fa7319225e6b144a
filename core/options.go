package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	registry        Registry
	oauthStateStore OAuthStateStore
	secretProvider  SecretProvider
	credentialCodec CredentialCodec
	connectionStore ConnectionStore
	credentialStore CredentialStore
	refreshGroup    *RefreshGroup
	locker          ConnectionLocker
	refreshBackoff  RefreshBackoffScheduler
	now             func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithRegistry(registry Registry) Option {
	return func(b *serviceBuilder) {
		b.registry = registry
	}
}

func WithOAuthStateStore(store OAuthStateStore) Option {
	return func(b *serviceBuilder) {
		b.oauthStateStore = store
	}
}

func WithSecretProvider(provider SecretProvider) Option {
	return func(b *serviceBuilder) {
		b.secretProvider = provider
	}
}

func WithCredentialCodec(codec CredentialCodec) Option {
	return func(b *serviceBuilder) {
		b.credentialCodec = codec
	}
}

func WithConnectionStore(store ConnectionStore) Option {
	return func(b *serviceBuilder) {
		b.connectionStore = store
	}
}

func WithCredentialStore(store CredentialStore) Option {
	return func(b *serviceBuilder) {
		b.credentialStore = store
	}
}

func WithConnectionLocker(locker ConnectionLocker) Option {
	return func(b *serviceBuilder) {
		b.locker = locker
	}
}

func WithRefreshBackoffScheduler(scheduler RefreshBackoffScheduler) Option {
	return func(b *serviceBuilder) {
		b.refreshBackoff = scheduler
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *serviceBuilder) {
		if now != nil {
			b.now = now
		}
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("ledgersync", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		registry:        NewProviderRegistry(),
		credentialCodec: JSONCredentialCodec{},
		refreshGroup:    NewRefreshGroup(),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return serviceErrorMapper(err)
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

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
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

	refresh := map[string]any{}
	if includeZero || cfg.Refresh.SafetyMargin > 0 {
		refresh["safety_margin"] = cfg.Refresh.SafetyMargin
	}
	if includeZero || cfg.Refresh.MaxAttempts > 0 {
		refresh["max_attempts"] = cfg.Refresh.MaxAttempts
	}
	if includeZero || cfg.Refresh.LockTTL > 0 {
		refresh["lock_ttl"] = cfg.Refresh.LockTTL
	}
	if len(refresh) > 0 {
		layer["refresh"] = refresh
	}

	syncLayer := map[string]any{}
	if includeZero || cfg.Sync.DefaultFrequency > 0 {
		syncLayer["default_frequency"] = cfg.Sync.DefaultFrequency
	}
	if includeZero || cfg.Sync.JobTimeout > 0 {
		syncLayer["job_timeout"] = cfg.Sync.JobTimeout
	}
	if includeZero || cfg.Sync.RequestTimeout > 0 {
		syncLayer["request_timeout"] = cfg.Sync.RequestTimeout
	}
	if includeZero || cfg.Sync.MaxFetchAttempts > 0 {
		syncLayer["max_fetch_attempts"] = cfg.Sync.MaxFetchAttempts
	}
	if len(syncLayer) > 0 {
		layer["sync"] = syncLayer
	}

	normalization := map[string]any{}
	if includeZero || cfg.Normalization.MaxAutoConfidence > 0 {
		normalization["max_auto_confidence"] = cfg.Normalization.MaxAutoConfidence
	}
	if includeZero || cfg.Normalization.FallbackConfidence > 0 {
		normalization["fallback_confidence"] = cfg.Normalization.FallbackConfidence
	}
	if includeZero || cfg.Normalization.ReviewThreshold > 0 {
		normalization["review_threshold"] = cfg.Normalization.ReviewThreshold
	}
	if len(normalization) > 0 {
		layer["normalization"] = normalization
	}

	return layer
}
