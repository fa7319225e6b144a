package ledgersync

import "github.com/auditgrid/ledgersync/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type OAuthStateStore = core.OAuthStateStore
type ConnectionLocker = core.ConnectionLocker
type RefreshBackoffScheduler = core.RefreshBackoffScheduler
type SecretProvider = core.SecretProvider
type ConnectionStore = core.ConnectionStore
type CredentialStore = core.CredentialStore
type SyncJobStore = core.SyncJobStore
type StoreProvider = core.StoreProvider

type Connection = core.Connection
type SyncJob = core.SyncJob
type NormalizedAccount = core.NormalizedAccount
type ProviderDocument = core.ProviderDocument

type InitiateRequest = core.InitiateRequest
type InitiateResponse = core.InitiateResponse

type CompleteRequest = core.CompleteRequest

type Session = core.Session

var (
	WithLogger                  = core.WithLogger
	WithLoggerProvider          = core.WithLoggerProvider
	WithMetricsRecorder         = core.WithMetricsRecorder
	WithErrorMapper             = core.WithErrorMapper
	WithConfigProvider          = core.WithConfigProvider
	WithOptionsResolver         = core.WithOptionsResolver
	WithRegistry                = core.WithRegistry
	WithOAuthStateStore         = core.WithOAuthStateStore
	WithSecretProvider          = core.WithSecretProvider
	WithCredentialCodec         = core.WithCredentialCodec
	WithConnectionStore         = core.WithConnectionStore
	WithCredentialStore         = core.WithCredentialStore
	WithConnectionLocker        = core.WithConnectionLocker
	WithRefreshBackoffScheduler = core.WithRefreshBackoffScheduler
	WithClock                   = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
