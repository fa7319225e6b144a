package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// TokenSet is the plaintext credential material exchanged with a provider.
// It only ever lives in memory; persistence goes through the SecretProvider.
type TokenSet struct {
	AccessToken           string
	RefreshToken          string
	TokenType             string
	ExpiresAt             time.Time
	RefreshTokenExpiresAt *time.Time
	ExternalCompanyID     string
}

type InitiateRequest struct {
	TenantID    string
	Provider    ProviderKind
	RedirectURI string
	DataTypes   []DataType
	Metadata    map[string]any
}

type InitiateResponse struct {
	AuthorizationURL    string
	State               string
	PendingConnectionID string
}

type CompleteRequest struct {
	PendingConnectionID string
	Code                string
	State               string
	RedirectURI         string
	// ExternalCompanyID carries provider company identifiers delivered on
	// the callback URL itself (QuickBooks realmId) rather than in the token
	// response.
	ExternalCompanyID string
}

// Session is a usable provider session: a decrypted, valid access token plus
// the routing identifiers provider calls need.
type Session struct {
	ConnectionID      string
	TenantID          string
	Provider          ProviderKind
	AccessToken       string
	TokenType         string
	ExternalCompanyID string
	ExpiresAt         time.Time
}

type FetchRequest struct {
	Session   Session
	DataType  DataType
	PeriodEnd *time.Time
}

// WebhookEvent is the provider-neutral outcome of resolving a verified
// webhook payload: which company changed and which data types to re-sync.
type WebhookEvent struct {
	ExternalCompanyID string
	DataTypes         []DataType
	DeliveryID        string
	OccurredAt        *time.Time
}

// Provider is the capability surface each accounting platform adapter
// implements. Implementations encapsulate provider quirks (token lifetimes,
// pagination, signature algorithms) so everything above stays
// provider-agnostic.
type Provider interface {
	Kind() ProviderKind

	BuildAuthorizationURL(state string, redirectURI string) string
	ExchangeCode(ctx context.Context, code string, redirectURI string) (TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (TokenSet, error)
	Fetch(ctx context.Context, req FetchRequest) (ProviderDocument, error)
	VerifyWebhook(payload []byte, signatureHeader string) error
	ResolveWebhook(payload []byte) ([]WebhookEvent, error)
}

// RevocableProvider is implemented by providers that support server-side
// token revocation; disconnect uses it best-effort.
type RevocableProvider interface {
	RevokeToken(ctx context.Context, refreshToken string) error
}

type Registry interface {
	Register(provider Provider) error
	Get(kind ProviderKind) (Provider, bool)
	List() []Provider
}

type CreateConnectionInput struct {
	TenantID          string
	Provider          ProviderKind
	ExternalCompanyID string
	Status            ConnectionStatus
	DataTypes         []DataType
	SyncFrequency     time.Duration
}

type ConnectionStore interface {
	Create(ctx context.Context, in CreateConnectionInput) (Connection, error)
	Get(ctx context.Context, id string) (Connection, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Connection, error)
	FindActive(ctx context.Context, tenantID string, provider ProviderKind, externalCompanyID string) (Connection, bool, error)
	ListDue(ctx context.Context, now time.Time) ([]Connection, error)
	UpdateStatus(ctx context.Context, id string, status ConnectionStatus, reason string) error
	SetExternalCompany(ctx context.Context, id string, externalCompanyID string) error
	TouchLastSynced(ctx context.Context, id string, at time.Time) error
}

type SaveCredentialInput struct {
	ConnectionID          string
	EncryptedPayload      []byte
	PayloadFormat         string
	PayloadVersion        int
	ExpiresAt             time.Time
	RefreshTokenExpiresAt *time.Time
}

// StoredCredential is the at-rest form of a token set: ciphertext plus the
// expiry metadata needed to decide refresh without decrypting.
type StoredCredential struct {
	ConnectionID          string
	EncryptedPayload      []byte
	PayloadFormat         string
	PayloadVersion        int
	ExpiresAt             time.Time
	RefreshTokenExpiresAt *time.Time
	UpdatedAt             time.Time
}

type CredentialStore interface {
	Save(ctx context.Context, in SaveCredentialInput) (StoredCredential, error)
	Get(ctx context.Context, connectionID string) (StoredCredential, error)
	Delete(ctx context.Context, connectionID string) error
}

// SecretProvider encrypts and decrypts credential payloads at rest. It is
// the sole component allowed to touch token ciphertext.
type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type CreateSyncJobInput struct {
	ConnectionID string
	Provider     ProviderKind
	DataType     DataType
	Trigger      string
}

type SyncJobStore interface {
	Create(ctx context.Context, in CreateSyncJobInput) (SyncJob, error)
	Get(ctx context.Context, id string) (SyncJob, error)
	FindInFlight(ctx context.Context, connectionID string, dataType DataType) (SyncJob, bool, error)
	ListByConnection(ctx context.Context, connectionID string, limit int) ([]SyncJob, error)
	Update(ctx context.Context, job SyncJob) (SyncJob, error)
}

type NormalizedAccountStore interface {
	ReplaceSnapshot(ctx context.Context, connectionID string, accounts []NormalizedAccount) error
	ListByConnection(ctx context.Context, connectionID string) ([]NormalizedAccount, error)
	ListBelowConfidence(ctx context.Context, connectionID string, threshold float64) ([]NormalizedAccount, error)
}

type MappingOverrideStore interface {
	Upsert(ctx context.Context, override MappingOverride) (MappingOverride, error)
	Get(ctx context.Context, connectionID string, externalAccountID string) (MappingOverride, bool, error)
	ListByConnection(ctx context.Context, connectionID string) ([]MappingOverride, error)
	Delete(ctx context.Context, connectionID string, externalAccountID string) error
}

// StatementStore persists non-chart documents (trial balance, statements)
// as provider-neutral snapshots, last write wins per data type.
type StatementStore interface {
	ReplaceDocument(ctx context.Context, doc ProviderDocument, connectionID string) error
	GetDocument(ctx context.Context, connectionID string, dataType DataType) (ProviderDocument, error)
}

// RateLimitKey scopes rate-limit budgets per (tenant, provider) so one
// tenant's activity cannot exhaust another's quota with the same provider.
type RateLimitKey struct {
	Provider ProviderKind
	TenantID string
}

type ProviderResponseMeta struct {
	StatusCode int
	Headers    map[string]string
	RetryAfter *time.Duration
}

type RateLimitPolicy interface {
	BeforeCall(ctx context.Context, key RateLimitKey) error
	AfterCall(ctx context.Context, key RateLimitKey, res ProviderResponseMeta) error
}

// SyncTrigger is the narrow surface the webhook processor needs from the
// orchestrator: enqueue syncs without blocking the ack path.
type SyncTrigger interface {
	TriggerSync(ctx context.Context, connectionID string, dataTypes []DataType, trigger string) ([]SyncJob, error)
}

type JobExecutionMessage struct {
	JobID          string
	ConnectionID   string
	DataType       string
	IdempotencyKey string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// JobWorkerHook observes worker lifecycle events for sync-job executions.
type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type StoreProvider interface {
	ConnectionStore() ConnectionStore
	CredentialStore() CredentialStore
	SyncJobStore() SyncJobStore
	NormalizedAccountStore() NormalizedAccountStore
	MappingOverrideStore() MappingOverrideStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}
