package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

var (
	ErrProviderNotRegistered = errors.New("core: provider not registered")
	ErrConnectionNotActive   = errors.New("core: connection is not active")
)

// Service is the connection manager. It owns the OAuth lifecycle for every
// connection: initiation, callback completion, session minting with
// transparent refresh, and disconnect.
type Service struct {
	config                  Config
	logger                  Logger
	loggerProvider          LoggerProvider
	metricsRecorder         MetricsRecorder
	errorMapper             ErrorMapper
	configProvider          ConfigProvider
	optionsResolver         OptionsResolver
	registry                Registry
	oauthStateStore         OAuthStateStore
	secretProvider          SecretProvider
	credentialCodec         CredentialCodec
	connectionStore         ConnectionStore
	credentialStore         CredentialStore
	refreshGroup            *RefreshGroup
	connectionLocker        ConnectionLocker
	refreshBackoffScheduler RefreshBackoffScheduler
	now                     func() time.Time
}

type ServiceDependencies struct {
	Logger           Logger
	LoggerProvider   LoggerProvider
	MetricsRecorder  MetricsRecorder
	ErrorMapper      ErrorMapper
	ConfigProvider   ConfigProvider
	OptionsResolver  OptionsResolver
	Registry         Registry
	OAuthStateStore  OAuthStateStore
	SecretProvider   SecretProvider
	CredentialCodec  CredentialCodec
	ConnectionStore  ConnectionStore
	CredentialStore  CredentialStore
	ConnectionLocker ConnectionLocker
	RefreshScheduler RefreshBackoffScheduler
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("ledgersync", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("ledgersync"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.registry == nil {
		builder.registry = NewProviderRegistry()
	}
	if builder.oauthStateStore == nil {
		builder.oauthStateStore = NewMemoryOAuthStateStore(defaultOAuthStateTTL)
	}
	if builder.credentialCodec == nil {
		builder.credentialCodec = JSONCredentialCodec{}
	}
	if builder.refreshGroup == nil {
		builder.refreshGroup = NewRefreshGroup()
	}
	if builder.locker == nil {
		builder.locker = NewMemoryConnectionLocker()
	}
	if builder.refreshBackoff == nil {
		builder.refreshBackoff = ExponentialBackoffScheduler{
			Initial: defaultRefreshInitialBackoff,
			Max:     defaultRefreshMaxBackoff,
		}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Service{
		config:                  finalConfig,
		logger:                  logger,
		loggerProvider:          provider,
		metricsRecorder:         builder.metricsRecorder,
		errorMapper:             builder.errorMapper,
		configProvider:          builder.configProvider,
		optionsResolver:         builder.optionsResolver,
		registry:                builder.registry,
		oauthStateStore:         builder.oauthStateStore,
		secretProvider:          builder.secretProvider,
		credentialCodec:         builder.credentialCodec,
		connectionStore:         builder.connectionStore,
		credentialStore:         builder.credentialStore,
		refreshGroup:            builder.refreshGroup,
		connectionLocker:        builder.locker,
		refreshBackoffScheduler: builder.refreshBackoff,
		now:                     builder.now,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Registry() Registry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:           s.logger,
		LoggerProvider:   s.loggerProvider,
		MetricsRecorder:  s.metricsRecorder,
		ErrorMapper:      s.errorMapper,
		ConfigProvider:   s.configProvider,
		OptionsResolver:  s.optionsResolver,
		Registry:         s.registry,
		OAuthStateStore:  s.oauthStateStore,
		SecretProvider:   s.secretProvider,
		CredentialCodec:  s.credentialCodec,
		ConnectionStore:  s.connectionStore,
		CredentialStore:  s.credentialStore,
		ConnectionLocker: s.connectionLocker,
		RefreshScheduler: s.refreshBackoffScheduler,
	}
}

// Initiate starts an authorization flow: it records a pending connection,
// binds a one-shot state nonce to it, and returns the provider consent URL.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (response InitiateResponse, err error) {
	if s == nil {
		return InitiateResponse{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"tenant_id": strings.TrimSpace(req.TenantID),
		"provider":  string(req.Provider),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "initiate", err, fields)
	}()

	tenantID := strings.TrimSpace(req.TenantID)
	if tenantID == "" {
		return InitiateResponse{}, s.mapError(fmt.Errorf("core: tenant id is required"))
	}
	if _, err := ParseProviderKind(string(req.Provider)); err != nil {
		return InitiateResponse{}, s.mapError(err)
	}
	redirectURI := strings.TrimSpace(req.RedirectURI)
	if redirectURI == "" {
		return InitiateResponse{}, s.mapError(fmt.Errorf("core: redirect uri is required"))
	}

	provider, err := s.resolveProvider(req.Provider)
	if err != nil {
		return InitiateResponse{}, err
	}

	dataTypes := req.DataTypes
	if len(dataTypes) == 0 {
		dataTypes = []DataType{DataTypeChartOfAccounts}
	}
	for _, dt := range dataTypes {
		if _, err := ParseDataType(string(dt)); err != nil {
			return InitiateResponse{}, s.mapError(err)
		}
	}

	now := s.clock()
	connection, err := s.connections().Create(ctx, CreateConnectionInput{
		TenantID:      tenantID,
		Provider:      req.Provider,
		Status:        ConnectionStatusPending,
		DataTypes:     cloneDataTypes(dataTypes),
		SyncFrequency: s.config.Sync.DefaultFrequency,
	})
	if err != nil {
		return InitiateResponse{}, s.mapError(err)
	}

	state, err := generateOAuthState()
	if err != nil {
		return InitiateResponse{}, s.mapError(err)
	}
	if err := s.oauthStateStore.Save(ctx, OAuthStateRecord{
		State:               state,
		PendingConnectionID: connection.ID,
		Provider:            req.Provider,
		TenantID:            tenantID,
		RedirectURI:         redirectURI,
		DataTypes:           cloneDataTypes(dataTypes),
		CreatedAt:           now,
	}); err != nil {
		return InitiateResponse{}, s.mapError(err)
	}

	authURL := provider.BuildAuthorizationURL(state, redirectURI)
	fields["connection_id"] = connection.ID

	return InitiateResponse{
		AuthorizationURL:    authURL,
		State:               state,
		PendingConnectionID: connection.ID,
	}, nil
}

// CompleteCallback finishes the authorization flow. It consumes the state
// nonce, exchanges the code, persists the encrypted token set, and activates
// the connection. A rejected code leaves the connection pending so the
// tenant can retry the flow.
func (s *Service) CompleteCallback(ctx context.Context, req CompleteRequest) (connection Connection, err error) {
	if s == nil {
		return Connection{}, fmt.Errorf("core: service is nil")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "complete_callback", err, fields)
	}()

	state := strings.TrimSpace(req.State)
	if state == "" {
		return Connection{}, s.mapError(fmt.Errorf("core: oauth state is required"))
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return Connection{}, s.mapError(fmt.Errorf("core: authorization code is required"))
	}

	record, err := s.oauthStateStore.Consume(ctx, state)
	if err != nil {
		return Connection{}, s.mapError(err)
	}
	pendingID := strings.TrimSpace(req.PendingConnectionID)
	if pendingID != "" && pendingID != record.PendingConnectionID {
		return Connection{}, s.mapError(fmt.Errorf("core: oauth state connection mismatch"))
	}

	fields["tenant_id"] = record.TenantID
	fields["provider"] = string(record.Provider)
	fields["connection_id"] = record.PendingConnectionID

	connection, err = s.connections().Get(ctx, record.PendingConnectionID)
	if err != nil {
		return Connection{}, s.mapError(err)
	}

	provider, err := s.resolveProvider(record.Provider)
	if err != nil {
		return Connection{}, err
	}

	redirectURI := strings.TrimSpace(req.RedirectURI)
	if redirectURI == "" {
		redirectURI = record.RedirectURI
	}
	tokens, err := provider.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return Connection{}, s.mapError(NewAuthExchangeError(fmt.Sprintf("authorization code exchange failed: %v", err)))
	}
	externalCompanyID := strings.TrimSpace(tokens.ExternalCompanyID)
	if externalCompanyID == "" {
		externalCompanyID = strings.TrimSpace(req.ExternalCompanyID)
	}
	if externalCompanyID == "" {
		return Connection{}, s.mapError(fmt.Errorf("core: provider did not identify an external company"))
	}

	if existing, found, err := s.connections().FindActive(ctx, record.TenantID, record.Provider, externalCompanyID); err != nil {
		return Connection{}, s.mapError(err)
	} else if found && existing.ID != connection.ID {
		return Connection{}, s.mapError(fmt.Errorf("%w: %s/%s already connected for tenant %s",
			ErrDuplicateConnection, record.Provider, externalCompanyID, record.TenantID))
	}

	if err := s.persistTokens(ctx, connection.ID, tokens); err != nil {
		return Connection{}, err
	}
	if err := s.connections().SetExternalCompany(ctx, connection.ID, externalCompanyID); err != nil {
		return Connection{}, s.mapError(err)
	}
	if err := s.connections().UpdateStatus(ctx, connection.ID, ConnectionStatusConnected, ""); err != nil {
		return Connection{}, s.mapError(err)
	}

	connection, err = s.connections().Get(ctx, connection.ID)
	if err != nil {
		return Connection{}, s.mapError(err)
	}
	fields["external_company_id"] = externalCompanyID
	return connection, nil
}

// GetSession returns a valid session for the connection, refreshing the
// stored token first when it has expired or is inside the safety margin.
// Concurrent callers for the same connection collapse into one refresh.
func (s *Service) GetSession(ctx context.Context, connectionID string) (session Session, err error) {
	if s == nil {
		return Session{}, fmt.Errorf("core: service is nil")
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return Session{}, s.mapError(fmt.Errorf("core: connection id is required"))
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{"connection_id": connectionID}
	defer func() {
		s.observeOperation(ctx, startedAt, "get_session", err, fields)
	}()

	connection, err := s.connections().Get(ctx, connectionID)
	if err != nil {
		return Session{}, s.mapError(err)
	}
	switch connection.Status {
	case ConnectionStatusConnected, ConnectionStatusExpired:
	case ConnectionStatusReconnectRequired, ConnectionStatusRevoked:
		return Session{}, s.mapError(NewReconnectRequiredError(
			fmt.Sprintf("connection %s requires reauthorization", connectionID)))
	default:
		return Session{}, s.mapError(fmt.Errorf("%w: %s is %s", ErrConnectionNotActive, connectionID, connection.Status))
	}

	tokens, err := s.loadTokens(ctx, connectionID)
	if err != nil {
		return Session{}, err
	}

	freshness := ResolveTokenFreshness(s.clock(), tokens, s.config.Refresh.SafetyMargin)
	if !ShouldRefresh(freshness) && connection.Status == ConnectionStatusConnected {
		return s.sessionFromTokens(connection, tokens), nil
	}

	refreshed, shared, err := s.refreshGroup.Do(ctx, connectionID, func(ctx context.Context) (TokenSet, error) {
		return s.runRefresh(ctx, connection, tokens)
	})
	if err != nil {
		return Session{}, s.mapError(err)
	}
	if shared {
		fields["refresh_coalesced"] = true
	}
	if connection.Status == ConnectionStatusExpired {
		if err := s.connections().UpdateStatus(ctx, connectionID, ConnectionStatusConnected, ""); err != nil {
			return Session{}, s.mapError(err)
		}
		connection.Status = ConnectionStatusConnected
	}
	return s.sessionFromTokens(connection, refreshed), nil
}

// runRefresh executes the provider refresh under a TTL lock with bounded
// retries. A rejected refresh token is unrecoverable: the connection flips to
// reconnect_required and stays there until the tenant reauthorizes.
func (s *Service) runRefresh(ctx context.Context, connection Connection, current TokenSet) (TokenSet, error) {
	if strings.TrimSpace(current.RefreshToken) == "" {
		_ = s.markReconnectRequired(ctx, connection.ID, "no refresh token on record")
		return TokenSet{}, NewReconnectRequiredError(
			fmt.Sprintf("connection %s has no refresh token", connection.ID))
	}

	provider, err := s.resolveProvider(connection.Provider)
	if err != nil {
		return TokenSet{}, err
	}

	lockTTL := s.config.Refresh.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultRefreshLockTTL
	}
	unlock := func() {}
	if s.connectionLocker != nil {
		handle, lockErr := s.connectionLocker.Acquire(ctx, connection.ID, lockTTL)
		if lockErr != nil {
			return TokenSet{}, lockErr
		}
		unlock = func() { _ = handle.Unlock(ctx) }
	}
	defer unlock()

	maxAttempts := s.config.Refresh.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultRefreshMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tokens, refreshErr := provider.Refresh(ctx, current.RefreshToken)
		if refreshErr == nil {
			if strings.TrimSpace(tokens.ExternalCompanyID) == "" {
				tokens.ExternalCompanyID = connection.ExternalCompanyID
			}
			if err := s.persistTokens(ctx, connection.ID, tokens); err != nil {
				return TokenSet{}, err
			}
			s.logInfo(ctx, "token refreshed", map[string]any{
				"connection_id": connection.ID,
				"provider":      string(connection.Provider),
				"attempts":      attempt,
			})
			return tokens, nil
		}
		lastErr = refreshErr

		if isUnrecoverableRefreshError(refreshErr) {
			_ = s.markReconnectRequired(ctx, connection.ID, refreshErr.Error())
			return TokenSet{}, NewReconnectRequiredError(
				fmt.Sprintf("refresh token rejected for connection %s: %v", connection.ID, refreshErr))
		}
		if attempt == maxAttempts {
			break
		}

		delay := defaultRefreshInitialBackoff
		if s.refreshBackoffScheduler != nil {
			delay = s.refreshBackoffScheduler.NextDelay(attempt)
		}
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			return TokenSet{}, waitErr
		}
	}

	_ = s.markConnectionExpired(ctx, connection.ID, lastErr)
	return TokenSet{}, NewProviderTransientError(
		fmt.Sprintf("refresh failed for connection %s after %d attempts: %v", connection.ID, maxAttempts, lastErr))
}

// Disconnect revokes the provider grant best-effort, deletes the stored
// credential, and moves the connection to its terminal state. Scheduled syncs
// stop because disconnected connections are never listed as due.
func (s *Service) Disconnect(ctx context.Context, connectionID string) (err error) {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return s.mapError(fmt.Errorf("core: connection id is required"))
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{"connection_id": connectionID}
	defer func() {
		s.observeOperation(ctx, startedAt, "disconnect", err, fields)
	}()

	connection, err := s.connections().Get(ctx, connectionID)
	if err != nil {
		return s.mapError(err)
	}
	if connection.Status == ConnectionStatusDisconnected {
		return nil
	}

	if provider, ok := s.registry.Get(connection.Provider); ok {
		if revocable, ok := provider.(RevocableProvider); ok {
			if tokens, loadErr := s.loadTokens(ctx, connectionID); loadErr == nil && strings.TrimSpace(tokens.RefreshToken) != "" {
				if revokeErr := revocable.RevokeToken(ctx, tokens.RefreshToken); revokeErr != nil {
					s.logError(ctx, "provider token revocation failed", map[string]any{
						"connection_id": connectionID,
						"error":         revokeErr.Error(),
					})
				}
			}
		}
	}

	if s.credentialStore != nil {
		if err := s.credentialStore.Delete(ctx, connectionID); err != nil {
			return s.mapError(err)
		}
	}
	if err := s.connections().UpdateStatus(ctx, connectionID, ConnectionStatusDisconnected, "disconnected by tenant"); err != nil {
		return s.mapError(err)
	}

	fields["tenant_id"] = connection.TenantID
	fields["provider"] = string(connection.Provider)
	return nil
}

func (s *Service) GetConnection(ctx context.Context, connectionID string) (Connection, error) {
	if s == nil {
		return Connection{}, fmt.Errorf("core: service is nil")
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return Connection{}, s.mapError(fmt.Errorf("core: connection id is required"))
	}
	connection, err := s.connections().Get(ctx, connectionID)
	if err != nil {
		return Connection{}, s.mapError(err)
	}
	return connection, nil
}

func (s *Service) ListConnections(ctx context.Context, tenantID string) ([]Connection, error) {
	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, s.mapError(fmt.Errorf("core: tenant id is required"))
	}
	connections, err := s.connections().ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, s.mapError(err)
	}
	return connections, nil
}

// MarkReconnectRequired is used by callers that detect an unauthorized
// provider response with a freshly minted token: the stored grant itself is
// no longer valid.
func (s *Service) MarkReconnectRequired(ctx context.Context, connectionID string, reason string) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	return s.mapError(s.markReconnectRequired(ctx, connectionID, reason))
}

func (s *Service) markReconnectRequired(ctx context.Context, connectionID string, reason string) error {
	if s.connectionStore == nil {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "reauthorization required"
	}
	return s.connectionStore.UpdateStatus(ctx, connectionID, ConnectionStatusReconnectRequired, reason)
}

func (s *Service) markConnectionExpired(ctx context.Context, connectionID string, source error) error {
	if s.connectionStore == nil {
		return nil
	}
	reason := "token refresh failed"
	if source != nil {
		reason = strings.TrimSpace(source.Error())
	}
	return s.connectionStore.UpdateStatus(ctx, connectionID, ConnectionStatusExpired, reason)
}

func (s *Service) persistTokens(ctx context.Context, connectionID string, tokens TokenSet) error {
	if s.credentialStore == nil {
		return s.mapError(fmt.Errorf("core: credential store is required"))
	}
	if s.secretProvider == nil {
		return s.mapError(NewVaultError("secret provider is not configured"))
	}
	plaintext, err := s.credentialCodec.Encode(tokens)
	if err != nil {
		return s.mapError(err)
	}
	ciphertext, err := s.secretProvider.Encrypt(ctx, plaintext)
	if err != nil {
		return s.mapError(NewVaultError(fmt.Sprintf("credential encryption failed: %v", err)))
	}
	_, err = s.credentialStore.Save(ctx, SaveCredentialInput{
		ConnectionID:          connectionID,
		EncryptedPayload:      ciphertext,
		PayloadFormat:         s.credentialCodec.Format(),
		PayloadVersion:        s.credentialCodec.Version(),
		ExpiresAt:             tokens.ExpiresAt,
		RefreshTokenExpiresAt: cloneTimePointer(tokens.RefreshTokenExpiresAt),
	})
	if err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *Service) loadTokens(ctx context.Context, connectionID string) (TokenSet, error) {
	if s.credentialStore == nil {
		return TokenSet{}, s.mapError(fmt.Errorf("core: credential store is required"))
	}
	if s.secretProvider == nil {
		return TokenSet{}, s.mapError(NewVaultError("secret provider is not configured"))
	}
	stored, err := s.credentialStore.Get(ctx, connectionID)
	if err != nil {
		return TokenSet{}, s.mapError(err)
	}
	plaintext, err := s.secretProvider.Decrypt(ctx, stored.EncryptedPayload)
	if err != nil {
		return TokenSet{}, s.mapError(NewVaultError(fmt.Sprintf("credential decryption failed: %v", err)))
	}
	tokens, err := s.credentialCodec.Decode(plaintext)
	if err != nil {
		return TokenSet{}, s.mapError(err)
	}
	return tokens, nil
}

func (s *Service) sessionFromTokens(connection Connection, tokens TokenSet) Session {
	tokenType := strings.TrimSpace(tokens.TokenType)
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return Session{
		ConnectionID:      connection.ID,
		TenantID:          connection.TenantID,
		Provider:          connection.Provider,
		AccessToken:       tokens.AccessToken,
		TokenType:         tokenType,
		ExternalCompanyID: connection.ExternalCompanyID,
		ExpiresAt:         tokens.ExpiresAt,
	}
}

func (s *Service) resolveProvider(kind ProviderKind) (Provider, error) {
	if s.registry == nil {
		return nil, s.mapError(fmt.Errorf("%w: %s", ErrProviderNotRegistered, kind))
	}
	provider, ok := s.registry.Get(kind)
	if !ok || provider == nil {
		return nil, s.mapError(fmt.Errorf("%w: %s", ErrProviderNotRegistered, kind))
	}
	return provider, nil
}

func (s *Service) connections() ConnectionStore {
	if s.connectionStore == nil {
		return unavailableConnectionStore{}
	}
	return s.connectionStore
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) clock() time.Time {
	if s == nil || s.now == nil {
		return time.Now().UTC()
	}
	return s.now()
}

func NewConnectionID() string {
	return uuid.NewString()
}

func cloneDataTypes(in []DataType) []DataType {
	if len(in) == 0 {
		return nil
	}
	out := make([]DataType, len(in))
	copy(out, in)
	return out
}

type unavailableConnectionStore struct{}

func (unavailableConnectionStore) Create(context.Context, CreateConnectionInput) (Connection, error) {
	return Connection{}, fmt.Errorf("core: connection store is not configured")
}

func (unavailableConnectionStore) Get(context.Context, string) (Connection, error) {
	return Connection{}, fmt.Errorf("core: connection store is not configured")
}

func (unavailableConnectionStore) ListByTenant(context.Context, string) ([]Connection, error) {
	return nil, fmt.Errorf("core: connection store is not configured")
}

func (unavailableConnectionStore) FindActive(context.Context, string, ProviderKind, string) (Connection, bool, error) {
	return Connection{}, false, fmt.Errorf("core: connection store is not configured")
}

func (unavailableConnectionStore) ListDue(context.Context, time.Time) ([]Connection, error) {
	return nil, fmt.Errorf("core: connection store is not configured")
}

func (unavailableConnectionStore) UpdateStatus(context.Context, string, ConnectionStatus, string) error {
	return fmt.Errorf("core: connection store is not configured")
}

func (unavailableConnectionStore) SetExternalCompany(context.Context, string, string) error {
	return fmt.Errorf("core: connection store is not configured")
}

func (unavailableConnectionStore) TouchLastSynced(context.Context, string, time.Time) error {
	return fmt.Errorf("core: connection store is not configured")
}
