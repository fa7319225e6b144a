package core

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"
)

type testProvider struct {
	kind       ProviderKind
	exchangeFn func(ctx context.Context, code string, redirectURI string) (TokenSet, error)
	refreshFn  func(ctx context.Context, refreshToken string) (TokenSet, error)
	fetchFn    func(ctx context.Context, req FetchRequest) (ProviderDocument, error)
}

func (p testProvider) Kind() ProviderKind {
	if strings.TrimSpace(string(p.kind)) == "" {
		return ProviderQuickBooks
	}
	return p.kind
}

func (p testProvider) BuildAuthorizationURL(state string, redirectURI string) string {
	return fmt.Sprintf("https://auth.example.com/consent?state=%s&redirect_uri=%s", state, redirectURI)
}

func (p testProvider) ExchangeCode(ctx context.Context, code string, redirectURI string) (TokenSet, error) {
	if p.exchangeFn != nil {
		return p.exchangeFn(ctx, code, redirectURI)
	}
	return TokenSet{
		AccessToken:       "access-" + code,
		RefreshToken:      "refresh-" + code,
		TokenType:         "bearer",
		ExpiresAt:         time.Now().UTC().Add(time.Hour),
		ExternalCompanyID: "company_1",
	}, nil
}

func (p testProvider) Refresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	if p.refreshFn != nil {
		return p.refreshFn(ctx, refreshToken)
	}
	return TokenSet{
		AccessToken:  "access-rotated",
		RefreshToken: "refresh-rotated",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	}, nil
}

func (p testProvider) Fetch(ctx context.Context, req FetchRequest) (ProviderDocument, error) {
	if p.fetchFn != nil {
		return p.fetchFn(ctx, req)
	}
	return ProviderDocument{Provider: p.Kind(), DataType: req.DataType, FetchedAt: time.Now().UTC()}, nil
}

func (p testProvider) VerifyWebhook([]byte, string) error { return nil }

func (p testProvider) ResolveWebhook([]byte) ([]WebhookEvent, error) { return nil, nil }

type revocableTestProvider struct {
	testProvider
	mu      sync.Mutex
	revoked []string
}

func (p *revocableTestProvider) RevokeToken(_ context.Context, refreshToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, refreshToken)
	return nil
}

func (p *revocableTestProvider) revokedTokens() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.revoked...)
}

type testSecretProvider struct{}

func (testSecretProvider) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("test secret provider: plaintext is required")
	}
	return []byte("enc:" + base64.StdEncoding.EncodeToString(plaintext)), nil
}

func (testSecretProvider) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	value := string(ciphertext)
	if !strings.HasPrefix(value, "enc:") {
		return nil, fmt.Errorf("test secret provider: invalid ciphertext")
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, "enc:"))
	if err != nil {
		return nil, fmt.Errorf("test secret provider: decode ciphertext: %w", err)
	}
	return decoded, nil
}

type memoryConnectionStore struct {
	mu   sync.Mutex
	next int
	byID map[string]Connection
}

func newMemoryConnectionStore() *memoryConnectionStore {
	return &memoryConnectionStore{byID: map[string]Connection{}}
}

func (s *memoryConnectionStore) Create(_ context.Context, in CreateConnectionInput) (Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(in.TenantID) == "" {
		return Connection{}, fmt.Errorf("tenant id is required")
	}
	s.next++
	now := time.Now().UTC()
	status := in.Status
	if strings.TrimSpace(string(status)) == "" {
		status = ConnectionStatusPending
	}
	connection := Connection{
		ID:                fmt.Sprintf("conn_%d", s.next),
		TenantID:          in.TenantID,
		Provider:          in.Provider,
		ExternalCompanyID: in.ExternalCompanyID,
		Status:            status,
		DataTypes:         append([]DataType(nil), in.DataTypes...),
		SyncFrequency:     in.SyncFrequency,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.byID[connection.ID] = connection
	return connection, nil
}

func (s *memoryConnectionStore) Get(_ context.Context, id string) (Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	connection, ok := s.byID[id]
	if !ok {
		return Connection{}, fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	return connection, nil
}

func (s *memoryConnectionStore) ListByTenant(_ context.Context, tenantID string) ([]Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Connection
	for _, connection := range s.byID {
		if connection.TenantID == tenantID {
			out = append(out, connection)
		}
	}
	return out, nil
}

func (s *memoryConnectionStore) FindActive(_ context.Context, tenantID string, provider ProviderKind, externalCompanyID string) (Connection, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, connection := range s.byID {
		if connection.TenantID == tenantID &&
			connection.Provider == provider &&
			connection.ExternalCompanyID == externalCompanyID &&
			connection.Status == ConnectionStatusConnected {
			return connection, true, nil
		}
	}
	return Connection{}, false, nil
}

func (s *memoryConnectionStore) ListDue(_ context.Context, now time.Time) ([]Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Connection
	for _, connection := range s.byID {
		if connection.Status != ConnectionStatusConnected {
			continue
		}
		if connection.LastSyncedAt == nil || !connection.LastSyncedAt.Add(connection.SyncFrequency).After(now) {
			out = append(out, connection)
		}
	}
	return out, nil
}

func (s *memoryConnectionStore) UpdateStatus(_ context.Context, id string, status ConnectionStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	connection, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	if err := connection.TransitionTo(status, reason, time.Now().UTC()); err != nil {
		return err
	}
	s.byID[id] = connection
	return nil
}

func (s *memoryConnectionStore) SetExternalCompany(_ context.Context, id string, externalCompanyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	connection, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	connection.ExternalCompanyID = externalCompanyID
	s.byID[id] = connection
	return nil
}

func (s *memoryConnectionStore) TouchLastSynced(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	connection, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, id)
	}
	touched := at.UTC()
	connection.LastSyncedAt = &touched
	s.byID[id] = connection
	return nil
}

type memoryCredentialStore struct {
	mu   sync.Mutex
	byID map[string]StoredCredential
}

func newMemoryCredentialStore() *memoryCredentialStore {
	return &memoryCredentialStore{byID: map[string]StoredCredential{}}
}

func (s *memoryCredentialStore) Save(_ context.Context, in SaveCredentialInput) (StoredCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(in.ConnectionID) == "" {
		return StoredCredential{}, fmt.Errorf("connection id is required")
	}
	stored := StoredCredential{
		ConnectionID:          in.ConnectionID,
		EncryptedPayload:      append([]byte(nil), in.EncryptedPayload...),
		PayloadFormat:         in.PayloadFormat,
		PayloadVersion:        in.PayloadVersion,
		ExpiresAt:             in.ExpiresAt,
		RefreshTokenExpiresAt: in.RefreshTokenExpiresAt,
		UpdatedAt:             time.Now().UTC(),
	}
	s.byID[in.ConnectionID] = stored
	return stored, nil
}

func (s *memoryCredentialStore) Get(_ context.Context, connectionID string) (StoredCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[connectionID]
	if !ok {
		return StoredCredential{}, fmt.Errorf("credential not found for connection %s", connectionID)
	}
	return stored, nil
}

func (s *memoryCredentialStore) Delete(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, connectionID)
	return nil
}

func (s *memoryCredentialStore) has(connectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[connectionID]
	return ok
}
