package devkit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/auditgrid/ledgersync/core"
	"github.com/google/uuid"
)

// MemoryConnectionStore is the in-memory core.ConnectionStore used by tests
// and local wiring. Snapshots returned are copies; mutating them does not
// touch stored state.
type MemoryConnectionStore struct {
	mu          sync.Mutex
	connections map[string]core.Connection
	now         func() time.Time
}

func NewMemoryConnectionStore() *MemoryConnectionStore {
	return &MemoryConnectionStore{
		connections: map[string]core.Connection{},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryConnectionStore) WithClock(now func() time.Time) *MemoryConnectionStore {
	if now != nil {
		s.now = now
	}
	return s
}

// Seed inserts a connection as-is, bypassing Create defaults.
func (s *MemoryConnectionStore) Seed(connection core.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[connection.ID] = connection
}

func (s *MemoryConnectionStore) Create(_ context.Context, in core.CreateConnectionInput) (core.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	connection := core.Connection{
		ID:                uuid.NewString(),
		TenantID:          strings.TrimSpace(in.TenantID),
		Provider:          in.Provider,
		ExternalCompanyID: strings.TrimSpace(in.ExternalCompanyID),
		Status:            in.Status,
		DataTypes:         append([]core.DataType(nil), in.DataTypes...),
		SyncFrequency:     in.SyncFrequency,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if connection.Status == "" {
		connection.Status = core.ConnectionStatusPending
	}
	s.connections[connection.ID] = connection
	return connection, nil
}

func (s *MemoryConnectionStore) Get(_ context.Context, id string) (core.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	connection, ok := s.connections[strings.TrimSpace(id)]
	if !ok {
		return core.Connection{}, fmt.Errorf("devkit: connection %s not found", id)
	}
	return connection, nil
}

func (s *MemoryConnectionStore) ListByTenant(_ context.Context, tenantID string) ([]core.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Connection
	for _, connection := range s.connections {
		if connection.TenantID == strings.TrimSpace(tenantID) {
			out = append(out, connection)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryConnectionStore) FindActive(_ context.Context, tenantID string, provider core.ProviderKind, externalCompanyID string) (core.Connection, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, connection := range s.connections {
		if connection.TenantID != strings.TrimSpace(tenantID) || connection.Provider != provider {
			continue
		}
		if connection.ExternalCompanyID != strings.TrimSpace(externalCompanyID) {
			continue
		}
		if connection.Status == core.ConnectionStatusDisconnected {
			continue
		}
		return connection, true, nil
	}
	return core.Connection{}, false, nil
}

func (s *MemoryConnectionStore) FindByExternalCompany(_ context.Context, provider core.ProviderKind, externalCompanyID string) (core.Connection, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, connection := range s.connections {
		if connection.Provider != provider {
			continue
		}
		if connection.ExternalCompanyID != strings.TrimSpace(externalCompanyID) {
			continue
		}
		if connection.Status == core.ConnectionStatusDisconnected {
			continue
		}
		return connection, true, nil
	}
	return core.Connection{}, false, nil
}

func (s *MemoryConnectionStore) ListDue(_ context.Context, now time.Time) ([]core.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Connection
	for _, connection := range s.connections {
		if connection.Status != core.ConnectionStatusConnected {
			continue
		}
		if connection.SyncFrequency <= 0 {
			continue
		}
		if connection.LastSyncedAt != nil && now.Sub(*connection.LastSyncedAt) < connection.SyncFrequency {
			continue
		}
		out = append(out, connection)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryConnectionStore) UpdateStatus(_ context.Context, id string, status core.ConnectionStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	connection, ok := s.connections[strings.TrimSpace(id)]
	if !ok {
		return fmt.Errorf("devkit: connection %s not found", id)
	}
	if err := connection.TransitionTo(status, reason, s.now()); err != nil {
		return err
	}
	s.connections[connection.ID] = connection
	return nil
}

func (s *MemoryConnectionStore) SetExternalCompany(_ context.Context, id string, externalCompanyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	connection, ok := s.connections[strings.TrimSpace(id)]
	if !ok {
		return fmt.Errorf("devkit: connection %s not found", id)
	}
	connection.ExternalCompanyID = strings.TrimSpace(externalCompanyID)
	connection.UpdatedAt = s.now()
	s.connections[connection.ID] = connection
	return nil
}

func (s *MemoryConnectionStore) TouchLastSynced(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	connection, ok := s.connections[strings.TrimSpace(id)]
	if !ok {
		return fmt.Errorf("devkit: connection %s not found", id)
	}
	synced := at.UTC()
	connection.LastSyncedAt = &synced
	connection.UpdatedAt = s.now()
	s.connections[connection.ID] = connection
	return nil
}

// MemorySyncJobStore keeps sync job history in memory.
type MemorySyncJobStore struct {
	mu   sync.Mutex
	jobs map[string]core.SyncJob
	now  func() time.Time
}

func NewMemorySyncJobStore() *MemorySyncJobStore {
	return &MemorySyncJobStore{
		jobs: map[string]core.SyncJob{},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemorySyncJobStore) WithClock(now func() time.Time) *MemorySyncJobStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MemorySyncJobStore) Create(_ context.Context, in core.CreateSyncJobInput) (core.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	job := core.SyncJob{
		ID:           uuid.NewString(),
		ConnectionID: strings.TrimSpace(in.ConnectionID),
		Provider:     in.Provider,
		DataType:     in.DataType,
		Status:       core.SyncJobStatusQueued,
		Trigger:      strings.TrimSpace(in.Trigger),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.jobs[job.ID] = job
	return job, nil
}

func (s *MemorySyncJobStore) Get(_ context.Context, id string) (core.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[strings.TrimSpace(id)]
	if !ok {
		return core.SyncJob{}, fmt.Errorf("devkit: sync job %s not found", id)
	}
	return job, nil
}

func (s *MemorySyncJobStore) FindInFlight(_ context.Context, connectionID string, dataType core.DataType) (core.SyncJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.ConnectionID != strings.TrimSpace(connectionID) || job.DataType != dataType {
			continue
		}
		if job.Terminal() {
			continue
		}
		return job, true, nil
	}
	return core.SyncJob{}, false, nil
}

func (s *MemorySyncJobStore) ListByConnection(_ context.Context, connectionID string, limit int) ([]core.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.SyncJob
	for _, job := range s.jobs {
		if job.ConnectionID == strings.TrimSpace(connectionID) {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemorySyncJobStore) Update(_ context.Context, job core.SyncJob) (core.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return core.SyncJob{}, fmt.Errorf("devkit: sync job %s not found", job.ID)
	}
	job.UpdatedAt = s.now()
	s.jobs[job.ID] = job
	return job, nil
}

// MemoryCredentialStore holds encrypted credential envelopes keyed by
// connection. Values are stored as given; encryption happens upstream.
type MemoryCredentialStore struct {
	mu          sync.Mutex
	credentials map[string]core.StoredCredential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{credentials: map[string]core.StoredCredential{}}
}

func (s *MemoryCredentialStore) Save(_ context.Context, in core.SaveCredentialInput) (core.StoredCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	credential := core.StoredCredential{
		ConnectionID:          strings.TrimSpace(in.ConnectionID),
		EncryptedPayload:      append([]byte(nil), in.EncryptedPayload...),
		PayloadFormat:         in.PayloadFormat,
		PayloadVersion:        in.PayloadVersion,
		ExpiresAt:             in.ExpiresAt,
		RefreshTokenExpiresAt: in.RefreshTokenExpiresAt,
		UpdatedAt:             time.Now().UTC(),
	}
	s.credentials[credential.ConnectionID] = credential
	return credential, nil
}

func (s *MemoryCredentialStore) Get(_ context.Context, connectionID string) (core.StoredCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	credential, ok := s.credentials[strings.TrimSpace(connectionID)]
	if !ok {
		return core.StoredCredential{}, fmt.Errorf("devkit: credential for connection %s not found", connectionID)
	}
	return credential, nil
}

func (s *MemoryCredentialStore) Delete(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.credentials, strings.TrimSpace(connectionID))
	return nil
}

// MemoryNormalizedAccountStore keeps last-write-wins snapshots.
type MemoryNormalizedAccountStore struct {
	mu        sync.Mutex
	snapshots map[string][]core.NormalizedAccount
}

func NewMemoryNormalizedAccountStore() *MemoryNormalizedAccountStore {
	return &MemoryNormalizedAccountStore{snapshots: map[string][]core.NormalizedAccount{}}
}

func (s *MemoryNormalizedAccountStore) ReplaceSnapshot(_ context.Context, connectionID string, accounts []core.NormalizedAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[strings.TrimSpace(connectionID)] = append([]core.NormalizedAccount(nil), accounts...)
	return nil
}

func (s *MemoryNormalizedAccountStore) ListByConnection(_ context.Context, connectionID string) ([]core.NormalizedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.NormalizedAccount(nil), s.snapshots[strings.TrimSpace(connectionID)]...), nil
}

func (s *MemoryNormalizedAccountStore) ListBelowConfidence(_ context.Context, connectionID string, threshold float64) ([]core.NormalizedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.NormalizedAccount
	for _, account := range s.snapshots[strings.TrimSpace(connectionID)] {
		if account.Confidence < threshold {
			out = append(out, account)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence < out[j].Confidence })
	return out, nil
}

// MemoryMappingOverrideStore keeps manual mapping pins.
type MemoryMappingOverrideStore struct {
	mu        sync.Mutex
	overrides map[string]core.MappingOverride
}

func NewMemoryMappingOverrideStore() *MemoryMappingOverrideStore {
	return &MemoryMappingOverrideStore{overrides: map[string]core.MappingOverride{}}
}

func mappingKey(connectionID string, externalAccountID string) string {
	return strings.TrimSpace(connectionID) + "|" + strings.TrimSpace(externalAccountID)
}

func (s *MemoryMappingOverrideStore) Upsert(_ context.Context, override core.MappingOverride) (core.MappingOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := mappingKey(override.ConnectionID, override.ExternalAccountID)
	if existing, ok := s.overrides[key]; ok {
		override.CreatedAt = existing.CreatedAt
	}
	s.overrides[key] = override
	return override, nil
}

func (s *MemoryMappingOverrideStore) Get(_ context.Context, connectionID string, externalAccountID string) (core.MappingOverride, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	override, ok := s.overrides[mappingKey(connectionID, externalAccountID)]
	return override, ok, nil
}

func (s *MemoryMappingOverrideStore) ListByConnection(_ context.Context, connectionID string) ([]core.MappingOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSpace(connectionID) + "|"
	var out []core.MappingOverride
	for key, override := range s.overrides {
		if strings.HasPrefix(key, prefix) {
			out = append(out, override)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalAccountID < out[j].ExternalAccountID })
	return out, nil
}

func (s *MemoryMappingOverrideStore) Delete(_ context.Context, connectionID string, externalAccountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, mappingKey(connectionID, externalAccountID))
	return nil
}

// MemoryStatementStore keeps the latest statement document per connection
// and data type.
type MemoryStatementStore struct {
	mu        sync.Mutex
	documents map[string]core.ProviderDocument
}

func NewMemoryStatementStore() *MemoryStatementStore {
	return &MemoryStatementStore{documents: map[string]core.ProviderDocument{}}
}

func statementKey(connectionID string, dataType core.DataType) string {
	return strings.TrimSpace(connectionID) + "|" + string(dataType)
}

func (s *MemoryStatementStore) ReplaceDocument(_ context.Context, doc core.ProviderDocument, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[statementKey(connectionID, doc.DataType)] = doc
	return nil
}

func (s *MemoryStatementStore) GetDocument(_ context.Context, connectionID string, dataType core.DataType) (core.ProviderDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[statementKey(connectionID, dataType)]
	if !ok {
		return core.ProviderDocument{}, fmt.Errorf("devkit: no %s document for connection %s", dataType, connectionID)
	}
	return doc, nil
}

var (
	_ core.ConnectionStore        = (*MemoryConnectionStore)(nil)
	_ core.SyncJobStore           = (*MemorySyncJobStore)(nil)
	_ core.CredentialStore        = (*MemoryCredentialStore)(nil)
	_ core.NormalizedAccountStore = (*MemoryNormalizedAccountStore)(nil)
	_ core.MappingOverrideStore   = (*MemoryMappingOverrideStore)(nil)
	_ core.StatementStore         = (*MemoryStatementStore)(nil)
)
