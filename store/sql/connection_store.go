package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/auditgrid/ledgersync/core"
)

type ConnectionStore struct {
	db   *bun.DB
	repo repository.Repository[*connectionRecord]
	now  func() time.Time
}

func (s *ConnectionStore) Create(ctx context.Context, in core.CreateConnectionInput) (core.Connection, error) {
	if s == nil || s.repo == nil {
		return core.Connection{}, fmt.Errorf("sqlstore: connection store is not configured")
	}
	in.TenantID = strings.TrimSpace(in.TenantID)
	if in.TenantID == "" {
		return core.Connection{}, fmt.Errorf("sqlstore: tenant id is required")
	}
	if strings.TrimSpace(string(in.Provider)) == "" {
		return core.Connection{}, fmt.Errorf("sqlstore: provider is required")
	}
	in.ExternalCompanyID = strings.TrimSpace(in.ExternalCompanyID)

	status := in.Status
	if strings.TrimSpace(string(status)) == "" {
		status = core.ConnectionStatusPending
	}
	in.Status = status

	if in.ExternalCompanyID != "" {
		_, exists, err := s.FindActive(ctx, in.TenantID, in.Provider, in.ExternalCompanyID)
		if err != nil {
			return core.Connection{}, err
		}
		if exists {
			return core.Connection{}, core.ErrDuplicateConnection
		}
	}

	record := newConnectionRecord(in, s.clock())
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Connection{}, core.ErrDuplicateConnection
		}
		return core.Connection{}, err
	}
	return created.toDomain(), nil
}

func (s *ConnectionStore) Get(ctx context.Context, id string) (core.Connection, error) {
	if s == nil || s.db == nil {
		return core.Connection{}, fmt.Errorf("sqlstore: connection store is not configured")
	}
	record := &connectionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Connection{}, fmt.Errorf("%w: id %q", core.ErrConnectionNotFound, id)
		}
		return core.Connection{}, err
	}
	return record.toDomain(), nil
}

func (s *ConnectionStore) ListByTenant(ctx context.Context, tenantID string) ([]core.Connection, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: connection store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("tenant_id", "=", strings.TrimSpace(tenantID)),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.Connection, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *ConnectionStore) FindActive(
	ctx context.Context,
	tenantID string,
	provider core.ProviderKind,
	externalCompanyID string,
) (core.Connection, bool, error) {
	if s == nil || s.db == nil {
		return core.Connection{}, false, fmt.Errorf("sqlstore: connection store is not configured")
	}
	record := &connectionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.tenant_id = ?", strings.TrimSpace(tenantID)).
		Where("?TableAlias.provider = ?", string(provider)).
		Where("?TableAlias.external_company_id = ?", strings.TrimSpace(externalCompanyID)).
		Where("?TableAlias.status != ?", string(core.ConnectionStatusDisconnected)).
		OrderExpr("?TableAlias.created_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Connection{}, false, nil
		}
		return core.Connection{}, false, err
	}
	return record.toDomain(), true, nil
}

// FindByExternalCompany resolves webhook payloads, which identify companies
// but never tenants.
func (s *ConnectionStore) FindByExternalCompany(
	ctx context.Context,
	provider core.ProviderKind,
	externalCompanyID string,
) (core.Connection, bool, error) {
	if s == nil || s.db == nil {
		return core.Connection{}, false, fmt.Errorf("sqlstore: connection store is not configured")
	}
	record := &connectionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.provider = ?", string(provider)).
		Where("?TableAlias.external_company_id = ?", strings.TrimSpace(externalCompanyID)).
		Where("?TableAlias.status != ?", string(core.ConnectionStatusDisconnected)).
		OrderExpr("?TableAlias.created_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Connection{}, false, nil
		}
		return core.Connection{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *ConnectionStore) ListDue(ctx context.Context, now time.Time) ([]core.Connection, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: connection store is not configured")
	}
	// Frequency varies per row, so the elapsed-window check happens in Go
	// to stay portable across postgres and sqlite.
	records := []*connectionRecord{}
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.status = ?", string(core.ConnectionStatusConnected)).
		Where("?TableAlias.sync_frequency_seconds > 0").
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	out := make([]core.Connection, 0, len(records))
	for _, record := range records {
		connection := record.toDomain()
		if connection.LastSyncedAt != nil && now.Sub(*connection.LastSyncedAt) < connection.SyncFrequency {
			continue
		}
		out = append(out, connection)
	}
	return out, nil
}

func (s *ConnectionStore) UpdateStatus(ctx context.Context, id string, status core.ConnectionStatus, reason string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: connection store is not configured")
	}
	connection, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := connection.TransitionTo(status, reason, s.clock()); err != nil {
		return err
	}

	record := &connectionRecord{}
	record.fromDomain(connection)
	_, err = s.db.NewUpdate().
		Model(record).
		Column("status", "last_error", "updated_at").
		Where("id = ?", record.ID).
		Exec(ctx)
	return err
}

func (s *ConnectionStore) SetExternalCompany(ctx context.Context, id string, externalCompanyID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: connection store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return fmt.Errorf("sqlstore: connection id is required")
	}
	_, err := s.db.NewUpdate().
		Model((*connectionRecord)(nil)).
		Set("external_company_id = ?", strings.TrimSpace(externalCompanyID)).
		Set("updated_at = ?", s.clock()).
		Where("id = ?", trimmedID).
		Exec(ctx)
	return err
}

func (s *ConnectionStore) TouchLastSynced(ctx context.Context, id string, at time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: connection store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return fmt.Errorf("sqlstore: connection id is required")
	}
	_, err := s.db.NewUpdate().
		Model((*connectionRecord)(nil)).
		Set("last_synced_at = ?", at.UTC()).
		Set("updated_at = ?", s.clock()).
		Where("id = ?", trimmedID).
		Exec(ctx)
	return err
}

func (s *ConnectionStore) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}
