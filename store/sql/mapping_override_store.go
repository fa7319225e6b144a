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

type MappingOverrideStore struct {
	db   *bun.DB
	repo repository.Repository[*mappingOverrideRecord]
	now  func() time.Time
}

func (s *MappingOverrideStore) Upsert(ctx context.Context, override core.MappingOverride) (core.MappingOverride, error) {
	if s == nil || s.db == nil {
		return core.MappingOverride{}, fmt.Errorf("sqlstore: mapping override store is not configured")
	}
	override.ConnectionID = strings.TrimSpace(override.ConnectionID)
	override.ExternalAccountID = strings.TrimSpace(override.ExternalAccountID)
	if override.ConnectionID == "" || override.ExternalAccountID == "" {
		return core.MappingOverride{}, fmt.Errorf("sqlstore: connection id and external account id are required")
	}

	now := s.clock()
	var saved core.MappingOverride
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, findErr := findOverrideTx(ctx, tx, override.ConnectionID, override.ExternalAccountID)
		if findErr != nil {
			return findErr
		}

		record := &mappingOverrideRecord{
			ConnectionID:      override.ConnectionID,
			ExternalAccountID: override.ExternalAccountID,
			Category:          string(override.Category),
			StandardType:      string(override.Type),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if existing == nil {
			inserted, createErr := s.repo.CreateTx(ctx, tx, record)
			if createErr != nil {
				return createErr
			}
			saved = inserted.toDomain()
			return nil
		}

		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		if _, updateErr := tx.NewUpdate().
			Model(record).
			Where("id = ?", record.ID).
			Exec(ctx); updateErr != nil {
			return updateErr
		}
		saved = record.toDomain()
		return nil
	})
	if err != nil {
		return core.MappingOverride{}, err
	}
	return saved, nil
}

func (s *MappingOverrideStore) Get(
	ctx context.Context,
	connectionID string,
	externalAccountID string,
) (core.MappingOverride, bool, error) {
	if s == nil || s.db == nil {
		return core.MappingOverride{}, false, fmt.Errorf("sqlstore: mapping override store is not configured")
	}
	record := &mappingOverrideRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.connection_id = ?", strings.TrimSpace(connectionID)).
		Where("?TableAlias.external_account_id = ?", strings.TrimSpace(externalAccountID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.MappingOverride{}, false, nil
		}
		return core.MappingOverride{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *MappingOverrideStore) ListByConnection(ctx context.Context, connectionID string) ([]core.MappingOverride, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: mapping override store is not configured")
	}
	records := []*mappingOverrideRecord{}
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.connection_id = ?", strings.TrimSpace(connectionID)).
		OrderExpr("?TableAlias.external_account_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.MappingOverride, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *MappingOverrideStore) Delete(ctx context.Context, connectionID string, externalAccountID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: mapping override store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*mappingOverrideRecord)(nil)).
		Where("connection_id = ?", strings.TrimSpace(connectionID)).
		Where("external_account_id = ?", strings.TrimSpace(externalAccountID)).
		Exec(ctx)
	return err
}

func (s *MappingOverrideStore) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func findOverrideTx(
	ctx context.Context,
	tx bun.Tx,
	connectionID string,
	externalAccountID string,
) (*mappingOverrideRecord, error) {
	record := &mappingOverrideRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.connection_id = ?", connectionID).
		Where("?TableAlias.external_account_id = ?", externalAccountID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
