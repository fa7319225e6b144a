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

var errCredentialNotFound = fmt.Errorf("sqlstore: credential not found")

// CredentialStore holds exactly one encrypted credential row per
// connection. Save replaces the previous row so a refreshed token cannot
// coexist with a stale one.
type CredentialStore struct {
	db   *bun.DB
	repo repository.Repository[*credentialRecord]
	now  func() time.Time
}

func (s *CredentialStore) Save(ctx context.Context, in core.SaveCredentialInput) (core.StoredCredential, error) {
	if s == nil || s.db == nil {
		return core.StoredCredential{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	in.ConnectionID = strings.TrimSpace(in.ConnectionID)
	if in.ConnectionID == "" {
		return core.StoredCredential{}, fmt.Errorf("sqlstore: connection id is required")
	}
	if len(in.EncryptedPayload) == 0 {
		return core.StoredCredential{}, fmt.Errorf("sqlstore: encrypted payload is required")
	}

	now := s.clock()
	var saved core.StoredCredential
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &credentialRecord{}
		findErr := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.connection_id = ?", in.ConnectionID).
			Limit(1).
			Scan(ctx)
		if findErr != nil && findErr != sql.ErrNoRows {
			return findErr
		}

		record := newCredentialRecord(in, now)
		if findErr == sql.ErrNoRows {
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
		return core.StoredCredential{}, err
	}
	return saved, nil
}

func (s *CredentialStore) Get(ctx context.Context, connectionID string) (core.StoredCredential, error) {
	if s == nil || s.db == nil {
		return core.StoredCredential{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	record := &credentialRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.connection_id = ?", strings.TrimSpace(connectionID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.StoredCredential{}, fmt.Errorf("%w: connection %q", errCredentialNotFound, connectionID)
		}
		return core.StoredCredential{}, err
	}
	return record.toDomain(), nil
}

func (s *CredentialStore) Delete(ctx context.Context, connectionID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	trimmedConnectionID := strings.TrimSpace(connectionID)
	if trimmedConnectionID == "" {
		return fmt.Errorf("sqlstore: connection id is required")
	}
	_, err := s.db.NewDelete().
		Model((*credentialRecord)(nil)).
		Where("connection_id = ?", trimmedConnectionID).
		Exec(ctx)
	return err
}

func (s *CredentialStore) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}
