package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/auditgrid/ledgersync/core"
)

// NormalizedAccountStore keeps one snapshot per connection. ReplaceSnapshot
// swaps the whole snapshot in a single transaction so readers never observe
// a half-written chart.
type NormalizedAccountStore struct {
	db  *bun.DB
	now func() time.Time
}

func (s *NormalizedAccountStore) ReplaceSnapshot(
	ctx context.Context,
	connectionID string,
	accounts []core.NormalizedAccount,
) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: normalized account store is not configured")
	}
	trimmedConnectionID := strings.TrimSpace(connectionID)
	if trimmedConnectionID == "" {
		return fmt.Errorf("sqlstore: connection id is required")
	}

	now := s.clock()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*normalizedAccountRecord)(nil)).
			Where("connection_id = ?", trimmedConnectionID).
			Exec(ctx); err != nil {
			return err
		}
		if len(accounts) == 0 {
			return nil
		}

		records := make([]*normalizedAccountRecord, 0, len(accounts))
		for _, account := range accounts {
			account.ConnectionID = trimmedConnectionID
			if account.UpdatedAt.IsZero() {
				account.UpdatedAt = now
			}
			record := newNormalizedAccountRecord(account)
			record.ID = uuid.NewString()
			records = append(records, record)
		}
		_, err := tx.NewInsert().Model(&records).Exec(ctx)
		return err
	})
}

func (s *NormalizedAccountStore) ListByConnection(ctx context.Context, connectionID string) ([]core.NormalizedAccount, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: normalized account store is not configured")
	}
	records := []*normalizedAccountRecord{}
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.connection_id = ?", strings.TrimSpace(connectionID)).
		OrderExpr("?TableAlias.external_account_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.NormalizedAccount, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *NormalizedAccountStore) ListBelowConfidence(
	ctx context.Context,
	connectionID string,
	threshold float64,
) ([]core.NormalizedAccount, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: normalized account store is not configured")
	}
	records := []*normalizedAccountRecord{}
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.connection_id = ?", strings.TrimSpace(connectionID)).
		Where("?TableAlias.confidence < ?", threshold).
		OrderExpr("?TableAlias.confidence ASC").
		OrderExpr("?TableAlias.external_account_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.NormalizedAccount, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *NormalizedAccountStore) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}
