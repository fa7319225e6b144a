package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/auditgrid/ledgersync/core"
)

var errStatementNotFound = fmt.Errorf("sqlstore: statement document not found")

// StatementStore keeps the latest document per (connection, data type).
// Statements are point-in-time reports, so last write wins.
type StatementStore struct {
	db  *bun.DB
	now func() time.Time
}

func (s *StatementStore) ReplaceDocument(ctx context.Context, doc core.ProviderDocument, connectionID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: statement store is not configured")
	}
	trimmedConnectionID := strings.TrimSpace(connectionID)
	if trimmedConnectionID == "" {
		return fmt.Errorf("sqlstore: connection id is required")
	}
	if strings.TrimSpace(string(doc.DataType)) == "" {
		return fmt.Errorf("sqlstore: document data type is required")
	}

	now := s.clock()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*statementDocumentRecord)(nil)).
			Where("connection_id = ?", trimmedConnectionID).
			Where("data_type = ?", string(doc.DataType)).
			Exec(ctx); err != nil {
			return err
		}

		record := newStatementDocumentRecord(doc, trimmedConnectionID, now)
		record.ID = uuid.NewString()
		_, err := tx.NewInsert().Model(record).Exec(ctx)
		return err
	})
}

func (s *StatementStore) GetDocument(
	ctx context.Context,
	connectionID string,
	dataType core.DataType,
) (core.ProviderDocument, error) {
	if s == nil || s.db == nil {
		return core.ProviderDocument{}, fmt.Errorf("sqlstore: statement store is not configured")
	}
	record := &statementDocumentRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.connection_id = ?", strings.TrimSpace(connectionID)).
		Where("?TableAlias.data_type = ?", string(dataType)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.ProviderDocument{}, fmt.Errorf(
				"%w: connection %q data type %q",
				errStatementNotFound, connectionID, dataType,
			)
		}
		return core.ProviderDocument{}, err
	}
	return record.toDomain(), nil
}

func (s *StatementStore) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}
