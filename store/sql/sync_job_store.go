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

type SyncJobStore struct {
	db  *bun.DB
	now func() time.Time
}

func (s *SyncJobStore) Create(ctx context.Context, in core.CreateSyncJobInput) (core.SyncJob, error) {
	if s == nil || s.db == nil {
		return core.SyncJob{}, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	in.ConnectionID = strings.TrimSpace(in.ConnectionID)
	if in.ConnectionID == "" {
		return core.SyncJob{}, fmt.Errorf("sqlstore: connection id is required")
	}
	if strings.TrimSpace(string(in.DataType)) == "" {
		return core.SyncJob{}, fmt.Errorf("sqlstore: data type is required")
	}

	now := s.clock()
	job := core.SyncJob{
		ID:           uuid.NewString(),
		ConnectionID: in.ConnectionID,
		Provider:     in.Provider,
		DataType:     in.DataType,
		Status:       core.SyncJobStatusQueued,
		Trigger:      strings.TrimSpace(in.Trigger),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	record := newSyncJobRecord(job, now)
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.SyncJob{}, err
	}
	return record.toDomain(), nil
}

func (s *SyncJobStore) Get(ctx context.Context, id string) (core.SyncJob, error) {
	if s == nil || s.db == nil {
		return core.SyncJob{}, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	record := &syncJobRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(id)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.SyncJob{}, fmt.Errorf("%w: id %q", core.ErrSyncJobNotFound, id)
		}
		return core.SyncJob{}, err
	}
	return record.toDomain(), nil
}

func (s *SyncJobStore) FindInFlight(
	ctx context.Context,
	connectionID string,
	dataType core.DataType,
) (core.SyncJob, bool, error) {
	if s == nil || s.db == nil {
		return core.SyncJob{}, false, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	record := &syncJobRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.connection_id = ?", strings.TrimSpace(connectionID)).
		Where("?TableAlias.data_type = ?", string(dataType)).
		Where("?TableAlias.status IN (?)", bun.In([]string{
			string(core.SyncJobStatusQueued),
			string(core.SyncJobStatusRunning),
		})).
		OrderExpr("?TableAlias.created_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.SyncJob{}, false, nil
		}
		return core.SyncJob{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *SyncJobStore) ListByConnection(ctx context.Context, connectionID string, limit int) ([]core.SyncJob, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	records := []*syncJobRecord{}
	query := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.connection_id = ?", strings.TrimSpace(connectionID)).
		OrderExpr("?TableAlias.created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]core.SyncJob, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *SyncJobStore) Update(ctx context.Context, job core.SyncJob) (core.SyncJob, error) {
	if s == nil || s.db == nil {
		return core.SyncJob{}, fmt.Errorf("sqlstore: sync job store is not configured")
	}
	job.ID = strings.TrimSpace(job.ID)
	if job.ID == "" {
		return core.SyncJob{}, fmt.Errorf("sqlstore: job id is required")
	}
	record := newSyncJobRecord(job, s.clock())
	if _, err := s.db.NewUpdate().
		Model(record).
		Where("id = ?", record.ID).
		Exec(ctx); err != nil {
		return core.SyncJob{}, err
	}
	return record.toDomain(), nil
}

func (s *SyncJobStore) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}
