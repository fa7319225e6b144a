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
	"github.com/auditgrid/ledgersync/ratelimit"
)

type RateLimitStateStore struct {
	db *bun.DB
}

func NewRateLimitStateStore(db *bun.DB) (*RateLimitStateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &RateLimitStateStore{db: db}, nil
}

func (s *RateLimitStateStore) Get(ctx context.Context, key core.RateLimitKey) (ratelimit.State, error) {
	if s == nil || s.db == nil {
		return ratelimit.State{}, fmt.Errorf("sqlstore: rate-limit state store is not configured")
	}
	key = normalizeRateLimitKey(key)
	if err := validateRateLimitKey(key); err != nil {
		return ratelimit.State{}, err
	}

	record := &rateLimitStateRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.provider = ?", string(key.Provider)).
		Where("?TableAlias.tenant_id = ?", key.TenantID).
		OrderExpr("?TableAlias.updated_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return ratelimit.State{}, ratelimit.ErrStateNotFound
		}
		return ratelimit.State{}, err
	}
	return record.toDomain(), nil
}

func (s *RateLimitStateStore) Upsert(ctx context.Context, state ratelimit.State) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: rate-limit state store is not configured")
	}
	state.Key = normalizeRateLimitKey(state.Key)
	if err := validateRateLimitKey(state.Key); err != nil {
		return err
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findRateLimitStateTx(ctx, tx, state.Key)
		if err != nil {
			return err
		}
		created := false
		if record == nil {
			created = true
			record = &rateLimitStateRecord{
				ID:        uuid.NewString(),
				CreatedAt: state.UpdatedAt,
			}
		}
		record.Provider = string(state.Key.Provider)
		record.TenantID = state.Key.TenantID
		record.Limit = state.Limit
		record.Remaining = state.Remaining
		record.LastStatus = state.LastStatus
		record.Attempts = state.Attempts
		record.UpdatedAt = state.UpdatedAt.UTC()
		record.ResetAt = copyTimePointer(state.ResetAt)
		record.RetryAfterSecs = durationToSecondsPointer(state.RetryAfter)
		record.ThrottledUntil = copyTimePointer(state.ThrottledUntil)

		if created {
			_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
			return insertErr
		}
		_, updateErr := tx.NewUpdate().
			Model(record).
			Where("id = ?", record.ID).
			Exec(ctx)
		return updateErr
	})
}

func findRateLimitStateTx(ctx context.Context, tx bun.Tx, key core.RateLimitKey) (*rateLimitStateRecord, error) {
	record := &rateLimitStateRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.provider = ?", string(key.Provider)).
		Where("?TableAlias.tenant_id = ?", key.TenantID).
		OrderExpr("?TableAlias.updated_at DESC").
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

func normalizeRateLimitKey(key core.RateLimitKey) core.RateLimitKey {
	key.Provider = core.ProviderKind(strings.TrimSpace(strings.ToLower(string(key.Provider))))
	key.TenantID = strings.TrimSpace(key.TenantID)
	return key
}

func validateRateLimitKey(key core.RateLimitKey) error {
	if strings.TrimSpace(string(key.Provider)) == "" {
		return fmt.Errorf("sqlstore: rate-limit key provider is required")
	}
	if strings.TrimSpace(key.TenantID) == "" {
		return fmt.Errorf("sqlstore: rate-limit key tenant id is required")
	}
	return nil
}

func copyTimePointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := value.UTC()
	return &copied
}

func durationToSecondsPointer(value *time.Duration) *int64 {
	if value == nil || *value <= 0 {
		return nil
	}
	seconds := int64(*value / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	return &seconds
}
