package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/auditgrid/ledgersync/core"
	"github.com/auditgrid/ledgersync/webhooks"
)

const (
	webhookDeliveryStatusClaimed   = "claimed"
	webhookDeliveryStatusCompleted = "completed"

	webhookDeliveryClaimLease = 5 * time.Minute
)

// WebhookDeliveryStore is the durable delivery ledger. A unique index on
// (provider, delivery_id) makes the first insert win; replays hit the
// constraint and are reported as already claimed. Claims are leases:
// Complete seals the row, Fail deletes it, and a claimed row whose lease
// elapsed without either is reclaimed on the next insert attempt.
type WebhookDeliveryStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewWebhookDeliveryStore(db *bun.DB) (*WebhookDeliveryStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &WebhookDeliveryStore{db: db}, nil
}

func (s *WebhookDeliveryStore) Claim(ctx context.Context, provider core.ProviderKind, deliveryID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: webhook delivery store is not configured")
	}
	providerName := strings.TrimSpace(strings.ToLower(string(provider)))
	deliveryID = strings.TrimSpace(deliveryID)
	if providerName == "" || deliveryID == "" {
		return false, fmt.Errorf("sqlstore: provider and delivery id are required")
	}

	now := s.clock()
	record := &webhookDeliveryRecord{
		ID:         uuid.NewString(),
		Provider:   providerName,
		DeliveryID: deliveryID,
		Status:     webhookDeliveryStatusClaimed,
		ReceivedAt: now,
		CreatedAt:  now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return s.reclaimAbandoned(ctx, providerName, deliveryID, now)
		}
		return false, err
	}
	return true, nil
}

// reclaimAbandoned takes over a claimed row whose holder never completed
// or failed it within the lease. Completed rows are never reclaimed.
func (s *WebhookDeliveryStore) reclaimAbandoned(ctx context.Context, providerName, deliveryID string, now time.Time) (bool, error) {
	result, err := s.db.NewUpdate().
		Model((*webhookDeliveryRecord)(nil)).
		Set("received_at = ?", now).
		Where("provider = ? AND delivery_id = ?", providerName, deliveryID).
		Where("status = ?", webhookDeliveryStatusClaimed).
		Where("received_at < ?", now.Add(-webhookDeliveryClaimLease)).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, nil
	}
	return affected > 0, nil
}

func (s *WebhookDeliveryStore) Complete(ctx context.Context, provider core.ProviderKind, deliveryID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: webhook delivery store is not configured")
	}
	now := s.clock()
	_, err := s.db.NewUpdate().
		Model((*webhookDeliveryRecord)(nil)).
		Set("status = ?", webhookDeliveryStatusCompleted).
		Set("completed_at = ?", now).
		Where("provider = ? AND delivery_id = ?",
			strings.TrimSpace(strings.ToLower(string(provider))), strings.TrimSpace(deliveryID)).
		Exec(ctx)
	return err
}

func (s *WebhookDeliveryStore) Fail(ctx context.Context, provider core.ProviderKind, deliveryID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: webhook delivery store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*webhookDeliveryRecord)(nil)).
		Where("provider = ? AND delivery_id = ?",
			strings.TrimSpace(strings.ToLower(string(provider))), strings.TrimSpace(deliveryID)).
		Where("status = ?", webhookDeliveryStatusClaimed).
		Exec(ctx)
	return err
}

// PurgeOlderThan drops ledger rows received before the cutoff. Expired
// entries are safe to forget; a replayed delivery only re-triggers syncs,
// and in-flight job dedupe absorbs those.
func (s *WebhookDeliveryStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: webhook delivery store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*webhookDeliveryRecord)(nil)).
		Where("received_at < ?", cutoff.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

func (s *WebhookDeliveryStore) clock() time.Time {
	if s != nil && s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

var _ webhooks.DeliveryLedger = (*WebhookDeliveryStore)(nil)
