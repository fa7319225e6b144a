package webhooks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/auditgrid/ledgersync/core"
)

const (
	defaultDeliveryRetention = 24 * time.Hour
	defaultClaimLease        = 5 * time.Minute
)

type deliveryEntry struct {
	claimedAt time.Time
	completed bool
}

// MemoryDeliveryLedger keeps delivery claims in memory. A claim is a
// lease: Complete seals it for the retention window, Fail releases it,
// and a pending claim whose lease elapsed is treated as abandoned and
// becomes claimable again. Completed entries older than the window are
// forgotten, which is safe because re-processing an old delivery only
// re-triggers a sync that the in-flight job dedupe absorbs.
type MemoryDeliveryLedger struct {
	mu        sync.Mutex
	entries   map[string]deliveryEntry
	retention time.Duration
	lease     time.Duration
	now       func() time.Time
}

func NewMemoryDeliveryLedger(retention time.Duration) *MemoryDeliveryLedger {
	if retention <= 0 {
		retention = defaultDeliveryRetention
	}
	return &MemoryDeliveryLedger{
		entries:   map[string]deliveryEntry{},
		retention: retention,
		lease:     defaultClaimLease,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryDeliveryLedger) WithClock(now func() time.Time) *MemoryDeliveryLedger {
	if now != nil {
		l.now = now
	}
	return l
}

func (l *MemoryDeliveryLedger) WithClaimLease(lease time.Duration) *MemoryDeliveryLedger {
	if lease > 0 {
		l.lease = lease
	}
	return l
}

func (l *MemoryDeliveryLedger) Claim(_ context.Context, provider core.ProviderKind, deliveryID string) (bool, error) {
	if l == nil {
		return true, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	l.evictExpired(now)

	key := ledgerKey(provider, deliveryID)
	if _, held := l.entries[key]; held {
		return false, nil
	}
	l.entries[key] = deliveryEntry{claimedAt: now}
	return true, nil
}

func (l *MemoryDeliveryLedger) Complete(_ context.Context, provider core.ProviderKind, deliveryID string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(provider, deliveryID)
	entry, held := l.entries[key]
	if !held {
		entry = deliveryEntry{claimedAt: l.now().UTC()}
	}
	entry.completed = true
	l.entries[key] = entry
	return nil
}

func (l *MemoryDeliveryLedger) Fail(_ context.Context, provider core.ProviderKind, deliveryID string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(provider, deliveryID)
	if entry, held := l.entries[key]; held && !entry.completed {
		delete(l.entries, key)
	}
	return nil
}

func (l *MemoryDeliveryLedger) evictExpired(now time.Time) {
	for key, entry := range l.entries {
		age := now.Sub(entry.claimedAt)
		if entry.completed && age > l.retention {
			delete(l.entries, key)
		}
		if !entry.completed && age > l.lease {
			delete(l.entries, key)
		}
	}
}

func ledgerKey(provider core.ProviderKind, deliveryID string) string {
	return strings.ToLower(strings.TrimSpace(string(provider))) + "|" + strings.TrimSpace(deliveryID)
}

var _ DeliveryLedger = (*MemoryDeliveryLedger)(nil)
