package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/auditgrid/ledgersync/core"
	"github.com/auditgrid/ledgersync/ratelimit"
)

const rateLimitStateCacheKeyPrefix = "ledgersync::ratelimit_state::v1"

// CachedRateLimitStateStore fronts the SQL state store with a read cache.
// Rate-limit state is read before every provider call, so reads dominate
// writes heavily for busy tenants.
type CachedRateLimitStateStore struct {
	base  ratelimit.StateStore
	cache repositorycache.CacheService
}

func NewCachedRateLimitStateStore(
	base ratelimit.StateStore,
	cacheService repositorycache.CacheService,
) (*CachedRateLimitStateStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base rate-limit state store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: rate-limit cache service is required")
	}
	return &CachedRateLimitStateStore{base: base, cache: cacheService}, nil
}

// RateLimitStateCacheKey returns the deterministic cache key contract for
// rate-limit state reads: ledgersync::ratelimit_state::v1::<provider>::<tenant>
// with each segment URL-path escaped after key normalization.
func RateLimitStateCacheKey(key core.RateLimitKey) (string, error) {
	normalized := normalizeRateLimitKey(key)
	if err := validateRateLimitKey(normalized); err != nil {
		return "", err
	}
	segments := []string{
		url.PathEscape(string(normalized.Provider)),
		url.PathEscape(normalized.TenantID),
	}
	return strings.Join(append([]string{rateLimitStateCacheKeyPrefix}, segments...), "::"), nil
}

func (s *CachedRateLimitStateStore) Get(ctx context.Context, key core.RateLimitKey) (ratelimit.State, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return ratelimit.State{}, fmt.Errorf("sqlstore: cached rate-limit state store is not configured")
	}
	normalized := normalizeRateLimitKey(key)
	cacheKey, err := RateLimitStateCacheKey(normalized)
	if err != nil {
		return ratelimit.State{}, err
	}

	state, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (ratelimit.State, error) {
		fetched, fetchErr := s.base.Get(ctx, normalized)
		if fetchErr != nil {
			return ratelimit.State{}, fetchErr
		}
		fetched.Key = normalizeRateLimitKey(fetched.Key)
		return fetched, nil
	})
	if err != nil {
		return ratelimit.State{}, err
	}
	return state, nil
}

func (s *CachedRateLimitStateStore) Upsert(ctx context.Context, state ratelimit.State) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached rate-limit state store is not configured")
	}
	state.Key = normalizeRateLimitKey(state.Key)
	if err := validateRateLimitKey(state.Key); err != nil {
		return err
	}

	if err := s.base.Upsert(ctx, state); err != nil {
		return err
	}

	cacheKey, err := RateLimitStateCacheKey(state.Key)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ ratelimit.StateStore = (*CachedRateLimitStateStore)(nil)
