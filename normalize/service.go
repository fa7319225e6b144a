package normalize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/auditgrid/ledgersync/core"
)

// Normalizer applies the classification engine to chart-of-accounts
// snapshots and layers manual overrides on top. Overrides always win:
// they classify with confidence 1.0 and survive every subsequent
// automatic re-mapping until cleared.
type Normalizer struct {
	engine    *Engine
	accounts  core.NormalizedAccountStore
	overrides core.MappingOverrideStore
	threshold float64
	now       func() time.Time
}

type NormalizerOption func(*Normalizer)

func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

func NewNormalizer(
	cfg core.NormalizationConfig,
	accounts core.NormalizedAccountStore,
	overrides core.MappingOverrideStore,
	engine *Engine,
	options ...NormalizerOption,
) (*Normalizer, error) {
	if accounts == nil {
		return nil, fmt.Errorf("normalize: normalized account store is required")
	}
	if overrides == nil {
		return nil, fmt.Errorf("normalize: mapping override store is required")
	}
	if engine == nil {
		engine = NewEngine(cfg)
	}
	threshold := cfg.ReviewThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.8
	}

	normalizer := &Normalizer{
		engine:    engine,
		accounts:  accounts,
		overrides: overrides,
		threshold: threshold,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		if option != nil {
			option(normalizer)
		}
	}
	return normalizer, nil
}

// NormalizeSnapshot classifies every provider account and replaces the
// connection's normalized snapshot, last write wins. Low confidence never
// blocks persistence; it only queues the row for review.
func (n *Normalizer) NormalizeSnapshot(ctx context.Context, connectionID string, accounts []core.ProviderAccount) ([]core.NormalizedAccount, error) {
	if n == nil {
		return nil, fmt.Errorf("normalize: normalizer is nil")
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return nil, fmt.Errorf("normalize: connection id is required")
	}

	overrides, err := n.overrideIndex(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	now := n.now().UTC()
	normalized := make([]core.NormalizedAccount, 0, len(accounts))
	for _, account := range accounts {
		externalID := strings.TrimSpace(account.ExternalID)
		if externalID == "" {
			continue
		}
		record := core.NormalizedAccount{
			ConnectionID:      connectionID,
			ExternalAccountID: externalID,
			ExternalName:      strings.TrimSpace(account.Name),
			ExternalType:      strings.TrimSpace(account.AccountType),
			UpdatedAt:         now,
		}
		if override, ok := overrides[externalID]; ok {
			record.Category = override.Category
			record.Type = override.Type
			record.Confidence = 1.0
			record.Source = core.MappingSourceManualOverride
		} else {
			verdict := n.engine.Classify(account)
			record.Category = verdict.Category
			record.Type = verdict.Type
			record.Confidence = verdict.Confidence
			record.Source = verdict.Source
		}
		normalized = append(normalized, record)
	}

	if err := n.accounts.ReplaceSnapshot(ctx, connectionID, normalized); err != nil {
		return nil, fmt.Errorf("normalize: replace snapshot: %w", err)
	}
	return normalized, nil
}

// Override pins an external account to a reviewer-chosen slot and rewrites
// the current snapshot so the correction is visible without waiting for the
// next sync.
func (n *Normalizer) Override(ctx context.Context, connectionID string, externalAccountID string, category core.StandardCategory, standardType core.StandardType) (core.MappingOverride, error) {
	if n == nil {
		return core.MappingOverride{}, fmt.Errorf("normalize: normalizer is nil")
	}
	connectionID = strings.TrimSpace(connectionID)
	externalAccountID = strings.TrimSpace(externalAccountID)
	if connectionID == "" || externalAccountID == "" {
		return core.MappingOverride{}, fmt.Errorf("normalize: connection id and external account id are required")
	}
	if err := validateTaxonomy(category, standardType); err != nil {
		return core.MappingOverride{}, err
	}

	now := n.now().UTC()
	override, err := n.overrides.Upsert(ctx, core.MappingOverride{
		ConnectionID:      connectionID,
		ExternalAccountID: externalAccountID,
		Category:          category,
		Type:              standardType,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return core.MappingOverride{}, fmt.Errorf("normalize: upsert override: %w", err)
	}

	if err := n.applyOverrideToSnapshot(ctx, connectionID, externalAccountID, &override); err != nil {
		return core.MappingOverride{}, err
	}
	return override, nil
}

// ClearOverride removes the pin; the next sync reclassifies automatically.
func (n *Normalizer) ClearOverride(ctx context.Context, connectionID string, externalAccountID string) error {
	if n == nil {
		return fmt.Errorf("normalize: normalizer is nil")
	}
	connectionID = strings.TrimSpace(connectionID)
	externalAccountID = strings.TrimSpace(externalAccountID)
	if connectionID == "" || externalAccountID == "" {
		return fmt.Errorf("normalize: connection id and external account id are required")
	}
	if err := n.overrides.Delete(ctx, connectionID, externalAccountID); err != nil {
		return fmt.Errorf("normalize: delete override: %w", err)
	}
	return nil
}

// ListForReview returns mappings below the confidence threshold ordered by
// ascending confidence. A non-positive threshold falls back to the
// configured review threshold.
func (n *Normalizer) ListForReview(ctx context.Context, connectionID string, threshold float64) ([]core.NormalizedAccount, error) {
	if n == nil {
		return nil, fmt.Errorf("normalize: normalizer is nil")
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return nil, fmt.Errorf("normalize: connection id is required")
	}
	if threshold <= 0 {
		threshold = n.threshold
	}

	accounts, err := n.accounts.ListBelowConfidence(ctx, connectionID, threshold)
	if err != nil {
		return nil, fmt.Errorf("normalize: list below confidence: %w", err)
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].Confidence < accounts[j].Confidence
	})
	return accounts, nil
}

func (n *Normalizer) ListAccounts(ctx context.Context, connectionID string) ([]core.NormalizedAccount, error) {
	if n == nil {
		return nil, fmt.Errorf("normalize: normalizer is nil")
	}
	return n.accounts.ListByConnection(ctx, strings.TrimSpace(connectionID))
}

func (n *Normalizer) overrideIndex(ctx context.Context, connectionID string) (map[string]core.MappingOverride, error) {
	overrides, err := n.overrides.ListByConnection(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("normalize: list overrides: %w", err)
	}
	index := make(map[string]core.MappingOverride, len(overrides))
	for _, override := range overrides {
		index[strings.TrimSpace(override.ExternalAccountID)] = override
	}
	return index, nil
}

func (n *Normalizer) applyOverrideToSnapshot(ctx context.Context, connectionID string, externalAccountID string, override *core.MappingOverride) error {
	accounts, err := n.accounts.ListByConnection(ctx, connectionID)
	if err != nil {
		return fmt.Errorf("normalize: list snapshot: %w", err)
	}
	updated := false
	for i := range accounts {
		if accounts[i].ExternalAccountID != externalAccountID {
			continue
		}
		accounts[i].Category = override.Category
		accounts[i].Type = override.Type
		accounts[i].Confidence = 1.0
		accounts[i].Source = core.MappingSourceManualOverride
		accounts[i].UpdatedAt = n.now().UTC()
		updated = true
	}
	if !updated {
		return nil
	}
	if err := n.accounts.ReplaceSnapshot(ctx, connectionID, accounts); err != nil {
		return fmt.Errorf("normalize: replace snapshot: %w", err)
	}
	return nil
}

// taxonomyPairs fixes which second-level types belong to each category.
var taxonomyPairs = map[core.StandardCategory][]core.StandardType{
	core.CategoryAssets: {
		core.TypeCash, core.TypeAccountsReceivable, core.TypeInventory,
		core.TypePrepaidExpenses, core.TypeFixedAssets, core.TypeOtherAssets,
	},
	core.CategoryLiabilities: {
		core.TypeAccountsPayable, core.TypeAccruedLiabilities,
		core.TypeLongTermDebt, core.TypeOtherLiabilities,
	},
	core.CategoryEquity: {
		core.TypeRetainedEarnings, core.TypeOwnersEquity,
	},
	core.CategoryRevenue: {
		core.TypeOperatingRevenue, core.TypeOtherRevenue,
	},
	core.CategoryExpenses: {
		core.TypeCostOfGoodsSold, core.TypeOperatingExpenses,
		core.TypePayrollExpenses, core.TypeOtherExpenses,
	},
}

func validateTaxonomy(category core.StandardCategory, standardType core.StandardType) error {
	types, ok := taxonomyPairs[category]
	if !ok {
		return fmt.Errorf("normalize: unknown standard category %q", category)
	}
	for _, candidate := range types {
		if candidate == standardType {
			return nil
		}
	}
	return fmt.Errorf("normalize: standard type %q does not belong to category %q", standardType, category)
}
