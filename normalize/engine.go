package normalize

import (
	"strings"

	"github.com/auditgrid/ledgersync/core"
)

// Classification is the engine's verdict for one provider account.
type Classification struct {
	Category   core.StandardCategory
	Type       core.StandardType
	Confidence float64
	Source     core.MappingSource
}

// Rule maps a provider account onto the canonical taxonomy with the
// confidence its specificity earns. Type rules key on the provider's own
// account-type vocabulary; name rules key on substrings of the account name.
type Rule struct {
	Category   core.StandardCategory
	Type       core.StandardType
	Confidence float64
}

// Engine classifies provider accounts with a deterministic rule table.
// Candidates from the type table and the name-pattern table compete on
// confidence, so a precise name match ("Trade Debtors") can outrank a broad
// provider type ("CURRENT") while a precise provider type ("Bank") still wins
// over a generic name. All automatic confidences are capped below 1.0;
// that margin is reserved for manual overrides.
type Engine struct {
	typeRules        map[string]Rule
	namePatterns     []namePattern
	fallback         Rule
	maxAutoConfident float64
}

type namePattern struct {
	substring string
	rule      Rule
}

type EngineOption func(*Engine)

// WithRules adds or replaces provider-type rules. Keys are matched
// case-insensitively against the provider-reported account type, then the
// account subtype.
func WithRules(rules map[string]Rule) EngineOption {
	return func(e *Engine) {
		for key, rule := range rules {
			key = strings.ToLower(strings.TrimSpace(key))
			if key == "" {
				continue
			}
			e.typeRules[key] = rule
		}
	}
}

// WithNamePattern appends a lexical rule tried in registration order after
// the built-in patterns.
func WithNamePattern(substring string, rule Rule) EngineOption {
	return func(e *Engine) {
		substring = strings.ToLower(strings.TrimSpace(substring))
		if substring == "" {
			return
		}
		e.namePatterns = append(e.namePatterns, namePattern{substring: substring, rule: rule})
	}
}

// WithFallback replaces the bucket used when nothing matches.
func WithFallback(rule Rule) EngineOption {
	return func(e *Engine) {
		e.fallback = rule
	}
}

func NewEngine(cfg core.NormalizationConfig, options ...EngineOption) *Engine {
	maxAuto := cfg.MaxAutoConfidence
	if maxAuto <= 0 || maxAuto >= 1 {
		maxAuto = 0.95
	}
	fallbackConfidence := cfg.FallbackConfidence
	if fallbackConfidence <= 0 {
		fallbackConfidence = 0.35
	}

	engine := &Engine{
		typeRules:        defaultTypeRules(),
		namePatterns:     defaultNamePatterns(),
		fallback:         Rule{Category: core.CategoryAssets, Type: core.TypeOtherAssets, Confidence: fallbackConfidence},
		maxAutoConfident: maxAuto,
	}
	for _, option := range options {
		if option != nil {
			option(engine)
		}
	}
	return engine
}

// Classify is deterministic: the same account always yields the same verdict.
func (e *Engine) Classify(account core.ProviderAccount) Classification {
	if e == nil {
		return Classification{}
	}

	best := e.fallback
	if rule, ok := e.lookupTypeRule(account); ok && rule.Confidence > best.Confidence {
		best = rule
	}
	if rule, ok := e.lookupNameRule(account.Name); ok && rule.Confidence > best.Confidence {
		best = rule
	}

	confidence := best.Confidence
	if confidence > e.maxAutoConfident {
		confidence = e.maxAutoConfident
	}
	return Classification{
		Category:   best.Category,
		Type:       best.Type,
		Confidence: confidence,
		Source:     core.MappingSourceAutomatic,
	}
}

func (e *Engine) lookupTypeRule(account core.ProviderAccount) (Rule, bool) {
	if rule, ok := e.typeRules[strings.ToLower(strings.TrimSpace(account.AccountSubType))]; ok {
		return rule, true
	}
	if rule, ok := e.typeRules[strings.ToLower(strings.TrimSpace(account.AccountType))]; ok {
		return rule, true
	}
	return Rule{}, false
}

func (e *Engine) lookupNameRule(name string) (Rule, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return Rule{}, false
	}
	for _, pattern := range e.namePatterns {
		if strings.Contains(normalized, pattern.substring) {
			return pattern.rule, true
		}
	}
	return Rule{}, false
}

// defaultTypeRules covers the QuickBooks AccountType vocabulary and the
// Xero account type/class vocabulary. Precise types score 0.9; broad
// container types (CURRENT, ASSET, LIABILITY) score 0.6 so that a precise
// name pattern at 0.7 can refine them.
func defaultTypeRules() map[string]Rule {
	return map[string]Rule{
		// QuickBooks account types.
		"bank":                    {core.CategoryAssets, core.TypeCash, 0.9},
		"accounts receivable":     {core.CategoryAssets, core.TypeAccountsReceivable, 0.9},
		"other current asset":     {core.CategoryAssets, core.TypeOtherAssets, 0.6},
		"fixed asset":             {core.CategoryAssets, core.TypeFixedAssets, 0.9},
		"other asset":             {core.CategoryAssets, core.TypeOtherAssets, 0.6},
		"accounts payable":        {core.CategoryLiabilities, core.TypeAccountsPayable, 0.9},
		"credit card":             {core.CategoryLiabilities, core.TypeOtherLiabilities, 0.85},
		"other current liability": {core.CategoryLiabilities, core.TypeAccruedLiabilities, 0.6},
		"long term liability":     {core.CategoryLiabilities, core.TypeLongTermDebt, 0.9},
		"equity":                  {core.CategoryEquity, core.TypeOwnersEquity, 0.85},
		"income":                  {core.CategoryRevenue, core.TypeOperatingRevenue, 0.9},
		"other income":            {core.CategoryRevenue, core.TypeOtherRevenue, 0.9},
		"cost of goods sold":      {core.CategoryExpenses, core.TypeCostOfGoodsSold, 0.9},
		"expense":                 {core.CategoryExpenses, core.TypeOperatingExpenses, 0.85},
		"other expense":           {core.CategoryExpenses, core.TypeOtherExpenses, 0.85},

		// Xero account types and classes.
		"current":      {core.CategoryAssets, core.TypeOtherAssets, 0.6},
		"inventory":    {core.CategoryAssets, core.TypeInventory, 0.9},
		"fixed":        {core.CategoryAssets, core.TypeFixedAssets, 0.9},
		"noncurrent":   {core.CategoryAssets, core.TypeOtherAssets, 0.6},
		"prepayment":   {core.CategoryAssets, core.TypePrepaidExpenses, 0.9},
		"asset":        {core.CategoryAssets, core.TypeOtherAssets, 0.6},
		"payable":      {core.CategoryLiabilities, core.TypeAccountsPayable, 0.9},
		"currliab":     {core.CategoryLiabilities, core.TypeAccruedLiabilities, 0.6},
		"termliab":     {core.CategoryLiabilities, core.TypeLongTermDebt, 0.9},
		"liability":    {core.CategoryLiabilities, core.TypeOtherLiabilities, 0.6},
		"revenue":      {core.CategoryRevenue, core.TypeOperatingRevenue, 0.9},
		"sales":        {core.CategoryRevenue, core.TypeOperatingRevenue, 0.9},
		"otherincome":  {core.CategoryRevenue, core.TypeOtherRevenue, 0.9},
		"directcosts":  {core.CategoryExpenses, core.TypeCostOfGoodsSold, 0.9},
		"overheads":    {core.CategoryExpenses, core.TypeOperatingExpenses, 0.85},
		"depreciatn":   {core.CategoryExpenses, core.TypeOtherExpenses, 0.85},
		"wagesexpense": {core.CategoryExpenses, core.TypePayrollExpenses, 0.9},
	}
}

func defaultNamePatterns() []namePattern {
	return []namePattern{
		{"receivable", Rule{core.CategoryAssets, core.TypeAccountsReceivable, 0.7}},
		{"debtor", Rule{core.CategoryAssets, core.TypeAccountsReceivable, 0.7}},
		{"payable", Rule{core.CategoryLiabilities, core.TypeAccountsPayable, 0.7}},
		{"creditor", Rule{core.CategoryLiabilities, core.TypeAccountsPayable, 0.7}},
		{"inventory", Rule{core.CategoryAssets, core.TypeInventory, 0.7}},
		{"stock on hand", Rule{core.CategoryAssets, core.TypeInventory, 0.7}},
		{"prepaid", Rule{core.CategoryAssets, core.TypePrepaidExpenses, 0.7}},
		{"cash", Rule{core.CategoryAssets, core.TypeCash, 0.7}},
		{"bank", Rule{core.CategoryAssets, core.TypeCash, 0.7}},
		{"retained earnings", Rule{core.CategoryEquity, core.TypeRetainedEarnings, 0.75}},
		{"payroll", Rule{core.CategoryExpenses, core.TypePayrollExpenses, 0.7}},
		{"wages", Rule{core.CategoryExpenses, core.TypePayrollExpenses, 0.7}},
		{"salaries", Rule{core.CategoryExpenses, core.TypePayrollExpenses, 0.7}},
		{"loan", Rule{core.CategoryLiabilities, core.TypeLongTermDebt, 0.65}},
		{"mortgage", Rule{core.CategoryLiabilities, core.TypeLongTermDebt, 0.65}},
	}
}
