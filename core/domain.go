package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidProviderKind               = errors.New("core: invalid provider kind")
	ErrInvalidDataType                   = errors.New("core: invalid data type")
	ErrInvalidConnectionStatusTransition = errors.New("core: invalid connection status transition")
	ErrInvalidSyncJobStatusTransition    = errors.New("core: invalid sync job status transition")
	ErrSyncJobTerminal                   = errors.New("core: sync job already reached a terminal state")
	ErrConnectionNotFound                = errors.New("core: connection not found")
	ErrSyncJobNotFound                   = errors.New("core: sync job not found")
	ErrDuplicateConnection               = errors.New("core: tenant already has a connection for this provider company")
)

// ProviderKind identifies one supported accounting platform.
type ProviderKind string

const (
	ProviderQuickBooks ProviderKind = "quickbooks"
	ProviderXero       ProviderKind = "xero"
)

func ParseProviderKind(value string) (ProviderKind, error) {
	normalized := ProviderKind(strings.TrimSpace(strings.ToLower(value)))
	switch normalized {
	case ProviderQuickBooks, ProviderXero:
		return normalized, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidProviderKind, value)
}

// DataType names one syncable financial dataset.
type DataType string

const (
	DataTypeChartOfAccounts DataType = "chart_of_accounts"
	DataTypeTrialBalance    DataType = "trial_balance"
	DataTypeBalanceSheet    DataType = "balance_sheet"
	DataTypeIncomeStatement DataType = "income_statement"
)

func ParseDataType(value string) (DataType, error) {
	normalized := DataType(strings.TrimSpace(strings.ToLower(value)))
	switch normalized {
	case DataTypeChartOfAccounts, DataTypeTrialBalance, DataTypeBalanceSheet, DataTypeIncomeStatement:
		return normalized, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDataType, value)
}

type ConnectionStatus string

const (
	ConnectionStatusPending           ConnectionStatus = "pending"
	ConnectionStatusConnected         ConnectionStatus = "connected"
	ConnectionStatusExpired           ConnectionStatus = "expired"
	ConnectionStatusRevoked           ConnectionStatus = "revoked"
	ConnectionStatusReconnectRequired ConnectionStatus = "reconnect_required"
	ConnectionStatusDisconnected      ConnectionStatus = "disconnected"
)

// Connection is one authorized link between a tenant and an external
// provider company. Tokens never appear here in plaintext; only the
// credential store holds (encrypted) token material.
type Connection struct {
	ID                string
	TenantID          string
	Provider          ProviderKind
	ExternalCompanyID string
	Status            ConnectionStatus
	DataTypes         []DataType
	SyncFrequency     time.Duration
	LastSyncedAt      *time.Time
	LastError         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (c *Connection) TransitionTo(status ConnectionStatus, reason string, now time.Time) error {
	if c == nil {
		return nil
	}
	if c.Status == status {
		c.UpdatedAt = now
		if strings.TrimSpace(reason) != "" {
			c.LastError = strings.TrimSpace(reason)
		}
		return nil
	}
	if !connectionTransitionAllowed(c.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidConnectionStatusTransition, c.Status, status)
	}
	c.Status = status
	c.UpdatedAt = now
	if strings.TrimSpace(reason) != "" {
		c.LastError = strings.TrimSpace(reason)
	}
	if status == ConnectionStatusConnected {
		c.LastError = ""
	}
	return nil
}

func connectionTransitionAllowed(current, next ConnectionStatus) bool {
	allowed := map[ConnectionStatus]map[ConnectionStatus]struct{}{
		ConnectionStatusPending: {
			ConnectionStatusConnected:    {},
			ConnectionStatusDisconnected: {},
		},
		ConnectionStatusConnected: {
			ConnectionStatusExpired:           {},
			ConnectionStatusRevoked:           {},
			ConnectionStatusReconnectRequired: {},
			ConnectionStatusDisconnected:      {},
		},
		ConnectionStatusExpired: {
			ConnectionStatusConnected:    {},
			ConnectionStatusDisconnected: {},
		},
		ConnectionStatusRevoked: {
			ConnectionStatusDisconnected: {},
		},
		ConnectionStatusReconnectRequired: {
			ConnectionStatusDisconnected: {},
		},
		ConnectionStatusDisconnected: {},
	}
	_, ok := allowed[current][next]
	return ok
}

// Terminal reports whether the connection can never return to service
// without a fresh initiate/complete cycle.
func (c Connection) Terminal() bool {
	return c.Status == ConnectionStatusDisconnected
}

// NeedsReauthorization reports statuses that require the tenant to restart
// the authorization flow; there is no automatic recovery from these.
func (c Connection) NeedsReauthorization() bool {
	return c.Status == ConnectionStatusRevoked || c.Status == ConnectionStatusReconnectRequired
}

type SyncJobStatus string

const (
	SyncJobStatusQueued    SyncJobStatus = "queued"
	SyncJobStatusRunning   SyncJobStatus = "running"
	SyncJobStatusCompleted SyncJobStatus = "completed"
	SyncJobStatusFailed    SyncJobStatus = "failed"
)

// SyncJob is one execution attempt of fetching one data type for one
// connection. Jobs are immutable once terminal; history is retained for
// troubleshooting.
type SyncJob struct {
	ID            string
	ConnectionID  string
	Provider      ProviderKind
	DataType      DataType
	Status        SyncJobStatus
	Trigger       string
	RecordsSynced int
	Error         string
	StartedAt     *time.Time
	FinishedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (j SyncJob) Terminal() bool {
	return j.Status == SyncJobStatusCompleted || j.Status == SyncJobStatusFailed
}

func (j *SyncJob) TransitionTo(status SyncJobStatus, now time.Time) error {
	if j == nil {
		return nil
	}
	if j.Status == status {
		j.UpdatedAt = now
		return nil
	}
	if j.Terminal() {
		return fmt.Errorf("%w: %s", ErrSyncJobTerminal, j.Status)
	}
	if !syncJobTransitionAllowed(j.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidSyncJobStatusTransition, j.Status, status)
	}
	j.Status = status
	j.UpdatedAt = now
	switch status {
	case SyncJobStatusRunning:
		started := now
		j.StartedAt = &started
	case SyncJobStatusCompleted, SyncJobStatusFailed:
		finished := now
		j.FinishedAt = &finished
	}
	return nil
}

func syncJobTransitionAllowed(current, next SyncJobStatus) bool {
	allowed := map[SyncJobStatus]map[SyncJobStatus]struct{}{
		SyncJobStatusQueued: {
			SyncJobStatusRunning: {},
			SyncJobStatusFailed:  {},
		},
		SyncJobStatusRunning: {
			SyncJobStatusCompleted: {},
			SyncJobStatusFailed:    {},
		},
		SyncJobStatusCompleted: {},
		SyncJobStatusFailed:    {},
	}
	_, ok := allowed[current][next]
	return ok
}

// StandardCategory is the top level of the canonical account taxonomy.
type StandardCategory string

const (
	CategoryAssets      StandardCategory = "assets"
	CategoryLiabilities StandardCategory = "liabilities"
	CategoryEquity      StandardCategory = "equity"
	CategoryRevenue     StandardCategory = "revenue"
	CategoryExpenses    StandardCategory = "expenses"
)

// StandardType is the fixed second level of the canonical taxonomy.
type StandardType string

const (
	TypeCash               StandardType = "cash"
	TypeAccountsReceivable StandardType = "accounts_receivable"
	TypeInventory          StandardType = "inventory"
	TypePrepaidExpenses    StandardType = "prepaid_expenses"
	TypeFixedAssets        StandardType = "fixed_assets"
	TypeOtherAssets        StandardType = "other_assets"
	TypeAccountsPayable    StandardType = "accounts_payable"
	TypeAccruedLiabilities StandardType = "accrued_liabilities"
	TypeLongTermDebt       StandardType = "long_term_debt"
	TypeOtherLiabilities   StandardType = "other_liabilities"
	TypeRetainedEarnings   StandardType = "retained_earnings"
	TypeOwnersEquity       StandardType = "owners_equity"
	TypeOperatingRevenue   StandardType = "operating_revenue"
	TypeOtherRevenue       StandardType = "other_revenue"
	TypeCostOfGoodsSold    StandardType = "cost_of_goods_sold"
	TypeOperatingExpenses  StandardType = "operating_expenses"
	TypePayrollExpenses    StandardType = "payroll_expenses"
	TypeOtherExpenses      StandardType = "other_expenses"
)

// MappingSource records whether a classification came from the rule engine
// or a reviewer.
type MappingSource string

const (
	MappingSourceAutomatic      MappingSource = "automatic"
	MappingSourceManualOverride MappingSource = "manual_override"
)

// NormalizedAccount is the canonical projection of one external
// chart-of-accounts entry. Snapshots are last-write-wins per sync cycle.
type NormalizedAccount struct {
	ConnectionID      string
	ExternalAccountID string
	ExternalName      string
	ExternalType      string
	Category          StandardCategory
	Type              StandardType
	Confidence        float64
	Source            MappingSource
	UpdatedAt         time.Time
}

// MappingOverride pins an external account to a reviewer-chosen taxonomy
// slot; it survives automatic re-mapping until cleared.
type MappingOverride struct {
	ConnectionID      string
	ExternalAccountID string
	Category          StandardCategory
	Type              StandardType
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProviderAccount is one chart-of-accounts row in the provider's own
// vocabulary, before normalization.
type ProviderAccount struct {
	ExternalID     string
	Name           string
	AccountType    string
	AccountSubType string
	Active         bool
	Currency       string
	Balance        float64
}

// StatementLine is one row of a financial statement document.
type StatementLine struct {
	Label   string
	Amount  float64
	Section string
}

// ProviderDocument is the provider-neutral result of a complete fetch:
// pagination has already been flattened by the adapter.
type ProviderDocument struct {
	Provider   ProviderKind
	DataType   DataType
	PeriodEnd  *time.Time
	Accounts   []ProviderAccount
	Lines      []StatementLine
	FetchedAt  time.Time
	PageCount  int
	RawRecords int
}

// RecordCount returns the number of domain records carried by the document.
func (d ProviderDocument) RecordCount() int {
	if d.DataType == DataTypeChartOfAccounts {
		return len(d.Accounts)
	}
	return len(d.Lines)
}
