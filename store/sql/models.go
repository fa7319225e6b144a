package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type connectionRecord struct {
	bun.BaseModel `bun:"table:ledgersync_connections,alias:lc"`

	ID                string     `bun:"id,pk"`
	TenantID          string     `bun:"tenant_id,notnull"`
	Provider          string     `bun:"provider,notnull"`
	ExternalCompanyID string     `bun:"external_company_id,notnull"`
	Status            string     `bun:"status,notnull"`
	DataTypes         []string   `bun:"data_types,type:jsonb,notnull"`
	SyncFrequencySecs int64      `bun:"sync_frequency_seconds,notnull"`
	LastSyncedAt      *time.Time `bun:"last_synced_at,nullzero"`
	LastError         string     `bun:"last_error"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type credentialRecord struct {
	bun.BaseModel `bun:"table:ledgersync_credentials,alias:lcr"`

	ID                    string     `bun:"id,pk"`
	ConnectionID          string     `bun:"connection_id,notnull,unique"`
	EncryptedPayload      []byte     `bun:"encrypted_payload,notnull"`
	PayloadFormat         string     `bun:"payload_format,notnull"`
	PayloadVersion        int        `bun:"payload_version,notnull"`
	ExpiresAt             time.Time  `bun:"expires_at,notnull"`
	RefreshTokenExpiresAt *time.Time `bun:"refresh_token_expires_at,nullzero"`
	CreatedAt             time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt             time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type syncJobRecord struct {
	bun.BaseModel `bun:"table:ledgersync_sync_jobs,alias:lsj"`

	ID            string     `bun:"id,pk"`
	ConnectionID  string     `bun:"connection_id,notnull"`
	Provider      string     `bun:"provider,notnull"`
	DataType      string     `bun:"data_type,notnull"`
	Status        string     `bun:"status,notnull"`
	Trigger       string     `bun:"triggered_by,notnull"`
	RecordsSynced int        `bun:"records_synced,notnull"`
	Error         string     `bun:"error"`
	StartedAt     *time.Time `bun:"started_at,nullzero"`
	FinishedAt    *time.Time `bun:"finished_at,nullzero"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type normalizedAccountRecord struct {
	bun.BaseModel `bun:"table:ledgersync_normalized_accounts,alias:lna"`

	ID                string    `bun:"id,pk"`
	ConnectionID      string    `bun:"connection_id,notnull"`
	ExternalAccountID string    `bun:"external_account_id,notnull"`
	ExternalName      string    `bun:"external_name,notnull"`
	ExternalType      string    `bun:"external_type,notnull"`
	Category          string    `bun:"category,notnull"`
	StandardType      string    `bun:"standard_type,notnull"`
	Confidence        float64   `bun:"confidence,notnull"`
	Source            string    `bun:"source,notnull"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type mappingOverrideRecord struct {
	bun.BaseModel `bun:"table:ledgersync_mapping_overrides,alias:lmo"`

	ID                string    `bun:"id,pk"`
	ConnectionID      string    `bun:"connection_id,notnull"`
	ExternalAccountID string    `bun:"external_account_id,notnull"`
	Category          string    `bun:"category,notnull"`
	StandardType      string    `bun:"standard_type,notnull"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type statementLineEntry struct {
	Label   string  `json:"label"`
	Amount  float64 `json:"amount"`
	Section string  `json:"section,omitempty"`
}

type statementDocumentRecord struct {
	bun.BaseModel `bun:"table:ledgersync_statement_documents,alias:lsd"`

	ID           string               `bun:"id,pk"`
	ConnectionID string               `bun:"connection_id,notnull"`
	Provider     string               `bun:"provider,notnull"`
	DataType     string               `bun:"data_type,notnull"`
	PeriodEnd    *time.Time           `bun:"period_end,nullzero"`
	Lines        []statementLineEntry `bun:"lines,type:jsonb,notnull"`
	PageCount    int                  `bun:"page_count,notnull"`
	RawRecords   int                  `bun:"raw_records,notnull"`
	FetchedAt    time.Time            `bun:"fetched_at,notnull"`
	CreatedAt    time.Time            `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time            `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type rateLimitStateRecord struct {
	bun.BaseModel `bun:"table:ledgersync_rate_limit_state,alias:lrs"`

	ID              string     `bun:"id,pk"`
	Provider        string     `bun:"provider,notnull"`
	TenantID        string     `bun:"tenant_id,notnull"`
	Limit           int        `bun:"rate_limit,notnull"`
	Remaining       int        `bun:"remaining,notnull"`
	ResetAt         *time.Time `bun:"reset_at,nullzero"`
	RetryAfterSecs  *int64     `bun:"retry_after_seconds,nullzero"`
	ThrottledUntil  *time.Time `bun:"throttled_until,nullzero"`
	LastStatus      int        `bun:"last_status,notnull"`
	Attempts        int        `bun:"attempts,notnull"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type webhookDeliveryRecord struct {
	bun.BaseModel `bun:"table:ledgersync_webhook_deliveries,alias:lwd"`

	ID          string     `bun:"id,pk"`
	Provider    string     `bun:"provider,notnull"`
	DeliveryID  string     `bun:"delivery_id,notnull"`
	Status      string     `bun:"status,notnull"`
	ReceivedAt  time.Time  `bun:"received_at,notnull"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
