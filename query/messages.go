package query

import (
	"strings"

	"github.com/auditgrid/ledgersync/core"
)

const (
	TypeGetConnection   = "ledgersync.query.connection.get"
	TypeListConnections = "ledgersync.query.connection.list"
	TypeGetSyncJob      = "ledgersync.query.sync_job.get"
	TypeListSyncJobs    = "ledgersync.query.sync_job.list"
	TypeListAccounts    = "ledgersync.query.accounts.list"
	TypeListReviewQueue = "ledgersync.query.accounts.review_queue"
	TypeGetStatement    = "ledgersync.query.statement.get"
)

type GetConnectionMessage struct {
	ConnectionID string
}

func (GetConnectionMessage) Type() string { return TypeGetConnection }

func (m GetConnectionMessage) Validate() error {
	if strings.TrimSpace(m.ConnectionID) == "" {
		return queryInvalidInputError("query: connection id is required")
	}
	return nil
}

type ListConnectionsMessage struct {
	TenantID string
}

func (ListConnectionsMessage) Type() string { return TypeListConnections }

func (m ListConnectionsMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return queryInvalidInputError("query: tenant id is required")
	}
	return nil
}

type GetSyncJobMessage struct {
	JobID string
}

func (GetSyncJobMessage) Type() string { return TypeGetSyncJob }

func (m GetSyncJobMessage) Validate() error {
	if strings.TrimSpace(m.JobID) == "" {
		return queryInvalidInputError("query: job id is required")
	}
	return nil
}

type ListSyncJobsMessage struct {
	ConnectionID string
	Limit        int
}

func (ListSyncJobsMessage) Type() string { return TypeListSyncJobs }

func (m ListSyncJobsMessage) Validate() error {
	if strings.TrimSpace(m.ConnectionID) == "" {
		return queryInvalidInputError("query: connection id is required")
	}
	if m.Limit < 0 {
		return queryInvalidInputError("query: limit must be >= 0")
	}
	return nil
}

type ListAccountsMessage struct {
	ConnectionID string
}

func (ListAccountsMessage) Type() string { return TypeListAccounts }

func (m ListAccountsMessage) Validate() error {
	if strings.TrimSpace(m.ConnectionID) == "" {
		return queryInvalidInputError("query: connection id is required")
	}
	return nil
}

type ListReviewQueueMessage struct {
	ConnectionID string
	Threshold    float64
}

func (ListReviewQueueMessage) Type() string { return TypeListReviewQueue }

func (m ListReviewQueueMessage) Validate() error {
	if strings.TrimSpace(m.ConnectionID) == "" {
		return queryInvalidInputError("query: connection id is required")
	}
	if m.Threshold < 0 || m.Threshold > 1 {
		return queryInvalidInputError("query: threshold must be within [0, 1]")
	}
	return nil
}

type GetStatementMessage struct {
	ConnectionID string
	DataType     core.DataType
}

func (GetStatementMessage) Type() string { return TypeGetStatement }

func (m GetStatementMessage) Validate() error {
	if strings.TrimSpace(m.ConnectionID) == "" {
		return queryInvalidInputError("query: connection id is required")
	}
	if _, err := core.ParseDataType(string(m.DataType)); err != nil {
		return queryWrapValidation(err, "query: invalid data type")
	}
	return nil
}
