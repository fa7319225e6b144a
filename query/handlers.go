package query

import (
	"context"

	"github.com/auditgrid/ledgersync/core"
)

type ConnectionReader interface {
	GetConnection(ctx context.Context, connectionID string) (core.Connection, error)
	ListConnections(ctx context.Context, tenantID string) ([]core.Connection, error)
}

type SyncJobReader interface {
	Get(ctx context.Context, id string) (core.SyncJob, error)
	ListByConnection(ctx context.Context, connectionID string, limit int) ([]core.SyncJob, error)
}

type AccountReader interface {
	ListAccounts(ctx context.Context, connectionID string) ([]core.NormalizedAccount, error)
	ListForReview(ctx context.Context, connectionID string, threshold float64) ([]core.NormalizedAccount, error)
}

type StatementReader interface {
	GetDocument(ctx context.Context, connectionID string, dataType core.DataType) (core.ProviderDocument, error)
}

type GetConnectionQuery struct {
	reader ConnectionReader
}

func NewGetConnectionQuery(reader ConnectionReader) *GetConnectionQuery {
	return &GetConnectionQuery{reader: reader}
}

func (q *GetConnectionQuery) Query(ctx context.Context, msg GetConnectionMessage) (core.Connection, error) {
	if q == nil || q.reader == nil {
		return core.Connection{}, queryDependencyError("query: connection reader is required")
	}
	return q.reader.GetConnection(ctx, msg.ConnectionID)
}

type ListConnectionsQuery struct {
	reader ConnectionReader
}

func NewListConnectionsQuery(reader ConnectionReader) *ListConnectionsQuery {
	return &ListConnectionsQuery{reader: reader}
}

func (q *ListConnectionsQuery) Query(ctx context.Context, msg ListConnectionsMessage) ([]core.Connection, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: connection reader is required")
	}
	return q.reader.ListConnections(ctx, msg.TenantID)
}

type GetSyncJobQuery struct {
	reader SyncJobReader
}

func NewGetSyncJobQuery(reader SyncJobReader) *GetSyncJobQuery {
	return &GetSyncJobQuery{reader: reader}
}

func (q *GetSyncJobQuery) Query(ctx context.Context, msg GetSyncJobMessage) (core.SyncJob, error) {
	if q == nil || q.reader == nil {
		return core.SyncJob{}, queryDependencyError("query: sync job reader is required")
	}
	return q.reader.Get(ctx, msg.JobID)
}

type ListSyncJobsQuery struct {
	reader SyncJobReader
}

func NewListSyncJobsQuery(reader SyncJobReader) *ListSyncJobsQuery {
	return &ListSyncJobsQuery{reader: reader}
}

func (q *ListSyncJobsQuery) Query(ctx context.Context, msg ListSyncJobsMessage) ([]core.SyncJob, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: sync job reader is required")
	}
	return q.reader.ListByConnection(ctx, msg.ConnectionID, msg.Limit)
}

type ListAccountsQuery struct {
	reader AccountReader
}

func NewListAccountsQuery(reader AccountReader) *ListAccountsQuery {
	return &ListAccountsQuery{reader: reader}
}

func (q *ListAccountsQuery) Query(ctx context.Context, msg ListAccountsMessage) ([]core.NormalizedAccount, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: account reader is required")
	}
	return q.reader.ListAccounts(ctx, msg.ConnectionID)
}

type ListReviewQueueQuery struct {
	reader AccountReader
}

func NewListReviewQueueQuery(reader AccountReader) *ListReviewQueueQuery {
	return &ListReviewQueueQuery{reader: reader}
}

func (q *ListReviewQueueQuery) Query(ctx context.Context, msg ListReviewQueueMessage) ([]core.NormalizedAccount, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: account reader is required")
	}
	return q.reader.ListForReview(ctx, msg.ConnectionID, msg.Threshold)
}

type GetStatementQuery struct {
	reader StatementReader
}

func NewGetStatementQuery(reader StatementReader) *GetStatementQuery {
	return &GetStatementQuery{reader: reader}
}

func (q *GetStatementQuery) Query(ctx context.Context, msg GetStatementMessage) (core.ProviderDocument, error) {
	if q == nil || q.reader == nil {
		return core.ProviderDocument{}, queryDependencyError("query: statement reader is required")
	}
	return q.reader.GetDocument(ctx, msg.ConnectionID, msg.DataType)
}
