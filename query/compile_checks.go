package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/auditgrid/ledgersync/core"
)

var (
	_ gocmd.Querier[GetConnectionMessage, core.Connection]           = (*GetConnectionQuery)(nil)
	_ gocmd.Querier[ListConnectionsMessage, []core.Connection]       = (*ListConnectionsQuery)(nil)
	_ gocmd.Querier[GetSyncJobMessage, core.SyncJob]                 = (*GetSyncJobQuery)(nil)
	_ gocmd.Querier[ListSyncJobsMessage, []core.SyncJob]             = (*ListSyncJobsQuery)(nil)
	_ gocmd.Querier[ListAccountsMessage, []core.NormalizedAccount]   = (*ListAccountsQuery)(nil)
	_ gocmd.Querier[ListReviewQueueMessage, []core.NormalizedAccount] = (*ListReviewQueueQuery)(nil)
	_ gocmd.Querier[GetStatementMessage, core.ProviderDocument]      = (*GetStatementQuery)(nil)
)
