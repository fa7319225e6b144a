package sqlstore

import (
	"github.com/auditgrid/ledgersync/core"
	"github.com/auditgrid/ledgersync/ratelimit"
	"github.com/auditgrid/ledgersync/webhooks"
)

var (
	_ core.ConnectionStore        = (*ConnectionStore)(nil)
	_ core.CredentialStore        = (*CredentialStore)(nil)
	_ core.SyncJobStore           = (*SyncJobStore)(nil)
	_ core.NormalizedAccountStore = (*NormalizedAccountStore)(nil)
	_ core.MappingOverrideStore   = (*MappingOverrideStore)(nil)
	_ core.StatementStore         = (*StatementStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)

	_ ratelimit.StateStore = (*RateLimitStateStore)(nil)

	_ webhooks.ConnectionResolver = (*ConnectionStore)(nil)
)
