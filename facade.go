package ledgersync

import (
	"fmt"
	"reflect"

	ledgersynccommand "github.com/auditgrid/ledgersync/command"
	ledgersyncquery "github.com/auditgrid/ledgersync/query"
)

type Commands struct {
	Connect           *ledgersynccommand.ConnectCommand
	CompleteCallback  *ledgersynccommand.CompleteCallbackCommand
	Disconnect        *ledgersynccommand.DisconnectCommand
	TriggerSync       *ledgersynccommand.TriggerSyncCommand
	ExecuteSyncJob    *ledgersynccommand.ExecuteSyncJobCommand
	RunScheduledSyncs *ledgersynccommand.RunScheduledSyncsCommand
	OverrideMapping   *ledgersynccommand.OverrideMappingCommand
	ClearOverride     *ledgersynccommand.ClearOverrideCommand
}

type Queries struct {
	GetConnection   *ledgersyncquery.GetConnectionQuery
	ListConnections *ledgersyncquery.ListConnectionsQuery
	GetSyncJob      *ledgersyncquery.GetSyncJobQuery
	ListSyncJobs    *ledgersyncquery.ListSyncJobsQuery
	ListAccounts    *ledgersyncquery.ListAccountsQuery
	ListReviewQueue *ledgersyncquery.ListReviewQueueQuery
	GetStatement    *ledgersyncquery.GetStatementQuery
}

// Facade bundles the command and query handler surface over the three
// domain services: the connection manager, the sync orchestrator, and the
// account normalizer.
type Facade struct {
	connections ledgersynccommand.ConnectionService
	syncs       ledgersynccommand.SyncService
	mappings    ledgersynccommand.MappingService
	commands    Commands
	queries     Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	stores           any
	connectionReader ledgersyncquery.ConnectionReader
	syncJobReader    ledgersyncquery.SyncJobReader
	accountReader    ledgersyncquery.AccountReader
	statementReader  ledgersyncquery.StatementReader
}

// WithStores supplies the repository layer the facade resolves read
// surfaces from; typically a *sqlstore.RepositoryFactory.
func WithStores(stores any) FacadeOption {
	return func(options *facadeOptions) {
		options.stores = stores
	}
}

func WithConnectionReader(reader ledgersyncquery.ConnectionReader) FacadeOption {
	return func(options *facadeOptions) {
		options.connectionReader = reader
	}
}

func WithSyncJobReader(reader ledgersyncquery.SyncJobReader) FacadeOption {
	return func(options *facadeOptions) {
		options.syncJobReader = reader
	}
}

func WithAccountReader(reader ledgersyncquery.AccountReader) FacadeOption {
	return func(options *facadeOptions) {
		options.accountReader = reader
	}
}

func WithStatementReader(reader ledgersyncquery.StatementReader) FacadeOption {
	return func(options *facadeOptions) {
		options.statementReader = reader
	}
}

func NewFacade(
	connections ledgersynccommand.ConnectionService,
	syncs ledgersynccommand.SyncService,
	mappings ledgersynccommand.MappingService,
	opts ...FacadeOption,
) (*Facade, error) {
	if connections == nil {
		return nil, fmt.Errorf("ledgersync: connection service is required")
	}
	if syncs == nil {
		return nil, fmt.Errorf("ledgersync: sync service is required")
	}
	if mappings == nil {
		return nil, fmt.Errorf("ledgersync: mapping service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	connectionReader := cfg.connectionReader
	if connectionReader == nil {
		connectionReader, _ = connections.(ledgersyncquery.ConnectionReader)
	}
	accountReader := cfg.accountReader
	if accountReader == nil {
		accountReader, _ = mappings.(ledgersyncquery.AccountReader)
	}
	syncJobReader := cfg.syncJobReader
	if syncJobReader == nil {
		syncJobReader = resolveStoreReader[ledgersyncquery.SyncJobReader](cfg.stores, "SyncJobStore")
	}
	statementReader := cfg.statementReader
	if statementReader == nil {
		statementReader = resolveStoreReader[ledgersyncquery.StatementReader](cfg.stores, "StatementStore")
	}

	facade := &Facade{
		connections: connections,
		syncs:       syncs,
		mappings:    mappings,
	}
	facade.commands = Commands{
		Connect:           ledgersynccommand.NewConnectCommand(connections),
		CompleteCallback:  ledgersynccommand.NewCompleteCallbackCommand(connections),
		Disconnect:        ledgersynccommand.NewDisconnectCommand(connections),
		TriggerSync:       ledgersynccommand.NewTriggerSyncCommand(syncs),
		ExecuteSyncJob:    ledgersynccommand.NewExecuteSyncJobCommand(syncs),
		RunScheduledSyncs: ledgersynccommand.NewRunScheduledSyncsCommand(syncs),
		OverrideMapping:   ledgersynccommand.NewOverrideMappingCommand(mappings),
		ClearOverride:     ledgersynccommand.NewClearOverrideCommand(mappings),
	}
	facade.queries = Queries{
		GetConnection:   ledgersyncquery.NewGetConnectionQuery(connectionReader),
		ListConnections: ledgersyncquery.NewListConnectionsQuery(connectionReader),
		GetSyncJob:      ledgersyncquery.NewGetSyncJobQuery(syncJobReader),
		ListSyncJobs:    ledgersyncquery.NewListSyncJobsQuery(syncJobReader),
		ListAccounts:    ledgersyncquery.NewListAccountsQuery(accountReader),
		ListReviewQueue: ledgersyncquery.NewListReviewQueueQuery(accountReader),
		GetStatement:    ledgersyncquery.NewGetStatementQuery(statementReader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) ConnectionService() ledgersynccommand.ConnectionService {
	if f == nil {
		return nil
	}
	return f.connections
}

func (f *Facade) SyncService() ledgersynccommand.SyncService {
	if f == nil {
		return nil
	}
	return f.syncs
}

func (f *Facade) MappingService() ledgersynccommand.MappingService {
	if f == nil {
		return nil
	}
	return f.mappings
}

// resolveStoreReader looks up a zero-argument accessor on the store
// provider and keeps its result when it satisfies the reader contract.
// Store factories expose accessors beyond the core.StoreProvider
// interface, so the lookup goes through reflection.
func resolveStoreReader[R any](stores any, accessor string) R {
	var zero R
	if stores == nil {
		return zero
	}

	value := reflect.ValueOf(stores)
	if !value.IsValid() {
		return zero
	}
	if value.Kind() == reflect.Ptr && value.IsNil() {
		return zero
	}
	method := value.MethodByName(accessor)
	if !method.IsValid() || method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return zero
	}

	results, ok := safeReflectCall(method)
	if !ok || len(results) != 1 {
		return zero
	}
	candidate := results[0]
	if !candidate.IsValid() {
		return zero
	}
	if (candidate.Kind() == reflect.Ptr || candidate.Kind() == reflect.Interface) && candidate.IsNil() {
		return zero
	}
	reader, ok := candidate.Interface().(R)
	if !ok {
		return zero
	}
	return reader
}

func safeReflectCall(method reflect.Value) (_ []reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return method.Call(nil), true
}
