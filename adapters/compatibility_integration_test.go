package adapters_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/auditgrid/ledgersync/adapters/gocommand"
	"github.com/auditgrid/ledgersync/adapters/gojob"
	"github.com/auditgrid/ledgersync/adapters/gologger"
	ledgersynccommand "github.com/auditgrid/ledgersync/command"
	"github.com/auditgrid/ledgersync/core"
	ledgersyncquery "github.com/auditgrid/ledgersync/query"
)

func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	provider := &compatProvider{logger: compatLogger{}}
	_, _, jobProvider, jobLogger := gologger.ResolveForJob("ledgersync", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	enqueueProbe := &compatEnqueuer{}
	enqueueAdapter := gojob.NewEnqueuerAdapter(enqueueProbe)
	if err := enqueueAdapter.Enqueue(ctx, &core.JobExecutionMessage{
		JobID:          "job_1",
		ConnectionID:   "conn_1",
		DataType:       string(core.DataTypeChartOfAccounts),
		IdempotencyKey: "job_1",
	}); err != nil {
		t.Fatalf("enqueue via gojob adapter: %v", err)
	}
	if enqueueProbe.last == nil || enqueueProbe.last.JobID != gojob.JobIDSyncExecute {
		t.Fatalf("expected go-job message mapping through enqueuer adapter")
	}

	queueRegistry := jobqueuecommand.NewRegistry()
	commandAdapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := commandAdapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := commandAdapter.RegisterCommand(command.CommandFunc[compatMessage](func(context.Context, compatMessage) error {
		return nil
	})); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := commandAdapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get("ledgersync.compat.command"); !ok {
		t.Fatalf("expected command resolver hook to mirror command into go-job queue registry")
	}
}

func TestRuntimeCompatibility_CommandsDispatchThroughWrappers(t *testing.T) {
	svc := &compatSyncService{}
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())

	triggerSub, err := gocommand.RegisterAndSubscribe(adapter, ledgersynccommand.NewTriggerSyncCommand(svc))
	if err != nil {
		t.Fatalf("register trigger sync wrapper: %v", err)
	}
	defer triggerSub.Unsubscribe()

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize adapter: %v", err)
	}

	if err := gocommand.Dispatch(context.Background(), ledgersynccommand.TriggerSyncMessage{
		ConnectionID: "conn_1",
		DataTypes:    []core.DataType{core.DataTypeTrialBalance},
		Trigger:      "webhook",
	}); err != nil {
		t.Fatalf("dispatch trigger sync: %v", err)
	}
	if svc.triggerCalls != 1 || svc.lastConnectionID != "conn_1" || svc.lastTrigger != "webhook" {
		t.Fatalf("expected trigger sync wrapper invocation through dispatcher")
	}
}

func TestRuntimeCompatibility_QueriesDispatchThroughWrappers(t *testing.T) {
	reader := &compatConnectionReader{connections: []core.Connection{
		{ID: "conn_1", TenantID: "tenant_1", Provider: core.ProviderQuickBooks},
		{ID: "conn_2", TenantID: "tenant_2", Provider: core.ProviderXero},
	}}
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())

	listSub, err := gocommand.RegisterAndSubscribeQuery(adapter, ledgersyncquery.NewListConnectionsQuery(reader))
	if err != nil {
		t.Fatalf("register list connections wrapper: %v", err)
	}
	defer listSub.Unsubscribe()

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize adapter: %v", err)
	}

	connections, err := gocommand.Query[ledgersyncquery.ListConnectionsMessage, []core.Connection](
		context.Background(), ledgersyncquery.ListConnectionsMessage{TenantID: "tenant_1"})
	if err != nil {
		t.Fatalf("query list connections: %v", err)
	}
	if len(connections) != 1 || connections[0].ID != "conn_1" {
		t.Fatalf("expected tenant_1 connection through dispatcher, got %+v", connections)
	}
}

type compatMessage struct{}

func (compatMessage) Type() string { return "ledgersync.compat.command" }

type compatEnqueuer struct {
	last *job.ExecutionMessage
}

func (e *compatEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	e.last = msg
	return nil
}

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }

type compatSyncService struct {
	triggerCalls     int
	lastConnectionID string
	lastTrigger      string
}

func (s *compatSyncService) TriggerSync(_ context.Context, connectionID string, _ []core.DataType, trigger string) ([]core.SyncJob, error) {
	s.triggerCalls++
	s.lastConnectionID = connectionID
	s.lastTrigger = trigger
	return nil, nil
}

func (s *compatSyncService) ExecuteJob(context.Context, string) (core.SyncJob, error) {
	return core.SyncJob{}, nil
}

func (s *compatSyncService) RunScheduledSyncs(context.Context) ([]core.SyncJob, error) {
	return nil, nil
}

type compatConnectionReader struct {
	connections []core.Connection
}

func (r *compatConnectionReader) GetConnection(_ context.Context, connectionID string) (core.Connection, error) {
	for _, connection := range r.connections {
		if connection.ID == connectionID {
			return connection, nil
		}
	}
	return core.Connection{}, fmt.Errorf("connection %s not found", connectionID)
}

func (r *compatConnectionReader) ListConnections(_ context.Context, tenantID string) ([]core.Connection, error) {
	var out []core.Connection
	for _, connection := range r.connections {
		if connection.TenantID == tenantID {
			out = append(out, connection)
		}
	}
	return out, nil
}
