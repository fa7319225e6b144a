package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/auditgrid/ledgersync/core"
)

const (
	defaultJobTimeout = 5 * time.Minute

	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerWebhook   = "webhook"
)

// SessionSource hands out ready-to-use provider sessions and flips a
// connection when its grant turns out to be dead.
type SessionSource interface {
	GetSession(ctx context.Context, connectionID string) (core.Session, error)
	MarkReconnectRequired(ctx context.Context, connectionID string, reason string) error
}

// ProviderSource resolves the adapter for a provider kind.
type ProviderSource interface {
	Get(kind core.ProviderKind) (core.Provider, bool)
}

// AccountNormalizer turns a raw chart-of-accounts snapshot into the
// canonical representation and persists it.
type AccountNormalizer interface {
	NormalizeSnapshot(ctx context.Context, connectionID string, accounts []core.ProviderAccount) ([]core.NormalizedAccount, error)
}

// Orchestrator owns the sync job lifecycle: admission (one in-flight job
// per connection and data type), execution (fetch, normalize, persist,
// strictly in that order), and terminal bookkeeping. Failed jobs are never
// retried automatically; the next scheduled cycle or webhook creates a
// fresh job instead.
type Orchestrator struct {
	Connections core.ConnectionStore
	Jobs        core.SyncJobStore
	Sessions    SessionSource
	Providers   ProviderSource
	Normalizer  AccountNormalizer
	Statements  core.StatementStore
	Enqueuer    core.JobEnqueuer
	JobTimeout  time.Duration
	Now         func() time.Time
}

func NewOrchestrator(
	connections core.ConnectionStore,
	jobs core.SyncJobStore,
	sessions SessionSource,
	providers ProviderSource,
	normalizer AccountNormalizer,
	statements core.StatementStore,
) *Orchestrator {
	return &Orchestrator{
		Connections: connections,
		Jobs:        jobs,
		Sessions:    sessions,
		Providers:   providers,
		Normalizer:  normalizer,
		Statements:  statements,
		JobTimeout:  defaultJobTimeout,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// TriggerSync admits one job per requested data type. A data type with a
// queued or running job returns that existing job instead of creating a
// duplicate, which makes webhook-driven triggering idempotent under
// at-least-once delivery.
func (o *Orchestrator) TriggerSync(ctx context.Context, connectionID string, dataTypes []core.DataType, trigger string) ([]core.SyncJob, error) {
	if o == nil || o.Jobs == nil || o.Connections == nil {
		return nil, fmt.Errorf("sync: orchestrator requires connection and job stores")
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return nil, fmt.Errorf("sync: connection id is required")
	}
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		trigger = TriggerManual
	}

	connection, err := o.Connections.Get(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if connection.NeedsReauthorization() {
		return nil, core.NewReconnectRequiredError(
			fmt.Sprintf("connection %s requires reauthorization before syncing", connectionID))
	}
	if connection.Terminal() {
		return nil, core.ErrConnectionNotActive
	}

	if len(dataTypes) == 0 {
		dataTypes = connection.DataTypes
	}
	if len(dataTypes) == 0 {
		dataTypes = []core.DataType{core.DataTypeChartOfAccounts}
	}

	jobs := make([]core.SyncJob, 0, len(dataTypes))
	seen := map[core.DataType]struct{}{}
	for _, dataType := range dataTypes {
		if _, dup := seen[dataType]; dup {
			continue
		}
		seen[dataType] = struct{}{}

		existing, found, err := o.Jobs.FindInFlight(ctx, connectionID, dataType)
		if err != nil {
			return nil, err
		}
		if found {
			jobs = append(jobs, existing)
			continue
		}

		job, err := o.Jobs.Create(ctx, core.CreateSyncJobInput{
			ConnectionID: connectionID,
			Provider:     connection.Provider,
			DataType:     dataType,
			Trigger:      trigger,
		})
		if err != nil {
			return nil, err
		}
		if o.Enqueuer != nil {
			if err := o.Enqueuer.Enqueue(ctx, &core.JobExecutionMessage{
				JobID:          job.ID,
				ConnectionID:   connectionID,
				DataType:       string(dataType),
				IdempotencyKey: job.ID,
			}); err != nil {
				return nil, fmt.Errorf("sync: enqueue job %s: %w", job.ID, err)
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// RunScheduledSyncs triggers a full sync for every connection whose
// frequency window has elapsed. One broken connection does not stop the
// rest of the schedule.
func (o *Orchestrator) RunScheduledSyncs(ctx context.Context) ([]core.SyncJob, error) {
	if o == nil || o.Connections == nil {
		return nil, fmt.Errorf("sync: orchestrator requires connection store")
	}

	due, err := o.Connections.ListDue(ctx, o.now())
	if err != nil {
		return nil, err
	}

	var jobs []core.SyncJob
	var firstErr error
	for _, connection := range due {
		triggered, err := o.TriggerSync(ctx, connection.ID, connection.DataTypes, TriggerScheduled)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("sync: schedule connection %s: %w", connection.ID, err)
			}
			continue
		}
		jobs = append(jobs, triggered...)
	}
	return jobs, firstErr
}

// ExecuteJob runs one queued job to a terminal state. Re-executing a
// terminal job is a no-op returning the stored record, so at-least-once
// work queues are safe.
func (o *Orchestrator) ExecuteJob(ctx context.Context, jobID string) (core.SyncJob, error) {
	if o == nil || o.Jobs == nil {
		return core.SyncJob{}, fmt.Errorf("sync: orchestrator requires job store")
	}
	job, err := o.Jobs.Get(ctx, strings.TrimSpace(jobID))
	if err != nil {
		return core.SyncJob{}, err
	}
	if job.Terminal() {
		return job, nil
	}

	if err := job.TransitionTo(core.SyncJobStatusRunning, o.now()); err != nil {
		return core.SyncJob{}, err
	}
	job, err = o.Jobs.Update(ctx, job)
	if err != nil {
		return core.SyncJob{}, err
	}

	timeout := o.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	records, runErr := o.runJob(jobCtx, job)
	if runErr != nil {
		return o.failJob(ctx, job, runErr)
	}

	job.RecordsSynced = records
	if err := job.TransitionTo(core.SyncJobStatusCompleted, o.now()); err != nil {
		return core.SyncJob{}, err
	}
	job, err = o.Jobs.Update(ctx, job)
	if err != nil {
		return core.SyncJob{}, err
	}
	if touchErr := o.Connections.TouchLastSynced(ctx, job.ConnectionID, o.now()); touchErr != nil {
		return job, fmt.Errorf("sync: touch last synced: %w", touchErr)
	}
	return job, nil
}

func (o *Orchestrator) runJob(ctx context.Context, job core.SyncJob) (int, error) {
	if o.Sessions == nil || o.Providers == nil {
		return 0, fmt.Errorf("sync: orchestrator requires session and provider sources")
	}

	session, err := o.Sessions.GetSession(ctx, job.ConnectionID)
	if err != nil {
		return 0, err
	}
	provider, ok := o.Providers.Get(job.Provider)
	if !ok {
		return 0, fmt.Errorf("sync: no adapter registered for provider %q", job.Provider)
	}

	var periodEnd *time.Time
	if job.DataType != core.DataTypeChartOfAccounts {
		end := o.now()
		periodEnd = &end
	}
	doc, err := provider.Fetch(ctx, core.FetchRequest{
		Session:   session,
		DataType:  job.DataType,
		PeriodEnd: periodEnd,
	})
	if err != nil {
		return 0, err
	}

	switch job.DataType {
	case core.DataTypeChartOfAccounts:
		if o.Normalizer == nil {
			return 0, fmt.Errorf("sync: orchestrator requires account normalizer")
		}
		normalized, err := o.Normalizer.NormalizeSnapshot(ctx, job.ConnectionID, doc.Accounts)
		if err != nil {
			return 0, err
		}
		return len(normalized), nil
	default:
		if o.Statements == nil {
			return 0, fmt.Errorf("sync: orchestrator requires statement store")
		}
		if err := o.Statements.ReplaceDocument(ctx, doc, job.ConnectionID); err != nil {
			return 0, err
		}
		return doc.RecordCount(), nil
	}
}

func (o *Orchestrator) failJob(ctx context.Context, job core.SyncJob, cause error) (core.SyncJob, error) {
	if core.IsReconnectRequired(cause) && o.Sessions != nil {
		// The connection flip is the important side effect; the job record
		// still captures the cause even if the flip fails.
		_ = o.Sessions.MarkReconnectRequired(ctx, job.ConnectionID, cause.Error())
	}

	job.Error = cause.Error()
	if err := job.TransitionTo(core.SyncJobStatusFailed, o.now()); err != nil {
		return core.SyncJob{}, err
	}
	updated, err := o.Jobs.Update(ctx, job)
	if err != nil {
		return core.SyncJob{}, err
	}
	return updated, cause
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

var _ core.SyncTrigger = (*Orchestrator)(nil)
