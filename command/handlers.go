package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/auditgrid/ledgersync/core"
)

// ConnectionService is the mutating surface of the connection manager the
// command layer exposes.
type ConnectionService interface {
	Initiate(ctx context.Context, req core.InitiateRequest) (core.InitiateResponse, error)
	CompleteCallback(ctx context.Context, req core.CompleteRequest) (core.Connection, error)
	Disconnect(ctx context.Context, connectionID string) error
}

type SyncService interface {
	TriggerSync(ctx context.Context, connectionID string, dataTypes []core.DataType, trigger string) ([]core.SyncJob, error)
	ExecuteJob(ctx context.Context, jobID string) (core.SyncJob, error)
	RunScheduledSyncs(ctx context.Context) ([]core.SyncJob, error)
}

type MappingService interface {
	Override(ctx context.Context, connectionID string, externalAccountID string, category core.StandardCategory, standardType core.StandardType) (core.MappingOverride, error)
	ClearOverride(ctx context.Context, connectionID string, externalAccountID string) error
}

type ConnectCommand struct {
	service ConnectionService
}

func NewConnectCommand(service ConnectionService) *ConnectCommand {
	return &ConnectCommand{service: service}
}

func (c *ConnectCommand) Execute(ctx context.Context, msg ConnectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connection service is required")
	}
	out, err := c.service.Initiate(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteCallbackCommand struct {
	service ConnectionService
}

func NewCompleteCallbackCommand(service ConnectionService) *CompleteCallbackCommand {
	return &CompleteCallbackCommand{service: service}
}

func (c *CompleteCallbackCommand) Execute(ctx context.Context, msg CompleteCallbackMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connection service is required")
	}
	out, err := c.service.CompleteCallback(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DisconnectCommand struct {
	service ConnectionService
}

func NewDisconnectCommand(service ConnectionService) *DisconnectCommand {
	return &DisconnectCommand{service: service}
}

func (c *DisconnectCommand) Execute(ctx context.Context, msg DisconnectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: connection service is required")
	}
	return c.service.Disconnect(ctx, msg.ConnectionID)
}

type TriggerSyncCommand struct {
	service SyncService
}

func NewTriggerSyncCommand(service SyncService) *TriggerSyncCommand {
	return &TriggerSyncCommand{service: service}
}

func (c *TriggerSyncCommand) Execute(ctx context.Context, msg TriggerSyncMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	trigger := msg.Trigger
	if trigger == "" {
		trigger = "manual"
	}
	out, err := c.service.TriggerSync(ctx, msg.ConnectionID, msg.DataTypes, trigger)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ExecuteSyncJobCommand struct {
	service SyncService
}

func NewExecuteSyncJobCommand(service SyncService) *ExecuteSyncJobCommand {
	return &ExecuteSyncJobCommand{service: service}
}

func (c *ExecuteSyncJobCommand) Execute(ctx context.Context, msg ExecuteSyncJobMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	out, err := c.service.ExecuteJob(ctx, msg.JobID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RunScheduledSyncsCommand struct {
	service SyncService
}

func NewRunScheduledSyncsCommand(service SyncService) *RunScheduledSyncsCommand {
	return &RunScheduledSyncsCommand{service: service}
}

func (c *RunScheduledSyncsCommand) Execute(ctx context.Context, msg RunScheduledSyncsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sync service is required")
	}
	out, err := c.service.RunScheduledSyncs(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type OverrideMappingCommand struct {
	service MappingService
}

func NewOverrideMappingCommand(service MappingService) *OverrideMappingCommand {
	return &OverrideMappingCommand{service: service}
}

func (c *OverrideMappingCommand) Execute(ctx context.Context, msg OverrideMappingMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: mapping service is required")
	}
	out, err := c.service.Override(ctx, msg.ConnectionID, msg.ExternalAccountID, msg.Category, msg.StandardType)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ClearOverrideCommand struct {
	service MappingService
}

func NewClearOverrideCommand(service MappingService) *ClearOverrideCommand {
	return &ClearOverrideCommand{service: service}
}

func (c *ClearOverrideCommand) Execute(ctx context.Context, msg ClearOverrideMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: mapping service is required")
	}
	return c.service.ClearOverride(ctx, msg.ConnectionID, msg.ExternalAccountID)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
