package command

import (
	"strings"

	"github.com/auditgrid/ledgersync/core"
)

const (
	TypeConnect           = "ledgersync.command.connect"
	TypeCompleteCallback  = "ledgersync.command.callback.complete"
	TypeDisconnect        = "ledgersync.command.disconnect"
	TypeTriggerSync       = "ledgersync.command.sync.trigger"
	TypeExecuteSyncJob    = "ledgersync.command.sync.execute"
	TypeRunScheduledSyncs = "ledgersync.command.sync.run_scheduled"
	TypeOverrideMapping   = "ledgersync.command.mapping.override"
	TypeClearOverride     = "ledgersync.command.mapping.clear_override"
)

type ConnectMessage struct {
	Request core.InitiateRequest
}

func (ConnectMessage) Type() string { return TypeConnect }

func (m ConnectMessage) Validate() error {
	if strings.TrimSpace(m.Request.TenantID) == "" {
		return commandInvalidInputError("command: tenant id is required")
	}
	if strings.TrimSpace(string(m.Request.Provider)) == "" {
		return commandInvalidInputError("command: provider is required")
	}
	if strings.TrimSpace(m.Request.RedirectURI) == "" {
		return commandInvalidInputError("command: redirect uri is required")
	}
	return nil
}

type CompleteCallbackMessage struct {
	Request core.CompleteRequest
}

func (CompleteCallbackMessage) Type() string { return TypeCompleteCallback }

func (m CompleteCallbackMessage) Validate() error {
	if strings.TrimSpace(m.Request.PendingConnectionID) == "" {
		return commandInvalidInputError("command: pending connection id is required")
	}
	if strings.TrimSpace(m.Request.Code) == "" {
		return commandInvalidInputError("command: authorization code is required")
	}
	if strings.TrimSpace(m.Request.State) == "" {
		return commandInvalidInputError("command: state is required")
	}
	return nil
}

type DisconnectMessage struct {
	ConnectionID string
}

func (DisconnectMessage) Type() string { return TypeDisconnect }

func (m DisconnectMessage) Validate() error {
	if strings.TrimSpace(m.ConnectionID) == "" {
		return commandInvalidInputError("command: connection id is required")
	}
	return nil
}

type TriggerSyncMessage struct {
	ConnectionID string
	DataTypes    []core.DataType
	Trigger      string
}

func (TriggerSyncMessage) Type() string { return TypeTriggerSync }

func (m TriggerSyncMessage) Validate() error {
	if strings.TrimSpace(m.ConnectionID) == "" {
		return commandInvalidInputError("command: connection id is required")
	}
	for _, dataType := range m.DataTypes {
		if _, err := core.ParseDataType(string(dataType)); err != nil {
			return commandWrapValidation(err, "command: invalid data type")
		}
	}
	return nil
}

type ExecuteSyncJobMessage struct {
	JobID string
}

func (ExecuteSyncJobMessage) Type() string { return TypeExecuteSyncJob }

func (m ExecuteSyncJobMessage) Validate() error {
	if strings.TrimSpace(m.JobID) == "" {
		return commandInvalidInputError("command: job id is required")
	}
	return nil
}

type RunScheduledSyncsMessage struct{}

func (RunScheduledSyncsMessage) Type() string { return TypeRunScheduledSyncs }

func (RunScheduledSyncsMessage) Validate() error { return nil }

type OverrideMappingMessage struct {
	ConnectionID      string
	ExternalAccountID string
	Category          core.StandardCategory
	StandardType      core.StandardType
}

func (OverrideMappingMessage) Type() string { return TypeOverrideMapping }

func (m OverrideMappingMessage) Validate() error {
	if strings.TrimSpace(m.ConnectionID) == "" {
		return commandInvalidInputError("command: connection id is required")
	}
	if strings.TrimSpace(m.ExternalAccountID) == "" {
		return commandInvalidInputError("command: external account id is required")
	}
	if strings.TrimSpace(string(m.Category)) == "" {
		return commandInvalidInputError("command: category is required")
	}
	if strings.TrimSpace(string(m.StandardType)) == "" {
		return commandInvalidInputError("command: standard type is required")
	}
	return nil
}

type ClearOverrideMessage struct {
	ConnectionID      string
	ExternalAccountID string
}

func (ClearOverrideMessage) Type() string { return TypeClearOverride }

func (m ClearOverrideMessage) Validate() error {
	if strings.TrimSpace(m.ConnectionID) == "" {
		return commandInvalidInputError("command: connection id is required")
	}
	if strings.TrimSpace(m.ExternalAccountID) == "" {
		return commandInvalidInputError("command: external account id is required")
	}
	return nil
}
