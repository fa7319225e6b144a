package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ConnectMessage]           = (*ConnectCommand)(nil)
	_ gocmd.Commander[CompleteCallbackMessage]  = (*CompleteCallbackCommand)(nil)
	_ gocmd.Commander[DisconnectMessage]        = (*DisconnectCommand)(nil)
	_ gocmd.Commander[TriggerSyncMessage]       = (*TriggerSyncCommand)(nil)
	_ gocmd.Commander[ExecuteSyncJobMessage]    = (*ExecuteSyncJobCommand)(nil)
	_ gocmd.Commander[RunScheduledSyncsMessage] = (*RunScheduledSyncsCommand)(nil)
	_ gocmd.Commander[OverrideMappingMessage]   = (*OverrideMappingCommand)(nil)
	_ gocmd.Commander[ClearOverrideMessage]     = (*ClearOverrideCommand)(nil)
)
