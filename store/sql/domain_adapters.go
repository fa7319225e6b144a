package sqlstore

import (
	"time"

	"github.com/auditgrid/ledgersync/core"
	"github.com/auditgrid/ledgersync/ratelimit"
)

func newConnectionRecord(in core.CreateConnectionInput, now time.Time) *connectionRecord {
	dataTypes := make([]string, 0, len(in.DataTypes))
	for _, dataType := range in.DataTypes {
		dataTypes = append(dataTypes, string(dataType))
	}
	return &connectionRecord{
		TenantID:          in.TenantID,
		Provider:          string(in.Provider),
		ExternalCompanyID: in.ExternalCompanyID,
		Status:            string(in.Status),
		DataTypes:         dataTypes,
		SyncFrequencySecs: int64(in.SyncFrequency / time.Second),
		LastError:         "",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (r *connectionRecord) toDomain() core.Connection {
	if r == nil {
		return core.Connection{}
	}
	dataTypes := make([]core.DataType, 0, len(r.DataTypes))
	for _, dataType := range r.DataTypes {
		dataTypes = append(dataTypes, core.DataType(dataType))
	}
	connection := core.Connection{
		ID:                r.ID,
		TenantID:          r.TenantID,
		Provider:          core.ProviderKind(r.Provider),
		ExternalCompanyID: r.ExternalCompanyID,
		Status:            core.ConnectionStatus(r.Status),
		DataTypes:         dataTypes,
		SyncFrequency:     time.Duration(r.SyncFrequencySecs) * time.Second,
		LastError:         r.LastError,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.LastSyncedAt != nil {
		lastSynced := *r.LastSyncedAt
		connection.LastSyncedAt = &lastSynced
	}
	return connection
}

func (r *connectionRecord) fromDomain(connection core.Connection) {
	if r == nil {
		return
	}
	dataTypes := make([]string, 0, len(connection.DataTypes))
	for _, dataType := range connection.DataTypes {
		dataTypes = append(dataTypes, string(dataType))
	}
	r.ID = connection.ID
	r.TenantID = connection.TenantID
	r.Provider = string(connection.Provider)
	r.ExternalCompanyID = connection.ExternalCompanyID
	r.Status = string(connection.Status)
	r.DataTypes = dataTypes
	r.SyncFrequencySecs = int64(connection.SyncFrequency / time.Second)
	r.LastError = connection.LastError
	r.CreatedAt = connection.CreatedAt
	r.UpdatedAt = connection.UpdatedAt
	r.LastSyncedAt = nil
	if connection.LastSyncedAt != nil {
		lastSynced := *connection.LastSyncedAt
		r.LastSyncedAt = &lastSynced
	}
}

func newCredentialRecord(in core.SaveCredentialInput, now time.Time) *credentialRecord {
	record := &credentialRecord{
		ConnectionID:     in.ConnectionID,
		EncryptedPayload: append([]byte(nil), in.EncryptedPayload...),
		PayloadFormat:    in.PayloadFormat,
		PayloadVersion:   in.PayloadVersion,
		ExpiresAt:        in.ExpiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.RefreshTokenExpiresAt != nil {
		refreshExpiry := *in.RefreshTokenExpiresAt
		record.RefreshTokenExpiresAt = &refreshExpiry
	}
	return record
}

func (r *credentialRecord) toDomain() core.StoredCredential {
	if r == nil {
		return core.StoredCredential{}
	}
	credential := core.StoredCredential{
		ConnectionID:     r.ConnectionID,
		EncryptedPayload: append([]byte(nil), r.EncryptedPayload...),
		PayloadFormat:    r.PayloadFormat,
		PayloadVersion:   r.PayloadVersion,
		ExpiresAt:        r.ExpiresAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.RefreshTokenExpiresAt != nil {
		refreshExpiry := *r.RefreshTokenExpiresAt
		credential.RefreshTokenExpiresAt = &refreshExpiry
	}
	return credential
}

func newSyncJobRecord(job core.SyncJob, now time.Time) *syncJobRecord {
	record := &syncJobRecord{
		ID:            job.ID,
		ConnectionID:  job.ConnectionID,
		Provider:      string(job.Provider),
		DataType:      string(job.DataType),
		Status:        string(job.Status),
		Trigger:       job.Trigger,
		RecordsSynced: job.RecordsSynced,
		Error:         job.Error,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     now,
	}
	if job.StartedAt != nil {
		started := *job.StartedAt
		record.StartedAt = &started
	}
	if job.FinishedAt != nil {
		finished := *job.FinishedAt
		record.FinishedAt = &finished
	}
	return record
}

func (r *syncJobRecord) toDomain() core.SyncJob {
	if r == nil {
		return core.SyncJob{}
	}
	job := core.SyncJob{
		ID:            r.ID,
		ConnectionID:  r.ConnectionID,
		Provider:      core.ProviderKind(r.Provider),
		DataType:      core.DataType(r.DataType),
		Status:        core.SyncJobStatus(r.Status),
		Trigger:       r.Trigger,
		RecordsSynced: r.RecordsSynced,
		Error:         r.Error,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.StartedAt != nil {
		started := *r.StartedAt
		job.StartedAt = &started
	}
	if r.FinishedAt != nil {
		finished := *r.FinishedAt
		job.FinishedAt = &finished
	}
	return job
}

func newNormalizedAccountRecord(account core.NormalizedAccount) *normalizedAccountRecord {
	return &normalizedAccountRecord{
		ConnectionID:      account.ConnectionID,
		ExternalAccountID: account.ExternalAccountID,
		ExternalName:      account.ExternalName,
		ExternalType:      account.ExternalType,
		Category:          string(account.Category),
		StandardType:      string(account.Type),
		Confidence:        account.Confidence,
		Source:            string(account.Source),
		UpdatedAt:         account.UpdatedAt,
	}
}

func (r *normalizedAccountRecord) toDomain() core.NormalizedAccount {
	if r == nil {
		return core.NormalizedAccount{}
	}
	return core.NormalizedAccount{
		ConnectionID:      r.ConnectionID,
		ExternalAccountID: r.ExternalAccountID,
		ExternalName:      r.ExternalName,
		ExternalType:      r.ExternalType,
		Category:          core.StandardCategory(r.Category),
		Type:              core.StandardType(r.StandardType),
		Confidence:        r.Confidence,
		Source:            core.MappingSource(r.Source),
		UpdatedAt:         r.UpdatedAt,
	}
}

func (r *mappingOverrideRecord) toDomain() core.MappingOverride {
	if r == nil {
		return core.MappingOverride{}
	}
	return core.MappingOverride{
		ConnectionID:      r.ConnectionID,
		ExternalAccountID: r.ExternalAccountID,
		Category:          core.StandardCategory(r.Category),
		Type:              core.StandardType(r.StandardType),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func newStatementDocumentRecord(doc core.ProviderDocument, connectionID string, now time.Time) *statementDocumentRecord {
	lines := make([]statementLineEntry, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		lines = append(lines, statementLineEntry{
			Label:   line.Label,
			Amount:  line.Amount,
			Section: line.Section,
		})
	}
	record := &statementDocumentRecord{
		ConnectionID: connectionID,
		Provider:     string(doc.Provider),
		DataType:     string(doc.DataType),
		Lines:        lines,
		PageCount:    doc.PageCount,
		RawRecords:   doc.RawRecords,
		FetchedAt:    doc.FetchedAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if doc.PeriodEnd != nil {
		periodEnd := *doc.PeriodEnd
		record.PeriodEnd = &periodEnd
	}
	return record
}

func (r *statementDocumentRecord) toDomain() core.ProviderDocument {
	if r == nil {
		return core.ProviderDocument{}
	}
	lines := make([]core.StatementLine, 0, len(r.Lines))
	for _, line := range r.Lines {
		lines = append(lines, core.StatementLine{
			Label:   line.Label,
			Amount:  line.Amount,
			Section: line.Section,
		})
	}
	doc := core.ProviderDocument{
		Provider:   core.ProviderKind(r.Provider),
		DataType:   core.DataType(r.DataType),
		Lines:      lines,
		PageCount:  r.PageCount,
		RawRecords: r.RawRecords,
		FetchedAt:  r.FetchedAt,
	}
	if r.PeriodEnd != nil {
		periodEnd := *r.PeriodEnd
		doc.PeriodEnd = &periodEnd
	}
	return doc
}

func (r *rateLimitStateRecord) toDomain() ratelimit.State {
	if r == nil {
		return ratelimit.State{}
	}
	state := ratelimit.State{
		Key: core.RateLimitKey{
			Provider: core.ProviderKind(r.Provider),
			TenantID: r.TenantID,
		},
		Limit:      r.Limit,
		Remaining:  r.Remaining,
		LastStatus: r.LastStatus,
		Attempts:   r.Attempts,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.ResetAt != nil {
		resetAt := *r.ResetAt
		state.ResetAt = &resetAt
	}
	if r.RetryAfterSecs != nil && *r.RetryAfterSecs > 0 {
		retryAfter := time.Duration(*r.RetryAfterSecs) * time.Second
		state.RetryAfter = &retryAfter
	}
	if r.ThrottledUntil != nil {
		until := *r.ThrottledUntil
		state.ThrottledUntil = &until
	}
	return state
}
