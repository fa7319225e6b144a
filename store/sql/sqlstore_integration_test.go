package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/auditgrid/ledgersync/core"
	ledgermigrations "github.com/auditgrid/ledgersync/migrations"
	"github.com/auditgrid/ledgersync/ratelimit"
	sqlstore "github.com/auditgrid/ledgersync/store/sql"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "ledgersync-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:ledgersync-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = ledgermigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != ledgermigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, ledgermigrations.WithValidationTargets(ledgermigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func newFactory(t *testing.T) (*sqlstore.RepositoryFactory, func()) {
	t.Helper()
	client, cleanup := newSQLiteClient(t)
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		cleanup()
		t.Fatalf("new repository factory: %v", err)
	}
	return factory, cleanup
}

func seedConnection(t *testing.T, store core.ConnectionStore, externalCompanyID string) core.Connection {
	t.Helper()
	connection, err := store.Create(context.Background(), core.CreateConnectionInput{
		TenantID:          "tenant_1",
		Provider:          core.ProviderQuickBooks,
		ExternalCompanyID: externalCompanyID,
		Status:            core.ConnectionStatusPending,
		DataTypes:         []core.DataType{core.DataTypeChartOfAccounts, core.DataTypeTrialBalance},
		SyncFrequency:     time.Hour,
	})
	if err != nil {
		t.Fatalf("create connection: %v", err)
	}
	return connection
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"ledgersync_connections",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "ledgersync_connections" {
		t.Fatalf("expected ledgersync_connections table, got %q", tableName)
	}
}

func TestConnectionStore_CreateRejectsDuplicateActiveCompany(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	store := factory.ConnectionStore()
	seedConnection(t, store, "realm_42")

	_, err := store.Create(ctx, core.CreateConnectionInput{
		TenantID:          "tenant_1",
		Provider:          core.ProviderQuickBooks,
		ExternalCompanyID: "realm_42",
		Status:            core.ConnectionStatusPending,
	})
	if !errors.Is(err, core.ErrDuplicateConnection) {
		t.Fatalf("expected duplicate connection error, got %v", err)
	}

	// A second pending connection with no company yet is fine; the company
	// id only arrives on the OAuth callback.
	if _, err := store.Create(ctx, core.CreateConnectionInput{
		TenantID: "tenant_1",
		Provider: core.ProviderQuickBooks,
		Status:   core.ConnectionStatusPending,
	}); err != nil {
		t.Fatalf("create pending connection without company: %v", err)
	}
}

func TestConnectionStore_StatusTransitionsAndLookups(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	store := factory.ConnectionStore()
	connection := seedConnection(t, store, "realm_42")

	if err := store.UpdateStatus(ctx, connection.ID, core.ConnectionStatusConnected, ""); err != nil {
		t.Fatalf("update status to connected: %v", err)
	}
	if err := store.UpdateStatus(ctx, connection.ID, core.ConnectionStatusPending, ""); !errors.Is(err, core.ErrInvalidConnectionStatusTransition) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}

	found, ok, err := store.FindActive(ctx, "tenant_1", core.ProviderQuickBooks, "realm_42")
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if !ok || found.ID != connection.ID {
		t.Fatalf("expected to find active connection %s, got ok=%v id=%s", connection.ID, ok, found.ID)
	}
	if found.Status != core.ConnectionStatusConnected {
		t.Fatalf("expected connected status, got %s", found.Status)
	}

	byCompany, ok, err := store.(*sqlstore.ConnectionStore).FindByExternalCompany(ctx, core.ProviderQuickBooks, "realm_42")
	if err != nil {
		t.Fatalf("find by external company: %v", err)
	}
	if !ok || byCompany.ID != connection.ID {
		t.Fatalf("expected company lookup to resolve connection %s", connection.ID)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrConnectionNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestConnectionStore_ListDueHonorsFrequencyWindow(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	store := factory.ConnectionStore()
	connection := seedConnection(t, store, "realm_42")
	if err := store.UpdateStatus(ctx, connection.ID, core.ConnectionStatusConnected, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}

	now := time.Now().UTC()
	due, err := store.ListDue(ctx, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 || due[0].ID != connection.ID {
		t.Fatalf("expected never-synced connected connection to be due, got %d", len(due))
	}

	if err := store.TouchLastSynced(ctx, connection.ID, now); err != nil {
		t.Fatalf("touch last synced: %v", err)
	}
	due, err = store.ListDue(ctx, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("list due after touch: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected freshly-synced connection to be excluded, got %d", len(due))
	}

	due, err = store.ListDue(ctx, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("list due after window: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected connection to be due after its window elapsed, got %d", len(due))
	}
}

func TestCredentialStore_SaveReplacesPriorRow(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	connection := seedConnection(t, factory.ConnectionStore(), "realm_42")
	store := factory.CredentialStore()

	expiry := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	if _, err := store.Save(ctx, core.SaveCredentialInput{
		ConnectionID:     connection.ID,
		EncryptedPayload: []byte("cipher-v1"),
		PayloadFormat:    "aes-gcm-json",
		PayloadVersion:   1,
		ExpiresAt:        expiry,
	}); err != nil {
		t.Fatalf("save first credential: %v", err)
	}

	rotatedExpiry := expiry.Add(time.Hour)
	saved, err := store.Save(ctx, core.SaveCredentialInput{
		ConnectionID:     connection.ID,
		EncryptedPayload: []byte("cipher-v2"),
		PayloadFormat:    "aes-gcm-json",
		PayloadVersion:   1,
		ExpiresAt:        rotatedExpiry,
	})
	if err != nil {
		t.Fatalf("save rotated credential: %v", err)
	}
	if string(saved.EncryptedPayload) != "cipher-v2" {
		t.Fatalf("expected rotated payload, got %q", saved.EncryptedPayload)
	}

	stored, err := store.Get(ctx, connection.ID)
	if err != nil {
		t.Fatalf("get credential: %v", err)
	}
	if string(stored.EncryptedPayload) != "cipher-v2" {
		t.Fatalf("expected single replaced row, got payload %q", stored.EncryptedPayload)
	}
	if !stored.ExpiresAt.Equal(rotatedExpiry) {
		t.Fatalf("expected rotated expiry %v, got %v", rotatedExpiry, stored.ExpiresAt)
	}

	if err := store.Delete(ctx, connection.ID); err != nil {
		t.Fatalf("delete credential: %v", err)
	}
	if _, err := store.Get(ctx, connection.ID); err == nil {
		t.Fatalf("expected credential lookup to fail after delete")
	}
}

func TestSyncJobStore_InFlightTrackingAndHistory(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	connection := seedConnection(t, factory.ConnectionStore(), "realm_42")
	store := factory.SyncJobStore()

	job, err := store.Create(ctx, core.CreateSyncJobInput{
		ConnectionID: connection.ID,
		Provider:     core.ProviderQuickBooks,
		DataType:     core.DataTypeChartOfAccounts,
		Trigger:      "manual",
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if job.Status != core.SyncJobStatusQueued {
		t.Fatalf("expected queued status, got %s", job.Status)
	}

	inFlight, ok, err := store.FindInFlight(ctx, connection.ID, core.DataTypeChartOfAccounts)
	if err != nil {
		t.Fatalf("find in flight: %v", err)
	}
	if !ok || inFlight.ID != job.ID {
		t.Fatalf("expected queued job to count as in flight")
	}

	now := time.Now().UTC()
	if err := job.TransitionTo(core.SyncJobStatusRunning, now); err != nil {
		t.Fatalf("transition to running: %v", err)
	}
	if err := job.TransitionTo(core.SyncJobStatusCompleted, now.Add(time.Second)); err != nil {
		t.Fatalf("transition to completed: %v", err)
	}
	job.RecordsSynced = 37
	if _, err := store.Update(ctx, job); err != nil {
		t.Fatalf("update job: %v", err)
	}

	if _, ok, err := store.FindInFlight(ctx, connection.ID, core.DataTypeChartOfAccounts); err != nil || ok {
		t.Fatalf("expected no in-flight job after completion, ok=%v err=%v", ok, err)
	}

	if _, err := store.Create(ctx, core.CreateSyncJobInput{
		ConnectionID: connection.ID,
		Provider:     core.ProviderQuickBooks,
		DataType:     core.DataTypeTrialBalance,
		Trigger:      "scheduled",
	}); err != nil {
		t.Fatalf("create second job: %v", err)
	}

	history, err := store.ListByConnection(ctx, connection.ID, 10)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if fetched.RecordsSynced != 37 {
		t.Fatalf("expected 37 records synced, got %d", fetched.RecordsSynced)
	}
	if fetched.StartedAt == nil || fetched.FinishedAt == nil {
		t.Fatalf("expected started and finished timestamps to persist")
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrSyncJobNotFound) {
		t.Fatalf("expected job not found error, got %v", err)
	}
}

func TestNormalizedAccountStore_SnapshotReplaceAndReviewQueue(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	connection := seedConnection(t, factory.ConnectionStore(), "realm_42")
	store := factory.NormalizedAccountStore()

	first := []core.NormalizedAccount{
		{
			ExternalAccountID: "acc_1",
			ExternalName:      "Checking",
			ExternalType:      "Bank",
			Category:          core.CategoryAssets,
			Type:              core.TypeCash,
			Confidence:        0.9,
			Source:            core.MappingSourceAutomatic,
		},
		{
			ExternalAccountID: "acc_2",
			ExternalName:      "Misc",
			ExternalType:      "Other",
			Category:          core.CategoryAssets,
			Type:              core.TypeOtherAssets,
			Confidence:        0.35,
			Source:            core.MappingSourceAutomatic,
		},
	}
	if err := store.ReplaceSnapshot(ctx, connection.ID, first); err != nil {
		t.Fatalf("replace snapshot: %v", err)
	}

	second := []core.NormalizedAccount{
		{
			ExternalAccountID: "acc_1",
			ExternalName:      "Checking",
			ExternalType:      "Bank",
			Category:          core.CategoryAssets,
			Type:              core.TypeCash,
			Confidence:        0.9,
			Source:            core.MappingSourceAutomatic,
		},
		{
			ExternalAccountID: "acc_3",
			ExternalName:      "Trade Debtors",
			ExternalType:      "CURRENT",
			Category:          core.CategoryAssets,
			Type:              core.TypeAccountsReceivable,
			Confidence:        0.7,
			Source:            core.MappingSourceAutomatic,
		},
	}
	if err := store.ReplaceSnapshot(ctx, connection.ID, second); err != nil {
		t.Fatalf("replace snapshot again: %v", err)
	}

	accounts, err := store.ListByConnection(ctx, connection.ID)
	if err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected snapshot replace to drop stale rows, got %d", len(accounts))
	}
	for _, account := range accounts {
		if account.ExternalAccountID == "acc_2" {
			t.Fatalf("expected acc_2 to be gone after replace")
		}
	}

	review, err := store.ListBelowConfidence(ctx, connection.ID, 0.8)
	if err != nil {
		t.Fatalf("list below confidence: %v", err)
	}
	if len(review) != 1 || review[0].ExternalAccountID != "acc_3" {
		t.Fatalf("expected only acc_3 in review queue, got %d", len(review))
	}
}

func TestMappingOverrideStore_UpsertPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	connection := seedConnection(t, factory.ConnectionStore(), "realm_42")
	store := factory.MappingOverrideStore()

	created, err := store.Upsert(ctx, core.MappingOverride{
		ConnectionID:      connection.ID,
		ExternalAccountID: "acc_1",
		Category:          core.CategoryAssets,
		Type:              core.TypeInventory,
	})
	if err != nil {
		t.Fatalf("upsert override: %v", err)
	}

	updated, err := store.Upsert(ctx, core.MappingOverride{
		ConnectionID:      connection.ID,
		ExternalAccountID: "acc_1",
		Category:          core.CategoryAssets,
		Type:              core.TypePrepaidExpenses,
	})
	if err != nil {
		t.Fatalf("upsert override again: %v", err)
	}
	if updated.Type != core.TypePrepaidExpenses {
		t.Fatalf("expected updated type, got %s", updated.Type)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("expected upsert to preserve created_at")
	}

	all, err := store.ListByConnection(ctx, connection.ID)
	if err != nil {
		t.Fatalf("list overrides: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected a single override row, got %d", len(all))
	}

	if err := store.Delete(ctx, connection.ID, "acc_1"); err != nil {
		t.Fatalf("delete override: %v", err)
	}
	if _, ok, err := store.Get(ctx, connection.ID, "acc_1"); err != nil || ok {
		t.Fatalf("expected override to be gone, ok=%v err=%v", ok, err)
	}
}

func TestStatementStore_LastWriteWinsPerDataType(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	connection := seedConnection(t, factory.ConnectionStore(), "realm_42")
	store := factory.StatementStore()

	fetchedAt := time.Now().UTC().Truncate(time.Second)
	periodEnd := fetchedAt.Add(-24 * time.Hour)
	first := core.ProviderDocument{
		Provider:  core.ProviderQuickBooks,
		DataType:  core.DataTypeTrialBalance,
		PeriodEnd: &periodEnd,
		Lines: []core.StatementLine{
			{Label: "Checking", Amount: 1200.50, Section: "Assets"},
		},
		FetchedAt:  fetchedAt,
		PageCount:  1,
		RawRecords: 1,
	}
	if err := store.ReplaceDocument(ctx, first, connection.ID); err != nil {
		t.Fatalf("replace document: %v", err)
	}

	second := first
	second.Lines = []core.StatementLine{
		{Label: "Checking", Amount: 1400.00, Section: "Assets"},
		{Label: "Savings", Amount: 300.25, Section: "Assets"},
	}
	second.RawRecords = 2
	if err := store.ReplaceDocument(ctx, second, connection.ID); err != nil {
		t.Fatalf("replace document again: %v", err)
	}

	doc, err := store.GetDocument(ctx, connection.ID, core.DataTypeTrialBalance)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if len(doc.Lines) != 2 {
		t.Fatalf("expected latest document with 2 lines, got %d", len(doc.Lines))
	}
	if doc.Lines[1].Label != "Savings" || doc.Lines[1].Amount != 300.25 {
		t.Fatalf("unexpected second line: %+v", doc.Lines[1])
	}
	if doc.PeriodEnd == nil || !doc.PeriodEnd.Equal(periodEnd) {
		t.Fatalf("expected period end to round-trip")
	}

	if _, err := store.GetDocument(ctx, connection.ID, core.DataTypeBalanceSheet); err == nil {
		t.Fatalf("expected missing document error")
	}
}

func TestRateLimitStateStore_UpsertThenGetRoundTrips(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	store := factory.RateLimitStateStore()
	key := core.RateLimitKey{Provider: core.ProviderXero, TenantID: "tenant_1"}

	if _, err := store.Get(ctx, key); !errors.Is(err, ratelimit.ErrStateNotFound) {
		t.Fatalf("expected state not found, got %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	resetAt := now.Add(time.Minute)
	retryAfter := 30 * time.Second
	if err := store.Upsert(ctx, ratelimit.State{
		Key:        key,
		Limit:      60,
		Remaining:  0,
		ResetAt:    &resetAt,
		RetryAfter: &retryAfter,
		LastStatus: 429,
		Attempts:   2,
		UpdatedAt:  now,
	}); err != nil {
		t.Fatalf("upsert state: %v", err)
	}

	state, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Limit != 60 || state.Remaining != 0 || state.Attempts != 2 || state.LastStatus != 429 {
		t.Fatalf("unexpected state round trip: %+v", state)
	}
	if state.RetryAfter == nil || *state.RetryAfter != retryAfter {
		t.Fatalf("expected retry-after to round-trip, got %v", state.RetryAfter)
	}

	// Second upsert updates the same row rather than inserting a sibling.
	if err := store.Upsert(ctx, ratelimit.State{
		Key:       key,
		Limit:     60,
		Remaining: 59,
		UpdatedAt: now.Add(time.Minute),
	}); err != nil {
		t.Fatalf("upsert state again: %v", err)
	}
	state, err = store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get state after update: %v", err)
	}
	if state.Remaining != 59 || state.RetryAfter != nil {
		t.Fatalf("expected cleared throttle state, got %+v", state)
	}
}

func TestWebhookDeliveryStore_ClaimIsFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	store := factory.WebhookDeliveryStore()

	claimed, err := store.Claim(ctx, core.ProviderQuickBooks, "delivery-1")
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !claimed {
		t.Fatalf("expected first claim to win")
	}

	claimed, err = store.Claim(ctx, core.ProviderQuickBooks, "delivery-1")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatalf("expected replayed delivery to be rejected")
	}

	// Same delivery id from a different provider is a distinct delivery.
	claimed, err = store.Claim(ctx, core.ProviderXero, "delivery-1")
	if err != nil {
		t.Fatalf("cross-provider claim: %v", err)
	}
	if !claimed {
		t.Fatalf("expected cross-provider claim to succeed")
	}

	purged, err := store.PurgeOlderThan(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 2 {
		t.Fatalf("expected 2 purged rows, got %d", purged)
	}

	claimed, err = store.Claim(ctx, core.ProviderQuickBooks, "delivery-1")
	if err != nil {
		t.Fatalf("claim after purge: %v", err)
	}
	if !claimed {
		t.Fatalf("expected claim to succeed after retention purge")
	}
}

func TestWebhookDeliveryStore_ClaimLeaseLifecycle(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.WebhookDeliveryStore()

	// Fail releases a pending claim so the redelivered webhook can win.
	claimed, err := store.Claim(ctx, core.ProviderQuickBooks, "delivery-a")
	if err != nil || !claimed {
		t.Fatalf("expected claim to win, got claimed=%v err=%v", claimed, err)
	}
	if err := store.Fail(ctx, core.ProviderQuickBooks, "delivery-a"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	claimed, err = store.Claim(ctx, core.ProviderQuickBooks, "delivery-a")
	if err != nil || !claimed {
		t.Fatalf("expected released claim to be claimable again, got claimed=%v err=%v", claimed, err)
	}

	// Complete seals the claim; neither Fail nor a replay gets through.
	if err := store.Complete(ctx, core.ProviderQuickBooks, "delivery-a"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := store.Fail(ctx, core.ProviderQuickBooks, "delivery-a"); err != nil {
		t.Fatalf("fail after complete: %v", err)
	}
	claimed, err = store.Claim(ctx, core.ProviderQuickBooks, "delivery-a")
	if err != nil {
		t.Fatalf("replay claim: %v", err)
	}
	if claimed {
		t.Fatalf("completed delivery must stay deduped")
	}

	// A claim abandoned past the lease window is reclaimed on the next
	// delivery attempt.
	claimed, err = store.Claim(ctx, core.ProviderQuickBooks, "delivery-b")
	if err != nil || !claimed {
		t.Fatalf("expected claim to win, got claimed=%v err=%v", claimed, err)
	}
	stale := time.Now().UTC().Add(-10 * time.Minute)
	if _, err := client.DB().ExecContext(ctx,
		"UPDATE ledgersync_webhook_deliveries SET received_at = ? WHERE delivery_id = ?",
		stale, "delivery-b"); err != nil {
		t.Fatalf("backdate claim: %v", err)
	}
	claimed, err = store.Claim(ctx, core.ProviderQuickBooks, "delivery-b")
	if err != nil || !claimed {
		t.Fatalf("expected abandoned claim to be reclaimed, got claimed=%v err=%v", claimed, err)
	}
}
