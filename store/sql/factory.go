package sqlstore

import (
	"fmt"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/auditgrid/ledgersync/core"
)

type RepositoryFactory struct {
	db *bun.DB

	connectionStore        *ConnectionStore
	credentialStore        *CredentialStore
	syncJobStore           *SyncJobStore
	normalizedAccountStore *NormalizedAccountStore
	mappingOverrideStore   *MappingOverrideStore
	statementStore         *StatementStore
	rateLimitStateStore    *RateLimitStateStore
	webhookDeliveryStore   *WebhookDeliveryStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.connectionStore != nil && f.credentialStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) ConnectionStore() core.ConnectionStore {
	if f == nil {
		return nil
	}
	return f.connectionStore
}

func (f *RepositoryFactory) CredentialStore() core.CredentialStore {
	if f == nil {
		return nil
	}
	return f.credentialStore
}

func (f *RepositoryFactory) SyncJobStore() core.SyncJobStore {
	if f == nil {
		return nil
	}
	return f.syncJobStore
}

func (f *RepositoryFactory) NormalizedAccountStore() core.NormalizedAccountStore {
	if f == nil {
		return nil
	}
	return f.normalizedAccountStore
}

func (f *RepositoryFactory) MappingOverrideStore() core.MappingOverrideStore {
	if f == nil {
		return nil
	}
	return f.mappingOverrideStore
}

func (f *RepositoryFactory) StatementStore() *StatementStore {
	if f == nil {
		return nil
	}
	return f.statementStore
}

func (f *RepositoryFactory) RateLimitStateStore() *RateLimitStateStore {
	if f == nil {
		return nil
	}
	return f.rateLimitStateStore
}

func (f *RepositoryFactory) WebhookDeliveryStore() *WebhookDeliveryStore {
	if f == nil {
		return nil
	}
	return f.webhookDeliveryStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	connectionRepo := repository.NewRepository[*connectionRecord](f.db, connectionHandlers())
	if validator, ok := connectionRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid connection repository wiring: %w", err)
		}
	}

	credentialRepo := repository.NewRepository[*credentialRecord](f.db, credentialHandlers())
	if validator, ok := credentialRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid credential repository wiring: %w", err)
		}
	}

	overrideRepo := repository.NewRepository[*mappingOverrideRecord](f.db, mappingOverrideHandlers())
	if validator, ok := overrideRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid mapping override repository wiring: %w", err)
		}
	}

	clock := func() time.Time { return time.Now().UTC() }

	f.connectionStore = &ConnectionStore{db: f.db, repo: connectionRepo, now: clock}
	f.credentialStore = &CredentialStore{db: f.db, repo: credentialRepo, now: clock}
	f.syncJobStore = &SyncJobStore{db: f.db, now: clock}
	f.normalizedAccountStore = &NormalizedAccountStore{db: f.db, now: clock}
	f.mappingOverrideStore = &MappingOverrideStore{db: f.db, repo: overrideRepo, now: clock}
	f.statementStore = &StatementStore{db: f.db, now: clock}
	f.rateLimitStateStore = &RateLimitStateStore{db: f.db}
	f.webhookDeliveryStore = &WebhookDeliveryStore{db: f.db, now: clock}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
