package ledgersync

import (
	"fmt"

	"github.com/auditgrid/ledgersync/core"
	"github.com/auditgrid/ledgersync/providers/quickbooks"
	"github.com/auditgrid/ledgersync/providers/xero"
)

func QuickBooksProvider(cfg quickbooks.Config) (core.Provider, error) {
	return quickbooks.New(cfg)
}

func XeroProvider(cfg xero.Config) (core.Provider, error) {
	return xero.New(cfg)
}

// RegisterProviders builds and registers the configured accounting
// providers on the service registry. A provider with an empty client id is
// treated as not configured and skipped.
func RegisterProviders(service *Service, quickbooksCfg quickbooks.Config, xeroCfg xero.Config) error {
	if service == nil {
		return fmt.Errorf("ledgersync: service is required")
	}
	registry := service.Registry()
	if registry == nil {
		return fmt.Errorf("ledgersync: service registry is not configured")
	}

	if quickbooksCfg.ClientID != "" {
		provider, err := QuickBooksProvider(quickbooksCfg)
		if err != nil {
			return err
		}
		if err := registry.Register(provider); err != nil {
			return err
		}
	}
	if xeroCfg.ClientID != "" {
		provider, err := XeroProvider(xeroCfg)
		if err != nil {
			return err
		}
		if err := registry.Register(provider); err != nil {
			return err
		}
	}
	return nil
}
