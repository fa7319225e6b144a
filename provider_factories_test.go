package ledgersync

import (
	"testing"

	"github.com/auditgrid/ledgersync/core"
	"github.com/auditgrid/ledgersync/providers/quickbooks"
	"github.com/auditgrid/ledgersync/providers/xero"
)

func TestBuiltInProviderFactories(t *testing.T) {
	qb, err := QuickBooksProvider(quickbooks.Config{ClientID: "client", ClientSecret: "secret", WebhookVerifierToken: "token"})
	if err != nil {
		t.Fatalf("quickbooks factory: %v", err)
	}
	if qb.Kind() != core.ProviderQuickBooks {
		t.Fatalf("expected quickbooks kind, got %q", qb.Kind())
	}

	xr, err := XeroProvider(xero.Config{ClientID: "client", ClientSecret: "secret", WebhookKey: "key"})
	if err != nil {
		t.Fatalf("xero factory: %v", err)
	}
	if xr.Kind() != core.ProviderXero {
		t.Fatalf("expected xero kind, got %q", xr.Kind())
	}

	if _, err := QuickBooksProvider(quickbooks.Config{}); err == nil {
		t.Fatalf("expected missing client id error")
	}
}

func TestRegisterProviders_SkipsUnconfigured(t *testing.T) {
	service, err := NewService(DefaultConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	err = RegisterProviders(service,
		quickbooks.Config{ClientID: "client", ClientSecret: "secret", WebhookVerifierToken: "token"},
		xero.Config{},
	)
	if err != nil {
		t.Fatalf("register providers: %v", err)
	}

	if _, ok := service.Registry().Get(core.ProviderQuickBooks); !ok {
		t.Fatalf("expected quickbooks provider to be registered")
	}
	if _, ok := service.Registry().Get(core.ProviderXero); ok {
		t.Fatalf("expected xero to be skipped without a client id")
	}
}

func TestRegisterProviders_RequiresService(t *testing.T) {
	if err := RegisterProviders(nil, quickbooks.Config{}, xero.Config{}); err == nil {
		t.Fatalf("expected nil service error")
	}
}
