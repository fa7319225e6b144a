package xero

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/auditgrid/ledgersync/core"
	"github.com/auditgrid/ledgersync/providers/devkit"
)

func testSession() core.Session {
	return core.Session{
		ConnectionID:      "conn_1",
		TenantID:          "tenant_1",
		Provider:          core.ProviderXero,
		AccessToken:       "at_1",
		TokenType:         "Bearer",
		ExternalCompanyID: "org_42",
	}
}

func TestProvider_ExchangeCodeResolvesTenant(t *testing.T) {
	httpClient := devkit.NewFakeHTTPClient(
		devkit.HTTPScript{
			StatusCode: http.StatusOK,
			Body:       `{"access_token": "at_1", "refresh_token": "rt_1", "token_type": "Bearer", "expires_in": 1800}`,
		},
		devkit.HTTPScript{
			StatusCode: http.StatusOK,
			Body: `[
				{"tenantId": "practice_1", "tenantType": "PRACTICEMANAGER", "tenantName": "Advisors"},
				{"tenantId": "org_42", "tenantType": "ORGANISATION", "tenantName": "Demo Company"}
			]`,
		},
	)
	provider, err := New(Config{
		ClientID:   "client-123",
		HTTPClient: httpClient,
		Now:        func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	tokens, err := provider.ExchangeCode(context.Background(), "code_1", "https://app.example/callback")
	if err != nil {
		t.Fatalf("exchange code: %v", err)
	}
	if tokens.ExternalCompanyID != "org_42" {
		t.Fatalf("expected organisation tenant id, got %q", tokens.ExternalCompanyID)
	}
	if tokens.AccessToken != "at_1" || tokens.RefreshToken != "rt_1" {
		t.Fatalf("unexpected tokens %+v", tokens)
	}

	requests := httpClient.Requests()
	if len(requests) != 2 {
		t.Fatalf("expected token and connections requests, got %d", len(requests))
	}
	if requests[1].Header.Get("Authorization") != "Bearer at_1" {
		t.Fatalf("expected bearer token on connections request")
	}
}

func TestProvider_FetchAccountsSendsTenantHeader(t *testing.T) {
	body := `{"Accounts": [
		{"AccountID": "a1", "Code": "090", "Name": "Business Bank Account", "Type": "BANK", "Class": "ASSET", "Status": "ACTIVE", "CurrencyCode": "NZD"},
		{"AccountID": "a2", "Code": "200", "Name": "Sales", "Type": "REVENUE", "Class": "REVENUE", "Status": "ARCHIVED", "CurrencyCode": "NZD"}
	]}`
	httpClient := devkit.NewFakeHTTPClient(devkit.HTTPScript{StatusCode: http.StatusOK, Body: body})
	provider, err := New(Config{ClientID: "client-123", HTTPClient: httpClient})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	doc, err := provider.Fetch(context.Background(), core.FetchRequest{
		Session:  testSession(),
		DataType: core.DataTypeChartOfAccounts,
	})
	if err != nil {
		t.Fatalf("fetch accounts: %v", err)
	}
	if len(doc.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(doc.Accounts))
	}
	if doc.Accounts[0].ExternalID != "a1" || !doc.Accounts[0].Active {
		t.Fatalf("unexpected first account %+v", doc.Accounts[0])
	}
	if doc.Accounts[1].Active {
		t.Fatalf("archived account must not be active")
	}

	requests := httpClient.Requests()
	if requests[0].Header.Get("xero-tenant-id") != "org_42" {
		t.Fatalf("expected tenant header, got %q", requests[0].Header.Get("xero-tenant-id"))
	}
	if !strings.Contains(requests[0].URL, "/api.xro/2.0/Accounts") {
		t.Fatalf("expected accounts endpoint, got %s", requests[0].URL)
	}
}

func TestProvider_FetchBalanceSheetFlattensSections(t *testing.T) {
	body := `{"Reports": [{
		"ReportName": "BalanceSheet",
		"Rows": [
			{"RowType": "Header", "Cells": [{"Value": ""}, {"Value": "31 May 2025"}]},
			{"RowType": "Section", "Title": "Bank",
			 "Rows": [
				{"RowType": "Row", "Cells": [{"Value": "Business Bank Account"}, {"Value": "1200.00"}]},
				{"RowType": "SummaryRow", "Cells": [{"Value": "Total Bank"}, {"Value": "1200.00"}]}
			 ]},
			{"RowType": "Section", "Title": "Equity",
			 "Rows": [
				{"RowType": "Row", "Cells": [{"Value": "Retained Earnings"}, {"Value": "not-a-number"}]},
				{"RowType": "Row", "Cells": [{"Value": "Current Year Earnings"}, {"Value": "350.75"}]}
			 ]}
		]
	}]}`
	httpClient := devkit.NewFakeHTTPClient(devkit.HTTPScript{StatusCode: http.StatusOK, Body: body})
	provider, err := New(Config{ClientID: "client-123", HTTPClient: httpClient})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	periodEnd := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	doc, err := provider.Fetch(context.Background(), core.FetchRequest{
		Session:   testSession(),
		DataType:  core.DataTypeBalanceSheet,
		PeriodEnd: &periodEnd,
	})
	if err != nil {
		t.Fatalf("fetch balance sheet: %v", err)
	}
	if len(doc.Lines) != 3 {
		t.Fatalf("expected 3 parsed lines, got %d: %+v", len(doc.Lines), doc.Lines)
	}
	if doc.Lines[0].Label != "Business Bank Account" || doc.Lines[0].Section != "Bank" {
		t.Fatalf("unexpected first line %+v", doc.Lines[0])
	}
	if doc.Lines[1].Label != "Total Bank" {
		t.Fatalf("expected summary row, got %+v", doc.Lines[1])
	}
	if doc.Lines[2].Section != "Equity" || doc.Lines[2].Amount != 350.75 {
		t.Fatalf("unexpected equity line %+v", doc.Lines[2])
	}

	requests := httpClient.Requests()
	if !strings.Contains(requests[0].URL, "Reports/BalanceSheet") {
		t.Fatalf("expected balance sheet endpoint, got %s", requests[0].URL)
	}
	if !strings.Contains(requests[0].URL, "date=2025-05-31") {
		t.Fatalf("expected report date, got %s", requests[0].URL)
	}
}

func TestProvider_ResolveWebhookGroupsByTenant(t *testing.T) {
	provider, err := New(Config{ClientID: "client-123"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	payload := []byte(`{"events": [
		{"tenantId": "org_42", "eventCategory": "ACCOUNT", "eventType": "UPDATE", "resourceId": "a1"},
		{"tenantId": "org_42", "eventCategory": "INVOICE", "eventType": "CREATE", "resourceId": "i1"},
		{"tenantId": "org_42", "eventCategory": "INVOICE", "eventType": "CREATE", "resourceId": "i2"},
		{"tenantId": "org_77", "eventCategory": "CONTACT", "eventType": "UPDATE", "resourceId": "c1"}
	]}`)

	events, err := provider.ResolveWebhook(payload)
	if err != nil {
		t.Fatalf("resolve webhook: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 grouped events, got %d", len(events))
	}
	if events[0].ExternalCompanyID != "org_42" || len(events[0].DataTypes) != 2 {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	if events[1].ExternalCompanyID != "org_77" || len(events[1].DataTypes) != 1 {
		t.Fatalf("unexpected second event %+v", events[1])
	}
	if events[1].DataTypes[0] != core.DataTypeTrialBalance {
		t.Fatalf("expected contact change to invalidate statements, got %v", events[1].DataTypes)
	}
}
