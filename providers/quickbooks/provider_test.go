package quickbooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
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
		Provider:          core.ProviderQuickBooks,
		AccessToken:       "at_1",
		TokenType:         "Bearer",
		ExternalCompanyID: "realm_42",
	}
}

func accountPage(start int, count int) string {
	items := make([]string, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, fmt.Sprintf(`{
			"Id": "acct_%d",
			"Name": "Account %d",
			"AccountType": "Bank",
			"AccountSubType": "Checking",
			"Active": true,
			"CurrentBalance": 100.5,
			"CurrencyRef": {"value": "USD"}
		}`, start+i, start+i))
	}
	return fmt.Sprintf(`{"QueryResponse": {"Account": [%s], "startPosition": %d, "maxResults": %d}}`,
		strings.Join(items, ","), start, count)
}

func TestProvider_FetchAccountsPaginates(t *testing.T) {
	httpClient := devkit.NewFakeHTTPClient(
		devkit.HTTPScript{StatusCode: http.StatusOK, Body: accountPage(1, 2)},
		devkit.HTTPScript{StatusCode: http.StatusOK, Body: accountPage(3, 1)},
	)
	provider, err := New(Config{
		ClientID:   "client-123",
		PageSize:   2,
		HTTPClient: httpClient,
		Now:        func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
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
	if len(doc.Accounts) != 3 {
		t.Fatalf("expected 3 accounts across pages, got %d", len(doc.Accounts))
	}
	if doc.PageCount != 2 {
		t.Fatalf("expected 2 pages, got %d", doc.PageCount)
	}
	if doc.Accounts[0].ExternalID != "acct_1" || doc.Accounts[0].AccountSubType != "Checking" {
		t.Fatalf("unexpected first account %+v", doc.Accounts[0])
	}

	requests := httpClient.Requests()
	if len(requests) != 2 {
		t.Fatalf("expected 2 query requests, got %d", len(requests))
	}
	if !strings.Contains(requests[0].URL, "realm_42") {
		t.Fatalf("expected realm in query url, got %s", requests[0].URL)
	}
	if !strings.Contains(requests[1].URL, "startposition+3") {
		t.Fatalf("expected second page offset, got %s", requests[1].URL)
	}
	if requests[0].Header.Get("Authorization") != "Bearer at_1" {
		t.Fatalf("expected bearer token on request")
	}
}

func TestProvider_FetchTrialBalanceFlattensRows(t *testing.T) {
	body := `{
		"Header": {"ReportName": "TrialBalance", "EndPeriod": "2025-05-31"},
		"Rows": {"Row": [
			{"Header": {"ColData": [{"value": "Assets"}]},
			 "Rows": {"Row": [
				{"type": "Data", "ColData": [{"value": "Checking"}, {"value": "1200.00"}, {"value": ""}]},
				{"type": "Data", "ColData": [{"value": "Savings"}, {"value": ""}, {"value": "300.25"}]}
			 ]},
			 "Summary": {"ColData": [{"value": "Total Assets"}, {"value": "1500.25"}]}},
			{"type": "Data", "ColData": [{"value": "Opening Balance Equity"}, {"value": "1500.25"}]}
		]}
	}`
	httpClient := devkit.NewFakeHTTPClient(devkit.HTTPScript{StatusCode: http.StatusOK, Body: body})
	provider, err := New(Config{ClientID: "client-123", HTTPClient: httpClient})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	periodEnd := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	doc, err := provider.Fetch(context.Background(), core.FetchRequest{
		Session:   testSession(),
		DataType:  core.DataTypeTrialBalance,
		PeriodEnd: &periodEnd,
	})
	if err != nil {
		t.Fatalf("fetch trial balance: %v", err)
	}
	if len(doc.Lines) != 3 {
		t.Fatalf("expected 3 statement lines, got %d: %+v", len(doc.Lines), doc.Lines)
	}
	if doc.Lines[0].Label != "Savings" || doc.Lines[0].Amount != 300.25 || doc.Lines[0].Section != "Assets" {
		t.Fatalf("unexpected nested line %+v", doc.Lines[0])
	}
	if doc.Lines[1].Label != "Total Assets" {
		t.Fatalf("expected section summary line, got %+v", doc.Lines[1])
	}
	if doc.Lines[2].Label != "Opening Balance Equity" || doc.Lines[2].Section != "" {
		t.Fatalf("unexpected top-level line %+v", doc.Lines[2])
	}

	requests := httpClient.Requests()
	if !strings.Contains(requests[0].URL, "reports/TrialBalance") {
		t.Fatalf("expected trial balance endpoint, got %s", requests[0].URL)
	}
	if !strings.Contains(requests[0].URL, "end_date=2025-05-31") {
		t.Fatalf("expected period end date, got %s", requests[0].URL)
	}
}

func TestProvider_FetchRequiresRealm(t *testing.T) {
	provider, err := New(Config{ClientID: "client-123"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	session := testSession()
	session.ExternalCompanyID = ""
	_, err = provider.Fetch(context.Background(), core.FetchRequest{
		Session:  session,
		DataType: core.DataTypeChartOfAccounts,
	})
	if err == nil {
		t.Fatalf("expected missing realm error")
	}
}

func TestProvider_VerifyWebhook(t *testing.T) {
	provider, err := New(Config{ClientID: "client-123", WebhookVerifierToken: "verifier-token"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	payload := []byte(`{"eventNotifications": []}`)
	mac := hmac.New(sha256.New, []byte("verifier-token"))
	mac.Write(payload)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if err := provider.VerifyWebhook(payload, signature); err != nil {
		t.Fatalf("verify webhook: %v", err)
	}
	if err := provider.VerifyWebhook([]byte(`{"tampered": true}`), signature); err == nil {
		t.Fatalf("expected tampered payload rejection")
	}
}

func TestProvider_ResolveWebhook(t *testing.T) {
	provider, err := New(Config{ClientID: "client-123"})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	payload := []byte(`{
		"eventNotifications": [{
			"realmId": "realm_42",
			"dataChangeEvent": {"entities": [
				{"name": "Account", "id": "1", "operation": "Update"},
				{"name": "Invoice", "id": "2", "operation": "Create"},
				{"name": "Invoice", "id": "3", "operation": "Create"},
				{"name": "Preferences", "id": "4", "operation": "Update"}
			]}
		}]
	}`)

	events, err := provider.ResolveWebhook(payload)
	if err != nil {
		t.Fatalf("resolve webhook: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ExternalCompanyID != "realm_42" {
		t.Fatalf("expected realm id, got %q", events[0].ExternalCompanyID)
	}
	if len(events[0].DataTypes) != 2 {
		t.Fatalf("expected deduplicated data types, got %v", events[0].DataTypes)
	}
	if events[0].DataTypes[0] != core.DataTypeChartOfAccounts || events[0].DataTypes[1] != core.DataTypeTrialBalance {
		t.Fatalf("unexpected data types %v", events[0].DataTypes)
	}
}
