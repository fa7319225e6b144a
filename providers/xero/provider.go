package xero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/auditgrid/ledgersync/core"
	"github.com/auditgrid/ledgersync/providers"
)

const (
	defaultAuthURL        = "https://login.xero.com/identity/connect/authorize"
	defaultTokenURL       = "https://identity.xero.com/connect/token"
	defaultRevokeURL      = "https://identity.xero.com/connect/revocation"
	defaultAPIBase        = "https://api.xero.com"
	defaultConnectionsURL = "https://api.xero.com/connections"

	tenantHeader    = "xero-tenant-id"
	signatureHeader = "x-xero-signature"
)

var defaultScopes = []string{
	"openid",
	"offline_access",
	"accounting.settings.read",
	"accounting.reports.read",
}

type Config struct {
	ClientID         string
	ClientSecret     string
	WebhookKey       string
	AuthURL          string
	TokenURL         string
	RevokeURL        string
	APIBaseURL       string
	ConnectionsURL   string
	Scopes           []string
	HTTPClient       providers.HTTPDoer
	RateLimit        core.RateLimitPolicy
	MaxFetchAttempts int
	Now              func() time.Time
}

// Provider adapts the Xero accounting API. Xero quirks: the tenant id is
// resolved from the connections endpoint after the code exchange, every API
// call carries the xero-tenant-id header, refresh tokens are single use and
// rotate on every refresh, and webhooks sign with the x-xero-signature
// header.
type Provider struct {
	cfg   Config
	oauth *providers.OAuth2Client
}

func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("xero: client id is required")
	}
	if strings.TrimSpace(cfg.AuthURL) == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if strings.TrimSpace(cfg.RevokeURL) == "" {
		cfg.RevokeURL = defaultRevokeURL
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = defaultAPIBase
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if strings.TrimSpace(cfg.ConnectionsURL) == "" {
		cfg.ConnectionsURL = cfg.APIBaseURL + "/connections"
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = append([]string(nil), defaultScopes...)
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	oauth, err := providers.NewOAuth2Client(providers.OAuth2Config{
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
		RevokeURL:    cfg.RevokeURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
		Now:          cfg.Now,
		HTTPClient:   cfg.HTTPClient,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, oauth: oauth}, nil
}

func (p *Provider) Kind() core.ProviderKind {
	return core.ProviderXero
}

func (p *Provider) BuildAuthorizationURL(state string, redirectURI string) string {
	if p == nil {
		return ""
	}
	return p.oauth.AuthorizationURL(state, redirectURI)
}

func (p *Provider) ExchangeCode(ctx context.Context, code string, redirectURI string) (core.TokenSet, error) {
	if p == nil {
		return core.TokenSet{}, fmt.Errorf("xero: provider is nil")
	}
	tokens, err := p.oauth.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return core.TokenSet{}, err
	}
	tenantID, err := p.resolveTenantID(ctx, tokens.AccessToken)
	if err != nil {
		return core.TokenSet{}, err
	}
	tokens.ExternalCompanyID = tenantID
	return tokens, nil
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (core.TokenSet, error) {
	if p == nil {
		return core.TokenSet{}, fmt.Errorf("xero: provider is nil")
	}
	return p.oauth.RefreshToken(ctx, refreshToken)
}

func (p *Provider) RevokeToken(ctx context.Context, refreshToken string) error {
	if p == nil {
		return fmt.Errorf("xero: provider is nil")
	}
	return p.oauth.Revoke(ctx, refreshToken)
}

type tenantConnection struct {
	TenantID   string `json:"tenantId"`
	TenantType string `json:"tenantType"`
	TenantName string `json:"tenantName"`
}

// resolveTenantID asks the connections endpoint which organisation the
// grant covers. We bind one connection per organisation; multi-org consent
// takes the first organisation tenant.
func (p *Provider) resolveTenantID(ctx context.Context, accessToken string) (string, error) {
	httpClient := p.cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.ConnectionsURL, nil)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Accept", "application/json")

	response, err := httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("xero: connections request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("xero: read connections response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("xero: connections endpoint responded %d", response.StatusCode)
	}

	var connections []tenantConnection
	if err := json.Unmarshal(body, &connections); err != nil {
		return "", fmt.Errorf("xero: decode connections response: %w", err)
	}
	for _, connection := range connections {
		if strings.EqualFold(strings.TrimSpace(connection.TenantType), "organisation") {
			return strings.TrimSpace(connection.TenantID), nil
		}
	}
	if len(connections) > 0 {
		return strings.TrimSpace(connections[0].TenantID), nil
	}
	return "", fmt.Errorf("xero: grant covers no organisation")
}

func (p *Provider) Fetch(ctx context.Context, req core.FetchRequest) (core.ProviderDocument, error) {
	if p == nil {
		return core.ProviderDocument{}, fmt.Errorf("xero: provider is nil")
	}
	tenantID := strings.TrimSpace(req.Session.ExternalCompanyID)
	if tenantID == "" {
		return core.ProviderDocument{}, fmt.Errorf("xero: session is missing tenant id")
	}

	caller := &providers.APICaller{
		HTTPClient:  p.cfg.HTTPClient,
		RateLimit:   p.cfg.RateLimit,
		RateKey:     core.RateLimitKey{Provider: core.ProviderXero, TenantID: req.Session.TenantID},
		MaxAttempts: p.cfg.MaxFetchAttempts,
	}

	switch req.DataType {
	case core.DataTypeChartOfAccounts:
		return p.fetchAccounts(ctx, caller, req, tenantID)
	case core.DataTypeTrialBalance:
		return p.fetchReport(ctx, caller, req, tenantID, "TrialBalance")
	case core.DataTypeBalanceSheet:
		return p.fetchReport(ctx, caller, req, tenantID, "BalanceSheet")
	case core.DataTypeIncomeStatement:
		return p.fetchReport(ctx, caller, req, tenantID, "ProfitAndLoss")
	default:
		return core.ProviderDocument{}, fmt.Errorf("xero: unsupported data type %q", req.DataType)
	}
}

type accountsResponse struct {
	Accounts []struct {
		AccountID    string `json:"AccountID"`
		Code         string `json:"Code"`
		Name         string `json:"Name"`
		Type         string `json:"Type"`
		Class        string `json:"Class"`
		Status       string `json:"Status"`
		CurrencyCode string `json:"CurrencyCode"`
	} `json:"Accounts"`
}

func (p *Provider) fetchAccounts(ctx context.Context, caller *providers.APICaller, req core.FetchRequest, tenantID string) (core.ProviderDocument, error) {
	endpoint := p.cfg.APIBaseURL + "/api.xro/2.0/Accounts"
	response, err := caller.Call(ctx, func(ctx context.Context) (*http.Request, error) {
		return p.apiRequest(ctx, req.Session, tenantID, endpoint)
	})
	if err != nil {
		return core.ProviderDocument{}, err
	}

	var parsed accountsResponse
	if err := json.Unmarshal(response.Body, &parsed); err != nil {
		return core.ProviderDocument{}, fmt.Errorf("xero: decode accounts response: %w", err)
	}

	doc := core.ProviderDocument{
		Provider:  core.ProviderXero,
		DataType:  core.DataTypeChartOfAccounts,
		FetchedAt: p.cfg.Now().UTC(),
		PageCount: 1,
	}
	for _, account := range parsed.Accounts {
		doc.Accounts = append(doc.Accounts, core.ProviderAccount{
			ExternalID:     strings.TrimSpace(account.AccountID),
			Name:           strings.TrimSpace(account.Name),
			AccountType:    strings.TrimSpace(account.Type),
			AccountSubType: strings.TrimSpace(account.Class),
			Active:         strings.EqualFold(strings.TrimSpace(account.Status), "ACTIVE"),
			Currency:       strings.TrimSpace(account.CurrencyCode),
		})
	}
	doc.RawRecords = len(doc.Accounts)
	return doc, nil
}

type reportsResponse struct {
	Reports []struct {
		ReportName string `json:"ReportName"`
		Rows       []struct {
			RowType string `json:"RowType"`
			Title   string `json:"Title"`
			Cells   []struct {
				Value string `json:"Value"`
			} `json:"Cells"`
			Rows []struct {
				RowType string `json:"RowType"`
				Cells   []struct {
					Value string `json:"Value"`
				} `json:"Cells"`
			} `json:"Rows"`
		} `json:"Rows"`
	} `json:"Reports"`
}

func (p *Provider) fetchReport(ctx context.Context, caller *providers.APICaller, req core.FetchRequest, tenantID string, report string) (core.ProviderDocument, error) {
	endpoint := p.cfg.APIBaseURL + "/api.xro/2.0/Reports/" + report
	if req.PeriodEnd != nil {
		endpoint += "?" + url.Values{"date": []string{req.PeriodEnd.UTC().Format("2006-01-02")}}.Encode()
	}
	response, err := caller.Call(ctx, func(ctx context.Context) (*http.Request, error) {
		return p.apiRequest(ctx, req.Session, tenantID, endpoint)
	})
	if err != nil {
		return core.ProviderDocument{}, err
	}

	var parsed reportsResponse
	if err := json.Unmarshal(response.Body, &parsed); err != nil {
		return core.ProviderDocument{}, fmt.Errorf("xero: decode %s report: %w", report, err)
	}

	doc := core.ProviderDocument{
		Provider:  core.ProviderXero,
		DataType:  req.DataType,
		PeriodEnd: req.PeriodEnd,
		FetchedAt: p.cfg.Now().UTC(),
		PageCount: 1,
	}
	for _, reportBody := range parsed.Reports {
		for _, section := range reportBody.Rows {
			sectionTitle := strings.TrimSpace(section.Title)
			for _, row := range section.Rows {
				if !strings.EqualFold(strings.TrimSpace(row.RowType), "Row") && !strings.EqualFold(strings.TrimSpace(row.RowType), "SummaryRow") {
					continue
				}
				if len(row.Cells) < 2 {
					continue
				}
				label := strings.TrimSpace(row.Cells[0].Value)
				if label == "" {
					continue
				}
				amount, err := strconv.ParseFloat(strings.TrimSpace(row.Cells[len(row.Cells)-1].Value), 64)
				if err != nil {
					continue
				}
				doc.Lines = append(doc.Lines, core.StatementLine{
					Label:   label,
					Amount:  amount,
					Section: sectionTitle,
				})
			}
		}
	}
	doc.RawRecords = len(doc.Lines)
	return doc, nil
}

func (p *Provider) apiRequest(ctx context.Context, session core.Session, tenantID string, endpoint string) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+session.AccessToken)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(tenantHeader, tenantID)
	return httpReq, nil
}

// VerifyWebhook checks the x-xero-signature header: base64 HMAC-SHA256 of
// the raw payload keyed with the webhook signing key.
func (p *Provider) VerifyWebhook(payload []byte, signatureHeader string) error {
	if p == nil {
		return fmt.Errorf("xero: provider is nil")
	}
	return providers.VerifyHMACSignature(p.cfg.WebhookKey, payload, signatureHeader, "", "base64")
}

type webhookPayload struct {
	Events []struct {
		TenantID      string `json:"tenantId"`
		EventCategory string `json:"eventCategory"`
		EventType     string `json:"eventType"`
		ResourceID    string `json:"resourceId"`
	} `json:"events"`
}

func (p *Provider) ResolveWebhook(payload []byte) ([]core.WebhookEvent, error) {
	if p == nil {
		return nil, fmt.Errorf("xero: provider is nil")
	}
	var parsed webhookPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("xero: decode webhook payload: %w", err)
	}

	byTenant := map[string]*core.WebhookEvent{}
	var order []string
	for _, event := range parsed.Events {
		tenantID := strings.TrimSpace(event.TenantID)
		if tenantID == "" {
			continue
		}
		item, ok := byTenant[tenantID]
		if !ok {
			item = &core.WebhookEvent{ExternalCompanyID: tenantID}
			byTenant[tenantID] = item
			order = append(order, tenantID)
		}
		if dataType, ok := categoryDataType(event.EventCategory); ok {
			if !containsDataType(item.DataTypes, dataType) {
				item.DataTypes = append(item.DataTypes, dataType)
			}
		}
	}

	events := make([]core.WebhookEvent, 0, len(order))
	for _, tenantID := range order {
		events = append(events, *byTenant[tenantID])
	}
	return events, nil
}

func categoryDataType(category string) (core.DataType, bool) {
	switch strings.ToUpper(strings.TrimSpace(category)) {
	case "ACCOUNT":
		return core.DataTypeChartOfAccounts, true
	case "INVOICE", "CONTACT", "PAYMENT":
		return core.DataTypeTrialBalance, true
	default:
		return "", false
	}
}

func containsDataType(items []core.DataType, target core.DataType) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

var (
	_ core.Provider          = (*Provider)(nil)
	_ core.RevocableProvider = (*Provider)(nil)
)
