package quickbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/auditgrid/ledgersync/core"
	"github.com/auditgrid/ledgersync/providers"
)

const (
	defaultAuthURL   = "https://appcenter.intuit.com/connect/oauth2"
	defaultTokenURL  = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	defaultRevokeURL = "https://developer.api.intuit.com/v2/oauth2/tokens/revoke"
	defaultAPIBase   = "https://quickbooks.api.intuit.com"

	defaultScope        = "com.intuit.quickbooks.accounting"
	defaultPageSize     = 100
	defaultMinorVersion = "65"

	signatureHeaderEncoding = "base64"
)

type Config struct {
	ClientID             string
	ClientSecret         string
	WebhookVerifierToken string
	AuthURL              string
	TokenURL             string
	RevokeURL            string
	APIBaseURL           string
	Scopes               []string
	PageSize             int
	MinorVersion         string
	HTTPClient           providers.HTTPDoer
	RateLimit            core.RateLimitPolicy
	MaxFetchAttempts     int
	Now                  func() time.Time
}

// Provider adapts the QuickBooks Online API. QuickBooks quirks live here:
// the realmId arrives on the callback URL rather than in the token response,
// access tokens last one hour against a ~100 day refresh token, and the
// chart of accounts pages through SQL-ish query offsets.
type Provider struct {
	cfg   Config
	oauth *providers.OAuth2Client
}

func New(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("quickbooks: client id is required")
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
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{defaultScope}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if strings.TrimSpace(cfg.MinorVersion) == "" {
		cfg.MinorVersion = defaultMinorVersion
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
	return core.ProviderQuickBooks
}

func (p *Provider) BuildAuthorizationURL(state string, redirectURI string) string {
	if p == nil {
		return ""
	}
	return p.oauth.AuthorizationURL(state, redirectURI)
}

func (p *Provider) ExchangeCode(ctx context.Context, code string, redirectURI string) (core.TokenSet, error) {
	if p == nil {
		return core.TokenSet{}, fmt.Errorf("quickbooks: provider is nil")
	}
	return p.oauth.ExchangeCode(ctx, code, redirectURI)
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (core.TokenSet, error) {
	if p == nil {
		return core.TokenSet{}, fmt.Errorf("quickbooks: provider is nil")
	}
	return p.oauth.RefreshToken(ctx, refreshToken)
}

func (p *Provider) RevokeToken(ctx context.Context, refreshToken string) error {
	if p == nil {
		return fmt.Errorf("quickbooks: provider is nil")
	}
	return p.oauth.Revoke(ctx, refreshToken)
}

func (p *Provider) Fetch(ctx context.Context, req core.FetchRequest) (core.ProviderDocument, error) {
	if p == nil {
		return core.ProviderDocument{}, fmt.Errorf("quickbooks: provider is nil")
	}
	realm := strings.TrimSpace(req.Session.ExternalCompanyID)
	if realm == "" {
		return core.ProviderDocument{}, fmt.Errorf("quickbooks: session is missing realm id")
	}

	caller := &providers.APICaller{
		HTTPClient:  p.cfg.HTTPClient,
		RateLimit:   p.cfg.RateLimit,
		RateKey:     core.RateLimitKey{Provider: core.ProviderQuickBooks, TenantID: req.Session.TenantID},
		MaxAttempts: p.cfg.MaxFetchAttempts,
	}

	switch req.DataType {
	case core.DataTypeChartOfAccounts:
		return p.fetchAccounts(ctx, caller, req, realm)
	case core.DataTypeTrialBalance:
		return p.fetchReport(ctx, caller, req, realm, "TrialBalance")
	case core.DataTypeBalanceSheet:
		return p.fetchReport(ctx, caller, req, realm, "BalanceSheet")
	case core.DataTypeIncomeStatement:
		return p.fetchReport(ctx, caller, req, realm, "ProfitAndLoss")
	default:
		return core.ProviderDocument{}, fmt.Errorf("quickbooks: unsupported data type %q", req.DataType)
	}
}

type accountQueryResponse struct {
	QueryResponse struct {
		Account []struct {
			ID             string  `json:"Id"`
			Name           string  `json:"Name"`
			AccountType    string  `json:"AccountType"`
			AccountSubType string  `json:"AccountSubType"`
			Active         bool    `json:"Active"`
			CurrentBalance float64 `json:"CurrentBalance"`
			CurrencyRef    struct {
				Value string `json:"value"`
			} `json:"CurrencyRef"`
		} `json:"Account"`
		StartPosition int `json:"startPosition"`
		MaxResults    int `json:"maxResults"`
	} `json:"QueryResponse"`
}

func (p *Provider) fetchAccounts(ctx context.Context, caller *providers.APICaller, req core.FetchRequest, realm string) (core.ProviderDocument, error) {
	doc := core.ProviderDocument{
		Provider:  core.ProviderQuickBooks,
		DataType:  core.DataTypeChartOfAccounts,
		FetchedAt: p.cfg.Now().UTC(),
	}

	startPosition := 1
	for {
		query := fmt.Sprintf("select * from Account startposition %d maxresults %d", startPosition, p.cfg.PageSize)
		endpoint := fmt.Sprintf("%s/v3/company/%s/query?%s", p.cfg.APIBaseURL, url.PathEscape(realm), url.Values{
			"query":        []string{query},
			"minorversion": []string{p.cfg.MinorVersion},
		}.Encode())

		response, err := caller.Call(ctx, func(ctx context.Context) (*http.Request, error) {
			return p.apiRequest(ctx, req.Session, endpoint)
		})
		if err != nil {
			return core.ProviderDocument{}, err
		}

		var parsed accountQueryResponse
		if err := json.Unmarshal(response.Body, &parsed); err != nil {
			return core.ProviderDocument{}, fmt.Errorf("quickbooks: decode account query response: %w", err)
		}

		page := parsed.QueryResponse.Account
		for _, account := range page {
			doc.Accounts = append(doc.Accounts, core.ProviderAccount{
				ExternalID:     strings.TrimSpace(account.ID),
				Name:           strings.TrimSpace(account.Name),
				AccountType:    strings.TrimSpace(account.AccountType),
				AccountSubType: strings.TrimSpace(account.AccountSubType),
				Active:         account.Active,
				Currency:       strings.TrimSpace(account.CurrencyRef.Value),
				Balance:        account.CurrentBalance,
			})
		}
		doc.PageCount++
		doc.RawRecords += len(page)

		if len(page) < p.cfg.PageSize {
			break
		}
		startPosition += p.cfg.PageSize
	}

	return doc, nil
}

type reportResponse struct {
	Header struct {
		ReportName string `json:"ReportName"`
		EndPeriod  string `json:"EndPeriod"`
	} `json:"Header"`
	Rows reportRows `json:"Rows"`
}

type reportRows struct {
	Row []reportRow `json:"Row"`
}

type reportRow struct {
	Type    string      `json:"type"`
	ColData []reportCol `json:"ColData"`
	Header  *struct {
		ColData []reportCol `json:"ColData"`
	} `json:"Header"`
	Summary *struct {
		ColData []reportCol `json:"ColData"`
	} `json:"Summary"`
	Rows *reportRows `json:"Rows"`
}

type reportCol struct {
	Value string `json:"value"`
}

func (p *Provider) fetchReport(ctx context.Context, caller *providers.APICaller, req core.FetchRequest, realm string, report string) (core.ProviderDocument, error) {
	values := url.Values{"minorversion": []string{p.cfg.MinorVersion}}
	if req.PeriodEnd != nil {
		values.Set("end_date", req.PeriodEnd.UTC().Format("2006-01-02"))
	}
	endpoint := fmt.Sprintf("%s/v3/company/%s/reports/%s?%s", p.cfg.APIBaseURL, url.PathEscape(realm), report, values.Encode())

	response, err := caller.Call(ctx, func(ctx context.Context) (*http.Request, error) {
		return p.apiRequest(ctx, req.Session, endpoint)
	})
	if err != nil {
		return core.ProviderDocument{}, err
	}

	var parsed reportResponse
	if err := json.Unmarshal(response.Body, &parsed); err != nil {
		return core.ProviderDocument{}, fmt.Errorf("quickbooks: decode %s report: %w", report, err)
	}

	doc := core.ProviderDocument{
		Provider:  core.ProviderQuickBooks,
		DataType:  req.DataType,
		PeriodEnd: req.PeriodEnd,
		FetchedAt: p.cfg.Now().UTC(),
		PageCount: 1,
	}
	doc.Lines = flattenReportRows(parsed.Rows, "")
	doc.RawRecords = len(doc.Lines)
	return doc, nil
}

func flattenReportRows(rows reportRows, section string) []core.StatementLine {
	var lines []core.StatementLine
	for _, row := range rows.Row {
		if row.Header != nil && len(row.Header.ColData) > 0 {
			nested := strings.TrimSpace(row.Header.ColData[0].Value)
			if row.Rows != nil {
				lines = append(lines, flattenReportRows(*row.Rows, nested)...)
			}
			if row.Summary != nil {
				if line, ok := reportLine(row.Summary.ColData, section); ok {
					lines = append(lines, line)
				}
			}
			continue
		}
		if line, ok := reportLine(row.ColData, section); ok {
			lines = append(lines, line)
		}
		if row.Rows != nil {
			lines = append(lines, flattenReportRows(*row.Rows, section)...)
		}
	}
	return lines
}

func reportLine(cols []reportCol, section string) (core.StatementLine, bool) {
	if len(cols) < 2 {
		return core.StatementLine{}, false
	}
	label := strings.TrimSpace(cols[0].Value)
	if label == "" {
		return core.StatementLine{}, false
	}
	amount, err := strconv.ParseFloat(strings.TrimSpace(cols[len(cols)-1].Value), 64)
	if err != nil {
		return core.StatementLine{}, false
	}
	return core.StatementLine{Label: label, Amount: amount, Section: section}, true
}

func (p *Provider) apiRequest(ctx context.Context, session core.Session, endpoint string) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+session.AccessToken)
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}

// VerifyWebhook checks the intuit-signature header: base64 HMAC-SHA256 of
// the raw payload keyed with the webhook verifier token.
func (p *Provider) VerifyWebhook(payload []byte, signatureHeader string) error {
	if p == nil {
		return fmt.Errorf("quickbooks: provider is nil")
	}
	return providers.VerifyHMACSignature(p.cfg.WebhookVerifierToken, payload, signatureHeader, "", signatureHeaderEncoding)
}

type webhookPayload struct {
	EventNotifications []struct {
		RealmID         string `json:"realmId"`
		DataChangeEvent struct {
			Entities []struct {
				Name        string `json:"name"`
				ID          string `json:"id"`
				Operation   string `json:"operation"`
				LastUpdated string `json:"lastUpdated"`
			} `json:"entities"`
		} `json:"dataChangeEvent"`
	} `json:"eventNotifications"`
}

func (p *Provider) ResolveWebhook(payload []byte) ([]core.WebhookEvent, error) {
	if p == nil {
		return nil, fmt.Errorf("quickbooks: provider is nil")
	}
	var parsed webhookPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("quickbooks: decode webhook payload: %w", err)
	}

	var events []core.WebhookEvent
	for _, notification := range parsed.EventNotifications {
		realm := strings.TrimSpace(notification.RealmID)
		if realm == "" {
			continue
		}
		event := core.WebhookEvent{ExternalCompanyID: realm}
		seen := map[core.DataType]struct{}{}
		for _, entity := range notification.DataChangeEvent.Entities {
			if dataType, ok := entityDataType(entity.Name); ok {
				if _, dup := seen[dataType]; dup {
					continue
				}
				seen[dataType] = struct{}{}
				event.DataTypes = append(event.DataTypes, dataType)
			}
		}
		events = append(events, event)
	}
	return events, nil
}

// entityDataType maps changed QuickBooks entities to the datasets they
// invalidate. Transaction entities touch the statements; Account changes
// touch the chart itself. Unknown entities resolve to no data types, which
// the orchestrator treats as "re-sync everything the connection tracks".
func entityDataType(name string) (core.DataType, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "account":
		return core.DataTypeChartOfAccounts, true
	case "journalentry", "bill", "invoice", "payment", "purchase", "deposit":
		return core.DataTypeTrialBalance, true
	default:
		return "", false
	}
}

var (
	_ core.Provider          = (*Provider)(nil)
	_ core.RevocableProvider = (*Provider)(nil)
)
