package devkit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/auditgrid/ledgersync/core"
)

type TokenScript struct {
	Tokens core.TokenSet
	Err    error
}

type FetchScript struct {
	Document core.ProviderDocument
	Err      error
}

// FakeProvider is a scriptable core.Provider for tests and local wiring.
// Exchange, refresh, and fetch calls consume their scripts in order; the
// last script repeats once the list is exhausted.
type FakeProvider struct {
	mu sync.Mutex

	kind            core.ProviderKind
	exchangeScripts []TokenScript
	refreshScripts  []TokenScript
	fetchScripts    []FetchScript
	verifyErr       error
	webhookEvents   []core.WebhookEvent
	revokeErr       error

	exchangeCalls []string
	refreshCalls  []string
	fetchCalls    []core.FetchRequest
	revokeCalls   []string
}

func NewFakeProvider(kind core.ProviderKind) *FakeProvider {
	return &FakeProvider{kind: kind}
}

func (p *FakeProvider) ScriptExchange(scripts ...TokenScript) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exchangeScripts = append(p.exchangeScripts, scripts...)
	return p
}

func (p *FakeProvider) ScriptRefresh(scripts ...TokenScript) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshScripts = append(p.refreshScripts, scripts...)
	return p
}

func (p *FakeProvider) ScriptFetch(scripts ...FetchScript) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchScripts = append(p.fetchScripts, scripts...)
	return p
}

func (p *FakeProvider) ScriptWebhook(verifyErr error, events ...core.WebhookEvent) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verifyErr = verifyErr
	p.webhookEvents = append([]core.WebhookEvent(nil), events...)
	return p
}

func (p *FakeProvider) ScriptRevoke(err error) *FakeProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revokeErr = err
	return p
}

func (p *FakeProvider) Kind() core.ProviderKind {
	if p == nil {
		return ""
	}
	return p.kind
}

func (p *FakeProvider) BuildAuthorizationURL(state string, redirectURI string) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("https://auth.devkit.invalid/authorize?provider=%s&state=%s&redirect_uri=%s",
		p.kind, strings.TrimSpace(state), strings.TrimSpace(redirectURI))
}

func (p *FakeProvider) ExchangeCode(_ context.Context, code string, _ string) (core.TokenSet, error) {
	if p == nil {
		return core.TokenSet{}, fmt.Errorf("devkit: fake provider is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.exchangeCalls = append(p.exchangeCalls, code)
	script := nextTokenScript(p.exchangeScripts, len(p.exchangeCalls)-1, "exchange")
	return script.Tokens, script.Err
}

func (p *FakeProvider) Refresh(_ context.Context, refreshToken string) (core.TokenSet, error) {
	if p == nil {
		return core.TokenSet{}, fmt.Errorf("devkit: fake provider is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refreshCalls = append(p.refreshCalls, refreshToken)
	script := nextTokenScript(p.refreshScripts, len(p.refreshCalls)-1, "refresh")
	return script.Tokens, script.Err
}

func (p *FakeProvider) Fetch(_ context.Context, req core.FetchRequest) (core.ProviderDocument, error) {
	if p == nil {
		return core.ProviderDocument{}, fmt.Errorf("devkit: fake provider is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fetchCalls = append(p.fetchCalls, req)
	index := len(p.fetchCalls) - 1
	if index < len(p.fetchScripts) {
		script := p.fetchScripts[index]
		return script.Document, script.Err
	}
	if len(p.fetchScripts) > 0 {
		last := p.fetchScripts[len(p.fetchScripts)-1]
		return last.Document, last.Err
	}
	return core.ProviderDocument{
		Provider: p.kind,
		DataType: req.DataType,
	}, nil
}

func (p *FakeProvider) VerifyWebhook(_ []byte, _ string) error {
	if p == nil {
		return fmt.Errorf("devkit: fake provider is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verifyErr
}

func (p *FakeProvider) ResolveWebhook(_ []byte) ([]core.WebhookEvent, error) {
	if p == nil {
		return nil, fmt.Errorf("devkit: fake provider is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.WebhookEvent(nil), p.webhookEvents...), nil
}

func (p *FakeProvider) RevokeToken(_ context.Context, refreshToken string) error {
	if p == nil {
		return fmt.Errorf("devkit: fake provider is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revokeCalls = append(p.revokeCalls, refreshToken)
	return p.revokeErr
}

func (p *FakeProvider) ExchangeCalls() []string {
	return p.copyCalls(func() []string { return p.exchangeCalls })
}

func (p *FakeProvider) RefreshCalls() []string {
	return p.copyCalls(func() []string { return p.refreshCalls })
}

func (p *FakeProvider) RevokeCalls() []string {
	return p.copyCalls(func() []string { return p.revokeCalls })
}

func (p *FakeProvider) FetchCalls() []core.FetchRequest {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.FetchRequest(nil), p.fetchCalls...)
}

func (p *FakeProvider) copyCalls(load func() []string) []string {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), load()...)
}

func nextTokenScript(scripts []TokenScript, index int, op string) TokenScript {
	if index < len(scripts) {
		return scripts[index]
	}
	if len(scripts) > 0 {
		return scripts[len(scripts)-1]
	}
	return TokenScript{Err: fmt.Errorf("devkit: no %s script configured", op)}
}

// HealthyTokenScript returns tokens that stay fresh for an hour past now.
func HealthyTokenScript(now time.Time) TokenScript {
	return TokenScript{Tokens: core.TokenSet{
		AccessToken:  "devkit-access-token",
		RefreshToken: "devkit-refresh-token",
		TokenType:    "Bearer",
		ExpiresAt:    now.Add(time.Hour).UTC(),
	}}
}

var (
	_ core.Provider          = (*FakeProvider)(nil)
	_ core.RevocableProvider = (*FakeProvider)(nil)
)
