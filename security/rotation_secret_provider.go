package security

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/auditgrid/ledgersync/core"
)

type RotationDiagnostic struct {
	OccurredAt time.Time
	Operation  string
	Outcome    string
	Active     string
	Retired    []string
	Error      string
}

type RotationDiagnosticHook func(event RotationDiagnostic)

type RotationOption func(*KeyRotationSecretProvider)

// KeyRotationSecretProvider layers an active key over retired keys. New
// ciphertexts always use the active key; decryption walks the retired keys
// so credentials sealed before a rotation stay readable. Refresh rewrites
// each credential, so old ciphertexts age out on their own.
type KeyRotationSecretProvider struct {
	active         core.SecretProvider
	retired        []core.SecretProvider
	diagnosticHook RotationDiagnosticHook
	now            func() time.Time
}

func NewKeyRotationSecretProvider(active core.SecretProvider, opts ...RotationOption) (*KeyRotationSecretProvider, error) {
	if active == nil {
		return nil, fmt.Errorf("security: active secret provider is required")
	}
	provider := &KeyRotationSecretProvider{
		active: active,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(provider)
	}
	if provider.now == nil {
		provider.now = func() time.Time { return time.Now().UTC() }
	}
	return provider, nil
}

func WithRetiredSecretProviders(providers ...core.SecretProvider) RotationOption {
	return func(p *KeyRotationSecretProvider) {
		if p == nil {
			return
		}
		for _, provider := range providers {
			if provider == nil {
				continue
			}
			p.retired = append(p.retired, provider)
		}
	}
}

func WithRotationDiagnostics(hook RotationDiagnosticHook) RotationOption {
	return func(p *KeyRotationSecretProvider) {
		if p == nil {
			return
		}
		p.diagnosticHook = hook
	}
}

func WithRotationClock(now func() time.Time) RotationOption {
	return func(p *KeyRotationSecretProvider) {
		if p == nil {
			return
		}
		p.now = now
	}
}

func (p *KeyRotationSecretProvider) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("security: plaintext is required")
	}
	ciphertext, err := p.active.Encrypt(ctx, plaintext)
	if err != nil {
		p.emit("encrypt", "active_failed", err)
		return nil, fmt.Errorf("security: active key encrypt failed: %w", err)
	}
	return ciphertext, nil
}

func (p *KeyRotationSecretProvider) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("security: secret provider is nil")
	}
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("security: ciphertext is required")
	}

	plaintext, err := p.active.Decrypt(ctx, ciphertext)
	if err == nil {
		return plaintext, nil
	}
	lastErr := err

	for _, retired := range p.retired {
		plaintext, retiredErr := retired.Decrypt(ctx, ciphertext)
		if retiredErr == nil {
			p.emit("decrypt", "retired_key_used", nil)
			return plaintext, nil
		}
		lastErr = retiredErr
	}

	p.emit("decrypt", "all_keys_failed", lastErr)
	return nil, fmt.Errorf("security: no key could decrypt payload: %w", lastErr)
}

func (p *KeyRotationSecretProvider) emit(operation string, outcome string, err error) {
	if p == nil || p.diagnosticHook == nil {
		return
	}
	now := p.now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	retired := make([]string, 0, len(p.retired))
	for _, provider := range p.retired {
		retired = append(retired, describeSecretProvider(provider))
	}
	p.diagnosticHook(RotationDiagnostic{
		OccurredAt: now().UTC(),
		Operation:  operation,
		Outcome:    outcome,
		Active:     describeSecretProvider(p.active),
		Retired:    retired,
		Error:      msg,
	})
}

func describeSecretProvider(provider core.SecretProvider) string {
	if provider == nil {
		return ""
	}
	label := reflect.TypeOf(provider).String()
	if metadataProvider, ok := provider.(interface {
		KeyID() string
		Version() int
	}); ok {
		keyID := strings.TrimSpace(metadataProvider.KeyID())
		if keyID != "" {
			return fmt.Sprintf("%s(%s:%d)", label, keyID, metadataProvider.Version())
		}
	}
	return label
}

var _ core.SecretProvider = (*KeyRotationSecretProvider)(nil)
