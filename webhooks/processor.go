package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/auditgrid/ledgersync/core"
)

// ProviderSource resolves the adapter that can verify and interpret a
// provider's webhook payloads.
type ProviderSource interface {
	Get(kind core.ProviderKind) (core.Provider, bool)
}

// ConnectionResolver finds the connection a push notification belongs to.
// Webhook payloads carry the provider's company identifier, never our
// tenant id, so resolution is keyed on (provider, external company).
type ConnectionResolver interface {
	FindByExternalCompany(ctx context.Context, provider core.ProviderKind, externalCompanyID string) (core.Connection, bool, error)
}

// DeliveryLedger deduplicates at-least-once webhook deliveries with a
// claim lease. Claim returns false when the delivery is already held or
// completed. Complete seals the claim for the retention window; Fail
// releases it so the provider's redelivery can be processed.
type DeliveryLedger interface {
	Claim(ctx context.Context, provider core.ProviderKind, deliveryID string) (bool, error)
	Complete(ctx context.Context, provider core.ProviderKind, deliveryID string) error
	Fail(ctx context.Context, provider core.ProviderKind, deliveryID string) error
}

type ProcessRequest struct {
	Provider        core.ProviderKind
	Payload         []byte
	SignatureHeader string
	// DeliveryID is the transport-level delivery identifier when the
	// provider sends one; empty falls back to a payload digest.
	DeliveryID string
}

type ProcessResult struct {
	StatusCode int
	Deduped    bool
	Jobs       []core.SyncJob
	// Unmatched lists external company ids with no active connection;
	// their events are acknowledged and dropped.
	Unmatched []string
}

// Processor handles inbound webhooks synchronously: verify the signature,
// deduplicate the delivery, resolve the affected connections, and admit
// sync jobs. Signature verification happens before any side effect; a
// forged payload touches nothing.
type Processor struct {
	Providers   ProviderSource
	Connections ConnectionResolver
	Ledger      DeliveryLedger
	Trigger     core.SyncTrigger
	Now         func() time.Time
}

func NewProcessor(providers ProviderSource, connections ConnectionResolver, ledger DeliveryLedger, trigger core.SyncTrigger) *Processor {
	return &Processor{
		Providers:   providers,
		Connections: connections,
		Ledger:      ledger,
		Trigger:     trigger,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (p *Processor) Process(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	if p == nil || p.Providers == nil || p.Connections == nil || p.Trigger == nil {
		return ProcessResult{}, fmt.Errorf("webhooks: processor requires providers, connections, and trigger")
	}

	provider, ok := p.Providers.Get(req.Provider)
	if !ok {
		return ProcessResult{StatusCode: http.StatusNotFound},
			fmt.Errorf("webhooks: no adapter registered for provider %q", req.Provider)
	}

	if err := provider.VerifyWebhook(req.Payload, req.SignatureHeader); err != nil {
		return ProcessResult{StatusCode: http.StatusUnauthorized},
			core.NewWebhookAuthError(fmt.Sprintf("webhook signature rejected for %s: %v", req.Provider, err))
	}

	events, err := provider.ResolveWebhook(req.Payload)
	if err != nil {
		return ProcessResult{StatusCode: http.StatusBadRequest}, err
	}

	deliveryID := p.deliveryID(req, events)
	if p.Ledger != nil {
		claimed, err := p.Ledger.Claim(ctx, req.Provider, deliveryID)
		if err != nil {
			return ProcessResult{}, err
		}
		if !claimed {
			return ProcessResult{StatusCode: http.StatusOK, Deduped: true}, nil
		}
	}

	result, err := p.admitEvents(ctx, req.Provider, events)
	if p.Ledger != nil {
		// A claim held across a failed admission would dedupe the
		// provider's redelivery and drop the event for good.
		if err != nil {
			_ = p.Ledger.Fail(ctx, req.Provider, deliveryID)
		} else if completeErr := p.Ledger.Complete(ctx, req.Provider, deliveryID); completeErr != nil {
			return ProcessResult{}, completeErr
		}
	}
	return result, err
}

func (p *Processor) admitEvents(ctx context.Context, kind core.ProviderKind, events []core.WebhookEvent) (ProcessResult, error) {
	result := ProcessResult{StatusCode: http.StatusOK}
	for _, event := range events {
		externalCompanyID := strings.TrimSpace(event.ExternalCompanyID)
		if externalCompanyID == "" {
			continue
		}
		connection, found, err := p.Connections.FindByExternalCompany(ctx, kind, externalCompanyID)
		if err != nil {
			return ProcessResult{}, err
		}
		if !found {
			result.Unmatched = append(result.Unmatched, externalCompanyID)
			continue
		}

		// An event with no resolvable data types re-syncs everything the
		// connection tracks.
		jobs, err := p.Trigger.TriggerSync(ctx, connection.ID, event.DataTypes, "webhook")
		if err != nil {
			if core.IsReconnectRequired(err) {
				result.Unmatched = append(result.Unmatched, externalCompanyID)
				continue
			}
			return ProcessResult{}, err
		}
		result.Jobs = append(result.Jobs, jobs...)
	}
	return result, nil
}

func (p *Processor) deliveryID(req ProcessRequest, events []core.WebhookEvent) string {
	if id := strings.TrimSpace(req.DeliveryID); id != "" {
		return id
	}
	for _, event := range events {
		if id := strings.TrimSpace(event.DeliveryID); id != "" {
			return id
		}
	}
	digest := sha256.Sum256(req.Payload)
	return hex.EncodeToString(digest[:])
}
