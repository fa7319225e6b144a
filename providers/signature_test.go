package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/auditgrid/ledgersync/core"
)

func signPayload(t *testing.T, secret string, payload []byte) []byte {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	if _, err := mac.Write(payload); err != nil {
		t.Fatalf("sign payload: %v", err)
	}
	return mac.Sum(nil)
}

func TestVerifyHMACSignature_Base64(t *testing.T) {
	payload := []byte(`{"events": []}`)
	signature := base64.StdEncoding.EncodeToString(signPayload(t, "webhook-key", payload))

	if err := VerifyHMACSignature("webhook-key", payload, signature, "", "base64"); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyHMACSignature_HexWithPrefix(t *testing.T) {
	payload := []byte(`{"events": []}`)
	signature := "sha256=" + hex.EncodeToString(signPayload(t, "webhook-key", payload))

	if err := VerifyHMACSignature("webhook-key", payload, signature, "sha256=", "hex"); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyHMACSignature_RejectsTamperedPayload(t *testing.T) {
	signature := base64.StdEncoding.EncodeToString(signPayload(t, "webhook-key", []byte("original")))

	err := VerifyHMACSignature("webhook-key", []byte("tampered"), signature, "", "base64")
	if err == nil {
		t.Fatalf("expected verification failure")
	}
	if !core.IsWebhookAuthError(err) {
		t.Fatalf("expected webhook auth classification, got %v", err)
	}
}

func TestVerifyHMACSignature_RejectsWrongKey(t *testing.T) {
	payload := []byte(`{"events": []}`)
	signature := base64.StdEncoding.EncodeToString(signPayload(t, "other-key", payload))

	if err := VerifyHMACSignature("webhook-key", payload, signature, "", "base64"); err == nil {
		t.Fatalf("expected verification failure")
	}
}

func TestVerifyHMACSignature_RejectsMissingSignature(t *testing.T) {
	err := VerifyHMACSignature("webhook-key", []byte("payload"), "", "", "base64")
	if err == nil {
		t.Fatalf("expected missing signature failure")
	}
	if !core.IsWebhookAuthError(err) {
		t.Fatalf("expected webhook auth classification, got %v", err)
	}
}
