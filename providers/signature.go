package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/auditgrid/ledgersync/core"
)

// VerifyHMACSignature checks an HMAC-SHA256 webhook signature in constant
// time. Encoding is "base64" or "hex"; prefix strips schemes like "sha256=".
func VerifyHMACSignature(secret string, payload []byte, signature string, prefix string, encoding string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return fmt.Errorf("providers: signature secret is required")
	}
	signature = strings.TrimSpace(signature)
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		signature = strings.TrimPrefix(signature, prefix)
		signature = strings.TrimSpace(signature)
	}
	if signature == "" {
		return core.NewWebhookAuthError("signature value is required")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	expected := mac.Sum(nil)

	var decoded []byte
	var err error
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		decoded, err = base64.StdEncoding.DecodeString(signature)
		if err != nil {
			return core.NewWebhookAuthError(fmt.Sprintf("decode base64 signature: %v", err))
		}
	default:
		decoded, err = hex.DecodeString(signature)
		if err != nil {
			return core.NewWebhookAuthError(fmt.Sprintf("decode hex signature: %v", err))
		}
	}
	if subtle.ConstantTimeCompare(decoded, expected) != 1 {
		return core.NewWebhookAuthError("signature verification failed")
	}
	return nil
}
