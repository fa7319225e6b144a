package core

import (
	"strings"
	"testing"
	"time"
)

func TestJSONCredentialCodec_RoundTrip(t *testing.T) {
	codec := JSONCredentialCodec{}
	refreshExpiry := time.Date(2025, 9, 1, 0, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	tokens := TokenSet{
		AccessToken:           "  at-123  ",
		RefreshToken:          "rt-456",
		TokenType:             "bearer",
		ExpiresAt:             time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
		RefreshTokenExpiresAt: &refreshExpiry,
		ExternalCompanyID:     "company_9",
	}

	payload, err := codec.Encode(tokens)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := codec.Decode(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.AccessToken != "at-123" {
		t.Fatalf("expected trimmed access token, got %q", decoded.AccessToken)
	}
	if decoded.RefreshToken != "rt-456" || decoded.ExternalCompanyID != "company_9" {
		t.Fatalf("unexpected decoded token set: %+v", decoded)
	}
	if decoded.ExpiresAt.Location() != time.UTC {
		t.Fatalf("expected expiry normalized to UTC, got %v", decoded.ExpiresAt.Location())
	}
	if !decoded.ExpiresAt.Equal(tokens.ExpiresAt) {
		t.Fatalf("expected expiry %v, got %v", tokens.ExpiresAt, decoded.ExpiresAt)
	}
	if decoded.RefreshTokenExpiresAt == nil || !decoded.RefreshTokenExpiresAt.Equal(refreshExpiry) {
		t.Fatalf("expected refresh token expiry to survive the round trip")
	}
}

func TestJSONCredentialCodec_EncodeRequiresAccessToken(t *testing.T) {
	codec := JSONCredentialCodec{}
	_, err := codec.Encode(TokenSet{RefreshToken: "rt-only"})
	if err == nil || !strings.Contains(err.Error(), "access token") {
		t.Fatalf("expected missing access token error, got: %v", err)
	}
}

func TestJSONCredentialCodec_DecodeRejectsEmptyAndMalformedPayloads(t *testing.T) {
	codec := JSONCredentialCodec{}
	if _, err := codec.Decode(nil); err == nil {
		t.Fatalf("expected empty payload to be rejected")
	}
	if _, err := codec.Decode([]byte("{not json")); err == nil {
		t.Fatalf("expected malformed payload to be rejected")
	}
}

func TestJSONCredentialCodec_FormatAndVersion(t *testing.T) {
	codec := JSONCredentialCodec{}
	if codec.Format() != CredentialPayloadFormatJSONV1 {
		t.Fatalf("unexpected payload format %q", codec.Format())
	}
	if codec.Version() != CredentialPayloadVersionV1 {
		t.Fatalf("unexpected payload version %d", codec.Version())
	}
}
