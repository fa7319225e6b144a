package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	CredentialPayloadFormatJSONV1 = "token_set_json"
	CredentialPayloadVersionV1    = 1
)

// CredentialCodec serializes a TokenSet for the vault. The encoded payload
// is always encrypted before persistence; the codec never touches storage.
type CredentialCodec interface {
	Format() string
	Version() int
	Encode(tokens TokenSet) ([]byte, error)
	Decode(payload []byte) (TokenSet, error)
}

type JSONCredentialCodec struct{}

func (JSONCredentialCodec) Format() string {
	return CredentialPayloadFormatJSONV1
}

func (JSONCredentialCodec) Version() int {
	return CredentialPayloadVersionV1
}

type jsonTokenSetPayload struct {
	AccessToken           string     `json:"access_token,omitempty"`
	RefreshToken          string     `json:"refresh_token,omitempty"`
	TokenType             string     `json:"token_type,omitempty"`
	ExpiresAt             time.Time  `json:"expires_at"`
	RefreshTokenExpiresAt *time.Time `json:"refresh_token_expires_at,omitempty"`
	ExternalCompanyID     string     `json:"external_company_id,omitempty"`
}

func (JSONCredentialCodec) Encode(tokens TokenSet) ([]byte, error) {
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return nil, fmt.Errorf("core: credential payload requires an access token")
	}
	payload := jsonTokenSetPayload{
		AccessToken:           strings.TrimSpace(tokens.AccessToken),
		RefreshToken:          strings.TrimSpace(tokens.RefreshToken),
		TokenType:             strings.TrimSpace(tokens.TokenType),
		ExpiresAt:             tokens.ExpiresAt.UTC(),
		RefreshTokenExpiresAt: cloneTimePointer(tokens.RefreshTokenExpiresAt),
		ExternalCompanyID:     strings.TrimSpace(tokens.ExternalCompanyID),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("core: encode credential payload: %w", err)
	}
	return encoded, nil
}

func (JSONCredentialCodec) Decode(payload []byte) (TokenSet, error) {
	if len(payload) == 0 {
		return TokenSet{}, fmt.Errorf("core: credential payload is empty")
	}
	decoded := jsonTokenSetPayload{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return TokenSet{}, fmt.Errorf("core: decode credential payload: %w", err)
	}
	return TokenSet{
		AccessToken:           strings.TrimSpace(decoded.AccessToken),
		RefreshToken:          strings.TrimSpace(decoded.RefreshToken),
		TokenType:             strings.TrimSpace(decoded.TokenType),
		ExpiresAt:             decoded.ExpiresAt.UTC(),
		RefreshTokenExpiresAt: cloneTimePointer(decoded.RefreshTokenExpiresAt),
		ExternalCompanyID:     strings.TrimSpace(decoded.ExternalCompanyID),
	}, nil
}

func cloneTimePointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := value.UTC()
	return &clone
}
