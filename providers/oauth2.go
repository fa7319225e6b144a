package providers

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
)

const (
	defaultTokenRequestTimeout = 30 * time.Second
	maxTokenResponseBodyBytes  = 1 << 20 // 1 MiB
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OAuth2Config describes the authorization-code endpoints shared by every
// accounting provider we integrate with.
type OAuth2Config struct {
	AuthURL             string
	TokenURL            string
	RevokeURL           string
	ClientID            string
	ClientSecret        string
	ClientSecretInBody  bool
	Scopes              []string
	TokenTTL            time.Duration
	TokenRequestTimeout time.Duration
	Now                 func() time.Time
	HTTPClient          HTTPDoer
}

// OAuth2Client drives the token endpoint for a single provider. It maps an
// invalid_grant refresh rejection to the reconnect-required classification
// so callers never retry a dead grant.
type OAuth2Client struct {
	cfg        OAuth2Config
	httpClient HTTPDoer
}

type tokenEndpointPayload struct {
	AccessToken           string
	TokenType             string
	RefreshToken          string
	Scope                 string
	ExpiresIn             int64
	RefreshTokenExpiresIn int64
	ErrorCode             string
	ErrorDescription      string
}

func NewOAuth2Client(cfg OAuth2Config) (*OAuth2Client, error) {
	if strings.TrimSpace(cfg.AuthURL) == "" {
		return nil, fmt.Errorf("providers: auth url is required")
	}
	if strings.TrimSpace(cfg.TokenURL) == "" {
		return nil, fmt.Errorf("providers: token url is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("providers: client id is required")
	}

	cfg.AuthURL = strings.TrimSpace(cfg.AuthURL)
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	cfg.RevokeURL = strings.TrimSpace(cfg.RevokeURL)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	if cfg.TokenRequestTimeout <= 0 {
		cfg.TokenRequestTimeout = defaultTokenRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time {
			return time.Now().UTC()
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.TokenRequestTimeout}
	}

	return &OAuth2Client{
		cfg:        cfg,
		httpClient: httpClient,
	}, nil
}

func (c *OAuth2Client) AuthorizationURL(state string, redirectURI string) string {
	if c == nil {
		return ""
	}
	values := url.Values{}
	values.Set("response_type", "code")
	values.Set("client_id", c.cfg.ClientID)
	if redirectURI = strings.TrimSpace(redirectURI); redirectURI != "" {
		values.Set("redirect_uri", redirectURI)
	}
	if len(c.cfg.Scopes) > 0 {
		values.Set("scope", strings.Join(c.cfg.Scopes, " "))
	}
	values.Set("state", strings.TrimSpace(state))

	authURL := c.cfg.AuthURL
	if strings.Contains(authURL, "?") {
		return authURL + "&" + values.Encode()
	}
	return authURL + "?" + values.Encode()
}

func (c *OAuth2Client) ExchangeCode(ctx context.Context, code string, redirectURI string) (core.TokenSet, error) {
	if c == nil {
		return core.TokenSet{}, fmt.Errorf("providers: oauth2 client is nil")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return core.TokenSet{}, fmt.Errorf("providers: authorization code is required")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	if redirectURI = strings.TrimSpace(redirectURI); redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}

	payload, err := c.fetchToken(ctx, form)
	if err != nil {
		return core.TokenSet{}, err
	}
	return c.tokenSetFromPayload(payload), nil
}

func (c *OAuth2Client) RefreshToken(ctx context.Context, refreshToken string) (core.TokenSet, error) {
	if c == nil {
		return core.TokenSet{}, fmt.Errorf("providers: oauth2 client is nil")
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return core.TokenSet{}, fmt.Errorf("providers: refresh token is required")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	payload, err := c.fetchToken(ctx, form)
	if err != nil {
		return core.TokenSet{}, err
	}
	tokens := c.tokenSetFromPayload(payload)
	if strings.TrimSpace(tokens.RefreshToken) == "" {
		// Providers that do not rotate refresh tokens return only the
		// access token; keep using the one we presented.
		tokens.RefreshToken = refreshToken
	}
	return tokens, nil
}

func (c *OAuth2Client) Revoke(ctx context.Context, token string) error {
	if c == nil {
		return fmt.Errorf("providers: oauth2 client is nil")
	}
	if strings.TrimSpace(c.cfg.RevokeURL) == "" {
		return fmt.Errorf("providers: revoke url is not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("providers: token is required for revocation")
	}

	form := url.Values{}
	form.Set("token", token)

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		c.cfg.RevokeURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if c.cfg.ClientSecret != "" {
		httpReq.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	}

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("providers: revoke request failed: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxTokenResponseBodyBytes))

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("providers: revoke endpoint error (%d)", response.StatusCode)
	}
	return nil
}

func (c *OAuth2Client) fetchToken(ctx context.Context, form url.Values) (tokenEndpointPayload, error) {
	if c.httpClient == nil {
		return tokenEndpointPayload{}, fmt.Errorf("providers: oauth2 http client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	values := url.Values{}
	for key, items := range form {
		if strings.TrimSpace(key) == "" {
			continue
		}
		for _, item := range items {
			values.Add(key, strings.TrimSpace(item))
		}
	}
	values.Set("client_id", c.cfg.ClientID)
	if c.cfg.ClientSecretInBody && c.cfg.ClientSecret != "" {
		values.Set("client_secret", c.cfg.ClientSecret)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		c.cfg.TokenURL,
		strings.NewReader(values.Encode()),
	)
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if !c.cfg.ClientSecretInBody && c.cfg.ClientSecret != "" {
		httpReq.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	}

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return tokenEndpointPayload{}, fmt.Errorf("providers: token request failed: %w", err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxTokenResponseBodyBytes+1))
	if readErr != nil {
		return tokenEndpointPayload{}, fmt.Errorf("providers: read token response: %w", readErr)
	}
	if int64(len(body)) > maxTokenResponseBodyBytes {
		return tokenEndpointPayload{}, fmt.Errorf("providers: token response exceeds %d bytes", maxTokenResponseBodyBytes)
	}

	payload, parseErr := parseTokenPayload(body, response.Header.Get("Content-Type"))
	if parseErr != nil {
		return tokenEndpointPayload{}, fmt.Errorf("providers: decode token response: %w", parseErr)
	}
	if isInvalidGrant(response.StatusCode, payload) {
		return tokenEndpointPayload{}, core.NewReconnectRequiredError(
			fmt.Sprintf("token endpoint rejected grant: %s", describeTokenError(payload)))
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return tokenEndpointPayload{}, fmt.Errorf(
			"providers: token endpoint error (%d): %s",
			response.StatusCode,
			describeTokenError(payload),
		)
	}
	if payload.ErrorCode != "" {
		return tokenEndpointPayload{}, fmt.Errorf("providers: token endpoint error: %s", describeTokenError(payload))
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return tokenEndpointPayload{}, fmt.Errorf("providers: token endpoint response missing access token")
	}
	return payload, nil
}

func (c *OAuth2Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.cfg.TokenRequestTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.TokenRequestTimeout)
	}
	return ctx, func() {}
}

func (c *OAuth2Client) tokenSetFromPayload(payload tokenEndpointPayload) core.TokenSet {
	now := c.cfg.Now().UTC()
	tokens := core.TokenSet{
		AccessToken:  strings.TrimSpace(payload.AccessToken),
		RefreshToken: strings.TrimSpace(payload.RefreshToken),
		TokenType:    normalizeTokenType(payload.TokenType),
		ExpiresAt:    now.Add(c.resolveTTL(payload.ExpiresIn)),
	}
	if payload.RefreshTokenExpiresIn > 0 {
		refreshExpiresAt := now.Add(time.Duration(payload.RefreshTokenExpiresIn) * time.Second)
		tokens.RefreshTokenExpiresAt = &refreshExpiresAt
	}
	return tokens
}

func (c *OAuth2Client) resolveTTL(expiresIn int64) time.Duration {
	if expiresIn > 0 {
		return time.Duration(expiresIn) * time.Second
	}
	return c.cfg.TokenTTL
}

func isInvalidGrant(statusCode int, payload tokenEndpointPayload) bool {
	code := strings.ToLower(strings.TrimSpace(payload.ErrorCode))
	if code == "invalid_grant" {
		return true
	}
	return statusCode == http.StatusUnauthorized && code != ""
}

func describeTokenError(payload tokenEndpointPayload) string {
	if strings.TrimSpace(payload.ErrorDescription) != "" {
		return strings.TrimSpace(payload.ErrorDescription)
	}
	if strings.TrimSpace(payload.ErrorCode) != "" {
		return strings.TrimSpace(payload.ErrorCode)
	}
	return "unknown error"
}

func parseTokenPayload(body []byte, contentType string) (tokenEndpointPayload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseTokenPayloadJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseTokenPayloadForm(body)
	}
	if payload, err := parseTokenPayloadJSON(body); err == nil {
		return payload, nil
	}
	return parseTokenPayloadForm(body)
}

func parseTokenPayloadJSON(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tokenEndpointPayload{}, err
	}
	return tokenEndpointPayload{
		AccessToken:           readAnyString(decoded["access_token"]),
		TokenType:             readAnyString(decoded["token_type"]),
		RefreshToken:          readAnyString(decoded["refresh_token"]),
		Scope:                 readAnyString(decoded["scope"]),
		ExpiresIn:             readAnyInt64(decoded["expires_in"]),
		RefreshTokenExpiresIn: readAnyInt64(decoded["x_refresh_token_expires_in"]),
		ErrorCode:             readAnyString(decoded["error"]),
		ErrorDescription:      readAnyString(decoded["error_description"]),
	}, nil
}

func parseTokenPayloadForm(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("empty payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	return tokenEndpointPayload{
		AccessToken:      strings.TrimSpace(values.Get("access_token")),
		TokenType:        strings.TrimSpace(values.Get("token_type")),
		RefreshToken:     strings.TrimSpace(values.Get("refresh_token")),
		Scope:            strings.TrimSpace(values.Get("scope")),
		ExpiresIn:        expiresIn,
		ErrorCode:        strings.TrimSpace(values.Get("error")),
		ErrorDescription: strings.TrimSpace(values.Get("error_description")),
	}, nil
}

func normalizeTokenType(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "bearer"
	}
	return normalized
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case int:
		return int64(typed)
	case int64:
		return typed
	case float64:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err == nil {
			return parsed
		}
		floatParsed, floatErr := typed.Float64()
		if floatErr == nil {
			return int64(floatParsed)
		}
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}
