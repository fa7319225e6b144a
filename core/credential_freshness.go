package core

import (
	"strings"
	"time"
)

const DefaultRefreshSafetyMargin = 5 * time.Minute

// TokenFreshness captures the refresh decision inputs for a stored token.
type TokenFreshness struct {
	ExpiresAt       time.Time
	HasAccessToken  bool
	HasRefreshToken bool
	IsExpired       bool
	WithinMargin    bool
}

// ResolveTokenFreshness evaluates a token set against the refresh safety
// margin: a token expiring within the margin is treated as stale so sessions
// never go out with seconds left on the clock.
func ResolveTokenFreshness(now time.Time, tokens TokenSet, safetyMargin time.Duration) TokenFreshness {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if safetyMargin <= 0 {
		safetyMargin = DefaultRefreshSafetyMargin
	}

	state := TokenFreshness{
		ExpiresAt:       tokens.ExpiresAt.UTC(),
		HasAccessToken:  strings.TrimSpace(tokens.AccessToken) != "",
		HasRefreshToken: strings.TrimSpace(tokens.RefreshToken) != "",
	}
	if tokens.ExpiresAt.IsZero() {
		return state
	}
	if !tokens.ExpiresAt.After(now) {
		state.IsExpired = true
		return state
	}
	state.WithinMargin = !tokens.ExpiresAt.After(now.Add(safetyMargin))
	return state
}

// ShouldRefresh reports whether a refresh must run before the token can be
// handed out as a session.
func ShouldRefresh(state TokenFreshness) bool {
	if !state.HasAccessToken {
		return true
	}
	return state.IsExpired || state.WithinMargin
}
