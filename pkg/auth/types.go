package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scope represents a permission carried by a token
type Scope string

const (
	ScopeFiltersWrite      Scope = "filters:write"
	ScopeCategoriesWrite   Scope = "categories:write"
	ScopeDistributorsWrite Scope = "distributors:write"
	ScopeStatsRead         Scope = "stats:read"
	ScopeAll               Scope = "*" // All permissions (for admin)
)

// KnownScopes lists every scope a token may be issued with.
func KnownScopes() []Scope {
	return []Scope{ScopeFiltersWrite, ScopeCategoriesWrite, ScopeDistributorsWrite, ScopeStatsRead, ScopeAll}
}

// ParseScope returns the Scope named s, or false when s is unknown.
func ParseScope(s string) (Scope, bool) {
	for _, scope := range KnownScopes() {
		if string(scope) == s {
			return scope, true
		}
	}
	return "", false
}

// TokenType distinguishes short-lived access tokens from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the JWT payload
type Claims struct {
	Scopes    []Scope   `json:"scopes"`
	TokenType TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller of a request
type Principal struct {
	Subject   string    `json:"sub"`
	Scopes    []Scope   `json:"scopes"`
	TokenID   string    `json:"jti"`
	ExpiresAt time.Time `json:"exp"`
}

// HasScope reports whether the principal holds scope, directly or through ScopeAll.
func (p *Principal) HasScope(scope Scope) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Scopes {
		if s == scope || s == ScopeAll {
			return true
		}
	}
	return false
}

// TokenPair is returned when issuing or refreshing tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
