// Package auth issues and validates the bearer tokens that guard write operations.
//
// Tokens are HMAC-signed JWTs (HS256, HS384 or HS512) with the claims sub, iss,
// iat, nbf, exp, jti, scopes and typ. Access tokens authorise requests; refresh
// tokens can only be exchanged for a new access token.
//
//	tm, _ := auth.NewTokenManager(auth.Config{Secret: secret, Issuer: "filtros"})
//	pair, _ := tm.IssuePair("inventario-bot", []auth.Scope{auth.ScopeFiltersWrite})
//	p, err := tm.Validate(pair.AccessToken, auth.TokenTypeAccess)
//
// There are no user accounts: operators mint tokens with `filtros token`.
package auth
