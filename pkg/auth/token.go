package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers malformed, badly signed and otherwise unacceptable tokens
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned for tokens past their exp claim
	ErrExpiredToken = errors.New("token expired")
	// ErrWrongTokenType is returned when a refresh token is used as an access token or vice versa
	ErrWrongTokenType = errors.New("wrong token type")
)

// Config configures a TokenManager.
type Config struct {
	Secret     string
	Algorithm  string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenManager issues and validates HMAC-signed JWTs
type TokenManager struct {
	secret     []byte
	method     jwt.SigningMethod
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager creates a token manager. Only HS256, HS384 and HS512 are accepted.
func NewTokenManager(cfg Config) (*TokenManager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	alg := strings.ToUpper(cfg.Algorithm)
	if alg == "" {
		alg = "HS256"
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm: %s", cfg.Algorithm)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 30 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{
		secret:     []byte(cfg.Secret),
		method:     method,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// AccessTTL returns the access token lifetime.
func (tm *TokenManager) AccessTTL() time.Duration { return tm.accessTTL }

func (tm *TokenManager) issue(subject string, scopes []Scope, typ TokenType, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	now := tm.now()
	claims := Claims{
		Scopes:    scopes,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(tm.method, claims).SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IssueAccessToken signs an access token for subject.
func (tm *TokenManager) IssueAccessToken(subject string, scopes []Scope) (string, error) {
	return tm.issue(subject, scopes, TokenTypeAccess, tm.accessTTL)
}

// IssueRefreshToken signs a refresh token for subject.
func (tm *TokenManager) IssueRefreshToken(subject string, scopes []Scope) (string, error) {
	return tm.issue(subject, scopes, TokenTypeRefresh, tm.refreshTTL)
}

// IssuePair signs an access and a refresh token.
func (tm *TokenManager) IssuePair(subject string, scopes []Scope) (*TokenPair, error) {
	access, err := tm.IssueAccessToken(subject, scopes)
	if err != nil {
		return nil, err
	}
	refresh, err := tm.IssueRefreshToken(subject, scopes)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(tm.accessTTL.Seconds()),
	}, nil
}

// Validate verifies signature, algorithm, issuer, expiry and type of token.
func (tm *TokenManager) Validate(token string, typ TokenType) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{tm.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != typ {
		return nil, ErrWrongTokenType
	}

	return &Principal{
		Subject:   claims.Subject,
		Scopes:    claims.Scopes,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (tm *TokenManager) Refresh(refreshToken string) (*TokenPair, *Principal, error) {
	p, err := tm.Validate(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, nil, err
	}
	access, err := tm.IssueAccessToken(p.Subject, p.Scopes)
	if err != nil {
		return nil, nil, err
	}
	return &TokenPair{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int64(tm.accessTTL.Seconds()),
	}, p, nil
}
