// Package auth issues, verifies, and revokes the platform's bearer
// credentials. Requests without a credential are mapped to a stable
// guest identity derived from the caller's address and user agent.
package auth

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/storage"
)

const (
	// DefaultTokenExpiration is the default lifetime for issued tokens.
	DefaultTokenExpiration = 168 * time.Hour

	// DefaultClaimsCacheSize bounds the verified-claims cache.
	DefaultClaimsCacheSize = 1024
)

var (
	// ErrInvalidToken is returned when a token fails signature or expiry
	// checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenRevoked is returned when a token has been blacklisted.
	ErrTokenRevoked = errors.New("token revoked")
)

// Claims are the verified contents of a bearer credential.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Tier  string `json:"tier"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the credential.
func (c *Claims) UserID() string {
	return c.Subject
}

// User is the identity a credential is issued for.
type User struct {
	ID    string
	Email string
	Name  string
	Tier  string
}

// Service signs and verifies credentials. Verified claims are cached by
// token string; the revocation blacklist is consulted on every Verify
// so a revoked token is rejected even on a cache hit.
type Service struct {
	tokens          storage.TokenStore
	jwtSecret       []byte
	tokenExpiration time.Duration
	claimsCache     *lru.Cache[string, *Claims]

	// now is the clock for issuance and expiry checks; tests override it.
	now func() time.Time
}

// NewService creates an authentication service.
func NewService(tokens storage.TokenStore, jwtSecret string, tokenExpiration time.Duration, cacheSize int) (*Service, error) {
	if tokenExpiration == 0 {
		tokenExpiration = DefaultTokenExpiration
	}
	if cacheSize <= 0 {
		cacheSize = DefaultClaimsCacheSize
	}

	cache, err := lru.New[string, *Claims](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create claims cache: %w", err)
	}

	return &Service{
		tokens:          tokens,
		jwtSecret:       []byte(jwtSecret),
		tokenExpiration: tokenExpiration,
		claimsCache:     cache,
		now:             time.Now,
	}, nil
}

// Issue signs a new credential for the user.
func (s *Service) Issue(user User) (string, error) {
	now := s.now()
	claims := &Claims{
		Email: user.Email,
		Name:  user.Name,
		Tier:  user.Tier,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks a credential's signature, expiry, and revocation state.
func (s *Service) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	revoked, err := s.tokens.IsBlacklisted(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("check token blacklist: %w", err)
	}
	if revoked {
		s.claimsCache.Remove(tokenString)
		return nil, ErrTokenRevoked
	}

	if claims, ok := s.claimsCache.Get(tokenString); ok {
		if claims.ExpiresAt != nil && s.now().After(claims.ExpiresAt.Time) {
			s.claimsCache.Remove(tokenString)
			return nil, ErrInvalidToken
		}
		return claims, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	s.claimsCache.Add(tokenString, claims)
	return claims, nil
}

// Revoke blacklists a credential for the remainder of its lifetime.
func (s *Service) Revoke(ctx context.Context, tokenString string) error {
	claims, err := s.Verify(ctx, tokenString)
	if errors.Is(err, ErrTokenRevoked) {
		return nil
	}
	if err != nil {
		return err
	}

	ttl := s.tokenExpiration
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Time.Sub(s.now()); remaining > 0 {
			ttl = remaining
		}
	}
	if err := s.tokens.Blacklist(ctx, tokenString, ttl); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	s.claimsCache.Remove(tokenString)
	return nil
}

// GuestIdentity derives a stable anonymous user id from the caller's
// address and user agent, so unauthenticated usage accrues against a
// consistent identity.
func GuestIdentity(remoteAddr, userAgent string) string {
	sum := md5.Sum([]byte(remoteAddr + "_" + userAgent))
	return "guest_" + hex.EncodeToString(sum[:])[:8]
}
