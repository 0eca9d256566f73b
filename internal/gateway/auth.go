package gateway

import (
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"

	"github.com/agent-matrix/matrix-hub/internal/apperrors"
)

// tokenProvider resolves the Authorization header value for each
// request: either a static configured token, or a freshly minted
// short-lived HS256 JWT (spec.md §4.F).
type tokenProvider struct {
	cfg Config

	mu        sync.Mutex
	cached    string
	expiresAt time.Time
}

func newTokenProvider(cfg Config) *tokenProvider {
	return &tokenProvider{cfg: cfg}
}

func (p *tokenProvider) header() (string, error) {
	if p.cfg.Token != "" {
		return normalizeAuthHeader(p.cfg.Token), nil
	}
	if p.cfg.JWTSecret == "" {
		return "", apperrors.NewInvalidRequestError("gateway auth not configured: need token or jwt_secret", nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != "" && time.Now().Before(p.expiresAt.Add(-5*time.Second)) {
		return "Bearer " + p.cached, nil
	}

	tok, exp, err := mintJWT(p.cfg.JWTSecret, p.cfg.AdminUsername, defaultJWTTTL)
	if err != nil {
		return "", apperrors.NewIntegrityError("mint gateway jwt", err)
	}
	p.cached = tok
	p.expiresAt = exp
	return "Bearer " + tok, nil
}

// normalizeAuthHeader passes through a value that already carries a
// recognized scheme, otherwise treats it as a raw bearer token.
func normalizeAuthHeader(v string) string {
	if strings.HasPrefix(v, "Bearer ") || strings.HasPrefix(v, "Basic ") {
		return v
	}
	return "Bearer " + v
}

// mintJWT signs a short-lived HS256 claim set identifying
// adminUsername, matching spec.md §4.F's "5-minute TTL typical" note.
func mintJWT(secret, adminUsername string, ttl time.Duration) (string, time.Time, error) {
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte(secret)}, nil)
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := jwt.Claims{
		Subject:  adminUsername,
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}
