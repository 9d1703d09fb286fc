// Package authn turns bearer tokens into identities and issues tokens for the
// built-in login.
package authn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/natededev/de-commerce/internal/domain"
)

// Metadata mirrors the user_metadata object carried by identity-provider tokens.
type Metadata struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// Claims is the token payload accepted and issued by this package.
type Claims struct {
	Email        string   `json:"email,omitempty"`
	UserMetadata Metadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// Identity maps claims to a caller identity. Only an exact "ADMIN" elevates
// the role.
func (c Claims) Identity() domain.Identity {
	role := domain.RoleUser
	if c.UserMetadata.Role == string(domain.RoleAdmin) {
		role = domain.RoleAdmin
	}
	id := domain.Identity{
		UserID: c.Subject,
		Email:  c.Email,
		Name:   c.UserMetadata.Name,
		Role:   role,
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}

// Verifier validates bearer tokens.
type Verifier struct {
	keyfunc jwt.Keyfunc
	methods []string
	issuer  string
}

// NewHMACVerifier verifies HS256 tokens signed with secret.
func NewHMACVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret required")
	}
	key := []byte(secret)
	return &Verifier{
		keyfunc: func(*jwt.Token) (any, error) { return key, nil },
		methods: []string{jwt.SigningMethodHS256.Alg()},
		issuer:  issuer,
	}, nil
}

// NewJWKSVerifier verifies ES256 or RS256 tokens against a remote JWKS that is
// refreshed in the background until ctx is done.
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer string) (*Verifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}
	return &Verifier{
		keyfunc: k.Keyfunc,
		methods: []string{jwt.SigningMethodES256.Alg(), jwt.SigningMethodRS256.Alg()},
		issuer:  issuer,
	}, nil
}

// NewVerifier accepts HS256 tokens signed with secret and, when jwksURL is
// set, asymmetric tokens from the remote key set as well.
func NewVerifier(ctx context.Context, secret, jwksURL, issuer string) (*Verifier, error) {
	if jwksURL == "" {
		return NewHMACVerifier(secret, issuer)
	}
	remote, err := NewJWKSVerifier(ctx, jwksURL, issuer)
	if err != nil || secret == "" {
		return remote, err
	}
	key := []byte(secret)
	return &Verifier{
		keyfunc: func(t *jwt.Token) (any, error) {
			if t.Method.Alg() == jwt.SigningMethodHS256.Alg() {
				return key, nil
			}
			return remote.keyfunc(t)
		},
		methods: append([]string{jwt.SigningMethodHS256.Alg()}, remote.methods...),
		issuer:  issuer,
	}, nil
}

// Verify parses and validates token. Any failure wraps ErrNotAuthenticated.
func (v *Verifier) Verify(token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, fmt.Errorf("%w: access token required", domain.ErrNotAuthenticated)
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods(v.methods), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var claims Claims
	if _, err := jwt.ParseWithClaims(token, &claims, v.keyfunc, opts...); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: invalid or expired token", domain.ErrNotAuthenticated)
	}
	if claims.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: token has no subject", domain.ErrNotAuthenticated)
	}
	return claims.Identity(), nil
}

// Signer issues HS256 access tokens.
type Signer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret, issuer string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{key: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for u and returns it with its expiry.
func (s *Signer) Issue(u domain.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Email:        u.Email,
		UserMetadata: Metadata{Name: u.Name, Role: string(u.Role)},
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// TTL reports how long issued tokens stay valid.
func (s *Signer) TTL() time.Duration { return s.ttl }
