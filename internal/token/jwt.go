package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/authkeeper/internal/model"
)

// ClaimsNamespace is the claim key holding the role bundle.
const ClaimsNamespace = "https://hasura.io/jwt/claims"

// RoleClaims is the namespaced role bundle carried by every access token.
type RoleClaims struct {
	AllowedRoles []string `json:"x-hasura-allowed-roles"`
	DefaultRole  string   `json:"x-hasura-default-role"`
	UserID       string   `json:"x-hasura-user-id"`
}

// Claims represents access token claims.
type Claims struct {
	jwt.RegisteredClaims
	Roles RoleClaims `json:"https://hasura.io/jwt/claims"`
}

// Config holds the signing parameters of a Minter.
type Config struct {
	// Algorithm is a JWS algorithm name such as HS256, RS256 or ES256.
	Algorithm string
	// Key is the shared secret for HMAC algorithms and a PEM encoded private key
	// for RSA and ECDSA algorithms.
	Key string
	TTL time.Duration
}

// Minter implements model.TokenMinter.
type Minter struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	ttl       time.Duration
	now       func() time.Time
}

var _ model.TokenMinter = (*Minter)(nil)

// NewMinter creates a new Minter instance.
// It resolves the signing method named by cfg and parses the signing key for it.
//
// Parameters:
//   - cfg: The signing algorithm, the key (an HMAC secret or a PEM encoded private
//     key) and the access token lifetime
//
// Returns a pointer to the newly created Minter, or an error wrapping
// model.ErrConfiguration when the algorithm or key is missing, unsupported or
// unparsable, or the lifetime is not positive.
func NewMinter(cfg Config) (*Minter, error) {
	alg := strings.TrimSpace(cfg.Algorithm)
	if alg == "" {
		return nil, fmt.Errorf("%w: jwt signing algorithm is not set", model.ErrConfiguration)
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("%w: jwt signing key is not set", model.ErrConfiguration)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: access token ttl must be positive", model.ErrConfiguration)
	}

	method := jwt.GetSigningMethod(alg)
	if method == nil || method == jwt.SigningMethodNone {
		return nil, fmt.Errorf("%w: unsupported jwt algorithm %q", model.ErrConfiguration, alg)
	}

	m := &Minter{method: method, ttl: cfg.TTL, now: time.Now}

	switch method.(type) {
	case *jwt.SigningMethodHMAC:
		m.signKey = []byte(cfg.Key)
		m.verifyKey = []byte(cfg.Key)
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.Key))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse rsa key: %w", model.ErrConfiguration, err)
		}
		m.signKey = key
		m.verifyKey = &key.PublicKey
	case *jwt.SigningMethodECDSA:
		key, err := jwt.ParseECPrivateKeyFromPEM([]byte(cfg.Key))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse ecdsa key: %w", model.ErrConfiguration, err)
		}
		m.signKey = key
		m.verifyKey = &key.PublicKey
	default:
		return nil, fmt.Errorf("%w: unsupported jwt algorithm %q", model.ErrConfiguration, alg)
	}

	return m, nil
}

// Mint signs an access token for user. It performs no I/O.
func (m *Minter) Mint(user model.User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	subject := user.ID.String()

	token := jwt.NewWithClaims(m.method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Roles: RoleClaims{
			AllowedRoles: EffectiveRoles(user.Roles, user.DefaultRole),
			DefaultRole:  user.DefaultRole,
			UserID:       subject,
		},
	})

	tokenString, err := token.SignedString(m.signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Parse verifies signature and expiry of an access token and returns its claims.
func (m *Minter) Parse(tokenString string) (model.AccessClaims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return m.verifyKey, nil },
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return model.AccessClaims{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	if !token.Valid {
		return model.AccessClaims{}, errors.New("access token is invalid")
	}

	userID, err := uuid.Parse(claims.Roles.UserID)
	if err != nil {
		return model.AccessClaims{}, fmt.Errorf("access token carries malformed user id: %w", err)
	}

	return model.AccessClaims{
		UserID:       userID,
		AllowedRoles: claims.Roles.AllowedRoles,
		DefaultRole:  claims.Roles.DefaultRole,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}
