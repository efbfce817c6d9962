package relayapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Common JWT errors.
var (
	ErrInvalidToken       = errors.New("relayapi: invalid token")
	ErrExpiredToken       = errors.New("relayapi: token has expired")
	ErrInvalidSecretLen   = errors.New("relayapi: JWT secret must be at least 32 characters")
	ErrTokenSigningFailed = errors.New("relayapi: failed to sign token")
)

// DeviceClaims identifies the device and namespace a bearer token was
// issued for. There is no role/admin concept at the relay: every device
// registered to a namespace has full read/write access to it, gated only
// by the health-derived capability set the device itself enforces.
type DeviceClaims struct {
	jwt.RegisteredClaims
	DeviceID      string `json:"device_id"`
	Namespace     string `json:"namespace"`
	SchemaVersion int    `json:"schema_version"`
}

// JWTConfig configures device-token signing and verification.
type JWTConfig struct {
	Secret        string
	Issuer        string
	TokenDuration time.Duration
}

// JWTService issues and validates device bearer tokens.
type JWTService struct {
	config JWTConfig
}

// NewJWTService constructs a JWTService, applying defaults for issuer and
// token lifetime and rejecting secrets shorter than 32 characters.
func NewJWTService(config JWTConfig) (*JWTService, error) {
	if len(config.Secret) < 32 {
		return nil, ErrInvalidSecretLen
	}
	if config.Issuer == "" {
		config.Issuer = "nous-relay"
	}
	if config.TokenDuration == 0 {
		config.TokenDuration = 24 * time.Hour
	}
	return &JWTService{config: config}, nil
}

// IssueToken mints a bearer token for deviceID/namespace at schemaVersion.
func (s *JWTService) IssueToken(deviceID, namespace string, schemaVersion int) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.TokenDuration)
	claims := &DeviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   deviceID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		DeviceID:      deviceID,
		Namespace:     namespace,
		SchemaVersion: schemaVersion,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, ErrTokenSigningFailed
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies a bearer token, returning its claims.
func (s *JWTService) ValidateToken(tokenString string) (*DeviceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DeviceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*DeviceClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

type contextKey string

const claimsContextKey contextKey = "device-claims"

// claimsFromContext retrieves the DeviceClaims a deviceAuth middleware
// attached to the request context, or nil if none is present.
func claimsFromContext(ctx context.Context) *DeviceClaims {
	claims, _ := ctx.Value(claimsContextKey).(*DeviceClaims)
	return claims
}
