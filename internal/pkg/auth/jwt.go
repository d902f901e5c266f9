package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWT errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrInvalidFormat = errors.New("invalid token format")
)

// VerifierConfig defines how tokens from the external identity provider are checked
type VerifierConfig struct {
	// HMACSecret verifies HS256 tokens
	HMACSecret string
	// PublicKeyPEM verifies RS256 tokens and takes precedence over HMACSecret
	PublicKeyPEM []byte
	Issuer       string
	Audience     string
	RoleClaim    string
}

// VerifiedToken is the identity carried by a valid token
type VerifiedToken struct {
	Subject string
	Issuer  string
	Role    string
	Claims  jwt.MapClaims
}

// JWTVerifier validates bearer tokens issued by the identity provider
type JWTVerifier struct {
	hmacSecret []byte
	publicKey  *rsa.PublicKey
	roleClaim  string
	options    []jwt.ParserOption
}

// NewJWTVerifier creates a verifier from config
func NewJWTVerifier(config VerifierConfig) (*JWTVerifier, error) {
	v := &JWTVerifier{roleClaim: config.RoleClaim}

	switch {
	case len(config.PublicKeyPEM) > 0:
		key, err := jwt.ParseRSAPublicKeyFromPEM(config.PublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse token public key: %w", err)
		}
		v.publicKey = key
		v.options = append(v.options, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	case config.HMACSecret != "":
		v.hmacSecret = []byte(config.HMACSecret)
		v.options = append(v.options, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	default:
		return nil, errors.New("either an HMAC secret or a public key is required")
	}

	if config.Issuer != "" {
		v.options = append(v.options, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		v.options = append(v.options, jwt.WithAudience(config.Audience))
	}
	if v.roleClaim == "" {
		v.roleClaim = "role"
	}
	v.options = append(v.options, jwt.WithExpirationRequired(), jwt.WithLeeway(30*time.Second))

	return v, nil
}

func (v *JWTVerifier) keyFunc(token *jwt.Token) (interface{}, error) {
	if v.publicKey != nil {
		return v.publicKey, nil
	}
	return v.hmacSecret, nil
}

// VerifyToken validates the raw token and returns its identity
func (v *JWTVerifier) VerifyToken(raw string) (*VerifiedToken, error) {
	if raw == "" {
		return nil, ErrInvalidFormat
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, v.keyFunc, v.options...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrInvalidFormat
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	issuer, _ := claims.GetIssuer()

	verified := &VerifiedToken{
		Subject: subject,
		Issuer:  issuer,
		Claims:  claims,
	}
	if role, ok := claims[v.roleClaim].(string); ok {
		verified.Role = role
	}
	return verified, nil
}

// IssuerConfig configures HS256 token issuance for development and tests
type IssuerConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	RoleClaim string
}

// IssueToken signs a short lived HS256 token for subject. The production
// identity provider issues its own tokens; this exists for local tooling.
func IssueToken(config IssuerConfig, subject, role string, ttl time.Duration) (string, error) {
	if config.Secret == "" {
		return "", errors.New("token secret is required")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(ttl).Unix(),
		"jti": uuid.New().String(),
	}
	if config.Issuer != "" {
		claims["iss"] = config.Issuer
	}
	if config.Audience != "" {
		claims["aud"] = config.Audience
	}
	if role != "" {
		roleClaim := config.RoleClaim
		if roleClaim == "" {
			roleClaim = "role"
		}
		claims[roleClaim] = role
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ExtractBearerToken extracts the token from the Authorization header
func ExtractBearerToken(authHeader string) (string, error) {
	authHeader = strings.TrimSpace(strings.Trim(authHeader, "\"'"))
	if authHeader == "" {
		return "", ErrInvalidFormat
	}

	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:]), nil
	}
	// raw JWTs are accepted for Swagger UI convenience
	if strings.Count(authHeader, ".") == 2 {
		return authHeader, nil
	}
	return "", ErrInvalidFormat
}
