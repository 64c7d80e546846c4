package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prepacking/backend/internal/infrastructure/config"
)

// Token validation errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenRevoked     = errors.New("token has been revoked")
)

// Claims are the bearer token claims issued by the auth service.
// Tokens issued to a trusted service carry a client id but no user.
type Claims struct {
	jwt.RegisteredClaims
	ReferenceDataUserID string   `json:"referenceDataUserId,omitempty"`
	UserName            string   `json:"user_name,omitempty"`
	ClientID            string   `json:"client_id,omitempty"`
	Authorities         []string `json:"authorities,omitempty"`
}

// IsMachineClient reports whether the token was issued to a service rather than a user
func (c *Claims) IsMachineClient() bool {
	return c.ReferenceDataUserID == ""
}

// UserUUID parses the reference data user id
func (c *Claims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.ReferenceDataUserID)
}

// TokenInput describes a token to issue
type TokenInput struct {
	UserID      uuid.UUID
	UserName    string
	ClientID    string
	Authorities []string
	TTL         time.Duration
}

// JWTService validates HMAC-signed bearer tokens
type JWTService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// ValidateToken verifies signature, time window and issuer and returns the claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.ReferenceDataUserID != "" {
		if _, err := claims.UserUUID(); err != nil {
			return nil, ErrInvalidClaims
		}
	} else if claims.ClientID == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// IssueToken signs a token with the service secret. A zero UserID issues a machine client token.
func (s *JWTService) IssueToken(input TokenInput) (string, error) {
	ttl := input.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserName:    input.UserName,
		ClientID:    input.ClientID,
		Authorities: input.Authorities,
	}
	if input.UserID != uuid.Nil {
		claims.ReferenceDataUserID = input.UserID.String()
		claims.Subject = input.UserID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
