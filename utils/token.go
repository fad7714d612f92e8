package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is what a token asserts about its bearer.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (c *Claims) Identity() (Identity, error) {
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return Identity{}, fmt.Errorf("token subject: %w", err)
	}
	return Identity{UserID: id, Email: c.Email, Role: c.Role}, nil
}

// ExpiresTime returns the expiry stamped in the claims, or the zero time.
func (c *Claims) ExpiresTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token signing secrets must be set")
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

func (ts *TokenService) IssueAccessToken(id Identity) (string, error) {
	return ts.sign(id, ts.accessTTL, ts.accessSecret)
}

func (ts *TokenService) IssueRefreshToken(id Identity) (string, error) {
	return ts.sign(id, ts.refreshTTL, ts.refreshSecret)
}

func (ts *TokenService) sign(id Identity, ttl time.Duration, secret []byte) (string, error) {
	now := ts.now()
	claims := Claims{
		UserID: id.UserID.String(),
		Email:  id.Email,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Decode reads the claims without checking the signature. Only use the
// result for bookkeeping such as expiry timestamps, never for authorization.
func (ts *TokenService) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (ts *TokenService) VerifyAccessToken(tokenString string) (*Claims, error) {
	return ts.Verify(tokenString, ts.accessSecret)
}

func (ts *TokenService) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return ts.Verify(tokenString, ts.refreshSecret)
}

// Verify checks the HMAC signature and expiry of tokenString. It returns
// ErrTokenExpired or ErrTokenInvalid on failure.
func (ts *TokenService) Verify(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(ts.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
