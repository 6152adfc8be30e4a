package auth

import (
	"errors"
	"slices"
	"time"

	"task-board-api/internal/config"
	"task-board-api/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims
type Claims struct {
	MemberID    string `json:"member_id"`
	Username    string `json:"username"`
	WorkspaceID string `json:"workspace_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies member tokens.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TokenTTL,
	}
}

// GenerateToken generates a JWT token for the given member
func (ti *TokenIssuer) GenerateToken(m models.Member) (string, error) {
	now := time.Now()
	claims := Claims{
		MemberID:    m.ID,
		Username:    m.Username,
		WorkspaceID: m.WorkspaceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   m.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    ti.issuer,
			Audience:  jwt.ClaimStrings{ti.audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (ti *TokenIssuer) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return ti.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Issuer != ti.issuer {
		return nil, errors.New("invalid token issuer")
	}
	if !slices.Contains(claims.Audience, ti.audience) {
		return nil, errors.New("invalid token audience")
	}
	if claims.MemberID == "" {
		return nil, errors.New("token has no member")
	}
	return claims, nil
}
