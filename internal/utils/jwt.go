package utils

import (
	"errors"
	"fmt"
	"time"

	"civicconnect/internal/config"
	"civicconnect/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserClaims carries the verified identity of an access token.
type UserClaims struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name,omitempty"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the identity used by services.
func (c *UserClaims) Actor() (models.Actor, error) {
	id, err := primitive.ObjectIDFromHex(c.UserID)
	if err != nil {
		return models.Actor{}, fmt.Errorf("invalid user id in token: %w", err)
	}
	return models.Actor{ID: id, Name: c.Name, Role: c.Role, Department: c.Department}, nil
}

// JWTManager issues and validates HS256 access tokens.
type JWTManager struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
}

func NewJWTManager(cfg config.JWTConfig) *JWTManager {
	return &JWTManager{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		accessTTL: cfg.AccessTTL,
	}
}

// TTL is how long issued tokens stay valid.
func (m *JWTManager) TTL() time.Duration {
	return m.accessTTL
}

// GenerateUserJWT signs an access token for u.
func (m *JWTManager) GenerateUserJWT(u *models.User) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UserID:     u.ID.Hex(),
		Name:       u.UserName,
		Role:       u.Role,
		Department: u.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateUserJWT parses and validates an access token.
func (m *JWTManager) ValidateUserJWT(tokenString string) (*UserClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == "" || claims.Role == "" {
		return nil, errors.New("token is missing identity claims")
	}
	return claims, nil
}
