// playlistd - multi-display video playlist orchestrator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playlistd

package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/playlistd/internal/config"
)

// Claims is the display-ownership token payload. AdminID identifies the
// operator for internal/authz's casbin subject.
type Claims struct {
	AdminID string `json:"adminId"`
	jwt.RegisteredClaims
}

// Manager mints and validates HS256 display-ownership tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager builds a Manager from the configured JWT secret and token
// lifetime (spec §4.7). Config.Validate already enforces a 32-byte
// minimum secret length before this is called.
func NewManager(cfg config.SecurityConfig) (*Manager, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}
	return &Manager{secret: []byte(cfg.JWTSecret), ttl: cfg.TokenTTL}, nil
}

// Issue mints a token identifying adminID, valid for the configured TTL.
func (m *Manager) Issue(adminID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign display ownership token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies tokenString, rejecting anything not
// signed with HS256 to avoid algorithm-confusion attacks.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid display ownership token: %w", err)
	}
	if claims.AdminID == "" {
		return nil, fmt.Errorf("display ownership token missing adminId claim")
	}
	return claims, nil
}
