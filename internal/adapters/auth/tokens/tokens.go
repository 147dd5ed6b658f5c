// Package tokens emite y verifica tokens JWT firmados con HS256.
// Implementa ports/auth.AuthVerifier para que el router no dependa
// de la librería de JWT directamente.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	portauth "makerspace-access/internal/ports/auth"
)

var (
	ErrInvalidToken = errors.New("token invalido")
	ErrExpiredToken = errors.New("token expirado")
)

// Manager firma y verifica tokens de sesión.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration

	// inyectable para tests
	now func() time.Time
}

type sessionClaims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret: []byte(secret),
		issuer: "makerspace-access",
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue genera un token para el usuario dado.
func (m *Manager) Issue(userID, username, email string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: falta user id", ErrInvalidToken)
	}
	now := m.now()
	claims := sessionClaims{
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.secret)
}

// Verify implementa portauth.AuthVerifier.
func (m *Manager) Verify(_ context.Context, token string) (portauth.Claims, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("metodo de firma inesperado: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return portauth.Claims{}, ErrExpiredToken
		}
		return portauth.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return portauth.Claims{}, ErrInvalidToken
	}
	return portauth.Claims{
		UserID:   claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}
