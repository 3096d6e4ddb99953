// Package auth выпускает и проверяет административные JWT для REST API и modctl.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer - имя издателя в токенах.
const Issuer = "modrt"

// MinSecretLen - минимальная длина секрета в байтах.
const MinSecretLen = 32

var (
	ErrShortSecret  = errors.New("секрет JWT должен быть не короче 32 байт")
	ErrInvalidToken = errors.New("недействительный токен")
)

// Claims - содержимое административного токена.
type Claims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// Signer подписывает и проверяет токены HS256 одним секретом.
type Signer struct {
	secret []byte
}

// NewSigner создаёт подписчика. Секрет берётся как есть (не base64).
func NewSigner(secret string) (*Signer, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrShortSecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Generate выпускает токен для subject со сроком жизни ttl.
func (s *Signer) Generate(subject string, admin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("подпись токена: %w", err)
	}
	return signed, nil
}

// Validate проверяет подпись, срок и издателя.
func (s *Signer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// GenerateSecureSecret возвращает случайный секрет в base64 (44 символа).
func GenerateSecureSecret() string {
	b := make([]byte, MinSecretLen)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}
