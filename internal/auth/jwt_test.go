package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// TestGenerate тестирует создание JWT токена
func TestGenerate(t *testing.T) {
	s, err := NewSigner(testSecret)
	if err != nil {
		t.Fatalf("Ошибка создания подписчика: %v", err)
	}

	token, err := s.Generate("admin", true, time.Hour)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}

	if strings.Count(token, ".") != 2 {
		t.Errorf("Неверный формат JWT токена: %s", token)
	}
}

// TestValidate тестирует валидацию JWT токена
func TestValidate(t *testing.T) {
	s, _ := NewSigner(testSecret)
	token, err := s.Generate("operator", true, time.Hour)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}

	claims, err := s.Validate(token)
	if err != nil {
		t.Fatalf("Валидный токен определен как недействительный: %v", err)
	}
	if claims.Subject != "operator" {
		t.Errorf("Неверный subject: %s", claims.Subject)
	}
	if !claims.Admin {
		t.Error("Флаг admin потерян")
	}
}

// TestValidateInvalid проверяет отказ для чужих, испорченных и просроченных токенов
func TestValidateInvalid(t *testing.T) {
	s, _ := NewSigner(testSecret)
	other, _ := NewSigner(strings.Repeat("x", MinSecretLen))

	foreign, _ := other.Generate("admin", true, time.Hour)
	expired, _ := s.Generate("admin", true, -time.Minute)

	cases := map[string]string{
		"пустой":       "",
		"мусор":        "not.a.token",
		"чужой секрет": foreign,
		"просроченный": expired,
	}
	for name, token := range cases {
		if _, err := s.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: ожидалась ErrInvalidToken, получено %v", name, err)
		}
	}
}

// TestNewSigner_ShortSecret проверяет минимальную длину секрета
func TestNewSigner_ShortSecret(t *testing.T) {
	if _, err := NewSigner("short"); !errors.Is(err, ErrShortSecret) {
		t.Errorf("Ожидалась ErrShortSecret, получено %v", err)
	}
}

// TestGenerateSecureSecret проверяет, что секреты уникальны и годятся для подписи
func TestGenerateSecureSecret(t *testing.T) {
	a, b := GenerateSecureSecret(), GenerateSecureSecret()
	if a == b {
		t.Error("Секреты совпали")
	}
	if _, err := NewSigner(a); err != nil {
		t.Errorf("Сгенерированный секрет отклонён: %v", err)
	}
}
