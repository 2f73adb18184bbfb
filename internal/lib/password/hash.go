// Package password реализует функции для безопасного хеширования и проверки
// административного ключа.
//
// GetHash создает bcrypt-хеш для безопасного хранения в конфигурации.
// CompareHash сравнивает сохранённый bcrypt-хеш с введённым ключом.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GetHash принимает секрет и возвращает его bcrypt‑хэш.
func GetHash(secret string) (string, error) {
	const op = "password.GetHash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// CompareHash сравнивает bcrypt‑хэш с введённым секретом.
//
// Возвращает nil, если секрет соответствует хэшу, иначе — ошибку.
func CompareHash(originalHash, external string) error {
	const op = "password.CompareHash"
	if err := bcrypt.CompareHashAndPassword([]byte(originalHash), []byte(external)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
