// Package username содержит нормализацию Telegram username получателя.
package username

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MinLength — минимальная длина username в Telegram
const MinLength = 5

// ErrTooShort возвращается для слишком короткого username
var ErrTooShort = errors.New("username is too short")

// Normalize убирает пробелы и ведущий "@" и проверяет минимальную длину
func Normalize(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	name = strings.TrimPrefix(name, "@")

	if utf8.RuneCountInString(name) < MinLength {
		return "", ErrTooShort
	}

	return name, nil
}
