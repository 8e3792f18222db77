package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Константы валидации
const (
	MaxPixKeyLength = 77
	CPFLength       = 11
	CNPJLength      = 14
)

var (
	emailLocalRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	emailDomainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	phoneRegex       = regexp.MustCompile(`^\+[1-9][0-9]{10,13}$`)
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart, domainPart := parts[0], parts[1]
	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if !emailLocalRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}
	if !emailDomainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// DigitsOnly убирает из строки всё, кроме цифр (точки и дефисы в CPF/CNPJ).
func DigitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateTaxID принимает CPF (11 цифр) или CNPJ (14 цифр).
func ValidateTaxID(taxID string) error {
	if taxID == "" {
		return fmt.Errorf("налоговый номер обязателен")
	}
	if taxID != DigitsOnly(taxID) {
		return fmt.Errorf("налоговый номер должен состоять из цифр")
	}
	if len(taxID) != CPFLength && len(taxID) != CNPJLength {
		return fmt.Errorf("налоговый номер должен содержать %d или %d цифр", CPFLength, CNPJLength)
	}
	return nil
}

// ValidatePixKey принимает ключ PIX любого типа: CPF/CNPJ, email,
// телефон в формате E.164 или случайный ключ (UUID).
func ValidatePixKey(key string) error {
	key = strings.TrimSpace(key)
	if err := ValidateNonEmpty("ключ PIX", key); err != nil {
		return err
	}
	if err := ValidateLength("ключ PIX", key, 0, MaxPixKeyLength); err != nil {
		return err
	}

	switch {
	case strings.Contains(key, "@"):
		return ValidateEmail(key)
	case strings.HasPrefix(key, "+"):
		if !phoneRegex.MatchString(key) {
			return fmt.Errorf("телефон должен быть в формате +5511999998888")
		}
		return nil
	case ValidateTaxID(DigitsOnly(key)) == nil && len(DigitsOnly(key)) >= len(key)-4:
		return nil
	}

	if _, err := uuid.Parse(key); err == nil {
		return nil
	}
	return fmt.Errorf("неизвестный формат ключа PIX")
}
