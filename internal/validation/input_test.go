package validation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidatePixKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"email", "Seller@Example.com", false},
		{"телефон", "+5511999998888", false},
		{"cpf с форматированием", "123.456.789-01", false},
		{"cnpj", "12345678000190", false},
		{"случайный ключ", uuid.NewString(), false},
		{"пустой", "   ", true},
		{"битый email", "seller@", true},
		{"короткий телефон", "+55119", true},
		{"мусор", "not a key", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePixKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTaxID(t *testing.T) {
	assert.NoError(t, ValidateTaxID("12345678901"))
	assert.NoError(t, ValidateTaxID("12345678000190"))
	assert.Error(t, ValidateTaxID(""))
	assert.Error(t, ValidateTaxID("123.456.789-01"))
	assert.Error(t, ValidateTaxID("1234"))
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "12345678000190", DigitsOnly("12.345.678/0001-90"))
	assert.Equal(t, "", DigitsOnly("abc"))
}

func TestValidateLength(t *testing.T) {
	assert.NoError(t, ValidateLength("имя", "Ана", 1, 3))
	assert.Error(t, ValidateLength("имя", "", 1, 0))
	assert.Error(t, ValidateLength("имя", "Мария", 0, 4))
}
