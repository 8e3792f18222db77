package valueobject

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/market-escrow/internal/pkg/apperror"
)

// MoneyScale - количество знаков после запятой для денежных сумм.
const MoneyScale = 2

// NewAmount проверяет положительную сумму с точностью до копеек.
func NewAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperror.Validation("сумма должна быть больше нуля")
	}
	if !amount.Equal(amount.Round(MoneyScale)) {
		return decimal.Zero, apperror.Validation("сумма должна содержать не более двух знаков после запятой")
	}
	return amount.Round(MoneyScale), nil
}

// Sum складывает суммы без потери точности.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
