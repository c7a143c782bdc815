package shared

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places money columns store
const MoneyScale = 2

// IsMoneyScale reports whether d fits in MoneyScale decimal places without
// rounding. Trailing zeros are ignored, so 1.500 is accepted.
func IsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// ValidateMoney rejects an amount the store would have to round
func ValidateMoney(field string, d decimal.Decimal) error {
	if !IsMoneyScale(d) {
		return NewDomainError(CodeValidation, field+" cannot have more than 2 decimal places")
	}
	return nil
}
