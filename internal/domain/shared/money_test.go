package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIsMoneyScale(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"0", true},
		{"1000", true},
		{"12.5", true},
		{"12.50", true},
		{"1.500", true},
		{"-3.25", true},
		{"0.005", false},
		{"99.999", false},
		{"-0.001", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMoneyScale(decimal.RequireFromString(tt.value)))
		})
	}
}

func TestValidateMoney(t *testing.T) {
	assert.NoError(t, ValidateMoney("Amount", decimal.RequireFromString("10.25")))

	err := ValidateMoney("Unit price", decimal.RequireFromString("0.005"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Unit price cannot have more than 2 decimal places", err.Error())
}
