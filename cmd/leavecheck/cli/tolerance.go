package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func parseTolerance(raw string) (decimal.Decimal, error) {
	tolerance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid tolerance %q", raw)
	}
	if tolerance.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("tolerance must not be negative, got %s", tolerance)
	}
	return tolerance, nil
}
