package lsl

import "github.com/shopspring/decimal"

// ExposureBand sums an indicative low/high dollar exposure across employees
// with a known hourly rate. Sizing only, not an entitlement calculation: the
// gap-hours heuristic scales with tenure between the eligibility and full
// milestones, and any existing balance offsets the gap.
func ExposureBand(states []State, params Params) (low, high decimal.Decimal) {
	var totalLow, totalHigh float64
	for _, st := range states {
		if !st.HourlyRate.Valid {
			continue
		}
		gapLow, gapHigh := gapHours(st.ServiceYears, params)
		if st.HasBalance {
			balance := st.BalanceUnits.InexactFloat64()
			gapLow = max(0, gapLow-balance)
			gapHigh = max(0, gapHigh-balance)
		}
		hourly := st.HourlyRate.Decimal.InexactFloat64()
		totalLow += gapLow * hourly
		totalHigh += gapHigh * hourly
	}
	return decimal.NewFromFloat(totalLow).Round(2), decimal.NewFromFloat(totalHigh).Round(2)
}

func gapHours(serviceYears float64, params Params) (low, high float64) {
	if serviceYears < params.EligibilityYears {
		return 0, 0
	}
	week := params.HoursPerDay * 5
	if serviceYears >= params.FullYears {
		// Roughly three to five weeks, assumption-based.
		return week * 3, week * 5
	}
	span := params.FullYears - params.EligibilityYears
	if span <= 0 {
		return 0, 0
	}
	factor := (serviceYears - params.EligibilityYears) / span
	return week * 1 * factor, week * 3 * factor
}
