package lsl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/leavecheck/leavecheck/internal/finding"
	"github.com/leavecheck/leavecheck/internal/model"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(model.DateFormat, value)
	require.NoError(t, err)
	return parsed
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func defaultParams() Params {
	return Params{
		EligibilityYears: 7,
		FullYears:        10,
		HoursPerDay:      7.6,
		LowFloorUnits:    dec("20"),
	}
}

func TestBuildStateServiceYearsAndLatestLSL(t *testing.T) {
	employees := []model.Employee{
		{EmployeeID: "E1", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2013-06-30")},
	}
	snapshots := []model.SnapshotBalance{
		{EmployeeID: "E1", LeaveType: "LSL", AsOfDate: date(t, "2022-12-31"), BalanceUnits: dec("30")},
		{EmployeeID: "E1", LeaveType: "LSL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("35")},
		{EmployeeID: "E1", LeaveType: "ANNUAL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("99")},
	}

	states := BuildState(employees, snapshots, nil, date(t, "2023-06-30"))
	require.Len(t, states, 1)
	st := states[0]
	require.InDelta(t, 10.0, st.ServiceYears, 0.05)
	require.True(t, st.HasBalance)
	require.Equal(t, "35", st.BalanceUnits.String(), "latest LSL row wins")
	require.False(t, st.HourlyRate.Valid)
}

func TestBuildStateHourlyRateFromAnnualSalary(t *testing.T) {
	employees := []model.Employee{
		{EmployeeID: "E1", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2010-01-01")},
	}
	rates := []model.PayRate{
		{EmployeeID: "E1", AnnualSalary: decimal.NullDecimal{Decimal: dec("98800"), Valid: true}},
	}
	states := BuildState(employees, nil, rates, date(t, "2023-06-30"))
	require.True(t, states[0].HourlyRate.Valid)
	// 98800 / (38 * 52) = 50
	require.Equal(t, "50", states[0].HourlyRate.Decimal.String())
}

func TestMissingForEligibleRule(t *testing.T) {
	employees := []model.Employee{
		{EmployeeID: "OLD", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2010-01-01")},
		{EmployeeID: "NEW", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2022-01-01")},
	}
	states := BuildState(employees, nil, nil, date(t, "2023-06-30"))

	violations := evalMissingForEligible(states, defaultParams())
	require.Len(t, violations, 1)
	v := violations[0]
	require.Equal(t, CodeMissingForEligible, v.Rule)
	require.Equal(t, finding.SeverityHigh, v.Severity)
	require.Equal(t, "OLD", v.EmployeeID)
	require.Equal(t, "LSL", v.LeaveType)
	require.Equal(t, "7.0", v.Evidence.Thresholds["eligibility_years"])
}

func TestNegativeAndZeroBalanceRules(t *testing.T) {
	employees := []model.Employee{
		{EmployeeID: "NEG", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2010-01-01")},
		{EmployeeID: "ZERO", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2010-01-01")},
	}
	snapshots := []model.SnapshotBalance{
		{EmployeeID: "NEG", LeaveType: "LSL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("-2")},
		{EmployeeID: "ZERO", LeaveType: "LSL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("0")},
	}
	states := BuildState(employees, snapshots, nil, date(t, "2023-06-30"))
	params := defaultParams()

	negative := evalNegativeBalance(states, params)
	require.Len(t, negative, 1)
	require.Equal(t, "NEG", negative[0].EmployeeID)
	require.True(t, negative[0].DiffUnits.Valid)

	zero := evalZeroForLongTenure(states, params)
	require.Len(t, zero, 1)
	require.Equal(t, "ZERO", zero[0].EmployeeID)
}

func TestSuspiciouslyLowRule(t *testing.T) {
	employees := []model.Employee{
		{EmployeeID: "LOW", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2010-01-01")},
		{EmployeeID: "OK", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2010-01-01")},
		{EmployeeID: "MID", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2015-06-30")},
	}
	snapshots := []model.SnapshotBalance{
		{EmployeeID: "LOW", LeaveType: "LSL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("5")},
		{EmployeeID: "OK", LeaveType: "LSL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("60")},
		// Below floor but under the full tenure milestone: not flagged.
		{EmployeeID: "MID", LeaveType: "LSL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("5")},
	}
	states := BuildState(employees, snapshots, nil, date(t, "2023-06-30"))

	violations := evalSuspiciouslyLow(states, defaultParams())
	require.Len(t, violations, 1)
	require.Equal(t, "LOW", violations[0].EmployeeID)
	require.Equal(t, finding.SeverityMedium, violations[0].Severity)
}

func TestExposureBand(t *testing.T) {
	params := defaultParams()
	employees := []model.Employee{
		{EmployeeID: "FULL", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2010-01-01")},
		{EmployeeID: "NORATE", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2010-01-01")},
	}
	rates := []model.PayRate{
		{EmployeeID: "FULL", HourlyRate: decimal.NullDecimal{Decimal: dec("50"), Valid: true}},
	}
	states := BuildState(employees, nil, rates, date(t, "2023-06-30"))

	low, high := ExposureBand(states, params)
	// 13+ years of service, no balance on record: 3-5 weeks of 38h at $50.
	require.Equal(t, "5700.00", low.StringFixed(2))
	require.Equal(t, "9500.00", high.StringFixed(2))
}

func TestExposureBandOffsetByExistingBalance(t *testing.T) {
	params := defaultParams()
	employees := []model.Employee{
		{EmployeeID: "E1", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2010-01-01")},
	}
	snapshots := []model.SnapshotBalance{
		{EmployeeID: "E1", LeaveType: "LSL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("114")},
	}
	rates := []model.PayRate{
		{EmployeeID: "E1", HourlyRate: decimal.NullDecimal{Decimal: dec("50"), Valid: true}},
	}
	states := BuildState(employees, snapshots, rates, date(t, "2023-06-30"))

	low, high := ExposureBand(states, params)
	// Gap 114..190 hours less the 114 on hand.
	require.Equal(t, "0.00", low.StringFixed(2))
	require.Equal(t, "3800.00", high.StringFixed(2))
}

func TestShortTenureNoExposure(t *testing.T) {
	employees := []model.Employee{
		{EmployeeID: "E1", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2022-01-01")},
	}
	rates := []model.PayRate{
		{EmployeeID: "E1", HourlyRate: decimal.NullDecimal{Decimal: dec("50"), Valid: true}},
	}
	states := BuildState(employees, nil, rates, date(t, "2023-06-30"))
	low, high := ExposureBand(states, defaultParams())
	require.True(t, low.IsZero())
	require.True(t, high.IsZero())
}
