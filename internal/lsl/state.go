// Package lsl runs the long service leave exposure check: per-employee
// tenure against the latest reported LSL balance, plus an indicative-only
// dollar exposure band. It is deliberately heuristic — no statutory or
// enterprise-agreement entitlement computation happens here.
package lsl

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leavecheck/leavecheck/internal/model"
)

// Params are the review thresholds for the LSL check.
type Params struct {
	EligibilityYears float64
	FullYears        float64
	HoursPerDay      float64
	LowFloorUnits    decimal.Decimal
}

// State is the prepared per-employee view the LSL rules evaluate.
type State struct {
	Employee     model.Employee
	SnapshotDate time.Time
	ServiceYears float64
	HasBalance   bool
	AsOfDate     time.Time
	BalanceUnits decimal.Decimal
	HourlyRate   decimal.NullDecimal
}

const hoursPerYear = 38.0 * 52.0

// BuildState joins the employee master with the latest LSL snapshot row per
// employee (leave types containing "LSL") and the optional pay rates.
// snapshotDate is the reporting date service years are measured to. Output is
// ordered by employee id.
func BuildState(employees []model.Employee, snapshots []model.SnapshotBalance, rates []model.PayRate, snapshotDate time.Time) []State {
	latest := make(map[string]model.SnapshotBalance)
	for _, snap := range snapshots {
		if !strings.Contains(strings.ToUpper(snap.LeaveType), "LSL") {
			continue
		}
		prev, ok := latest[snap.EmployeeID]
		if !ok || !snap.AsOfDate.Before(prev.AsOfDate) {
			latest[snap.EmployeeID] = snap
		}
	}

	hourly := make(map[string]decimal.NullDecimal)
	latestRate := make(map[string]time.Time)
	for _, rate := range rates {
		if when, ok := latestRate[rate.EmployeeID]; ok && rate.AsOfDate.Before(when) {
			continue
		}
		latestRate[rate.EmployeeID] = rate.AsOfDate
		switch {
		case rate.HourlyRate.Valid:
			hourly[rate.EmployeeID] = rate.HourlyRate
		case rate.AnnualSalary.Valid:
			hourly[rate.EmployeeID] = decimal.NullDecimal{
				Decimal: rate.AnnualSalary.Decimal.DivRound(decimal.NewFromFloat(hoursPerYear), 4),
				Valid:   true,
			}
		}
	}

	states := make([]State, 0, len(employees))
	for _, emp := range employees {
		st := State{
			Employee:     emp,
			SnapshotDate: snapshotDate,
			ServiceYears: serviceYears(emp.StartDate, snapshotDate),
			HourlyRate:   hourly[emp.EmployeeID],
		}
		if snap, ok := latest[emp.EmployeeID]; ok {
			st.HasBalance = true
			st.AsOfDate = snap.AsOfDate
			st.BalanceUnits = snap.BalanceUnits
		}
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Employee.EmployeeID < states[j].Employee.EmployeeID
	})
	return states
}

func serviceYears(start, until time.Time) float64 {
	if start.IsZero() || !start.Before(until) {
		return 0
	}
	days := until.Sub(start).Hours() / 24
	return days / 365.25
}
