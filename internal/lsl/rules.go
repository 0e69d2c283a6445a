package lsl

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/leavecheck/leavecheck/internal/finding"
	"github.com/leavecheck/leavecheck/internal/load"
	"github.com/leavecheck/leavecheck/internal/model"
)

// Rule codes for the LSL exposure check.
const (
	CodeMissingForEligible finding.RuleCode = "LSL_MISSING_FOR_ELIGIBLE_EMPLOYEE"
	CodeNegativeBalance    finding.RuleCode = "LSL_NEGATIVE_BALANCE"
	CodeZeroForLongTenure  finding.RuleCode = "LSL_ZERO_BALANCE_FOR_LONG_TENURE"
	CodeSuspiciouslyLow    finding.RuleCode = "LSL_BALANCE_SUSPICIOUSLY_LOW"
)

const leaveTypeLSL = "LSL"

// Rule pairs a code with its evaluator, mirroring the leakage registry shape.
type Rule struct {
	Code finding.RuleCode
	Eval func([]State, Params) []finding.Violation
}

// Registry returns the fixed LSL rule set.
func Registry() []Rule {
	return []Rule{
		{Code: CodeMissingForEligible, Eval: evalMissingForEligible},
		{Code: CodeNegativeBalance, Eval: evalNegativeBalance},
		{Code: CodeZeroForLongTenure, Eval: evalZeroForLongTenure},
		{Code: CodeSuspiciouslyLow, Eval: evalSuspiciouslyLow},
	}
}

// EvaluateAll runs every LSL rule over the prepared states.
func EvaluateAll(states []State, params Params) []finding.Violation {
	var out []finding.Violation
	for _, rule := range Registry() {
		out = append(out, rule.Eval(states, params)...)
	}
	return out
}

func (s State) asOf() string {
	if s.HasBalance && !s.AsOfDate.IsZero() {
		return model.FormatDate(s.AsOfDate)
	}
	return model.FormatDate(s.SnapshotDate)
}

func evalMissingForEligible(states []State, params Params) []finding.Violation {
	var out []finding.Violation
	for _, st := range states {
		if st.ServiceYears < params.EligibilityYears || st.HasBalance {
			continue
		}
		asOf := model.FormatDate(st.SnapshotDate)
		out = append(out, finding.Violation{
			Rule:       CodeMissingForEligible,
			Severity:   finding.SeverityHigh,
			EmployeeID: st.Employee.EmployeeID,
			LeaveType:  leaveTypeLSL,
			AsOfDate:   asOf,
			Message:    fmt.Sprintf("Employee has %.1f years of service but no LSL balance record.", st.ServiceYears),
			Evidence: finding.Evidence{
				Sources: []string{load.SourceEmployees, load.SourceSnapshot},
				PrimaryKeys: map[string]string{
					"employee_id": st.Employee.EmployeeID,
					"leave_type":  leaveTypeLSL,
					"as_of_date":  asOf,
				},
				Values: map[string]string{
					"service_years":       fmt.Sprintf("%.2f", st.ServiceYears),
					"lsl_balance_present": "false",
				},
				Thresholds: map[string]string{
					"eligibility_years": fmt.Sprintf("%.1f", params.EligibilityYears),
				},
				Explanation: "Employee has reached the configured LSL eligibility milestone, but no LSL balance record was found in the snapshot.",
			},
			NextAction: "Confirm whether LSL is being tracked outside the payroll system. If not, review historical service records and determine appropriate LSL accruals.",
		})
	}
	return out
}

func evalNegativeBalance(states []State, _ Params) []finding.Violation {
	var out []finding.Violation
	for _, st := range states {
		if !st.HasBalance || !st.BalanceUnits.IsNegative() {
			continue
		}
		asOf := st.asOf()
		out = append(out, finding.Violation{
			Rule:       CodeNegativeBalance,
			Severity:   finding.SeverityHigh,
			EmployeeID: st.Employee.EmployeeID,
			LeaveType:  leaveTypeLSL,
			AsOfDate:   asOf,
			Message:    fmt.Sprintf("LSL balance is negative (%s units).", st.BalanceUnits.StringFixed(2)),
			DiffUnits:  decimal.NullDecimal{Decimal: st.BalanceUnits, Valid: true},
			Evidence: finding.Evidence{
				Sources: []string{load.SourceSnapshot},
				PrimaryKeys: map[string]string{
					"employee_id": st.Employee.EmployeeID,
					"leave_type":  leaveTypeLSL,
					"as_of_date":  asOf,
				},
				Values: map[string]string{
					"lsl_balance_units": st.BalanceUnits.String(),
					"service_years":     fmt.Sprintf("%.2f", st.ServiceYears),
				},
				Thresholds: map[string]string{
					"expected": "lsl_balance_units >= 0",
				},
				Explanation: "Negative LSL balances are usually invalid and indicate data or configuration issues.",
			},
			NextAction: "Review LSL configuration and any manual adjustments. Correct posting or mapping issues and re-run.",
		})
	}
	return out
}

func evalZeroForLongTenure(states []State, params Params) []finding.Violation {
	var out []finding.Violation
	for _, st := range states {
		if st.ServiceYears < params.EligibilityYears || !st.HasBalance || !st.BalanceUnits.IsZero() {
			continue
		}
		asOf := st.asOf()
		out = append(out, finding.Violation{
			Rule:       CodeZeroForLongTenure,
			Severity:   finding.SeverityHigh,
			EmployeeID: st.Employee.EmployeeID,
			LeaveType:  leaveTypeLSL,
			AsOfDate:   asOf,
			Message:    fmt.Sprintf("Employee has %.1f years of service but an LSL balance of 0 units.", st.ServiceYears),
			Evidence: finding.Evidence{
				Sources: []string{load.SourceEmployees, load.SourceSnapshot},
				PrimaryKeys: map[string]string{
					"employee_id": st.Employee.EmployeeID,
					"leave_type":  leaveTypeLSL,
					"as_of_date":  asOf,
				},
				Values: map[string]string{
					"service_years":     fmt.Sprintf("%.2f", st.ServiceYears),
					"lsl_balance_units": st.BalanceUnits.String(),
				},
				Thresholds: map[string]string{
					"eligibility_years": fmt.Sprintf("%.1f", params.EligibilityYears),
				},
				Explanation: "Eligible employees typically accrue some LSL over time; a zero balance may indicate missing configuration or tracking.",
			},
			NextAction: "Confirm whether LSL has been intentionally excluded or whether accruals have not been configured for this employee.",
		})
	}
	return out
}

func evalSuspiciouslyLow(states []State, params Params) []finding.Violation {
	var out []finding.Violation
	for _, st := range states {
		if st.ServiceYears < params.FullYears || !st.HasBalance {
			continue
		}
		if st.BalanceUnits.GreaterThanOrEqual(params.LowFloorUnits) {
			continue
		}
		asOf := st.asOf()
		out = append(out, finding.Violation{
			Rule:       CodeSuspiciouslyLow,
			Severity:   finding.SeverityMedium,
			EmployeeID: st.Employee.EmployeeID,
			LeaveType:  leaveTypeLSL,
			AsOfDate:   asOf,
			Message: fmt.Sprintf("Employee has %.1f years of service but only %s units of LSL.",
				st.ServiceYears, st.BalanceUnits.StringFixed(2)),
			Evidence: finding.Evidence{
				Sources: []string{load.SourceEmployees, load.SourceSnapshot},
				PrimaryKeys: map[string]string{
					"employee_id": st.Employee.EmployeeID,
					"leave_type":  leaveTypeLSL,
					"as_of_date":  asOf,
				},
				Values: map[string]string{
					"service_years":     fmt.Sprintf("%.2f", st.ServiceYears),
					"lsl_balance_units": st.BalanceUnits.String(),
				},
				Thresholds: map[string]string{
					"full_entitlement_reference_years": fmt.Sprintf("%.1f", params.FullYears),
					"low_balance_floor_units":          params.LowFloorUnits.String(),
				},
				Explanation: "Long-tenured employees usually hold more LSL; a very low balance may indicate configuration or data issues.",
			},
			NextAction: "Review LSL accrual rules and historical balances to confirm whether the low balance is expected for this employee.",
		})
	}
	return out
}
