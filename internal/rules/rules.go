// Package rules evaluates the leave leakage integrity rules. The rule set is
// a closed registry of pure evaluators over read-only inputs: no dynamic
// discovery, no shared state, no ordering dependence between rules.
package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/leavecheck/leavecheck/internal/finding"
	"github.com/leavecheck/leavecheck/internal/load"
	"github.com/leavecheck/leavecheck/internal/model"
	"github.com/leavecheck/leavecheck/internal/recon"
)

// Rule codes for the leakage check.
const (
	CodeNegativeBalance  finding.RuleCode = "NEGATIVE_BALANCE"
	CodeEventSignAnomaly finding.RuleCode = "EVENT_SIGN_ANOMALY"
	CodeTakenBeforeStart finding.RuleCode = "TAKEN_BEFORE_START_DATE"
	CodeCasualAccrual    finding.RuleCode = "CASUAL_ACCRUAL_PRESENT"
	CodeBalanceMismatch  finding.RuleCode = "BALANCE_MISMATCH_LEDGER_VS_SNAPSHOT"
)

// Inputs is the read-only bundle every rule evaluates against. Ledger holds
// every event, including rows whose employee could not be resolved; rules
// that join on the employee master skip those rows (Screen surfaces them as
// their own data-quality findings).
type Inputs struct {
	Employees map[string]model.Employee
	Ledger    []model.LedgerEvent
	Snapshots []model.SnapshotBalance
	Recon     []recon.Row
	Tolerance decimal.Decimal
}

// Rule pairs a code with its evaluator.
type Rule struct {
	Code finding.RuleCode
	Eval func(Inputs) []finding.Violation
}

// Registry returns the fixed rule set. Evaluation order does not affect
// output content; the finding builder imposes the canonical order.
func Registry() []Rule {
	return []Rule{
		{Code: CodeNegativeBalance, Eval: evalNegativeBalance},
		{Code: CodeEventSignAnomaly, Eval: evalEventSignAnomaly},
		{Code: CodeTakenBeforeStart, Eval: evalTakenBeforeStart},
		{Code: CodeCasualAccrual, Eval: evalCasualAccrual},
		{Code: CodeBalanceMismatch, Eval: evalBalanceMismatch},
	}
}

// EvaluateAll runs every registered rule and concatenates the violations.
func EvaluateAll(in Inputs) []finding.Violation {
	var out []finding.Violation
	for _, rule := range Registry() {
		out = append(out, rule.Eval(in)...)
	}
	return out
}

func evalNegativeBalance(in Inputs) []finding.Violation {
	var out []finding.Violation
	for _, snap := range in.Snapshots {
		if !snap.BalanceUnits.IsNegative() {
			continue
		}
		asOf := model.FormatDate(snap.AsOfDate)
		out = append(out, finding.Violation{
			Rule:       CodeNegativeBalance,
			Severity:   finding.SeverityHigh,
			EmployeeID: snap.EmployeeID,
			LeaveType:  snap.LeaveType,
			AsOfDate:   asOf,
			Message:    fmt.Sprintf("Snapshot balance is negative (%s).", snap.BalanceUnits),
			DiffUnits:  decimal.NullDecimal{Decimal: snap.BalanceUnits, Valid: true},
			Evidence: finding.Evidence{
				Sources: []string{load.SourceSnapshot},
				PrimaryKeys: map[string]string{
					"employee_id": snap.EmployeeID,
					"leave_type":  snap.LeaveType,
					"as_of_date":  asOf,
				},
				Values: map[string]string{
					"balance_units": snap.BalanceUnits.String(),
				},
				Thresholds: map[string]string{
					"expected": "balance_units >= 0",
				},
				Explanation: "A negative reported balance usually indicates over-taken leave or a posting error.",
			},
			NextAction: "Review leave postings for this balance and correct the snapshot or the underlying transactions.",
		})
	}
	return out
}

func evalEventSignAnomaly(in Inputs) []finding.Violation {
	var out []finding.Violation
	for _, event := range in.Ledger {
		bad := (event.EventType == model.EventTaken && event.Units.IsPositive()) ||
			(event.EventType == model.EventAccrual && event.Units.IsNegative())
		if !bad {
			continue
		}
		date := model.FormatDate(event.EventDate)
		out = append(out, finding.Violation{
			Rule:       CodeEventSignAnomaly,
			Severity:   finding.SeverityMedium,
			EmployeeID: event.EmployeeID,
			LeaveType:  event.LeaveType,
			AsOfDate:   date,
			Message:    fmt.Sprintf("%s event has unexpected sign (%s).", event.EventType, event.Units),
			Evidence: finding.Evidence{
				Sources: []string{load.SourceLedger},
				PrimaryKeys: map[string]string{
					"employee_id": event.EmployeeID,
					"leave_type":  event.LeaveType,
					"event_date":  date,
					"units":       event.Units.String(),
				},
				Values: map[string]string{
					"event_type": string(event.EventType),
					"units":      event.Units.String(),
				},
				Thresholds: map[string]string{
					"expected": "ACCRUAL units > 0, TAKEN units < 0",
				},
				Explanation: "Event sign disagrees with its event type, so the ledger replay cannot be trusted for this key.",
			},
			NextAction: "Confirm whether the event was keyed with the wrong sign or the wrong event type, and correct the ledger entry.",
		})
	}
	return out
}

func evalTakenBeforeStart(in Inputs) []finding.Violation {
	var out []finding.Violation
	for _, event := range in.Ledger {
		if event.EventType != model.EventTaken {
			continue
		}
		emp, ok := in.Employees[event.EmployeeID]
		if !ok {
			// Unknown employee: surfaced by Screen, not evaluable here.
			continue
		}
		if !event.EventDate.Before(emp.StartDate) {
			continue
		}
		date := model.FormatDate(event.EventDate)
		start := model.FormatDate(emp.StartDate)
		out = append(out, finding.Violation{
			Rule:       CodeTakenBeforeStart,
			Severity:   finding.SeverityHigh,
			EmployeeID: event.EmployeeID,
			LeaveType:  event.LeaveType,
			AsOfDate:   date,
			Message:    fmt.Sprintf("Leave TAKEN on %s is before employee start date %s.", date, start),
			Evidence: finding.Evidence{
				Sources: []string{load.SourceLedger, load.SourceEmployees},
				PrimaryKeys: map[string]string{
					"employee_id": event.EmployeeID,
					"leave_type":  event.LeaveType,
					"event_date":  date,
					"units":       event.Units.String(),
				},
				Values: map[string]string{
					"event_date": date,
					"start_date": start,
					"units":      event.Units.String(),
				},
				Explanation: "Leave cannot be taken before the employment start date; one of the two records is wrong.",
			},
			NextAction: "Verify the employee start date and the event date; correct whichever record is wrong.",
		})
	}
	return out
}

func evalCasualAccrual(in Inputs) []finding.Violation {
	var out []finding.Violation
	for _, event := range in.Ledger {
		if event.EventType != model.EventAccrual {
			continue
		}
		emp, ok := in.Employees[event.EmployeeID]
		if !ok || emp.EmploymentType != model.EmploymentCasual {
			continue
		}
		date := model.FormatDate(event.EventDate)
		out = append(out, finding.Violation{
			Rule:       CodeCasualAccrual,
			Severity:   finding.SeverityHigh,
			EmployeeID: event.EmployeeID,
			LeaveType:  event.LeaveType,
			AsOfDate:   date,
			Message:    "Casual employee has leave accrual event.",
			Evidence: finding.Evidence{
				Sources: []string{load.SourceLedger, load.SourceEmployees},
				PrimaryKeys: map[string]string{
					"employee_id": event.EmployeeID,
					"leave_type":  event.LeaveType,
					"event_date":  date,
					"units":       event.Units.String(),
				},
				Values: map[string]string{
					"employment_type": string(emp.EmploymentType),
					"units":           event.Units.String(),
				},
				Explanation: "Casual employees are generally paid loading in lieu of leave and should not accrue it.",
			},
			NextAction: "Confirm the employment type; reclassify the employee or reverse the accruals.",
		})
	}
	return out
}

func evalBalanceMismatch(in Inputs) []finding.Violation {
	var out []finding.Violation
	for _, row := range in.Recon {
		if !row.RiskFlag {
			continue
		}
		asOf := model.FormatDate(row.AsOfDate)
		values := map[string]string{
			"derived_balance": row.DerivedBalance.String(),
			"balance_units":   row.BalanceUnits.String(),
			"event_count":     fmt.Sprintf("%d", row.EventCount),
		}
		if !row.HasSnapshot {
			values["snapshot_present"] = "false"
		}
		if row.EventCount == 0 {
			// Zero-aggregate keys are reviewable but must not read like a
			// ledger fault to reviewers.
			values["ledger_coverage"] = "no ledger events on or before as_of_date"
		}
		out = append(out, finding.Violation{
			Rule:       CodeBalanceMismatch,
			Severity:   finding.SeverityHigh,
			EmployeeID: row.Key.EmployeeID,
			LeaveType:  row.Key.LeaveType,
			AsOfDate:   asOf,
			Message: fmt.Sprintf("Ledger-derived balance (%s) does not match snapshot balance (%s).",
				row.DerivedBalance, row.BalanceUnits),
			DiffUnits: decimal.NullDecimal{Decimal: row.DiffUnits, Valid: true},
			Evidence: finding.Evidence{
				Sources: []string{load.SourceLedger, load.SourceSnapshot},
				PrimaryKeys: map[string]string{
					"employee_id": row.Key.EmployeeID,
					"leave_type":  row.Key.LeaveType,
					"as_of_date":  asOf,
				},
				Values: values,
				Thresholds: map[string]string{
					"tolerance_units": in.Tolerance.String(),
				},
				Explanation: row.RiskReason,
			},
			NextAction: "Replay the ledger for this key and reconcile against the snapshot; investigate missing or duplicated events.",
		})
	}
	return out
}
