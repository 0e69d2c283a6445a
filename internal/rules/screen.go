package rules

import (
	"fmt"

	"github.com/leavecheck/leavecheck/internal/finding"
	"github.com/leavecheck/leavecheck/internal/load"
	"github.com/leavecheck/leavecheck/internal/model"
)

// Data-quality codes. These never abort the run; the offending rows are
// excluded from the rules that cannot resolve them and surface as their own
// low-severity findings instead of disappearing silently.
const (
	CodeUnresolvedEmployee finding.RuleCode = "UNRESOLVED_EMPLOYEE_REFERENCE"
	CodeDuplicateSnapshot  finding.RuleCode = "DUPLICATE_SNAPSHOT_ROW"
)

// Screened is the pre-evaluation view of the three extracts: an employee
// index for join rules, the canonical one-row-per-key snapshot set, and the
// data-quality violations observed while screening.
type Screened struct {
	Employees   map[string]model.Employee
	Ledger      []model.LedgerEvent
	Snapshots   []model.SnapshotBalance
	DataQuality []finding.Violation
}

// Screen indexes the employee master, deduplicates snapshots to the first row
// per key in input order, and records unresolved employee references from
// both the ledger and the snapshot. Ledger events with unknown employees stay
// in Ledger: aggregation and the sign rule do not need the employee master.
func Screen(employees []model.Employee, events []model.LedgerEvent, snapshots []model.SnapshotBalance) Screened {
	index := make(map[string]model.Employee, len(employees))
	for _, emp := range employees {
		index[emp.EmployeeID] = emp
	}

	s := Screened{Employees: index, Ledger: events}

	for _, event := range events {
		if _, ok := index[event.EmployeeID]; ok {
			continue
		}
		s.DataQuality = append(s.DataQuality, unresolvedViolation(
			load.SourceLedger,
			event.EmployeeID,
			event.LeaveType,
			model.FormatDate(event.EventDate),
			map[string]string{
				"event_type": string(event.EventType),
				"units":      event.Units.String(),
			},
			fmt.Sprintf("Ledger event references unknown employee %s.", event.EmployeeID),
		))
	}

	seen := make(map[model.Key]bool, len(snapshots))
	for _, snap := range snapshots {
		if _, ok := index[snap.EmployeeID]; !ok {
			s.DataQuality = append(s.DataQuality, unresolvedViolation(
				load.SourceSnapshot,
				snap.EmployeeID,
				snap.LeaveType,
				model.FormatDate(snap.AsOfDate),
				map[string]string{
					"balance_units": snap.BalanceUnits.String(),
				},
				fmt.Sprintf("Snapshot row references unknown employee %s.", snap.EmployeeID),
			))
		}
		key := snap.Key()
		if seen[key] {
			asOf := model.FormatDate(snap.AsOfDate)
			s.DataQuality = append(s.DataQuality, finding.Violation{
				Rule:       CodeDuplicateSnapshot,
				Severity:   finding.SeverityLow,
				EmployeeID: snap.EmployeeID,
				LeaveType:  snap.LeaveType,
				AsOfDate:   asOf,
				Message:    fmt.Sprintf("Duplicate snapshot row for key %s.", key),
				Evidence: finding.Evidence{
					Sources: []string{load.SourceSnapshot},
					PrimaryKeys: map[string]string{
						"employee_id":   snap.EmployeeID,
						"leave_type":    snap.LeaveType,
						"as_of_date":    asOf,
						"balance_units": snap.BalanceUnits.String(),
					},
					Values: map[string]string{
						"balance_units": snap.BalanceUnits.String(),
					},
					Explanation: "Only one snapshot row per (employee, leave type) is expected; the first row in input order was reconciled.",
				},
				NextAction: "Remove or merge the duplicate snapshot rows; only the first row was reconciled.",
			})
			continue
		}
		seen[key] = true
		s.Snapshots = append(s.Snapshots, snap)
	}
	return s
}

func unresolvedViolation(source, employeeID, leaveType, date string, values map[string]string, message string) finding.Violation {
	return finding.Violation{
		Rule:       CodeUnresolvedEmployee,
		Severity:   finding.SeverityLow,
		EmployeeID: employeeID,
		LeaveType:  leaveType,
		AsOfDate:   date,
		Message:    message,
		Evidence: finding.Evidence{
			Sources: []string{source, load.SourceEmployees},
			PrimaryKeys: map[string]string{
				"source":      source,
				"employee_id": employeeID,
				"leave_type":  leaveType,
				"date":        date,
			},
			Values:      values,
			Explanation: "The referenced employee id has no row in the employee master, so employee-join rules skipped this record.",
		},
		NextAction: "Locate the employee master record or correct the employee id on the referencing rows.",
	}
}
