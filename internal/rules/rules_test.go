package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/leavecheck/leavecheck/internal/finding"
	"github.com/leavecheck/leavecheck/internal/model"
	"github.com/leavecheck/leavecheck/internal/recon"
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

func employeeIndex(employees ...model.Employee) map[string]model.Employee {
	index := make(map[string]model.Employee, len(employees))
	for _, emp := range employees {
		index[emp.EmployeeID] = emp
	}
	return index
}

func TestNegativeBalanceRule(t *testing.T) {
	in := Inputs{
		Snapshots: []model.SnapshotBalance{
			{EmployeeID: "E2", LeaveType: "ANNUAL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("-4.0")},
			{EmployeeID: "E3", LeaveType: "ANNUAL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("10")},
		},
	}
	violations := evalNegativeBalance(in)
	require.Len(t, violations, 1)
	v := violations[0]
	require.Equal(t, CodeNegativeBalance, v.Rule)
	require.Equal(t, finding.SeverityHigh, v.Severity)
	require.Equal(t, "E2", v.EmployeeID)
	require.Equal(t, "ANNUAL", v.LeaveType)
	require.True(t, v.DiffUnits.Valid)
	require.Equal(t, "-4", v.DiffUnits.Decimal.String())
	require.Equal(t, "E2", v.Evidence.PrimaryKeys["employee_id"])
}

func TestEventSignAnomalyRule(t *testing.T) {
	in := Inputs{
		Ledger: []model.LedgerEvent{
			{EmployeeID: "E1", LeaveType: "ANNUAL", EventDate: date(t, "2023-02-01"), Units: dec("8"), EventType: model.EventTaken},
			{EmployeeID: "E1", LeaveType: "ANNUAL", EventDate: date(t, "2023-03-01"), Units: dec("-8"), EventType: model.EventAccrual},
			{EmployeeID: "E1", LeaveType: "ANNUAL", EventDate: date(t, "2023-04-01"), Units: dec("8"), EventType: model.EventAccrual},
			{EmployeeID: "E1", LeaveType: "ANNUAL", EventDate: date(t, "2023-05-01"), Units: dec("-8"), EventType: model.EventTaken},
		},
	}
	violations := evalEventSignAnomaly(in)
	require.Len(t, violations, 2)
	for _, v := range violations {
		require.Equal(t, finding.SeverityMedium, v.Severity)
	}
}

func TestTakenBeforeStartRule(t *testing.T) {
	employees := employeeIndex(model.Employee{
		EmployeeID:     "E4",
		EmploymentType: model.EmploymentFullTime,
		StartDate:      date(t, "2023-01-01"),
	})

	t.Run("event before start date triggers", func(t *testing.T) {
		in := Inputs{
			Employees: employees,
			Ledger: []model.LedgerEvent{
				{EmployeeID: "E4", LeaveType: "ANNUAL", EventDate: date(t, "2022-12-20"), Units: dec("-8"), EventType: model.EventTaken},
			},
		}
		violations := evalTakenBeforeStart(in)
		require.Len(t, violations, 1)
		require.Equal(t, "Leave TAKEN on 2022-12-20 is before employee start date 2023-01-01.", violations[0].Message)
	})

	t.Run("event on start date does not trigger", func(t *testing.T) {
		in := Inputs{
			Employees: employees,
			Ledger: []model.LedgerEvent{
				{EmployeeID: "E4", LeaveType: "ANNUAL", EventDate: date(t, "2023-01-01"), Units: dec("-8"), EventType: model.EventTaken},
			},
		}
		require.Empty(t, evalTakenBeforeStart(in))
	})

	t.Run("unknown employee is skipped", func(t *testing.T) {
		in := Inputs{
			Employees: employees,
			Ledger: []model.LedgerEvent{
				{EmployeeID: "GHOST", LeaveType: "ANNUAL", EventDate: date(t, "2000-01-01"), Units: dec("-8"), EventType: model.EventTaken},
			},
		}
		require.Empty(t, evalTakenBeforeStart(in))
	})
}

func TestCasualAccrualRule(t *testing.T) {
	employees := employeeIndex(
		model.Employee{EmployeeID: "E1", EmploymentType: model.EmploymentCasual, StartDate: date(t, "2023-01-01")},
		model.Employee{EmployeeID: "E2", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2020-01-01")},
	)
	in := Inputs{
		Employees: employees,
		Ledger: []model.LedgerEvent{
			{EmployeeID: "E1", LeaveType: "ANNUAL", EventDate: date(t, "2023-06-01"), Units: dec("8"), EventType: model.EventAccrual},
			{EmployeeID: "E2", LeaveType: "ANNUAL", EventDate: date(t, "2023-06-01"), Units: dec("8"), EventType: model.EventAccrual},
			{EmployeeID: "E1", LeaveType: "ANNUAL", EventDate: date(t, "2023-07-01"), Units: dec("-8"), EventType: model.EventTaken},
		},
	}
	violations := evalCasualAccrual(in)
	require.Len(t, violations, 1)
	v := violations[0]
	require.Equal(t, CodeCasualAccrual, v.Rule)
	require.Equal(t, finding.SeverityHigh, v.Severity)
	require.Equal(t, "E1", v.EmployeeID)
}

func TestBalanceMismatchRuleUsesSharedReconRows(t *testing.T) {
	rows := []recon.Row{
		{
			Key:            model.Key{EmployeeID: "E3", LeaveType: "ANNUAL"},
			AsOfDate:       date(t, "2023-06-30"),
			HasSnapshot:    true,
			DerivedBalance: dec("40"),
			BalanceUnits:   dec("40.5"),
			DiffUnits:      dec("-0.5"),
			EventCount:     3,
			RiskFlag:       true,
			RiskReason:     "snapshot exceeds ledger by 0.50 units",
		},
		{
			Key:             model.Key{EmployeeID: "E4", LeaveType: "ANNUAL"},
			HasSnapshot:     true,
			WithinTolerance: true,
		},
	}
	in := Inputs{Recon: rows, Tolerance: dec("0.1")}
	violations := evalBalanceMismatch(in)
	require.Len(t, violations, 1)
	v := violations[0]
	require.Equal(t, CodeBalanceMismatch, v.Rule)
	require.Equal(t, "-0.5", v.DiffUnits.Decimal.String())
	require.Equal(t, "0.1", v.Evidence.Thresholds["tolerance_units"])
	require.Equal(t, "snapshot exceeds ledger by 0.50 units", v.Evidence.Explanation)
}

func TestRuleIndependenceOneRecordManyFindings(t *testing.T) {
	// A casual employee with a positive TAKEN event before their start date
	// trips sign anomaly and taken-before-start at once; both are retained.
	employees := employeeIndex(model.Employee{
		EmployeeID:     "E7",
		EmploymentType: model.EmploymentCasual,
		StartDate:      date(t, "2023-01-01"),
	})
	in := Inputs{
		Employees: employees,
		Ledger: []model.LedgerEvent{
			{EmployeeID: "E7", LeaveType: "ANNUAL", EventDate: date(t, "2022-06-01"), Units: dec("8"), EventType: model.EventTaken},
		},
	}
	violations := EvaluateAll(in)
	codes := make(map[finding.RuleCode]int)
	for _, v := range violations {
		codes[v.Rule]++
	}
	require.Equal(t, 1, codes[CodeEventSignAnomaly])
	require.Equal(t, 1, codes[CodeTakenBeforeStart])
}

func TestRegistryIsClosed(t *testing.T) {
	codes := make([]finding.RuleCode, 0, 5)
	for _, rule := range Registry() {
		codes = append(codes, rule.Code)
	}
	require.Equal(t, []finding.RuleCode{
		CodeNegativeBalance,
		CodeEventSignAnomaly,
		CodeTakenBeforeStart,
		CodeCasualAccrual,
		CodeBalanceMismatch,
	}, codes)
}
