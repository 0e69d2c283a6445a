package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leavecheck/leavecheck/internal/finding"
	"github.com/leavecheck/leavecheck/internal/model"
)

func TestScreenUnresolvedReferences(t *testing.T) {
	employees := []model.Employee{
		{EmployeeID: "E1", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2020-01-01")},
	}
	events := []model.LedgerEvent{
		{EmployeeID: "E1", LeaveType: "ANNUAL", EventDate: date(t, "2023-01-31"), Units: dec("8"), EventType: model.EventAccrual},
		{EmployeeID: "GHOST", LeaveType: "ANNUAL", EventDate: date(t, "2023-01-31"), Units: dec("8"), EventType: model.EventAccrual},
	}
	snapshots := []model.SnapshotBalance{
		{EmployeeID: "E1", LeaveType: "ANNUAL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("8")},
		{EmployeeID: "PHANTOM", LeaveType: "ANNUAL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("8")},
	}

	screened := Screen(employees, events, snapshots)

	// The offending rows survive for rules that do not need the join.
	require.Len(t, screened.Ledger, 2)
	require.Len(t, screened.Snapshots, 2)

	require.Len(t, screened.DataQuality, 2)
	for _, v := range screened.DataQuality {
		require.Equal(t, CodeUnresolvedEmployee, v.Rule)
		require.Equal(t, finding.SeverityLow, v.Severity)
	}
	require.Equal(t, "GHOST", screened.DataQuality[0].EmployeeID)
	require.Equal(t, "PHANTOM", screened.DataQuality[1].EmployeeID)
}

func TestScreenDuplicateSnapshots(t *testing.T) {
	employees := []model.Employee{
		{EmployeeID: "E1", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2020-01-01")},
	}
	snapshots := []model.SnapshotBalance{
		{EmployeeID: "E1", LeaveType: "ANNUAL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("10")},
		{EmployeeID: "E1", LeaveType: "ANNUAL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("12")},
		{EmployeeID: "E1", LeaveType: "PERSONAL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("5")},
	}

	screened := Screen(employees, nil, snapshots)

	// First row per key wins; the extra row surfaces as a finding.
	require.Len(t, screened.Snapshots, 2)
	require.Equal(t, "10", screened.Snapshots[0].BalanceUnits.String())
	require.Len(t, screened.DataQuality, 1)
	v := screened.DataQuality[0]
	require.Equal(t, CodeDuplicateSnapshot, v.Rule)
	require.Equal(t, finding.SeverityLow, v.Severity)
	require.Equal(t, "12", v.Evidence.PrimaryKeys["balance_units"])
}

func TestScreenCleanInputsNoViolations(t *testing.T) {
	employees := []model.Employee{
		{EmployeeID: "E1", EmploymentType: model.EmploymentFullTime, StartDate: date(t, "2020-01-01")},
	}
	events := []model.LedgerEvent{
		{EmployeeID: "E1", LeaveType: "ANNUAL", EventDate: date(t, "2023-01-31"), Units: dec("8"), EventType: model.EventAccrual},
	}
	snapshots := []model.SnapshotBalance{
		{EmployeeID: "E1", LeaveType: "ANNUAL", AsOfDate: date(t, "2023-06-30"), BalanceUnits: dec("8")},
	}
	screened := Screen(employees, events, snapshots)
	require.Empty(t, screened.DataQuality)
	require.Len(t, screened.Employees, 1)
}
