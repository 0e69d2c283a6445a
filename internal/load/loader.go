// Package load parses the flat extracts into typed records. Any structural
// problem (missing column, unparseable date or number, unknown enum value) is
// fatal: the loader returns an error and the run produces no output, since
// every downstream number would be untrustworthy.
package load

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/leavecheck/leavecheck/internal/model"
)

var validate = validator.New()

// Extract names used in error messages and finding evidence.
const (
	SourceEmployees = "employees.csv"
	SourceLedger    = "leave_ledger.csv"
	SourceSnapshot  = "balances_snapshot.csv"
	SourcePayRates  = "pay_rates.csv"
)

type table struct {
	name string
	cols map[string]int
	rows [][]string
}

func readTable(path, name string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	cols := make(map[string]int, len(header))
	for i, col := range header {
		cols[strings.TrimSpace(col)] = i
	}
	var missing []string
	for _, col := range required {
		if _, ok := cols[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%s: missing required columns: %s", name, strings.Join(missing, ", "))
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		rows = append(rows, record)
	}
	return &table{name: name, cols: cols, rows: rows}, nil
}

func (t *table) get(row []string, col string) string {
	idx, ok := t.cols[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseDate(value string) (time.Time, error) {
	return time.Parse(model.DateFormat, value)
}

type employeeRow struct {
	EmployeeID     string `validate:"required"`
	EmploymentType string `validate:"required,oneof=CASUAL FULL_TIME PART_TIME"`
	StartDate      string `validate:"required"`
}

// Employees loads and validates the employee master extract.
func Employees(path string) ([]model.Employee, error) {
	t, err := readTable(path, SourceEmployees, []string{"employee_id", "employment_type", "fte", "start_date"})
	if err != nil {
		return nil, err
	}
	out := make([]model.Employee, 0, len(t.rows))
	for i, row := range t.rows {
		raw := employeeRow{
			EmployeeID:     t.get(row, "employee_id"),
			EmploymentType: t.get(row, "employment_type"),
			StartDate:      t.get(row, "start_date"),
		}
		if err := validate.Struct(raw); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.name, i+2, err)
		}
		start, err := parseDate(raw.StartDate)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: start_date: %w", t.name, i+2, err)
		}
		emp := model.Employee{
			EmployeeID:     raw.EmployeeID,
			EmploymentType: model.EmploymentType(raw.EmploymentType),
			StartDate:      start,
		}
		fteRaw := t.get(row, "fte")
		if fteRaw == "" {
			if emp.EmploymentType != model.EmploymentCasual {
				return nil, fmt.Errorf("%s row %d: fte is required for %s employees", t.name, i+2, emp.EmploymentType)
			}
		} else {
			fte, err := decimal.NewFromString(fteRaw)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: fte: %w", t.name, i+2, err)
			}
			if fte.IsNegative() || fte.GreaterThan(decimal.NewFromInt(1)) {
				return nil, fmt.Errorf("%s row %d: fte %s outside [0,1]", t.name, i+2, fte)
			}
			emp.FTE = decimal.NullDecimal{Decimal: fte, Valid: true}
		}
		out = append(out, emp)
	}
	return out, nil
}

type ledgerRow struct {
	EmployeeID string `validate:"required"`
	LeaveType  string `validate:"required"`
	EventDate  string `validate:"required"`
	Units      string `validate:"required"`
	EventType  string `validate:"required,oneof=ACCRUAL TAKEN"`
}

// Ledger loads and validates the leave event ledger extract.
func Ledger(path string) ([]model.LedgerEvent, error) {
	t, err := readTable(path, SourceLedger, []string{"employee_id", "leave_type", "event_date", "units", "event_type"})
	if err != nil {
		return nil, err
	}
	out := make([]model.LedgerEvent, 0, len(t.rows))
	for i, row := range t.rows {
		raw := ledgerRow{
			EmployeeID: t.get(row, "employee_id"),
			LeaveType:  t.get(row, "leave_type"),
			EventDate:  t.get(row, "event_date"),
			Units:      t.get(row, "units"),
			EventType:  t.get(row, "event_type"),
		}
		if err := validate.Struct(raw); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.name, i+2, err)
		}
		date, err := parseDate(raw.EventDate)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: event_date: %w", t.name, i+2, err)
		}
		units, err := decimal.NewFromString(raw.Units)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: units: %w", t.name, i+2, err)
		}
		out = append(out, model.LedgerEvent{
			EmployeeID: raw.EmployeeID,
			LeaveType:  raw.LeaveType,
			EventDate:  date,
			Units:      units,
			EventType:  model.EventType(raw.EventType),
		})
	}
	return out, nil
}

type snapshotRow struct {
	EmployeeID   string `validate:"required"`
	LeaveType    string `validate:"required"`
	AsOfDate     string `validate:"required"`
	BalanceUnits string `validate:"required"`
}

// Snapshots loads and validates the balance snapshot extract.
func Snapshots(path string) ([]model.SnapshotBalance, error) {
	t, err := readTable(path, SourceSnapshot, []string{"employee_id", "leave_type", "as_of_date", "balance_units"})
	if err != nil {
		return nil, err
	}
	out := make([]model.SnapshotBalance, 0, len(t.rows))
	for i, row := range t.rows {
		raw := snapshotRow{
			EmployeeID:   t.get(row, "employee_id"),
			LeaveType:    t.get(row, "leave_type"),
			AsOfDate:     t.get(row, "as_of_date"),
			BalanceUnits: t.get(row, "balance_units"),
		}
		if err := validate.Struct(raw); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", t.name, i+2, err)
		}
		date, err := parseDate(raw.AsOfDate)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: as_of_date: %w", t.name, i+2, err)
		}
		balance, err := decimal.NewFromString(raw.BalanceUnits)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: balance_units: %w", t.name, i+2, err)
		}
		out = append(out, model.SnapshotBalance{
			EmployeeID:   raw.EmployeeID,
			LeaveType:    raw.LeaveType,
			AsOfDate:     date,
			BalanceUnits: balance,
		})
	}
	return out, nil
}

// PayRates loads the optional pay rate extract. A missing file is not an
// error; exposure sizing simply skips employees without a rate.
func PayRates(path string) ([]model.PayRate, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	t, err := readTable(path, SourcePayRates, []string{"employee_id"})
	if err != nil {
		return nil, err
	}
	out := make([]model.PayRate, 0, len(t.rows))
	for i, row := range t.rows {
		rate := model.PayRate{EmployeeID: t.get(row, "employee_id")}
		if rate.EmployeeID == "" {
			return nil, fmt.Errorf("%s row %d: employee_id is required", t.name, i+2)
		}
		if raw := t.get(row, "as_of_date"); raw != "" {
			date, err := parseDate(raw)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: as_of_date: %w", t.name, i+2, err)
			}
			rate.AsOfDate = date
		}
		if raw := t.get(row, "hourly_rate"); raw != "" {
			hourly, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: hourly_rate: %w", t.name, i+2, err)
			}
			rate.HourlyRate = decimal.NullDecimal{Decimal: hourly, Valid: true}
		}
		if raw := t.get(row, "annual_salary"); raw != "" {
			salary, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: annual_salary: %w", t.name, i+2, err)
			}
			rate.AnnualSalary = decimal.NullDecimal{Decimal: salary, Valid: true}
		}
		out = append(out, rate)
	}
	return out, nil
}
