package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EmploymentType classifies how an employee is engaged.
type EmploymentType string

const (
	EmploymentCasual   EmploymentType = "CASUAL"
	EmploymentFullTime EmploymentType = "FULL_TIME"
	EmploymentPartTime EmploymentType = "PART_TIME"
)

// Valid reports whether the employment type is a known value.
func (t EmploymentType) Valid() bool {
	switch t {
	case EmploymentCasual, EmploymentFullTime, EmploymentPartTime:
		return true
	}
	return false
}

// EventType classifies a ledger movement.
type EventType string

const (
	EventAccrual EventType = "ACCRUAL"
	EventTaken   EventType = "TAKEN"
)

// Valid reports whether the event type is a known value.
func (t EventType) Valid() bool {
	return t == EventAccrual || t == EventTaken
}

// Key is the composite (employee, leave type) key used throughout
// aggregation and reconciliation.
type Key struct {
	EmployeeID string
	LeaveType  string
}

// Less orders keys by employee id then leave type.
func (k Key) Less(other Key) bool {
	if k.EmployeeID != other.EmployeeID {
		return k.EmployeeID < other.EmployeeID
	}
	return k.LeaveType < other.LeaveType
}

func (k Key) String() string {
	return k.EmployeeID + "/" + k.LeaveType
}

// Employee is one row of the employee master extract. Immutable once loaded.
type Employee struct {
	EmployeeID     string
	EmploymentType EmploymentType
	// FTE is required for FULL_TIME and PART_TIME employees and absent for
	// CASUAL; the loader enforces both directions.
	FTE       decimal.NullDecimal
	StartDate time.Time
}

// LedgerEvent is one signed movement in the leave event ledger.
// By convention ACCRUAL units are positive and TAKEN units negative; the
// convention is checked by the rule engine, never assumed.
type LedgerEvent struct {
	EmployeeID string
	LeaveType  string
	EventDate  time.Time
	Units      decimal.Decimal
	EventType  EventType
}

// Key returns the composite key for the event.
func (e LedgerEvent) Key() Key {
	return Key{EmployeeID: e.EmployeeID, LeaveType: e.LeaveType}
}

// SnapshotBalance is one reported point-in-time balance.
type SnapshotBalance struct {
	EmployeeID   string
	LeaveType    string
	AsOfDate     time.Time
	BalanceUnits decimal.Decimal
}

// Key returns the composite key for the snapshot row.
func (s SnapshotBalance) Key() Key {
	return Key{EmployeeID: s.EmployeeID, LeaveType: s.LeaveType}
}

// PayRate is one optional pay rate row used for exposure sizing.
type PayRate struct {
	EmployeeID   string
	AsOfDate     time.Time
	HourlyRate   decimal.NullDecimal
	AnnualSalary decimal.NullDecimal
}

// DateFormat is the ISO layout used by every extract.
const DateFormat = "2006-01-02"

// FormatDate renders a date in the extract layout; zero dates render empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateFormat)
}
