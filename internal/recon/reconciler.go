// Package recon joins replayed ledger balances against reported snapshot
// balances and applies the configured tolerance. The reconciliation result is
// computed once per run and shared by the leakage report and the balance
// mismatch rule, so the same numbers appear in both outputs.
package recon

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leavecheck/leavecheck/internal/ledger"
	"github.com/leavecheck/leavecheck/internal/model"
)

// Row is one reconciled (employee, leave type) key.
type Row struct {
	Key            model.Key
	AsOfDate       time.Time
	HasSnapshot    bool
	DerivedBalance decimal.Decimal
	BalanceUnits   decimal.Decimal
	DiffUnits      decimal.Decimal
	EventCount     int
	MinEventDate   time.Time
	MaxEventDate   time.Time

	WithinTolerance bool
	RiskFlag        bool
	RiskReason      string
}

// Reconcile produces one row per union key of ledger aggregates and snapshot
// rows, ordered by (employee_id, leave_type). Snapshots must already be
// deduplicated to one row per key. DiffUnits is derived minus reported; a key
// with ledger activity but no snapshot reconciles against a reported balance
// of zero and says so in its risk reason.
func Reconcile(aggs map[model.Key]ledger.Aggregate, snapshots []model.SnapshotBalance, tolerance decimal.Decimal) []Row {
	byKey := make(map[model.Key]model.SnapshotBalance, len(snapshots))
	for _, snap := range snapshots {
		byKey[snap.Key()] = snap
	}

	keys := make([]model.Key, 0, len(aggs))
	for key := range aggs {
		keys = append(keys, key)
	}
	for key := range byKey {
		if _, ok := aggs[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	rows := make([]Row, 0, len(keys))
	for _, key := range keys {
		agg := aggs[key]
		row := Row{
			Key:            key,
			DerivedBalance: agg.DerivedBalance,
			EventCount:     agg.EventCount,
			MinEventDate:   agg.MinEventDate,
			MaxEventDate:   agg.MaxEventDate,
		}
		if snap, ok := byKey[key]; ok {
			row.HasSnapshot = true
			row.AsOfDate = snap.AsOfDate
			row.BalanceUnits = snap.BalanceUnits
		}
		row.DiffUnits = row.DerivedBalance.Sub(row.BalanceUnits)
		row.WithinTolerance = row.DiffUnits.Abs().LessThanOrEqual(tolerance)
		row.RiskFlag = !row.WithinTolerance
		row.RiskReason = riskReason(row)
		rows = append(rows, row)
	}
	return rows
}

func riskReason(row Row) string {
	if !row.RiskFlag {
		return ""
	}
	magnitude := row.DiffUnits.Abs().StringFixed(2)
	var reason string
	if row.DiffUnits.IsPositive() {
		reason = fmt.Sprintf("ledger exceeds snapshot by %s units", magnitude)
	} else {
		reason = fmt.Sprintf("snapshot exceeds ledger by %s units", magnitude)
	}
	if !row.HasSnapshot {
		reason = "no snapshot row for key; " + reason
	}
	return reason
}
