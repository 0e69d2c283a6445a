// Package ledger derives expected balances by replaying the leave event
// ledger per (employee, leave type) key.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/leavecheck/leavecheck/internal/model"
)

// Aggregate is the replayed ledger state for one key.
type Aggregate struct {
	Key            model.Key
	DerivedBalance decimal.Decimal
	EventCount     int
	MinEventDate   time.Time
	MaxEventDate   time.Time
	// NoCutoff marks a key that has ledger activity but no snapshot row;
	// every event is counted because there is no as_of_date to stop at.
	NoCutoff bool
}

// Build sums signed units per key over events dated on or before the key's
// snapshot as_of_date. Keys present in cutoffs but absent from the ledger
// yield a zero aggregate with EventCount 0 — reviewable, not an error.
// Pure function: no side effects, never fails.
func Build(events []model.LedgerEvent, cutoffs map[model.Key]time.Time) map[model.Key]Aggregate {
	aggs := make(map[model.Key]Aggregate, len(cutoffs))
	for key := range cutoffs {
		aggs[key] = Aggregate{Key: key}
	}
	for _, event := range events {
		key := event.Key()
		agg, seen := aggs[key]
		if !seen {
			agg = Aggregate{Key: key, NoCutoff: true}
		}
		if cutoff, ok := cutoffs[key]; ok && event.EventDate.After(cutoff) {
			// Activity after the snapshot date is not yet reflected in the
			// reported balance.
			aggs[key] = agg
			continue
		}
		agg.DerivedBalance = agg.DerivedBalance.Add(event.Units)
		agg.EventCount++
		if agg.MinEventDate.IsZero() || event.EventDate.Before(agg.MinEventDate) {
			agg.MinEventDate = event.EventDate
		}
		if agg.MaxEventDate.IsZero() || event.EventDate.After(agg.MaxEventDate) {
			agg.MaxEventDate = event.EventDate
		}
		aggs[key] = agg
	}
	return aggs
}
